package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadSeed reads a seed file mapping store keys to their initial values.
// Files are parsed as YAML, so plain JSON documents are accepted too.
func LoadSeed(filepath string) (map[string]any, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("error reading seed file: %w", err)
	}

	var seed map[string]any
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("error parsing seed file %s: %w", filepath, err)
	}
	if seed == nil {
		seed = map[string]any{}
	}

	for key, value := range seed {
		seed[key] = jsonable(value)
	}
	return seed, nil
}

// jsonable converts YAML mappings with non-string keys into string keyed maps
func jsonable(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, item := range t {
			t[k] = jsonable(item)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[fmt.Sprint(k)] = jsonable(item)
		}
		return out
	case []any:
		for i, item := range t {
			t[i] = jsonable(item)
		}
		return t
	default:
		return v
	}
}
