package entry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"elmo_middleware/pkg"
	"elmo_middleware/src/storage"
)

// Kind is the declared value type of an entry field
type Kind int

const (
	KindBool Kind = iota
	KindInt
	KindFloat
	KindString
	// KindNullable holds any JSON value, null included
	KindNullable
	// KindGrid holds a list of integer lists, e.g. LED colors
	KindGrid
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindNullable:
		return "nullable"
	case KindGrid:
		return "grid"
	default:
		return "unknown"
	}
}

// normalize converts a Go value into the canonical representation of the
// kind, reporting false when the value does not belong to it
func (k Kind) normalize(v any) (any, bool) {
	switch k {
	case KindBool:
		b, ok := v.(bool)
		return b, ok
	case KindInt:
		if i, ok := asInt(v); ok {
			return i, true
		}
		if f, ok := asFloat(v); ok {
			if i, ok := wholeInt(f); ok {
				return i, true
			}
		}
		return nil, false
	case KindFloat:
		if f, ok := asFloat(v); ok {
			return f, true
		}
		if i, ok := asInt(v); ok {
			return float64(i), true
		}
		return nil, false
	case KindString:
		s, ok := v.(string)
		return s, ok
	case KindNullable:
		return v, true
	case KindGrid:
		switch g := v.(type) {
		case [][]int:
			return g, true
		case [][3]int:
			out := make([][]int, len(g))
			for i, row := range g {
				out[i] = []int{row[0], row[1], row[2]}
			}
			return out, true
		}
		return nil, false
	}
	return nil, false
}

// read fetches key and decodes it as the kind. Values of the wrong shape,
// null included for non-nullable kinds, are reported as malformed.
func (k Kind) read(ctx context.Context, store storage.Store, key string) (any, error) {
	switch k {
	case KindBool:
		var b *bool
		if err := store.Get(ctx, key, &b); err != nil {
			return nil, err
		}
		if b == nil {
			return nil, malformed(key, k)
		}
		return *b, nil
	case KindInt:
		var raw json.RawMessage
		if err := store.Get(ctx, key, &raw); err != nil {
			return nil, err
		}
		i, ok := parseInt(strings.TrimSpace(string(raw)))
		if !ok {
			return nil, malformed(key, k)
		}
		return i, nil
	case KindFloat:
		var f *float64
		if err := store.Get(ctx, key, &f); err != nil {
			return nil, err
		}
		if f == nil {
			return nil, malformed(key, k)
		}
		return *f, nil
	case KindString:
		var s *string
		if err := store.Get(ctx, key, &s); err != nil {
			return nil, err
		}
		if s == nil {
			return nil, malformed(key, k)
		}
		return *s, nil
	case KindGrid:
		var g *[][]int
		if err := store.Get(ctx, key, &g); err != nil {
			return nil, err
		}
		if g == nil {
			return nil, malformed(key, k)
		}
		return *g, nil
	default:
		// numbers decode as float64, as with any untyped JSON value
		var v any
		if err := store.Get(ctx, key, &v); err != nil {
			return nil, err
		}
		return v, nil
	}
}

func malformed(key string, k Kind) error {
	return fmt.Errorf("%s is not a %s: %w", key, k, pkg.ErrMalformed)
}

// parseInt reads a JSON number that must hold an int. Integer literals are
// parsed exactly; other numbers must be whole and in range.
func parseInt(raw string) (int, bool) {
	i, err := strconv.ParseInt(raw, 10, strconv.IntSize)
	if err == nil {
		return int(i), true
	}
	if errors.Is(err, strconv.ErrRange) {
		return 0, false
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return wholeInt(f)
}

// wholeInt converts f when it is integral and fits an int
func wholeInt(f float64) (int, bool) {
	if f != math.Trunc(f) || f < math.MinInt || f >= -float64(math.MinInt) {
		return 0, false
	}
	return int(f), true
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int8:
		return int(n), true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case int64:
		if n < math.MinInt || n > math.MaxInt {
			return 0, false
		}
		return int(n), true
	case uint8:
		return int(n), true
	case uint16:
		return int(n), true
	case uint32:
		if uint64(n) > math.MaxInt {
			return 0, false
		}
		return int(n), true
	case uint64:
		if n > math.MaxInt {
			return 0, false
		}
		return int(n), true
	case uint:
		if n > math.MaxInt {
			return 0, false
		}
		return int(n), true
	}
	return 0, false
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	}
	return 0, false
}
