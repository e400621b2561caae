// Package entry implements namespaced state records shared through the store.
//
// An entry type is a Schema: a key prefix and a static table of fields, each
// with a kind and a default value. Field "f" of an entry with prefix "p" lives
// under the store key "p_f". Reading a field that is not yet stored writes the
// default first, so once any process has read a field its key exists and
// holds a value of the declared kind.
//
// Entries cache nothing: every Get is a fresh read from the store, and no
// atomicity is offered across fields.
package entry

import (
	"context"
	"fmt"
	"time"

	"elmo_middleware/pkg"
	"elmo_middleware/src/storage"
)

// ReadyField is the flag a driver raises once its hardware is initialized
const ReadyField = "ready"

// Field declares one field of an entry type
type Field struct {
	Name    string
	Kind    Kind
	Default any
}

// Bool declares a boolean field
func Bool(name string, def bool) Field { return Field{Name: name, Kind: KindBool, Default: def} }

// Int declares an integer field
func Int(name string, def int) Field { return Field{Name: name, Kind: KindInt, Default: def} }

// Float declares a floating point field
func Float(name string, def float64) Field { return Field{Name: name, Kind: KindFloat, Default: def} }

// String declares a string field
func String(name string, def string) Field { return Field{Name: name, Kind: KindString, Default: def} }

// Nullable declares a field accepting any JSON value, null included.
// Values read back untyped: numbers are float64, objects map[string]any.
func Nullable(name string, def any) Field { return Field{Name: name, Kind: KindNullable, Default: def} }

// Grid declares a list-of-integer-lists field
func Grid(name string, def [][]int) Field { return Field{Name: name, Kind: KindGrid, Default: def} }

// Schema is the static description of an entry type
type Schema struct {
	prefix string
	fields []Field
	index  map[string]int
}

// NewSchema declares an entry type. It panics on duplicate field names or on
// defaults that do not match their kind, both being programming errors.
func NewSchema(prefix string, fields ...Field) *Schema {
	s := &Schema{
		prefix: prefix,
		fields: make([]Field, 0, len(fields)),
		index:  make(map[string]int, len(fields)),
	}
	for _, f := range fields {
		if _, dup := s.index[f.Name]; dup {
			panic(fmt.Sprintf("entry %s: duplicate field %q", prefix, f.Name))
		}
		def, ok := f.Kind.normalize(f.Default)
		if !ok {
			panic(fmt.Sprintf("entry %s: default of %q is not a %s", prefix, f.Name, f.Kind))
		}
		f.Default = def
		s.index[f.Name] = len(s.fields)
		s.fields = append(s.fields, f)
	}
	return s
}

// Prefix returns the key prefix of the entry type
func (s *Schema) Prefix() string {
	return s.prefix
}

// Fields returns the declared fields in declaration order
func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Names returns the declared field names in declaration order
func (s *Schema) Names() []string {
	names := make([]string, len(s.fields))
	for i, f := range s.fields {
		names[i] = f.Name
	}
	return names
}

// Field looks up a declared field
func (s *Schema) Field(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// Key returns the store key of a field
func (s *Schema) Key(name string) string {
	return pkg.FieldKey(s.prefix, name)
}

// Entry is an instance of an entry type bound to a store
type Entry struct {
	schema *Schema
	store  storage.Store
}

// New binds schema to store
func New(store storage.Store, schema *Schema) *Entry {
	return &Entry{schema: schema, store: store}
}

// Schema returns the entry type
func (e *Entry) Schema() *Schema {
	return e.schema
}

func (e *Entry) field(name string) (Field, error) {
	f, ok := e.schema.Field(name)
	if !ok {
		return Field{}, fmt.Errorf("%s has no field %q: %w", e.schema.prefix, name, pkg.ErrUnknownField)
	}
	return f, nil
}

// Get returns the current stored value of a field, materializing its default
// first when the key is absent. The value's Go type follows the field kind:
// bool, int, float64, string, [][]int, or any decoded JSON for nullable fields.
//
// Concurrent first reads may both write the default; that is harmless as the
// default write has no other effect.
func (e *Entry) Get(ctx context.Context, name string) (any, error) {
	f, err := e.field(name)
	if err != nil {
		return nil, err
	}
	key := e.schema.Key(name)

	exists, err := e.store.Has(ctx, key)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := e.store.Set(ctx, key, f.Default); err != nil {
			return nil, err
		}
	}
	return f.Kind.read(ctx, e.store, key)
}

// Set writes a field. The value must belong to the field's kind; no range
// validation is done.
func (e *Entry) Set(ctx context.Context, name string, value any) error {
	f, err := e.field(name)
	if err != nil {
		return err
	}
	v, ok := f.Kind.normalize(value)
	if !ok {
		return fmt.Errorf("%s: %T for %s field: %w", e.schema.Key(name), value, f.Kind, pkg.ErrKindMismatch)
	}
	return e.store.Set(ctx, e.schema.Key(name), v)
}

// Bool reads a boolean field
func (e *Entry) Bool(ctx context.Context, name string) (bool, error) {
	v, err := e.typed(ctx, name, KindBool)
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

// Int reads an integer field
func (e *Entry) Int(ctx context.Context, name string) (int, error) {
	v, err := e.typed(ctx, name, KindInt)
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

// Float reads a float field. Integer fields are widened.
func (e *Entry) Float(ctx context.Context, name string) (float64, error) {
	v, err := e.typed(ctx, name, KindFloat, KindInt)
	if err != nil {
		return 0, err
	}
	if i, ok := v.(int); ok {
		return float64(i), nil
	}
	return v.(float64), nil
}

// String reads a string field
func (e *Entry) String(ctx context.Context, name string) (string, error) {
	v, err := e.typed(ctx, name, KindString)
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// NullableString reads a string or nullable field holding a string or null
func (e *Entry) NullableString(ctx context.Context, name string) (*string, error) {
	v, err := e.typed(ctx, name, KindString, KindNullable)
	if err != nil {
		return nil, err
	}
	switch s := v.(type) {
	case nil:
		return nil, nil
	case string:
		return &s, nil
	}
	return nil, fmt.Errorf("%s is not a string: %w", e.schema.Key(name), pkg.ErrMalformed)
}

// Grid reads a grid field
func (e *Entry) Grid(ctx context.Context, name string) ([][]int, error) {
	v, err := e.typed(ctx, name, KindGrid)
	if err != nil {
		return nil, err
	}
	return v.([][]int), nil
}

func (e *Entry) typed(ctx context.Context, name string, kinds ...Kind) (any, error) {
	f, err := e.field(name)
	if err != nil {
		return nil, err
	}
	for _, k := range kinds {
		if f.Kind == k {
			return e.Get(ctx, name)
		}
	}
	return nil, fmt.Errorf("%s is a %s field: %w", e.schema.Key(name), f.Kind, pkg.ErrKindMismatch)
}

// Reset deletes every field of the entry; the next read of each field
// materializes its default again
func (e *Entry) Reset(ctx context.Context) error {
	keys := make([]string, len(e.schema.fields))
	for i, f := range e.schema.fields {
		keys[i] = e.schema.Key(f.Name)
	}
	return e.store.Delete(ctx, keys...)
}

// Snapshot reads every field. The fields are read one by one, so the result
// may mix states from different moments.
func (e *Entry) Snapshot(ctx context.Context) (map[string]any, error) {
	out := make(map[string]any, len(e.schema.fields))
	for _, f := range e.schema.fields {
		v, err := e.Get(ctx, f.Name)
		if err != nil {
			return nil, err
		}
		out[f.Name] = v
	}
	return out, nil
}

// WaitReady polls the ready field every interval until it is true, the
// context ends, or a read fails
func (e *Entry) WaitReady(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		ready, err := e.Bool(ctx, ReadyField)
		if err != nil {
			return err
		}
		if ready {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
