package entry

import (
	"context"
	"math"
	"strconv"
	"testing"
	"time"

	"elmo_middleware/pkg"
	"elmo_middleware/src/storage"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSchema = NewSchema("test",
	Bool("ready", false),
	Int("count", 7),
	Float("ratio", 0.5),
	String("label", "idle"),
	Nullable("url", nil),
	Grid("colors", [][]int{{0, 0, 0}, {1, 1, 1}}),
)

func newRedisEntry(t *testing.T) (*miniredis.Miniredis, storage.Store, *Entry) {
	t.Helper()
	mr := miniredis.RunT(t)
	store := storage.NewRedisStoreFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1}))
	t.Cleanup(func() { store.Close() })
	return mr, store, New(store, testSchema)
}

// TestGetMaterializesDefault verifies that the first read of each field on an
// empty store writes and returns its default, and that repeated reads keep
// returning it.
func TestGetMaterializesDefault(t *testing.T) {
	ctx := context.Background()
	_, store, e := newRedisEntry(t)

	defaults := map[string]any{
		"ready":  false,
		"count":  7,
		"ratio":  0.5,
		"label":  "idle",
		"url":    nil,
		"colors": [][]int{{0, 0, 0}, {1, 1, 1}},
	}

	for name, want := range defaults {
		has, err := store.Has(ctx, testSchema.Key(name))
		require.NoError(t, err)
		require.False(t, has, name)

		got, err := e.Get(ctx, name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)

		has, err = store.Has(ctx, testSchema.Key(name))
		require.NoError(t, err)
		assert.True(t, has, name)

		got, err = e.Get(ctx, name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
}

// TestSetGetRoundTrip verifies that a written value of the field's kind is
// read back exactly.
func TestSetGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	_, _, e := newRedisEntry(t)

	values := map[string]any{
		"ready":  true,
		"count":  -42,
		"ratio":  12.25,
		"label":  "blushing",
		"url":    "http://elmo:8000/sounds/love.wav",
		"colors": [][]int{{255, 0, 0}},
	}
	for name, v := range values {
		require.NoError(t, e.Set(ctx, name, v), name)
		got, err := e.Get(ctx, name)
		require.NoError(t, err, name)
		assert.Equal(t, v, got, name)
	}

	require.NoError(t, e.Set(ctx, "url", nil))
	got, err := e.Get(ctx, "url")
	require.NoError(t, err)
	assert.Nil(t, got)
}

// TestIntRoundTripBoundaries verifies integers beyond float64 precision and
// at the int range limits are read back exactly.
func TestIntRoundTripBoundaries(t *testing.T) {
	ctx := context.Background()
	mr, _, e := newRedisEntry(t)

	for _, v := range []int{1<<53 + 1, math.MaxInt64, math.MinInt64, 0} {
		require.NoError(t, e.Set(ctx, "count", v), v)

		raw, err := mr.Get("test_count")
		require.NoError(t, err)
		assert.Equal(t, strconv.Itoa(v), raw)

		got, err := e.Int(ctx, "count")
		require.NoError(t, err, v)
		assert.Equal(t, v, got)
	}
}

// TestIntRejectsOutOfRange verifies unsigned values above the int range are
// refused and out of range stored numbers read as malformed.
func TestIntRejectsOutOfRange(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	e := New(store, testSchema)
	require.NoError(t, e.Set(ctx, "count", 7))

	for _, v := range []any{uint64(math.MaxUint64), uint(math.MaxInt64) + 1} {
		err := e.Set(ctx, "count", v)
		assert.ErrorIs(t, err, pkg.ErrKindMismatch, v)
	}
	raw, _ := store.Raw("test_count")
	assert.Equal(t, "7", raw)

	assert.ErrorIs(t, e.Set(ctx, "count", 1e19), pkg.ErrKindMismatch)

	for _, raw := range []string{"9223372036854775808", "-9223372036854775809", "1e19", "true"} {
		store.SetRaw("test_count", raw)
		_, err := e.Int(ctx, "count")
		assert.True(t, pkg.IsMalformed(err), raw)
	}

	store.SetRaw("test_count", "3e2")
	n, err := e.Int(ctx, "count")
	require.NoError(t, err)
	assert.Equal(t, 300, n)
}

// TestNullableNumbers verifies untyped nullable fields read numbers back as
// float64.
func TestNullableNumbers(t *testing.T) {
	ctx := context.Background()
	_, _, e := newRedisEntry(t)

	require.NoError(t, e.Set(ctx, "url", 5))
	got, err := e.Get(ctx, "url")
	require.NoError(t, err)
	assert.Equal(t, float64(5), got)
}

// TestKeyspace verifies the "{prefix}_{field}" layout and JSON encoding.
func TestKeyspace(t *testing.T) {
	ctx := context.Background()
	mr, _, e := newRedisEntry(t)

	require.NoError(t, e.Set(ctx, "ready", true))
	require.NoError(t, e.Set(ctx, "label", "on"))

	raw, err := mr.Get("test_ready")
	require.NoError(t, err)
	assert.Equal(t, "true", raw)
	raw, err = mr.Get("test_label")
	require.NoError(t, err)
	assert.Equal(t, `"on"`, raw)
}

// TestSetNormalizesNumbers verifies numeric conversions between Go types.
func TestSetNormalizesNumbers(t *testing.T) {
	ctx := context.Background()
	_, _, e := newRedisEntry(t)

	require.NoError(t, e.Set(ctx, "count", int64(3)))
	n, err := e.Int(ctx, "count")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.NoError(t, e.Set(ctx, "count", 4.0))
	n, err = e.Int(ctx, "count")
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	require.NoError(t, e.Set(ctx, "ratio", 2))
	f, err := e.Float(ctx, "ratio")
	require.NoError(t, err)
	assert.Equal(t, 2.0, f)

	// integer fields widen to float
	f, err = e.Float(ctx, "count")
	require.NoError(t, err)
	assert.Equal(t, 4.0, f)
}

// TestSetKindMismatch verifies values of the wrong kind are refused before
// reaching the store.
func TestSetKindMismatch(t *testing.T) {
	ctx := context.Background()
	_, store, e := newRedisEntry(t)

	cases := map[string]any{
		"ready":  "yes",
		"count":  1.5,
		"ratio":  "half",
		"label":  3,
		"colors": []int{1, 2, 3},
	}
	for name, v := range cases {
		err := e.Set(ctx, name, v)
		require.Error(t, err, name)
		assert.ErrorIs(t, err, pkg.ErrKindMismatch, name)

		has, err := store.Has(ctx, testSchema.Key(name))
		require.NoError(t, err)
		assert.False(t, has, name)
	}
}

// TestUnknownField verifies undeclared fields fail fast without store traffic.
func TestUnknownField(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	store.SetDown(true)
	e := New(store, testSchema)

	_, err := e.Get(ctx, "nope")
	assert.ErrorIs(t, err, pkg.ErrUnknownField)
	assert.False(t, pkg.IsConnectivity(err))

	err = e.Set(ctx, "nope", 1)
	assert.ErrorIs(t, err, pkg.ErrUnknownField)

	_, err = e.Bool(ctx, "nope")
	assert.ErrorIs(t, err, pkg.ErrUnknownField)
}

// TestTypedAccessorMismatch verifies typed readers refuse fields of another kind.
func TestTypedAccessorMismatch(t *testing.T) {
	ctx := context.Background()
	e := New(storage.NewMemoryStore(), testSchema)

	_, err := e.Bool(ctx, "count")
	assert.ErrorIs(t, err, pkg.ErrKindMismatch)
	_, err = e.String(ctx, "url")
	assert.ErrorIs(t, err, pkg.ErrKindMismatch)
	_, err = e.Grid(ctx, "label")
	assert.ErrorIs(t, err, pkg.ErrKindMismatch)
}

// TestTypedAccessors verifies each typed reader returns the default.
func TestTypedAccessors(t *testing.T) {
	ctx := context.Background()
	e := New(storage.NewMemoryStore(), testSchema)

	b, err := e.Bool(ctx, "ready")
	require.NoError(t, err)
	assert.False(t, b)

	s, err := e.String(ctx, "label")
	require.NoError(t, err)
	assert.Equal(t, "idle", s)

	ns, err := e.NullableString(ctx, "url")
	require.NoError(t, err)
	assert.Nil(t, ns)

	require.NoError(t, e.Set(ctx, "url", "http://x"))
	ns, err = e.NullableString(ctx, "url")
	require.NoError(t, err)
	require.NotNil(t, ns)
	assert.Equal(t, "http://x", *ns)

	require.NoError(t, e.Set(ctx, "url", 12))
	_, err = e.NullableString(ctx, "url")
	assert.True(t, pkg.IsMalformed(err))

	g, err := e.Grid(ctx, "colors")
	require.NoError(t, err)
	assert.Len(t, g, 2)
}

// TestGetMalformed verifies stored values of the wrong kind are reported.
func TestGetMalformed(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	e := New(store, testSchema)

	raws := map[string]string{
		"ready":  "null",
		"count":  "1.5",
		"ratio":  `"x"`,
		"label":  "null",
		"colors": "[[1.5]]",
	}
	for name, raw := range raws {
		store.SetRaw(testSchema.Key(name), raw)
		_, err := e.Get(ctx, name)
		require.Error(t, err, name)
		assert.True(t, pkg.IsMalformed(err), name)
	}
}

// TestFlushRematerializes verifies that after the store is wiped a read
// restores the original default.
func TestFlushRematerializes(t *testing.T) {
	ctx := context.Background()
	_, store, e := newRedisEntry(t)

	require.NoError(t, e.Set(ctx, "label", "changed"))
	require.NoError(t, store.FlushAll(ctx))

	got, err := e.Get(ctx, "label")
	require.NoError(t, err)
	assert.Equal(t, "idle", got)
}

// TestReset verifies the explicit per-entry reset.
func TestReset(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	e := New(store, testSchema)

	require.NoError(t, e.Set(ctx, "count", 99))
	require.NoError(t, store.Set(ctx, "other_key", 1))
	require.NoError(t, e.Reset(ctx))

	keys, err := store.ListKeys(ctx, "test_")
	require.NoError(t, err)
	assert.Empty(t, keys)

	has, err := store.Has(ctx, "other_key")
	require.NoError(t, err)
	assert.True(t, has)

	n, err := e.Int(ctx, "count")
	require.NoError(t, err)
	assert.Equal(t, 7, n)
}

// TestSnapshot verifies every field is read, with defaults filled in.
func TestSnapshot(t *testing.T) {
	ctx := context.Background()
	e := New(storage.NewMemoryStore(), testSchema)
	require.NoError(t, e.Set(ctx, "ready", true))

	snap, err := e.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, snap, 6)
	assert.Equal(t, true, snap["ready"])
	assert.Equal(t, 7, snap["count"])
}

// TestConnectivityPropagates verifies store outages surface unchanged.
func TestConnectivityPropagates(t *testing.T) {
	ctx := context.Background()
	mr, _, e := newRedisEntry(t)
	mr.Close()

	_, err := e.Get(ctx, "ready")
	assert.True(t, pkg.IsConnectivity(err))
	err = e.Set(ctx, "ready", true)
	assert.True(t, pkg.IsConnectivity(err))
}

// TestWaitReady verifies waiting on a driver's ready flag.
func TestWaitReady(t *testing.T) {
	ctx := context.Background()
	e := New(storage.NewMemoryStore(), testSchema)

	go func() {
		time.Sleep(30 * time.Millisecond)
		_ = e.Set(ctx, "ready", true)
	}()

	waitCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	require.NoError(t, e.WaitReady(waitCtx, 5*time.Millisecond))

	// never ready: bounded by the context
	other := New(storage.NewMemoryStore(), testSchema)
	shortCtx, cancelShort := context.WithTimeout(ctx, 30*time.Millisecond)
	defer cancelShort()
	err := other.WaitReady(shortCtx, 5*time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// TestNewSchemaPanics verifies declaration mistakes fail loudly.
func TestNewSchemaPanics(t *testing.T) {
	assert.Panics(t, func() {
		NewSchema("dup", Bool("a", false), Int("a", 1))
	})
	assert.Panics(t, func() {
		NewSchema("bad", Field{Name: "a", Kind: KindBool, Default: 1})
	})
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "bool", KindBool.String())
	assert.Equal(t, "grid", KindGrid.String())
	assert.Equal(t, "unknown", Kind(99).String())
}
