// Package admin holds the inspection and seeding operations behind the
// command line tool.
package admin

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"elmo_middleware/pkg"
	"elmo_middleware/src/storage"

	"github.com/bytedance/sonic"
)

// DefaultMonitorInterval is the refresh period of Monitor
const DefaultMonitorInterval = 100 * time.Millisecond

const malformedValue = "<malformed>"

// Snapshot returns every key starting with one of prefixes, or every key
// when none are given, sorted
func Snapshot(ctx context.Context, store storage.Store, prefixes ...string) ([]pkg.KeyValue, error) {
	keys, err := store.ListKeys(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	sort.Strings(keys)

	pairs := make([]pkg.KeyValue, 0, len(keys))
	for _, key := range keys {
		if !matches(key, prefixes) {
			continue
		}
		var value any
		err := store.Get(ctx, key, &value)
		switch {
		case pkg.IsNotFound(err):
			continue
		case pkg.IsMalformed(err):
			value = malformedValue
		case err != nil:
			return nil, err
		}
		pairs = append(pairs, pkg.KeyValue{Key: key, Value: value})
	}
	return pairs, nil
}

// Dump writes "key:\tvalue" lines for the selected keys, values JSON encoded
func Dump(ctx context.Context, store storage.Store, w io.Writer, prefixes ...string) error {
	pairs, err := Snapshot(ctx, store, prefixes...)
	if err != nil {
		return err
	}

	var b strings.Builder
	for _, kv := range pairs {
		encoded, err := sonic.ConfigStd.MarshalToString(kv.Value)
		if err != nil {
			encoded = malformedValue
		}
		fmt.Fprintf(&b, "%s:\t%s\n", kv.Key, encoded)
	}
	_, err = io.WriteString(w, b.String())
	return err
}

// Monitor prints a separator and a dump every interval until ctx is done
func Monitor(ctx context.Context, store storage.Store, w io.Writer, interval time.Duration, prefixes ...string) error {
	if interval <= 0 {
		interval = DefaultMonitorInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := io.WriteString(w, "---\n"); err != nil {
			return err
		}
		if err := Dump(ctx, store, w, prefixes...); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Seed writes every value under its key, overwriting present values
func Seed(ctx context.Context, store storage.Store, values map[string]any) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if err := store.Set(ctx, key, values[key]); err != nil {
			return fmt.Errorf("failed to seed %s: %w", key, err)
		}
	}
	return nil
}

// Reset deletes every key in the store
func Reset(ctx context.Context, store storage.Store) error {
	if err := store.FlushAll(ctx); err != nil {
		return fmt.Errorf("failed to reset store: %w", err)
	}
	return nil
}

func matches(key string, prefixes []string) bool {
	if len(prefixes) == 0 {
		return true
	}
	for _, p := range prefixes {
		if strings.HasPrefix(key, p) {
			return true
		}
	}
	return false
}
