package storage

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"elmo_middleware/pkg"

	"github.com/bytedance/sonic"
)

// MemoryStore is an in-process Store for development and tests. Values are
// kept JSON encoded so decoding behaves exactly as with Redis.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]string
	down bool
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]string),
	}
}

// SetDown simulates an unreachable backend: while down every operation
// fails with pkg.ErrConnectivity
func (m *MemoryStore) SetDown(down bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.down = down
}

// SetRaw stores data verbatim, bypassing encoding
func (m *MemoryStore) SetRaw(key, data string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = data
}

// Raw returns the encoded value under key
func (m *MemoryStore) Raw(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.data[key]
	return data, ok
}

func (m *MemoryStore) Set(ctx context.Context, key string, value any) error {
	data, err := sonic.MarshalString(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w: %w", key, pkg.ErrMalformed, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(ctx, "set", key); err != nil {
		return err
	}
	m.data[key] = data
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, key string, dest any) error {
	m.mu.RLock()
	if err := m.check(ctx, "get", key); err != nil {
		m.mu.RUnlock()
		return err
	}
	data, ok := m.data[key]
	m.mu.RUnlock()

	if !ok {
		return fmt.Errorf("get %s: %w", key, pkg.ErrNotFound)
	}
	return decode(key, data, dest)
}

func (m *MemoryStore) Has(ctx context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.check(ctx, "exists", key); err != nil {
		return false, err
	}
	_, ok := m.data[key]
	return ok, nil
}

func (m *MemoryStore) Delete(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(ctx, "delete", strings.Join(keys, ",")); err != nil {
		return err
	}
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *MemoryStore) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.check(ctx, "scan", prefix+"*"); err != nil {
		return nil, err
	}
	var keys []string
	for key := range m.data {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (m *MemoryStore) FlushAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(ctx, "flushall", ""); err != nil {
		return err
	}
	m.data = make(map[string]string)
	return nil
}

// check must be called with mu held
func (m *MemoryStore) check(ctx context.Context, op, key string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("failed to %s %s: %w: %w", op, key, pkg.ErrConnectivity, err)
	}
	if m.down {
		return fmt.Errorf("failed to %s %s: %w", op, key, pkg.ErrConnectivity)
	}
	return nil
}
