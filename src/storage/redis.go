package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"elmo_middleware/pkg"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
)

// scanBatch is the COUNT hint used when walking the keyspace
const scanBatch = 512

// Store is the shared key-value medium. Values are JSON documents; every
// method is a single round trip and fails with pkg.ErrConnectivity when the
// backend cannot be reached.
type Store interface {
	Set(ctx context.Context, key string, value any) error
	Get(ctx context.Context, key string, dest any) error
	Has(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, keys ...string) error
	ListKeys(ctx context.Context, prefix string) ([]string, error)
	FlushAll(ctx context.Context) error
}

// RedisStore implements Store using Redis
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to the Redis instance at redisURL and pings it.
// It fails fast; reconnect policy is left to the caller.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	if redisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse REDIS_URL: %w", err)
	}
	// go-redis retries network errors by default; outages are the caller's call
	opts.MaxRetries = -1

	store := NewRedisStoreFromClient(redis.NewClient(opts))

	// Test connection
	if err := store.Ping(ctx); err != nil {
		store.Close()
		return nil, err
	}

	return store, nil
}

// NewRedisStoreFromClient wraps an existing client without contacting it
func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Set stores the JSON encoding of value under key, without expiry
func (r *RedisStore) Set(ctx context.Context, key string, value any) error {
	data, err := sonic.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w: %w", key, pkg.ErrMalformed, err)
	}

	if err := r.client.Set(ctx, key, data, 0).Err(); err != nil {
		return classify("set", key, err)
	}
	return nil
}

// Get decodes the value stored under key into dest
func (r *RedisStore) Get(ctx context.Context, key string, dest any) error {
	data, err := r.client.Get(ctx, key).Result()
	if err != nil {
		return classify("get", key, err)
	}
	return decode(key, data, dest)
}

// Has checks if key exists
func (r *RedisStore) Has(ctx context.Context, key string) (bool, error) {
	count, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return false, classify("exists", key, err)
	}
	return count > 0, nil
}

// Delete removes keys; absent keys are ignored
func (r *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return classify("delete", strings.Join(keys, ","), err)
	}
	return nil
}

// ListKeys returns the keys starting with prefix, in no particular order.
// An empty prefix lists the whole keyspace.
func (r *RedisStore) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := r.client.Scan(ctx, 0, escapePattern(prefix)+"*", scanBatch).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, classify("scan", prefix+"*", err)
	}
	return keys, nil
}

// FlushAll wipes every key of every database on the server
func (r *RedisStore) FlushAll(ctx context.Context) error {
	if err := r.client.FlushAll(ctx).Err(); err != nil {
		return classify("flushall", "", err)
	}
	return nil
}

// Ping tests Redis connection
func (r *RedisStore) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w: %w", pkg.ErrConnectivity, err)
	}
	return nil
}

// Close closes the Redis connection
func (r *RedisStore) Close() error {
	return r.client.Close()
}

// classify maps a go-redis failure onto the error taxonomy. Server replies
// (e.g. WRONGTYPE) mean the key holds something we cannot read; anything else
// means the server could not be talked to.
func classify(op, key string, err error) error {
	if errors.Is(err, redis.Nil) {
		return fmt.Errorf("%s %s: %w", op, key, pkg.ErrNotFound)
	}
	var reply redis.Error
	if errors.As(err, &reply) {
		return fmt.Errorf("failed to %s %s: %w: %w", op, key, pkg.ErrMalformed, err)
	}
	return fmt.Errorf("failed to %s %s: %w: %w", op, key, pkg.ErrConnectivity, err)
}

func decode(key, data string, dest any) error {
	if err := sonic.UnmarshalString(data, dest); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w: %w", key, pkg.ErrMalformed, err)
	}
	return nil
}

// escapePattern quotes the glob metacharacters understood by SCAN MATCH
func escapePattern(prefix string) string {
	var b strings.Builder
	for _, c := range prefix {
		switch c {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(c)
	}
	return b.String()
}
