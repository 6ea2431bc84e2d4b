// Package cache stores JSON-encoded read models with a time-to-live.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"gymadmin/internal/adapters/metrics"
)

// KeyDashboard holds the cached dashboard aggregate; member writes invalidate it.
const KeyDashboard = "dashboard"

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

// Cache is a key/value store for JSON-encodable values.
type Cache interface {
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

// GetOrSet returns the cached value for key, or calls fn and caches its result for ttl.
// PRE: c is non-nil; collector may be nil
// POST: fn is called only on a miss or a cache read error; cache write errors are logged, not returned
func GetOrSet[T any](ctx context.Context, c Cache, collector *metrics.Collector, key string, ttl time.Duration, fn func() (T, error)) (T, error) {
	var result T
	err := c.Get(ctx, key, &result)
	if err == nil {
		collector.CacheLookup(true)
		return result, nil
	}
	collector.CacheLookup(false)
	if !errors.Is(err, ErrMiss) {
		slog.Warn("cache_event", "event", "read_failed", "key", key, "error", err)
	}

	result, err = fn()
	if err != nil {
		return result, err
	}
	if err := c.Set(ctx, key, result, ttl); err != nil {
		slog.Warn("cache_event", "event", "write_failed", "key", key, "error", err)
	}
	return result, nil
}

// Invalidate deletes keys, logging rather than returning failures.
func Invalidate(ctx context.Context, c Cache, keys ...string) {
	if c == nil {
		return
	}
	if err := c.Delete(ctx, keys...); err != nil {
		slog.Warn("cache_event", "event", "invalidate_failed", "keys", keys, "error", err)
	}
}

func encode(value any) ([]byte, error) {
	return json.Marshal(value)
}

func decode(data []byte, dest any) error {
	return json.Unmarshal(data, dest)
}
