package cache

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type memoryItem struct {
	data    []byte
	expires time.Time
}

// Memory is an in-process Cache used when no Redis server is configured.
type Memory struct {
	mu    sync.Mutex
	items map[string]memoryItem
	now   func() time.Time
}

// Compile-time check that *Memory satisfies Cache.
var _ Cache = (*Memory)(nil)

// NewMemory creates an empty in-process cache.
func NewMemory() *Memory {
	return &Memory{items: make(map[string]memoryItem), now: time.Now}
}

// Get decodes the value stored at key into dest.
func (c *Memory) Get(_ context.Context, key string, dest any) error {
	c.mu.Lock()
	item, ok := c.items[key]
	if ok && !item.expires.IsZero() && !c.now().Before(item.expires) {
		delete(c.items, key)
		ok = false
	}
	c.mu.Unlock()
	if !ok {
		return ErrMiss
	}
	return decode(item.data, dest)
}

// Set stores value at key; ttl <= 0 means no expiry.
func (c *Memory) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	data, err := encode(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	item := memoryItem{data: data}
	if ttl > 0 {
		item.expires = c.now().Add(ttl)
	}
	c.mu.Lock()
	c.items[key] = item
	c.mu.Unlock()
	return nil
}

// Delete removes keys.
func (c *Memory) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	for _, k := range keys {
		delete(c.items, k)
	}
	c.mu.Unlock()
	return nil
}

// Close is a no-op.
func (c *Memory) Close() error { return nil }
