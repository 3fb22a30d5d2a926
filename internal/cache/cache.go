// Package cache holds the advisory TTL caches placed in front of the
// database routines. Entries may be stale for up to their TTL; writers call
// Invalidate when they know a key changed.
package cache

import (
	"context"
	"sync"
	"time"

	"fsyportal/internal/metrics"
)

// Cache maps a key to a value with an expiry.
type Cache[V any] interface {
	Get(ctx context.Context, key string) (V, bool)
	Set(ctx context.Context, key string, value V)
	Invalidate(ctx context.Context, key string)
}

type entry[V any] struct {
	value   V
	expires time.Time
}

// Memory is a process-local cache. A zero TTL disables caching.
type Memory[V any] struct {
	name    string
	ttl     time.Duration
	now     func() time.Time
	metrics *metrics.Metrics

	mu      sync.Mutex
	entries map[string]entry[V]
}

// NewMemory returns an in-process cache named name for metrics.
func NewMemory[V any](name string, ttl time.Duration, m *metrics.Metrics) *Memory[V] {
	return &Memory[V]{
		name:    name,
		ttl:     ttl,
		now:     time.Now,
		metrics: m,
		entries: make(map[string]entry[V]),
	}
}

// WithClock replaces the clock used for expiry.
func (c *Memory[V]) WithClock(now func() time.Time) *Memory[V] {
	c.now = now
	return c
}

func (c *Memory[V]) Get(_ context.Context, key string) (V, bool) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if ok && !c.now().Before(e.expires) {
		delete(c.entries, key)
		ok = false
	}
	c.mu.Unlock()

	if !ok {
		c.metrics.CacheMiss(c.name)
		var zero V
		return zero, false
	}
	c.metrics.CacheHit(c.name)
	return e.value, true
}

func (c *Memory[V]) Set(_ context.Context, key string, value V) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	c.entries[key] = entry[V]{value: value, expires: c.now().Add(c.ttl)}
	c.mu.Unlock()
}

func (c *Memory[V]) Invalidate(_ context.Context, key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Len reports the number of stored entries, expired ones included.
func (c *Memory[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
