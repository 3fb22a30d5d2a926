package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"fsyportal/internal/metrics"
)

// Redis shares cache entries between API replicas. Values are stored as JSON
// under "fsy:cache:<name>:<key>". Redis failures degrade to cache misses.
type Redis[V any] struct {
	client  *redis.Client
	name    string
	ttl     time.Duration
	metrics *metrics.Metrics
	log     *zap.Logger
}

// NewRedis returns a redis-backed cache.
func NewRedis[V any](client *redis.Client, name string, ttl time.Duration, m *metrics.Metrics, log *zap.Logger) *Redis[V] {
	if log == nil {
		log = zap.NewNop()
	}
	return &Redis[V]{
		client:  client,
		name:    name,
		ttl:     ttl,
		metrics: m,
		log:     log.Named("cache").With(zap.String("cache", name)),
	}
}

func (c *Redis[V]) key(k string) string {
	return "fsy:cache:" + c.name + ":" + k
}

func (c *Redis[V]) Get(ctx context.Context, key string) (V, bool) {
	var zero V
	raw, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		}
		c.metrics.CacheMiss(c.name)
		return zero, false
	}
	var v V
	if err := json.Unmarshal(raw, &v); err != nil {
		c.log.Warn("cache entry undecodable", zap.String("key", key), zap.Error(err))
		c.metrics.CacheMiss(c.name)
		return zero, false
	}
	c.metrics.CacheHit(c.name)
	return v, true
}

func (c *Redis[V]) Set(ctx context.Context, key string, value V) {
	if c.ttl <= 0 {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		c.log.Warn("cache entry unencodable", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, c.key(key), raw, c.ttl).Err(); err != nil {
		c.log.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *Redis[V]) Invalidate(ctx context.Context, key string) {
	if err := c.client.Del(ctx, c.key(key)).Err(); err != nil {
		c.log.Warn("cache invalidate failed", zap.String("key", key), zap.Error(err))
	}
}
