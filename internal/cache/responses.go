package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ghmd86/document-hub-sub000/internal/extraction"
	"github.com/ghmd86/document-hub-sub000/internal/logger"
)

// Compile-time check to verify that RedisResponseCache satisfies the
// executor's cache contract.
var _ extraction.ResponseCache = (*RedisResponseCache)(nil)

// RedisResponseCache stores raw data source response bodies in Redis with a
// per-entry TTL. Cache failures degrade to a normal fetch; they are logged
// and otherwise invisible to the extraction pipeline.
type RedisResponseCache struct {
	client *redis.Client
}

// NewRedisResponseCache wraps a connected Redis client.
func NewRedisResponseCache(client *redis.Client) *RedisResponseCache {
	if client == nil {
		panic("cache: redis client cannot be nil")
	}
	return &RedisResponseCache{client: client}
}

// Get retrieves a cached response body. A miss and an error look the same to
// the caller; errors are logged here.
func (c *RedisResponseCache) Get(ctx context.Context, key string) ([]byte, bool) {
	body, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.FromContext(ctx).Warn("response cache read failed", "key", key, "error", err)
		}
		return nil, false
	}
	return body, true
}

// Set stores a response body with the source's TTL. Best-effort.
func (c *RedisResponseCache) Set(ctx context.Context, key string, body []byte, ttl time.Duration) {
	if err := c.client.Set(ctx, key, body, ttl).Err(); err != nil {
		logger.FromContext(ctx).Warn("response cache write failed", "key", key, "error", err)
	}
}
