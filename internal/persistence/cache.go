package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// StringCache is a TTL'd string cache over Redis. It satisfies the cache
// interfaces of the route resolver and the image sizer. With no Redis
// client configured every read misses and every write is a no-op, so the
// service degrades to uncached operation.
type StringCache struct {
	client *redis.Client
}

// NewStringCache wraps the shared Redis client.
func NewStringCache(r *Redis) *StringCache {
	if r == nil {
		return &StringCache{}
	}
	return &StringCache{client: r.Client}
}

// GetString returns the cached value and whether it was present.
func (c *StringCache) GetString(ctx context.Context, key string) (string, bool, error) {
	if c == nil || c.client == nil {
		return "", false, nil
	}
	val, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// SetString stores a value with a TTL. A zero TTL stores without expiry.
func (c *StringCache) SetString(ctx context.Context, key, value string, ttl time.Duration) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Set(ctx, key, value, ttl).Err()
}
