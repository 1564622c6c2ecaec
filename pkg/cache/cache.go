package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/circuitlink/backend/pkg/logger"
)

const defaultTTL = 10 * time.Minute

// Cache is a thin JSON cache over Redis. A nil *Cache is valid and disables
// caching, so callers never branch on whether Redis is configured.
type Cache struct {
	rdb *redis.Client
}

// New connects to Redis at addr. Returns nil (caching disabled) when addr is
// empty or the server is unreachable.
func New(ctx context.Context, addr, password string) *Cache {
	if addr == "" {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.S.Warnf("redis unreachable at %s, caching disabled: %v", addr, err)
		return nil
	}
	return &Cache{rdb: rdb}
}

// GetJSON loads a cached value into dest. Returns false on miss or decode failure.
func (c *Cache) GetJSON(ctx context.Context, key string, dest any) bool {
	if c == nil {
		return false
	}
	b, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	if err := json.Unmarshal(b, dest); err != nil {
		logger.S.Debugf("cache decode failed key=%s err=%v", key, err)
		return false
	}
	return true
}

// SetJSON stores a value under key with the default TTL.
func (c *Cache) SetJSON(ctx context.Context, key string, v any) {
	if c == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, b, defaultTTL).Err(); err != nil {
		logger.S.Warnf("cache set failed key=%s err=%v", key, err)
	}
}

// Invalidate removes keys matching the prefix using SCAN.
func (c *Cache) Invalidate(ctx context.Context, prefix string) {
	if c == nil {
		return
	}
	var cursor uint64
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, prefix+"*", 100).Result()
		if err != nil {
			logger.S.Warnf("cache scan failed prefix=%s err=%v", prefix, err)
			return
		}
		if len(keys) > 0 {
			if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
				logger.S.Warnf("cache del failed err=%v", err)
			}
		}
		cursor = next
		if cursor == 0 {
			return
		}
	}
}

// Close releases the Redis connection.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.rdb.Close()
}
