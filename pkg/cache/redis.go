package cache

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// scanBatch is the COUNT hint passed to SCAN.
const scanBatch = 200

// RedisCache implements Service on go-redis. Every key is namespaced by prefix
// so several deployments can share one Redis database.
type RedisCache struct {
	rdb    *redis.Client
	prefix string
}

var _ Service = (*RedisCache)(nil)

// NewRedisCacheFromClient wraps an existing client. The caller owns rdb.
func NewRedisCacheFromClient(rdb *redis.Client, prefix string) *RedisCache {
	return &RedisCache{rdb: rdb, prefix: prefix}
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, expiration time.Duration) error {
	return c.rdb.Set(ctx, c.prefix+key, value, expiration).Err()
}

func (c *RedisCache) GetBytes(ctx context.Context, key string) ([]byte, error) {
	b, err := c.rdb.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	return b, err
}

func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.prefix + k
	}
	return c.rdb.Unlink(ctx, full...).Err()
}

func (c *RedisCache) Scan(ctx context.Context, pattern string, fn func(key string) error) error {
	iter := c.rdb.Scan(ctx, 0, c.prefix+pattern, scanBatch).Iterator()
	for iter.Next(ctx) {
		if err := fn(strings.TrimPrefix(iter.Val(), c.prefix)); err != nil {
			return err
		}
	}
	return iter.Err()
}
