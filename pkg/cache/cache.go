package cache

import (
	"context"
	"errors"
	"time"
)

var ErrCacheMiss = errors.New("cache: key not found")

// Service is the subset of key-value operations the engine needs from a remote cache.
type Service interface {
	// Set stores raw bytes. A zero expiration keeps the key forever.
	Set(ctx context.Context, key string, value []byte, expiration time.Duration) error
	GetBytes(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, keys ...string) error
	// Scan calls fn for every key matching pattern, with the prefix removed.
	Scan(ctx context.Context, pattern string, fn func(key string) error) error
}
