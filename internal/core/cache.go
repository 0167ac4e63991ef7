package core

import (
	"context"
	"time"
)

// Cache[T] defines the primitive operations for a key-value cache.
type Cache[T any] interface {
	// Get returns ErrCacheMiss if the key does not exist or has expired.
	Get(ctx context.Context, key string) (T, error)
	Set(ctx context.Context, key string, value T, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
	Health(ctx context.Context) error

	// GetWithFetch retrieves a value using the cache-aside pattern.
	// On cache miss, fetchFunc is called and the result is stored in cache.
	// RueidisAsideCache adds stampede protection across instances.
	GetWithFetch(
		ctx context.Context,
		key string,
		ttl time.Duration,
		fetchFunc func(ctx context.Context, key string) (T, error),
	) (T, error)
}
