package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-authgate/pairgate/internal/core"

	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	limiterRedis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// StorePrefix namespaces limiter keys in Redis.
const StorePrefix = "pairgate_ratelimit"

var _ core.RateLimitStore = (*LimiterStore)(nil)

// LimiterStore adapts a ulule/limiter store to core.RateLimitStore so several
// instances can share windows. The redis driver increments with a single
// script, which keeps Take atomic per key.
type LimiterStore struct {
	store limiter.Store
}

// NewLimiterStore wraps any ulule store.
func NewLimiterStore(store limiter.Store) *LimiterStore {
	return &LimiterStore{store: store}
}

// NewRedisLimiterStore builds a LimiterStore over an existing go-redis client.
func NewRedisLimiterStore(
	client *redis.Client,
	cleanupInterval time.Duration,
) (*LimiterStore, error) {
	store, err := limiterRedis.NewStoreWithOptions(client, limiter.StoreOptions{
		Prefix:          StorePrefix,
		CleanUpInterval: cleanupInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis limiter store: %w", err)
	}
	return NewLimiterStore(store), nil
}

func (s *LimiterStore) Take(
	ctx context.Context,
	key string,
	limit int,
	window time.Duration,
) (core.RateLimitResult, error) {
	rate := limiter.Rate{
		Period: window,
		Limit:  int64(limit),
	}

	lctx, err := s.store.Get(ctx, key, rate)
	if err != nil {
		return core.RateLimitResult{}, err
	}

	// ulule counts denied hits too; report the capped count instead.
	count := int(lctx.Limit - lctx.Remaining)
	if lctx.Reached {
		count = limit
	}

	return core.RateLimitResult{
		Count:   count,
		ResetAt: time.Unix(lctx.Reset, 0).UTC(),
		Allowed: !lctx.Reached,
	}, nil
}
