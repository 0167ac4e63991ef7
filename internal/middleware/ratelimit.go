package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-authgate/pairgate/internal/config"
	"github.com/go-authgate/pairgate/internal/core"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	limiterRedis "github.com/ulule/limiter/v3/drivers/store/redis"
)

const httpRateLimitPrefix = "pairgate_http"

// RateLimitConfig configures the per-IP request throttle.
type RateLimitConfig struct {
	RequestsPerMinute int
	CleanupInterval   time.Duration // memory store only

	// StoreType is config.RateLimitStoreMemory or config.RateLimitStoreRedis.
	StoreType   string
	RedisClient *redis.Client // required for the redis store

	Metrics core.Recorder
}

// NewRateLimiter builds a per-client-IP throttle on top of ulule/limiter.
// It runs in front of the per-action limits enforced by the services.
func NewRateLimiter(cfg RateLimitConfig) (gin.HandlerFunc, error) {
	if cfg.RequestsPerMinute <= 0 {
		return nil, fmt.Errorf("requests per minute must be positive, got %d", cfg.RequestsPerMinute)
	}

	rate := limiter.Rate{
		Period: time.Minute,
		Limit:  int64(cfg.RequestsPerMinute),
	}

	var store limiter.Store
	switch cfg.StoreType {
	case config.RateLimitStoreRedis:
		if cfg.RedisClient == nil {
			return nil, errors.New("redis rate limit store requires a redis client")
		}
		var err error
		store, err = limiterRedis.NewStoreWithOptions(cfg.RedisClient, limiter.StoreOptions{
			Prefix:          httpRateLimitPrefix,
			CleanUpInterval: cfg.CleanupInterval,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create redis store: %w", err)
		}
	default:
		cleanup := cfg.CleanupInterval
		if cleanup <= 0 {
			cleanup = limiter.DefaultCleanUpInterval
		}
		store = memory.NewStoreWithOptions(limiter.StoreOptions{
			Prefix:          httpRateLimitPrefix,
			CleanUpInterval: cleanup,
		})
	}

	instance := limiter.New(store, rate)

	return mgin.NewMiddleware(
		instance,
		mgin.WithLimitReachedHandler(func(c *gin.Context) {
			if cfg.Metrics != nil {
				cfg.Metrics.RecordRateLimited("http")
			}
			retryAfter := retryAfterFromReset(c.Writer.Header().Get("X-RateLimit-Reset"))
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"success":           false,
				"error":             "rate_limited",
				"error_description": "Too many requests. Please try again later.",
				"retry_after":       retryAfter,
			})
			c.Abort()
		}),
		mgin.WithErrorHandler(func(c *gin.Context, err error) {
			// Fail open: the per-action limits still apply.
			log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("http rate limiter failed")
			c.Next()
		}),
	), nil
}

// retryAfterFromReset converts the X-RateLimit-Reset unix timestamp into
// whole seconds from now, never below 1.
func retryAfterFromReset(reset string) int {
	ts, err := strconv.ParseInt(reset, 10, 64)
	if err != nil {
		return 1
	}
	return max(int(time.Until(time.Unix(ts, 0)).Seconds()+0.999), 1)
}
