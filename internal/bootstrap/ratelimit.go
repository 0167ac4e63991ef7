package bootstrap

import (
	"errors"
	"fmt"

	"github.com/go-authgate/pairgate/internal/config"
	"github.com/go-authgate/pairgate/internal/core"
	"github.com/go-authgate/pairgate/internal/middleware"
	"github.com/go-authgate/pairgate/internal/ratelimit"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// rateLimitRules maps the configured per-action limits. An empty map
// disables limiting in the services.
func rateLimitRules(cfg *config.Config) map[string]ratelimit.Rule {
	if !cfg.EnableRateLimit {
		return nil
	}
	return map[string]ratelimit.Rule{
		ratelimit.ActionRegistration: {Max: cfg.RegistrationRateLimit, Window: cfg.RegistrationRateWindow},
		ratelimit.ActionPairingCode:  {Max: cfg.PairingCodeRateLimit, Window: cfg.PairingCodeRateWindow},
		ratelimit.ActionPairing:      {Max: cfg.PairingRateLimit, Window: cfg.PairingRateWindow},
		ratelimit.ActionKeyExchange:  {Max: cfg.KeyExchangeRateLimit, Window: cfg.KeyExchangeRateWindow},
	}
}

// initializeLimiter builds the per-action limiter used by the services.
// Accepts an optional go-redis client
func initializeLimiter(
	cfg *config.Config,
	redisClient *redis.Client,
	clock core.Clock,
) (*ratelimit.Limiter, error) {
	rules := rateLimitRules(cfg)

	var store core.RateLimitStore
	switch {
	case !cfg.EnableRateLimit:
		bootLog().Info().Msg("Rate limiting disabled")
		store = ratelimit.NewMemoryStore(clock, cfg.RateLimitCleanupInterval)
	case cfg.RateLimitStore == config.RateLimitStoreRedis:
		if redisClient == nil {
			return nil, errors.New("redis rate limit store requires a redis client")
		}
		redisStore, err := ratelimit.NewRedisLimiterStore(redisClient, cfg.RateLimitCleanupInterval)
		if err != nil {
			return nil, err
		}
		store = redisStore
		bootLog().Info().Msg("Rate limiting enabled (store: redis)")
	default:
		store = ratelimit.NewMemoryStore(clock, cfg.RateLimitCleanupInterval)
		bootLog().Info().Msg("Rate limiting enabled (store: memory, single instance only)")
	}

	return ratelimit.New(store, clock, rules), nil
}

// initializeHTTPRateLimiter creates the per-IP throttle for the public API.
// It returns nil when rate limiting or the HTTP throttle is off.
func initializeHTTPRateLimiter(
	cfg *config.Config,
	redisClient *redis.Client,
	recorder core.Recorder,
) (gin.HandlerFunc, error) {
	if !cfg.EnableRateLimit || cfg.HTTPRateLimit == 0 {
		return nil, nil
	}

	limiter, err := middleware.NewRateLimiter(middleware.RateLimitConfig{
		RequestsPerMinute: cfg.HTTPRateLimit,
		CleanupInterval:   cfg.RateLimitCleanupInterval,
		StoreType:         cfg.RateLimitStore,
		RedisClient:       redisClient,
		Metrics:           recorder,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP rate limiter: %w", err)
	}

	bootLog().Info().
		Int("requests_per_minute", cfg.HTTPRateLimit).
		Str("store", cfg.RateLimitStore).
		Msg("HTTP rate limiting enabled")
	return limiter, nil
}
