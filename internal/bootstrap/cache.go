package bootstrap

import (
	"context"
	"fmt"

	"github.com/go-authgate/pairgate/internal/cache"
	"github.com/go-authgate/pairgate/internal/config"
	"github.com/go-authgate/pairgate/internal/core"
	"github.com/go-authgate/pairgate/internal/metrics"
	"github.com/go-authgate/pairgate/internal/models"
)

const (
	metricsCachePrefix = "pairgate:metrics:"
	deviceCachePrefix  = "pairgate:devices:"
)

// initializeMetrics initializes Prometheus metrics
func initializeMetrics(cfg *config.Config) core.Recorder {
	recorder := metrics.Init(cfg.MetricsEnabled)
	if cfg.MetricsEnabled {
		bootLog().Info().Msg("Prometheus metrics initialized")
	} else {
		bootLog().Info().Msg("Metrics disabled (using noop implementation)")
	}
	return recorder
}

// newCache builds a cache of the configured backend. Redis backends share
// REDIS_ADDR with the rate limiter but use their own rueidis connections.
func newCache[T any](
	ctx context.Context,
	cfg *config.Config,
	clock core.Clock,
	name, backend, prefix string,
) (core.Cache[T], func() error, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.RedisConnTimeout)
	defer cancel()

	switch backend {
	case config.CacheTypeRedisAside:
		c, err := cache.NewRueidisAsideCache[T](
			ctx,
			cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB,
			prefix,
			cfg.DeviceCacheClientTTL,
			cfg.DeviceCacheSizePerConn,
		)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize redis-aside %s cache: %w", name, err)
		}
		bootLog().Info().
			Str("cache", name).
			Str("addr", cfg.RedisAddr).
			Int("db", cfg.RedisDB).
			Dur("client_ttl", cfg.DeviceCacheClientTTL).
			Int("cache_size_per_conn_mb", cfg.DeviceCacheSizePerConn).
			Msg("Cache backend: redis-aside")
		return c, c.Close, nil

	case config.CacheTypeRedis:
		c, err := cache.NewRueidisCache[T](
			ctx,
			cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB,
			prefix,
		)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize redis %s cache: %w", name, err)
		}
		bootLog().Info().
			Str("cache", name).
			Str("addr", cfg.RedisAddr).
			Int("db", cfg.RedisDB).
			Msg("Cache backend: redis")
		return c, c.Close, nil

	default: // memory
		c := cache.NewMemoryCacheWithClock[T](clock)
		bootLog().Info().Str("cache", name).Msg("Cache backend: memory (single instance only)")
		return c, c.Close, nil
	}
}

// initializeMetricsCache initializes the gauge count cache. It returns nil
// when gauges are not refreshed.
func initializeMetricsCache(
	ctx context.Context,
	cfg *config.Config,
	clock core.Clock,
) (core.Cache[int64], func() error, error) {
	if !cfg.MetricsEnabled || !cfg.MetricsGaugeUpdateEnabled {
		return nil, nil, nil
	}
	return newCache[int64](ctx, cfg, clock, "metrics", cfg.MetricsCacheType, metricsCachePrefix)
}

// initializeDeviceCache initializes the device lookup cache (always enabled, defaults to memory)
func initializeDeviceCache(
	ctx context.Context,
	cfg *config.Config,
	clock core.Clock,
) (core.Cache[models.Device], func() error, error) {
	return newCache[models.Device](ctx, cfg, clock, "device", cfg.DeviceCacheType, deviceCachePrefix)
}
