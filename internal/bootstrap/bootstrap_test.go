package bootstrap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-authgate/pairgate/internal/broker"
	"github.com/go-authgate/pairgate/internal/cache"
	"github.com/go-authgate/pairgate/internal/config"
	"github.com/go-authgate/pairgate/internal/metrics"
	"github.com/go-authgate/pairgate/internal/models"
	"github.com/go-authgate/pairgate/internal/ratelimit"
	"github.com/go-authgate/pairgate/internal/services"
	"github.com/go-authgate/pairgate/internal/store"
	"github.com/go-authgate/pairgate/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rateLimitedConfig() *config.Config {
	return &config.Config{
		EnableRateLimit:          true,
		RateLimitStore:           config.RateLimitStoreMemory,
		RegistrationRateLimit:    1,
		RegistrationRateWindow:   time.Hour,
		PairingCodeRateLimit:     10,
		PairingCodeRateWindow:    time.Hour,
		PairingRateLimit:         3,
		PairingRateWindow:        time.Hour,
		KeyExchangeRateLimit:     5,
		KeyExchangeRateWindow:    time.Minute,
		HTTPRateLimit:            120,
		RateLimitCleanupInterval: time.Minute,
	}
}

func TestValidateRateLimitConfig(t *testing.T) {
	assert.NoError(t, validateRateLimitConfig(&config.Config{EnableRateLimit: false}))
	assert.NoError(t, validateRateLimitConfig(rateLimitedConfig()))

	tests := []struct {
		name     string
		mutate   func(c *config.Config)
		errorMsg string
	}{
		{
			name:     "zero registration limit",
			mutate:   func(c *config.Config) { c.RegistrationRateLimit = 0 },
			errorMsg: "RATE_LIMIT_REGISTRATION must be at least 1",
		},
		{
			name:     "zero pairing window",
			mutate:   func(c *config.Config) { c.PairingRateWindow = 0 },
			errorMsg: "RATE_LIMIT_PAIRING_WINDOW must be positive",
		},
		{
			name:     "negative http limit",
			mutate:   func(c *config.Config) { c.HTTPRateLimit = -1 },
			errorMsg: "HTTP_RATE_LIMIT must not be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := rateLimitedConfig()
			tt.mutate(cfg)
			err := validateRateLimitConfig(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorMsg)
		})
	}
}

func TestValidateAllConfiguration(t *testing.T) {
	err := validateAllConfiguration(&config.Config{RateLimitStore: "bogus"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestInitializeMetrics(t *testing.T) {
	for _, enabled := range []bool{true, false} {
		cfg := &config.Config{MetricsEnabled: enabled}
		m := initializeMetrics(cfg)
		require.NotNil(t, m)
	}
}

func TestInitializeMetricsCacheDisabled(t *testing.T) {
	ctx := context.Background()
	clock := util.RealClock{}

	// Metrics disabled - no cache
	c, closer, err := initializeMetricsCache(
		ctx,
		&config.Config{MetricsEnabled: false, MetricsGaugeUpdateEnabled: true},
		clock,
	)
	require.NoError(t, err)
	assert.Nil(t, c)
	assert.Nil(t, closer)

	// Gauge updates disabled - no cache
	c, closer, err = initializeMetricsCache(
		ctx,
		&config.Config{MetricsEnabled: true, MetricsGaugeUpdateEnabled: false},
		clock,
	)
	require.NoError(t, err)
	assert.Nil(t, c)
	assert.Nil(t, closer)
}

func TestInitializeMetricsCacheMemory(t *testing.T) {
	c, closer, err := initializeMetricsCache(context.Background(), &config.Config{
		MetricsEnabled:            true,
		MetricsGaugeUpdateEnabled: true,
		MetricsCacheType:          config.CacheTypeMemory,
		RedisConnTimeout:          time.Second,
	}, util.RealClock{})
	require.NoError(t, err)
	require.NotNil(t, c)
	require.NotNil(t, closer)
	assert.NoError(t, closer())
}

func TestInitializeDeviceCacheMemory(t *testing.T) {
	clock := util.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	c, closer, err := initializeDeviceCache(context.Background(), &config.Config{
		DeviceCacheType:  config.CacheTypeMemory,
		RedisConnTimeout: time.Second,
	}, clock)
	require.NoError(t, err)
	t.Cleanup(func() { _ = closer() })

	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "laptop-1", models.Device{ID: "laptop-1"}, time.Minute))
	got, err := c.Get(ctx, "laptop-1")
	require.NoError(t, err)
	assert.Equal(t, "laptop-1", got.ID)

	// The memory backend follows the injected clock.
	clock.Advance(2 * time.Minute)
	_, err = c.Get(ctx, "laptop-1")
	assert.ErrorIs(t, err, cache.ErrCacheMiss)
}

func TestRateLimitRules(t *testing.T) {
	assert.Empty(t, rateLimitRules(&config.Config{EnableRateLimit: false}))

	rules := rateLimitRules(rateLimitedConfig())
	require.Len(t, rules, 4)
	assert.Equal(t, ratelimit.Rule{Max: 1, Window: time.Hour}, rules[ratelimit.ActionRegistration])
	assert.Equal(t, ratelimit.Rule{Max: 5, Window: time.Minute}, rules[ratelimit.ActionKeyExchange])
}

func TestInitializeLimiterMemory(t *testing.T) {
	clock := util.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	limiter, err := initializeLimiter(rateLimitedConfig(), nil, clock)
	require.NoError(t, err)

	ctx := context.Background()
	d, err := limiter.Check(ctx, "203.0.113.7", ratelimit.ActionRegistration)
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	d, err = limiter.Check(ctx, "203.0.113.7", ratelimit.ActionRegistration)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
}

func TestInitializeLimiterDisabled(t *testing.T) {
	clock := util.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	limiter, err := initializeLimiter(&config.Config{EnableRateLimit: false}, nil, clock)
	require.NoError(t, err)

	for range 10 {
		d, err := limiter.Check(context.Background(), "203.0.113.7", ratelimit.ActionRegistration)
		require.NoError(t, err)
		assert.True(t, d.Allowed)
	}
}

func TestInitializeLimiterRedisWithoutClient(t *testing.T) {
	cfg := rateLimitedConfig()
	cfg.RateLimitStore = config.RateLimitStoreRedis
	_, err := initializeLimiter(cfg, nil, util.RealClock{})
	require.Error(t, err)
}

func TestInitializeHTTPRateLimiter(t *testing.T) {
	recorder := metrics.NewNoopMetrics()

	h, err := initializeHTTPRateLimiter(&config.Config{EnableRateLimit: false}, nil, recorder)
	require.NoError(t, err)
	assert.Nil(t, h)

	cfg := rateLimitedConfig()
	cfg.HTTPRateLimit = 0
	h, err = initializeHTTPRateLimiter(cfg, nil, recorder)
	require.NoError(t, err)
	assert.Nil(t, h)

	h, err = initializeHTTPRateLimiter(rateLimitedConfig(), nil, recorder)
	require.NoError(t, err)
	assert.NotNil(t, h)
}

func TestCreateHTTPServer(t *testing.T) {
	srv := createHTTPServer(
		&config.Config{ServerAddr: ":8080"},
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}),
	)
	require.NotNil(t, srv)
	assert.Equal(t, ":8080", srv.Addr)
	assert.Zero(t, srv.WriteTimeout)
}

func TestGinModeMap(t *testing.T) {
	assert.Equal(t, gin.ReleaseMode, ginModeMap[true])
	assert.Equal(t, gin.DebugMode, ginModeMap[false])
}

func TestSetupRouter(t *testing.T) {
	ctx := context.Background()
	db, err := store.New(ctx, "sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cfg := &config.Config{
		IsProduction:             true,
		PairingCodeExpiration:    10 * time.Minute,
		PairingCodeMaxExpiration: time.Hour,
		SessionTokenExpiration:   time.Hour,
		KeyDerivationIterations:  config.MinKeyDerivationIterations,
		KeyDerivationConcurrency: 1,
		DeviceCacheTTL:           time.Minute,
		StatusStreamKeepalive:    time.Second,
	}
	clock := util.RealClock{}
	recorder := metrics.NewNoopMetrics()
	audit := services.NewAuditService(db, clock, false, 10)
	limiter, err := initializeLimiter(cfg, nil, clock)
	require.NoError(t, err)

	s := initializeServices(cfg, db, serviceDeps{
		clock:       clock,
		audit:       audit,
		metrics:     recorder,
		limiter:     limiter,
		broker:      broker.New(clock),
		deviceCache: cache.NewMemoryCache[models.Device](),
	})
	t.Cleanup(func() { _ = s.pairing.Shutdown(ctx) })

	h := initializeHandlers(cfg, s.devices, s.pairing, audit, recorder)
	r := setupRouter(cfg, db, h, recorder, nil)

	tests := []struct {
		name   string
		method string
		path   string
		status int
	}{
		{"health", http.MethodGet, "/health", http.StatusOK},
		{"metrics disabled", http.MethodGet, "/metrics", http.StatusNotFound},
		{"session required", http.MethodGet, "/api/v1/devices/me", http.StatusUnauthorized},
		{"unknown status code", http.MethodGet, "/api/v1/pairing/status/nope", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}
