package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validConfig returns a config that passes Validate; cases mutate one field.
func validConfig() *Config {
	return &Config{
		RateLimitStore:           RateLimitStoreMemory,
		DeviceCacheType:          CacheTypeMemory,
		DeviceCacheTTL:           5 * time.Minute,
		KeyDerivationIterations:  MinKeyDerivationIterations,
		KeyDerivationConcurrency: 4,
		PairingCodeExpiration:    10 * time.Minute,
		PairingCodeMaxExpiration: time.Hour,
		PairingStatusStepDelay:   100 * time.Millisecond,
		LogFormat:                LogFormatConsole,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		expectError bool
		errorMsg    string
	}{
		{
			name:   "valid memory store",
			mutate: func(c *Config) {},
		},
		{
			name: "valid redis store",
			mutate: func(c *Config) {
				c.RateLimitStore = RateLimitStoreRedis
				c.RedisAddr = "localhost:6379"
			},
		},
		{
			name:        "redis store without address",
			mutate:      func(c *Config) { c.RateLimitStore = RateLimitStoreRedis },
			expectError: true,
			errorMsg:    `RATE_LIMIT_STORE="redis" requires REDIS_ADDR`,
		},
		{
			name:        "invalid store - typo",
			mutate:      func(c *Config) { c.RateLimitStore = "reddis" },
			expectError: true,
			errorMsg:    `invalid RATE_LIMIT_STORE value: "reddis"`,
		},
		{
			name:        "invalid store - empty string",
			mutate:      func(c *Config) { c.RateLimitStore = "" },
			expectError: true,
			errorMsg:    `invalid RATE_LIMIT_STORE value: ""`,
		},
		{
			name:        "invalid store - uppercase",
			mutate:      func(c *Config) { c.RateLimitStore = "MEMORY" },
			expectError: true,
			errorMsg:    `invalid RATE_LIMIT_STORE value: "MEMORY"`,
		},
		{
			name: "valid redis-aside device cache",
			mutate: func(c *Config) {
				c.DeviceCacheType = CacheTypeRedisAside
				c.RedisAddr = "localhost:6379"
			},
		},
		{
			name:        "redis device cache without address",
			mutate:      func(c *Config) { c.DeviceCacheType = CacheTypeRedis },
			expectError: true,
			errorMsg:    `DEVICE_CACHE_TYPE="redis" requires REDIS_ADDR`,
		},
		{
			name:        "invalid device cache type",
			mutate:      func(c *Config) { c.DeviceCacheType = "memcached" },
			expectError: true,
			errorMsg:    `invalid DEVICE_CACHE_TYPE value: "memcached"`,
		},
		{
			name:        "zero device cache ttl",
			mutate:      func(c *Config) { c.DeviceCacheTTL = 0 },
			expectError: true,
			errorMsg:    "DEVICE_CACHE_TTL must be positive",
		},
		{
			name: "metrics cache ignored while gauges are off",
			mutate: func(c *Config) {
				c.MetricsEnabled = true
				c.MetricsCacheType = "bogus"
			},
		},
		{
			name: "redis metrics cache without address",
			mutate: func(c *Config) {
				c.MetricsEnabled = true
				c.MetricsGaugeUpdateEnabled = true
				c.MetricsGaugeUpdateInterval = time.Minute
				c.MetricsCacheType = CacheTypeRedis
			},
			expectError: true,
			errorMsg:    `METRICS_CACHE_TYPE="redis" requires REDIS_ADDR`,
		},
		{
			name: "zero gauge interval",
			mutate: func(c *Config) {
				c.MetricsEnabled = true
				c.MetricsGaugeUpdateEnabled = true
				c.MetricsCacheType = CacheTypeMemory
			},
			expectError: true,
			errorMsg:    "METRICS_GAUGE_UPDATE_INTERVAL must be positive",
		},
		{
			name:        "too few iterations",
			mutate:      func(c *Config) { c.KeyDerivationIterations = 1000 },
			expectError: true,
			errorMsg:    "KEY_DERIVATION_ITERATIONS must be at least 100000, got 1000",
		},
		{
			name:        "zero derivation concurrency",
			mutate:      func(c *Config) { c.KeyDerivationConcurrency = 0 },
			expectError: true,
			errorMsg:    "KEY_DERIVATION_CONCURRENCY must be at least 1",
		},
		{
			name:        "negative pairing code expiration",
			mutate:      func(c *Config) { c.PairingCodeExpiration = -time.Minute },
			expectError: true,
			errorMsg:    "PAIRING_CODE_EXPIRATION must be positive",
		},
		{
			name:        "max expiration below default",
			mutate:      func(c *Config) { c.PairingCodeMaxExpiration = time.Minute },
			expectError: true,
			errorMsg:    "PAIRING_CODE_MAX_EXPIRATION (1m0s) must not be shorter",
		},
		{
			name:        "step delay too long",
			mutate:      func(c *Config) { c.PairingStatusStepDelay = 5 * time.Second },
			expectError: true,
			errorMsg:    "PAIRING_STATUS_STEP_DELAY must be between 0 and 1s",
		},
		{
			name:   "zero step delay",
			mutate: func(c *Config) { c.PairingStatusStepDelay = 0 },
		},
		{
			name:        "invalid log format",
			mutate:      func(c *Config) { c.LogFormat = "xml" },
			expectError: true,
			errorMsg:    `invalid LOG_FORMAT value: "xml"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()

			if tt.expectError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMsg)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestRateLimitStoreConstants(t *testing.T) {
	assert.Equal(t, "memory", RateLimitStoreMemory)
	assert.Equal(t, "redis", RateLimitStoreRedis)
}

func TestLoad_DefaultsAreValid(t *testing.T) {
	cfg := Load()
	require.NoError(t, cfg.Validate())
}
