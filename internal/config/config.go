package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Rate limit store constants
const (
	RateLimitStoreMemory = "memory"
	RateLimitStoreRedis  = "redis"
)

// Cache backend constants, shared by the device and metrics caches
const (
	CacheTypeMemory     = "memory"
	CacheTypeRedis      = "redis"
	CacheTypeRedisAside = "redis-aside"
)

// Log format constants
const (
	LogFormatConsole = "console"
	LogFormatJSON    = "json"
)

// MinKeyDerivationIterations is the lowest PBKDF2 iteration count accepted.
const MinKeyDerivationIterations = 100000

type Config struct {
	// Server settings
	ServerAddr   string
	IsProduction bool

	// Logging
	LogLevel  string
	LogFormat string

	// Database
	DatabaseDriver string // "sqlite" or "postgres"
	DatabaseDSN    string // Database connection string (DSN or path)

	// Pairing code settings
	PairingCodeExpiration    time.Duration // default lifetime of a pairing code
	PairingCodeMaxExpiration time.Duration // upper bound for caller supplied lifetimes
	PairingStatusStepDelay   time.Duration // spacing between async status transitions
	PairingCodeRetention     time.Duration // how long used/expired codes are kept
	StatusStreamKeepalive    time.Duration // SSE/WebSocket keepalive interval

	// Device sessions
	SessionTokenExpiration time.Duration

	// Key derivation
	KeyDerivationIterations  int
	KeyDerivationConcurrency int

	// Rate limiting
	EnableRateLimit          bool
	RateLimitStore           string // "memory" or "redis"
	RegistrationRateLimit    int
	RegistrationRateWindow   time.Duration
	PairingCodeRateLimit     int
	PairingCodeRateWindow    time.Duration
	PairingRateLimit         int
	PairingRateWindow        time.Duration
	KeyExchangeRateLimit     int
	KeyExchangeRateWindow    time.Duration
	HTTPRateLimit            int // per-IP requests per minute on public routes
	RateLimitCleanupInterval time.Duration

	// Redis
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	RedisConnTimeout time.Duration

	// Device cache
	DeviceCacheType        string
	DeviceCacheTTL         time.Duration
	DeviceCacheClientTTL   time.Duration
	DeviceCacheSizePerConn int // MB, redis-aside only

	// Metrics
	MetricsEnabled             bool
	MetricsToken               string
	MetricsGaugeUpdateEnabled  bool
	MetricsGaugeUpdateInterval time.Duration
	MetricsCacheType           string // gauge count cache backend

	// Audit
	EnableAuditLogging bool
	AuditLogBufferSize int
	AuditLogRetention  time.Duration

	// Timeouts
	DBInitTimeout         time.Duration
	ServerShutdownTimeout time.Duration
	AuditShutdownTimeout  time.Duration
}

func Load() *Config {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	// Determine database driver and DSN
	driver := getEnv("DATABASE_DRIVER", "sqlite")
	var dsn string
	if driver == "sqlite" {
		dsn = getEnv("DATABASE_DSN", getEnv("DATABASE_PATH", "pairgate.db"))
	} else {
		dsn = getEnv("DATABASE_DSN", "")
	}

	isProduction := getEnv("ENVIRONMENT", "development") == "production"
	logFormat := LogFormatConsole
	if isProduction {
		logFormat = LogFormatJSON
	}

	return &Config{
		ServerAddr:   getEnv("SERVER_ADDR", ":8080"),
		IsProduction: isProduction,

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", logFormat),

		DatabaseDriver: driver,
		DatabaseDSN:    dsn,

		PairingCodeExpiration:    getEnvDuration("PAIRING_CODE_EXPIRATION", 10*time.Minute),
		PairingCodeMaxExpiration: getEnvDuration("PAIRING_CODE_MAX_EXPIRATION", time.Hour),
		PairingStatusStepDelay: getEnvDuration(
			"PAIRING_STATUS_STEP_DELAY",
			100*time.Millisecond,
		),
		PairingCodeRetention:  getEnvDuration("PAIRING_CODE_RETENTION", 24*time.Hour),
		StatusStreamKeepalive: getEnvDuration("STATUS_STREAM_KEEPALIVE", 15*time.Second),

		SessionTokenExpiration: getEnvDuration("SESSION_TOKEN_EXPIRATION", 24*time.Hour),

		KeyDerivationIterations: getEnvInt(
			"KEY_DERIVATION_ITERATIONS",
			MinKeyDerivationIterations,
		),
		KeyDerivationConcurrency: getEnvInt("KEY_DERIVATION_CONCURRENCY", 4),

		EnableRateLimit:          getEnvBool("ENABLE_RATE_LIMIT", true),
		RateLimitStore:           getEnv("RATE_LIMIT_STORE", RateLimitStoreMemory),
		RegistrationRateLimit:    getEnvInt("RATE_LIMIT_REGISTRATION", 5),
		RegistrationRateWindow:   getEnvDuration("RATE_LIMIT_REGISTRATION_WINDOW", time.Hour),
		PairingCodeRateLimit:     getEnvInt("RATE_LIMIT_PAIRING_CODE", 10),
		PairingCodeRateWindow:    getEnvDuration("RATE_LIMIT_PAIRING_CODE_WINDOW", time.Hour),
		PairingRateLimit:         getEnvInt("RATE_LIMIT_PAIRING", 3),
		PairingRateWindow:        getEnvDuration("RATE_LIMIT_PAIRING_WINDOW", time.Hour),
		KeyExchangeRateLimit:     getEnvInt("RATE_LIMIT_KEY_EXCHANGE", 5),
		KeyExchangeRateWindow:    getEnvDuration("RATE_LIMIT_KEY_EXCHANGE_WINDOW", time.Minute),
		HTTPRateLimit:            getEnvInt("HTTP_RATE_LIMIT", 120),
		RateLimitCleanupInterval: getEnvDuration("RATE_LIMIT_CLEANUP_INTERVAL", 5*time.Minute),

		RedisAddr:        getEnv("REDIS_ADDR", ""),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		RedisDB:          getEnvInt("REDIS_DB", 0),
		RedisConnTimeout: getEnvDuration("REDIS_CONN_TIMEOUT", 5*time.Second),

		DeviceCacheType:        getEnv("DEVICE_CACHE_TYPE", CacheTypeMemory),
		DeviceCacheTTL:         getEnvDuration("DEVICE_CACHE_TTL", 5*time.Minute),
		DeviceCacheClientTTL:   getEnvDuration("DEVICE_CACHE_CLIENT_TTL", 30*time.Second),
		DeviceCacheSizePerConn: getEnvInt("DEVICE_CACHE_SIZE_PER_CONN", 32),

		MetricsEnabled:             getEnvBool("METRICS_ENABLED", false),
		MetricsToken:               getEnv("METRICS_TOKEN", ""),
		MetricsGaugeUpdateEnabled:  getEnvBool("METRICS_GAUGE_UPDATE_ENABLED", true),
		MetricsGaugeUpdateInterval: getEnvDuration("METRICS_GAUGE_UPDATE_INTERVAL", 5*time.Minute),
		MetricsCacheType:           getEnv("METRICS_CACHE_TYPE", CacheTypeMemory),

		EnableAuditLogging: getEnvBool("ENABLE_AUDIT_LOGGING", true),
		AuditLogBufferSize: getEnvInt("AUDIT_LOG_BUFFER_SIZE", 1000),
		AuditLogRetention:  getEnvDuration("AUDIT_LOG_RETENTION", 90*24*time.Hour),

		DBInitTimeout:         getEnvDuration("DB_INIT_TIMEOUT", 30*time.Second),
		ServerShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 5*time.Second),
		AuditShutdownTimeout:  getEnvDuration("AUDIT_SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

// Validate checks the configuration for values that would break the server at runtime.
func (c *Config) Validate() error {
	switch c.RateLimitStore {
	case RateLimitStoreMemory:
	case RateLimitStoreRedis:
		if c.RedisAddr == "" {
			return errors.New(`RATE_LIMIT_STORE="redis" requires REDIS_ADDR`)
		}
	default:
		return fmt.Errorf(
			"invalid RATE_LIMIT_STORE value: %q (must be %q or %q)",
			c.RateLimitStore, RateLimitStoreMemory, RateLimitStoreRedis,
		)
	}

	if err := validateCacheType("DEVICE_CACHE_TYPE", c.DeviceCacheType, c.RedisAddr); err != nil {
		return err
	}
	if c.MetricsEnabled && c.MetricsGaugeUpdateEnabled {
		if err := validateCacheType("METRICS_CACHE_TYPE", c.MetricsCacheType, c.RedisAddr); err != nil {
			return err
		}
		if c.MetricsGaugeUpdateInterval <= 0 {
			return fmt.Errorf(
				"METRICS_GAUGE_UPDATE_INTERVAL must be positive, got %s",
				c.MetricsGaugeUpdateInterval,
			)
		}
	}
	if c.DeviceCacheTTL <= 0 {
		return fmt.Errorf("DEVICE_CACHE_TTL must be positive, got %s", c.DeviceCacheTTL)
	}

	if c.KeyDerivationIterations < MinKeyDerivationIterations {
		return fmt.Errorf(
			"KEY_DERIVATION_ITERATIONS must be at least %d, got %d",
			MinKeyDerivationIterations, c.KeyDerivationIterations,
		)
	}
	if c.KeyDerivationConcurrency < 1 {
		return fmt.Errorf(
			"KEY_DERIVATION_CONCURRENCY must be at least 1, got %d",
			c.KeyDerivationConcurrency,
		)
	}

	if c.PairingCodeExpiration <= 0 {
		return fmt.Errorf(
			"PAIRING_CODE_EXPIRATION must be positive, got %s",
			c.PairingCodeExpiration,
		)
	}
	if c.PairingCodeMaxExpiration < c.PairingCodeExpiration {
		return fmt.Errorf(
			"PAIRING_CODE_MAX_EXPIRATION (%s) must not be shorter than PAIRING_CODE_EXPIRATION (%s)",
			c.PairingCodeMaxExpiration, c.PairingCodeExpiration,
		)
	}
	if c.PairingStatusStepDelay < 0 || c.PairingStatusStepDelay > time.Second {
		return fmt.Errorf(
			"PAIRING_STATUS_STEP_DELAY must be between 0 and 1s, got %s",
			c.PairingStatusStepDelay,
		)
	}

	switch c.LogFormat {
	case LogFormatConsole, LogFormatJSON:
	default:
		return fmt.Errorf("invalid LOG_FORMAT value: %q", c.LogFormat)
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var i int
		if _, err := fmt.Sscanf(value, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(value)); err == nil {
			return d
		}
	}
	return defaultValue
}

func validateCacheType(name, value, redisAddr string) error {
	switch value {
	case CacheTypeMemory:
	case CacheTypeRedis, CacheTypeRedisAside:
		if redisAddr == "" {
			return fmt.Errorf("%s=%q requires REDIS_ADDR", name, value)
		}
	default:
		return fmt.Errorf(
			"invalid %s value: %q (must be %q, %q or %q)",
			name, value, CacheTypeMemory, CacheTypeRedis, CacheTypeRedisAside,
		)
	}
	return nil
}
