package bootstrap

import (
	"context"
	"net/http"

	"github.com/go-authgate/pairgate/internal/broker"
	"github.com/go-authgate/pairgate/internal/config"
	"github.com/go-authgate/pairgate/internal/core"
	"github.com/go-authgate/pairgate/internal/logger"
	"github.com/go-authgate/pairgate/internal/models"
	"github.com/go-authgate/pairgate/internal/ratelimit"
	"github.com/go-authgate/pairgate/internal/services"
	"github.com/go-authgate/pairgate/internal/store"
	"github.com/go-authgate/pairgate/internal/util"

	"github.com/appleboy/graceful"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// bootLog is resolved per call so it picks up the logger configured in main.
func bootLog() *zerolog.Logger {
	return logger.WithComponent("bootstrap")
}

// Application holds all initialized components
type Application struct {
	Config *config.Config
	Clock  core.Clock

	// Core infrastructure
	DB                 *store.Store
	MetricsRecorder    core.Recorder
	MetricsCache       core.Cache[int64]
	MetricsCacheCloser func() error
	DeviceCache        core.Cache[models.Device]
	DeviceCacheCloser  func() error
	RedisClient        *redis.Client
	Limiter            *ratelimit.Limiter
	Broker             *broker.Broker

	// Services
	AuditService   *services.AuditService
	KeyService     *services.KeyService
	TrustService   *services.TrustService
	PairingService *services.PairingService
	DeviceService  *services.DeviceService

	// HTTP
	HandlerSet handlerSet
	Router     *gin.Engine
	Server     *http.Server
}

// Run initializes and starts the application
func Run(ctx context.Context, cfg *config.Config) error {
	app := &Application{
		Config: cfg,
		Clock:  util.RealClock{},
	}

	// Phase 1: Validate configuration
	if err := validateAllConfiguration(cfg); err != nil {
		return err
	}

	// Phase 2: Initialize infrastructure
	if err := app.initializeInfrastructure(ctx); err != nil {
		return err
	}

	// Phase 3: Initialize business layer
	if err := app.initializeBusinessLayer(); err != nil {
		return err
	}

	// Phase 4: Initialize HTTP layer
	if err := app.initializeHTTPLayer(); err != nil {
		return err
	}

	// Phase 5: Start server with graceful shutdown
	app.startWithGracefulShutdown()

	return nil
}

// initializeInfrastructure sets up database, metrics, caches, and Redis
func (app *Application) initializeInfrastructure(ctx context.Context) error {
	var err error

	// Database
	app.DB, err = initializeDatabase(ctx, app.Config)
	if err != nil {
		return err
	}

	// Metrics
	app.MetricsRecorder = initializeMetrics(app.Config)
	app.MetricsCache, app.MetricsCacheCloser, err = initializeMetricsCache(ctx, app.Config, app.Clock)
	if err != nil {
		return err
	}

	// Device cache
	app.DeviceCache, app.DeviceCacheCloser, err = initializeDeviceCache(ctx, app.Config, app.Clock)
	if err != nil {
		return err
	}

	// Redis (for rate limiting)
	app.RedisClient, err = initializeRateLimitRedisClient(ctx, app.Config)
	if err != nil {
		return err
	}

	app.Limiter, err = initializeLimiter(app.Config, app.RedisClient, app.Clock)
	if err != nil {
		return err
	}

	app.Broker = broker.New(app.Clock)
	return nil
}

// initializeBusinessLayer sets up services
func (app *Application) initializeBusinessLayer() error {
	// Audit service (required by other services)
	app.AuditService = services.NewAuditService(
		app.DB,
		app.Clock,
		app.Config.EnableAuditLogging,
		app.Config.AuditLogBufferSize,
	)

	s := initializeServices(app.Config, app.DB, serviceDeps{
		clock:       app.Clock,
		audit:       app.AuditService,
		metrics:     app.MetricsRecorder,
		limiter:     app.Limiter,
		broker:      app.Broker,
		deviceCache: app.DeviceCache,
	})
	app.KeyService = s.keys
	app.TrustService = s.trust
	app.PairingService = s.pairing
	app.DeviceService = s.devices
	return nil
}

// initializeHTTPLayer sets up handlers, router, and server
func (app *Application) initializeHTTPLayer() error {
	app.HandlerSet = initializeHandlers(
		app.Config,
		app.DeviceService,
		app.PairingService,
		app.AuditService,
		app.MetricsRecorder,
	)

	httpLimiter, err := initializeHTTPRateLimiter(app.Config, app.RedisClient, app.MetricsRecorder)
	if err != nil {
		return err
	}

	app.Router = setupRouter(
		app.Config,
		app.DB,
		app.HandlerSet,
		app.MetricsRecorder,
		httpLimiter,
	)

	app.Server = createHTTPServer(app.Config, app.Router)
	return nil
}

// startWithGracefulShutdown starts the server and handles graceful shutdown
func (app *Application) startWithGracefulShutdown() {
	m := graceful.NewManager()

	// Add jobs
	addServerRunningJob(m, app.Server)
	addServerShutdownJob(m, app.Server, app.Config.ServerShutdownTimeout)
	addPairingServiceShutdownJob(m, app.PairingService, app.Config.ServerShutdownTimeout)
	addRedisClientShutdownJob(m, app.RedisClient)
	addAuditServiceShutdownJob(m, app.AuditService, app.Config.AuditShutdownTimeout)
	addAuditLogCleanupJob(m, app.Config, app.AuditService)
	addPairingCodePruneJob(m, app.Config, app.PairingService)
	addSessionCleanupJob(m, app.DB, app.Clock)
	addMetricsGaugeUpdateJob(m, app.Config, app.DB, app.MetricsRecorder, app.MetricsCache, app.Clock)
	addCacheCleanupJob(m, "metrics", app.MetricsCacheCloser)
	addCacheCleanupJob(m, "device", app.DeviceCacheCloser)
	addDatabaseCloseJob(m, app.DB)

	// Wait for graceful shutdown
	<-m.Done()
}
