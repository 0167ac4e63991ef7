package bootstrap

import (
	"context"
	"net/http"
	"time"

	"github.com/go-authgate/pairgate/internal/config"
	"github.com/go-authgate/pairgate/internal/core"
	"github.com/go-authgate/pairgate/internal/metrics"
	"github.com/go-authgate/pairgate/internal/middleware"
	"github.com/go-authgate/pairgate/internal/store"
	"github.com/go-authgate/pairgate/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const healthCheckTimeout = 2 * time.Second

// setupRouter configures the Gin router with all routes and middleware.
// httpLimiter may be nil.
func setupRouter(
	cfg *config.Config,
	db *store.Store,
	h handlerSet,
	recorder core.Recorder,
	httpLimiter gin.HandlerFunc,
) *gin.Engine {
	// Setup Gin mode
	setupGinMode(cfg)
	r := gin.New()

	// Setup middleware
	r.Use(metrics.HTTPMetricsMiddleware(recorder))
	r.Use(middleware.RequestLogger(), gin.Recovery())
	r.Use(util.IPMiddleware())

	// Health check endpoint
	r.GET("/health", createHealthCheckHandler(db))

	// Setup metrics endpoint
	setupMetricsEndpoint(r, cfg)

	// Setup all routes
	setupAllRoutes(r, h, httpLimiter)

	// Log server startup info
	logServerStartup(cfg)

	return r
}

// setupMetricsEndpoint configures the Prometheus metrics endpoint
func setupMetricsEndpoint(r *gin.Engine, cfg *config.Config) {
	switch {
	case !cfg.MetricsEnabled:
		bootLog().Info().Msg("Prometheus metrics disabled")
	case cfg.MetricsToken != "":
		bootLog().Info().Msg("Prometheus metrics enabled at /metrics with Bearer token authentication")
		r.GET(
			"/metrics",
			middleware.MetricsAuthMiddleware(cfg.MetricsToken),
			gin.WrapH(promhttp.Handler()),
		)
	default:
		bootLog().Warn().Msg("Prometheus metrics enabled at /metrics (no authentication)")
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
}

// setupAllRoutes configures all application routes
func setupAllRoutes(r *gin.Engine, h handlerSet, httpLimiter gin.HandlerFunc) {
	api := r.Group("/api/v1")
	if httpLimiter != nil {
		api.Use(httpLimiter)
	}

	// Public routes
	api.POST("/devices/register", h.device.Register)
	api.GET("/pairing/status/:code", h.pairing.Status)
	api.GET("/pairing/status/:code/stream", h.pairing.StreamSSE)
	api.GET("/pairing/status/:code/ws", h.pairing.StreamWebSocket)

	// Device routes (require a session token)
	authed := api.Group("")
	authed.Use(middleware.RequireDevice(h.deviceService))
	{
		authed.GET("/devices/me", h.device.Me)
		authed.PUT("/devices/me", h.device.Update)
		authed.DELETE("/devices/me", h.device.Deactivate)
		authed.POST("/devices/heartbeat", h.device.Heartbeat)

		authed.POST("/pairing/code", h.pairing.GenerateCode)
		authed.POST("/pairing-codes", h.pairing.GenerateLegacyCode)
		authed.POST("/pairing/retry/:code", h.pairing.Retry)
		authed.POST("/pairing/pair", h.pairing.Pair)

		authed.GET("/trust", h.trust.List)
		authed.DELETE("/trust/:device_id", h.trust.Revoke)

		authed.POST("/keys/derive", h.keys.Derive)
		authed.GET("/keys", h.keys.List)

		authed.GET("/audit", h.audit.List)
		authed.GET("/audit/export", h.audit.Export)
	}
}

// createHealthCheckHandler creates health check endpoint handler
func createHealthCheckHandler(db *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
		defer cancel()

		switch err := db.Health(ctx); err {
		case nil:
			c.JSON(http.StatusOK, gin.H{
				"status":   "healthy",
				"database": "connected",
			})
		default:
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "disconnected",
			})
		}
	}
}

// setupGinMode sets Gin mode based on environment configuration
func setupGinMode(cfg *config.Config) {
	mode := ginModeMap[cfg.IsProduction]
	gin.SetMode(mode)
	bootLog().Info().Str("mode", ginModeLogMessage[cfg.IsProduction]).Msg("Gin mode")
}

var ginModeMap = map[bool]string{
	true:  gin.ReleaseMode,
	false: gin.DebugMode,
}

var ginModeLogMessage = map[bool]string{
	true:  "Release (production)",
	false: "Debug (development)",
}

// logServerStartup logs server startup information
func logServerStartup(cfg *config.Config) {
	bootLog().Info().
		Str("addr", cfg.ServerAddr).
		Str("database", cfg.DatabaseDriver).
		Dur("pairing_code_expiration", cfg.PairingCodeExpiration).
		Bool("rate_limit", cfg.EnableRateLimit).
		Bool("audit", cfg.EnableAuditLogging).
		Msg("PairGate server starting")
}
