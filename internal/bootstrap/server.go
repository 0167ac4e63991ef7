package bootstrap

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-authgate/pairgate/internal/config"
	"github.com/go-authgate/pairgate/internal/core"
	"github.com/go-authgate/pairgate/internal/metrics"
	"github.com/go-authgate/pairgate/internal/services"
	"github.com/go-authgate/pairgate/internal/store"

	"github.com/appleboy/graceful"
	"github.com/redis/go-redis/v9"
)

const (
	auditCleanupInterval   = 24 * time.Hour
	pairingPruneInterval   = time.Hour
	sessionCleanupInterval = time.Hour
)

// createHTTPServer creates the HTTP server instance. WriteTimeout stays
// unset so status streams are not cut off mid-sequence.
func createHTTPServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

// addServerRunningJob adds the HTTP server running job
func addServerRunningJob(m *graceful.Manager, srv *http.Server) {
	m.AddRunningJob(func(ctx context.Context) error {
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				bootLog().Fatal().Err(err).Msg("Failed to start server")
			}
		}()
		<-ctx.Done()
		return nil
	})
}

// addServerShutdownJob adds HTTP server shutdown handler
func addServerShutdownJob(m *graceful.Manager, srv *http.Server, timeout time.Duration) {
	m.AddShutdownJob(func() error {
		bootLog().Info().Msg("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			bootLog().Error().Err(err).Msg("Server forced to shutdown")
			return err
		}

		bootLog().Info().Msg("Server exited")
		return nil
	})
}

// addPairingServiceShutdownJob stops in-flight async status sequences.
func addPairingServiceShutdownJob(
	m *graceful.Manager,
	pairingService *services.PairingService,
	timeout time.Duration,
) {
	m.AddShutdownJob(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := pairingService.Shutdown(ctx); err != nil {
			bootLog().Error().Err(err).Msg("Error shutting down pairing service")
			return err
		}
		return nil
	})
}

// addRedisClientShutdownJob adds Redis client shutdown handler
func addRedisClientShutdownJob(m *graceful.Manager, redisClient *redis.Client) {
	if redisClient == nil {
		return
	}

	m.AddShutdownJob(func() error {
		bootLog().Info().Msg("Closing Redis connection...")
		if err := redisClient.Close(); err != nil {
			bootLog().Error().Err(err).Msg("Error closing Redis client")
			return err
		}
		bootLog().Info().Msg("Redis connection closed")
		return nil
	})
}

// addAuditServiceShutdownJob adds audit service shutdown handler
func addAuditServiceShutdownJob(
	m *graceful.Manager,
	auditService *services.AuditService,
	timeout time.Duration,
) {
	m.AddShutdownJob(func() error {
		bootLog().Info().Msg("Shutting down audit service...")
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := auditService.Shutdown(ctx); err != nil {
			bootLog().Error().Err(err).Msg("Error shutting down audit service")
			return err
		}
		return nil
	})
}

// addPeriodicJob runs fn once on startup and then on every tick until shutdown.
func addPeriodicJob(
	m *graceful.Manager,
	interval time.Duration,
	fn func(ctx context.Context),
) {
	m.AddRunningJob(func(ctx context.Context) error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		fn(ctx)
		for {
			select {
			case <-ticker.C:
				fn(ctx)
			case <-ctx.Done():
				return nil
			}
		}
	})
}

// addAuditLogCleanupJob adds periodic audit log cleanup job
func addAuditLogCleanupJob(
	m *graceful.Manager,
	cfg *config.Config,
	auditService *services.AuditService,
) {
	if !cfg.EnableAuditLogging || cfg.AuditLogRetention <= 0 {
		return
	}

	addPeriodicJob(m, auditCleanupInterval, func(ctx context.Context) {
		if deleted, err := auditService.CleanupOldLogs(cfg.AuditLogRetention); err != nil {
			bootLog().Error().Err(err).Msg("Failed to cleanup old audit logs")
		} else if deleted > 0 {
			bootLog().Info().Int64("deleted", deleted).Msg("Cleaned up old audit logs")
		}
	})
}

// addPairingCodePruneJob deletes used and expired pairing codes past retention.
func addPairingCodePruneJob(
	m *graceful.Manager,
	cfg *config.Config,
	pairingService *services.PairingService,
) {
	if cfg.PairingCodeRetention <= 0 {
		return
	}

	addPeriodicJob(m, pairingPruneInterval, func(ctx context.Context) {
		if pruned, err := pairingService.PruneExpired(ctx); err != nil {
			bootLog().Error().Err(err).Msg("Failed to prune pairing codes")
		} else if pruned > 0 {
			bootLog().Info().Int("pruned", pruned).Msg("Pruned stale pairing codes")
		}
	})
}

// addSessionCleanupJob removes expired device sessions.
func addSessionCleanupJob(m *graceful.Manager, db *store.Store, clock core.Clock) {
	addPeriodicJob(m, sessionCleanupInterval, func(ctx context.Context) {
		if deleted, err := db.DeleteExpiredSessions(ctx, clock.Now()); err != nil {
			bootLog().Error().Err(err).Msg("Failed to cleanup expired sessions")
		} else if deleted > 0 {
			bootLog().Info().Int64("deleted", deleted).Msg("Cleaned up expired sessions")
		}
	})
}

// addMetricsGaugeUpdateJob adds periodic metrics gauge update job. The count
// cache TTL matches the update interval so instances share one query per tick.
func addMetricsGaugeUpdateJob(
	m *graceful.Manager,
	cfg *config.Config,
	db *store.Store,
	recorder core.Recorder,
	metricsCache core.Cache[int64],
	clock core.Clock,
) {
	if !cfg.MetricsEnabled || !cfg.MetricsGaugeUpdateEnabled || metricsCache == nil {
		return
	}

	cacheWrapper := metrics.NewCacheWrapper(db, metricsCache, clock)
	addPeriodicJob(m, cfg.MetricsGaugeUpdateInterval, func(ctx context.Context) {
		cacheWrapper.UpdateGauges(ctx, recorder, cfg.MetricsGaugeUpdateInterval)
	})
}

// addCacheCleanupJob adds cache cleanup on shutdown
func addCacheCleanupJob(m *graceful.Manager, name string, closer func() error) {
	if closer == nil {
		return
	}

	m.AddShutdownJob(func() error {
		if err := closer(); err != nil {
			bootLog().Error().Err(err).Str("cache", name).Msg("Error closing cache")
		} else {
			bootLog().Info().Str("cache", name).Msg("Cache closed")
		}
		return nil
	})
}

// addDatabaseCloseJob closes the connection pool on shutdown.
func addDatabaseCloseJob(m *graceful.Manager, db *store.Store) {
	m.AddShutdownJob(func() error {
		if err := db.Close(); err != nil {
			bootLog().Error().Err(err).Msg("Error closing database")
			return err
		}
		bootLog().Info().Msg("Database connection closed")
		return nil
	})
}
