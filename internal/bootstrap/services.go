package bootstrap

import (
	"github.com/go-authgate/pairgate/internal/broker"
	"github.com/go-authgate/pairgate/internal/config"
	"github.com/go-authgate/pairgate/internal/core"
	"github.com/go-authgate/pairgate/internal/models"
	"github.com/go-authgate/pairgate/internal/ratelimit"
	"github.com/go-authgate/pairgate/internal/services"
	"github.com/go-authgate/pairgate/internal/store"
)

// serviceDeps carries the shared infrastructure handed to every service.
type serviceDeps struct {
	clock       core.Clock
	audit       *services.AuditService
	metrics     core.Recorder
	limiter     *ratelimit.Limiter
	broker      *broker.Broker
	deviceCache core.Cache[models.Device]
}

type serviceSet struct {
	keys    *services.KeyService
	trust   *services.TrustService
	pairing *services.PairingService
	devices *services.DeviceService
}

// initializeServices creates all business logic services
func initializeServices(cfg *config.Config, db *store.Store, deps serviceDeps) serviceSet {
	keys := services.NewKeyService(
		cfg.KeyDerivationIterations,
		cfg.KeyDerivationConcurrency,
		deps.metrics,
	)
	trust := services.NewTrustService(db, deps.audit, deps.metrics, deps.clock)
	pairing := services.NewPairingService(
		db,
		cfg,
		keys,
		deps.broker,
		deps.limiter,
		deps.audit,
		deps.metrics,
		deps.clock,
	)
	devices := services.NewDeviceService(
		db,
		cfg,
		keys,
		pairing,
		trust,
		deps.limiter,
		deps.deviceCache,
		deps.audit,
		deps.metrics,
		deps.clock,
	)

	return serviceSet{
		keys:    keys,
		trust:   trust,
		pairing: pairing,
		devices: devices,
	}
}
