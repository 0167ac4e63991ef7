package bootstrap

import (
	"github.com/go-authgate/pairgate/internal/config"
	"github.com/go-authgate/pairgate/internal/core"
	"github.com/go-authgate/pairgate/internal/handlers"
	"github.com/go-authgate/pairgate/internal/services"
)

// handlerSet holds all HTTP handlers and required services
type handlerSet struct {
	device        *handlers.DeviceHandler
	pairing       *handlers.PairingHandler
	trust         *handlers.TrustHandler
	keys          *handlers.KeyHandler
	audit         *handlers.AuditHandler
	deviceService *services.DeviceService
}

// initializeHandlers creates all HTTP handlers
func initializeHandlers(
	cfg *config.Config,
	deviceService *services.DeviceService,
	pairingService *services.PairingService,
	auditService *services.AuditService,
	recorder core.Recorder,
) handlerSet {
	return handlerSet{
		device: handlers.NewDeviceHandler(deviceService),
		pairing: handlers.NewPairingHandler(
			pairingService,
			deviceService,
			recorder,
			cfg.StatusStreamKeepalive,
		),
		trust:         handlers.NewTrustHandler(deviceService),
		keys:          handlers.NewKeyHandler(deviceService),
		audit:         handlers.NewAuditHandler(auditService),
		deviceService: deviceService,
	}
}
