package services

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/go-authgate/pairgate/internal/broker"
	"github.com/go-authgate/pairgate/internal/cache"
	"github.com/go-authgate/pairgate/internal/config"
	"github.com/go-authgate/pairgate/internal/metrics"
	"github.com/go-authgate/pairgate/internal/models"
	"github.com/go-authgate/pairgate/internal/ratelimit"
	"github.com/go-authgate/pairgate/internal/store"
	"github.com/go-authgate/pairgate/internal/util"

	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

const testPublicKey = `-----BEGIN PUBLIC KEY-----
MFkwEwYHKoZIzj0CAQYIKoZIzj0DAQcDQgAEvqYDR6/KotttfdRE2Zz+SE0j0AYB
SUAhP7FD/aDpZheeA2qQaPyHlUcTJM/Xm7Rmif/2k2xLzbfX2QinSll0hQ==
-----END PUBLIC KEY-----`

const testIterations = config.MinKeyDerivationIterations

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(context.Background(), "sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testConfig() *config.Config {
	return &config.Config{
		PairingCodeExpiration:    10 * time.Minute,
		PairingCodeMaxExpiration: time.Hour,
		PairingStatusStepDelay:   0,
		PairingCodeRetention:     24 * time.Hour,
		SessionTokenExpiration:   24 * time.Hour,
		KeyDerivationIterations:  testIterations,
		DeviceCacheTTL:           5 * time.Minute,
	}
}

type testEnv struct {
	store   *store.Store
	clock   *util.FakeClock
	broker  *broker.Broker
	keys    *KeyService
	trust   *TrustService
	pairing *PairingService
	devices *DeviceService
	audit   *AuditService
}

// newTestEnv wires the services against an in-memory database. A nil rules
// map disables rate limiting.
func newTestEnv(
	t *testing.T,
	rules map[string]ratelimit.Rule,
	opts ...func(*config.Config),
) *testEnv {
	t.Helper()

	s := setupTestStore(t)
	clock := util.NewFakeClock(epoch)
	cfg := testConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	m := metrics.NewNoopMetrics()

	auditService := NewAuditService(s, clock, false, 10)
	limiter := ratelimit.New(ratelimit.NewMemoryStore(clock, time.Minute), clock, rules)
	b := broker.New(clock)
	keys := NewKeyService(cfg.KeyDerivationIterations, 2, m)
	trust := NewTrustService(s, auditService, m, clock)
	pairing := NewPairingService(s, cfg, keys, b, limiter, auditService, m, clock)
	devices := NewDeviceService(
		s, cfg, keys, pairing, trust, limiter,
		cache.NewMemoryCacheWithClock[models.Device](clock),
		auditService, m, clock,
	)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = pairing.Shutdown(ctx)
	})

	return &testEnv{
		store:   s,
		clock:   clock,
		broker:  b,
		keys:    keys,
		trust:   trust,
		pairing: pairing,
		devices: devices,
		audit:   auditService,
	}
}

func withStepDelay(d time.Duration) func(*config.Config) {
	return func(cfg *config.Config) { cfg.PairingStatusStepDelay = d }
}

// drain reads sub until io.EOF.
func drain(t *testing.T, sub *broker.Subscription) []models.StatusEvent {
	t.Helper()
	var events []models.StatusEvent
	for {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		ev, err := sub.Next(ctx)
		cancel()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				t.Errorf("unexpected error: %v", err)
			}
			return events
		}
		events = append(events, ev)
	}
}

func registerRequest(id, userAgent string) RegisterRequest {
	return RegisterRequest{
		DeviceID:         id,
		UserAgent:        userAgent,
		ScreenResolution: "1920x1080",
		Timezone:         "Europe/Berlin",
		PublicKey:        testPublicKey,
	}
}

func (e *testEnv) register(t *testing.T, id string) *RegisterResult {
	t.Helper()
	res, err := e.devices.Register(context.Background(), registerRequest(id, "agent/"+id))
	require.NoError(t, err)
	return res
}
