package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-authgate/pairgate/internal/broker"
	"github.com/go-authgate/pairgate/internal/cache"
	"github.com/go-authgate/pairgate/internal/config"
	"github.com/go-authgate/pairgate/internal/metrics"
	"github.com/go-authgate/pairgate/internal/middleware"
	"github.com/go-authgate/pairgate/internal/models"
	"github.com/go-authgate/pairgate/internal/ratelimit"
	"github.com/go-authgate/pairgate/internal/services"
	"github.com/go-authgate/pairgate/internal/store"
	"github.com/go-authgate/pairgate/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

const testPublicKey = `-----BEGIN PUBLIC KEY-----
MFkwEwYHKoZIzj0CAQYIKoZIzj0DAQcDQgAEvqYDR6/KotttfdRE2Zz+SE0j0AYB
SUAhP7FD/aDpZheeA2qQaPyHlUcTJM/Xm7Rmif/2k2xLzbfX2QinSll0hQ==
-----END PUBLIC KEY-----`

type testServer struct {
	router  *gin.Engine
	clock   *util.FakeClock
	pairing *services.PairingService
	audit   *services.AuditService
}

// newTestServer wires real services on an in-memory database behind the
// API routes. A nil rules map disables the per-action limits.
func newTestServer(t *testing.T, rules map[string]ratelimit.Rule) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s, err := store.New(context.Background(), "sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	clock := util.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	cfg := &config.Config{
		PairingCodeExpiration:    10 * time.Minute,
		PairingCodeMaxExpiration: time.Hour,
		PairingCodeRetention:     24 * time.Hour,
		SessionTokenExpiration:   24 * time.Hour,
		KeyDerivationIterations:  config.MinKeyDerivationIterations,
		DeviceCacheTTL:           time.Minute,
	}
	m := metrics.NewNoopMetrics()

	auditService := services.NewAuditService(s, clock, true, 100)
	limiter := ratelimit.New(ratelimit.NewMemoryStore(clock, time.Minute), clock, rules)
	keys := services.NewKeyService(cfg.KeyDerivationIterations, 2, m)
	trust := services.NewTrustService(s, auditService, m, clock)
	pairing := services.NewPairingService(s, cfg, keys, broker.New(clock), limiter, auditService, m, clock)
	devices := services.NewDeviceService(
		s, cfg, keys, pairing, trust, limiter,
		cache.NewMemoryCacheWithClock[models.Device](clock),
		auditService, m, clock,
	)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = pairing.Shutdown(ctx)
		_ = auditService.Shutdown(ctx)
	})

	deviceHandler := NewDeviceHandler(devices)
	pairingHandler := NewPairingHandler(pairing, devices, m, 50*time.Millisecond)
	trustHandler := NewTrustHandler(devices)
	keyHandler := NewKeyHandler(devices)
	auditHandler := NewAuditHandler(auditService)

	r := gin.New()
	r.Use(util.IPMiddleware())
	api := r.Group("/api/v1")
	api.POST("/devices/register", deviceHandler.Register)
	api.GET("/pairing/status/:code", pairingHandler.Status)
	api.GET("/pairing/status/:code/stream", pairingHandler.StreamSSE)
	api.GET("/pairing/status/:code/ws", pairingHandler.StreamWebSocket)

	authed := api.Group("")
	authed.Use(middleware.RequireDevice(devices))
	authed.GET("/devices/me", deviceHandler.Me)
	authed.PUT("/devices/me", deviceHandler.Update)
	authed.DELETE("/devices/me", deviceHandler.Deactivate)
	authed.POST("/devices/heartbeat", deviceHandler.Heartbeat)
	authed.POST("/pairing/code", pairingHandler.GenerateCode)
	authed.POST("/pairing-codes", pairingHandler.GenerateLegacyCode)
	authed.POST("/pairing/retry/:code", pairingHandler.Retry)
	authed.POST("/pairing/pair", pairingHandler.Pair)
	authed.GET("/trust", trustHandler.List)
	authed.DELETE("/trust/:device_id", trustHandler.Revoke)
	authed.POST("/keys/derive", keyHandler.Derive)
	authed.GET("/keys", keyHandler.List)
	authed.GET("/audit", auditHandler.List)
	authed.GET("/audit/export", auditHandler.Export)

	return &testServer{router: r, clock: clock, pairing: pairing, audit: auditService}
}

// do sends a request with an optional JSON body and bearer token.
func (ts *testServer) do(
	t *testing.T,
	method, path, token string,
	body any,
) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("X-Forwarded-For", "203.0.113.7")

	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

// register creates a device and returns its session token.
func (ts *testServer) register(t *testing.T, id string) string {
	t.Helper()
	w := ts.do(t, http.MethodPost, "/api/v1/devices/register", "", gin.H{
		"device_id":         id,
		"user_agent":        "agent/" + id,
		"screen_resolution": "1920x1080",
		"timezone":          "UTC",
		"public_key":        testPublicKey,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	body := decode(t, w)
	token, ok := body["session_token"].(string)
	require.True(t, ok)
	require.NotEmpty(t, token)
	return token
}

// generate issues a sync pairing code for the device behind token.
func (ts *testServer) generate(t *testing.T, token string, body any) string {
	t.Helper()
	w := ts.do(t, http.MethodPost, "/api/v1/pairing/code", token, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	code, ok := decode(t, w)["code"].(string)
	require.True(t, ok)
	return code
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}
