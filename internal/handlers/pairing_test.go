package handlers

import (
	"math"
	"net/http"
	"regexp"
	"testing"
	"time"

	"github.com/go-authgate/pairgate/internal/ratelimit"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var uuidPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)

func TestGenerateCode_Formats(t *testing.T) {
	ts := newTestServer(t, nil)
	token := ts.register(t, "laptop-1")

	tests := []struct {
		name    string
		body    any
		pattern *regexp.Regexp
	}{
		{"default", nil, uuidPattern},
		{"uuid", gin.H{"format": "uuid"}, uuidPattern},
		{"short", gin.H{"format": "short"}, regexp.MustCompile(`^[0-9a-f]{12}$`)},
		{"legacy", gin.H{"format": "legacy"}, regexp.MustCompile(`^[1-9][0-9]{5}$`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(t, http.MethodPost, "/api/v1/pairing/code", token, tt.body)
			require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

			body := decode(t, w)
			assert.Equal(t, true, body["success"])
			assert.Regexp(t, tt.pattern, body["code"])
			assert.InDelta(t, 600, body["expires_in"], 0)
			assert.Equal(t, "/api/v1/pairing/status/"+body["code"].(string), body["status_url"])

			status := body["status"].(map[string]any)
			assert.Equal(t, "completed", status["status"])
		})
	}
}

func TestGenerateCode_ExpiresIn(t *testing.T) {
	ts := newTestServer(t, nil)
	token := ts.register(t, "laptop-1")

	w := ts.do(t, http.MethodPost, "/api/v1/pairing/code", token, gin.H{"expires_in": 60})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.InDelta(t, 60, decode(t, w)["expires_in"], 0)

	// Clamped to the configured maximum.
	w = ts.do(t, http.MethodPost, "/api/v1/pairing/code", token, gin.H{"expires_in": 86400})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.InDelta(t, 3600, decode(t, w)["expires_in"], 0)

	// Values whose nanosecond form overflows are clamped the same way.
	w = ts.do(t, http.MethodPost, "/api/v1/pairing/code", token,
		gin.H{"expires_in": int64(math.MaxInt64)})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.InDelta(t, 3600, decode(t, w)["expires_in"], 0)

	w = ts.do(t, http.MethodPost, "/api/v1/pairing/code", token, gin.H{"expires_in": -5})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPost, "/api/v1/pairing/code", token,
		gin.H{"expires_in": int64(math.MinInt64)})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGenerateCode_InvalidFormat(t *testing.T) {
	ts := newTestServer(t, nil)
	token := ts.register(t, "laptop-1")

	w := ts.do(t, http.MethodPost, "/api/v1/pairing/code", token, gin.H{"format": "emoji"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation_error", decode(t, w)["error"])
}

func TestGenerateLegacyCode(t *testing.T) {
	ts := newTestServer(t, nil)
	token := ts.register(t, "laptop-1")

	w := ts.do(t, http.MethodPost, "/api/v1/pairing-codes", token, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Regexp(t, uuidPattern, decode(t, w)["code"])

	w = ts.do(t, http.MethodPost, "/api/v1/pairing-codes", token, gin.H{"format": "short"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGenerateCode_Async(t *testing.T) {
	ts := newTestServer(t, nil)
	token := ts.register(t, "laptop-1")

	w := ts.do(t, http.MethodPost, "/api/v1/pairing/code", token, gin.H{"async": true})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	code := decode(t, w)["code"].(string)

	assert.Eventually(t, func() bool {
		w := ts.do(t, http.MethodGet, "/api/v1/pairing/status/"+code, "", nil)
		return w.Code == http.StatusOK && decode(t, w)["status"] == "completed"
	}, 5*time.Second, 10*time.Millisecond)
}

func TestGenerateCode_RateLimited(t *testing.T) {
	ts := newTestServer(t, map[string]ratelimit.Rule{
		ratelimit.ActionPairingCode: {Max: 1, Window: time.Hour},
	})
	token := ts.register(t, "laptop-1")
	ts.generate(t, token, nil)

	w := ts.do(t, http.MethodPost, "/api/v1/pairing/code", token, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "3600", w.Header().Get("Retry-After"))
}

func TestStatus(t *testing.T) {
	ts := newTestServer(t, nil)
	token := ts.register(t, "laptop-1")
	code := ts.generate(t, token, nil)

	w := ts.do(t, http.MethodGet, "/api/v1/pairing/status/"+code, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, code, body["code"])
	assert.Equal(t, "completed", body["status"])
	assert.InDelta(t, 100, body["progress"], 0)
	assert.Equal(t, false, body["can_retry"])

	w = ts.do(t, http.MethodGet, "/api/v1/pairing/status/does-not-exist", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", decode(t, w)["error"])
}

func TestRetry_NotAllowedAfterSuccess(t *testing.T) {
	ts := newTestServer(t, nil)
	token := ts.register(t, "laptop-1")
	code := ts.generate(t, token, nil)

	w := ts.do(t, http.MethodPost, "/api/v1/pairing/retry/"+code, token, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "retry_not_allowed", decode(t, w)["error"])

	other := ts.register(t, "phone-1")
	w = ts.do(t, http.MethodPost, "/api/v1/pairing/retry/"+code, other, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPair(t *testing.T) {
	ts := newTestServer(t, nil)
	d1 := ts.register(t, "laptop-1")
	d2 := ts.register(t, "phone-1")
	code := ts.generate(t, d1, gin.H{"expires_in": 600})

	w := ts.do(t, http.MethodPost, "/api/v1/pairing/pair", d2, gin.H{
		"pairing_code":         code,
		"encrypted_trust_data": "b3BhcXVl",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	trust := body["trust"].(map[string]any)
	assert.Equal(t, "phone-1", trust["source_device_id"])
	assert.Equal(t, "laptop-1", trust["target_device_id"])
	assert.InDelta(t, 1, trust["trust_level"], 0)
	assert.Equal(t, "laptop-1", body["paired_device"].(map[string]any)["device_id"])

	// Both directions exist.
	for token, peer := range map[string]string{d1: "phone-1", d2: "laptop-1"} {
		w = ts.do(t, http.MethodGet, "/api/v1/trust", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		edges := decode(t, w)["trusted_devices"].([]any)
		require.Len(t, edges, 1)
		assert.Equal(t, peer, edges[0].(map[string]any)["target_device_id"])
	}

	// A code is single use.
	d3 := ts.register(t, "tablet-1")
	w = ts.do(t, http.MethodPost, "/api/v1/pairing/pair", d3, gin.H{"pairing_code": code})
	assert.Equal(t, http.StatusGone, w.Code)
	assert.Equal(t, "invalid_or_expired", decode(t, w)["error"])
}

func TestPair_Failures(t *testing.T) {
	ts := newTestServer(t, nil)
	d1 := ts.register(t, "laptop-1")
	d2 := ts.register(t, "phone-1")
	code := ts.generate(t, d1, nil)

	w := ts.do(t, http.MethodPost, "/api/v1/pairing/pair", d1, gin.H{"pairing_code": code})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "self_pairing", decode(t, w)["error"])

	w = ts.do(t, http.MethodPost, "/api/v1/pairing/pair", d2, gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPost, "/api/v1/pairing/pair", d2, gin.H{"pairing_code": "unknown"})
	assert.Equal(t, http.StatusGone, w.Code)

	ts.clock.Advance(11 * time.Minute)
	w = ts.do(t, http.MethodPost, "/api/v1/pairing/pair", d2, gin.H{"pairing_code": code})
	assert.Equal(t, http.StatusGone, w.Code)
}
