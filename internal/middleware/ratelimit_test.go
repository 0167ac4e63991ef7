package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/go-authgate/pairgate/internal/config"
	"github.com/go-authgate/pairgate/internal/mocks"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newLimitedRouter(t *testing.T, cfg RateLimitConfig) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	limiter, err := NewRateLimiter(cfg)
	require.NoError(t, err)
	require.NotNil(t, limiter)

	router := gin.New()
	router.Use(limiter)
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})
	return router
}

func get(router *gin.Engine, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("X-Forwarded-For", ip)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRateLimiter_MemoryStore(t *testing.T) {
	router := newLimitedRouter(t, RateLimitConfig{
		RequestsPerMinute: 5,
		StoreType:         config.RateLimitStoreMemory,
		CleanupInterval:   time.Minute,
	})

	for i := range 5 {
		w := get(router, "192.168.1.100")
		assert.Equal(t, http.StatusOK, w.Code, "Request %d should succeed", i+1)
	}

	w := get(router, "192.168.1.100")
	assert.Equal(t, http.StatusTooManyRequests, w.Code, "Request should be rate limited")

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "rate_limited", body["error"])
	assert.Equal(t, false, body["success"])
	assert.Contains(t, body["error_description"], "Too many requests")

	retryAfter, err := strconv.Atoi(w.Header().Get("Retry-After"))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, retryAfter, 1)
	assert.LessOrEqual(t, retryAfter, 60)
	assert.InDelta(t, float64(retryAfter), body["retry_after"], 0)
}

func TestRateLimiter_DifferentIPs(t *testing.T) {
	router := newLimitedRouter(t, RateLimitConfig{
		RequestsPerMinute: 2,
		StoreType:         config.RateLimitStoreMemory,
	})

	for _, ip := range []string{"192.168.1.1", "192.168.1.2", "192.168.1.3"} {
		for i := range 2 {
			w := get(router, ip)
			assert.Equal(t, http.StatusOK, w.Code, "Request %d from IP %s should succeed", i+1, ip)
		}

		w := get(router, ip)
		assert.Equal(
			t,
			http.StatusTooManyRequests,
			w.Code,
			"Third request from IP %s should be rate limited",
			ip,
		)
	}
}

func TestRateLimiter_RecordsMetric(t *testing.T) {
	ctrl := gomock.NewController(t)
	recorder := mocks.NewMockRecorder(ctrl)
	recorder.EXPECT().RecordRateLimited("http").Times(1)

	router := newLimitedRouter(t, RateLimitConfig{
		RequestsPerMinute: 1,
		StoreType:         config.RateLimitStoreMemory,
		Metrics:           recorder,
	})

	assert.Equal(t, http.StatusOK, get(router, "10.0.0.1").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(router, "10.0.0.1").Code)
}

func TestNewRateLimiter_InvalidConfig(t *testing.T) {
	_, err := NewRateLimiter(RateLimitConfig{RequestsPerMinute: 0})
	require.Error(t, err)

	_, err = NewRateLimiter(RateLimitConfig{
		RequestsPerMinute: 10,
		StoreType:         config.RateLimitStoreRedis,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires a redis client")
}

func TestRetryAfterFromReset(t *testing.T) {
	assert.Equal(t, 1, retryAfterFromReset(""))
	assert.Equal(t, 1, retryAfterFromReset("not-a-number"))
	assert.Equal(t, 1, retryAfterFromReset(strconv.FormatInt(time.Now().Add(-time.Hour).Unix(), 10)))

	got := retryAfterFromReset(strconv.FormatInt(time.Now().Add(30*time.Second).Unix(), 10))
	assert.GreaterOrEqual(t, got, 29)
	assert.LessOrEqual(t, got, 31)
}
