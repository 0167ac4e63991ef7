package metrics

import (
	"strconv"
	"time"

	"github.com/go-authgate/pairgate/internal/core"

	"github.com/gin-gonic/gin"
)

// HTTPMetricsMiddleware creates a Gin middleware that records HTTP metrics
func HTTPMetricsMiddleware(m core.Recorder) gin.HandlerFunc {
	metrics, ok := m.(*Metrics)
	if !ok {
		// NoopMetrics or unknown implementation
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		// Skip metrics endpoint to avoid self-recording
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()

		metrics.HTTPRequestsInFlight.Inc()
		defer metrics.HTTPRequestsInFlight.Dec()

		c.Next()

		duration := time.Since(start).Seconds()
		method := c.Request.Method
		path := normalizePath(c.FullPath()) // Use route pattern, not actual path
		status := strconv.Itoa(c.Writer.Status())

		metrics.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
	}
}

// normalizePath returns the route pattern (e.g., "/pairing/status/:code")
// so pairing codes never become label values.
func normalizePath(fullPath string) string {
	if fullPath == "" {
		return "unknown"
	}
	return fullPath
}

func (m *Metrics) RecordDeviceRegistration(result string) {
	m.DeviceRegistrationsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordDeviceDeactivated() {
	m.DevicesDeactivatedTotal.Inc()
}

func (m *Metrics) RecordPairingCodeGenerated(format, mode string) {
	m.PairingCodesGeneratedTotal.WithLabelValues(format, mode).Inc()
}

func (m *Metrics) RecordPairingStatus(state string) {
	m.PairingStatusTotal.WithLabelValues(state).Inc()
}

func (m *Metrics) RecordPairingAttempt(result string) {
	m.PairingAttemptsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordTrustEstablished() {
	m.TrustEstablishedTotal.Inc()
}

func (m *Metrics) RecordTrustRevoked() {
	m.TrustRevokedTotal.Inc()
}

func (m *Metrics) RecordKeyDerivation(duration time.Duration) {
	m.KeyDerivationDuration.Observe(duration.Seconds())
}

func (m *Metrics) RecordRateLimited(action string) {
	m.RateLimitedTotal.WithLabelValues(action).Inc()
}

func (m *Metrics) RecordStatusStreamOpened(transport string) {
	m.StatusStreamsActive.WithLabelValues(transport).Inc()
}

func (m *Metrics) RecordStatusStreamClosed(transport string) {
	m.StatusStreamsActive.WithLabelValues(transport).Dec()
}

// Gauge setters, called by the periodic updater

func (m *Metrics) SetActiveDevicesCount(count int) {
	m.DevicesActive.Set(float64(count))
}

func (m *Metrics) SetActivePairingCodesCount(count int) {
	m.PairingCodesActive.Set(float64(count))
}

func (m *Metrics) SetTrustEdgesCount(count int) {
	m.TrustEdges.Set(float64(count))
}

func (m *Metrics) RecordDatabaseQueryError(operation string) {
	m.DatabaseQueryErrorsTotal.WithLabelValues(operation).Inc()
}
