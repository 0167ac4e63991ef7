package metrics

import (
	"sync"

	"github.com/go-authgate/pairgate/internal/core"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Ensure Metrics implements Recorder interface at compile time
var _ core.Recorder = (*Metrics)(nil)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// Device Metrics
	DeviceRegistrationsTotal *prometheus.CounterVec
	DevicesDeactivatedTotal  prometheus.Counter
	DevicesActive            prometheus.Gauge

	// Pairing Metrics
	PairingCodesGeneratedTotal *prometheus.CounterVec
	PairingStatusTotal         *prometheus.CounterVec
	PairingAttemptsTotal       *prometheus.CounterVec
	PairingCodesActive         prometheus.Gauge

	// Trust Metrics
	TrustEstablishedTotal prometheus.Counter
	TrustRevokedTotal     prometheus.Counter
	TrustEdges            prometheus.Gauge

	// Key Derivation Metrics
	KeyDerivationDuration prometheus.Histogram

	// Rate Limit Metrics
	RateLimitedTotal *prometheus.CounterVec

	// Status Stream Metrics
	StatusStreamsActive *prometheus.GaugeVec

	// HTTP Request Metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Database Query Metrics
	DatabaseQueryErrorsTotal *prometheus.CounterVec
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

// Init initializes metrics based on enabled flag
// If enabled=true, returns Prometheus-based Metrics
// If enabled=false, returns NoopMetrics (zero overhead)
// Uses sync.Once to ensure Prometheus metrics are only registered once
func Init(enabled bool) core.Recorder {
	if !enabled {
		return NewNoopMetrics()
	}

	once.Do(func() {
		defaultMetrics = initMetrics()
	})
	return defaultMetrics
}

// initMetrics creates and registers all Prometheus metrics
func initMetrics() *Metrics {
	m := &Metrics{
		DeviceRegistrationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pairgate_device_registrations_total",
				Help: "Total number of device registration attempts",
			},
			[]string{"result"}, // success, duplicate, reactivated, error
		),
		DevicesDeactivatedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "pairgate_devices_deactivated_total",
				Help: "Total number of devices deactivated",
			},
		),
		DevicesActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "pairgate_devices_active",
				Help: "Current number of active devices",
			},
		),

		PairingCodesGeneratedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pairgate_pairing_codes_generated_total",
				Help: "Total number of pairing codes generated",
			},
			[]string{"format", "mode"},
		),
		PairingStatusTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pairgate_pairing_status_transitions_total",
				Help: "Total number of pairing status transitions emitted",
			},
			[]string{"status"},
		),
		PairingAttemptsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pairgate_pairing_attempts_total",
				Help: "Total number of pairing code redemptions",
			},
			[]string{"result"}, // success, invalid, already_used, self_pairing, error
		),
		PairingCodesActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "pairgate_pairing_codes_active",
				Help: "Current number of unused, unexpired pairing codes",
			},
		),

		TrustEstablishedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "pairgate_trust_established_total",
				Help: "Total number of trust edges created or refreshed",
			},
		),
		TrustRevokedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "pairgate_trust_revoked_total",
				Help: "Total number of trust edges revoked",
			},
		),
		TrustEdges: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "pairgate_trust_edges",
				Help: "Current number of trust edges",
			},
		),

		KeyDerivationDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pairgate_key_derivation_duration_seconds",
				Help:    "Time spent deriving device keys",
				Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
		),

		RateLimitedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pairgate_rate_limited_total",
				Help: "Total number of requests denied by rate limiting",
			},
			[]string{"action"},
		),

		StatusStreamsActive: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pairgate_status_streams_active",
				Help: "Current number of open pairing status streams",
			},
			[]string{"transport"}, // sse, websocket
		),

		// HTTP Request Metrics
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "http_request_duration_seconds",
				Help: "HTTP request latency in seconds",
				Buckets: []float64{
					0.001,
					0.005,
					0.010,
					0.025,
					0.050,
					0.100,
					0.250,
					0.500,
					1.0,
					2.5,
					5.0,
					10.0,
				},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Current number of HTTP requests being served",
			},
		),

		// Database Query Metrics
		DatabaseQueryErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "database_query_errors_total",
				Help: "Total number of database query errors during metric collection",
			},
			[]string{"operation"}, // count_devices, count_pairing_codes, count_trust_edges
		),
	}

	return m
}

// GetMetrics returns the Prometheus metrics instance, initializing it if needed
func GetMetrics() *Metrics {
	once.Do(func() {
		defaultMetrics = initMetrics()
	})
	return defaultMetrics
}
