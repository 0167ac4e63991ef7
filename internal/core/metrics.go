package core

import "time"

// Recorder defines the interface for recording application metrics.
// Implementations include Metrics (Prometheus-based) and NoopMetrics (no-op).
type Recorder interface {
	// Devices
	RecordDeviceRegistration(result string)
	RecordDeviceDeactivated()

	// Pairing
	RecordPairingCodeGenerated(format, mode string)
	RecordPairingStatus(state string)
	RecordPairingAttempt(result string)

	// Trust graph
	RecordTrustEstablished()
	RecordTrustRevoked()

	// Key derivation
	RecordKeyDerivation(duration time.Duration)

	// Rate limiting
	RecordRateLimited(action string)

	// Status streaming
	RecordStatusStreamOpened(transport string)
	RecordStatusStreamClosed(transport string)

	// Gauge Setters (for periodic updates)
	SetActiveDevicesCount(count int)
	SetActivePairingCodesCount(count int)
	SetTrustEdgesCount(count int)

	// Database Operations
	RecordDatabaseQueryError(operation string)
}

// MetricsStore defines the DB operations needed by the gauge updater.
type MetricsStore interface {
	CountActiveDevices() (int64, error)
	CountActivePairingCodes(now time.Time) (int64, error)
	CountTrustEdges() (int64, error)
}
