package metrics

import (
	"time"

	"github.com/go-authgate/pairgate/internal/core"
)

// NoopMetrics is a no-operation implementation of Recorder
// All methods are empty and do nothing, providing zero overhead when metrics are disabled
type NoopMetrics struct{}

// Ensure NoopMetrics implements Recorder interface at compile time
var _ core.Recorder = (*NoopMetrics)(nil)

// NewNoopMetrics creates a new no-operation metrics recorder
func NewNoopMetrics() core.Recorder {
	return &NoopMetrics{}
}

func (n *NoopMetrics) RecordDeviceRegistration(result string) {}
func (n *NoopMetrics) RecordDeviceDeactivated()               {}

func (n *NoopMetrics) RecordPairingCodeGenerated(format, mode string) {}
func (n *NoopMetrics) RecordPairingStatus(state string)               {}
func (n *NoopMetrics) RecordPairingAttempt(result string)             {}

func (n *NoopMetrics) RecordTrustEstablished() {}
func (n *NoopMetrics) RecordTrustRevoked()     {}

func (n *NoopMetrics) RecordKeyDerivation(duration time.Duration) {}
func (n *NoopMetrics) RecordRateLimited(action string)            {}

func (n *NoopMetrics) RecordStatusStreamOpened(transport string) {}
func (n *NoopMetrics) RecordStatusStreamClosed(transport string) {}

// Gauge Setters - noop implementations
func (n *NoopMetrics) SetActiveDevicesCount(count int)      {}
func (n *NoopMetrics) SetActivePairingCodesCount(count int) {}
func (n *NoopMetrics) SetTrustEdgesCount(count int)         {}

// Database Operations - noop implementations
func (n *NoopMetrics) RecordDatabaseQueryError(operation string) {}
