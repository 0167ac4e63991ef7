package models

import "time"

// PairingState is one step of the per-attempt state machine
// queued -> generating -> validating -> completed|failed.
type PairingState string

const (
	PairingQueued     PairingState = "queued"
	PairingGenerating PairingState = "generating"
	PairingValidating PairingState = "validating"
	PairingCompleted  PairingState = "completed"
	PairingFailed     PairingState = "failed"
)

func (s PairingState) IsTerminal() bool {
	return s == PairingCompleted || s == PairingFailed
}

// PairingStatus is the ephemeral progress snapshot of a pairing code.
type PairingStatus struct {
	Code             string       `json:"code"`
	Attempt          int          `json:"attempt"`
	State            PairingState `json:"status"`
	Progress         int          `json:"progress"`
	Message          string       `json:"message"`
	EstimatedSeconds int          `json:"estimated_seconds"`
	CanRetry         bool         `json:"can_retry"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// StatusEventType tags events delivered to status subscribers.
type StatusEventType string

const (
	StatusEventConnected StatusEventType = "connected"
	StatusEventStatus    StatusEventType = "status"
	StatusEventExpired   StatusEventType = "expired"
)

type StatusEvent struct {
	Type   StatusEventType `json:"type"`
	Code   string          `json:"code"`
	Status *PairingStatus  `json:"status,omitempty"`
}

// IsFinal reports whether no further events follow this one.
func (e StatusEvent) IsFinal() bool {
	if e.Type == StatusEventExpired {
		return true
	}
	return e.Status != nil && e.Status.State.IsTerminal()
}
