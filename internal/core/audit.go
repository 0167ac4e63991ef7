package core

import (
	"context"

	"github.com/go-authgate/pairgate/internal/models"
)

// AuditEntry is the data needed to create an audit log entry.
type AuditEntry struct {
	EventType     models.EventType
	Severity      models.EventSeverity
	ActorDeviceID string
	ActorIP       string
	ResourceType  models.ResourceType
	ResourceID    string
	Action        string
	Details       models.AuditDetails
	Success       bool
	ErrorMessage  string
	UserAgent     string
	RequestPath   string
	RequestMethod string
}

// AuditLogger records security relevant events. Log must never block the
// caller or fail the triggering operation.
type AuditLogger interface {
	Log(ctx context.Context, entry AuditEntry)
	LogSync(ctx context.Context, entry AuditEntry) error
}
