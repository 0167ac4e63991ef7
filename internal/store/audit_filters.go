package store

import (
	"time"

	"github.com/go-authgate/pairgate/internal/models"
)

// AuditLogFilters contains filter criteria for querying audit logs
type AuditLogFilters struct {
	EventType     models.EventType     `json:"event_type,omitempty"`
	ActorDeviceID string               `json:"actor_device_id,omitempty"`
	ResourceType  models.ResourceType  `json:"resource_type,omitempty"`
	ResourceID    string               `json:"resource_id,omitempty"`
	Severity      models.EventSeverity `json:"severity,omitempty"`
	Success       *bool                `json:"success,omitempty"`
	StartTime     time.Time            `json:"start_time,omitzero"`
	EndTime       time.Time            `json:"end_time,omitzero"`
	ActorIP       string               `json:"actor_ip,omitempty"`
	Search        string               `json:"search,omitempty"` // Search in action and resource_id
}
