package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// EventType represents the type of audit event
type EventType string

const (
	// Device lifecycle events
	EventDeviceRegistered  EventType = "DEVICE_REGISTERED"
	EventDeviceReactivated EventType = "DEVICE_REACTIVATED"
	EventDeviceUpdated     EventType = "DEVICE_UPDATED"
	EventDeviceDeactivated EventType = "DEVICE_DEACTIVATED"
	EventDeviceAuthFailure EventType = "DEVICE_AUTHENTICATION_FAILURE"
	EventDuplicateDevice   EventType = "DEVICE_DUPLICATE_FINGERPRINT"

	// Pairing events
	EventPairingCodeGenerated EventType = "PAIRING_CODE_GENERATED"
	EventPairingCodeRetried   EventType = "PAIRING_CODE_RETRIED"
	EventDevicesPaired        EventType = "DEVICES_PAIRED"
	EventPairingFailed        EventType = "PAIRING_FAILED"

	// Trust graph events
	EventTrustRevoked EventType = "TRUST_REVOKED"

	// Key events
	EventKeyDerived EventType = "KEY_DERIVED"

	// Security events
	EventRateLimitExceeded EventType = "RATE_LIMIT_EXCEEDED"

	// Audit events
	EventTypeAuditLogView     EventType = "AUDIT_LOG_VIEWED"
	EventTypeAuditLogExported EventType = "AUDIT_LOG_EXPORTED"
)

// EventSeverity represents the severity level of an audit event
type EventSeverity string

const (
	SeverityInfo     EventSeverity = "INFO"
	SeverityWarning  EventSeverity = "WARNING"
	SeverityError    EventSeverity = "ERROR"
	SeverityCritical EventSeverity = "CRITICAL"
)

// ResourceType represents the type of resource being operated on
type ResourceType string

const (
	ResourceDevice      ResourceType = "DEVICE"
	ResourcePairingCode ResourceType = "PAIRING_CODE"
	ResourceTrustEdge   ResourceType = "TRUST_EDGE"
	ResourceDeviceKey   ResourceType = "DEVICE_KEY"
	ResourceAuditLog    ResourceType = "AUDIT_LOG"
)

// AuditDetails stores additional event-specific information as JSON
type AuditDetails map[string]any

// Value implements the driver.Valuer interface for database storage
func (a AuditDetails) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil //nolint:nilnil // nil driver.Value represents SQL NULL, which is valid here
	}
	return json.Marshal(a)
}

// Scan implements the sql.Scanner interface for database retrieval
func (a *AuditDetails) Scan(value any) error {
	if value == nil {
		*a = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("failed to unmarshal AuditDetails value: %v", value)
	}

	result := make(AuditDetails)
	if err := json.Unmarshal(bytes, &result); err != nil {
		return err
	}

	*a = result
	return nil
}

// AuditLog represents an audit log entry
type AuditLog struct {
	ID string `gorm:"primaryKey;type:varchar(36)" json:"id"`

	// Event information
	EventType EventType     `gorm:"type:varchar(50);index;not null" json:"event_type"`
	EventTime time.Time     `gorm:"index;not null"                  json:"event_time"`
	Severity  EventSeverity `gorm:"type:varchar(20);not null"       json:"severity"`

	// Actor information
	ActorDeviceID string `gorm:"type:varchar(128);index" json:"actor_device_id"`
	ActorIP       string `gorm:"type:varchar(45);index"  json:"actor_ip"` // Support IPv6

	// Resource information
	ResourceType ResourceType `gorm:"type:varchar(50);index"  json:"resource_type"`
	ResourceID   string       `gorm:"type:varchar(128);index" json:"resource_id"`

	// Operation details
	Action       string       `gorm:"type:varchar(255);not null" json:"action"`
	Details      AuditDetails `gorm:"type:json"                  json:"details"`
	Success      bool         `gorm:"index;not null"             json:"success"`
	ErrorMessage string       `gorm:"type:text"                  json:"error_message,omitempty"`

	// Request metadata
	UserAgent     string `gorm:"type:varchar(500)" json:"user_agent,omitempty"`
	RequestPath   string `gorm:"type:varchar(500)" json:"request_path,omitempty"`
	RequestMethod string `gorm:"type:varchar(10)"  json:"request_method,omitempty"`

	// Timestamps (no UpdatedAt - immutable logs)
	CreatedAt time.Time `gorm:"index;not null" json:"created_at"`
}

// TableName specifies the table name for GORM
func (AuditLog) TableName() string {
	return "audit_logs"
}
