package models

import (
	"time"
)

// Device is a self-registered client. Devices are never hard-deleted;
// deactivation clears IsActive and sets DeactivatedAt.
type Device struct {
	ID                string     `gorm:"primaryKey;type:varchar(128)"  json:"device_id"`
	Fingerprint       string     `gorm:"type:varchar(64);index;not null" json:"fingerprint"`
	PublicKey         string     `gorm:"type:text;not null"            json:"public_key"`
	EncryptedMetadata string     `gorm:"type:text"                     json:"encrypted_metadata,omitempty"`
	UserAgent         string     `gorm:"type:varchar(500)"             json:"user_agent"`
	ScreenResolution  string     `gorm:"type:varchar(50)"              json:"screen_resolution"`
	Timezone          string     `gorm:"type:varchar(100)"             json:"timezone"`
	IsActive          bool       `gorm:"index;not null"                json:"is_active"`
	LastSeenAt        time.Time  `json:"last_seen_at"`
	DeactivatedAt     *time.Time `json:"deactivated_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// Summary is the view of a device shown to its trust peers.
func (d *Device) Summary() DeviceSummary {
	return DeviceSummary{
		DeviceID:   d.ID,
		IsActive:   d.IsActive,
		LastSeenAt: d.LastSeenAt,
		CreatedAt:  d.CreatedAt,
	}
}

type DeviceSummary struct {
	DeviceID   string    `json:"device_id"`
	IsActive   bool      `json:"is_active"`
	LastSeenAt time.Time `json:"last_seen_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// DeviceSession is a bearer credential issued at registration.
type DeviceSession struct {
	ID         string     `gorm:"primaryKey;type:varchar(36)"`
	DeviceID   string     `gorm:"type:varchar(128);index;not null"`
	TokenHash  string     `gorm:"uniqueIndex;not null"` // SHA-256 of the raw token
	ExpiresAt  time.Time  `gorm:"index;not null"`
	LastUsedAt *time.Time
	CreatedAt  time.Time
}

func (s *DeviceSession) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
