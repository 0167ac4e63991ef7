package models

import "time"

// DeviceKey keeps the non-secret parameters of a key derivation so the
// device can re-derive the same key. The key itself is never stored.
type DeviceKey struct {
	KeyID      string    `gorm:"primaryKey;type:varchar(32)"      json:"key_id"`
	DeviceID   string    `gorm:"type:varchar(128);index;not null" json:"device_id"`
	Algorithm  string    `gorm:"type:varchar(32);not null"        json:"algorithm"`
	Iterations int       `gorm:"not null"                         json:"iterations"`
	Salt       string    `gorm:"type:varchar(64);not null"        json:"salt"`
	KeyLength  int       `gorm:"not null"                         json:"key_length"`
	CreatedAt  time.Time `gorm:"index"                            json:"created_at"`
}
