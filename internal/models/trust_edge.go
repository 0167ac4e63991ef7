package models

import "time"

// TrustLevelPaired is the baseline level created by redeeming a pairing code.
const TrustLevelPaired = 1

// TrustEdge records that SourceDeviceID trusts TargetDeviceID. Edges are
// directional and independently revocable.
type TrustEdge struct {
	ID                uint      `gorm:"primaryKey;autoIncrement"                                   json:"-"`
	SourceDeviceID    string    `gorm:"type:varchar(128);not null;uniqueIndex:idx_trust_edge_pair" json:"source_device_id"`
	TargetDeviceID    string    `gorm:"type:varchar(128);not null;uniqueIndex:idx_trust_edge_pair;index" json:"target_device_id"`
	TrustLevel        int       `gorm:"not null"                                                   json:"trust_level"`
	EncryptedMetadata string    `gorm:"type:text"                                                  json:"encrypted_metadata,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	LastSeenAt        time.Time `gorm:"index"                                                      json:"last_seen_at"`
}
