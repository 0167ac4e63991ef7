package models

import (
	"strings"
	"time"
)

// CodeFormat selects the pairing code generation strategy.
type CodeFormat string

const (
	CodeFormatUUID   CodeFormat = "uuid"   // RFC 4122 v4
	CodeFormatShort  CodeFormat = "short"  // 12 lowercase hex chars
	CodeFormatLegacy CodeFormat = "legacy" // 6 digits, 100000-999999
)

// ParseCodeFormat resolves a caller supplied format. An empty string selects uuid.
func ParseCodeFormat(s string) (CodeFormat, bool) {
	switch f := CodeFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return CodeFormatUUID, true
	case CodeFormatUUID, CodeFormatShort, CodeFormatLegacy:
		return f, true
	default:
		return "", false
	}
}

func (f CodeFormat) IsValid() bool {
	switch f {
	case CodeFormatUUID, CodeFormatShort, CodeFormatLegacy:
		return true
	}
	return false
}

// PairingCode is a short-lived single-use code issued by a device. The code
// column is not unique: a value may come back once the earlier row is used
// or expired.
type PairingCode struct {
	ID        string     `gorm:"primaryKey;type:varchar(36)"     json:"id"`
	Code      string     `gorm:"type:varchar(64);index;not null" json:"code"`
	Format    CodeFormat `gorm:"type:varchar(10);not null"       json:"format"`
	DeviceID  string     `gorm:"type:varchar(128);index;not null" json:"device_id"`
	ExpiresAt time.Time  `gorm:"index;not null"                  json:"expires_at"`
	Used      bool       `gorm:"index;not null"                  json:"used"`
	UsedBy    string     `gorm:"type:varchar(128)"               json:"used_by,omitempty"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

func (p *PairingCode) IsExpired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}

// IsRedeemable reports whether the code is unused and now <= ExpiresAt.
func (p *PairingCode) IsRedeemable(now time.Time) bool {
	return !p.Used && !p.IsExpired(now)
}
