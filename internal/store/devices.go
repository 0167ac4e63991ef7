package store

import (
	"context"
	"time"

	"github.com/go-authgate/pairgate/internal/models"
)

// Device operations

func (s *Store) CreateDevice(ctx context.Context, device *models.Device) error {
	return duplicateKey(s.db.WithContext(ctx).Create(device).Error)
}

func (s *Store) GetDevice(ctx context.Context, id string) (*models.Device, error) {
	var device models.Device
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&device).Error; err != nil {
		return nil, notFound(err)
	}
	return &device, nil
}

// GetActiveDeviceByFingerprint returns the active device registered with fingerprint.
func (s *Store) GetActiveDeviceByFingerprint(
	ctx context.Context,
	fingerprint string,
) (*models.Device, error) {
	var device models.Device
	err := s.db.WithContext(ctx).
		Where("fingerprint = ? AND is_active = ?", fingerprint, true).
		Order("created_at ASC").
		First(&device).
		Error
	if err != nil {
		return nil, notFound(err)
	}
	return &device, nil
}

// SaveDevice writes every column of device.
func (s *Store) SaveDevice(ctx context.Context, device *models.Device) error {
	return duplicateKey(s.db.WithContext(ctx).Save(device).Error)
}

func (s *Store) TouchDevice(ctx context.Context, id string, now time.Time) error {
	return s.db.WithContext(ctx).
		Model(&models.Device{}).
		Where("id = ?", id).
		Update("last_seen_at", now).
		Error
}

// DeactivateDevice marks the device inactive and removes its sessions.
func (s *Store) DeactivateDevice(ctx context.Context, id string, now time.Time) error {
	return s.Transaction(ctx, func(tx *Store) error {
		res := tx.db.Model(&models.Device{}).
			Where("id = ? AND is_active = ?", id, true).
			Updates(map[string]any{
				"is_active":      false,
				"deactivated_at": now,
				"updated_at":     now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrRecordNotFound
		}
		return tx.db.Where("device_id = ?", id).Delete(&models.DeviceSession{}).Error
	})
}

func (s *Store) CountActiveDevices() (int64, error) {
	var count int64
	err := s.db.Model(&models.Device{}).Where("is_active = ?", true).Count(&count).Error
	return count, err
}

// Session operations

func (s *Store) CreateSession(ctx context.Context, session *models.DeviceSession) error {
	return s.db.WithContext(ctx).Create(session).Error
}

func (s *Store) GetSessionByTokenHash(
	ctx context.Context,
	tokenHash string,
) (*models.DeviceSession, error) {
	var session models.DeviceSession
	err := s.db.WithContext(ctx).Where("token_hash = ?", tokenHash).First(&session).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &session, nil
}

func (s *Store) TouchSession(ctx context.Context, id string, now time.Time) error {
	return s.db.WithContext(ctx).
		Model(&models.DeviceSession{}).
		Where("id = ?", id).
		Update("last_used_at", now).
		Error
}

func (s *Store) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("expires_at < ?", now).Delete(&models.DeviceSession{})
	return res.RowsAffected, res.Error
}
