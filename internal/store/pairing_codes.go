package store

import (
	"context"
	"time"

	"github.com/go-authgate/pairgate/internal/models"
)

func (s *Store) CreatePairingCode(ctx context.Context, code *models.PairingCode) error {
	return s.db.WithContext(ctx).Create(code).Error
}

func (s *Store) GetPairingCode(ctx context.Context, id string) (*models.PairingCode, error) {
	var pc models.PairingCode
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&pc).Error; err != nil {
		return nil, notFound(err)
	}
	return &pc, nil
}

// GetRedeemablePairingCode returns the unused, unexpired row holding code.
func (s *Store) GetRedeemablePairingCode(
	ctx context.Context,
	code string,
	now time.Time,
) (*models.PairingCode, error) {
	var pc models.PairingCode
	err := s.db.WithContext(ctx).
		Where("code = ? AND used = ? AND expires_at >= ?", code, false, now).
		Order("created_at DESC").
		First(&pc).
		Error
	if err != nil {
		return nil, notFound(err)
	}
	return &pc, nil
}

// GetLatestPairingCode returns the most recent row for code in any state.
func (s *Store) GetLatestPairingCode(ctx context.Context, code string) (*models.PairingCode, error) {
	var pc models.PairingCode
	err := s.db.WithContext(ctx).
		Where("code = ?", code).
		Order("created_at DESC").
		First(&pc).
		Error
	if err != nil {
		return nil, notFound(err)
	}
	return &pc, nil
}

// RedeemablePairingCodeExists reports whether code is held by an unused, unexpired row.
func (s *Store) RedeemablePairingCodeExists(
	ctx context.Context,
	code string,
	now time.Time,
) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.PairingCode{}).
		Where("code = ? AND used = ? AND expires_at >= ?", code, false, now).
		Count(&count).
		Error
	return count > 0, err
}

// MarkPairingCodeUsed consumes the row in a single conditional UPDATE.
// Returns ErrPairingCodeNotRedeemable when no unused, unexpired row matched.
func (s *Store) MarkPairingCodeUsed(
	ctx context.Context,
	id, usedBy string,
	now time.Time,
) error {
	res := s.db.WithContext(ctx).
		Model(&models.PairingCode{}).
		Where("id = ? AND used = ? AND expires_at >= ?", id, false, now).
		Updates(map[string]any{
			"used":    true,
			"used_by": usedBy,
			"used_at": now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrPairingCodeNotRedeemable
	}
	return nil
}

// DeleteStalePairingCodes removes rows that expired or were used before
// cutoff and returns the distinct code values removed.
func (s *Store) DeleteStalePairingCodes(ctx context.Context, cutoff time.Time) ([]string, error) {
	var codes []string
	err := s.Transaction(ctx, func(tx *Store) error {
		const stale = "expires_at < ? OR (used = ? AND used_at < ?)"
		if err := tx.db.Model(&models.PairingCode{}).
			Where(stale, cutoff, true, cutoff).
			Distinct().
			Pluck("code", &codes).Error; err != nil {
			return err
		}
		if len(codes) == 0 {
			return nil
		}
		return tx.db.Where(stale, cutoff, true, cutoff).Delete(&models.PairingCode{}).Error
	})
	return codes, err
}

func (s *Store) CountActivePairingCodes(now time.Time) (int64, error) {
	var count int64
	err := s.db.Model(&models.PairingCode{}).
		Where("used = ? AND expires_at >= ?", false, now).
		Count(&count).
		Error
	return count, err
}
