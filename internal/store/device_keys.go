package store

import (
	"context"

	"github.com/go-authgate/pairgate/internal/models"
)

func (s *Store) CreateDeviceKey(ctx context.Context, key *models.DeviceKey) error {
	return s.db.WithContext(ctx).Create(key).Error
}

// ListDeviceKeys returns derivation parameters for deviceID, newest first.
func (s *Store) ListDeviceKeys(
	ctx context.Context,
	deviceID string,
	params PaginationParams,
) ([]models.DeviceKey, PaginationResult, error) {
	var keys []models.DeviceKey
	var total int64

	query := s.db.WithContext(ctx).Model(&models.DeviceKey{}).Where("device_id = ?", deviceID)
	if err := query.Count(&total).Error; err != nil {
		return nil, PaginationResult{}, err
	}

	offset := (params.Page - 1) * params.PageSize
	if err := query.Order("created_at DESC").
		Offset(offset).
		Limit(params.PageSize).
		Find(&keys).Error; err != nil {
		return nil, PaginationResult{}, err
	}

	return keys, CalculatePagination(total, params.Page, params.PageSize), nil
}
