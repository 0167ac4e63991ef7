package store

import (
	"context"
	"time"

	"github.com/go-authgate/pairgate/internal/models"

	"gorm.io/gorm/clause"
)

// UpsertTrustEdge creates the directed edge or overwrites level, metadata and
// last seen of the existing one. The stored row is returned.
func (s *Store) UpsertTrustEdge(
	ctx context.Context,
	edge *models.TrustEdge,
) (*models.TrustEdge, error) {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "source_device_id"}, {Name: "target_device_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"trust_level",
			"encrypted_metadata",
			"last_seen_at",
		}),
	}).Create(edge).Error
	if err != nil {
		return nil, err
	}
	return s.GetTrustEdge(ctx, edge.SourceDeviceID, edge.TargetDeviceID)
}

func (s *Store) GetTrustEdge(ctx context.Context, source, target string) (*models.TrustEdge, error) {
	var edge models.TrustEdge
	err := s.db.WithContext(ctx).
		Where("source_device_id = ? AND target_device_id = ?", source, target).
		First(&edge).
		Error
	if err != nil {
		return nil, notFound(err)
	}
	return &edge, nil
}

// DeleteTrustEdge reports whether an edge was removed.
func (s *Store) DeleteTrustEdge(ctx context.Context, source, target string) (bool, error) {
	res := s.db.WithContext(ctx).
		Where("source_device_id = ? AND target_device_id = ?", source, target).
		Delete(&models.TrustEdge{})
	return res.RowsAffected > 0, res.Error
}

// TouchTrustEdge bumps last_seen_at and reports whether the edge exists.
func (s *Store) TouchTrustEdge(
	ctx context.Context,
	source, target string,
	now time.Time,
) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&models.TrustEdge{}).
		Where("source_device_id = ? AND target_device_id = ?", source, target).
		Update("last_seen_at", now)
	return res.RowsAffected > 0, res.Error
}

// ListTrustEdges returns the edges leaving deviceID, most recently seen first.
func (s *Store) ListTrustEdges(
	ctx context.Context,
	deviceID string,
	params PaginationParams,
) ([]models.TrustEdge, PaginationResult, error) {
	var edges []models.TrustEdge
	var total int64

	query := s.db.WithContext(ctx).
		Model(&models.TrustEdge{}).
		Where("source_device_id = ?", deviceID)

	if err := query.Count(&total).Error; err != nil {
		return nil, PaginationResult{}, err
	}

	offset := (params.Page - 1) * params.PageSize
	err := query.
		Order("last_seen_at DESC").
		Order("target_device_id ASC").
		Offset(offset).
		Limit(params.PageSize).
		Find(&edges).
		Error
	if err != nil {
		return nil, PaginationResult{}, err
	}

	return edges, CalculatePagination(total, params.Page, params.PageSize), nil
}

func (s *Store) CountTrustEdges() (int64, error) {
	var count int64
	err := s.db.Model(&models.TrustEdge{}).Count(&count).Error
	return count, err
}
