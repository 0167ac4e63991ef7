package store

import (
	"time"

	"github.com/go-authgate/pairgate/internal/models"
)

// Audit log operations

func (s *Store) CreateAuditLog(log *models.AuditLog) error {
	return s.db.Create(log).Error
}

// CreateAuditLogBatch inserts logs in a single statement.
func (s *Store) CreateAuditLogBatch(logs []*models.AuditLog) error {
	if len(logs) == 0 {
		return nil
	}
	return s.db.CreateInBatches(logs, 100).Error
}

// GetAuditLogsPaginated retrieves audit logs with pagination and filtering
func (s *Store) GetAuditLogsPaginated(
	params PaginationParams,
	filters AuditLogFilters,
) ([]models.AuditLog, PaginationResult, error) {
	var logs []models.AuditLog
	var total int64

	query := s.db.Model(&models.AuditLog{})

	if filters.EventType != "" {
		query = query.Where("event_type = ?", filters.EventType)
	}
	if filters.ActorDeviceID != "" {
		query = query.Where("actor_device_id = ?", filters.ActorDeviceID)
	}
	if filters.ResourceType != "" {
		query = query.Where("resource_type = ?", filters.ResourceType)
	}
	if filters.ResourceID != "" {
		query = query.Where("resource_id = ?", filters.ResourceID)
	}
	if filters.Severity != "" {
		query = query.Where("severity = ?", filters.Severity)
	}
	if filters.Success != nil {
		query = query.Where("success = ?", *filters.Success)
	}
	if !filters.StartTime.IsZero() {
		query = query.Where("event_time >= ?", filters.StartTime)
	}
	if !filters.EndTime.IsZero() {
		query = query.Where("event_time <= ?", filters.EndTime)
	}
	if filters.ActorIP != "" {
		query = query.Where("actor_ip = ?", filters.ActorIP)
	}
	if filters.Search != "" {
		like := "%" + filters.Search + "%"
		query = query.Where("action LIKE ? OR resource_id LIKE ?", like, like)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, PaginationResult{}, err
	}

	offset := (params.Page - 1) * params.PageSize
	if err := query.Order("event_time DESC").
		Offset(offset).
		Limit(params.PageSize).
		Find(&logs).Error; err != nil {
		return nil, PaginationResult{}, err
	}

	return logs, CalculatePagination(total, params.Page, params.PageSize), nil
}

// DeleteOldAuditLogs deletes audit logs created before cutoff
func (s *Store) DeleteOldAuditLogs(cutoff time.Time) (int64, error) {
	res := s.db.Where("created_at < ?", cutoff).Delete(&models.AuditLog{})
	return res.RowsAffected, res.Error
}
