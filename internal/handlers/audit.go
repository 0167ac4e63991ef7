package handlers

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"time"

	"github.com/go-authgate/pairgate/internal/core"
	"github.com/go-authgate/pairgate/internal/models"
	"github.com/go-authgate/pairgate/internal/services"
	"github.com/go-authgate/pairgate/internal/store"

	"github.com/gin-gonic/gin"
)

const (
	// queryValueTrue represents the string "true" used in query parameters
	queryValueTrue = "true"

	maxExportRecords = 10000
)

// AuditHandler serves a device's own audit trail.
type AuditHandler struct {
	auditService *services.AuditService
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(auditService *services.AuditService) *AuditHandler {
	return &AuditHandler{
		auditService: auditService,
	}
}

// filtersFromQuery parses the optional filters. The actor is always the
// calling device, whatever the query says.
func filtersFromQuery(c *gin.Context) store.AuditLogFilters {
	filters := store.AuditLogFilters{
		EventType:     models.EventType(c.Query("event_type")),
		ActorDeviceID: models.GetDeviceIDFromContext(c),
		ResourceType:  models.ResourceType(c.Query("resource_type")),
		ResourceID:    c.Query("resource_id"),
		Severity:      models.EventSeverity(c.Query("severity")),
		Search:        c.Query("search"),
	}

	// Parse success filter (optional boolean)
	if successStr := c.Query("success"); successStr != "" {
		success := successStr == queryValueTrue
		filters.Success = &success
	}

	// Parse time range
	if startTimeStr := c.Query("start_time"); startTimeStr != "" {
		if t, err := time.Parse(time.RFC3339, startTimeStr); err == nil {
			filters.StartTime = t
		}
	}
	if endTimeStr := c.Query("end_time"); endTimeStr != "" {
		if t, err := time.Parse(time.RFC3339, endTimeStr); err == nil {
			filters.EndTime = t
		}
	}
	return filters
}

// List handles GET /api/v1/audit
func (h *AuditHandler) List(c *gin.Context) {
	params := paginationFromQuery(c)
	filters := filtersFromQuery(c)

	logs, pagination, err := h.auditService.GetAuditLogs(params, filters)
	if err != nil {
		respondError(c, fmt.Errorf("failed to retrieve audit logs: %w", err))
		return
	}

	h.auditService.Log(c.Request.Context(), core.AuditEntry{
		EventType:    models.EventTypeAuditLogView,
		Severity:     models.SeverityInfo,
		ResourceType: models.ResourceAuditLog,
		Action:       "Viewed audit logs",
		Details: models.AuditDetails{
			"page":      params.Page,
			"page_size": params.PageSize,
		},
		Success:       true,
		RequestPath:   c.Request.URL.Path,
		RequestMethod: c.Request.Method,
		UserAgent:     c.Request.UserAgent(),
	})

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"logs":       logs,
		"pagination": paginationJSON(pagination),
	})
}

// Export handles GET /api/v1/audit/export and writes the trail as CSV.
func (h *AuditHandler) Export(c *gin.Context) {
	filters := filtersFromQuery(c)

	logs, _, err := h.auditService.GetAuditLogs(store.PaginationParams{
		Page:     1,
		PageSize: maxExportRecords,
	}, filters)
	if err != nil {
		respondError(c, fmt.Errorf("failed to retrieve audit logs: %w", err))
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf(
		"attachment; filename=audit_logs_%s.csv",
		time.Now().Format("2006-01-02"),
	))

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	if err := writer.Write([]string{
		"Event Time",
		"Event Type",
		"Severity",
		"Actor IP",
		"Resource Type",
		"Resource ID",
		"Action",
		"Success",
		"Error Message",
	}); err != nil {
		return
	}

	for _, entry := range logs {
		successStr := "Yes"
		if !entry.Success {
			successStr = "No"
		}

		if err := writer.Write([]string{
			entry.EventTime.Format(time.RFC3339),
			string(entry.EventType),
			string(entry.Severity),
			entry.ActorIP,
			string(entry.ResourceType),
			entry.ResourceID,
			entry.Action,
			successStr,
			entry.ErrorMessage,
		}); err != nil {
			return
		}
	}

	h.auditService.Log(c.Request.Context(), core.AuditEntry{
		EventType:    models.EventTypeAuditLogExported,
		Severity:     models.SeverityInfo,
		ResourceType: models.ResourceAuditLog,
		Action:       "Exported audit logs to CSV",
		Details: models.AuditDetails{
			"record_count": len(logs),
		},
		Success:       true,
		RequestPath:   c.Request.URL.Path,
		RequestMethod: c.Request.Method,
		UserAgent:     c.Request.UserAgent(),
	})
}
