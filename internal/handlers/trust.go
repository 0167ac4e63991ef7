package handlers

import (
	"net/http"

	"github.com/go-authgate/pairgate/internal/models"
	"github.com/go-authgate/pairgate/internal/services"

	"github.com/gin-gonic/gin"
)

type TrustHandler struct {
	deviceService *services.DeviceService
}

func NewTrustHandler(ds *services.DeviceService) *TrustHandler {
	return &TrustHandler{deviceService: ds}
}

// List handles GET /api/v1/trust
func (h *TrustHandler) List(c *gin.Context) {
	edges, pagination, err := h.deviceService.ListTrusted(
		c.Request.Context(),
		models.GetDeviceIDFromContext(c),
		paginationFromQuery(c),
	)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"trusted_devices": edges,
		"pagination":      paginationJSON(pagination),
	})
}

// Revoke handles DELETE /api/v1/trust/:device_id. Only the caller's own
// edge is removed; the peer keeps trusting the caller until it revokes too.
func (h *TrustHandler) Revoke(c *gin.Context) {
	if err := h.deviceService.Revoke(
		c.Request.Context(),
		models.GetDeviceIDFromContext(c),
		c.Param("device_id"),
	); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
