package handlers

import (
	"errors"
	"net/http"

	"github.com/go-authgate/pairgate/internal/models"
	"github.com/go-authgate/pairgate/internal/services"

	"github.com/gin-gonic/gin"
)

type DeviceHandler struct {
	deviceService *services.DeviceService
}

func NewDeviceHandler(ds *services.DeviceService) *DeviceHandler {
	return &DeviceHandler{deviceService: ds}
}

type registerRequest struct {
	DeviceID          string `json:"device_id"          binding:"required"`
	UserAgent         string `json:"user_agent"`
	ScreenResolution  string `json:"screen_resolution"`
	Timezone          string `json:"timezone"`
	PublicKey         string `json:"public_key"         binding:"required"`
	EncryptedMetadata string `json:"encrypted_metadata"`
}

// Register handles POST /api/v1/devices/register
func (h *DeviceHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "device_id and public_key are required")
		return
	}

	// Fall back to the transport header when the client did not report one.
	if req.UserAgent == "" {
		req.UserAgent = c.Request.UserAgent()
	}

	result, err := h.deviceService.Register(c.Request.Context(), services.RegisterRequest{
		DeviceID:          req.DeviceID,
		UserAgent:         req.UserAgent,
		ScreenResolution:  req.ScreenResolution,
		Timezone:          req.Timezone,
		PublicKey:         req.PublicKey,
		EncryptedMetadata: req.EncryptedMetadata,
	})
	if errors.Is(err, services.ErrDeviceAlreadyRegistered) {
		c.JSON(http.StatusConflict, gin.H{
			"success":           false,
			"error":             string(services.KindConflict),
			"error_description": err.Error(),
			"device_id":         result.DeviceID,
			"fingerprint":       result.Fingerprint,
		})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":       true,
		"device_id":     result.DeviceID,
		"session_token": result.SessionToken,
		"fingerprint":   result.Fingerprint,
		"expires_at":    result.ExpiresAt,
		"reactivated":   result.Reactivated,
	})
}

// Me handles GET /api/v1/devices/me
func (h *DeviceHandler) Me(c *gin.Context) {
	device, err := h.deviceService.GetDevice(
		c.Request.Context(),
		models.GetDeviceIDFromContext(c),
	)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "device": device})
}

type updateDeviceRequest struct {
	PublicKey         *string `json:"public_key"`
	EncryptedMetadata *string `json:"encrypted_metadata"`
}

// Update handles PUT /api/v1/devices/me
func (h *DeviceHandler) Update(c *gin.Context) {
	var req updateDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	if req.PublicKey == nil && req.EncryptedMetadata == nil {
		badRequest(c, "public_key or encrypted_metadata is required")
		return
	}

	device, err := h.deviceService.UpdateDevice(
		c.Request.Context(),
		models.GetDeviceIDFromContext(c),
		services.UpdateDeviceRequest{
			PublicKey:         req.PublicKey,
			EncryptedMetadata: req.EncryptedMetadata,
		},
	)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "device": device})
}

// Deactivate handles DELETE /api/v1/devices/me
func (h *DeviceHandler) Deactivate(c *gin.Context) {
	if err := h.deviceService.Deactivate(
		c.Request.Context(),
		models.GetDeviceIDFromContext(c),
	); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type heartbeatRequest struct {
	Peers []string `json:"peers"`
}

// Heartbeat handles POST /api/v1/devices/heartbeat. The body is optional.
func (h *DeviceHandler) Heartbeat(c *gin.Context) {
	var req heartbeatRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request body")
			return
		}
	}

	result, err := h.deviceService.Heartbeat(
		c.Request.Context(),
		models.GetDeviceIDFromContext(c),
		req.Peers,
	)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"last_seen_at":  result.LastSeenAt,
		"touched_peers": result.TouchedPeers,
	})
}
