package handlers

import (
	"net/http"

	"github.com/go-authgate/pairgate/internal/models"
	"github.com/go-authgate/pairgate/internal/services"

	"github.com/gin-gonic/gin"
)

type KeyHandler struct {
	deviceService *services.DeviceService
}

func NewKeyHandler(ds *services.DeviceService) *KeyHandler {
	return &KeyHandler{deviceService: ds}
}

type deriveKeyRequest struct {
	UserSecret string `json:"user_secret"`
}

// Derive handles POST /api/v1/keys/derive. The response carries the
// parameters needed to re-derive the key, never the key itself.
func (h *KeyHandler) Derive(c *gin.Context) {
	var req deriveKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, services.ErrMissingSecret)
		return
	}

	derivation, err := h.deviceService.DeriveKey(
		c.Request.Context(),
		models.GetDeviceIDFromContext(c),
		req.UserSecret,
	)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":    true,
		"key_id":     derivation.KeyID,
		"algorithm":  derivation.Algorithm,
		"iterations": derivation.Iterations,
		"salt":       derivation.Salt,
		"key_length": derivation.KeyLength,
	})
}

// List handles GET /api/v1/keys
func (h *KeyHandler) List(c *gin.Context) {
	keys, pagination, err := h.deviceService.ListKeys(
		c.Request.Context(),
		models.GetDeviceIDFromContext(c),
		paginationFromQuery(c),
	)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"keys":       keys,
		"pagination": paginationJSON(pagination),
	})
}
