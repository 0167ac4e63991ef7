package handlers

import (
	"net/http"
	"time"

	"github.com/go-authgate/pairgate/internal/core"
	"github.com/go-authgate/pairgate/internal/models"
	"github.com/go-authgate/pairgate/internal/services"

	"github.com/gin-gonic/gin"
)

// PairingHandler serves pairing code generation, status and redemption.
type PairingHandler struct {
	pairingService *services.PairingService
	deviceService  *services.DeviceService
	metrics        core.Recorder
	keepalive      time.Duration
}

func NewPairingHandler(
	ps *services.PairingService,
	ds *services.DeviceService,
	m core.Recorder,
	keepalive time.Duration,
) *PairingHandler {
	return &PairingHandler{
		pairingService: ps,
		deviceService:  ds,
		metrics:        m,
		keepalive:      keepalive,
	}
}

type generateCodeRequest struct {
	Format    string `json:"format"`
	ExpiresIn int    `json:"expires_in"` // seconds, 0 selects the default
	Async     bool   `json:"async"`
}

// statusResponse flattens a status snapshot next to the success flag.
type statusResponse struct {
	Success bool `json:"success"`
	models.PairingStatus
}

// GenerateCode handles POST /api/v1/pairing/code
func (h *PairingHandler) GenerateCode(c *gin.Context) {
	h.generate(c, false)
}

// GenerateLegacyCode handles POST /api/v1/pairing-codes. Older clients only
// understand uuid codes, so any other format is rejected.
func (h *PairingHandler) GenerateLegacyCode(c *gin.Context) {
	h.generate(c, true)
}

func (h *PairingHandler) generate(c *gin.Context, uuidOnly bool) {
	var req generateCodeRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request body")
			return
		}
	}

	format, ok := models.ParseCodeFormat(req.Format)
	if !ok || (uuidOnly && format != models.CodeFormatUUID) {
		respondError(c, services.ErrInvalidFormat)
		return
	}

	if req.ExpiresIn < 0 {
		respondError(c, services.ErrInvalidTTL)
		return
	}
	// Clamp in seconds first; large values overflow time.Duration.
	maxSeconds := int(h.pairingService.MaxTTL() / time.Second)
	ttl := time.Duration(min(req.ExpiresIn, maxSeconds)) * time.Second

	mode := services.ModeSync
	if req.Async {
		mode = services.ModeAsync
	}

	ctx := c.Request.Context()
	pc, err := h.pairingService.Generate(
		ctx,
		models.GetDeviceIDFromContext(c),
		format,
		ttl,
		mode,
	)
	if err != nil {
		respondError(c, err)
		return
	}

	body := gin.H{
		"success":    true,
		"code":       pc.Code,
		"format":     pc.Format,
		"expires_at": pc.ExpiresAt,
		"expires_in": int(pc.ExpiresAt.Sub(pc.CreatedAt).Seconds()),
		"status_url": "/api/v1/pairing/status/" + pc.Code,
	}
	if status, err := h.pairingService.Status(ctx, pc.Code); err == nil {
		body["status"] = status
	}

	code := http.StatusCreated
	if mode == services.ModeAsync {
		code = http.StatusAccepted
	}
	c.JSON(code, body)
}

// Status handles GET /api/v1/pairing/status/:code
func (h *PairingHandler) Status(c *gin.Context) {
	status, err := h.pairingService.Status(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, statusResponse{Success: true, PairingStatus: status})
}

// Retry handles POST /api/v1/pairing/retry/:code
func (h *PairingHandler) Retry(c *gin.Context) {
	status, err := h.pairingService.Retry(
		c.Request.Context(),
		models.GetDeviceIDFromContext(c),
		c.Param("code"),
	)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, statusResponse{Success: true, PairingStatus: status})
}

type pairRequest struct {
	PairingCode        string `json:"pairing_code"         binding:"required"`
	EncryptedTrustData string `json:"encrypted_trust_data"`
}

// Pair handles POST /api/v1/pairing/pair
func (h *PairingHandler) Pair(c *gin.Context) {
	var req pairRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, services.ErrMissingPairingCode)
		return
	}

	result, err := h.deviceService.Pair(
		c.Request.Context(),
		models.GetDeviceIDFromContext(c),
		req.PairingCode,
		req.EncryptedTrustData,
	)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"trust":         result.Trust,
		"paired_device": result.PairedDevice,
	})
}
