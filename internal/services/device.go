package services

import (
	"context"
	"encoding/pem"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-authgate/pairgate/internal/config"
	"github.com/go-authgate/pairgate/internal/core"
	"github.com/go-authgate/pairgate/internal/models"
	"github.com/go-authgate/pairgate/internal/ratelimit"
	"github.com/go-authgate/pairgate/internal/store"
	"github.com/go-authgate/pairgate/internal/util"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	sessionTokenBytes     = 32
	sessionTouchInterval  = time.Minute
	deviceCacheKeyPrefix  = "device:"
	registrationDuplicate = "duplicate"
)

var deviceIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)

// RegisterRequest carries the client reported registration data.
type RegisterRequest struct {
	DeviceID          string
	UserAgent         string
	ScreenResolution  string
	Timezone          string
	PublicKey         string
	EncryptedMetadata string
}

type RegisterResult struct {
	DeviceID     string    `json:"device_id"`
	SessionToken string    `json:"session_token,omitempty"`
	Fingerprint  string    `json:"fingerprint"`
	ExpiresAt    time.Time `json:"expires_at,omitzero"`
	Reactivated  bool      `json:"reactivated,omitempty"`
}

type PairResult struct {
	Trust        *models.TrustEdge    `json:"trust"`
	PairedDevice models.DeviceSummary `json:"paired_device"`
}

// UpdateDeviceRequest changes only the fields that are set.
type UpdateDeviceRequest struct {
	PublicKey         *string
	EncryptedMetadata *string
}

type HeartbeatResult struct {
	LastSeenAt   time.Time `json:"last_seen_at"`
	TouchedPeers int       `json:"touched_peers"`
}

// DeviceService orchestrates registration, pairing and the device lifecycle.
type DeviceService struct {
	store   *store.Store
	config  *config.Config
	keys    *KeyService
	pairing *PairingService
	trust   *TrustService
	gate    gate
	cache   core.Cache[models.Device]
	audit   core.AuditLogger
	metrics core.Recorder
	clock   core.Clock
}

func NewDeviceService(
	s *store.Store,
	cfg *config.Config,
	keys *KeyService,
	pairing *PairingService,
	trust *TrustService,
	limiter *ratelimit.Limiter,
	deviceCache core.Cache[models.Device],
	auditService core.AuditLogger,
	m core.Recorder,
	clock core.Clock,
) *DeviceService {
	return &DeviceService{
		store:   s,
		config:  cfg,
		keys:    keys,
		pairing: pairing,
		trust:   trust,
		gate:    gate{limiter: limiter, audit: auditService, metrics: m},
		cache:   deviceCache,
		audit:   auditService,
		metrics: m,
		clock:   clock,
	}
}

// Register creates a device and issues its session token. A device whose
// fingerprint is already active yields the existing id together with
// ErrDeviceAlreadyRegistered.
func (s *DeviceService) Register(ctx context.Context, req RegisterRequest) (*RegisterResult, error) {
	if !deviceIDPattern.MatchString(req.DeviceID) {
		return nil, ErrInvalidDeviceID
	}
	if strings.TrimSpace(req.UserAgent) == "" {
		return nil, ErrMissingDeviceInfo
	}

	identifier := util.GetIPFromContext(ctx)
	if identifier == "" {
		identifier = req.DeviceID
	}
	if err := s.gate.check(ctx, identifier, ratelimit.ActionRegistration); err != nil {
		return nil, err
	}

	fingerprint := s.keys.GenerateFingerprint(req.UserAgent, req.ScreenResolution, req.Timezone)

	if existing, err := s.store.GetActiveDeviceByFingerprint(ctx, fingerprint); err == nil {
		return s.duplicate(ctx, existing, req.DeviceID)
	} else if !errors.Is(err, store.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to look up fingerprint: %w", err)
	}

	if err := validatePublicKey(req.PublicKey); err != nil {
		return nil, err
	}

	token, err := s.keys.GenerateToken(sessionTokenBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to generate session token: %w", err)
	}

	now := s.clock.Now()
	session := &models.DeviceSession{
		ID:        uuid.New().String(),
		DeviceID:  req.DeviceID,
		TokenHash: util.SHA256Hex(token),
		ExpiresAt: now.Add(s.config.SessionTokenExpiration),
		CreatedAt: now,
	}

	var reactivated bool
	var dup *models.Device
	err = s.store.Transaction(ctx, func(tx *store.Store) error {
		// Re-check inside the transaction so racing registrations of the
		// same fingerprint collapse onto one device.
		if existing, err := tx.GetActiveDeviceByFingerprint(ctx, fingerprint); err == nil {
			dup = existing
			return nil
		} else if !errors.Is(err, store.ErrRecordNotFound) {
			return err
		}

		device, err := tx.GetDevice(ctx, req.DeviceID)
		switch {
		case errors.Is(err, store.ErrRecordNotFound):
			device = &models.Device{ID: req.DeviceID, CreatedAt: now}
		case err != nil:
			return err
		case device.IsActive:
			return ErrDeviceIDTaken
		default:
			reactivated = true
		}

		device.Fingerprint = fingerprint
		device.PublicKey = strings.TrimSpace(req.PublicKey)
		device.EncryptedMetadata = req.EncryptedMetadata
		device.UserAgent = req.UserAgent
		device.ScreenResolution = req.ScreenResolution
		device.Timezone = req.Timezone
		device.IsActive = true
		device.DeactivatedAt = nil
		device.LastSeenAt = now
		device.UpdatedAt = now

		if reactivated {
			if err := tx.SaveDevice(ctx, device); err != nil {
				return err
			}
		} else if err := tx.CreateDevice(ctx, device); err != nil {
			return err
		}
		return tx.CreateSession(ctx, session)
	})
	if errors.Is(err, store.ErrDuplicateKey) {
		res, conflictErr := s.resolveConflict(ctx, fingerprint, req.DeviceID)
		if !errors.Is(conflictErr, ErrDeviceIDTaken) {
			return res, conflictErr
		}
		err = conflictErr
	}
	if errors.Is(err, ErrDeviceIDTaken) {
		s.metrics.RecordDeviceRegistration("conflict")
		return nil, err
	}
	if err != nil {
		s.metrics.RecordDeviceRegistration("error")
		return nil, fmt.Errorf("failed to register device: %w", err)
	}
	if dup != nil {
		return s.duplicate(ctx, dup, req.DeviceID)
	}

	s.invalidate(ctx, req.DeviceID)

	event, action, result := models.EventDeviceRegistered, "Device registered", "success"
	if reactivated {
		event, action, result = models.EventDeviceReactivated, "Device reactivated", "reactivated"
	}
	s.metrics.RecordDeviceRegistration(result)
	s.audit.Log(ctx, core.AuditEntry{
		EventType:     event,
		Severity:      models.SeverityInfo,
		ActorDeviceID: req.DeviceID,
		ResourceType:  models.ResourceDevice,
		ResourceID:    req.DeviceID,
		Action:        action,
		Details:       models.AuditDetails{"fingerprint": fingerprint},
		Success:       true,
		UserAgent:     req.UserAgent,
	})

	return &RegisterResult{
		DeviceID:     req.DeviceID,
		SessionToken: token,
		Fingerprint:  fingerprint,
		ExpiresAt:    session.ExpiresAt,
		Reactivated:  reactivated,
	}, nil
}

// resolveConflict handles a registration that lost a race on a unique
// index. If the fingerprint is now active the winner is reported as the
// duplicate; otherwise the device id was taken.
func (s *DeviceService) resolveConflict(
	ctx context.Context,
	fingerprint, requestedID string,
) (*RegisterResult, error) {
	existing, err := s.store.GetActiveDeviceByFingerprint(ctx, fingerprint)
	if err != nil {
		return nil, ErrDeviceIDTaken
	}
	return s.duplicate(ctx, existing, requestedID)
}

func (s *DeviceService) duplicate(
	ctx context.Context,
	existing *models.Device,
	requestedID string,
) (*RegisterResult, error) {
	s.metrics.RecordDeviceRegistration(registrationDuplicate)
	s.audit.Log(ctx, core.AuditEntry{
		EventType:     models.EventDuplicateDevice,
		Severity:      models.SeverityWarning,
		ActorDeviceID: requestedID,
		ResourceType:  models.ResourceDevice,
		ResourceID:    existing.ID,
		Action:        "Registration with an already active fingerprint",
		Success:       false,
	})
	return &RegisterResult{
		DeviceID:    existing.ID,
		Fingerprint: existing.Fingerprint,
	}, ErrDeviceAlreadyRegistered
}

// Pair redeems code on behalf of requesterID and trusts both devices in both
// directions at the paired level. Consuming the code and writing the edges
// commit together.
func (s *DeviceService) Pair(
	ctx context.Context,
	requesterID, code, encryptedTrustData string,
) (*PairResult, error) {
	if err := s.gate.check(ctx, requesterID, ratelimit.ActionPairing); err != nil {
		return nil, err
	}

	pc, err := s.pairing.Validate(ctx, code)
	if err != nil {
		s.recordPairFailure(ctx, requesterID, code, err)
		return nil, err
	}
	if pc.DeviceID == requesterID {
		s.recordPairFailure(ctx, requesterID, code, ErrSelfPairing)
		return nil, ErrSelfPairing
	}

	owner, err := s.GetDevice(ctx, pc.DeviceID)
	if err == nil && !owner.IsActive {
		err = ErrDeviceNotFound
	}
	if err != nil {
		s.recordPairFailure(ctx, requesterID, code, err)
		return nil, err
	}

	var forward *models.TrustEdge
	err = s.store.Transaction(ctx, func(tx *store.Store) error {
		if _, err := s.pairing.markUsed(ctx, tx, pc.Code, requesterID); err != nil {
			return err
		}
		if _, err := s.trust.establish(
			ctx, tx, owner.ID, requesterID, models.TrustLevelPaired, encryptedTrustData,
		); err != nil {
			return err
		}
		forward, err = s.trust.establish(
			ctx, tx, requesterID, owner.ID, models.TrustLevelPaired, encryptedTrustData,
		)
		return err
	})
	if err != nil {
		s.recordPairFailure(ctx, requesterID, code, err)
		return nil, err
	}

	s.metrics.RecordPairingAttempt("success")
	s.metrics.RecordTrustEstablished()
	s.metrics.RecordTrustEstablished()
	s.audit.Log(ctx, core.AuditEntry{
		EventType:     models.EventDevicesPaired,
		Severity:      models.SeverityInfo,
		ActorDeviceID: requesterID,
		ResourceType:  models.ResourcePairingCode,
		ResourceID:    pc.ID,
		Action:        "Devices paired",
		Details: models.AuditDetails{
			"owner_device_id": owner.ID,
			"format":          string(pc.Format),
		},
		Success: true,
	})

	return &PairResult{Trust: forward, PairedDevice: owner.Summary()}, nil
}

func (s *DeviceService) recordPairFailure(
	ctx context.Context,
	requesterID, code string,
	err error,
) {
	kind := ErrorKind(err)
	s.metrics.RecordPairingAttempt(string(kind))
	if kind == KindInternal {
		log.Error().Err(err).Str("device_id", requesterID).Msg("pairing failed")
	}
	s.audit.Log(ctx, core.AuditEntry{
		EventType:     models.EventPairingFailed,
		Severity:      models.SeverityWarning,
		ActorDeviceID: requesterID,
		ResourceType:  models.ResourcePairingCode,
		Action:        "Pairing failed",
		Details:       models.AuditDetails{"pairing_code": code, "reason": string(kind)},
		Success:       false,
		ErrorMessage:  err.Error(),
	})
}

// Revoke removes source -> target. ErrTrustNotFound when there was none.
func (s *DeviceService) Revoke(ctx context.Context, source, target string) error {
	removed, err := s.trust.RevokeTrust(ctx, source, target)
	if err != nil {
		return err
	}
	if !removed {
		return ErrTrustNotFound
	}
	return nil
}

// ListTrusted pages through the devices deviceID trusts.
func (s *DeviceService) ListTrusted(
	ctx context.Context,
	deviceID string,
	params store.PaginationParams,
) ([]models.TrustEdge, store.PaginationResult, error) {
	return s.trust.ListTrusted(ctx, deviceID, params)
}

// Authenticate resolves a session token to its active device.
func (s *DeviceService) Authenticate(ctx context.Context, token string) (*models.Device, error) {
	if token == "" {
		return nil, ErrUnauthorized
	}

	session, err := s.store.GetSessionByTokenHash(ctx, util.SHA256Hex(token))
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	now := s.clock.Now()
	if session.IsExpired(now) {
		return nil, ErrUnauthorized
	}

	device, err := s.GetDevice(ctx, session.DeviceID)
	if err != nil {
		if errors.Is(err, ErrDeviceNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	if !device.IsActive {
		return nil, ErrUnauthorized
	}

	if session.LastUsedAt == nil || now.Sub(*session.LastUsedAt) >= sessionTouchInterval {
		if err := s.store.TouchSession(ctx, session.ID, now); err != nil {
			log.Warn().Err(err).Str("device_id", device.ID).Msg("failed to touch session")
		}
	}
	return device, nil
}

// GetDevice reads through the device cache.
func (s *DeviceService) GetDevice(ctx context.Context, id string) (*models.Device, error) {
	device, err := s.cache.GetWithFetch(
		ctx,
		deviceCacheKeyPrefix+id,
		s.config.DeviceCacheTTL,
		func(ctx context.Context, _ string) (models.Device, error) {
			d, err := s.store.GetDevice(ctx, id)
			if err != nil {
				return models.Device{}, err
			}
			return *d, nil
		},
	)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, ErrDeviceNotFound
		}
		return nil, err
	}
	return &device, nil
}

// Heartbeat bumps the device's last seen time and that of its edges to peers.
func (s *DeviceService) Heartbeat(
	ctx context.Context,
	deviceID string,
	peers []string,
) (*HeartbeatResult, error) {
	now := s.clock.Now()
	if err := s.store.TouchDevice(ctx, deviceID, now); err != nil {
		return nil, fmt.Errorf("failed to record heartbeat: %w", err)
	}
	s.invalidate(ctx, deviceID)

	touched := 0
	for _, peer := range peers {
		ok, err := s.trust.TouchTrust(ctx, deviceID, peer)
		if err != nil {
			return nil, fmt.Errorf("failed to touch trust edge: %w", err)
		}
		if ok {
			touched++
		}
	}
	return &HeartbeatResult{LastSeenAt: now, TouchedPeers: touched}, nil
}

// UpdateDevice replaces the public key and/or encrypted metadata.
func (s *DeviceService) UpdateDevice(
	ctx context.Context,
	deviceID string,
	req UpdateDeviceRequest,
) (*models.Device, error) {
	if req.PublicKey != nil {
		if err := validatePublicKey(*req.PublicKey); err != nil {
			return nil, err
		}
	}

	device, err := s.store.GetDevice(ctx, deviceID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, ErrDeviceNotFound
		}
		return nil, err
	}
	if !device.IsActive {
		return nil, ErrDeviceNotFound
	}

	var changed []string
	if req.PublicKey != nil {
		device.PublicKey = strings.TrimSpace(*req.PublicKey)
		changed = append(changed, "public_key")
	}
	if req.EncryptedMetadata != nil {
		device.EncryptedMetadata = *req.EncryptedMetadata
		changed = append(changed, "encrypted_metadata")
	}
	if len(changed) == 0 {
		return device, nil
	}
	device.UpdatedAt = s.clock.Now()

	if err := s.store.SaveDevice(ctx, device); err != nil {
		return nil, fmt.Errorf("failed to update device: %w", err)
	}
	s.invalidate(ctx, deviceID)

	s.audit.Log(ctx, core.AuditEntry{
		EventType:     models.EventDeviceUpdated,
		Severity:      models.SeverityInfo,
		ActorDeviceID: deviceID,
		ResourceType:  models.ResourceDevice,
		ResourceID:    deviceID,
		Action:        "Device updated",
		Details:       models.AuditDetails{"fields": changed},
		Success:       true,
	})
	return device, nil
}

// Deactivate disables the device and revokes its sessions. The row is kept.
func (s *DeviceService) Deactivate(ctx context.Context, deviceID string) error {
	if err := s.store.DeactivateDevice(ctx, deviceID, s.clock.Now()); err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return ErrDeviceNotFound
		}
		return fmt.Errorf("failed to deactivate device: %w", err)
	}
	s.invalidate(ctx, deviceID)

	s.metrics.RecordDeviceDeactivated()
	s.audit.Log(ctx, core.AuditEntry{
		EventType:     models.EventDeviceDeactivated,
		Severity:      models.SeverityWarning,
		ActorDeviceID: deviceID,
		ResourceType:  models.ResourceDevice,
		ResourceID:    deviceID,
		Action:        "Device deactivated",
		Success:       true,
	})
	return nil
}

// DeriveKey derives a fresh key for the device and records its parameters.
func (s *DeviceService) DeriveKey(
	ctx context.Context,
	deviceID, userSecret string,
) (*KeyDerivation, error) {
	if userSecret == "" {
		return nil, ErrMissingSecret
	}
	if err := s.gate.check(ctx, deviceID, ratelimit.ActionKeyExchange); err != nil {
		return nil, err
	}

	device, err := s.GetDevice(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	derivation, err := s.keys.DeriveDeviceKey(ctx, device.ID, userSecret, device.Fingerprint)
	if err != nil {
		return nil, err
	}

	if err := s.store.CreateDeviceKey(ctx, &models.DeviceKey{
		KeyID:      derivation.KeyID,
		DeviceID:   device.ID,
		Algorithm:  derivation.Algorithm,
		Iterations: derivation.Iterations,
		Salt:       derivation.Salt,
		KeyLength:  derivation.KeyLength,
		CreatedAt:  s.clock.Now(),
	}); err != nil {
		return nil, fmt.Errorf("failed to record key derivation: %w", err)
	}

	s.audit.Log(ctx, core.AuditEntry{
		EventType:     models.EventKeyDerived,
		Severity:      models.SeverityInfo,
		ActorDeviceID: device.ID,
		ResourceType:  models.ResourceDeviceKey,
		ResourceID:    derivation.KeyID,
		Action:        "Device key derived",
		Details: models.AuditDetails{
			"algorithm":  derivation.Algorithm,
			"iterations": derivation.Iterations,
		},
		Success: true,
	})
	return derivation, nil
}

// ListKeys pages through the device's recorded derivations, newest first.
func (s *DeviceService) ListKeys(
	ctx context.Context,
	deviceID string,
	params store.PaginationParams,
) ([]models.DeviceKey, store.PaginationResult, error) {
	return s.store.ListDeviceKeys(ctx, deviceID, params)
}

func (s *DeviceService) invalidate(ctx context.Context, deviceID string) {
	if err := s.cache.Delete(ctx, deviceCacheKeyPrefix+deviceID); err != nil {
		log.Warn().Err(err).Str("device_id", deviceID).Msg("failed to invalidate device cache")
	}
}

// validatePublicKey accepts a single PEM block whose type ends in PUBLIC KEY.
// The key material itself is not parsed.
func validatePublicKey(key string) error {
	block, _ := pem.Decode([]byte(strings.TrimSpace(key)))
	if block == nil || !strings.HasSuffix(block.Type, "PUBLIC KEY") || len(block.Bytes) == 0 {
		return ErrInvalidPublicKey
	}
	return nil
}
