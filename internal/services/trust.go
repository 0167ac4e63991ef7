package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-authgate/pairgate/internal/core"
	"github.com/go-authgate/pairgate/internal/models"
	"github.com/go-authgate/pairgate/internal/store"
)

// TrustService maintains the directed trust graph between devices.
type TrustService struct {
	store   *store.Store
	audit   core.AuditLogger
	metrics core.Recorder
	clock   core.Clock
}

func NewTrustService(
	s *store.Store,
	auditService core.AuditLogger,
	m core.Recorder,
	clock core.Clock,
) *TrustService {
	return &TrustService{store: s, audit: auditService, metrics: m, clock: clock}
}

// EstablishTrust creates or overwrites the edge source -> target. Concurrent
// calls for the same edge resolve last writer wins.
func (s *TrustService) EstablishTrust(
	ctx context.Context,
	source, target string,
	level int,
	metadata string,
) (*models.TrustEdge, error) {
	edge, err := s.establish(ctx, s.store, source, target, level, metadata)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordTrustEstablished()
	return edge, nil
}

// establish writes through st so it can join a caller's transaction.
func (s *TrustService) establish(
	ctx context.Context,
	st *store.Store,
	source, target string,
	level int,
	metadata string,
) (*models.TrustEdge, error) {
	if source == "" || target == "" {
		return nil, ErrInvalidDeviceID
	}
	if source == target {
		return nil, ErrSelfTrust
	}
	if level < models.TrustLevelPaired {
		return nil, ErrInvalidTrustLevel
	}

	now := s.clock.Now()
	edge, err := st.UpsertTrustEdge(ctx, &models.TrustEdge{
		SourceDeviceID:    source,
		TargetDeviceID:    target,
		TrustLevel:        level,
		EncryptedMetadata: metadata,
		CreatedAt:         now,
		LastSeenAt:        now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store trust edge: %w", err)
	}
	return edge, nil
}

// RevokeTrust deletes source -> target only. It reports false, without an
// error, when there was no such edge.
func (s *TrustService) RevokeTrust(ctx context.Context, source, target string) (bool, error) {
	removed, err := s.store.DeleteTrustEdge(ctx, source, target)
	if err != nil {
		return false, fmt.Errorf("failed to delete trust edge: %w", err)
	}
	if !removed {
		return false, nil
	}

	s.metrics.RecordTrustRevoked()
	s.audit.Log(ctx, core.AuditEntry{
		EventType:     models.EventTrustRevoked,
		Severity:      models.SeverityInfo,
		ActorDeviceID: source,
		ResourceType:  models.ResourceTrustEdge,
		ResourceID:    source + "->" + target,
		Action:        "Trust revoked",
		Details:       models.AuditDetails{"target_device_id": target},
		Success:       true,
	})
	return true, nil
}

// ListTrusted pages through the edges leaving deviceID, most recently seen first.
func (s *TrustService) ListTrusted(
	ctx context.Context,
	deviceID string,
	params store.PaginationParams,
) ([]models.TrustEdge, store.PaginationResult, error) {
	return s.store.ListTrustEdges(ctx, deviceID, params)
}

// GetTrust returns the edge source -> target.
func (s *TrustService) GetTrust(ctx context.Context, source, target string) (*models.TrustEdge, error) {
	edge, err := s.store.GetTrustEdge(ctx, source, target)
	if errors.Is(err, store.ErrRecordNotFound) {
		return nil, ErrTrustNotFound
	}
	return edge, err
}

// TouchTrust bumps last seen on source -> target and reports whether it exists.
func (s *TrustService) TouchTrust(ctx context.Context, source, target string) (bool, error) {
	return s.store.TouchTrustEdge(ctx, source, target, s.clock.Now())
}
