package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-authgate/pairgate/internal/broker"
	"github.com/go-authgate/pairgate/internal/config"
	"github.com/go-authgate/pairgate/internal/core"
	"github.com/go-authgate/pairgate/internal/models"
	"github.com/go-authgate/pairgate/internal/ratelimit"
	"github.com/go-authgate/pairgate/internal/store"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Mode selects how Generate reports progress.
type Mode string

const (
	// ModeSync emits generating and completed before Generate returns.
	ModeSync Mode = "sync"
	// ModeAsync returns after queued and drives the rest in the background.
	ModeAsync Mode = "async"
)

const (
	maxCodeRerolls = 10
	maxStepDelay   = time.Second
)

var errCodeSpaceExhausted = errors.New("could not generate a unique pairing code")

// PairingService owns the pairing code lifecycle and its status machine.
type PairingService struct {
	store   *store.Store
	broker  *broker.Broker
	gate    gate
	audit   core.AuditLogger
	metrics core.Recorder
	clock   core.Clock

	defaultTTL time.Duration
	maxTTL     time.Duration
	stepDelay  time.Duration
	retention  time.Duration

	// newCode draws candidate code values.
	newCode func(models.CodeFormat) (string, error)

	retryMu  sync.Mutex
	wg       sync.WaitGroup
	done     chan struct{}
	doneOnce sync.Once
}

func NewPairingService(
	s *store.Store,
	cfg *config.Config,
	keys *KeyService,
	b *broker.Broker,
	limiter *ratelimit.Limiter,
	auditService core.AuditLogger,
	m core.Recorder,
	clock core.Clock,
) *PairingService {
	return &PairingService{
		store:      s,
		broker:     b,
		gate:       gate{limiter: limiter, audit: auditService, metrics: m},
		audit:      auditService,
		metrics:    m,
		clock:      clock,
		defaultTTL: cfg.PairingCodeExpiration,
		maxTTL:     cfg.PairingCodeMaxExpiration,
		stepDelay:  min(max(cfg.PairingStatusStepDelay, 0), maxStepDelay),
		retention:  cfg.PairingCodeRetention,
		newCode:    keys.GeneratePairingCode,
		done:       make(chan struct{}),
	}
}

// MaxTTL is the longest lifetime Generate grants.
func (s *PairingService) MaxTTL() time.Duration {
	return s.maxTTL
}

// Generate issues a pairing code owned by deviceID. A zero ttl selects the
// default lifetime; longer ttls are clamped to the configured maximum.
func (s *PairingService) Generate(
	ctx context.Context,
	deviceID string,
	format models.CodeFormat,
	ttl time.Duration,
	mode Mode,
) (*models.PairingCode, error) {
	if !format.IsValid() {
		return nil, ErrInvalidFormat
	}
	if ttl < 0 {
		return nil, ErrInvalidTTL
	}
	if ttl == 0 {
		ttl = s.defaultTTL
	}
	ttl = min(ttl, s.maxTTL)

	if err := s.gate.check(ctx, deviceID, ratelimit.ActionPairingCode); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	pc := &models.PairingCode{
		ID:        uuid.New().String(),
		Format:    format,
		DeviceID:  deviceID,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}

	err := s.store.Transaction(ctx, func(tx *store.Store) error {
		for range maxCodeRerolls {
			code, err := s.newCode(format)
			if err != nil {
				return fmt.Errorf("failed to generate pairing code: %w", err)
			}
			if err := tx.LockPairingCode(ctx, code); err != nil {
				return err
			}
			taken, err := tx.RedeemablePairingCodeExists(ctx, code, now)
			if err != nil {
				return err
			}
			if !taken {
				pc.Code = code
				return tx.CreatePairingCode(ctx, pc)
			}
		}
		return errCodeSpaceExhausted
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create pairing code: %w", err)
	}

	s.metrics.RecordPairingCodeGenerated(string(format), string(mode))
	s.audit.Log(ctx, core.AuditEntry{
		EventType:     models.EventPairingCodeGenerated,
		Severity:      models.SeverityInfo,
		ActorDeviceID: deviceID,
		ResourceType:  models.ResourcePairingCode,
		ResourceID:    pc.ID,
		Action:        "Pairing code generated",
		Details: models.AuditDetails{
			"format":     string(format),
			"mode":       string(mode),
			"expires_at": pc.ExpiresAt,
		},
		Success: true,
	})

	// The value may have belonged to an older row; its snapshot is replaced
	// so the new attempt 1 is not ordered behind a stale terminal status.
	if mode == ModeAsync {
		s.restart(pc.Code, models.PairingQueued, 0, "Pairing code request queued")
		s.startAsync(pc, 1)
		return pc, nil
	}

	s.restart(pc.Code, models.PairingGenerating, 50, "Generating pairing code")
	s.publish(pc.Code, 1, models.PairingCompleted, 100, "Pairing code ready")
	return pc, nil
}

// Validate returns the pairing code only if it exists, is unused and has not expired.
func (s *PairingService) Validate(ctx context.Context, code string) (*models.PairingCode, error) {
	code = normalizeCode(code)
	if code == "" {
		return nil, ErrMissingPairingCode
	}
	pc, err := s.store.GetRedeemablePairingCode(ctx, code, s.clock.Now())
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, ErrPairingCodeInvalid
		}
		return nil, err
	}
	return pc, nil
}

// MarkUsed consumes the code on behalf of usedBy.
func (s *PairingService) MarkUsed(
	ctx context.Context,
	code, usedBy string,
) (*models.PairingCode, error) {
	return s.markUsed(ctx, s.store, code, usedBy)
}

// markUsed runs against st so callers can include it in a transaction.
func (s *PairingService) markUsed(
	ctx context.Context,
	st *store.Store,
	code, usedBy string,
) (*models.PairingCode, error) {
	code = normalizeCode(code)
	now := s.clock.Now()

	pc, err := st.GetRedeemablePairingCode(ctx, code, now)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, s.classify(ctx, st, code)
		}
		return nil, err
	}

	if err := st.MarkPairingCodeUsed(ctx, pc.ID, usedBy, now); err != nil {
		if errors.Is(err, store.ErrPairingCodeNotRedeemable) {
			return nil, s.classify(ctx, st, code)
		}
		return nil, err
	}

	pc.Used = true
	pc.UsedBy = usedBy
	pc.UsedAt = &now
	return pc, nil
}

// classify explains why code could not be consumed.
func (s *PairingService) classify(ctx context.Context, st *store.Store, code string) error {
	latest, err := st.GetLatestPairingCode(ctx, code)
	switch {
	case errors.Is(err, store.ErrRecordNotFound):
		return ErrPairingCodeNotFound
	case err != nil:
		return err
	case latest.Used:
		return ErrPairingCodeUsed
	default:
		return ErrPairingCodeInvalid
	}
}

// Retry restarts the status sequence of a failed code. Only the owner may
// retry and the code must still be redeemable.
func (s *PairingService) Retry(
	ctx context.Context,
	deviceID, code string,
) (models.PairingStatus, error) {
	code = normalizeCode(code)

	latest, err := s.store.GetLatestPairingCode(ctx, code)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return models.PairingStatus{}, ErrPairingCodeNotFound
		}
		return models.PairingStatus{}, err
	}
	if latest.DeviceID != deviceID {
		return models.PairingStatus{}, ErrPairingCodeNotFound
	}

	s.retryMu.Lock()
	defer s.retryMu.Unlock()

	current, ok := s.broker.Status(code)
	if !ok || current.State != models.PairingFailed {
		return models.PairingStatus{}, ErrRetryNotAllowed
	}
	if !latest.IsRedeemable(s.clock.Now()) {
		return models.PairingStatus{}, ErrPairingCodeInvalid
	}

	// Only retries that will actually run count against the quota.
	if err := s.gate.check(ctx, deviceID, ratelimit.ActionPairingCode); err != nil {
		return models.PairingStatus{}, err
	}

	attempt := current.Attempt + 1
	queued := s.publish(code, attempt, models.PairingQueued, 0, "Pairing code retry queued")
	s.startAsync(latest, attempt)

	s.audit.Log(ctx, core.AuditEntry{
		EventType:     models.EventPairingCodeRetried,
		Severity:      models.SeverityInfo,
		ActorDeviceID: deviceID,
		ResourceType:  models.ResourcePairingCode,
		ResourceID:    latest.ID,
		Action:        "Pairing code retried",
		Details:       models.AuditDetails{"attempt": attempt},
		Success:       true,
	})

	return queued, nil
}

// Status returns the latest status of code. The broker snapshot is checked
// against the stored row, so a code that expired or was redeemed after its
// last transition reports that instead.
func (s *PairingService) Status(ctx context.Context, code string) (models.PairingStatus, error) {
	code = normalizeCode(code)
	pc, err := s.store.GetLatestPairingCode(ctx, code)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return models.PairingStatus{}, ErrPairingCodeNotFound
		}
		return models.PairingStatus{}, err
	}
	return s.reconcile(pc), nil
}

// Subscribe streams status events for code until a terminal status, the
// code's expiry or Close.
func (s *PairingService) Subscribe(ctx context.Context, code string) (*broker.Subscription, error) {
	code = normalizeCode(code)
	pc, err := s.store.GetLatestPairingCode(ctx, code)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, ErrPairingCodeNotFound
		}
		return nil, err
	}

	s.reconcile(pc)
	return s.broker.Subscribe(code, pc.ExpiresAt), nil
}

// PruneExpired deletes codes that expired or were used longer ago than the
// retention window and forgets their status snapshots.
func (s *PairingService) PruneExpired(ctx context.Context) (int, error) {
	now := s.clock.Now()
	codes, err := s.store.DeleteStalePairingCodes(ctx, now.Add(-s.retention))
	if err != nil {
		return 0, fmt.Errorf("failed to prune pairing codes: %w", err)
	}

	for _, code := range codes {
		// A legacy value may already be live again under a newer row.
		live, err := s.store.RedeemablePairingCodeExists(ctx, code, now)
		if err == nil && live {
			continue
		}
		s.broker.Forget(code)
	}
	return len(codes), nil
}

// Shutdown stops pending background status sequences.
func (s *PairingService) Shutdown(ctx context.Context) error {
	s.doneOnce.Do(func() { close(s.done) })

	finished := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("pairing service shutdown timeout: %w", ctx.Err())
	}
}

func (s *PairingService) startAsync(pc *models.PairingCode, attempt int) {
	s.wg.Add(1)
	go s.runAsync(pc.ID, pc.Code, attempt)
}

// runAsync drives generating, validating and completed for one attempt.
func (s *PairingService) runAsync(id, code string, attempt int) {
	defer s.wg.Done()

	if !s.sleep() {
		return
	}
	s.publish(code, attempt, models.PairingGenerating, 30, "Generating pairing code")

	if !s.sleep() {
		return
	}
	s.publish(code, attempt, models.PairingValidating, 70, "Validating pairing code")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	pc, err := s.store.GetPairingCode(ctx, id)
	if err == nil && !pc.Used && pc.IsExpired(s.clock.Now()) {
		err = ErrPairingCodeInvalid
	}
	if err != nil {
		log.Warn().Err(err).Str("code_id", id).Int("attempt", attempt).
			Msg("pairing code validation failed")
		s.publish(code, attempt, models.PairingFailed, 70, "Pairing code validation failed")
		return
	}

	if !s.sleep() {
		return
	}
	s.publish(code, attempt, models.PairingCompleted, 100, "Pairing code ready")
}

// sleep waits one step delay and reports false on shutdown.
func (s *PairingService) sleep() bool {
	if s.stepDelay <= 0 {
		select {
		case <-s.done:
			return false
		default:
			return true
		}
	}

	timer := time.NewTimer(s.stepDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-s.done:
		return false
	}
}

func (s *PairingService) publish(
	code string,
	attempt int,
	state models.PairingState,
	progress int,
	message string,
) models.PairingStatus {
	status := s.newStatus(code, attempt, state, progress, message)
	if s.broker.Publish(status) {
		s.metrics.RecordPairingStatus(string(state))
	}
	return status
}

// restart starts attempt 1 of a freshly issued code.
func (s *PairingService) restart(
	code string,
	state models.PairingState,
	progress int,
	message string,
) {
	s.broker.Reset(s.newStatus(code, 1, state, progress, message))
	s.metrics.RecordPairingStatus(string(state))
}

func (s *PairingService) newStatus(
	code string,
	attempt int,
	state models.PairingState,
	progress int,
	message string,
) models.PairingStatus {
	return models.PairingStatus{
		Code:             code,
		Attempt:          attempt,
		State:            state,
		Progress:         progress,
		Message:          message,
		EstimatedSeconds: s.estimate(state),
		CanRetry:         state == models.PairingFailed,
		UpdatedAt:        s.clock.Now(),
	}
}

// estimate rounds the remaining async sequence up to whole seconds.
func (s *PairingService) estimate(state models.PairingState) int {
	var steps int
	switch state {
	case models.PairingQueued:
		steps = 3
	case models.PairingGenerating:
		steps = 2
	case models.PairingValidating:
		steps = 1
	}
	remaining := time.Duration(steps) * s.stepDelay
	return int((remaining + time.Second - 1) / time.Second)
}

// reconcile returns the status of pc. A snapshot is trusted while the row is
// redeemable; otherwise it is replaced by the status derived from the row.
func (s *PairingService) reconcile(pc *models.PairingCode) models.PairingStatus {
	snapshot, ok := s.broker.Status(pc.Code)
	if ok && pc.IsRedeemable(s.clock.Now()) {
		return snapshot
	}

	var prev *models.PairingStatus
	if ok {
		prev = &snapshot
	}
	derived := s.derivedStatus(pc, prev)
	if ok && derived.State == snapshot.State && derived.Message == snapshot.Message {
		return snapshot
	}
	if s.broker.CompareAndSwap(prev, derived) {
		return derived
	}

	// A concurrent transition won; report whatever the broker holds now.
	if current, ok := s.broker.Status(pc.Code); ok {
		return current
	}
	return derived
}

// derivedStatus builds the status implied by the stored row. prev, when set,
// supplies the attempt and the progress an expired code stopped at.
func (s *PairingService) derivedStatus(
	pc *models.PairingCode,
	prev *models.PairingStatus,
) models.PairingStatus {
	status := models.PairingStatus{
		Code:      pc.Code,
		Attempt:   1,
		UpdatedAt: s.clock.Now(),
	}
	if prev != nil {
		status.Attempt = prev.Attempt
	}
	switch {
	case pc.Used:
		status.State, status.Progress, status.Message = models.PairingCompleted, 100, "Pairing code redeemed"
	case pc.IsExpired(s.clock.Now()):
		status.State, status.Message = models.PairingFailed, "Pairing code expired"
		if prev != nil && prev.Progress < 100 {
			status.Progress = prev.Progress
		}
	default:
		status.State, status.Progress, status.Message = models.PairingCompleted, 100, "Pairing code ready"
	}
	return status
}

func normalizeCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}
