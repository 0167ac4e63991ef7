package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-authgate/pairgate/internal/core"
	"github.com/go-authgate/pairgate/internal/models"
	"github.com/go-authgate/pairgate/internal/store"
	"github.com/go-authgate/pairgate/internal/util"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const auditBatchSize = 100

var _ core.AuditLogger = (*AuditService)(nil)

// AuditService handles audit logging operations
type AuditService struct {
	store      *store.Store
	clock      core.Clock
	enabled    bool
	bufferSize int

	// Async logging channel
	logChan chan *models.AuditLog

	// Batch buffer
	batchBuffer []*models.AuditLog
	batchMutex  sync.Mutex
	batchTicker *time.Ticker

	// Graceful shutdown
	wg           sync.WaitGroup
	shutdownCh   chan struct{}
	shutdownOnce sync.Once
}

// NewAuditService creates a new audit service
func NewAuditService(
	s *store.Store,
	clock core.Clock,
	enabled bool,
	bufferSize int,
) *AuditService {
	if bufferSize <= 0 {
		bufferSize = 1000 // Default buffer size
	}

	service := &AuditService{
		store:       s,
		clock:       clock,
		enabled:     enabled,
		bufferSize:  bufferSize,
		logChan:     make(chan *models.AuditLog, bufferSize),
		batchBuffer: make([]*models.AuditLog, 0, auditBatchSize),
		batchTicker: time.NewTicker(1 * time.Second),
		shutdownCh:  make(chan struct{}),
	}

	if enabled {
		service.wg.Add(1)
		go service.worker()
		log.Info().Int("buffer_size", bufferSize).Msg("audit service started")
	} else {
		service.batchTicker.Stop()
		log.Info().Msg("audit service is disabled")
	}

	return service
}

// worker is the background goroutine that processes audit logs
func (s *AuditService) worker() {
	defer s.wg.Done()

	for {
		select {
		case entry := <-s.logChan:
			s.addToBatch(entry)

		case <-s.batchTicker.C:
			// Flush batch every second
			s.flushBatch()

		case <-s.shutdownCh:
			// Drain whatever is still queued, then flush
			s.drain()
			s.flushBatch()
			return
		}
	}
}

func (s *AuditService) drain() {
	for {
		select {
		case entry := <-s.logChan:
			s.addToBatch(entry)
		default:
			return
		}
	}
}

// addToBatch adds a log entry to the batch buffer
func (s *AuditService) addToBatch(entry *models.AuditLog) {
	s.batchMutex.Lock()
	defer s.batchMutex.Unlock()

	s.batchBuffer = append(s.batchBuffer, entry)

	if len(s.batchBuffer) >= auditBatchSize {
		s.flushBatchUnsafe()
	}
}

// flushBatch flushes the batch buffer to the database (thread-safe)
func (s *AuditService) flushBatch() {
	s.batchMutex.Lock()
	defer s.batchMutex.Unlock()
	s.flushBatchUnsafe()
}

// flushBatchUnsafe flushes the batch buffer without locking (caller must hold lock)
func (s *AuditService) flushBatchUnsafe() {
	if len(s.batchBuffer) == 0 {
		return
	}

	toWrite := make([]*models.AuditLog, len(s.batchBuffer))
	copy(toWrite, s.batchBuffer)
	s.batchBuffer = s.batchBuffer[:0]

	if err := s.store.CreateAuditLogBatch(toWrite); err != nil {
		log.Error().Err(err).Int("entries", len(toWrite)).Msg("failed to write audit log batch")
	}
}

// Log records an audit log entry asynchronously. It never blocks: when the
// buffer is full the entry is dropped with a warning.
func (s *AuditService) Log(ctx context.Context, entry core.AuditEntry) {
	if !s.enabled {
		return
	}

	auditLog := s.build(ctx, entry)

	select {
	case s.logChan <- auditLog:
	default:
		log.Warn().
			Str("event_type", string(entry.EventType)).
			Str("action", entry.Action).
			Msg("audit log buffer full, dropping event")
	}
}

// LogSync records an audit log entry synchronously (for critical events)
func (s *AuditService) LogSync(ctx context.Context, entry core.AuditEntry) error {
	if !s.enabled {
		return nil
	}
	return s.store.CreateAuditLog(s.build(ctx, entry))
}

func (s *AuditService) build(ctx context.Context, entry core.AuditEntry) *models.AuditLog {
	if entry.ActorIP == "" {
		entry.ActorIP = util.GetIPFromContext(ctx)
	}
	if entry.ActorDeviceID == "" {
		entry.ActorDeviceID = models.GetDeviceIDFromContext(ctx)
	}

	now := s.clock.Now()
	return &models.AuditLog{
		ID:            uuid.New().String(),
		EventType:     entry.EventType,
		EventTime:     now,
		Severity:      entry.Severity,
		ActorDeviceID: entry.ActorDeviceID,
		ActorIP:       entry.ActorIP,
		ResourceType:  entry.ResourceType,
		ResourceID:    entry.ResourceID,
		Action:        entry.Action,
		Details:       maskSensitiveDetails(entry.Details),
		Success:       entry.Success,
		ErrorMessage:  entry.ErrorMessage,
		UserAgent:     entry.UserAgent,
		RequestPath:   entry.RequestPath,
		RequestMethod: entry.RequestMethod,
		CreatedAt:     now,
	}
}

// GetAuditLogs retrieves audit logs with pagination and filtering
func (s *AuditService) GetAuditLogs(
	params store.PaginationParams,
	filters store.AuditLogFilters,
) ([]models.AuditLog, store.PaginationResult, error) {
	return s.store.GetAuditLogsPaginated(params, filters)
}

// CleanupOldLogs deletes audit logs older than the retention period
func (s *AuditService) CleanupOldLogs(retention time.Duration) (int64, error) {
	return s.store.DeleteOldAuditLogs(s.clock.Now().Add(-retention))
}

// Shutdown flushes pending entries and stops the worker.
func (s *AuditService) Shutdown(ctx context.Context) error {
	if !s.enabled {
		return nil
	}

	s.shutdownOnce.Do(func() {
		s.batchTicker.Stop()
		close(s.shutdownCh)
	})

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info().Msg("audit service shut down gracefully")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("audit service shutdown timeout: %w", ctx.Err())
	}
}

// maskSensitiveDetails masks sensitive information in audit log details
func maskSensitiveDetails(details models.AuditDetails) models.AuditDetails {
	if details == nil {
		return details
	}

	masked := make(models.AuditDetails)
	for key, value := range details {
		if isSensitiveField(key) {
			masked[key] = "***REDACTED***"
			continue
		}

		if isPartialMaskField(key) {
			if str, ok := value.(string); ok {
				masked[key] = partialMask(str)
				continue
			}
		}

		masked[key] = value
	}

	return masked
}

func partialMask(s string) string {
	if len(s) > 12 {
		return s[:8] + "..." + s[len(s)-4:]
	}
	if len(s) > 2 {
		return s[:2] + strings.Repeat("*", len(s)-2)
	}
	return "**"
}

func isSensitiveField(key string) bool {
	key = strings.ToLower(key)
	for _, field := range []string{"secret", "token", "password", "private_key"} {
		if strings.Contains(key, field) {
			return true
		}
	}
	return false
}

// isPartialMaskField matches values worth keeping recognisable but not replayable.
func isPartialMaskField(key string) bool {
	key = strings.ToLower(key)
	for _, field := range []string{"pairing_code", "fingerprint"} {
		if strings.Contains(key, field) {
			return true
		}
	}
	return false
}
