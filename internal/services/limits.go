package services

import (
	"context"
	"fmt"

	"github.com/go-authgate/pairgate/internal/core"
	"github.com/go-authgate/pairgate/internal/models"
	"github.com/go-authgate/pairgate/internal/ratelimit"
)

// gate consults the limiter and turns a denial into a *RateLimitError.
type gate struct {
	limiter *ratelimit.Limiter
	audit   core.AuditLogger
	metrics core.Recorder
}

func (g gate) check(ctx context.Context, identifier, action string) error {
	decision, err := g.limiter.Check(ctx, identifier, action)
	if err != nil {
		return fmt.Errorf("failed to check rate limit: %w", err)
	}
	if decision.Allowed {
		return nil
	}

	g.metrics.RecordRateLimited(action)
	g.audit.Log(ctx, core.AuditEntry{
		EventType:     models.EventRateLimitExceeded,
		Severity:      models.SeverityWarning,
		ActorDeviceID: models.GetDeviceIDFromContext(ctx),
		Action:        "Rate limit exceeded for " + action,
		Details: models.AuditDetails{
			"action":     action,
			"identifier": identifier,
			"limit":      decision.Limit,
		},
		Success: false,
	})

	return &RateLimitError{
		Action:     action,
		RetryAfter: decision.RetryAfter,
		ResetAt:    decision.ResetAt,
	}
}
