package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-authgate/pairgate/internal/core"
)

// Actions gated by the limiter.
const (
	ActionRegistration = "registration"
	ActionPairingCode  = "pairing_code"
	ActionPairing      = "pairing"
	ActionKeyExchange  = "key_exchange"
)

// Rule caps an action at Max occurrences per Window.
type Rule struct {
	Max    int
	Window time.Duration
}

// Decision is the outcome of a single Check.
type Decision struct {
	Allowed    bool
	Count      int
	Limit      int
	ResetAt    time.Time
	RetryAfter time.Duration // zero when allowed
}

// DefaultRules returns the built-in per-action limits.
func DefaultRules() map[string]Rule {
	return map[string]Rule{
		ActionRegistration: {Max: 5, Window: time.Hour},
		ActionPairingCode:  {Max: 10, Window: time.Hour},
		ActionPairing:      {Max: 3, Window: time.Hour},
		ActionKeyExchange:  {Max: 5, Window: time.Minute},
	}
}

// Limiter applies per-action fixed windows keyed by (identifier, action).
type Limiter struct {
	store core.RateLimitStore
	clock core.Clock
	rules map[string]Rule
}

// New creates a limiter. Actions without a rule are always allowed, so an
// empty rule set disables limiting.
func New(store core.RateLimitStore, clock core.Clock, rules map[string]Rule) *Limiter {
	copied := make(map[string]Rule, len(rules))
	for action, rule := range rules {
		copied[action] = rule
	}
	return &Limiter{store: store, clock: clock, rules: copied}
}

// Rule returns the configured rule for action.
func (l *Limiter) Rule(action string) (Rule, bool) {
	rule, ok := l.rules[action]
	return rule, ok
}

// Check records one occurrence of action for identifier and reports whether
// it is allowed. Denied calls do not extend the window.
func (l *Limiter) Check(ctx context.Context, identifier, action string) (Decision, error) {
	rule, ok := l.rules[action]
	if !ok {
		return Decision{Allowed: true}, nil
	}

	result, err := l.store.Take(ctx, Key(identifier, action), rule.Max, rule.Window)
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit store: %w", err)
	}

	decision := Decision{
		Allowed: result.Allowed,
		Count:   result.Count,
		Limit:   rule.Max,
		ResetAt: result.ResetAt,
	}
	if !result.Allowed {
		decision.RetryAfter = max(result.ResetAt.Sub(l.clock.Now()), 0)
	}
	return decision, nil
}

// Key builds the store key for an (identifier, action) pair.
func Key(identifier, action string) string {
	return action + ":" + identifier
}
