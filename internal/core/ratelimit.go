package core

import (
	"context"
	"time"
)

// RateLimitResult is the state of one (identifier, action) window after a hit.
type RateLimitResult struct {
	Count   int
	ResetAt time.Time
	Allowed bool
}

// RateLimitStore counts hits per key in fixed windows. Take must be atomic per
// key: concurrent callers never both observe the last free slot.
type RateLimitStore interface {
	Take(ctx context.Context, key string, limit int, window time.Duration) (RateLimitResult, error)
}
