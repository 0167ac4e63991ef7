package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/go-authgate/pairgate/internal/core"
)

var _ core.RateLimitStore = (*MemoryStore)(nil)

type window struct {
	count   int
	resetAt time.Time
}

// MemoryStore keeps fixed windows in process memory. It is the single
// instance default and the test double; all reads of time go through the
// injected clock.
type MemoryStore struct {
	mu         sync.Mutex
	clock      core.Clock
	windows    map[string]*window
	gcInterval time.Duration
	lastGC     time.Time
}

// NewMemoryStore creates a store that sweeps stale windows at most once per
// gcInterval, piggybacking on Take.
func NewMemoryStore(clock core.Clock, gcInterval time.Duration) *MemoryStore {
	return &MemoryStore{
		clock:      clock,
		windows:    make(map[string]*window),
		gcInterval: gcInterval,
		lastGC:     clock.Now(),
	}
}

func (s *MemoryStore) Take(
	ctx context.Context,
	key string,
	limit int,
	windowLen time.Duration,
) (core.RateLimitResult, error) {
	if err := ctx.Err(); err != nil {
		return core.RateLimitResult{}, err
	}

	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.collectLocked(now)

	w, ok := s.windows[key]
	if !ok || now.After(w.resetAt) {
		w = &window{resetAt: now.Add(windowLen)}
		s.windows[key] = w
	}

	if w.count >= limit {
		return core.RateLimitResult{Count: w.count, ResetAt: w.resetAt, Allowed: false}, nil
	}

	w.count++
	return core.RateLimitResult{Count: w.count, ResetAt: w.resetAt, Allowed: true}, nil
}

// Len reports the number of tracked windows, including stale ones not yet swept.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.windows)
}

func (s *MemoryStore) collectLocked(now time.Time) {
	if s.gcInterval <= 0 || now.Sub(s.lastGC) < s.gcInterval {
		return
	}
	for key, w := range s.windows {
		if now.After(w.resetAt) {
			delete(s.windows, key)
		}
	}
	s.lastGC = now
}
