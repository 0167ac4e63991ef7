package broker

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/go-authgate/pairgate/internal/models"
)

// Subscription is one consumer's ordered view of a code's transitions. Its
// queue is unbounded so a slow reader never loses events.
type Subscription struct {
	broker   *Broker
	code     string
	deadline time.Time
	notify   chan struct{}

	mu       sync.Mutex
	queue    []models.StatusEvent
	last     *models.PairingStatus
	finished bool

	detachOnce sync.Once
}

// Code returns the pairing code being watched.
func (s *Subscription) Code() string { return s.code }

// push is called with the broker lock held.
func (s *Subscription) push(ev models.StatusEvent) {
	s.mu.Lock()
	if !s.finished {
		s.queue = append(s.queue, ev)
	}
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Next blocks until the next event. After a terminal or expired event has
// been returned, and after Close, it returns io.EOF. A cancelled ctx returns
// ctx.Err() and leaves the subscription usable.
func (s *Subscription) Next(ctx context.Context) (models.StatusEvent, error) {
	for {
		ev, ok, done := s.pop()
		if done {
			return models.StatusEvent{}, io.EOF
		}
		if ok {
			if ev.IsFinal() {
				s.finish()
			}
			return ev, nil
		}

		if s.deadline.IsZero() {
			select {
			case <-ctx.Done():
				return models.StatusEvent{}, ctx.Err()
			case <-s.notify:
			}
			continue
		}

		remaining := s.deadline.Sub(s.broker.clock.Now())
		if remaining <= 0 {
			return s.expire()
		}
		expired, err := s.wait(ctx, remaining)
		if err != nil {
			return models.StatusEvent{}, err
		}
		if expired {
			return s.expire()
		}
	}
}

func (s *Subscription) wait(ctx context.Context, d time.Duration) (bool, error) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case <-s.notify:
		return false, nil
	case <-timer.C:
		return true, nil
	}
}

// Close detaches the subscription; safe to call more than once.
func (s *Subscription) Close() {
	s.finish()
}

func (s *Subscription) pop() (models.StatusEvent, bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.queue) == 0 {
		return models.StatusEvent{}, false, s.finished
	}
	ev := s.queue[0]
	s.queue[0] = models.StatusEvent{}
	s.queue = s.queue[1:]
	if ev.Status != nil {
		s.last = ev.Status
	}
	return ev, true, false
}

func (s *Subscription) expire() (models.StatusEvent, error) {
	s.mu.Lock()
	if s.finished && len(s.queue) == 0 {
		s.mu.Unlock()
		return models.StatusEvent{}, io.EOF
	}
	status := models.PairingStatus{
		Code:      s.code,
		State:     models.PairingFailed,
		Message:   "Pairing code expired",
		UpdatedAt: s.broker.clock.Now(),
	}
	if s.last != nil {
		status.Attempt = s.last.Attempt
		status.Progress = s.last.Progress
	}
	s.mu.Unlock()

	s.finish()
	return models.StatusEvent{
		Type:   models.StatusEventExpired,
		Code:   s.code,
		Status: &status,
	}, nil
}

func (s *Subscription) finish() {
	s.mu.Lock()
	s.finished = true
	s.queue = nil
	s.mu.Unlock()

	s.detachOnce.Do(func() {
		s.broker.detach(s)
	})

	// Wake a reader blocked in Next so it observes the end.
	select {
	case s.notify <- struct{}{}:
	default:
	}
}
