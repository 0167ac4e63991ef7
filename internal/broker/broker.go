// Package broker fans pairing status transitions out to pollers and
// streaming subscribers.
package broker

import (
	"sync"
	"time"

	"github.com/go-authgate/pairgate/internal/core"
	"github.com/go-authgate/pairgate/internal/models"
)

// Broker keeps the latest status per code and the live subscriptions.
type Broker struct {
	clock core.Clock

	mu        sync.Mutex
	snapshots map[string]models.PairingStatus
	subs      map[string]map[*Subscription]struct{}
}

func New(clock core.Clock) *Broker {
	return &Broker{
		clock:     clock,
		snapshots: make(map[string]models.PairingStatus),
		subs:      make(map[string]map[*Subscription]struct{}),
	}
}

// Publish stores status as the snapshot for its code and delivers it to every
// subscriber. It returns false when the status was dropped: an older attempt,
// anything after a terminal status of the same attempt, or a progress value
// lower than the current one.
func (b *Broker) Publish(status models.PairingStatus) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if cur, ok := b.snapshots[status.Code]; ok {
		switch {
		case status.Attempt < cur.Attempt:
			return false
		case status.Attempt == cur.Attempt:
			if cur.State.IsTerminal() || status.Progress < cur.Progress {
				return false
			}
		}
	}

	b.store(status)
	return true
}

// Reset replaces the snapshot for status.Code without the ordering checks of
// Publish and delivers it to every subscriber. A newly issued row starts its
// sequence this way even if an older row with the same value left a terminal
// snapshot behind.
func (b *Broker) Reset(status models.PairingStatus) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.store(status)
}

// CompareAndSwap replaces the snapshot for status.Code with status only if
// the current snapshot equals *prev, or if there is none and prev is nil. The
// ordering checks of Publish do not apply.
func (b *Broker) CompareAndSwap(prev *models.PairingStatus, status models.PairingStatus) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	cur, ok := b.snapshots[status.Code]
	if ok != (prev != nil) || (ok && cur != *prev) {
		return false
	}
	b.store(status)
	return true
}

// store must be called with b.mu held.
func (b *Broker) store(status models.PairingStatus) {
	b.snapshots[status.Code] = status
	for sub := range b.subs[status.Code] {
		snapshot := status
		sub.push(models.StatusEvent{
			Type:   models.StatusEventStatus,
			Code:   status.Code,
			Status: &snapshot,
		})
	}
}

// Status returns the current snapshot for code.
func (b *Broker) Status(code string) (models.PairingStatus, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	status, ok := b.snapshots[code]
	return status, ok
}

// Subscribe opens a subscription that first yields a connected event, then the
// current snapshot if there is one, then live transitions. A zero deadline
// means the subscription only ends on a terminal status or Close.
func (b *Broker) Subscribe(code string, deadline time.Time) *Subscription {
	sub := &Subscription{
		broker:   b,
		code:     code,
		deadline: deadline,
		notify:   make(chan struct{}, 1),
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	sub.push(models.StatusEvent{Type: models.StatusEventConnected, Code: code})
	if status, ok := b.snapshots[code]; ok {
		sub.push(models.StatusEvent{Type: models.StatusEventStatus, Code: code, Status: &status})
	}

	if b.subs[code] == nil {
		b.subs[code] = make(map[*Subscription]struct{})
	}
	b.subs[code][sub] = struct{}{}
	return sub
}

// Forget drops the snapshot for code. Open subscriptions are left alone and
// still end at their deadline.
func (b *Broker) Forget(code string) {
	b.mu.Lock()
	delete(b.snapshots, code)
	b.mu.Unlock()
}

// SubscriberCount reports the number of open subscriptions for code.
func (b *Broker) SubscriberCount(code string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[code])
}

func (b *Broker) detach(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if set, ok := b.subs[sub.code]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(b.subs, sub.code)
		}
	}
}
