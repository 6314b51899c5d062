// Package mailbox provides a single-slot, latest-wins value holder.
//
// Publish never blocks. A pending value is claimed by exactly one of Wait or
// TryTake; an unread value is overwritten by the next Publish.
package mailbox

import (
	"context"
	"sync"
)

type Mailbox[T any] struct {
	mu      sync.Mutex
	val     T
	pending bool
	ready   chan struct{} // 1-token edge: empty -> pending
}

func New[T any]() *Mailbox[T] {
	return &Mailbox[T]{ready: make(chan struct{}, 1)}
}

// Publish stores v, replacing any unread value.
func (m *Mailbox[T]) Publish(v T) {
	m.mu.Lock()
	m.val = v
	m.pending = true
	m.mu.Unlock()
	select {
	case m.ready <- struct{}{}:
	default:
	}
}

// TryTake returns the pending value and clears the slot.
func (m *Mailbox[T]) TryTake() (T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var zero T
	if !m.pending {
		return zero, false
	}
	v := m.val
	m.val = zero
	m.pending = false
	return v, true
}

// Wait suspends until a value is pending, then claims it.
func (m *Mailbox[T]) Wait(ctx context.Context) (T, error) {
	for {
		if v, ok := m.TryTake(); ok {
			return v, nil
		}
		select {
		case <-m.ready:
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}

// Ready is a wait handle for select. A token only hints that a value may be
// pending; claim it with TryTake. Tokens can be stale.
func (m *Mailbox[T]) Ready() <-chan struct{} { return m.ready }
