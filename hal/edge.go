package hal

import "sync/atomic"

// EdgeWaiter turns an IRQPin into a wait handle for select. The ISR only
// does a non-blocking send; the waiting task re-reads the level.
type EdgeWaiter struct {
	pin   IRQPin
	isrQ  chan struct{}
	armed atomic.Bool
}

var _ Waiter = (*EdgeWaiter)(nil)

func NewEdgeWaiter(pin IRQPin) *EdgeWaiter {
	return &EdgeWaiter{pin: pin, isrQ: make(chan struct{}, 1)}
}

// High samples the line.
func (w *EdgeWaiter) High() bool { return w.pin.Get() }

// Arm installs the rising-edge handler on first use and returns the handle it
// signals. Tokens coalesce and may be stale, so check High after each one.
func (w *EdgeWaiter) Arm() (<-chan struct{}, error) {
	if w.armed.Load() {
		return w.isrQ, nil
	}
	err := w.pin.SetIRQ(EdgeRising, func() {
		select {
		case w.isrQ <- struct{}{}:
		default:
		}
	})
	if err != nil {
		return nil, err
	}
	w.armed.Store(true)
	return w.isrQ, nil
}
