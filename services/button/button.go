// Package button debounces a push button by polling and publishes
// Pressed, LongPressed and Released transitions on a mailbox.
package button

import (
	"context"
	"time"

	"fieldnode-go/hal"
	"fieldnode-go/types"
	"fieldnode-go/x/mailbox"
)

const (
	DebounceTick   = 50 * time.Millisecond
	LongPressAfter = 1000 * time.Millisecond
)

type Button struct {
	pin    hal.InputPin
	out    *mailbox.Mailbox[types.ButtonState]
	invert bool

	state    types.ButtonState
	held     time.Duration
	longSent bool
}

// New polls pin. With invert set the button reads pressed when the line is
// low (pull-up wiring).
func New(pin hal.InputPin, out *mailbox.Mailbox[types.ButtonState], invert bool) *Button {
	return &Button{pin: pin, out: out, invert: invert}
}

func (b *Button) State() types.ButtonState { return b.state }

// Step advances the FSM by one tick given the logical pressed level. It
// reports the new state when a transition was emitted.
func (b *Button) Step(pressed bool) (types.ButtonState, bool) {
	if !pressed {
		b.held = 0
		if b.state == types.ButtonReleased {
			return b.state, false
		}
		return b.emit(types.ButtonReleased), true
	}
	if b.state == types.ButtonReleased {
		b.longSent = false
		return b.emit(types.ButtonPressed), true
	}
	b.held += DebounceTick
	if b.held > LongPressAfter && !b.longSent {
		b.longSent = true
		return b.emit(types.ButtonLongPressed), true
	}
	return b.state, false
}

func (b *Button) emit(s types.ButtonState) types.ButtonState {
	b.state = s
	b.out.Publish(s)
	println("[BUTTON]", s.String())
	return s
}

// Run samples the pin every DebounceTick until ctx ends.
func (b *Button) Run(ctx context.Context) error {
	tick := time.NewTicker(DebounceTick)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
			b.Step(b.pin.Get() != b.invert)
		}
	}
}
