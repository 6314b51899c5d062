// Package led drives a single indicator from a mailbox of requested states.
package led

import (
	"context"
	"time"

	"fieldnode-go/hal"
	"fieldnode-go/types"
	"fieldnode-go/x/mailbox"
	"fieldnode-go/x/timex"
)

const Cadence = 50 * time.Millisecond

type Coordinator struct {
	pin hal.OutputPin
	in  *mailbox.Mailbox[types.LedState]

	state    types.LedState
	failures uint32
}

func New(pin hal.OutputPin, in *mailbox.Mailbox[types.LedState]) *Coordinator {
	return &Coordinator{pin: pin, in: in, state: types.LedOff}
}

func (c *Coordinator) State() types.LedState { return c.state }

// Failures counts pin writes that returned an error.
func (c *Coordinator) Failures() uint32 { return c.failures }

// Run wakes on the cadence timer or a pending request, adopts any pending
// state and re-asserts the current one on the pin.
func (c *Coordinator) Run(ctx context.Context) error {
	t := time.NewTimer(Cadence)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		case <-c.in.Ready():
		}
		c.apply()
		timex.ResetTimer(t, Cadence)
	}
}

func (c *Coordinator) apply() {
	if s, ok := c.in.TryTake(); ok && s != c.state {
		c.state = s
		println("[LED]", s.String())
	}
	if err := c.pin.Set(c.state.Level()); err != nil {
		c.failures++
		println("[LED] pin write failed:", err.Error())
	}
}
