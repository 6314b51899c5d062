//go:build rp2040

package board

import (
	"machine"

	"fieldnode-go/hal"
)

// rp2Pin adapts machine.Pin to the hal pin interfaces.
type rp2Pin struct {
	p machine.Pin
}

var (
	_ hal.OutputPin = (*rp2Pin)(nil)
	_ hal.IRQPin    = (*rp2Pin)(nil)
)

func outputPin(n int, initial bool) *rp2Pin {
	r := &rp2Pin{p: machine.Pin(n)}
	r.p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	r.p.Set(initial)
	return r
}

func inputPin(n int, pull hal.Pull) *rp2Pin {
	var mode machine.PinMode
	switch pull {
	case hal.PullUp:
		mode = machine.PinInputPullup
	case hal.PullDown:
		mode = machine.PinInputPulldown
	default:
		mode = machine.PinInput
	}
	r := &rp2Pin{p: machine.Pin(n)}
	r.p.Configure(machine.PinConfig{Mode: mode})
	return r
}

// optOutput returns nil for n < 0 so callers see an absent pin.
func optOutput(n int) hal.OutputPin {
	if n < 0 {
		return nil
	}
	return outputPin(n, false)
}

func (r *rp2Pin) Set(level bool) error { r.p.Set(level); return nil }
func (r *rp2Pin) Get() bool            { return r.p.Get() }

// pinChange maps a hal edge onto the port's PinChange flags. EdgeNone and
// unknown edges map to zero, which leaves the interrupt disabled.
var pinChange = [...]machine.PinChange{
	hal.EdgeRising:  machine.PinRising,
	hal.EdgeFalling: machine.PinFalling,
	hal.EdgeBoth:    machine.PinToggle,
}

func (r *rp2Pin) SetIRQ(edge hal.Edge, handler func()) error {
	if int(edge) >= len(pinChange) || pinChange[edge] == 0 {
		return r.ClearIRQ()
	}
	return r.p.SetInterrupt(pinChange[edge], func(machine.Pin) { handler() })
}

// ClearIRQ detaches the handler from the line.
func (r *rp2Pin) ClearIRQ() error { return r.p.SetInterrupt(0, nil) }
