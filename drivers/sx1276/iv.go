package sx1276

import (
	"context"
	"time"

	"fieldnode-go/errcode"
	"fieldnode-go/hal"
	"fieldnode-go/x/timex"
)

// InterfaceVariant is the board-facing half of a radio driver: reset, IRQ
// waits, busy wait and RF switch direction. Chip families add a variant
// rather than changing callers.
type InterfaceVariant interface {
	Reset(ctx context.Context) error
	AwaitIRQ(ctx context.Context) error
	WaitOnBusy(ctx context.Context) error
	EnableRFSwitchRx() error
	EnableRFSwitchTx() error
	DisableRFSwitch() error
}

const (
	// IRQTimeout bounds one AwaitIRQ. Expiry is not an error; callers re-check
	// the chip's IRQ flags and wait again.
	IRQTimeout  = 100 * time.Millisecond
	resetSettle = 10 * time.Millisecond
)

// IV is the SX1276 variant: DIO0/DIO1 interrupt lines, an active-low reset
// and an optional RF switch. A nil switch pin means no switch is fitted.
type IV struct {
	dio0  hal.Waiter
	dio1  hal.Waiter
	reset hal.OutputPin
	rfRx  hal.OutputPin
	rfTx  hal.OutputPin

	window *time.Timer
	fired  [2]uint32
}

var _ InterfaceVariant = (*IV)(nil)

func NewIV(dio0, dio1 hal.Waiter, reset hal.OutputPin, rfRx, rfTx hal.OutputPin) *IV {
	w := time.NewTimer(IRQTimeout)
	w.Stop()
	return &IV{dio0: dio0, dio1: dio1, reset: reset, rfRx: rfRx, rfTx: rfTx, window: w}
}

// AwaitIRQ waits up to IRQTimeout for DIO0 or DIO1 to go high. It returns
// nil on an edge or when the window expires, and a tagged Irq error only
// when a line cannot be armed.
func (iv *IV) AwaitIRQ(ctx context.Context) error {
	if iv.sample() {
		return nil
	}
	h0, err := iv.dio0.Arm()
	if err != nil {
		return errcode.Wrap(errcode.Irq, "await_irq", err)
	}
	h1, err := iv.dio1.Arm()
	if err != nil {
		return errcode.Wrap(errcode.Irq, "await_irq", err)
	}
	timex.ResetTimer(iv.window, IRQTimeout)
	for {
		// An edge may land between the first sample and arming.
		if iv.sample() {
			return nil
		}
		select {
		case <-h0:
		case <-h1:
		case <-iv.window.C:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// sample counts and reports a line that is already high, DIO0 first.
func (iv *IV) sample() bool {
	switch {
	case iv.dio0.High():
		iv.fired[0]++
	case iv.dio1.High():
		iv.fired[1]++
	default:
		return false
	}
	return true
}

// Reset pulses the reset line low for 10 ms and lets the chip settle 10 ms.
func (iv *IV) Reset(ctx context.Context) error {
	if err := iv.reset.Set(false); err != nil {
		return errcode.Wrap(errcode.RadioReset, "reset", err)
	}
	if err := timex.Sleep(ctx, resetSettle); err != nil {
		return err
	}
	if err := iv.reset.Set(true); err != nil {
		return errcode.Wrap(errcode.RadioReset, "reset", err)
	}
	return timex.Sleep(ctx, resetSettle)
}

// WaitOnBusy is a no-op: the SX1276 has no busy line.
func (iv *IV) WaitOnBusy(context.Context) error { return nil }

func (iv *IV) EnableRFSwitchRx() error {
	if err := setOpt(iv.rfTx, false, errcode.RfSwitchTx); err != nil {
		return err
	}
	return setOpt(iv.rfRx, true, errcode.RfSwitchRx)
}

func (iv *IV) EnableRFSwitchTx() error {
	if err := setOpt(iv.rfRx, false, errcode.RfSwitchRx); err != nil {
		return err
	}
	return setOpt(iv.rfTx, true, errcode.RfSwitchTx)
}

// DisableRFSwitch parks both directions low.
func (iv *IV) DisableRFSwitch() error {
	if err := setOpt(iv.rfRx, false, errcode.RfSwitchRx); err != nil {
		return err
	}
	return setOpt(iv.rfTx, false, errcode.RfSwitchTx)
}

// Fired reports how many waits each DIO line has won.
func (iv *IV) Fired() (dio0, dio1 uint32) { return iv.fired[0], iv.fired[1] }

func setOpt(p hal.OutputPin, level bool, tag errcode.Code) error {
	if p == nil {
		return nil
	}
	if err := p.Set(level); err != nil {
		return errcode.Wrap(tag, "rf_switch", err)
	}
	return nil
}
