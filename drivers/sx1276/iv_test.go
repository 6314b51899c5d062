package sx1276

import (
	"context"
	"errors"
	"testing"
	"time"

	"fieldnode-go/errcode"
	"fieldnode-go/hal"
	"fieldnode-go/hal/halfake"
)

// quiet returns a line that never rises.
func quiet(n int) hal.Waiter { return hal.NewEdgeWaiter(halfake.NewPin(n)) }

func newTestIV() (*IV, *halfake.Pin, *halfake.Pin, *halfake.Pin, *halfake.Pin, *halfake.Pin) {
	d0, d1 := halfake.NewPin(20), halfake.NewPin(21)
	rst, rx, tx := halfake.NewPin(22), halfake.NewPin(18), halfake.NewPin(19)
	iv := NewIV(hal.NewEdgeWaiter(d0), hal.NewEdgeWaiter(d1), rst, rx, tx)
	return iv, d0, d1, rst, rx, tx
}

func TestRFSwitchMutualExclusion(t *testing.T) {
	iv, _, _, _, rx, tx := newTestIV()
	seq := []struct {
		name string
		op   func() error
		rx   bool
		tx   bool
	}{
		{"rx", iv.EnableRFSwitchRx, true, false},
		{"tx", iv.EnableRFSwitchTx, false, true},
		{"tx again", iv.EnableRFSwitchTx, false, true},
		{"rx", iv.EnableRFSwitchRx, true, false},
		{"off", iv.DisableRFSwitch, false, false},
		{"tx", iv.EnableRFSwitchTx, false, true},
	}
	for _, s := range seq {
		if err := s.op(); err != nil {
			t.Fatalf("%s: %v", s.name, err)
		}
		if rx.Get() && tx.Get() {
			t.Fatalf("%s: both switch lines asserted", s.name)
		}
		if rx.Get() != s.rx || tx.Get() != s.tx {
			t.Fatalf("%s: rx=%v tx=%v", s.name, rx.Get(), tx.Get())
		}
	}
}

func TestRFSwitchDeassertsOppositeFirst(t *testing.T) {
	iv, _, _, _, rx, tx := newTestIV()
	if err := iv.EnableRFSwitchTx(); err != nil {
		t.Fatal(err)
	}
	// Watch ordering: when rx rises, tx must already be low.
	if err := rx.SetIRQ(hal.EdgeRising, func() {
		if tx.Get() {
			t.Error("rx asserted while tx still high")
		}
	}); err != nil {
		t.Fatal(err)
	}
	if err := iv.EnableRFSwitchRx(); err != nil {
		t.Fatal(err)
	}
}

func TestRFSwitchFailureTags(t *testing.T) {
	iv, _, _, _, rx, tx := newTestIV()
	boom := errors.New("gpio")

	rx.SetErr = boom
	if err := iv.EnableRFSwitchRx(); !errors.Is(err, errcode.RfSwitchRx) || !errors.Is(err, boom) {
		t.Fatalf("rx err = %v", err)
	}
	// Enabling tx first drives rx low, which fails too.
	if err := iv.EnableRFSwitchTx(); !errors.Is(err, errcode.RfSwitchRx) {
		t.Fatalf("tx err = %v", err)
	}
	if tx.Get() {
		t.Fatal("tx asserted after failed rx deassert")
	}

	rx.SetErr = nil
	tx.SetErr = boom
	if err := iv.EnableRFSwitchRx(); !errors.Is(err, errcode.RfSwitchTx) {
		t.Fatalf("rx err = %v", err)
	}
	if rx.Get() {
		t.Fatal("rx asserted after failed tx deassert")
	}
}

func TestRFSwitchAbsentIsNoop(t *testing.T) {
	iv := NewIV(quiet(20), quiet(21), halfake.NewPin(22), nil, nil)
	for _, op := range []func() error{iv.EnableRFSwitchRx, iv.EnableRFSwitchTx, iv.DisableRFSwitch} {
		if err := op(); err != nil {
			t.Fatalf("err = %v", err)
		}
	}
}

func TestResetSequence(t *testing.T) {
	iv, _, _, rst, _, _ := newTestIV()
	start := time.Now()
	if err := iv.Reset(context.Background()); err != nil {
		t.Fatal(err)
	}
	if el := time.Since(start); el < 2*resetSettle {
		t.Fatalf("reset took %v", el)
	}
	w := rst.Writes()
	if len(w) != 2 || w[0] != false || w[1] != true {
		t.Fatalf("writes = %v", w)
	}
}

func TestResetFailureTagged(t *testing.T) {
	iv, _, _, rst, _, _ := newTestIV()
	rst.SetErr = errors.New("gpio")
	if err := iv.Reset(context.Background()); !errors.Is(err, errcode.RadioReset) {
		t.Fatalf("err = %v", err)
	}
}

func TestAwaitIRQEitherLine(t *testing.T) {
	for _, line := range []int{0, 1} {
		iv, d0, d1, _, _, _ := newTestIV()
		pin := d0
		if line == 1 {
			pin = d1
		}
		done := make(chan error, 1)
		go func() { done <- iv.AwaitIRQ(context.Background()) }()
		time.Sleep(5 * time.Millisecond)
		pin.Drive(true)
		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("dio%d: %v", line, err)
			}
		case <-time.After(time.Second):
			t.Fatalf("dio%d: no return", line)
		}
		f0, f1 := iv.Fired()
		if (line == 0 && f0 != 1) || (line == 1 && f1 != 1) {
			t.Fatalf("dio%d: fired = %d,%d", line, f0, f1)
		}
	}
}

func TestAwaitIRQTimeoutIsNotAnError(t *testing.T) {
	iv := NewIV(quiet(20), quiet(21), halfake.NewPin(22), nil, nil)
	start := time.Now()
	if err := iv.AwaitIRQ(context.Background()); err != nil {
		t.Fatalf("err = %v", err)
	}
	if el := time.Since(start); el < IRQTimeout || el > 10*IRQTimeout {
		t.Fatalf("elapsed %v", el)
	}
}

func TestAwaitIRQLineError(t *testing.T) {
	boom := errors.New("arm")
	d0 := halfake.NewPin(20)
	d0.IRQErr = boom
	iv := NewIV(hal.NewEdgeWaiter(d0), quiet(21), halfake.NewPin(22), nil, nil)
	err := iv.AwaitIRQ(context.Background())
	if !errors.Is(err, errcode.Irq) || !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
}

func TestAwaitIRQParentCancel(t *testing.T) {
	iv := NewIV(quiet(20), quiet(21), halfake.NewPin(22), nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := iv.AwaitIRQ(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
}

func TestAwaitIRQLineAlreadyHigh(t *testing.T) {
	iv, _, d1, _, _, _ := newTestIV()
	d1.Drive(true)
	if err := iv.AwaitIRQ(context.Background()); err != nil {
		t.Fatal(err)
	}
	if f0, f1 := iv.Fired(); f0 != 0 || f1 != 1 {
		t.Fatalf("fired = %d,%d", f0, f1)
	}
}

func TestAwaitIRQDoesNotAllocate(t *testing.T) {
	iv, d0, _, _, _, _ := newTestIV()
	d0.Drive(true)
	ctx := context.Background()
	if n := testing.AllocsPerRun(100, func() { _ = iv.AwaitIRQ(ctx) }); n != 0 {
		t.Fatalf("allocs per AwaitIRQ (line high) = %v", n)
	}

	d0.Drive(false)
	if n := testing.AllocsPerRun(3, func() { _ = iv.AwaitIRQ(ctx) }); n != 0 {
		t.Fatalf("allocs per AwaitIRQ (window expiry) = %v", n)
	}
}

func TestAwaitIRQStaleTokenKeepsWaiting(t *testing.T) {
	iv, d0, _, _, _, _ := newTestIV()
	if err := iv.AwaitIRQ(context.Background()); err != nil { // arms both lines
		t.Fatal(err)
	}
	// Leave a token behind from an edge whose line is back low.
	d0.Drive(true)
	d0.Drive(false)
	start := time.Now()
	if err := iv.AwaitIRQ(context.Background()); err != nil {
		t.Fatal(err)
	}
	if el := time.Since(start); el < IRQTimeout {
		t.Fatalf("stale token ended the wait after %v", el)
	}
	if f0, _ := iv.Fired(); f0 != 0 {
		t.Fatalf("fired = %d", f0)
	}
}
