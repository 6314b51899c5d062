package led

import (
	"context"
	"errors"
	"testing"
	"time"

	"fieldnode-go/hal/halfake"
	"fieldnode-go/types"
	"fieldnode-go/x/mailbox"
)

func TestApplyReassertsEveryIteration(t *testing.T) {
	pin := halfake.NewPin(25)
	mb := mailbox.New[types.LedState]()
	c := New(pin, mb)

	c.apply()
	mb.Publish(types.LedOn)
	c.apply()
	c.apply()

	w := pin.Writes()
	if len(w) != 3 || w[0] || !w[1] || !w[2] {
		t.Fatalf("writes = %v", w)
	}
	if c.State() != types.LedOn {
		t.Fatalf("state = %v", c.State())
	}
}

func TestLatestRequestWins(t *testing.T) {
	pin := halfake.NewPin(25)
	mb := mailbox.New[types.LedState]()
	c := New(pin, mb)
	mb.Publish(types.LedOn)
	mb.Publish(types.LedOff)
	c.apply()
	if c.State() != types.LedOff || pin.Get() {
		t.Fatalf("state = %v level = %v", c.State(), pin.Get())
	}
}

func TestPinFailureIsNotFatal(t *testing.T) {
	pin := halfake.NewPin(25)
	pin.SetErr = errors.New("gpio")
	mb := mailbox.New[types.LedState]()
	c := New(pin, mb)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	time.Sleep(4 * Cadence)
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("run = %v", err)
	}
	if c.Failures() == 0 {
		t.Fatal("no failures counted")
	}
}

func TestRequestPreemptsTimer(t *testing.T) {
	pin := halfake.NewPin(25)
	mb := mailbox.New[types.LedState]()
	c := New(pin, mb)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	mb.Publish(types.LedOn)
	deadline := time.After(Cadence / 2)
	for !pin.Get() {
		select {
		case <-deadline:
			t.Fatal("request not applied before the next tick")
		case <-time.After(time.Millisecond):
		}
	}
	cancel()
	<-done
}
