// Package wifi keeps the station link associated and reports its status,
// and posts to the backend whenever the link comes up.
package wifi

import (
	"context"
	"net/netip"
	"time"

	"fieldnode-go/types"
	"fieldnode-go/x/mailbox"
	"fieldnode-go/x/timex"
)

// Controller is the station radio as the supervisor sees it.
type Controller interface {
	IsStarted() bool
	Configure(ssid, pass string) error
	Start(ctx context.Context) error
	Connect(ctx context.Context) error
	IsConnected() (bool, error)
	WaitDisconnected(ctx context.Context) error
	WaitConfigUp(ctx context.Context) error
	IPv4() (netip.Addr, bool)
}

// Runner is the controller's own event loop.
type Runner interface {
	Run(ctx context.Context) error
}

const (
	RetryDelay   = 1000 * time.Millisecond
	LivenessPoll = 500 * time.Millisecond
)

type Supervisor struct {
	ctl     Controller
	status  *mailbox.Mailbox[types.WifiStatus]
	display *mailbox.Mailbox[types.DisplayText]
	ssid    string
	pass    string

	Retry time.Duration
	Poll  time.Duration
}

func NewSupervisor(ctl Controller, ssid, pass string, status *mailbox.Mailbox[types.WifiStatus], display *mailbox.Mailbox[types.DisplayText]) *Supervisor {
	return &Supervisor{
		ctl: ctl, status: status, display: display,
		ssid: ssid, pass: pass,
		Retry: RetryDelay, Poll: LivenessPoll,
	}
}

// Run drives r and the supervisory loop side by side and returns once both
// have stopped, with the first error either reported.
func (s *Supervisor) Run(ctx context.Context, r Runner) error {
	println("[WIFI] Start connection task")
	errc := make(chan error, 2)
	go func() { errc <- r.Run(ctx) }()
	go func() { errc <- s.supervise(ctx) }()
	err := <-errc
	if err2 := <-errc; err == nil {
		err = err2
	}
	return err
}

func (s *Supervisor) supervise(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		up, err := s.ctl.IsConnected()
		if err != nil {
			println("[WIFI] Failed to check connection:", err.Error())
			if err := timex.Sleep(ctx, s.Retry); err != nil {
				return err
			}
			continue
		}
		if up {
			if err := s.ctl.WaitDisconnected(ctx); err != nil {
				return err
			}
			continue
		}

		if !s.ctl.IsStarted() {
			if err := s.start(ctx); err != nil {
				println("[WIFI] Failed to start wifi:", err.Error())
				// A retry with no pause would never yield on a cooperative scheduler.
				if err := timex.Sleep(ctx, s.Retry); err != nil {
					return err
				}
				continue
			}
		}

		println("[WIFI] About to connect ...")
		if err := s.ctl.Connect(ctx); err != nil {
			println("[WIFI] Failed to connect to wifi:", err.Error())
			if err := timex.Sleep(ctx, s.Retry); err != nil {
				return err
			}
			continue
		}

		println("[WIFI] Wifi connected, Waiting to get IP address...")
		if err := s.ctl.WaitConfigUp(ctx); err != nil {
			return err
		}
		s.status.Publish(types.WifiConnected)
		if ip, ok := s.ctl.IPv4(); ok {
			println("[WIFI] IP:", ip.String())
			if s.display != nil {
				s.display.Publish(types.NewDisplayText("IP: " + ip.String()))
			}
		}

		if err := s.watch(ctx); err != nil {
			return err
		}
		s.status.Publish(types.WifiDisconnected)
		println("[WIFI] Send disconnected signal")
	}
}

func (s *Supervisor) start(ctx context.Context) error {
	if err := s.ctl.Configure(s.ssid, s.pass); err != nil {
		return err
	}
	println("[WIFI] Starting wifi")
	if err := s.ctl.Start(ctx); err != nil {
		return err
	}
	println("[WIFI] Wifi started!")
	return nil
}

// watch polls liveness until the link drops or the check fails.
func (s *Supervisor) watch(ctx context.Context) error {
	for {
		up, err := s.ctl.IsConnected()
		if err != nil {
			println("[WIFI] Failed to check connection:", err.Error())
			return timex.Sleep(ctx, s.Retry)
		}
		if !up {
			return nil
		}
		if err := timex.Sleep(ctx, s.Poll); err != nil {
			return err
		}
	}
}
