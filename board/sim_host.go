//go:build !rp2040

package board

import (
	"context"
	"image/color"
	"net/netip"
	"sync"
	"time"

	"tinygo.org/x/drivers/netlink"
)

// NMEAUART replays one GGA sentence per period and swallows writes.
type NMEAUART struct {
	period time.Duration

	mu      sync.Mutex
	pending []byte
	written []byte
}

const simSentence = "$GPGGA,123519,4807.03800,N,01131.00000,E,1,08,0.9,545.4,M,46.9,M,,*47\r\n"

func NewNMEAUART(period time.Duration) *NMEAUART { return &NMEAUART{period: period} }

func (u *NMEAUART) Write(p []byte) (int, error) {
	u.mu.Lock()
	u.written = append(u.written, p...)
	if len(u.written) > 4096 {
		u.written = u.written[len(u.written)-4096:]
	}
	u.mu.Unlock()
	return len(p), nil
}

// Written returns the tail of what has been written.
func (u *NMEAUART) Written() []byte {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]byte(nil), u.written...)
}

func (u *NMEAUART) RecvSomeContext(ctx context.Context, p []byte) (int, error) {
	u.mu.Lock()
	if len(u.pending) == 0 {
		u.mu.Unlock()
		t := time.NewTimer(u.period)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-t.C:
		}
		u.mu.Lock()
		u.pending = append(u.pending, simSentence...)
	}
	n := copy(p, u.pending)
	u.pending = u.pending[n:]
	u.mu.Unlock()
	return n, nil
}

// SimNetlink associates immediately and reports loopback as its address.
type SimNetlink struct {
	mu     sync.Mutex
	notify func(netlink.Event)
	up     bool
}

func NewSimNetlink() *SimNetlink { return &SimNetlink{} }

func (s *SimNetlink) NetConnect(*netlink.ConnectParams) error {
	s.mu.Lock()
	s.up = true
	cb := s.notify
	s.mu.Unlock()
	if cb != nil {
		cb(netlink.EventNetUp)
	}
	return nil
}

func (s *SimNetlink) NetDisconnect() { s.Drop() }

func (s *SimNetlink) NetNotify(cb func(netlink.Event)) {
	s.mu.Lock()
	s.notify = cb
	s.mu.Unlock()
}

// Drop simulates losing the access point.
func (s *SimNetlink) Drop() {
	s.mu.Lock()
	s.up = false
	cb := s.notify
	s.mu.Unlock()
	if cb != nil {
		cb(netlink.EventNetDown)
	}
}

func (s *SimNetlink) Addr() (netip.Addr, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.up {
		return netip.Addr{}, nil
	}
	return netip.AddrFrom4([4]byte{127, 0, 0, 1}), nil
}

// NullSurface is a 128x64 display that draws nowhere.
type NullSurface struct{}

func (n *NullSurface) Size() (int16, int16)              { return 128, 64 }
func (n *NullSurface) SetPixel(int16, int16, color.RGBA) {}
func (n *NullSurface) ClearBuffer()                      {}
func (n *NullSurface) Display() error                    { return nil }
