package wifi

import (
	"context"
	"net/netip"
	"sync"
	"time"

	"tinygo.org/x/drivers/netlink"

	"fieldnode-go/errcode"
)

// Netlink is the part of netlink.Netlinker the link adapter drives.
type Netlink interface {
	NetConnect(params *netlink.ConnectParams) error
	NetDisconnect()
	NetNotify(cb func(netlink.Event))
}

// Addresser reports the interface address once DHCP has completed.
// netdev.Netdever satisfies it.
type Addresser interface {
	Addr() (netip.Addr, error)
}

const addrPoll = 100 * time.Millisecond

// Link adapts a netlink driver to Controller. Run must be running for link
// events to be observed.
type Link struct {
	nl  Netlink
	dev Addresser

	mu      sync.Mutex
	params  netlink.ConnectParams
	started bool
	up      bool

	events chan netlink.Event
	down   chan struct{}
}

var _ Controller = (*Link)(nil)

// NewLink wraps nl. dev may be nil when the stack exposes no address.
func NewLink(nl Netlink, dev Addresser) *Link {
	return &Link{
		nl:     nl,
		dev:    dev,
		events: make(chan netlink.Event, 4),
		down:   make(chan struct{}, 1),
	}
}

func (l *Link) IsStarted() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.started
}

// Configure sets station credentials. SSID is at most 32 bytes and the
// passphrase at most 64.
func (l *Link) Configure(ssid, pass string) error {
	if ssid == "" || len(ssid) > 32 || len(pass) > 64 {
		return errcode.InvalidParams
	}
	l.mu.Lock()
	l.params = netlink.ConnectParams{
		ConnectMode: netlink.ConnectModeSTA,
		Ssid:        ssid,
		Passphrase:  pass,
	}
	l.mu.Unlock()
	return nil
}

// Start hooks link notifications.
func (l *Link) Start(context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.params.Ssid == "" {
		return errcode.InvalidParams
	}
	if l.started {
		return nil
	}
	l.nl.NetNotify(func(ev netlink.Event) {
		select {
		case l.events <- ev:
		default:
		}
	})
	l.started = true
	return nil
}

// Connect associates. The netlink call blocks until the driver gives up or
// the link is up.
func (l *Link) Connect(ctx context.Context) error {
	if !l.IsStarted() {
		return errcode.Busy
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	p := l.params
	l.mu.Unlock()
	if err := l.nl.NetConnect(&p); err != nil {
		return err
	}
	l.setUp(true)
	return nil
}

func (l *Link) IsConnected() (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.up, nil
}

func (l *Link) WaitDisconnected(ctx context.Context) error {
	for {
		if up, _ := l.IsConnected(); !up {
			return nil
		}
		select {
		case <-l.down:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// WaitConfigUp waits for a usable IPv4 address.
func (l *Link) WaitConfigUp(ctx context.Context) error {
	if l.dev == nil {
		return nil
	}
	t := time.NewTicker(addrPoll)
	defer t.Stop()
	for {
		if _, ok := l.IPv4(); ok {
			return nil
		}
		select {
		case <-t.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (l *Link) IPv4() (netip.Addr, bool) {
	if l.dev == nil {
		return netip.Addr{}, false
	}
	a, err := l.dev.Addr()
	if err != nil || !a.Is4() || a.IsUnspecified() {
		return netip.Addr{}, false
	}
	return a, true
}

// Run consumes link events until ctx ends.
func (l *Link) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			l.nl.NetDisconnect()
			return ctx.Err()
		case ev := <-l.events:
			switch ev {
			case netlink.EventNetUp:
				println("[WIFI] link up")
				l.setUp(true)
			case netlink.EventNetDown:
				println("[WIFI] link down")
				l.setUp(false)
			}
		}
	}
}

func (l *Link) setUp(up bool) {
	l.mu.Lock()
	l.up = up
	l.mu.Unlock()
	if !up {
		select {
		case l.down <- struct{}{}:
		default:
		}
	}
}
