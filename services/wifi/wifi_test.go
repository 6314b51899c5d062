package wifi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"tinygo.org/x/drivers/netlink"

	"fieldnode-go/errcode"
	"fieldnode-go/types"
	"fieldnode-go/x/mailbox"
)

// fakeController connects once, stays up until drop is closed, then refuses
// further connects.
type fakeController struct {
	mu       sync.Mutex
	started  bool
	startErr error
	connects int
	drop     chan struct{}

	// liveErrs makes that many IsConnected calls fail; early records a
	// Start issued while they were still failing.
	liveErrs int
	early    bool
}

func newFakeController() *fakeController { return &fakeController{drop: make(chan struct{})} }

func (c *fakeController) IsStarted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.started
}
func (c *fakeController) Configure(ssid, pass string) error { return nil }
func (c *fakeController) Start(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.liveErrs > 0 {
		c.early = true
	}
	if c.startErr != nil {
		err := c.startErr
		c.startErr = nil
		return err
	}
	c.started = true
	return nil
}
func (c *fakeController) Connect(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connects++
	if c.connects > 1 {
		return errors.New("no ap")
	}
	return nil
}
func (c *fakeController) IsConnected() (bool, error) {
	c.mu.Lock()
	n := c.connects
	if c.liveErrs > 0 {
		c.liveErrs--
		c.mu.Unlock()
		return false, errcode.Busy
	}
	c.mu.Unlock()
	if n == 0 {
		return false, nil
	}
	select {
	case <-c.drop:
		return false, nil
	default:
		return true, nil
	}
}
func (c *fakeController) WaitDisconnected(ctx context.Context) error {
	select {
	case <-c.drop:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
func (c *fakeController) WaitConfigUp(context.Context) error { return nil }
func (c *fakeController) IPv4() (netip.Addr, bool) {
	return netip.AddrFrom4([4]byte{192, 168, 4, 2}), true
}

type idleRunner struct{}

func (idleRunner) Run(ctx context.Context) error { <-ctx.Done(); return ctx.Err() }

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestConnectThenDisassociate(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if r.Method != http.MethodPost || r.URL.Path != UploadPath || string(body) != string(uploadBody) {
			t.Errorf("request %s %s %q", r.Method, r.URL.Path, body)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content-type %q", ct)
		}
		hits.Add(1)
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	status := mailbox.New[types.WifiStatus]()
	display := mailbox.New[types.DisplayText]()
	ctl := newFakeController()
	sup := NewSupervisor(ctl, "net", "secret", status, display)
	sup.Retry, sup.Poll = 5*time.Millisecond, 2*time.Millisecond

	up := NewUploader(srv.Client(), srv.URL+"/", status)
	var mu sync.Mutex
	var seen []types.WifiStatus
	up.trace = func(s types.WifiStatus) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	}
	seenLen := func() int {
		mu.Lock()
		defer mu.Unlock()
		return len(seen)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go up.Run(ctx)
	supDone := make(chan error, 1)
	go func() { supDone <- sup.Run(ctx, idleRunner{}) }()

	eventually(t, "one request", func() bool { return hits.Load() == 1 && seenLen() == 1 })
	close(ctl.drop)
	eventually(t, "disconnected", func() bool { return seenLen() == 2 })

	// Reconnects keep failing; no further status or request.
	time.Sleep(30 * time.Millisecond)
	cancel()
	if err := <-supDone; !errors.Is(err, context.Canceled) {
		t.Fatalf("supervisor = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 || seen[0] != types.WifiConnected || seen[1] != types.WifiDisconnected {
		t.Fatalf("seen = %v", seen)
	}
	if hits.Load() != 1 || up.Attempts() != 1 {
		t.Fatalf("hits = %d attempts = %d", hits.Load(), up.Attempts())
	}
	if txt, ok := display.TryTake(); !ok || txt.String() != "IP: 192.168.4.2" {
		t.Fatalf("display = %q %v", txt.String(), ok)
	}
}

func TestStartFailureRetries(t *testing.T) {
	status := mailbox.New[types.WifiStatus]()
	ctl := newFakeController()
	ctl.startErr = errcode.InitFailed
	sup := NewSupervisor(ctl, "net", "secret", status, nil)
	sup.Retry, sup.Poll = time.Millisecond, time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	go sup.supervise(ctx)
	s, err := status.Wait(ctx)
	if err != nil || s != types.WifiConnected {
		t.Fatalf("status = %v, %v", s, err)
	}
}

type fakeNetlink struct {
	mu      sync.Mutex
	params  *netlink.ConnectParams
	notify  func(netlink.Event)
	connErr error
}

func (f *fakeNetlink) NetConnect(p *netlink.ConnectParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.params = p
	return f.connErr
}
func (f *fakeNetlink) NetDisconnect() {}
func (f *fakeNetlink) NetNotify(cb func(netlink.Event)) {
	f.mu.Lock()
	f.notify = cb
	f.mu.Unlock()
}
func (f *fakeNetlink) fire(ev netlink.Event) {
	f.mu.Lock()
	cb := f.notify
	f.mu.Unlock()
	cb(ev)
}

type staticAddr struct{ a netip.Addr }

func (s staticAddr) Addr() (netip.Addr, error) { return s.a, nil }

func TestLinkLifecycle(t *testing.T) {
	nl := &fakeNetlink{}
	l := NewLink(nl, staticAddr{netip.MustParseAddr("10.0.0.7")})

	if err := l.Configure("", "x"); !errors.Is(err, errcode.InvalidParams) {
		t.Fatalf("empty ssid: %v", err)
	}
	if err := l.Configure("0123456789012345678901234567890123", "x"); !errors.Is(err, errcode.InvalidParams) {
		t.Fatalf("long ssid: %v", err)
	}
	if err := l.Connect(context.Background()); !errors.Is(err, errcode.Busy) {
		t.Fatalf("connect before start: %v", err)
	}
	if err := l.Configure("net", "secret"); err != nil {
		t.Fatal(err)
	}
	if err := l.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	if err := l.Connect(ctx); err != nil {
		t.Fatal(err)
	}
	if nl.params.Ssid != "net" || nl.params.Passphrase != "secret" {
		t.Fatalf("params = %+v", nl.params)
	}
	if up, _ := l.IsConnected(); !up {
		t.Fatal("not up after connect")
	}
	if err := l.WaitConfigUp(ctx); err != nil {
		t.Fatal(err)
	}
	if ip, ok := l.IPv4(); !ok || ip.String() != "10.0.0.7" {
		t.Fatalf("ip = %v %v", ip, ok)
	}

	done := make(chan error, 1)
	go func() { done <- l.WaitDisconnected(ctx) }()
	nl.fire(netlink.EventNetDown)
	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(time.Second):
		t.Fatal("WaitDisconnected did not return")
	}
	if up, _ := l.IsConnected(); up {
		t.Fatal("still up after down event")
	}
}

func TestLivenessErrorBacksOffBeforeStarting(t *testing.T) {
	status := mailbox.New[types.WifiStatus]()
	ctl := newFakeController()
	ctl.liveErrs = 2
	sup := NewSupervisor(ctl, "net", "secret", status, nil)
	sup.Retry, sup.Poll = 5*time.Millisecond, 2*time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sup.Run(ctx, idleRunner{})

	start := time.Now()
	st, err := status.Wait(ctx)
	if err != nil || st != types.WifiConnected {
		t.Fatalf("status = %v, %v", st, err)
	}
	if el := time.Since(start); el < 2*sup.Retry {
		t.Fatalf("connected after %v, expected two retry delays", el)
	}
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	if ctl.early {
		t.Fatal("started while the liveness check was failing")
	}
}
