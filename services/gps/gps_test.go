package gps

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"fieldnode-go/x/pipe"
)

type fakeUART struct {
	mu  sync.Mutex
	rx  []byte
	rd  chan struct{}
	tx  []byte
	err error
}

func newFakeUART() *fakeUART { return &fakeUART{rd: make(chan struct{}, 1)} }

func (f *fakeUART) inject(s string) {
	f.mu.Lock()
	f.rx = append(f.rx, s...)
	f.mu.Unlock()
	select {
	case f.rd <- struct{}{}:
	default:
	}
}

func (f *fakeUART) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.tx = append(f.tx, p...)
	return len(p), nil
}

func (f *fakeUART) written() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return string(f.tx)
}

func (f *fakeUART) RecvSomeContext(ctx context.Context, p []byte) (int, error) {
	for {
		f.mu.Lock()
		n := copy(p, f.rx)
		f.rx = f.rx[n:]
		f.mu.Unlock()
		if n > 0 {
			return n, nil
		}
		select {
		case <-f.rd:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
}

const gga = "$GPGGA,123519,4807.03800,N,01131.00000,E,1,08,0.9,545.4,M,46.9,M,,*47"

func TestFeedParsesSplitSentence(t *testing.T) {
	r := NewReader(newFakeUART(), pipe.New(PipeSize))
	r.Feed([]byte("noise\r\n" + gga[:20]))
	if r.Fixes() != 0 {
		t.Fatal("fix before line end")
	}
	r.Feed([]byte(gga[20:] + "\r\n"))
	if r.Fixes() != 1 {
		t.Fatalf("fixes = %d", r.Fixes())
	}
	if lat := r.Last().Latitude; lat < 48.10 || lat > 48.13 {
		t.Fatalf("lat = %v", lat)
	}
}

func TestFeedDropsOverlongLine(t *testing.T) {
	r := NewReader(newFakeUART(), pipe.New(PipeSize))
	r.Feed([]byte("$" + strings.Repeat("A", 2*maxLine) + "\n"))
	if r.Fixes() != 0 || len(r.line) != 0 {
		t.Fatalf("fixes = %d line = %d", r.Fixes(), len(r.line))
	}
}

func TestEcho(t *testing.T) {
	if got := string(Echo(nil, []byte("hi"))); got != "Received 2 bytes: hi\r\n" {
		t.Fatalf("got %q", got)
	}
	if got := string(Echo(nil, []byte{0xff, 0xfe})); got != "Received 2 bytes: [Invalid UTF-8]\r\n" {
		t.Fatalf("got %q", got)
	}
}

func TestReaderToWriterThroughPipe(t *testing.T) {
	u := newFakeUART()
	p := pipe.New(PipeSize)
	r, w := NewReader(u, p), NewWriter(u, p)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rdone := make(chan error, 1)
	go func() { rdone <- r.Run(ctx) }()
	go w.Run(ctx)

	u.inject("hello")
	deadline := time.Now().Add(2 * time.Second)
	for !strings.Contains(u.written(), "Received 5 bytes: hello\r\n") {
		if time.Now().After(deadline) {
			t.Fatalf("written = %q", u.written())
		}
		time.Sleep(2 * time.Millisecond)
	}
	if !strings.HasPrefix(u.written(), string(banner)) {
		t.Fatalf("no banner: %q", u.written())
	}
	cancel()
	if err := <-rdone; !errors.Is(err, context.Canceled) {
		t.Fatalf("reader = %v", err)
	}
}
