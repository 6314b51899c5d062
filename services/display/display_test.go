package display

import (
	"image/color"
	"testing"

	"fieldnode-go/types"
	"fieldnode-go/x/mailbox"
)

type fakeSurface struct {
	px      map[[2]int16]bool
	flushes int
	clears  int
}

func newFakeSurface() *fakeSurface { return &fakeSurface{px: map[[2]int16]bool{}} }

func (f *fakeSurface) Size() (int16, int16) { return 128, 64 }
func (f *fakeSurface) SetPixel(x, y int16, c color.RGBA) {
	if x < 0 || y < 0 || x >= 128 || y >= 64 {
		return
	}
	f.px[[2]int16{x, y}] = c.R != 0
}
func (f *fakeSurface) Display() error { f.flushes++; return nil }
func (f *fakeSurface) ClearBuffer() {
	f.clears++
	f.px = map[[2]int16]bool{}
}

func (f *fakeSurface) litIn(x0, x1 int16) int {
	n := 0
	for k, v := range f.px {
		if v && k[0] >= x0 && k[0] < x1 {
			n++
		}
	}
	return n
}

func TestFrameDrawsTableAndFlushes(t *testing.T) {
	s := newFakeSurface()
	task := New(s, mailbox.New[types.DisplayText](), nil)
	task.Frame()
	if s.flushes != 1 || s.clears != 1 {
		t.Fatalf("flushes = %d clears = %d", s.flushes, s.clears)
	}
	if s.litIn(tableX, 128) == 0 {
		t.Fatal("table not drawn")
	}
	if s.litIn(0, tableX) != 0 {
		t.Fatal("qr drawn without text")
	}
}

func TestFrameRendersQRFromMailbox(t *testing.T) {
	s := newFakeSurface()
	text := mailbox.New[types.DisplayText]()
	task := New(s, text, nil)
	text.Publish(types.NewDisplayText("IP: 192.168.4.2"))
	task.Frame()
	if s.litIn(qrOffsetX, tableX) == 0 {
		t.Fatal("qr not drawn")
	}
	// The code persists across frames without a new message.
	task.Frame()
	if s.litIn(qrOffsetX, tableX) == 0 {
		t.Fatal("qr lost on redraw")
	}
}

func TestRowsFromLinkQuality(t *testing.T) {
	link := mailbox.New[types.LinkQuality]()
	task := New(newFakeSurface(), mailbox.New[types.DisplayText](), link)
	if got := string(task.row(nil, 0)); got != "MHz: -" {
		t.Fatalf("got %q", got)
	}
	link.Publish(types.LinkQuality{FreqHz: 904_000_000, RSSI: -57, SNR: 10})
	task.Frame()
	want := []string{"MHz: 904.000", "SNR: 10 dB", "RSSI: -57 dBm"}
	for i, w := range want {
		if got := string(task.row(nil, i)); got != w {
			t.Fatalf("row %d = %q", i, got)
		}
	}
}
