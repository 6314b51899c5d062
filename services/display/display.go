// Package display renders the status screen: a QR code of the latest
// message on the left and the radio link table on the right.
package display

import (
	"context"
	"image/color"
	"time"

	qrcode "github.com/skip2/go-qrcode"
	"tinygo.org/x/drivers"
	"tinygo.org/x/tinyfont"

	"fieldnode-go/types"
	"fieldnode-go/x/conv"
	"fieldnode-go/x/mailbox"
)

// Surface is a buffered monochrome display. *ssd1306.Device satisfies it.
type Surface interface {
	drivers.Displayer
	ClearBuffer()
}

const (
	FramePeriod = 250 * time.Millisecond

	qrScale   = 2
	qrOffsetX = 5
	qrOffsetY = 0

	tableX       = 50
	tableY       = 8
	tableSpacing = 12
)

var on = color.RGBA{R: 255, G: 255, B: 255, A: 255}

type Task struct {
	s    Surface
	text *mailbox.Mailbox[types.DisplayText]
	link *mailbox.Mailbox[types.LinkQuality]

	qr     [][]bool
	lq     types.LinkQuality
	haveLQ bool
	line   []byte
}

// New draws on s. link may be nil, in which case the table shows
// placeholders.
func New(s Surface, text *mailbox.Mailbox[types.DisplayText], link *mailbox.Mailbox[types.LinkQuality]) *Task {
	return &Task{s: s, text: text, link: link, line: make([]byte, 0, 32)}
}

func (t *Task) Run(ctx context.Context) error {
	println("[OLED] Starting display task")
	tick := time.NewTicker(FramePeriod)
	defer tick.Stop()
	for {
		t.Frame()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
		}
	}
}

// Frame picks up pending updates and redraws the whole screen.
func (t *Task) Frame() {
	if txt, ok := t.text.TryTake(); ok {
		if err := t.encode(txt.String()); err != nil {
			println("[OLED] QR error:", err.Error())
		}
	}
	if t.link != nil {
		if lq, ok := t.link.TryTake(); ok {
			t.lq, t.haveLQ = lq, true
		}
	}
	t.s.ClearBuffer()
	t.drawQR()
	t.drawTable()
	_ = t.s.Display() // a missed flush is redrawn next frame
}

func (t *Task) encode(s string) error {
	q, err := qrcode.New(s, qrcode.Low)
	if err != nil {
		return err
	}
	q.DisableBorder = true
	t.qr = q.Bitmap()
	return nil
}

// drawQR lights the light modules so the code reads on a dark panel.
func (t *Task) drawQR() {
	for y, row := range t.qr {
		for x, dark := range row {
			if dark {
				continue
			}
			px := int16(qrOffsetX + x*qrScale)
			py := int16(qrOffsetY + y*qrScale)
			for dy := int16(0); dy < qrScale; dy++ {
				for dx := int16(0); dx < qrScale; dx++ {
					t.s.SetPixel(px+dx, py+dy, on)
				}
			}
		}
	}
}

func (t *Task) drawTable() {
	for i := 0; i < 3; i++ {
		t.line = t.row(t.line[:0], i)
		y := int16(tableY + i*tableSpacing)
		tinyfont.WriteLine(t.s, &tinyfont.Org01, tableX, y, string(t.line), on)
	}
}

func (t *Task) row(b []byte, i int) []byte {
	switch i {
	case 0:
		b = append(b, "MHz: "...)
		if !t.haveLQ {
			return append(b, '-')
		}
		return conv.AppendFixed(b, uint64(t.lq.FreqHz/1000), 3)
	case 1:
		b = append(b, "SNR: "...)
		if !t.haveLQ {
			return append(b, '-')
		}
		return append(conv.AppendInt(b, int64(t.lq.SNR)), " dB"...)
	default:
		b = append(b, "RSSI: "...)
		if !t.haveLQ {
			return append(b, '-')
		}
		return append(conv.AppendInt(b, int64(t.lq.RSSI)), " dBm"...)
	}
}
