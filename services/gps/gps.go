// Package gps moves bytes between the GPS UART and the byte pipe and logs
// position fixes parsed from the NMEA stream.
package gps

import (
	"context"
	"time"
	"unicode/utf8"

	"tinygo.org/x/drivers/gps"

	"fieldnode-go/x/conv"
	"fieldnode-go/x/pipe"
	"fieldnode-go/x/timex"
)

const (
	PipeSize   = 4096
	maxChunk   = 256
	maxLine    = 120 // NMEA sentences are at most 82 bytes
	readWindow = 250 * time.Millisecond
	errBackoff = 50 * time.Millisecond
)

// Port is the UART surface both tasks use. uartx.UART satisfies it.
type Port interface {
	Write(p []byte) (int, error)
	RecvSomeContext(ctx context.Context, p []byte) (int, error)
}

// Reader assembles NMEA lines from the UART and forwards every raw chunk
// into the pipe.
type Reader struct {
	port   Port
	out    *pipe.Pipe
	parser gps.Parser

	buf  [maxChunk]byte
	line []byte
	msg  []byte

	fixes uint32
	last  gps.Fix
}

func NewReader(port Port, out *pipe.Pipe) *Reader {
	return &Reader{port: port, out: out, parser: gps.NewParser(), line: make([]byte, 0, maxLine)}
}

// Fixes reports how many valid fixes have been parsed.
func (r *Reader) Fixes() uint32 { return r.fixes }

// Last returns the most recent valid fix.
func (r *Reader) Last() gps.Fix { return r.last }

func (r *Reader) Run(ctx context.Context) error {
	println("[GPS] UART RX initialized")
	for {
		// Bound each wait so shutdown is observed.
		rctx, cancel := context.WithTimeout(ctx, readWindow)
		n, err := r.port.RecvSomeContext(rctx, r.buf[:])
		cancel()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil && n == 0 {
			if rctx.Err() == nil {
				println("[GPS] Rx Error:", err.Error())
				if err := timex.Sleep(ctx, errBackoff); err != nil {
					return err
				}
			}
			continue
		}
		if n == 0 {
			continue
		}
		r.Feed(r.buf[:n])
		if _, err := r.out.Write(ctx, r.buf[:n]); err != nil {
			return err
		}
	}
}

// Feed runs bytes through line assembly, parsing each complete sentence.
func (r *Reader) Feed(p []byte) {
	for _, b := range p {
		switch b {
		case '$':
			r.line = append(r.line[:0], b)
		case '\r':
		case '\n':
			if len(r.line) > 0 {
				r.sentence(string(r.line))
			}
			r.line = r.line[:0]
		default:
			if len(r.line) == 0 {
				continue // wait for a '$'
			}
			if len(r.line) == maxLine {
				r.line = r.line[:0] // overlong, drop
				continue
			}
			r.line = append(r.line, b)
		}
	}
}

func (r *Reader) sentence(s string) {
	fix, err := r.parser.Parse(s)
	if err != nil || !fix.Valid {
		return
	}
	r.fixes++
	r.last = fix
	r.msg = append(r.msg[:0], "[GPS] fix: time "...)
	r.msg = fix.Time.AppendFormat(r.msg, "15:04:05")
	r.msg = append(r.msg, " lat "...)
	r.msg = conv.AppendSignedFixed(r.msg, int64(fix.Latitude*1e6), 6)
	r.msg = append(r.msg, " lon "...)
	r.msg = conv.AppendSignedFixed(r.msg, int64(fix.Longitude*1e6), 6)
	r.msg = append(r.msg, " alt "...)
	r.msg = conv.AppendInt(r.msg, int64(fix.Altitude))
	println(string(r.msg))
}

var banner = []byte("UART initialized. Enter text followed by CTRL-D.\r\n")

// Writer drains the pipe and echoes each chunk back out of the UART.
type Writer struct {
	port Port
	in   *pipe.Pipe

	buf [PipeSize]byte
	msg []byte
}

func NewWriter(port Port, in *pipe.Pipe) *Writer {
	return &Writer{port: port, in: in}
}

func (w *Writer) Run(ctx context.Context) error {
	println("[GPS] UART TX initialized")
	if n, err := w.port.Write(banner); err != nil {
		println("[GPS] Tx Error:", err.Error())
	} else {
		println("[GPS] Wrote", n, "bytes")
	}
	for {
		n, err := w.in.Read(ctx, w.buf[:])
		if err != nil {
			return err
		}
		w.msg = Echo(w.msg[:0], w.buf[:n])
		if _, err := w.port.Write(w.msg); err != nil {
			println("[GPS] Tx Error:", err.Error())
		}
	}
}

// Echo appends "Received N bytes: <text>\r\n".
func Echo(dst, p []byte) []byte {
	dst = append(dst, "Received "...)
	dst = conv.AppendInt(dst, int64(len(p)))
	dst = append(dst, " bytes: "...)
	if utf8.Valid(p) {
		dst = append(dst, p...)
	} else {
		dst = append(dst, "[Invalid UTF-8]"...)
	}
	return append(dst, '\r', '\n')
}
