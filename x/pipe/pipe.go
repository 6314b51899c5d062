// Package pipe is a bounded FIFO byte channel between one producer task and
// one consumer task. Writers suspend while the buffer is full and readers
// suspend while it is empty; no byte is ever dropped.
package pipe

import "context"

// Pipe is safe for one concurrent writer and one concurrent reader.
type Pipe struct {
	r *ring
}

// New allocates a pipe with a fixed power-of-two capacity.
func New(capacity int) *Pipe { return &Pipe{r: newRing(capacity)} }

func (p *Pipe) Cap() int { return int(p.r.size()) }
func (p *Pipe) Len() int { return p.r.used() }

// TryWrite writes what fits without suspending.
func (p *Pipe) TryWrite(b []byte) int { return p.r.put(b) }

// TryRead reads what is buffered without suspending.
func (p *Pipe) TryRead(b []byte) int { return p.r.take(b) }

// Write writes all of b, suspending while the pipe is full. On
// cancellation it returns the bytes written so far.
func (p *Pipe) Write(ctx context.Context, b []byte) (int, error) {
	total := 0
	for total < len(b) {
		n := p.r.put(b[total:])
		total += n
		if total == len(b) {
			break
		}
		if n > 0 {
			continue
		}
		select {
		case <-p.r.writable:
		case <-ctx.Done():
			return total, ctx.Err()
		}
	}
	return total, nil
}

// Read suspends until at least one byte is buffered, then reads up to len(b).
func (p *Pipe) Read(ctx context.Context, b []byte) (int, error) {
	if len(b) == 0 {
		return 0, nil
	}
	for {
		if n := p.r.take(b); n > 0 {
			return n, nil
		}
		select {
		case <-p.r.readable:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
}
