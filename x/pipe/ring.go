package pipe

import "sync/atomic"

// ring is a single-producer, single-consumer byte ring. Indices are
// monotonic; the mask maps them into buf.
type ring struct {
	buf  []byte
	mask uint32
	rd   atomic.Uint32 // consumer index
	wr   atomic.Uint32 // producer index

	readable chan struct{} // edge: empty -> non-empty
	writable chan struct{} // edge: full -> non-full
}

func newRing(size int) *ring {
	if size < 2 || (size&(size-1)) != 0 {
		panic("pipe: size must be power of two >= 2")
	}
	return &ring{
		buf:      make([]byte, size),
		mask:     uint32(size - 1),
		readable: make(chan struct{}, 1),
		writable: make(chan struct{}, 1),
	}
}

func (r *ring) size() uint32 { return uint32(len(r.buf)) }

func (r *ring) used() int { return int(r.wr.Load() - r.rd.Load()) }

// put copies as much of src as fits and returns the count.
func (r *ring) put(src []byte) int {
	if len(src) == 0 {
		return 0
	}
	rd := r.rd.Load()
	wr := r.wr.Load()
	before := wr - rd
	n := int(r.size() - before)
	if n <= 0 {
		return 0
	}
	if len(src) < n {
		n = len(src)
	}

	at := wr & r.mask
	first := int(r.size() - at)
	if first > n {
		first = n
	}
	copy(r.buf[at:at+uint32(first)], src[:first])
	copy(r.buf, src[first:n])
	r.wr.Store(wr + uint32(n))

	if before == 0 {
		signal(r.readable)
	}
	return n
}

// take copies up to len(dst) bytes out and returns the count.
func (r *ring) take(dst []byte) int {
	if len(dst) == 0 {
		return 0
	}
	rd := r.rd.Load()
	wr := r.wr.Load()
	avail := int(wr - rd)
	if avail <= 0 {
		return 0
	}
	n := avail
	if len(dst) < n {
		n = len(dst)
	}

	at := rd & r.mask
	first := int(r.size() - at)
	if first > n {
		first = n
	}
	copy(dst[:first], r.buf[at:at+uint32(first)])
	copy(dst[first:n], r.buf)
	r.rd.Store(rd + uint32(n))

	if uint32(avail) == r.size() {
		signal(r.writable)
	}
	return n
}

func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
