package types

// DisplayTextMax bounds a display message in bytes.
const DisplayTextMax = 64

// DisplayText is a bounded message for the display task.
type DisplayText struct {
	n   uint8
	buf [DisplayTextMax]byte
}

// NewDisplayText copies s, truncating to DisplayTextMax bytes.
func NewDisplayText(s string) DisplayText {
	var t DisplayText
	t.n = uint8(copy(t.buf[:], s))
	return t
}

// Append adds b up to the bound and reports whether all of b fit.
func (t *DisplayText) Append(b []byte) bool {
	n := copy(t.buf[t.n:], b)
	t.n += uint8(n)
	return n == len(b)
}

func (t DisplayText) String() string { return string(t.buf[:t.n]) }
func (t DisplayText) Len() int       { return int(t.n) }
