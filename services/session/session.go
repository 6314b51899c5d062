// Package session persists radio link credentials: device address, EUIs,
// session keys and the join nonce.
//
// Layout, little-endian, 54 bytes:
//
//	[0:4)   device address
//	[4:12)  device EUI
//	[12:20) application EUI
//	[20:36) application session key
//	[36:52) network session key
//	[52:54) device nonce
package session

import (
	"encoding/binary"
	"io"

	"fieldnode-go/errcode"
)

const Size = 54

type Record struct {
	DevAddr [4]byte
	DevEUI  [8]byte
	AppEUI  [8]byte
	AppSKey [16]byte
	NwkSKey [16]byte
	Nonce   uint16
}

// MarshalTo encodes r into p, which must hold at least Size bytes.
func (r *Record) MarshalTo(p []byte) error {
	if len(p) < Size {
		return errcode.InvalidParams
	}
	copy(p[0:4], r.DevAddr[:])
	copy(p[4:12], r.DevEUI[:])
	copy(p[12:20], r.AppEUI[:])
	copy(p[20:36], r.AppSKey[:])
	copy(p[36:52], r.NwkSKey[:])
	binary.LittleEndian.PutUint16(p[52:54], r.Nonce)
	return nil
}

func (r *Record) Marshal() [Size]byte {
	var b [Size]byte
	_ = r.MarshalTo(b[:])
	return b
}

func (r *Record) Unmarshal(p []byte) error {
	if len(p) != Size {
		return errcode.InvalidParams
	}
	copy(r.DevAddr[:], p[0:4])
	copy(r.DevEUI[:], p[4:12])
	copy(r.AppEUI[:], p[12:20])
	copy(r.AppSKey[:], p[20:36])
	copy(r.NwkSKey[:], p[36:52])
	r.Nonce = binary.LittleEndian.Uint16(p[52:54])
	return nil
}

// NextNonce advances the nonce, wrapping at 16 bits, and returns it.
func (r *Record) NextNonce() uint16 {
	r.Nonce++
	return r.Nonce
}

// Device is the storage the record lives on. machine.Flash satisfies it.
type Device interface {
	io.ReaderAt
	io.WriterAt
}

// eraser is implemented by flash that must be erased before writing.
type eraser interface {
	EraseBlockSize() int64
	EraseBlocks(start, n int64) error
}

type Store struct {
	dev Device
	off int64
}

func NewStore(dev Device, off int64) *Store { return &Store{dev: dev, off: off} }

// Load reads the record. ok is false when the area is blank (erased flash
// or zeroed memory).
func (s *Store) Load() (r Record, ok bool, err error) {
	var b [Size]byte
	if _, err := s.dev.ReadAt(b[:], s.off); err != nil && err != io.EOF {
		return r, false, err
	}
	if blank(b[:]) {
		return r, false, nil
	}
	if err := r.Unmarshal(b[:]); err != nil {
		return r, false, err
	}
	return r, true, nil
}

func (s *Store) Save(r *Record) error {
	if e, ok := s.dev.(eraser); ok {
		bs := e.EraseBlockSize()
		if bs > 0 {
			if err := e.EraseBlocks(s.off/bs, 1); err != nil {
				return err
			}
		}
	}
	b := r.Marshal()
	n, err := s.dev.WriteAt(b[:], s.off)
	if err != nil {
		return err
	}
	if n != Size {
		return io.ErrShortWrite
	}
	return nil
}

func blank(p []byte) bool {
	allFF, all00 := true, true
	for _, v := range p {
		allFF = allFF && v == 0xFF
		all00 = all00 && v == 0x00
	}
	return allFF || all00
}

// Mem is a Device backed by a byte slice.
type Mem struct {
	buf []byte
}

func NewMem(size int) *Mem { return &Mem{buf: make([]byte, size)} }

func (m *Mem) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off >= int64(len(m.buf)) {
		return 0, io.EOF
	}
	n := copy(p, m.buf[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (m *Mem) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 || off+int64(len(p)) > int64(len(m.buf)) {
		return 0, errcode.InvalidParams
	}
	return copy(m.buf[off:], p), nil
}
