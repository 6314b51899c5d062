// Package sx1276sim is a register-level SX1276 stand-in for host builds and
// tests. It speaks the SPI framing of the real part and drives DIO0/DIO1 the
// way the silicon does for TxDone, RxDone and RxTimeout.
package sx1276sim

import (
	"sync"

	"tinygo.org/x/drivers"

	"fieldnode-go/drivers/sx1276"
	"fieldnode-go/hal/halfake"
)

// Frame is one over-the-air packet as seen by the simulated receiver.
type Frame struct {
	Data   []byte
	RSSI   uint8 // raw RegPktRssiValue
	SNR    int8  // raw RegPktSnrValue (quarter dB)
	BadCRC bool
}

// Chip implements drivers.SPI.
type Chip struct {
	mu   sync.Mutex
	regs [0x80]uint8
	fifo [256]uint8

	dio0, dio1 *halfake.Pin

	// Loopback queues every transmitted frame for the next receive.
	Loopback bool
	// SPIErr, when non-nil, fails every transaction.
	SPIErr error

	pending []Frame
	sent    [][]byte
}

var _ drivers.SPI = (*Chip)(nil)

func New(dio0, dio1 *halfake.Pin) *Chip {
	c := &Chip{dio0: dio0, dio1: dio1}
	c.regs[sx1276.RegVersion] = sx1276.ChipVersion
	c.regs[sx1276.RegOpMode] = sx1276.ModeStandby
	return c
}

// Inject queues a frame for the next rx window.
func (c *Chip) Inject(f Frame) {
	c.mu.Lock()
	c.pending = append(c.pending, f)
	cont := c.regs[sx1276.RegOpMode]&0x07 == sx1276.ModeRxContinuous
	var lines []func()
	if cont {
		lines = c.deliverLocked()
	}
	c.mu.Unlock()
	run(lines)
}

// Sent returns copies of every transmitted frame, oldest first.
func (c *Chip) Sent() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.sent))
	for i, f := range c.sent {
		out[i] = append([]byte(nil), f...)
	}
	return out
}

// Reg reads a register without going through SPI.
func (c *Chip) Reg(addr uint8) uint8 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.regs[addr&0x7F]
}

// SetReg pokes a register without side effects.
func (c *Chip) SetReg(addr, v uint8) {
	c.mu.Lock()
	c.regs[addr&0x7F] = v
	c.mu.Unlock()
}

func (c *Chip) Transfer(b byte) (byte, error) {
	return 0, c.SPIErr
}

func (c *Chip) Tx(w, r []byte) error {
	if c.SPIErr != nil {
		return c.SPIErr
	}
	if len(w) == 0 {
		return nil
	}
	c.mu.Lock()
	addr := w[0] & 0x7F
	var lines []func()
	if w[0]&0x80 != 0 {
		for i, v := range w[1:] {
			lines = append(lines, c.writeLocked(step(addr, i), v)...)
		}
	} else if r != nil {
		r[0] = 0
		for i := 1; i < len(r); i++ {
			r[i] = c.readLocked(step(addr, i-1))
		}
	}
	c.mu.Unlock()
	run(lines)
	return nil
}

// step walks a burst: the FIFO address stays put, registers auto-increment.
func step(addr uint8, i int) uint8 {
	if addr == sx1276.RegFifo {
		return addr
	}
	return (addr + uint8(i)) & 0x7F
}

func (c *Chip) readLocked(addr uint8) uint8 {
	if addr == sx1276.RegFifo {
		p := c.regs[sx1276.RegFifoAddrPtr]
		c.regs[sx1276.RegFifoAddrPtr] = p + 1
		return c.fifo[p]
	}
	return c.regs[addr]
}

func (c *Chip) writeLocked(addr, v uint8) []func() {
	switch addr {
	case sx1276.RegFifo:
		p := c.regs[sx1276.RegFifoAddrPtr]
		c.fifo[p] = v
		c.regs[sx1276.RegFifoAddrPtr] = p + 1
	case sx1276.RegIrqFlags:
		c.regs[addr] &^= v
		return c.linesLocked()
	case sx1276.RegOpMode:
		c.regs[addr] = v
		if v&sx1276.ModeLongRange == 0 {
			return nil
		}
		switch v & 0x07 {
		case sx1276.ModeTx:
			return c.transmitLocked()
		case sx1276.ModeRxSingle, sx1276.ModeRxContinuous:
			return c.deliverLocked()
		}
	default:
		c.regs[addr] = v
	}
	return nil
}

func (c *Chip) transmitLocked() []func() {
	base := c.regs[sx1276.RegFifoTxBaseAddr]
	n := int(c.regs[sx1276.RegPayloadLength])
	f := make([]byte, n)
	for i := range f {
		f[i] = c.fifo[uint8(int(base)+i)]
	}
	c.sent = append(c.sent, f)
	if c.Loopback {
		c.pending = append(c.pending, Frame{Data: f, RSSI: 100, SNR: 40})
	}
	c.regs[sx1276.RegIrqFlags] |= sx1276.IrqTxDone
	c.setModeLocked(sx1276.ModeStandby)
	return c.linesLocked()
}

// deliverLocked completes an rx window: the oldest pending frame, or in
// single mode an RxTimeout when nothing is queued.
func (c *Chip) deliverLocked() []func() {
	single := c.regs[sx1276.RegOpMode]&0x07 == sx1276.ModeRxSingle
	if len(c.pending) == 0 {
		if single {
			c.regs[sx1276.RegIrqFlags] |= sx1276.IrqRxTimeout
			c.setModeLocked(sx1276.ModeStandby)
			return c.linesLocked()
		}
		return nil
	}
	f := c.pending[0]
	c.pending = c.pending[1:]
	base := c.regs[sx1276.RegFifoRxBaseAddr]
	n := len(f.Data)
	if lim := int(c.regs[sx1276.RegMaxPayloadLength]); lim > 0 && n > lim {
		n = lim
	}
	for i := 0; i < n; i++ {
		c.fifo[uint8(int(base)+i)] = f.Data[i]
	}
	c.regs[sx1276.RegFifoRxCurrentAddr] = base
	c.regs[sx1276.RegRxNbBytes] = uint8(n)
	c.regs[sx1276.RegPktRssiValue] = f.RSSI
	c.regs[sx1276.RegPktSnrValue] = uint8(f.SNR)
	c.regs[sx1276.RegIrqFlags] |= sx1276.IrqRxDone | sx1276.IrqValidHeader
	if f.BadCRC {
		c.regs[sx1276.RegIrqFlags] |= sx1276.IrqPayloadCrcError
	}
	if single {
		c.setModeLocked(sx1276.ModeStandby)
	}
	return c.linesLocked()
}

func (c *Chip) setModeLocked(m uint8) {
	c.regs[sx1276.RegOpMode] = c.regs[sx1276.RegOpMode]&^0x07 | m
}

// linesLocked maps the flag register onto DIO0 (TxDone/RxDone per
// RegDioMapping1) and DIO1 (RxTimeout). Pin changes run after unlock so
// edge handlers never see the chip mutex held.
func (c *Chip) linesLocked() []func() {
	flags := c.regs[sx1276.RegIrqFlags]
	var d0 bool
	if c.regs[sx1276.RegDioMapping1]&0xC0 == sx1276.Dio0TxDone {
		d0 = flags&sx1276.IrqTxDone != 0
	} else {
		d0 = flags&sx1276.IrqRxDone != 0
	}
	d1 := flags&sx1276.IrqRxTimeout != 0
	var out []func()
	if c.dio0 != nil {
		p := c.dio0
		out = append(out, func() { p.Drive(d0) })
	}
	if c.dio1 != nil {
		p := c.dio1
		out = append(out, func() { p.Drive(d1) })
	}
	return out
}

func run(fs []func()) {
	for _, f := range fs {
		f()
	}
}
