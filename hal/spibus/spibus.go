// Package spibus shares one SPI controller between several chip-selected
// devices. Each transaction holds the bus mutex for its whole CS window.
package spibus

import (
	"sync"

	"tinygo.org/x/drivers"

	"fieldnode-go/hal"
)

type Bus struct {
	mu sync.Mutex
	hw drivers.SPI
}

func New(hw drivers.SPI) *Bus { return &Bus{hw: hw} }

// Device binds a chip-select line to the bus. The returned handle implements
// drivers.SPI; CS is active low.
func (b *Bus) Device(cs hal.OutputPin) *Device {
	_ = cs.Set(true)
	return &Device{bus: b, cs: cs}
}

type Device struct {
	bus *Bus
	cs  hal.OutputPin
}

// Ensure compile-time conformance with drivers.SPI
var _ drivers.SPI = (*Device)(nil)

// Tx runs one full-duplex transaction with CS asserted.
func (d *Device) Tx(w, r []byte) error {
	d.bus.mu.Lock()
	defer d.bus.mu.Unlock()
	if err := d.cs.Set(false); err != nil {
		return err
	}
	err := d.bus.hw.Tx(w, r)
	if cerr := d.cs.Set(true); err == nil {
		err = cerr
	}
	return err
}

// Transfer clocks a single byte with CS asserted.
func (d *Device) Transfer(b byte) (byte, error) {
	var r [1]byte
	err := d.Tx([]byte{b}, r[:])
	return r[0], err
}
