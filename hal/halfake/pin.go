// Package halfake provides host-side pins for tests and the simulated board.
package halfake

import (
	"sync"

	"fieldnode-go/hal"
)

// Pin implements hal.IRQPin and hal.OutputPin. Level changes made with Drive
// or Set fire the registered edge handler synchronously, like an ISR.
type Pin struct {
	mu      sync.Mutex
	number  int
	level   bool
	irqEdge hal.Edge
	irqFunc func()

	// SetErr, when non-nil, is returned by Set and the level is unchanged.
	SetErr error
	// IRQErr, when non-nil, is returned by SetIRQ.
	IRQErr error

	writes []bool
}

func NewPin(number int) *Pin { return &Pin{number: number} }

func (p *Pin) Number() int { return p.number }

func (p *Pin) Get() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level
}

// Set is the output-side write.
func (p *Pin) Set(level bool) error {
	p.mu.Lock()
	if p.SetErr != nil {
		err := p.SetErr
		p.mu.Unlock()
		return err
	}
	p.writes = append(p.writes, level)
	p.mu.Unlock()
	p.Drive(level)
	return nil
}

// Drive changes the level from the outside world (a peripheral or a test).
func (p *Pin) Drive(level bool) {
	p.mu.Lock()
	old := p.level
	p.level = level
	irq := p.irqFunc
	want := irqWanted(p.irqEdge, edgeFrom(old, level))
	p.mu.Unlock()
	if want && irq != nil {
		irq()
	}
}

func (p *Pin) SetIRQ(edge hal.Edge, handler func()) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.IRQErr != nil {
		return p.IRQErr
	}
	p.irqEdge = edge
	p.irqFunc = handler
	return nil
}

func (p *Pin) ClearIRQ() error {
	p.mu.Lock()
	p.irqEdge = hal.EdgeNone
	p.irqFunc = nil
	p.mu.Unlock()
	return nil
}

// Writes returns every level written through Set, oldest first.
func (p *Pin) Writes() []bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]bool(nil), p.writes...)
}

func edgeFrom(old, new bool) hal.Edge {
	switch {
	case !old && new:
		return hal.EdgeRising
	case old && !new:
		return hal.EdgeFalling
	default:
		return hal.EdgeNone
	}
}

func irqWanted(cfg, seen hal.Edge) bool {
	switch cfg {
	case hal.EdgeBoth:
		return seen == hal.EdgeRising || seen == hal.EdgeFalling
	case hal.EdgeNone:
		return false
	default:
		return cfg == seen
	}
}
