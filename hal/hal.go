// Package hal holds the pin and bus abstractions shared by drivers and tasks.
// Concrete pins come from the board package (machine pins on rp2040, fakes on
// the host).
package hal

type Pull uint8

const (
	PullNone Pull = iota
	PullUp
	PullDown
)

// Edge selection for IRQ.
type Edge uint8

const (
	EdgeNone Edge = iota
	EdgeRising
	EdgeFalling
	EdgeBoth
)

func (e Edge) String() string {
	switch e {
	case EdgeRising:
		return "rising"
	case EdgeFalling:
		return "falling"
	case EdgeBoth:
		return "both"
	default:
		return "none"
	}
}

// OutputPin drives a digital line. Writes may fail (e.g. an I/O expander).
type OutputPin interface {
	Set(level bool) error
}

// InputPin samples a digital line.
type InputPin interface {
	Get() bool
}

// IRQPin is an input with an edge interrupt. The handler runs in interrupt
// context and must not block.
type IRQPin interface {
	InputPin
	SetIRQ(edge Edge, handler func()) error
	ClearIRQ() error
}

// Waiter is an interrupt line a task can sample and select on.
type Waiter interface {
	High() bool
	Arm() (<-chan struct{}, error)
}
