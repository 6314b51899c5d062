package types

// ---- Button ----

// ButtonState is the debounced logical state of the user button.
type ButtonState uint8

const (
	ButtonReleased ButtonState = iota
	ButtonPressed
	ButtonLongPressed
)

func (s ButtonState) String() string {
	switch s {
	case ButtonPressed:
		return "pressed"
	case ButtonLongPressed:
		return "long_pressed"
	default:
		return "released"
	}
}

// ---- LED ----

type LedState uint8

const (
	LedOff LedState = iota
	LedOn
)

func (s LedState) String() string {
	if s == LedOn {
		return "on"
	}
	return "off"
}

// Level is the output pin level for the state (active high).
func (s LedState) Level() bool { return s == LedOn }

// ---- WiFi ----

type WifiStatus uint8

const (
	WifiDisconnected WifiStatus = iota
	WifiConnected
)

func (s WifiStatus) String() string {
	if s == WifiConnected {
		return "connected"
	}
	return "disconnected"
}

// ---- Radio link quality ----

// LinkQuality is the per-frame report of the last successful receive.
type LinkQuality struct {
	FreqHz uint32
	RSSI   int16 // dBm
	SNR    int16 // dB
	Len    uint8
}
