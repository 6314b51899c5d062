// Package board wires the physical (or simulated) peripherals of one target
// into the handles the tasks consume.
package board

import (
	"net/http"

	"fieldnode-go/drivers/sx1276"
	"fieldnode-go/hal"
	"fieldnode-go/services/display"
	"fieldnode-go/services/gps"
	"fieldnode-go/services/session"
	"fieldnode-go/services/wifi"
)

// Plan specifies wiring and operating parameters for a target.
type Plan struct {
	Radio   RadioPlan
	Button  ButtonPlan
	LED     int // GPIO number
	I2C     I2CPlan
	UART    UARTPlan
	OLED    uint16 // I2C address
	Session int64  // storage offset of the session record
}

type SPIPlan struct {
	ID  string // e.g. "spi0"
	SCK int
	SDO int
	SDI int
	Hz  uint32
}

type RadioPlan struct {
	SPI   SPIPlan
	CS    int
	Reset int
	DIO0  int
	DIO1  int
	// RF switch lines; -1 when the module has none.
	RFRx int
	RFTx int

	TCXO    bool
	PABoost bool
}

type ButtonPlan struct {
	Pin       int
	ActiveLow bool // pressed pulls the line low (internal pull-up)
}

type I2CPlan struct {
	ID  string // e.g. "i2c0"
	SDA int    // GPIO number
	SCL int    // GPIO number
	Hz  uint32 // bus frequency
}

type UARTPlan struct {
	ID   string // e.g. "uart1"
	TX   int    // GPIO number
	RX   int    // GPIO number
	Baud uint32
}

// Board is everything main needs. Nil fields mean the peripheral is not
// fitted and its task is not started.
type Board struct {
	Button        hal.InputPin
	ButtonInverts bool
	LED           hal.OutputPin

	Radio *sx1276.Device

	GPS     gps.Port
	Display display.Surface

	WiFi *wifi.Link
	HTTP *http.Client

	Storage       session.Device
	SessionOffset int64
}

func radioOptions(p RadioPlan) sx1276.Options {
	return sx1276.Options{TCXO: p.TCXO, PABoost: p.PABoost}
}
