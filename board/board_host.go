//go:build !rp2040

package board

import (
	"net/http"
	"time"

	"fieldnode-go/drivers/sx1276"
	"fieldnode-go/drivers/sx1276/sx1276sim"
	"fieldnode-go/hal"
	"fieldnode-go/hal/halfake"
	"fieldnode-go/hal/spibus"
	"fieldnode-go/services/session"
	"fieldnode-go/services/wifi"
)

// Selected mirrors the rp2040 wiring; pin numbers only label the fakes.
var Selected = Plan{
	Radio: RadioPlan{
		SPI:     SPIPlan{ID: "spi0", SCK: 18, SDO: 19, SDI: 16, Hz: 4_000_000},
		CS:      17,
		Reset:   20,
		DIO0:    21,
		DIO1:    22,
		RFRx:    -1,
		RFTx:    -1,
		PABoost: true,
	},
	Button:  ButtonPlan{Pin: 15, ActiveLow: true},
	LED:     25,
	UART:    UARTPlan{ID: "uart1", Baud: 9600},
	Session: 0,
}

// New builds a board whose radio echoes every frame it sends, whose GPS
// replays a fixed sentence and whose WiFi associates at once.
func New(p Plan) (*Board, error) {
	d0, d1 := halfake.NewPin(p.Radio.DIO0), halfake.NewPin(p.Radio.DIO1)
	chip := sx1276sim.New(d0, d1)
	chip.Loopback = true
	bus := spibus.New(chip)
	iv := sx1276.NewIV(
		hal.NewEdgeWaiter(d0),
		hal.NewEdgeWaiter(d1),
		halfake.NewPin(p.Radio.Reset),
		optFake(p.Radio.RFRx),
		optFake(p.Radio.RFTx),
	)

	btn := halfake.NewPin(p.Button.Pin)
	btn.Drive(p.Button.ActiveLow) // idle level
	led := halfake.NewPin(p.LED)
	uart := NewNMEAUART(time.Second)
	nl := NewSimNetlink()

	return &Board{
		Button:        btn,
		ButtonInverts: p.Button.ActiveLow,
		LED:           led,
		Radio:         sx1276.New(bus.Device(halfake.NewPin(p.Radio.CS)), iv, radioOptions(p.Radio)),
		GPS:           uart,
		Display:       &NullSurface{},
		WiFi:          wifi.NewLink(nl, nl),
		HTTP:          &http.Client{Timeout: 5 * time.Second},
		Storage:       session.NewMem(4096),
		SessionOffset: p.Session,
	}, nil
}

func optFake(n int) hal.OutputPin {
	if n < 0 {
		return nil
	}
	return halfake.NewPin(n)
}
