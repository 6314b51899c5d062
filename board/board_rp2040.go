//go:build rp2040

package board

import (
	"machine"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"
	"tinygo.org/x/drivers/ssd1306"

	"fieldnode-go/drivers/sx1276"
	"fieldnode-go/hal"
	"fieldnode-go/hal/spibus"
)

var Selected = Plan{
	Radio: RadioPlan{
		SPI:   SPIPlan{ID: "spi0", SCK: 18, SDO: 19, SDI: 16, Hz: 4_000_000},
		CS:    17,
		Reset: 20,
		DIO0:  21,
		DIO1:  22,
		RFRx:  -1,
		RFTx:  -1,
		TCXO:  true,
		// 20 dBm needs the PA_BOOST path.
		PABoost: true,
	},
	Button:  ButtonPlan{Pin: 15, ActiveLow: true},
	LED:     25,
	I2C:     I2CPlan{ID: "i2c0", SDA: 4, SCL: 5, Hz: 400_000},
	UART:    UARTPlan{ID: "uart1", TX: 8, RX: 9, Baud: 9600},
	OLED:    0x3C,
	Session: 0,
}

// New brings up every peripheral in p. Bus configuration errors are fatal;
// a missing WiFi module is not.
func New(p Plan) (*Board, error) {
	b := &Board{
		ButtonInverts: p.Button.ActiveLow,
		LED:           outputPin(p.LED, false),
		Storage:       machine.Flash,
		SessionOffset: p.Session,
	}
	pull := hal.PullDown
	if p.Button.ActiveLow {
		pull = hal.PullUp
	}
	b.Button = inputPin(p.Button.Pin, pull)

	// Radio on SPI0 behind the shared bus.
	spi := machine.SPI0
	if err := spi.Configure(machine.SPIConfig{
		Frequency: p.Radio.SPI.Hz,
		Mode:      0,
		SCK:       machine.Pin(p.Radio.SPI.SCK),
		SDO:       machine.Pin(p.Radio.SPI.SDO),
		SDI:       machine.Pin(p.Radio.SPI.SDI),
	}); err != nil {
		return nil, err
	}
	bus := spibus.New(spi)
	iv := sx1276.NewIV(
		hal.NewEdgeWaiter(inputPin(p.Radio.DIO0, hal.PullNone)),
		hal.NewEdgeWaiter(inputPin(p.Radio.DIO1, hal.PullNone)),
		outputPin(p.Radio.Reset, true),
		optOutput(p.Radio.RFRx),
		optOutput(p.Radio.RFTx),
	)
	b.Radio = sx1276.New(bus.Device(outputPin(p.Radio.CS, true)), iv, radioOptions(p.Radio))

	// OLED on I2C0.
	i2c := machine.I2C0
	if err := i2c.Configure(machine.I2CConfig{
		SDA:       machine.Pin(p.I2C.SDA),
		SCL:       machine.Pin(p.I2C.SCL),
		Frequency: p.I2C.Hz,
	}); err != nil {
		return nil, err
	}
	oled := ssd1306.NewI2C(i2c)
	oled.Configure(ssd1306.Config{Width: 128, Height: 64, Address: p.OLED, VccState: ssd1306.SWITCHCAPVCC})
	b.Display = &oled

	// GPS on UART1.
	u := uartx.UART1
	if err := u.Configure(uartx.UARTConfig{
		BaudRate: p.UART.Baud,
		TX:       machine.Pin(p.UART.TX),
		RX:       machine.Pin(p.UART.RX),
	}); err != nil {
		return nil, err
	}
	b.GPS = u

	b.WiFi, b.HTTP = probeWiFi()
	return b, nil
}
