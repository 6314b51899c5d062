// Package sx1276 drives a Semtech SX1276 in LoRa mode over SPI.
//
// The driver is split in two halves. InterfaceVariant owns the board lines
// (reset, DIO interrupts, RF switch); Device owns the register protocol:
//
//	d := sx1276.New(spi, iv, sx1276.Options{PABoost: true})
//	err := d.Init(ctx)
//	err = d.PrepareForTx(ctx, mod, txp, 20, payload)
//	err = d.Tx(ctx)
//	err = d.PrepareForRx(ctx, sx1276.RxSingle(512), mod, rxp)
//	n, st, err := d.Rx(ctx, rxp, buf)
//
// Waits never block on a single interrupt: each AwaitIRQ is bounded and the
// IRQ flags register is re-read after every return.
package sx1276

import (
	"context"
	"time"

	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/lora"

	"fieldnode-go/errcode"
	"fieldnode-go/x/mathx"
)

// Options controls board-level radio behaviour. All fields are optional.
type Options struct {
	// TCXO selects an external clock on XTA.
	TCXO bool
	// PABoost routes output through the PA_BOOST pin (most modules).
	PABoost bool
	// TxTimeout bounds Tx after the airtime estimate. Default 2 s.
	TxTimeout time.Duration
}

// Device is one SX1276 behind an SPI chip select.
type Device struct {
	spi  drivers.SPI
	iv   InterfaceVariant
	opts Options

	rxMode RxMode
	rxSym  time.Duration // symbol time for the prepared rx window
	txAir  time.Duration // airtime estimate for the prepared frame

	cmd [2]byte
	rsp [2]byte
	buf [256]byte // fifo burst out (address byte + up to 255 bytes)
	in  [256]byte
}

func New(spi drivers.SPI, iv InterfaceVariant, opts Options) *Device {
	if opts.TxTimeout <= 0 {
		opts.TxTimeout = 2 * time.Second
	}
	return &Device{spi: spi, iv: iv, opts: opts}
}

// Init resets the chip, checks its silicon version and leaves it in LoRa
// standby with the FIFO split evenly between tx and rx.
func (d *Device) Init(ctx context.Context) error {
	if err := d.iv.Reset(ctx); err != nil {
		return err
	}
	v, err := d.read(RegVersion)
	if err != nil {
		return errcode.Wrap(errcode.InitFailed, "init", err)
	}
	if v != ChipVersion {
		e := errcode.Wrap(errcode.RadioNotFound, "init", nil)
		e.Msg = "version mismatch"
		return e
	}
	// LongRange may only be toggled from sleep.
	steps := [][2]byte{
		{RegOpMode, ModeSleep},
		{RegOpMode, ModeLongRange | ModeSleep},
		{RegFifoTxBaseAddr, 0x00},
		{RegFifoRxBaseAddr, 0x00},
		{RegLna, lnaBoostHF},
		{RegModemConfig3, agcAutoOn},
		{RegOpMode, ModeLongRange | ModeStandby},
	}
	for _, s := range steps {
		if err := d.write(s[0], s[1]); err != nil {
			return errcode.Wrap(errcode.InitFailed, "init", err)
		}
	}
	if d.opts.TCXO {
		if err := d.write(RegTcxo, tcxoInput); err != nil {
			return errcode.Wrap(errcode.InitFailed, "init", err)
		}
	}
	return nil
}

// Standby parks the modem and releases the RF switch.
func (d *Device) Standby() error {
	if err := d.setMode(ModeStandby); err != nil {
		return err
	}
	return d.iv.DisableRFSwitch()
}

// Sleep puts the modem into its lowest-power state.
func (d *Device) Sleep() error {
	if err := d.setMode(ModeSleep); err != nil {
		return err
	}
	return d.iv.DisableRFSwitch()
}

// PrepareForTx configures modulation and power, then loads payload into the
// FIFO. Tx starts the transmission.
func (d *Device) PrepareForTx(ctx context.Context, mod ModulationParams, pkt PacketParams, powerDBm int8, payload []byte) error {
	if len(payload) == 0 || len(payload) > 255 {
		return errcode.InvalidParams
	}
	if err := d.iv.WaitOnBusy(ctx); err != nil {
		return err
	}
	pkt.PayloadLen = uint8(len(payload))
	if err := d.configure(Config(mod, pkt, powerDBm)); err != nil {
		return err
	}
	if err := d.setPower(powerDBm); err != nil {
		return err
	}
	if err := d.writeAll(
		RegPayloadLength, pkt.PayloadLen,
		RegDioMapping1, Dio0TxDone,
		RegIrqFlags, 0xFF,
		RegFifoTxBaseAddr, 0x00,
		RegFifoAddrPtr, 0x00,
	); err != nil {
		return err
	}
	d.txAir = Airtime(mod, pkt)
	return d.burstWrite(RegFifo, payload)
}

// Tx transmits the prepared frame and waits for TxDone.
func (d *Device) Tx(ctx context.Context) error {
	if err := d.iv.EnableRFSwitchTx(); err != nil {
		return err
	}
	if err := d.setMode(ModeTx); err != nil {
		return err
	}
	tctx, cancel := context.WithTimeout(ctx, d.opts.TxTimeout+d.txAir)
	defer cancel()
	for {
		flags, err := d.await(tctx)
		if err != nil {
			_ = d.Standby()
			if ctx.Err() == nil && tctx.Err() != nil {
				return errcode.Timeout
			}
			return err
		}
		if flags&IrqTxDone != 0 {
			if err := d.write(RegIrqFlags, IrqTxDone); err != nil {
				return err
			}
			// The modem drops back to standby on its own after TxDone.
			return d.iv.DisableRFSwitch()
		}
	}
}

// PrepareForRx configures the modem for the next Rx call.
func (d *Device) PrepareForRx(ctx context.Context, mode RxMode, mod ModulationParams, pkt PacketParams) error {
	if pkt.PayloadLen == 0 || mode.Symbols > 0x3FF {
		return errcode.InvalidParams
	}
	if !mode.Continuous && mode.Symbols == 0 {
		return errcode.InvalidParams
	}
	if err := d.iv.WaitOnBusy(ctx); err != nil {
		return err
	}
	if err := d.configure(Config(mod, pkt, 0)); err != nil {
		return err
	}
	mc2, err := d.read(RegModemConfig2)
	if err != nil {
		return err
	}
	mc2 = mc2&^0x03 | uint8(mode.Symbols>>8)&0x03
	if err := d.writeAll(
		RegModemConfig2, mc2,
		RegSymbTimeoutLsb, uint8(mode.Symbols),
		RegPayloadLength, pkt.PayloadLen,
		RegMaxPayloadLength, pkt.PayloadLen,
		RegDioMapping1, Dio0RxDone,
		RegIrqFlags, 0xFF,
		RegFifoRxBaseAddr, 0x00,
		RegFifoAddrPtr, 0x00,
	); err != nil {
		return err
	}
	d.rxMode = mode
	d.rxSym = mod.SymbolTime()
	return nil
}

// Rx opens the prepared window and copies one frame into buf. A single
// window that closes empty returns errcode.Timeout; a corrupt frame returns
// errcode.CRC.
func (d *Device) Rx(ctx context.Context, pkt PacketParams, buf []byte) (uint8, PacketStatus, error) {
	var st PacketStatus
	if err := d.iv.EnableRFSwitchRx(); err != nil {
		return 0, st, err
	}
	mode := uint8(ModeRxSingle)
	if d.rxMode.Continuous {
		mode = ModeRxContinuous
	}
	if err := d.setMode(mode); err != nil {
		return 0, st, err
	}

	rctx := ctx
	if !d.rxMode.Continuous {
		// Guard in case the chip never raises RxTimeout.
		var cancel context.CancelFunc
		rctx, cancel = context.WithTimeout(ctx, time.Duration(d.rxMode.Symbols)*d.rxSym+time.Second)
		defer cancel()
	}

	for {
		flags, err := d.await(rctx)
		if err != nil {
			_ = d.Standby()
			if ctx.Err() == nil && rctx.Err() != nil {
				return 0, st, errcode.Timeout
			}
			return 0, st, err
		}
		switch {
		case flags&IrqRxTimeout != 0:
			_ = d.write(RegIrqFlags, IrqRxTimeout)
			_ = d.Standby()
			return 0, st, errcode.Timeout
		case flags&IrqRxDone == 0:
			continue
		}

		_ = d.write(RegIrqFlags, IrqRxDone|IrqPayloadCrcError|IrqValidHeader)
		if !d.rxMode.Continuous {
			_ = d.iv.DisableRFSwitch()
		}
		if pkt.CRC && flags&IrqPayloadCrcError != 0 {
			return 0, st, errcode.CRC
		}
		return d.readFrame(buf)
	}
}

func (d *Device) readFrame(buf []byte) (uint8, PacketStatus, error) {
	var st PacketStatus
	n, err := d.read(RegRxNbBytes)
	if err != nil {
		return 0, st, err
	}
	at, err := d.read(RegFifoRxCurrentAddr)
	if err != nil {
		return 0, st, err
	}
	if err := d.write(RegFifoAddrPtr, at); err != nil {
		return 0, st, err
	}
	if int(n) > len(buf) {
		n = uint8(len(buf))
	}
	if err := d.burstRead(RegFifo, buf[:n]); err != nil {
		return 0, st, err
	}
	snr, err := d.read(RegPktSnrValue)
	if err != nil {
		return n, st, err
	}
	rssi, err := d.read(RegPktRssiValue)
	if err != nil {
		return n, st, err
	}
	st.SNR = int16(int8(snr)) / 4
	st.RSSI = rssiOffsetHF + int16(rssi)
	if st.SNR < 0 {
		st.RSSI += st.SNR
	}
	return n, st, nil
}

// await waits one bounded IRQ window and returns the current flags.
func (d *Device) await(ctx context.Context) (uint8, error) {
	if err := d.iv.AwaitIRQ(ctx); err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return d.read(RegIrqFlags)
}

func (d *Device) configure(c lora.Config) error {
	if err := d.setMode(ModeStandby); err != nil {
		return err
	}
	bw := bwCode(c.Bw)
	if bw == 0xFF || !validSF(c.Sf) {
		return errcode.InvalidParams
	}
	frf := (uint64(c.Freq) << 19) / fxoscHz

	mc1 := bw<<4 | c.Cr<<1
	if c.HeaderType == lora.HeaderImplicit {
		mc1 |= 0x01
	}
	mc2 := c.Sf << 4
	if c.Crc == lora.CRCOn {
		mc2 |= crcOn
	}
	mc3 := uint8(agcAutoOn)
	if c.Ldr == lora.LowDataRateOptimizeOn {
		mc3 |= ldroOn
	}
	iq, iq2 := uint8(0x27), uint8(0x1D)
	if c.Iq == lora.IQInverted {
		iq, iq2 = 0x66, 0x19
	}
	return d.writeAll(
		RegFrfMsb, uint8(frf>>16),
		RegFrfMid, uint8(frf>>8),
		RegFrfLsb, uint8(frf),
		RegModemConfig1, mc1,
		RegModemConfig2, mc2,
		RegModemConfig3, mc3,
		RegPreambleMsb, uint8(c.Preamble>>8),
		RegPreambleLsb, uint8(c.Preamble),
		RegSyncWord, uint8(c.SyncWord),
		RegInvertIQ, iq,
		RegInvertIQ2, iq2,
		RegDetectOptimize, 0xC3,
		RegDetectThreshold, 0x0A,
	)
}

// setPower programs the PA for powerDBm, clamped to what the selected
// output can deliver.
func (d *Device) setPower(dbm int8) error {
	if !d.opts.PABoost {
		dbm = mathx.Clamp(dbm, 0, 14)
		return d.writeAll(RegPaDac, 0x84, RegPaConfig, 0x70|uint8(dbm))
	}
	dac := uint8(0x84)
	dbm = mathx.Clamp(dbm, 2, 20)
	if dbm > 17 {
		dac = 0x87
		dbm -= 3
	}
	return d.writeAll(
		RegPaDac, dac,
		RegOcp, 0x20|0x0B, // 100 mA trim
		RegPaConfig, paBoost|uint8(dbm-2),
	)
}

func (d *Device) setMode(m uint8) error {
	return d.write(RegOpMode, ModeLongRange|m)
}

func (d *Device) read(reg uint8) (uint8, error) {
	d.cmd = [2]byte{reg & 0x7F, 0}
	if err := d.spi.Tx(d.cmd[:], d.rsp[:]); err != nil {
		return 0, err
	}
	return d.rsp[1], nil
}

func (d *Device) write(reg, v uint8) error {
	d.cmd = [2]byte{reg | 0x80, v}
	return d.spi.Tx(d.cmd[:], d.rsp[:])
}

// writeAll writes register/value pairs in order, stopping at the first error.
func (d *Device) writeAll(kv ...uint8) error {
	for i := 0; i+1 < len(kv); i += 2 {
		if err := d.write(kv[i], kv[i+1]); err != nil {
			return err
		}
	}
	return nil
}

func (d *Device) burstWrite(reg uint8, p []byte) error {
	d.buf[0] = reg | 0x80
	n := copy(d.buf[1:], p)
	return d.spi.Tx(d.buf[:1+n], nil)
}

func (d *Device) burstRead(reg uint8, p []byte) error {
	if len(p) == 0 {
		return nil
	}
	w := d.buf[:1+len(p)]
	for i := range w {
		w[i] = 0
	}
	w[0] = reg & 0x7F
	r := d.in[:len(w)]
	if err := d.spi.Tx(w, r); err != nil {
		return err
	}
	copy(p, r[1:])
	return nil
}

// Airtime estimates the on-air duration of one frame (Semtech AN1200.13).
func Airtime(m ModulationParams, p PacketParams) time.Duration {
	ts := m.SymbolTime()
	if ts == 0 {
		return 0
	}
	sf := int64(m.Sf)
	de := int64(0)
	if m.Ldro {
		de = 1
	}
	ih := int64(0)
	if p.Implicit {
		ih = 1
	}
	crc := int64(0)
	if p.CRC {
		crc = 1
	}
	num := 8*int64(p.PayloadLen) - 4*sf + 28 + 16*crc - 20*ih
	den := 4 * (sf - 2*de)
	sym := int64(8)
	if num > 0 {
		sym += mathx.CeilDiv(num, den) * (int64(m.Cr) + 4)
	}
	// preamble + 4.25 symbols of sync
	pre := time.Duration(p.Preamble)*ts + ts*17/4
	return pre + time.Duration(sym)*ts
}
