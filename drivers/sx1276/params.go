package sx1276

import (
	"time"

	"tinygo.org/x/drivers/lora"

	"fieldnode-go/errcode"
	"fieldnode-go/x/mathx"
)

// ModulationParams is a validated LoRa modulation (SF, BW, CR, carrier).
type ModulationParams struct {
	Sf     uint8
	Bw     uint8 // lora.Bandwidth_* code
	Cr     uint8 // lora.CodingRate4_*
	FreqHz uint32
	Ldro   bool
}

// PacketParams frames one direction (tx or rx).
type PacketParams struct {
	Preamble   uint16
	Implicit   bool
	PayloadLen uint8 // tx: set per payload; rx: max accepted length
	CRC        bool
	IQInverted bool
}

// RxMode selects a bounded single window or continuous reception.
type RxMode struct {
	Continuous bool
	Symbols    uint16 // single-mode symbol timeout (max 1023)
}

func RxSingle(symbols uint16) RxMode { return RxMode{Symbols: symbols} }
func RxContinuous() RxMode           { return RxMode{Continuous: true} }

// PacketStatus carries per-frame link quality.
type PacketStatus struct {
	RSSI int16 // dBm
	SNR  int16 // dB
}

// NewModulationParams validates sf/bw/cr (lora package constants) and the
// carrier against the SX1276 range.
func NewModulationParams(sf, bw, cr uint8, freqHz uint32) (ModulationParams, error) {
	if !validSF(sf) || bandwidthHz(bw) == 0 || cr < lora.CodingRate4_5 || cr > lora.CodingRate4_8 {
		return ModulationParams{}, errcode.InvalidParams
	}
	if !mathx.Between(freqHz, 137_000_000, 1_020_000_000) {
		return ModulationParams{}, errcode.InvalidParams
	}
	m := ModulationParams{Sf: sf, Bw: bw, Cr: cr, FreqHz: freqHz}
	m.Ldro = m.SymbolTime() > 16*time.Millisecond
	return m, nil
}

// SymbolTime is 2^SF / BW.
func (m ModulationParams) SymbolTime() time.Duration {
	hz := bandwidthHz(m.Bw)
	if hz == 0 {
		return 0
	}
	return time.Duration(uint64(1)<<m.Sf) * time.Second / time.Duration(hz)
}

// NewTxPacketParams frames transmissions; the payload length is filled in
// by PrepareForTx.
func NewTxPacketParams(preamble uint16, implicit, crc, iqInverted bool) (PacketParams, error) {
	if preamble < 6 {
		return PacketParams{}, errcode.InvalidParams
	}
	return PacketParams{Preamble: preamble, Implicit: implicit, CRC: crc, IQInverted: iqInverted}, nil
}

// NewRxPacketParams frames receptions of at most maxLen bytes.
func NewRxPacketParams(preamble uint16, implicit bool, maxLen uint8, crc, iqInverted bool) (PacketParams, error) {
	if preamble < 6 || maxLen == 0 {
		return PacketParams{}, errcode.InvalidParams
	}
	return PacketParams{Preamble: preamble, Implicit: implicit, PayloadLen: maxLen, CRC: crc, IQInverted: iqInverted}, nil
}

// Config merges modulation and framing into the lora package's radio config.
func Config(m ModulationParams, p PacketParams, txPowerDBm int8) lora.Config {
	c := lora.Config{
		Freq:           m.FreqHz,
		Sf:             m.Sf,
		Bw:             m.Bw,
		Cr:             m.Cr,
		Ldr:            lora.LowDataRateOptimizeOff,
		Preamble:       p.Preamble,
		SyncWord:       syncPrivate,
		HeaderType:     lora.HeaderExplicit,
		Crc:            lora.CRCOff,
		Iq:             lora.IQStandard,
		LoraTxPowerDBm: txPowerDBm,
	}
	if m.Ldro {
		c.Ldr = lora.LowDataRateOptimizeOn
	}
	if p.Implicit {
		c.HeaderType = lora.HeaderImplicit
	}
	if p.CRC {
		c.Crc = lora.CRCOn
	}
	if p.IQInverted {
		c.Iq = lora.IQInverted
	}
	return c
}

func validSF(sf uint8) bool {
	switch sf {
	case lora.SpreadingFactor7, lora.SpreadingFactor8, lora.SpreadingFactor9,
		lora.SpreadingFactor10, lora.SpreadingFactor11, lora.SpreadingFactor12:
		return true
	}
	return false
}

// bwCode maps a lora bandwidth to the RegModemConfig1 field; 0xFF if unknown.
func bwCode(bw uint8) uint8 {
	switch bw {
	case lora.Bandwidth_7_8:
		return 0
	case lora.Bandwidth_10_4:
		return 1
	case lora.Bandwidth_15_6:
		return 2
	case lora.Bandwidth_20_8:
		return 3
	case lora.Bandwidth_31_25:
		return 4
	case lora.Bandwidth_41_7:
		return 5
	case lora.Bandwidth_62_5:
		return 6
	case lora.Bandwidth_125_0:
		return 7
	case lora.Bandwidth_250_0:
		return 8
	case lora.Bandwidth_500_0:
		return 9
	}
	return 0xFF
}

func bandwidthHz(bw uint8) uint32 {
	switch bw {
	case lora.Bandwidth_7_8:
		return 7_800
	case lora.Bandwidth_10_4:
		return 10_400
	case lora.Bandwidth_15_6:
		return 15_600
	case lora.Bandwidth_20_8:
		return 20_800
	case lora.Bandwidth_31_25:
		return 31_250
	case lora.Bandwidth_41_7:
		return 41_700
	case lora.Bandwidth_62_5:
		return 62_500
	case lora.Bandwidth_125_0:
		return 125_000
	case lora.Bandwidth_250_0:
		return 250_000
	case lora.Bandwidth_500_0:
		return 500_000
	}
	return 0
}
