package sx1276

// LoRa-mode register map (subset used by the driver).
const (
	RegFifo              = 0x00
	RegOpMode            = 0x01
	RegFrfMsb            = 0x06
	RegFrfMid            = 0x07
	RegFrfLsb            = 0x08
	RegPaConfig          = 0x09
	RegOcp               = 0x0B
	RegLna               = 0x0C
	RegFifoAddrPtr       = 0x0D
	RegFifoTxBaseAddr    = 0x0E
	RegFifoRxBaseAddr    = 0x0F
	RegFifoRxCurrentAddr = 0x10
	RegIrqFlags          = 0x12
	RegRxNbBytes         = 0x13
	RegPktSnrValue       = 0x19
	RegPktRssiValue      = 0x1A
	RegModemConfig1      = 0x1D
	RegModemConfig2      = 0x1E
	RegSymbTimeoutLsb    = 0x1F
	RegPreambleMsb       = 0x20
	RegPreambleLsb       = 0x21
	RegPayloadLength     = 0x22
	RegMaxPayloadLength  = 0x23
	RegModemConfig3      = 0x26
	RegDetectOptimize    = 0x31
	RegInvertIQ          = 0x33
	RegDetectThreshold   = 0x37
	RegSyncWord          = 0x39
	RegInvertIQ2         = 0x3B
	RegDioMapping1       = 0x40
	RegVersion           = 0x42
	RegTcxo              = 0x4B
	RegPaDac             = 0x4D
)

// RegOpMode values.
const (
	ModeLongRange    = 0x80
	ModeSleep        = 0x00
	ModeStandby      = 0x01
	ModeTx           = 0x03
	ModeRxContinuous = 0x05
	ModeRxSingle     = 0x06
)

// RegIrqFlags bits.
const (
	IrqRxTimeout       = 0x80
	IrqRxDone          = 0x40
	IrqPayloadCrcError = 0x20
	IrqValidHeader     = 0x10
	IrqTxDone          = 0x08
)

// RegDioMapping1: DIO0 in bits 7:6.
const (
	Dio0RxDone = 0x00
	Dio0TxDone = 0x40
)

const (
	ChipVersion = 0x12 // RegVersion silicon id

	paBoost      = 0x80
	tcxoInput    = 0x10
	lnaBoostHF   = 0x03
	agcAutoOn    = 0x04
	ldroOn       = 0x08
	crcOn        = 0x04
	syncPrivate  = 0x12
	fxoscHz      = 32_000_000
	rssiOffsetHF = -157
)
