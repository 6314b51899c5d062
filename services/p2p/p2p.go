// Package p2p runs the point-to-point radio exchange: transmit a fixed frame,
// open one receive window, report what came back, repeat.
//
// Transmit failures end the task. Receive failures (usually an empty window)
// are logged and the next cycle starts at transmit.
package p2p

import (
	"context"
	"time"

	"tinygo.org/x/drivers/lora"

	"fieldnode-go/drivers/sx1276"
	"fieldnode-go/errcode"
	"fieldnode-go/types"
	"fieldnode-go/x/conv"
	"fieldnode-go/x/mailbox"
	"fieldnode-go/x/timex"
)

// Link parameters shared by both ends.
const (
	FreqHz     = 904_000_000
	Preamble   = 12
	TxPowerDBm = 20
	PayloadLen = 52
	RxBufLen   = 255
	RxSymbols  = 512

	// RSSIGate: frames weaker than this (dBm) are counted but not dumped.
	RSSIGate = -120

	phaseDelay = time.Second
)

// Radio is the PHY surface the loop needs. *sx1276.Device satisfies it.
type Radio interface {
	Init(ctx context.Context) error
	PrepareForTx(ctx context.Context, mod sx1276.ModulationParams, pkt sx1276.PacketParams, powerDBm int8, payload []byte) error
	Tx(ctx context.Context) error
	PrepareForRx(ctx context.Context, mode sx1276.RxMode, mod sx1276.ModulationParams, pkt sx1276.PacketParams) error
	Rx(ctx context.Context, pkt sx1276.PacketParams, buf []byte) (uint8, sx1276.PacketStatus, error)
}

var _ Radio = (*sx1276.Device)(nil)

type Loop struct {
	radio Radio
	link  *mailbox.Mailbox[types.LinkQuality]

	// Delay separates the tx and rx phases and successive cycles.
	Delay time.Duration

	mod sx1276.ModulationParams
	txp sx1276.PacketParams
	rxp sx1276.PacketParams

	tx  [PayloadLen]byte
	rx  [RxBufLen]byte
	log []byte
}

// New builds a loop over r. link may be nil; when set, every received
// frame's quality is published on it.
func New(r Radio, link *mailbox.Mailbox[types.LinkQuality]) *Loop {
	l := &Loop{radio: r, link: link, Delay: phaseDelay}
	for i := range l.tx {
		l.tx[i] = byte(i)
	}
	return l
}

// Setup initialises the radio and derives the link parameters.
func (l *Loop) Setup(ctx context.Context) error {
	if err := l.radio.Init(ctx); err != nil {
		println("[LoRa] radio init failed:", err.Error())
		return err
	}
	var err error
	l.mod, err = sx1276.NewModulationParams(lora.SpreadingFactor11, lora.Bandwidth_500_0, lora.CodingRate4_5, FreqHz)
	if err != nil {
		println("[LoRa P2P] Failed to create modulation params:", err.Error())
		return err
	}
	l.txp, err = sx1276.NewTxPacketParams(Preamble, false, true, false)
	if err != nil {
		println("[LoRa P2P] Failed to create tx packet params:", err.Error())
		return err
	}
	l.rxp, err = sx1276.NewRxPacketParams(Preamble, false, RxBufLen, true, false)
	if err != nil {
		println("[LoRa P2P] Failed to create rx packet params:", err.Error())
		return err
	}
	return nil
}

// Run sets up and cycles until a transmit fails or ctx ends. It only
// returns with a non-nil error.
func (l *Loop) Run(ctx context.Context) error {
	println("[LoRa] Starting LoRa P2P ...")
	if err := l.Setup(ctx); err != nil {
		return err
	}
	for {
		if err := l.send(ctx); err != nil {
			println("[LoRa P2P] Failed to send message:", err.Error())
			return err
		}
		if err := timex.Sleep(ctx, l.Delay); err != nil {
			return err
		}
		n, st, err := l.receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			println("[LoRa P2P] Failed to receive message before tx:", err.Error())
			continue
		}
		l.report(n, st)
		if err := timex.Sleep(ctx, l.Delay); err != nil {
			return err
		}
	}
}

func (l *Loop) send(ctx context.Context) error {
	println("[LoRa P2P] Sending...")
	if err := l.radio.PrepareForTx(ctx, l.mod, l.txp, TxPowerDBm, l.tx[:]); err != nil {
		return errcode.Wrap(errcode.PrepareForTx, "p2p_tx", err)
	}
	println("[LoRa P2P] Prepared for tx")
	if err := l.radio.Tx(ctx); err != nil {
		return errcode.Wrap(errcode.Tx, "p2p_tx", err)
	}
	println("[LoRa P2P] Message sent")
	return nil
}

func (l *Loop) receive(ctx context.Context) (uint8, sx1276.PacketStatus, error) {
	println("[LoRa P2P] Receiving...")
	if err := l.radio.PrepareForRx(ctx, sx1276.RxSingle(RxSymbols), l.mod, l.rxp); err != nil {
		return 0, sx1276.PacketStatus{}, errcode.Wrap(errcode.PrepareForRx, "p2p_rx", err)
	}
	println("[LoRa P2P] Prepared for rx")
	l.rx = [RxBufLen]byte{}
	n, st, err := l.radio.Rx(ctx, l.rxp, l.rx[:])
	if err != nil {
		return 0, st, errcode.Wrap(errcode.Rx, "p2p_rx", err)
	}
	return n, st, nil
}

// report publishes link quality for every frame and dumps the frame when it
// clears RSSIGate. It reports whether the dump was printed.
func (l *Loop) report(n uint8, st sx1276.PacketStatus) bool {
	println("[LoRa P2P] Received:", n)
	if l.link != nil {
		l.link.Publish(types.LinkQuality{FreqHz: FreqHz, RSSI: st.RSSI, SNR: st.SNR, Len: n})
	}
	if st.RSSI <= RSSIGate {
		return false
	}
	l.log = append(l.log[:0], "[LoRa P2P] payload: "...)
	l.log = conv.AppendHexDump(l.log, l.rx[:n])
	println(string(l.log))
	println("[LoRa P2P]", Summary(st))
	return true
}

// Summary renders "rssi: X snr: Y".
func Summary(st sx1276.PacketStatus) string {
	b := make([]byte, 0, 24)
	b = append(b, "rssi: "...)
	b = conv.AppendInt(b, int64(st.RSSI))
	b = append(b, " snr: "...)
	b = conv.AppendInt(b, int64(st.SNR))
	return string(b)
}
