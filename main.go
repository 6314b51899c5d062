package main

import (
	"context"
	"time"

	"fieldnode-go/board"
	"fieldnode-go/services/button"
	"fieldnode-go/services/config"
	"fieldnode-go/services/display"
	"fieldnode-go/services/gps"
	"fieldnode-go/services/heartbeat"
	"fieldnode-go/services/led"
	"fieldnode-go/services/p2p"
	"fieldnode-go/services/session"
	"fieldnode-go/services/wifi"
	"fieldnode-go/types"
	"fieldnode-go/x/conv"
	"fieldnode-go/x/mailbox"
	"fieldnode-go/x/pipe"
)

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(2 * time.Second)
	println("[MAIN] boot")

	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		println("[MAIN] config:", err.Error())
	}

	var (
		buttonBox  = mailbox.New[types.ButtonState]()
		ledBox     = mailbox.New[types.LedState]()
		wifiBox    = mailbox.New[types.WifiStatus]()
		displayBox = mailbox.New[types.DisplayText]()
		linkBox    = mailbox.New[types.LinkQuality]()
		gpsPipe    = pipe.New(gps.PipeSize)
	)

	b, err := board.New(board.Selected)
	if err != nil {
		println("[MAIN] board:", err.Error())
		halt()
	}

	if b.Storage != nil {
		logSession(session.NewStore(b.Storage, b.SessionOffset))
	}

	ledBox.Publish(types.LedOff)

	spawn(ctx, "button", button.New(b.Button, buttonBox, b.ButtonInverts).Run)
	spawn(ctx, "led", led.New(b.LED, ledBox).Run)

	if b.Radio != nil {
		spawn(ctx, "lora p2p", p2p.New(b.Radio, linkBox).Run)
	}

	if b.GPS != nil {
		spawn(ctx, "gps reader", gps.NewReader(b.GPS, gpsPipe).Run)
		spawn(ctx, "gps writer", gps.NewWriter(b.GPS, gpsPipe).Run)
	}

	if b.Display != nil {
		spawn(ctx, "display", display.New(b.Display, displayBox, linkBox).Run)
	}

	if b.WiFi != nil && cfg.SSID != "" {
		sup := wifi.NewSupervisor(b.WiFi, cfg.SSID, cfg.Password, wifiBox, displayBox)
		spawn(ctx, "wifi", func(ctx context.Context) error { return sup.Run(ctx, b.WiFi) })
		spawn(ctx, "http", wifi.NewUploader(b.HTTP, cfg.URL, wifiBox).Run)
	}

	hb := &heartbeat.Service{}
	hb.Run(ctx)
}

// spawn starts a task. A task that returns has hit a terminal failure and
// stays down until reset.
func spawn(ctx context.Context, name string, run func(context.Context) error) {
	go func() {
		err := run(ctx)
		if err != nil {
			println("[MAIN] task", name, "stopped:", err.Error())
		} else {
			println("[MAIN] task", name, "stopped")
		}
	}()
	println("[MAIN] Task spawned successfully:", name)
}

func logSession(st *session.Store) {
	r, ok, err := st.Load()
	switch {
	case err != nil:
		println("[SESSION] load:", err.Error())
	case !ok:
		println("[SESSION] none stored")
	default:
		var line []byte
		line = append(line, "[SESSION] dev addr: "...)
		line = conv.AppendHexDump(line, r.DevAddr[:])
		line = append(line, "nonce: "...)
		line = conv.AppendUint(line, uint64(r.Nonce))
		println(string(line))
	}
}

func halt() {
	for {
		time.Sleep(time.Hour)
	}
}
