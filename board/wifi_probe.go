//go:build nano_rp2040 || challenger_rp2040

package board

import (
	"net/http"

	"tinygo.org/x/drivers/netlink/probe"

	"fieldnode-go/services/wifi"
)

// probeWiFi finds the on-board network module and registers it as the
// netdev behind net/http.
func probeWiFi() (*wifi.Link, *http.Client) {
	link, dev := probe.Probe()
	return wifi.NewLink(link, dev), http.DefaultClient
}
