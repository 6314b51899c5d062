//go:build rp2040 && !nano_rp2040 && !challenger_rp2040

package board

import (
	"net/http"

	"fieldnode-go/services/wifi"
)

// No network module on this target.
func probeWiFi() (*wifi.Link, *http.Client) { return nil, nil }
