package config

import (
	_ "embed"
	"strings"

	"fieldnode-go/errcode"
)

// -----------------------------------------------------------------------------
// Build-time configuration
//
// Each value is a file under build/, embedded at compile time. A missing
// file fails the build. Surrounding whitespace is ignored.
// -----------------------------------------------------------------------------

//go:embed build/ssid
var embeddedSSID string

//go:embed build/password
var embeddedPassword string

//go:embed build/url
var embeddedURL string

const (
	maxSSID     = 32
	maxPassword = 64
)

// Build is the validated build configuration.
type Build struct {
	SSID     string
	Password string
	URL      string
}

// EmbeddedLookup allows overriding where the raw values come from.
var EmbeddedLookup = func() Build {
	return Build{SSID: embeddedSSID, Password: embeddedPassword, URL: embeddedURL}
}

// Load trims and validates the embedded values.
func Load() (Build, error) {
	raw := EmbeddedLookup()
	b := Build{
		SSID:     strings.TrimSpace(raw.SSID),
		Password: strings.TrimSpace(raw.Password),
		URL:      strings.TrimSpace(raw.URL),
	}
	switch {
	case b.SSID == "" || len(b.SSID) > maxSSID:
		return Build{}, &errcode.E{C: errcode.InvalidParams, Op: "config", Msg: "ssid"}
	case b.Password == "" || len(b.Password) > maxPassword:
		return Build{}, &errcode.E{C: errcode.InvalidParams, Op: "config", Msg: "password"}
	case b.URL == "":
		return Build{}, &errcode.E{C: errcode.InvalidParams, Op: "config", Msg: "url"}
	}
	return b, nil
}
