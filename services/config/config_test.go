// config/config_test.go
package config

import (
	"errors"
	"strings"
	"testing"

	"fieldnode-go/errcode"
)

func withLookup(t *testing.T, b Build) {
	t.Helper()
	old := EmbeddedLookup
	EmbeddedLookup = func() Build { return b }
	t.Cleanup(func() { EmbeddedLookup = old })
}

func TestLoad_EmbeddedFilesAreValid(t *testing.T) {
	b, err := Load()
	if err != nil {
		t.Fatalf("embedded config: %v", err)
	}
	if strings.ContainsAny(b.SSID+b.Password+b.URL, "\r\n") {
		t.Fatalf("values not trimmed: %+v", b)
	}
}

func TestLoad_TrimsWhitespace(t *testing.T) {
	withLookup(t, Build{SSID: " net\n", Password: "secret\n", URL: "http://h:1\n"})
	b, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if b != (Build{SSID: "net", Password: "secret", URL: "http://h:1"}) {
		t.Fatalf("b = %+v", b)
	}
}

func TestLoad_RejectsBadValues(t *testing.T) {
	cases := []struct {
		name string
		b    Build
		msg  string
	}{
		{"empty ssid", Build{SSID: " ", Password: "p", URL: "u"}, "ssid"},
		{"long ssid", Build{SSID: strings.Repeat("s", 33), Password: "p", URL: "u"}, "ssid"},
		{"long password", Build{SSID: "s", Password: strings.Repeat("p", 65), URL: "u"}, "password"},
		{"no url", Build{SSID: "s", Password: "p"}, "url"},
	}
	for _, c := range cases {
		withLookup(t, c.b)
		_, err := Load()
		if !errors.Is(err, errcode.InvalidParams) {
			t.Fatalf("%s: err = %v", c.name, err)
		}
		var e *errcode.E
		if !errors.As(err, &e) || e.Msg != c.msg {
			t.Fatalf("%s: err = %v", c.name, err)
		}
	}
}
