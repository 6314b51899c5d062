package wifi

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"

	"fieldnode-go/types"
	"fieldnode-go/x/mailbox"
)

const (
	UploadPath = "/api/v1/caixas"
	bufferSize = 1024
)

var uploadBody = []byte("{code: 1; quantity: 400}")

// Uploader posts one report each time the link comes up.
type Uploader struct {
	client *http.Client
	url    string
	in     *mailbox.Mailbox[types.WifiStatus]

	buf      [bufferSize]byte
	attempts uint32

	trace func(types.WifiStatus)
}

func NewUploader(client *http.Client, baseURL string, in *mailbox.Mailbox[types.WifiStatus]) *Uploader {
	if client == nil {
		client = http.DefaultClient
	}
	return &Uploader{client: client, url: strings.TrimSuffix(baseURL, "/") + UploadPath, in: in}
}

// Attempts counts POSTs started, successful or not.
func (u *Uploader) Attempts() uint32 { return u.attempts }

func (u *Uploader) Run(ctx context.Context) error {
	println("[HTTP] Starting http task")
	for {
		st, err := u.in.Wait(ctx)
		if err != nil {
			return err
		}
		if u.trace != nil {
			u.trace(st)
		}
		if st == types.WifiDisconnected {
			continue
		}
		n, err := u.post(ctx)
		if err != nil {
			println("[HTTP] request failed:", err.Error())
			continue
		}
		println("[HTTP] response:", n)
	}
}

// post sends the report and reads at most bufferSize bytes of the reply.
func (u *Uploader) post(ctx context.Context) (int, error) {
	u.attempts++
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.url, bytes.NewReader(uploadBody))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := u.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	println("[HTTP] Request completed, status", resp.StatusCode)
	n, err := io.ReadFull(resp.Body, u.buf[:])
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		err = nil
	}
	return n, err
}
