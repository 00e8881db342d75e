package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// Sender delivers one payload to the collector.
type Sender interface {
	Upload(ctx context.Context, p *Payload) error
}

// Uploader posts payloads as JSON to the collector's upload endpoint.
type Uploader struct {
	URL     string
	Timeout time.Duration

	client *http.Client
}

func NewUploader(opt Options) (*Uploader, error) {
	target, err := opt.UploadURL()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}

	u := &Uploader{
		URL:     target,
		Timeout: opt.Timeout,
		client: &http.Client{
			Timeout: opt.Timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   opt.Timeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	return u, nil
}

// Upload sends p once. A nil error means the collector answered 200; any other
// status is a *StatusError.
func (u *Uploader) Upload(ctx context.Context, p *Payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, u.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := u.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	// drain so the connection can be reused
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return &StatusError{StatusCode: resp.StatusCode}
	}
	return nil
}

// CloseIdle drops pooled connections.
func (u *Uploader) CloseIdle() {
	u.client.CloseIdleConnections()
}
