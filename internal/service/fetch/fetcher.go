// Package fetch retrieves single still frames from camera HTTP endpoints.
package fetch

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"
)

// Default limits for frame fetches.
const (
	DefaultTimeout         = 5 * time.Second
	DefaultConnectTimeout  = 3 * time.Second
	DefaultKeepAlive       = 30 * time.Second
	DefaultIdleConnTimeout = 90 * time.Second
	DefaultMaxFrameBytes   = 20 << 20
)

// Fetcher performs one bounded GET per frame. It never retries.
type Fetcher struct {
	client   *http.Client
	timeout  time.Duration
	maxBytes int64
}

// NewFetcher creates a Fetcher whose requests are bounded by timeout and
// whose response bodies are capped at maxBytes.
func NewFetcher(timeout time.Duration, maxBytes int64) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxFrameBytes
	}

	return &Fetcher{
		client:   newClient(timeout),
		timeout:  timeout,
		maxBytes: maxBytes,
	}
}

func newClient(timeout time.Duration) *http.Client {
	connectTimeout := DefaultConnectTimeout
	if timeout < connectTimeout {
		connectTimeout = timeout
	}

	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   connectTimeout,
				KeepAlive: DefaultKeepAlive,
			}).DialContext,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   4,
			IdleConnTimeout:       DefaultIdleConnTimeout,
			TLSHandshakeTimeout:   connectTimeout,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}

// Timeout returns the bound applied to each fetch.
func (f *Fetcher) Timeout() time.Duration {
	return f.timeout
}

// Fetch downloads the frame at rawURL. Network failures, timeouts, non-2xx
// statuses and oversized bodies are all reported as errors.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errors.Wrap(withoutURL(err), "invalid camera url")
	}
	req.Header.Set("Accept", "image/*")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(withoutURL(err), "request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, errors.Errorf("unexpected status %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, errors.Wrap(err, "read frame body")
	}
	if int64(len(body)) > f.maxBytes {
		return nil, errors.Errorf("frame larger than %d bytes", f.maxBytes)
	}

	return body, nil
}

// withoutURL drops the *url.Error wrapper so the camera URL, which may carry
// credentials or tokens, never ends up in an error message.
func withoutURL(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return ue.Err
	}
	return err
}
