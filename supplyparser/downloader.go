package supplyparser

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/giygas/iyakuhin-supply/logging"
	"golang.org/x/text/encoding/japanese"
)

// Fetcher performs single-shot GET requests. It never retries and never caches.
type Fetcher struct {
	client    *http.Client
	userAgent string
}

// NewFetcher returns a Fetcher sending userAgent on every request. A nil
// client uses a fresh http.Client; timeouts are applied per call.
func NewFetcher(client *http.Client, userAgent string) *Fetcher {
	if client == nil {
		client = &http.Client{}
	}
	return &Fetcher{client: client, userAgent: userAgent}
}

// Fetch GETs url and returns the full body. The timeout covers the request
// and reading the body; expiry, network failures and non-2xx statuses are
// reported as *TransportError.
func (f *Fetcher) Fetch(ctx context.Context, url string, timeout time.Duration) ([]byte, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &TransportError{URL: url, Err: fmt.Errorf("new request: %w", err)}
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &TransportError{URL: url, Err: err}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logging.Warn("Failed to close response body", "error", err)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &TransportError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{URL: url, Err: fmt.Errorf("read body: %w", err)}
	}

	return body, nil
}

// decodePage returns the index page as UTF-8 text. Older MHLW pages were
// served as Shift_JIS, so anything that is not valid UTF-8 is decoded as such.
func decodePage(body []byte) (string, error) {
	if utf8.Valid(body) {
		return string(body), nil
	}

	decoded, err := io.ReadAll(japanese.ShiftJIS.NewDecoder().Reader(bytes.NewReader(body)))
	if err != nil {
		return "", fmt.Errorf("failed to decode page as Shift_JIS: %w", err)
	}
	return string(decoded), nil
}
