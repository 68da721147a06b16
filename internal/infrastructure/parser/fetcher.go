package parser

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"TourScanner/internal/domain"
	"TourScanner/internal/ports"
)

const (
	defaultUserAgent = "TourScanner/1.0"
	maxBodyBytes     = 8 << 20
)

// HTTPFetcher downloads pages with a bounded client timeout and body size.
type HTTPFetcher struct {
	client  *http.Client
	maxBody int64
}

var _ ports.Fetcher = (*HTTPFetcher)(nil)

// NewHTTPFetcher wires an HTTP client; a nil client gets a 30s timeout.
func NewHTTPFetcher(client *http.Client) *HTTPFetcher {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPFetcher{client: client, maxBody: maxBodyBytes}
}

// Fetch issues a GET with the given headers and returns the body of a 2xx
// response. A body larger than the size cap is a FetchError, never a
// truncated page.
func (f *HTTPFetcher) Fetch(ctx context.Context, pageURL string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, &domain.FetchError{URL: pageURL, Err: eris.Wrap(err, "build request")}
	}
	for name, value := range headers {
		req.Header.Set(name, value)
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", defaultUserAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &domain.FetchError{URL: pageURL, Err: eris.Wrap(err, "request page")}
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &domain.FetchError{URL: pageURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody+1))
	if err != nil {
		return nil, &domain.FetchError{URL: pageURL, Err: eris.Wrap(err, "read body")}
	}
	if int64(len(body)) > f.maxBody {
		return nil, &domain.FetchError{URL: pageURL, Err: eris.Errorf("body exceeds %d bytes", f.maxBody)}
	}
	return body, nil
}
