package httpfetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"ReadingRoom/internal/domain"
	"ReadingRoom/internal/ports"
)

const maxBodyBytes = 64 << 20

// Fetcher downloads pages and files over HTTP.
type Fetcher struct {
	client    *http.Client
	userAgent string
	maxBytes  int64
}

var _ ports.Fetcher = (*Fetcher)(nil)

// New wires an HTTP client; a nil client gets a 30s timeout.
func New(client *http.Client, userAgent string) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if userAgent == "" {
		userAgent = "Mozilla/5.0"
	}
	return &Fetcher{client: client, userAgent: userAgent, maxBytes: maxBodyBytes}
}

// Fetch returns the response body. Every failure wraps domain.ErrFetch,
// including a body larger than the size limit.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", domain.ErrFetch, err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request %s: %v", domain.ErrFetch, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned %s", domain.ErrFetch, url, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrFetch, url, err)
	}
	if int64(len(body)) > f.maxBytes {
		return nil, fmt.Errorf("%w: %s body too large (over %d bytes)", domain.ErrFetch, url, f.maxBytes)
	}
	return body, nil
}
