// Package probe checks candidate media URLs for existence and resolves the
// lowest-rank candidate that exists.
package probe

//go:generate mockgen -destination=mocks/prober_mock.go -package=mocks github.com/vmunix/exvid/internal/probe Prober

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/vmunix/exvid/internal/httpx"
)

// DefaultTimeout bounds a single existence check.
const DefaultTimeout = 5 * time.Second

// Prober reports whether a URL points at an existing resource.
type Prober interface {
	Exists(ctx context.Context, url string) (bool, error)
}

// ProberFunc adapts a function to Prober.
type ProberFunc func(ctx context.Context, url string) (bool, error)

// Exists calls f.
func (f ProberFunc) Exists(ctx context.Context, url string) (bool, error) {
	return f(ctx, url)
}

// HTTPProber checks URLs with HEAD, falling back to a streamed GET when the
// HEAD answer is not conclusive.
type HTTPProber struct {
	client  *http.Client
	headers http.Header
	timeout time.Duration
}

// Option configures an HTTPProber.
type Option func(*HTTPProber)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(p *HTTPProber) {
		p.client = hc
	}
}

// WithTimeout sets the per-probe timeout.
func WithTimeout(d time.Duration) Option {
	return func(p *HTTPProber) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(p *HTTPProber) {
		p.headers = httpx.BrowserHeaders(ua)
	}
}

// NewHTTPProber creates a prober. Redirects are followed.
func NewHTTPProber(opts ...Option) *HTTPProber {
	p := &HTTPProber{
		client:  &http.Client{},
		headers: httpx.BrowserHeaders(""),
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Exists returns true when HEAD answers 2xx with a non-empty Content-Length,
// or when a follow-up GET answers 2xx. The GET body is never read.
func (p *HTTPProber) Exists(ctx context.Context, url string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.do(ctx, http.MethodHead, url)
	if err != nil {
		return false, err
	}
	_ = resp.Body.Close()
	if isOK(resp) && resp.ContentLength >= 1 {
		return true, nil
	}

	resp, err = p.do(ctx, http.MethodGet, url)
	if err != nil {
		return false, err
	}
	_ = resp.Body.Close()
	return isOK(resp), nil
}

func (p *HTTPProber) do(ctx context.Context, method, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpx.Apply(req, p.headers)
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, url, err)
	}
	return resp, nil
}

func isOK(resp *http.Response) bool {
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
