// Package page fetches exercise detail pages and extracts embedded video URLs.
package page

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/vmunix/exvid/internal/httpx"
)

// DefaultTimeout bounds a page fetch.
const DefaultTimeout = 30 * time.Second

// maxPageBytes caps how much of a page is read into memory.
const maxPageBytes = 16 << 20

// Cache stores fetched page bodies.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Client fetches pages with browser headers and retries.
type Client struct {
	httpClient  *http.Client
	headers     http.Header
	timeout     time.Duration
	retry       httpx.RetryConfig
	cache       Cache
	cacheTTL    time.Duration
	mediaOrigin string
	logger      *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-fetch timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.headers = httpx.BrowserHeaders(ua)
	}
}

// WithRetry sets the retry policy for page fetches.
func WithRetry(cfg httpx.RetryConfig) Option {
	return func(c *Client) {
		c.retry = cfg
	}
}

// WithCache enables a read-through cache. A zero ttl disables it.
func WithCache(cache Cache, ttl time.Duration) Option {
	return func(c *Client) {
		if ttl > 0 {
			c.cache = cache
			c.cacheTTL = ttl
		}
	}
}

// WithMediaOrigin sets the origin searched for in inline page state.
func WithMediaOrigin(origin string) Option {
	return func(c *Client) {
		c.mediaOrigin = origin
	}
}

// NewClient creates a page client.
func NewClient(logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		httpClient:  &http.Client{},
		headers:     httpx.BrowserHeaders(""),
		timeout:     DefaultTimeout,
		retry:       httpx.RetryConfig{MaxRetries: 2},
		mediaOrigin: DefaultMediaOrigin,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch returns the HTML of pageURL.
func (c *Client) Fetch(ctx context.Context, pageURL string) (string, error) {
	if c.cache != nil {
		if body, ok := c.cache.Get(ctx, pageURL); ok {
			c.logger.Debug("page cache hit", "url", pageURL)
			return string(body), nil
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := httpx.Get(ctx, c.httpClient, pageURL, c.headers, c.retry)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrFetchFailed, pageURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", fmt.Errorf("%w: read %s: %v", ErrFetchFailed, pageURL, err)
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, pageURL, body, c.cacheTTL); err != nil {
			c.logger.Warn("page cache write failed", "url", pageURL, "error", err)
		}
	}
	return string(body), nil
}

// Videos fetches pageURL and returns its embedded .mp4 URLs.
func (c *Client) Videos(ctx context.Context, pageURL string) ([]string, error) {
	html, err := c.Fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	return ExtractVideos(html, pageURL, c.mediaOrigin), nil
}
