// Package download streams resolved media URLs to local files.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/vmunix/exvid/internal/httpx"
)

// DefaultTimeout bounds the wait for a response and any pause in its body.
const DefaultTimeout = 60 * time.Second

// chunkSize is the copy buffer size.
const chunkSize = 256 << 10

// Outcome describes a finished download.
type Outcome struct {
	Path    string
	Bytes   int64
	Skipped bool // destination already existed
}

// Downloader writes remote files atomically: data goes to a temp file in the
// destination directory and is renamed into place only after a full fsync.
type Downloader struct {
	httpClient *http.Client
	headers    http.Header
	timeout    time.Duration
	retry      httpx.RetryConfig
	progress   io.Writer
	logger     *slog.Logger
}

// Option configures a Downloader.
type Option func(*Downloader)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(d *Downloader) {
		d.httpClient = hc
	}
}

// WithTimeout sets how long a transfer may go without receiving data.
func WithTimeout(t time.Duration) Option {
	return func(d *Downloader) {
		if t > 0 {
			d.timeout = t
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(d *Downloader) {
		d.headers = httpx.BrowserHeaders(ua)
	}
}

// WithRetry sets the retry policy for the initial request.
func WithRetry(cfg httpx.RetryConfig) Option {
	return func(d *Downloader) {
		d.retry = cfg
	}
}

// WithProgress renders a byte progress bar to w.
func WithProgress(w io.Writer) Option {
	return func(d *Downloader) {
		d.progress = w
	}
}

// New creates a Downloader.
func New(logger *slog.Logger, opts ...Option) *Downloader {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Downloader{
		httpClient: &http.Client{},
		headers:    httpx.BrowserHeaders(""),
		timeout:    DefaultTimeout,
		retry:      httpx.RetryConfig{MaxRetries: 2},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Fetch downloads url to dest. With skipExisting, an existing dest is
// reported as Skipped without any network access. On failure no partial file
// is left behind and the error wraps ErrDownloadFailed.
func (d *Downloader) Fetch(ctx context.Context, url, dest string, skipExisting bool) (Outcome, error) {
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Outcome{}, fmt.Errorf("%w: create directory: %v", ErrDownloadFailed, err)
	}
	if skipExisting {
		if _, err := os.Stat(dest); err == nil {
			d.logger.Debug("destination exists, skipping", "path", dest)
			return Outcome{Path: dest, Skipped: true}, nil
		}
	}

	// The timeout bounds waiting for the response and any stall while
	// streaming it; a slow transfer that keeps delivering bytes is not cut off.
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	stall := time.AfterFunc(d.timeout, func() {
		cancel(fmt.Errorf("%w after %s", ErrStalled, d.timeout))
	})
	defer stall.Stop()

	resp, err := httpx.Get(ctx, d.httpClient, url, d.headers, d.retry)
	if err != nil {
		if cause := context.Cause(ctx); errors.Is(cause, ErrStalled) {
			return Outcome{}, fmt.Errorf("%w: %w", ErrDownloadFailed, cause)
		}
		var statusErr *httpx.StatusError
		if errors.As(err, &statusErr) {
			return Outcome{}, fmt.Errorf("%w: %w: %d", ErrDownloadFailed, ErrBadStatus, statusErr.StatusCode)
		}
		return Outcome{}, fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	tmp, err := os.CreateTemp(dir, ".exvid-*.part")
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: create temp file: %v", ErrDownloadFailed, err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = os.Remove(tmpPath)
	}

	var w io.Writer = tmp
	if d.progress != nil {
		bar := newBar(d.progress, resp.ContentLength, filepath.Base(dest))
		defer func() { _ = bar.Close() }()
		w = io.MultiWriter(tmp, bar)
	}

	body := &idleReader{r: resp.Body, stall: stall, timeout: d.timeout}
	n, err := io.CopyBuffer(w, body, make([]byte, chunkSize))
	if err != nil {
		_ = tmp.Close()
		cleanup()
		if cause := context.Cause(ctx); errors.Is(cause, ErrStalled) {
			return Outcome{}, fmt.Errorf("%w: copy body: %w", ErrDownloadFailed, cause)
		}
		return Outcome{}, fmt.Errorf("%w: copy body: %v", ErrDownloadFailed, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return Outcome{}, fmt.Errorf("%w: sync: %v", ErrDownloadFailed, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return Outcome{}, fmt.Errorf("%w: close temp file: %v", ErrDownloadFailed, err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		cleanup()
		return Outcome{}, fmt.Errorf("%w: chmod: %v", ErrDownloadFailed, err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		cleanup()
		return Outcome{}, fmt.Errorf("%w: rename: %v", ErrDownloadFailed, err)
	}

	d.logger.Debug("download complete", "path", dest, "bytes", n)
	return Outcome{Path: dest, Bytes: n}, nil
}

// idleReader pushes the stall deadline back after every read that
// returns data.
type idleReader struct {
	r       io.Reader
	stall   *time.Timer
	timeout time.Duration
}

func (r *idleReader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	if n > 0 {
		r.stall.Reset(r.timeout)
	}
	return n, err
}

func newBar(w io.Writer, size int64, name string) *progressbar.ProgressBar {
	return progressbar.NewOptions64(
		size,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(name),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(30),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}
