// Package ytdlp downloads exercise pages through the yt-dlp executable.
package ytdlp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/vmunix/exvid/pkg/catalog"
)

// Defaults mirror a conservative yt-dlp setup for short clips.
const (
	DefaultBinary              = "yt-dlp"
	DefaultFormat              = "bv*+ba/b"
	DefaultRetries             = 5
	DefaultFragmentRetries     = 10
	DefaultConcurrentFragments = 5
)

// maxStderr bounds the captured diagnostic output.
const maxStderr = 4 << 10

// Options configures yt-dlp invocations.
type Options struct {
	Binary             string
	Format             string
	RateLimit          string // e.g. "2M" or "500K"
	CookiesPath        string
	CookiesFromBrowser string
	Retries            int
	FragmentRetries    int
	Fragments          int
}

func (o Options) withDefaults() Options {
	if o.Binary == "" {
		o.Binary = DefaultBinary
	}
	if o.Format == "" {
		o.Format = DefaultFormat
	}
	if o.Retries <= 0 {
		o.Retries = DefaultRetries
	}
	if o.FragmentRetries <= 0 {
		o.FragmentRetries = DefaultFragmentRetries
	}
	if o.Fragments <= 0 {
		o.Fragments = DefaultConcurrentFragments
	}
	return o
}

// Runner executes a command. Tests substitute it.
type Runner interface {
	Run(ctx context.Context, name string, args []string, stdout, stderr io.Writer) error
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, name string, args []string, stdout, stderr io.Writer) error

func (f RunnerFunc) Run(ctx context.Context, name string, args []string, stdout, stderr io.Writer) error {
	return f(ctx, name, args, stdout, stderr)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args []string, stdout, stderr io.Writer) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	return cmd.Run()
}

// Client runs yt-dlp.
type Client struct {
	opts   Options
	runner Runner
	output io.Writer
	logger *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithRunner replaces the process runner.
func WithRunner(r Runner) ClientOption {
	return func(c *Client) {
		c.runner = r
	}
}

// WithOutput echoes yt-dlp's standard output to w.
func WithOutput(w io.Writer) ClientOption {
	return func(c *Client) {
		c.output = w
	}
}

// New creates a Client.
func New(opts Options, logger *slog.Logger, copts ...ClientOption) *Client {
	c := &Client{
		opts:   opts.withDefaults(),
		runner: execRunner{},
		output: io.Discard,
		logger: logger.With("component", "ytdlp"),
	}
	for _, o := range copts {
		o(c)
	}
	return c
}

// CheckInstalled reports whether the configured binary is on PATH.
func (c *Client) CheckInstalled() error {
	if _, err := exec.LookPath(c.opts.Binary); err != nil {
		return fmt.Errorf("%w: %s", ErrNotInstalled, c.opts.Binary)
	}
	return nil
}

// OutputPath returns where Download stores the page's video.
func OutputPath(outputDir, title string) string {
	return filepath.Join(outputDir, catalog.SanitizeFilename(title)+".mp4")
}

// Args builds the yt-dlp command line for one page.
func (c *Client) Args(pageURL, outputDir, title string, skipExisting bool) ([]string, error) {
	if strings.TrimSpace(pageURL) == "" {
		return nil, fmt.Errorf("page URL is required")
	}
	o := c.opts
	args := []string{
		"--no-playlist",
		"--newline",
		"--continue",
		"-o", filepath.Join(outputDir, catalog.SanitizeFilename(title)+".%(ext)s"),
		"-f", o.Format,
		"--merge-output-format", "mp4",
		"--retries", strconv.Itoa(o.Retries),
		"--fragment-retries", strconv.Itoa(o.FragmentRetries),
		"-N", strconv.Itoa(o.Fragments),
	}
	if skipExisting {
		args = append(args, "--no-overwrites")
	}
	if o.RateLimit != "" {
		args = append(args, "--limit-rate", o.RateLimit)
	}
	if strings.TrimSpace(o.CookiesPath) != "" {
		cookies, err := resolveCookiesPath(o.CookiesPath)
		if err != nil {
			return nil, err
		}
		args = append(args, "--cookies", cookies)
	}
	if strings.TrimSpace(o.CookiesFromBrowser) != "" {
		args = append(args, "--cookies-from-browser", o.CookiesFromBrowser)
	}
	return append(args, pageURL), nil
}

// Download fetches the video behind pageURL into outputDir and returns the
// expected output path.
func (c *Client) Download(ctx context.Context, pageURL, outputDir, title string, skipExisting bool) (string, error) {
	args, err := c.Args(pageURL, outputDir, title, skipExisting)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	c.logger.Debug("running yt-dlp", "url", pageURL, "args", args)
	stderr := &tailBuffer{max: maxStderr}
	if err := c.runner.Run(ctx, c.opts.Binary, args, c.output, stderr); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", fmt.Errorf("%w: %s", ErrNotInstalled, c.opts.Binary)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		if msg := lastLine(stderr.String()); msg != "" {
			return "", fmt.Errorf("%w: %s (%v)", ErrFailed, msg, err)
		}
		return "", fmt.Errorf("%w: %v", ErrFailed, err)
	}
	return OutputPath(outputDir, title), nil
}

func resolveCookiesPath(path string) (string, error) {
	abs, err := filepath.Abs(strings.TrimSpace(path))
	if err != nil {
		return "", fmt.Errorf("resolve cookies path %s: %w", path, err)
	}
	if _, err := os.Stat(abs); err != nil {
		return "", fmt.Errorf("cookies file %s: %w", abs, err)
	}
	return abs, nil
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	max int
	buf bytes.Buffer
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	n := len(p)
	t.buf.Write(p)
	if over := t.buf.Len() - t.max; over > 0 {
		t.buf.Next(over)
	}
	return n, nil
}

func (t *tailBuffer) String() string {
	return t.buf.String()
}

// lastLine returns the last non-empty line, which is where yt-dlp puts its
// ERROR: summary.
func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return ""
}
