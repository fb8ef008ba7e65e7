package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/vmunix/exvid/internal/config"
	"github.com/vmunix/exvid/internal/download"
	"github.com/vmunix/exvid/internal/events"
	"github.com/vmunix/exvid/internal/handlers"
	"github.com/vmunix/exvid/internal/httpx"
	"github.com/vmunix/exvid/internal/ledger"
	"github.com/vmunix/exvid/internal/page"
	"github.com/vmunix/exvid/internal/pipeline"
	"github.com/vmunix/exvid/internal/probe"
	"github.com/vmunix/exvid/internal/store"
	"github.com/vmunix/exvid/internal/ytdlp"
	"github.com/vmunix/exvid/pkg/candidate"
)

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// loadConfig resolves the config file and applies command-line overrides.
// A missing config file is not an error; defaults are used instead.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path := configPath
	if path == "" {
		p, err := config.Discover()
		switch {
		case err == nil:
			path = p
		case errors.Is(err, config.ErrNotFound):
		default:
			return nil, err
		}
	}

	cfg := config.Default()
	if path != "" {
		loaded, err := config.LoadWithoutValidation(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	applyFlags(cmd, cfg)
	if verbose {
		cfg.Log.Level = "debug"
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, &config.ConfigError{Path: path, Errors: errs}
	}
	return cfg, nil
}

// applyFlags copies explicitly set flags over config values. Commands only
// define the flags they use.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	str := func(name string, dst *string) {
		if f.Changed(name) {
			*dst, _ = f.GetString(name)
		}
	}
	list := func(name string, dst *[]string) {
		if f.Changed(name) {
			*dst, _ = f.GetStringSlice(name)
		}
	}
	boolean := func(name string, dst *bool) {
		if f.Changed(name) {
			*dst, _ = f.GetBool(name)
		}
	}

	str("log-dir", &cfg.State.LogDir)
	if f.Changed("log-dir") && !f.Changed("database") {
		cfg.State.Database = filepath.Join(cfg.State.LogDir, "exvid.db")
	}
	str("database", &cfg.State.Database)
	str("output-dir", &cfg.Download.OutputDir)
	str("gender", &cfg.Catalog.Gender)
	str("method", &cfg.Resolve.Method)
	str("retry-method", &cfg.Resolve.RetryMethod)
	str("origin", &cfg.Media.Origin)
	str("user-agent", &cfg.Media.UserAgent)
	list("angles", &cfg.Media.Angles)
	list("middle-tokens", &cfg.Media.Middles)
	list("templates", &cfg.Media.Templates)
	boolean("skip-existing", &cfg.Download.SkipExisting)
	boolean("progress", &cfg.Download.Progress)
	boolean("allow-angleless-fallback", &cfg.Resolve.AllowAnglelessFallback)
	if f.Changed("max-workers") {
		cfg.Resolve.Workers, _ = f.GetInt("max-workers")
	}
	if f.Changed("rate-limit") {
		secs, _ := f.GetFloat64("rate-limit")
		cfg.Resolve.RateLimit = time.Duration(secs * float64(time.Second))
	}
	str("cookies", &cfg.YTDLP.Cookies)
	str("cookies-from-browser", &cfg.YTDLP.CookiesFromBrowser)
}

func newLogger(cfg *config.Config) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))
}

// app holds the long-lived state shared by the pipeline commands.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	db     *sql.DB
	events *events.EventLog
	bus    *events.Bus
	ledger *ledger.Ledger
	pages  *page.Client
}

// openApp opens the state database, the event bus and the run ledger.
func openApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	db, err := store.Open(ctx, cfg.State.Database)
	if err != nil {
		return nil, err
	}
	cache := store.NewPageCache(db)
	if n, err := cache.Prune(ctx); err == nil && n > 0 {
		logger.Debug("pruned page cache", "entries", n)
	}

	eventLog := events.NewEventLog(db)
	if cfg.State.EventRetention > 0 {
		if n, err := eventLog.Prune(ctx, cfg.State.EventRetention); err == nil && n > 0 {
			logger.Debug("pruned events", "events", n)
		}
	}

	l, err := ledger.Open(cfg.State.LogDir, logger.With("component", "ledger"))
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &app{
		cfg:    cfg,
		logger: logger,
		db:     db,
		events: eventLog,
		bus:    events.NewBus(eventLog, logger),
		ledger: l,
		pages: page.NewClient(logger,
			page.WithTimeout(cfg.Resolve.PageTimeout),
			page.WithUserAgent(cfg.Media.UserAgent),
			page.WithMediaOrigin(cfg.Media.Origin),
			page.WithCache(cache, cfg.Resolve.PageCacheTTL),
		),
	}, nil
}

func (a *app) Close() error {
	return errors.Join(a.bus.Close(), a.ledger.Close(), a.db.Close())
}

// pipeline wires a Pipeline from the app's config. Output goes to out.
func (a *app) pipeline(strategy pipeline.Strategy, dryRun bool, out io.Writer) (*pipeline.Pipeline, error) {
	cfg := a.cfg

	templates, err := parseTemplates(cfg.Media.Templates)
	if err != nil {
		return nil, err
	}
	retryStrategy, err := pipeline.ParseStrategy(cfg.Resolve.RetryMethod)
	if err != nil {
		return nil, err
	}

	deps := pipeline.Deps{
		Resolver: probe.NewResolver(
			probe.NewHTTPProber(
				probe.WithTimeout(cfg.Resolve.ProbeTimeout),
				probe.WithUserAgent(cfg.Media.UserAgent),
			),
			cfg.Resolve.Workers,
			a.logger.With("component", "probe"),
		),
		Pages:      a.pages,
		Downloader: a.downloader(),
		Done:       a.ledger,
	}
	if dryRun {
		deps.Reporter = pipeline.NewDryRunReporter(out)
	} else {
		deps.Reporter = pipeline.NewLedgerReporter(a.ledger, a.bus, out)
		deps.Bus = a.bus
	}

	if strategy == pipeline.StrategyYTDLP {
		client := ytdlp.New(ytdlp.Options{
			Binary:             cfg.YTDLP.Binary,
			Format:             cfg.YTDLP.Format,
			RateLimit:          cfg.YTDLP.RateLimit,
			CookiesPath:        cfg.YTDLP.Cookies,
			CookiesFromBrowser: cfg.YTDLP.CookiesFromBrowser,
			Retries:            cfg.YTDLP.Retries,
			FragmentRetries:    cfg.YTDLP.FragmentRetries,
			Fragments:          cfg.YTDLP.Fragments,
		}, a.logger)
		if !dryRun {
			if err := client.CheckInstalled(); err != nil {
				return nil, err
			}
		}
		deps.VideoTool = client
	}

	return pipeline.New(pipeline.Config{
		Strategy:               strategy,
		MediaOrigin:            cfg.Media.Origin,
		Angles:                 cfg.Media.Angles,
		Middles:                cfg.Media.Middles,
		Templates:              templates,
		RetryStrategy:          retryStrategy,
		OutputDir:              cfg.Download.OutputDir,
		SkipExisting:           cfg.Download.SkipExisting,
		AllowAnglelessFallback: cfg.Resolve.AllowAnglelessFallback,
		DryRun:                 dryRun,
		RateLimit:              cfg.Resolve.RateLimit,
	}, deps, a.logger), nil
}

func (a *app) downloader() *download.Downloader {
	opts := []download.Option{
		download.WithTimeout(a.cfg.Download.Timeout),
		download.WithUserAgent(a.cfg.Media.UserAgent),
		download.WithRetry(httpx.RetryConfig{MaxRetries: a.cfg.Download.Retries}),
	}
	if a.cfg.Download.Progress {
		opts = append(opts, download.WithProgress(os.Stderr))
	}
	return download.New(a.logger, opts...)
}

func parseTemplates(names []string) ([]candidate.Template, error) {
	out := make([]candidate.Template, 0, len(names))
	for _, n := range names {
		t, err := candidate.ParseTemplate(n)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// run executes one pipeline pass with the stats handler on the bus and
// prints the download tally. The bus is closed when run returns.
func (a *app) run(ctx context.Context, out io.Writer, pass func(context.Context) (pipeline.Summary, error)) (pipeline.Summary, error) {
	stats := handlers.NewStatsHandler(a.bus, a.logger)

	var sum pipeline.Summary
	err := handlers.NewRunner(a.bus, a.logger, stats).Run(ctx, func(ctx context.Context) error {
		var err error
		sum, err = pass(ctx)
		return err
	})
	if err != nil {
		return sum, err
	}
	if s := stats.Stats(); s.Files > 0 || s.Existing > 0 {
		fmt.Fprintf(out, "Downloaded: %d files (%s), %d already present\n", s.Files, humanize.Bytes(uint64(s.Bytes)), s.Existing)
	}
	return sum, nil
}

// finish turns a run summary into the command result.
func finish(out io.Writer, sum pipeline.Summary) error {
	fmt.Fprintln(out, sum.String())
	if code := sum.ExitCode(); code != 0 {
		return &exitError{code: code}
	}
	return nil
}
