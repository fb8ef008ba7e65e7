// Package pipeline drives catalog targets through resolution, download and
// the run ledger.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/vmunix/exvid/internal/download"
	"github.com/vmunix/exvid/internal/events"
	"github.com/vmunix/exvid/internal/httpx"
	"github.com/vmunix/exvid/internal/ledger"
	"github.com/vmunix/exvid/internal/page"
	"github.com/vmunix/exvid/pkg/candidate"
	"github.com/vmunix/exvid/pkg/catalog"
	"github.com/vmunix/exvid/pkg/variant"
)

// Config controls one pipeline.
type Config struct {
	Strategy    Strategy
	MediaOrigin string
	Angles      []string
	Middles     []string
	Templates   []candidate.Template // guess templates for fetch runs
	Rules       variant.Rules

	// Retry settings. RetryStrategy is parse, guess or both.
	RetryStrategy  Strategy
	RetryTemplates []candidate.Template
	RetryRules     variant.Rules

	OutputDir              string
	SkipExisting           bool
	AllowAnglelessFallback bool
	DryRun                 bool
	RateLimit              time.Duration // pause between pages
}

// CandidateResolver picks the best existing candidate.
type CandidateResolver interface {
	Resolve(ctx context.Context, cands []candidate.Candidate) (candidate.Candidate, bool, error)
}

// PageSource lists the video URLs embedded in an exercise page.
type PageSource interface {
	Videos(ctx context.Context, pageURL string) ([]string, error)
}

// Fetcher downloads one URL to a file.
type Fetcher interface {
	Fetch(ctx context.Context, url, dest string, skipExisting bool) (download.Outcome, error)
}

// VideoTool downloads a page through an external tool such as yt-dlp.
type VideoTool interface {
	Download(ctx context.Context, pageURL, outputDir, title string, skipExisting bool) (string, error)
}

// Resumer reports targets that already succeeded in an earlier run.
type Resumer interface {
	Succeeded(k ledger.Key) bool
}

// Deps are the collaborators of a Pipeline. Resolver, Pages, Downloader
// and Reporter are required; the rest may be nil.
type Deps struct {
	Resolver   CandidateResolver
	Pages      PageSource
	Downloader Fetcher
	VideoTool  VideoTool
	Done       Resumer
	Reporter   Reporter
	Bus        *events.Bus
}

// Pipeline resolves and downloads targets.
type Pipeline struct {
	cfg    Config
	deps   Deps
	logger *slog.Logger

	// Targets of one page are consecutive, so the last page's videos are
	// kept for its remaining angles.
	lastPage   string
	lastVideos []string
	lastErr    error
}

// New creates a Pipeline.
func New(cfg Config, deps Deps, logger *slog.Logger) *Pipeline {
	if len(cfg.Templates) == 0 {
		cfg.Templates = []candidate.Template{candidate.Branded}
	}
	if len(cfg.RetryTemplates) == 0 {
		cfg.RetryTemplates = []candidate.Template{candidate.Branded, candidate.Plain}
	}
	if cfg.RetryStrategy == "" {
		cfg.RetryStrategy = StrategyBoth
	}
	if cfg.MediaOrigin == "" {
		cfg.MediaOrigin = page.DefaultMediaOrigin
	}
	if cfg.Rules.VariationToken == "" {
		cfg.Rules = variant.DefaultRules()
	}
	if cfg.RetryRules.VariationToken == "" {
		cfg.RetryRules = variant.ExpandedRules()
	}
	return &Pipeline{
		cfg:    cfg,
		deps:   deps,
		logger: logger.With("component", "pipeline"),
	}
}

// Summary counts target outcomes.
type Summary struct {
	Resolved int
	Failed   int
	Skipped  int
}

// ExitCode is 0 when nothing failed and 2 otherwise.
func (s Summary) ExitCode() int {
	if s.Failed > 0 {
		return 2
	}
	return 0
}

func (s Summary) String() string {
	return fmt.Sprintf("Summary: %d resolved, %d failed, %d skipped", s.Resolved, s.Failed, s.Skipped)
}

// resolution is a found media URL for a target.
type resolution struct {
	URL    string
	Method string
	Angle  string // ledger angle; empty for an angle-less fallback
}

// failure is a target that could not be resolved.
type failure struct {
	Method string
	Reason ledger.Reason
}

// Run drives every entry through the configured strategy. Per-target
// problems are recorded and never abort the run; only cancellation and
// reporter (ledger) errors are returned.
func (p *Pipeline) Run(ctx context.Context, entries []catalog.Entry) (Summary, error) {
	s := p.cfg.Strategy
	if s == "" {
		s = StrategyAuto
	}
	switch {
	case s == StrategyBoth:
		return Summary{}, fmt.Errorf("%w: %q is only valid for retry", ErrUnknownStrategy, s)
	case s == StrategyYTDLP && p.deps.VideoTool == nil:
		return Summary{}, ErrNoYTDLP
	case s.perAngle() && len(p.cfg.Angles) == 0:
		return Summary{}, ErrNoAngles
	}

	targets := expand(entries, s, p.cfg.Angles)
	runID := p.start(ctx, "fetch", string(s), len(targets))
	started := time.Now()

	var sum Summary
	prevPage := ""
	for _, t := range targets {
		if skipped, err := p.skip(ctx, t, &sum); skipped || err != nil {
			if err != nil {
				return sum, err
			}
			continue
		}
		if prevPage != "" && prevPage != t.URL {
			if err := httpx.Wait(ctx, p.cfg.RateLimit); err != nil {
				return sum, err
			}
		}
		prevPage = t.URL

		if err := p.process(ctx, s, t, &sum); err != nil {
			return sum, err
		}
	}

	p.finish(ctx, runID, sum, started)
	return sum, nil
}

// skip reports targets that need no work.
func (p *Pipeline) skip(ctx context.Context, t Target, sum *Summary) (bool, error) {
	why := ""
	switch {
	case p.deps.Done != nil && p.deps.Done.Succeeded(t.Key()):
		why = SkipLedger
	case p.cfg.SkipExisting && fileExists(p.dest(t)):
		why = SkipFileExists
	default:
		return false, nil
	}
	sum.Skipped++
	p.logger.Debug("skipping target", "title", t.DisplayTitle(), "angle", t.Angle, "reason", why)
	return true, p.deps.Reporter.Skipped(ctx, t, why)
}

// process resolves, downloads and reports one target.
func (p *Pipeline) process(ctx context.Context, s Strategy, t Target, sum *Summary) error {
	if s == StrategyYTDLP {
		return p.viaTool(ctx, t, sum)
	}

	res, fail, err := p.resolve(ctx, s, t)
	if err != nil {
		return err
	}
	if fail != nil {
		return p.fail(ctx, t, *fail, sum)
	}
	return p.deliver(ctx, t, res, sum)
}

func (p *Pipeline) resolve(ctx context.Context, s Strategy, t Target) (resolution, *failure, error) {
	switch s {
	case StrategyGuess:
		u, ok, err := p.guess(ctx, t, p.cfg.Rules, p.cfg.Templates)
		if err != nil || !ok {
			return resolution{}, &failure{MethodGuess, ledger.ReasonNoGuess}, err
		}
		return resolution{URL: u, Method: MethodGuess, Angle: t.Angle}, nil, nil

	case StrategyParse:
		res, ok, err := p.parse(ctx, t, p.cfg.AllowAnglelessFallback)
		if err != nil || !ok {
			return resolution{}, &failure{MethodParse, ledger.ReasonNoMP4InPage}, err
		}
		res.Method = MethodParse
		return res, nil, nil

	case StrategyAuto:
		u, ok, err := p.guess(ctx, t, p.cfg.Rules, p.cfg.Templates)
		if err != nil {
			return resolution{}, nil, err
		}
		if ok {
			return resolution{URL: u, Method: MethodAutoGuess, Angle: t.Angle}, nil, nil
		}
		res, ok, err := p.parse(ctx, t, p.cfg.AllowAnglelessFallback)
		if err != nil || !ok {
			return resolution{}, &failure{MethodAuto, ledger.ReasonNoGuessOrParse}, err
		}
		res.Method = MethodAutoParse
		return res, nil, nil

	case StrategyDirect:
		if page.IsMP4(t.URL) {
			return resolution{URL: t.URL, Method: MethodDirect}, nil, nil
		}
		urls, err := p.videos(ctx, t.URL)
		if err != nil || len(urls) == 0 {
			return resolution{}, &failure{MethodDirect, ledger.ReasonNoMP4InPage}, ctxErr(ctx, err)
		}
		return resolution{URL: urls[0], Method: MethodDirect}, nil, nil
	}
	return resolution{}, nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
}

// guess probes the candidate URLs of t. err is only set on cancellation.
func (p *Pipeline) guess(ctx context.Context, t Target, rules variant.Rules, templates []candidate.Template) (string, bool, error) {
	eqs, slugs := variant.Generate(t.Equipment, t.Slug, rules)
	cands := candidate.Build(candidate.Spec{
		Origin:    p.cfg.MediaOrigin,
		Gender:    string(t.Gender),
		Equipment: eqs,
		Slugs:     slugs,
		Middles:   p.cfg.Middles,
		Angles:    []string{t.Angle},
		Templates: templates,
	})
	p.logger.Debug("guessing", "title", t.DisplayTitle(), "angle", t.Angle, "candidates", len(cands))

	c, ok, err := p.deps.Resolver.Resolve(ctx, cands)
	if err != nil {
		return "", false, err
	}
	return c.URL, ok, nil
}

// parse reads t's page for a video of its angle. An angle-less video is
// accepted only when allowAngleless is set. err is only set on cancellation.
func (p *Pipeline) parse(ctx context.Context, t Target, allowAngleless bool) (resolution, bool, error) {
	urls, err := p.videos(ctx, t.URL)
	if err != nil {
		return resolution{}, false, ctxErr(ctx, err)
	}
	u, matched, ok := page.PickForAngle(urls, t.Angle, p.cfg.Angles)
	switch {
	case !ok:
		return resolution{}, false, nil
	case matched:
		return resolution{URL: u, Angle: t.Angle}, true, nil
	case allowAngleless:
		return resolution{URL: u}, true, nil
	}
	p.logger.Debug("ignoring angle-less video", "title", t.DisplayTitle(), "angle", t.Angle, "url", u)
	return resolution{}, false, nil
}

// videos returns the page's video URLs, reusing the previous fetch of the
// same page.
func (p *Pipeline) videos(ctx context.Context, pageURL string) ([]string, error) {
	if pageURL == p.lastPage {
		return p.lastVideos, p.lastErr
	}
	urls, err := p.deps.Pages.Videos(ctx, pageURL)
	if err != nil {
		p.logger.Warn("page fetch failed", "url", pageURL, "error", err)
	}
	if ctx.Err() == nil {
		p.lastPage, p.lastVideos, p.lastErr = pageURL, urls, err
	}
	return urls, err
}

// deliver downloads a resolution and reports the outcome.
func (p *Pipeline) deliver(ctx context.Context, t Target, res resolution, sum *Summary) error {
	// The row stays keyed by the target angle even when the file is the
	// page's angle-less video, so every angle it stands in for resumes.
	rec := t.record(res.Method)
	rec.FinalURL = res.URL

	at := t
	at.Angle = res.Angle
	dest := p.dest(at)
	rec.Filename = dest

	if p.cfg.DryRun {
		sum.Resolved++
		return p.deps.Reporter.Resolved(ctx, t, rec)
	}

	// Angle-less files stand in for every angle of the page and are never
	// overwritten.
	skipExisting := p.cfg.SkipExisting || res.Angle == ""
	out, err := p.deps.Downloader.Fetch(ctx, res.URL, dest, skipExisting)
	if err != nil {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		p.logger.Warn("download failed", "title", t.DisplayTitle(), "angle", t.Angle, "url", res.URL, "error", err)
		return p.fail(ctx, t, failure{res.Method, ledger.ReasonDownloadFailed}, sum)
	}

	p.publish(ctx, &events.DownloadCompleted{
		BaseEvent: events.NewBaseEvent(events.EventDownloadCompleted, events.EntityTarget, events.TargetKey(rec.PageURL, rec.Angle)),
		Path:      out.Path,
		Bytes:     out.Bytes,
		Skipped:   out.Skipped,
	})
	sum.Resolved++
	return p.deps.Reporter.Resolved(ctx, t, rec)
}

// viaTool hands the page to the external video tool.
func (p *Pipeline) viaTool(ctx context.Context, t Target, sum *Summary) error {
	rec := t.record(MethodYTDLP)
	rec.FinalURL = t.URL

	if p.cfg.DryRun {
		rec.Filename = p.cfg.OutputDir
		sum.Resolved++
		return p.deps.Reporter.Resolved(ctx, t, rec)
	}

	path, err := p.deps.VideoTool.Download(ctx, t.URL, p.cfg.OutputDir, t.DisplayTitle(), p.cfg.SkipExisting)
	if err != nil {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		return p.fail(ctx, t, failure{MethodYTDLP, ledger.ErrorReason(err)}, sum)
	}
	rec.Filename = path
	sum.Resolved++
	return p.deps.Reporter.Resolved(ctx, t, rec)
}

func (p *Pipeline) fail(ctx context.Context, t Target, f failure, sum *Summary) error {
	rec := t.record(f.Method)
	rec.Reason = f.Reason
	sum.Failed++
	return p.deps.Reporter.Failed(ctx, t, rec)
}

func (p *Pipeline) start(ctx context.Context, mode, strategy string, targets int) string {
	runID := uuid.NewString()
	p.logger.Info("run started", "run", runID, "mode", mode, "strategy", strategy, "targets", targets, "dry_run", p.cfg.DryRun)
	p.publish(ctx, &events.RunStarted{
		BaseEvent: events.NewBaseEvent(events.EventRunStarted, events.EntityRun, runID),
		Mode:      mode,
		Strategy:  strategy,
		Targets:   targets,
		DryRun:    p.cfg.DryRun,
	})
	return runID
}

func (p *Pipeline) finish(ctx context.Context, runID string, sum Summary, started time.Time) {
	elapsed := time.Since(started)
	p.logger.Info("run finished", "run", runID, "resolved", sum.Resolved, "failed", sum.Failed, "skipped", sum.Skipped, "elapsed", elapsed)
	p.publish(ctx, &events.RunFinished{
		BaseEvent: events.NewBaseEvent(events.EventRunFinished, events.EntityRun, runID),
		Resolved:  sum.Resolved,
		Failed:    sum.Failed,
		Skipped:   sum.Skipped,
		Elapsed:   elapsed.Milliseconds(),
	})
}

func (p *Pipeline) publish(ctx context.Context, e events.Event) {
	if p.deps.Bus != nil && !p.cfg.DryRun {
		_ = p.deps.Bus.Publish(ctx, e)
	}
}

// ctxErr returns the context's error when the failure was a cancellation.
func ctxErr(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	return ctx.Err()
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
