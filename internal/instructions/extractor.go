package instructions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/vmunix/exvid/internal/httpx"
	"github.com/vmunix/exvid/internal/ledger"
	"github.com/vmunix/exvid/pkg/catalog"
)

// DefaultFile is the default output CSV name.
const DefaultFile = "exercise_instructions.csv"

// Columns of the instructions CSV.
var Columns = []string{"title", "url", "equipment", "muscle", "slug", "instructions", "difficulty", "force", "grips", "mechanic"}

// DefaultRateLimit is the pause between page requests.
const DefaultRateLimit = 500 * time.Millisecond

// Fetcher returns the HTML of a page.
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) (string, error)
}

// Stats summarizes an extraction run.
type Stats struct {
	Total     int // exercises considered
	Processed int // rows written this run
	Skipped   int // already present in the CSV
	Failed    int // pages that could not be fetched
}

// Extractor walks exercise pages and appends one CSV row per exercise.
type Extractor struct {
	pages     Fetcher
	logger    *slog.Logger
	rateLimit time.Duration
	progress  io.Writer
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithRateLimit sets the pause between page requests.
func WithRateLimit(d time.Duration) Option {
	return func(e *Extractor) {
		e.rateLimit = d
	}
}

// WithProgress renders a progress bar to w.
func WithProgress(w io.Writer) Option {
	return func(e *Extractor) {
		e.progress = w
	}
}

// New creates an Extractor.
func New(pages Fetcher, logger *slog.Logger, opts ...Option) *Extractor {
	e := &Extractor{
		pages:     pages,
		logger:    logger.With("component", "instructions"),
		rateLimit: DefaultRateLimit,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run extracts every exercise whose page URL is not yet in the CSV at path.
// Rows are flushed as they are written, so an interrupted run resumes where
// it stopped. limit > 0 caps the number of exercises considered.
func (x *Extractor) Run(ctx context.Context, exercises []catalog.Exercise, path string, limit int) (Stats, error) {
	if limit > 0 && len(exercises) > limit {
		exercises = exercises[:limit]
	}
	stats := Stats{Total: len(exercises)}

	done, err := ledger.ProcessedURLs(path, "url")
	if err != nil {
		return stats, fmt.Errorf("load processed urls: %w", err)
	}
	out, err := ledger.OpenAppender(path, Columns)
	if err != nil {
		return stats, err
	}
	defer func() { _ = out.Close() }()

	var bar *progressbar.ProgressBar
	if x.progress != nil {
		bar = progressbar.NewOptions(len(exercises),
			progressbar.OptionSetWriter(x.progress),
			progressbar.OptionSetDescription("Extracting metadata"),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	first := true
	for _, ex := range exercises {
		if bar != nil {
			_ = bar.Add(1)
		}
		pageURL := primaryURL(ex)
		if pageURL == "" {
			continue
		}
		if done[pageURL] {
			stats.Skipped++
			continue
		}

		if !first {
			if err := httpx.Wait(ctx, x.rateLimit); err != nil {
				return stats, err
			}
		}
		first = false

		html, err := x.pages.Fetch(ctx, pageURL)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return stats, err
			}
			x.logger.Warn("fetch failed", "url", pageURL, "error", err)
			stats.Failed++
			continue
		}

		m := Parse(html)
		m.URL = pageURL
		row, err := toRow(ex, m)
		if err != nil {
			return stats, err
		}
		if err := out.Append(row); err != nil {
			return stats, err
		}
		done[pageURL] = true
		stats.Processed++
		x.logger.Debug("extracted", "title", ex.Title, "steps", len(m.Instructions))
	}

	if bar != nil {
		_ = bar.Finish()
	}
	return stats, nil
}

// primaryURL is the page of the first gender seen for the exercise.
func primaryURL(ex catalog.Exercise) string {
	if len(ex.Genders) == 0 {
		return ""
	}
	return ex.URLs[ex.Genders[0]]
}

func toRow(ex catalog.Exercise, m Metadata) ([]string, error) {
	steps := m.Instructions
	if steps == nil {
		steps = []string{}
	}
	encoded, err := json.Marshal(steps)
	if err != nil {
		return nil, fmt.Errorf("encode instructions: %w", err)
	}
	return []string{
		ex.Title, m.URL, ex.Equipment, ex.Muscle, ex.Slug,
		string(encoded), m.Difficulty, m.Force, m.Grips, m.Mechanic,
	}, nil
}
