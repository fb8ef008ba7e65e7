package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/vmunix/exvid/internal/httpx"
	"github.com/vmunix/exvid/internal/ledger"
	"github.com/vmunix/exvid/pkg/catalog"
)

// retryTargets rebuilds targets from failure ledger rows. Rows whose page
// path cannot be decoded are dropped, rows without an angle expand to every
// configured angle, and duplicate keys collapse to the first row.
func (p *Pipeline) retryTargets(records []ledger.Record) []Target {
	seen := make(map[ledger.Key]bool)
	var out []Target
	for _, rec := range records {
		pp, ok := catalog.ParsePagePath(rec.PageURL)
		if !ok {
			p.logger.Warn("skipping ledger row with unrecognized page URL", "title", rec.Title, "url", rec.PageURL)
			continue
		}
		ref := catalog.ExerciseRef{
			Title:     exerciseName(rec.Title, pp.Muscle),
			Equipment: rec.Equipment,
			Muscle:    pp.Muscle,
			Slug:      rec.Slug,
		}
		entry := catalog.Entry{ExerciseRef: ref, Gender: pp.Gender, URL: rec.PageURL, Section: pp.Muscle}

		angles := []string{rec.Angle}
		if rec.Angle == "" {
			angles = p.cfg.Angles
		}
		for _, a := range angles {
			t := Target{Entry: entry, Angle: a}
			if seen[t.Key()] {
				continue
			}
			seen[t.Key()] = true
			out = append(out, t)
		}
	}
	return out
}

// Retry reprocesses failure ledger rows with the expanded variant rules and
// the retry strategy. Successes and new failures are appended through the
// Reporter; existing rows are never rewritten.
func (p *Pipeline) Retry(ctx context.Context, records []ledger.Record) (Summary, error) {
	s := p.cfg.RetryStrategy
	switch s {
	case StrategyParse, StrategyGuess, StrategyBoth:
	default:
		return Summary{}, fmt.Errorf("%w: %q is not a retry strategy", ErrUnknownStrategy, s)
	}
	if len(p.cfg.Angles) == 0 {
		return Summary{}, ErrNoAngles
	}

	targets := p.retryTargets(records)
	runID := p.start(ctx, "retry", string(s), len(targets))
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

		res, ok, err := p.retryResolve(ctx, s, t)
		if err != nil {
			return sum, err
		}
		if !ok {
			if err := p.fail(ctx, t, failure{MethodRetry, retryReason(s)}, &sum); err != nil {
				return sum, err
			}
			continue
		}
		if err := p.deliver(ctx, t, res, &sum); err != nil {
			return sum, err
		}
	}

	p.finish(ctx, runID, sum, started)
	return sum, nil
}

// retryResolve tries parse, then guess, as s allows. Only videos of the
// target's own angle are accepted.
func (p *Pipeline) retryResolve(ctx context.Context, s Strategy, t Target) (resolution, bool, error) {
	if s == StrategyParse || s == StrategyBoth {
		res, ok, err := p.parse(ctx, t, false)
		if err != nil {
			return resolution{}, false, err
		}
		if ok {
			res.Method = MethodRetryParse
			return res, true, nil
		}
	}
	if (s == StrategyGuess || s == StrategyBoth) && t.Equipment != "" && t.Slug != "" {
		u, ok, err := p.guess(ctx, t, p.cfg.RetryRules, p.cfg.RetryTemplates)
		if err != nil {
			return resolution{}, false, err
		}
		if ok {
			return resolution{URL: u, Method: MethodRetryGuess, Angle: t.Angle}, true, nil
		}
	}
	return resolution{}, false, nil
}

func retryReason(s Strategy) ledger.Reason {
	switch s {
	case StrategyParse:
		return ledger.ReasonNoMP4InPage
	case StrategyGuess:
		return ledger.ReasonNoGuess
	}
	return ledger.ReasonNoGuessOrParse
}
