package probe

import (
	"context"
	"log/slog"

	"github.com/vmunix/exvid/pkg/candidate"
	"golang.org/x/sync/errgroup"
)

// DefaultWorkers is the default probe concurrency per target.
const DefaultWorkers = 10

// Resolver probes candidates concurrently and returns the lowest-rank hit.
type Resolver struct {
	prober  Prober
	workers int
	logger  *slog.Logger
}

// NewResolver creates a resolver with a bounded probe pool.
func NewResolver(p Prober, workers int, logger *slog.Logger) *Resolver {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		prober:  p,
		workers: workers,
		logger:  logger,
	}
}

type outcome struct {
	index int
	found bool
}

// Resolve returns the lowest-rank candidate confirmed to exist.
//
// Workers only report (index, found); this goroutine reduces the results.
// A hit at index i is returned only once every index below i has reported a
// miss, so completion order never changes the answer. Outstanding probes are
// canceled once the answer is known. Probe errors count as misses.
func (r *Resolver) Resolve(ctx context.Context, cands []candidate.Candidate) (candidate.Candidate, bool, error) {
	if len(cands) == 0 {
		return candidate.Candidate{}, false, nil
	}

	parent := ctx
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	n := len(cands)
	results := make(chan outcome, n)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	go func() {
		for i, c := range cands {
			g.Go(func() error {
				if gctx.Err() != nil {
					results <- outcome{index: i}
					return nil
				}
				found, err := r.prober.Exists(gctx, c.URL)
				if err != nil && gctx.Err() == nil {
					r.logger.Debug("probe failed", "url", c.URL, "error", err)
				}
				results <- outcome{index: i, found: found && err == nil}
				return nil
			})
		}
		_ = g.Wait()
		close(results)
	}()

	done := make([]bool, n)
	found := make([]bool, n)
	next := 0
	for res := range results {
		done[res.index] = true
		found[res.index] = res.found
		for next < n && done[next] {
			if found[next] {
				r.logger.Debug("candidate resolved", "url", cands[next].URL, "rank", cands[next].Rank, "candidates", n)
				return cands[next], true, nil
			}
			next++
		}
	}

	if err := parent.Err(); err != nil {
		return candidate.Candidate{}, false, err
	}
	r.logger.Debug("no candidate exists", "candidates", n)
	return candidate.Candidate{}, false, nil
}
