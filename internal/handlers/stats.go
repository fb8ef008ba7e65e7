package handlers

import (
	"context"
	"log/slog"
	"sync"

	"github.com/vmunix/exvid/internal/events"
)

// Stats tallies what a pass put on disk.
type Stats struct {
	Files    int
	Bytes    int64
	Existing int
	Failures map[string]int // reason -> count
}

// StatsHandler counts downloads and failures as they are published.
type StatsHandler struct {
	*BaseHandler

	sub <-chan events.Event

	mu    sync.Mutex
	stats Stats
}

// NewStatsHandler creates a stats handler. It subscribes immediately so
// events published before Start are still counted.
func NewStatsHandler(bus *events.Bus, logger *slog.Logger) *StatsHandler {
	sub := bus.Subscribe(512, events.Types(
		events.EventDownloadCompleted,
		events.EventTargetFailed,
		events.EventRunFinished,
	))
	return &StatsHandler{
		BaseHandler: NewBaseHandler("stats", bus, logger),
		sub:         sub,
		stats:       Stats{Failures: make(map[string]int)},
	}
}

// Name returns the handler name.
func (h *StatsHandler) Name() string {
	return "stats"
}

// Start begins processing events.
func (h *StatsHandler) Start(ctx context.Context) error {
	for {
		select {
		case e := <-h.sub:
			if e == nil {
				return nil // Channel closed
			}
			switch e := e.(type) {
			case *events.DownloadCompleted:
				h.handleCompleted(e)
			case *events.TargetFailed:
				h.handleFailed(e)
			case *events.RunFinished:
				h.handleFinished(e)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (h *StatsHandler) handleCompleted(e *events.DownloadCompleted) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if e.Skipped {
		h.stats.Existing++
		return
	}
	h.stats.Files++
	h.stats.Bytes += e.Bytes
}

func (h *StatsHandler) handleFailed(e *events.TargetFailed) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stats.Failures[e.Reason]++
}

func (h *StatsHandler) handleFinished(e *events.RunFinished) {
	s := h.Stats()
	h.Logger().Info("run finished",
		"run", e.EntityKey(),
		"resolved", e.Resolved,
		"failed", e.Failed,
		"skipped", e.Skipped,
		"files", s.Files,
		"bytes", s.Bytes,
		"existing", s.Existing)
}

// Stats returns a snapshot of the tally.
func (h *StatsHandler) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	s := h.stats
	s.Failures = make(map[string]int, len(h.stats.Failures))
	for k, v := range h.stats.Failures {
		s.Failures[k] = v
	}
	return s
}
