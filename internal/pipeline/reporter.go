package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/vmunix/exvid/internal/events"
	"github.com/vmunix/exvid/internal/ledger"
)

// Skip reasons.
const (
	SkipLedger     = "ledger"
	SkipFileExists = "file_exists"
)

// Reporter receives the outcome of every target.
type Reporter interface {
	Resolved(ctx context.Context, t Target, r ledger.Record) error
	Failed(ctx context.Context, t Target, r ledger.Record) error
	Skipped(ctx context.Context, t Target, why string) error
}

// LedgerReporter appends outcomes to the run ledger, publishes target
// events and prints one progress line per target.
type LedgerReporter struct {
	ledger *ledger.Ledger
	bus    *events.Bus // may be nil
	mu     sync.Mutex
	out    io.Writer
}

// NewLedgerReporter creates a LedgerReporter. bus may be nil.
func NewLedgerReporter(l *ledger.Ledger, bus *events.Bus, out io.Writer) *LedgerReporter {
	if out == nil {
		out = io.Discard
	}
	return &LedgerReporter{ledger: l, bus: bus, out: out}
}

func (r *LedgerReporter) Resolved(ctx context.Context, t Target, rec ledger.Record) error {
	if err := r.ledger.RecordSuccess(rec); err != nil && !errors.Is(err, ledger.ErrAlreadyRecorded) {
		return err
	}
	r.printf("✓ %s\n", t.Label())
	r.publish(ctx, &events.TargetResolved{
		BaseEvent: events.NewBaseEvent(events.EventTargetResolved, events.EntityTarget, events.TargetKey(rec.PageURL, rec.Angle)),
		Title:     rec.Title,
		Method:    rec.Method,
		FinalURL:  rec.FinalURL,
		Matched:   rec.Angle == t.Angle,
	})
	return nil
}

func (r *LedgerReporter) Failed(ctx context.Context, t Target, rec ledger.Record) error {
	if err := r.ledger.RecordFailure(rec); err != nil {
		return err
	}
	r.printf("✗ %s - %s\n", t.Label(), rec.Reason)
	r.publish(ctx, &events.TargetFailed{
		BaseEvent: events.NewBaseEvent(events.EventTargetFailed, events.EntityTarget, events.TargetKey(rec.PageURL, rec.Angle)),
		Title:     rec.Title,
		Method:    rec.Method,
		Reason:    string(rec.Reason),
	})
	return nil
}

func (r *LedgerReporter) Skipped(ctx context.Context, t Target, why string) error {
	r.printf("- %s (skipped: %s)\n", t.Label(), why)
	r.publish(ctx, &events.TargetSkipped{
		BaseEvent: events.NewBaseEvent(events.EventTargetSkipped, events.EntityTarget, events.TargetKey(t.URL, t.Angle)),
		Title:     t.DisplayTitle(),
		Reason:    why,
	})
	return nil
}

func (r *LedgerReporter) printf(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, _ = fmt.Fprintf(r.out, format, args...)
}

func (r *LedgerReporter) publish(ctx context.Context, e events.Event) {
	if r.bus != nil {
		_ = r.bus.Publish(ctx, e)
	}
}

// DryRunReporter prints what a real run would do and writes nothing.
type DryRunReporter struct {
	mu  sync.Mutex
	out io.Writer
}

// NewDryRunReporter creates a DryRunReporter writing to out.
func NewDryRunReporter(out io.Writer) *DryRunReporter {
	return &DryRunReporter{out: out}
}

func (r *DryRunReporter) Resolved(_ context.Context, t Target, rec ledger.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := fmt.Fprintf(r.out, "✓ Would download: %s\n  page: %s\n  %s: %s\n  dest: %s\n",
		t.Label(), rec.PageURL, rec.Method, rec.FinalURL, rec.Filename)
	return err
}

func (r *DryRunReporter) Failed(_ context.Context, t Target, rec ledger.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := fmt.Fprintf(r.out, "✗ %s\n  page: %s\n  %s: <no mp4 found> (%s)\n",
		t.Label(), rec.PageURL, rec.Method, rec.Reason)
	return err
}

func (r *DryRunReporter) Skipped(_ context.Context, t Target, why string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := fmt.Fprintf(r.out, "- %s (skipped: %s)\n", t.Label(), why)
	return err
}
