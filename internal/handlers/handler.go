// Package handlers consumes run events from the bus while a pipeline pass
// is in progress.
package handlers

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/vmunix/exvid/internal/events"
)

// Handler processes events of specific types.
type Handler interface {
	// Start blocks, handling events until the bus closes (nil) or ctx
	// ends (ctx.Err()).
	Start(ctx context.Context) error

	// Name returns handler name for logging.
	Name() string
}

// BaseHandler carries the bus and a logger tagged with the handler name.
type BaseHandler struct {
	bus    *events.Bus
	logger *slog.Logger
}

// NewBaseHandler creates a base handler for the handler called name.
func NewBaseHandler(name string, bus *events.Bus, logger *slog.Logger) *BaseHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &BaseHandler{bus: bus, logger: logger.With("handler", name)}
}

// Bus returns the event bus.
func (h *BaseHandler) Bus() *events.Bus { return h.bus }

// Logger returns the handler's logger.
func (h *BaseHandler) Logger() *slog.Logger { return h.logger }

// Runner runs handlers alongside one unit of work that publishes to the
// same bus.
type Runner struct {
	bus      *events.Bus
	handlers []Handler
	logger   *slog.Logger
}

// NewRunner creates a new runner.
func NewRunner(bus *events.Bus, logger *slog.Logger, hs ...Handler) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{bus: bus, handlers: hs, logger: logger}
}

// Run starts every handler, runs work, then closes the bus so the handlers
// drain their subscriptions and return. The bus cannot be reused afterwards.
func (r *Runner) Run(ctx context.Context, work func(context.Context) error) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, h := range r.handlers {
		g.Go(func() error {
			r.logger.Debug("handler started", "handler", h.Name())
			err := h.Start(gctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				r.logger.Error("handler stopped", "handler", h.Name(), "error", err)
				return err
			}
			return nil
		})
	}

	err := work(ctx)
	_ = r.bus.Close()
	return errors.Join(err, g.Wait())
}
