package docloop

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Context provides execution context to providers and overseers.
// It extends context.Context with the run's logger and step metadata.
//
// Context is immutable after creation. The driver derives a context for each
// step with the step fields set and the logger enriched.
type Context interface {
	context.Context

	// Logger returns the configured logger, enriched with run and step context.
	// Never returns nil - defaults to slog.Default() if not configured.
	Logger() *slog.Logger

	// RunID returns the unique identifier for this run.
	// Auto-generated if not configured.
	RunID() string

	// Round returns the current loop round (1-based, 0 before the first step).
	Round() int

	// Stage returns the stage of the current step.
	Stage() Stage

	// Handler returns the handler of the current step.
	Handler() HandlerID

	// Iteration returns the workflow iteration of the current step.
	Iteration() int
}

// executionContext is the internal implementation of Context.
type executionContext struct {
	context.Context

	logger    *slog.Logger
	runID     string
	round     int
	stage     Stage
	handler   HandlerID
	iteration int
}

// Logger returns the configured logger.
func (c *executionContext) Logger() *slog.Logger {
	return c.logger
}

// RunID returns the run identifier.
func (c *executionContext) RunID() string {
	return c.runID
}

// Round returns the loop round.
func (c *executionContext) Round() int {
	return c.round
}

// Stage returns the current stage.
func (c *executionContext) Stage() Stage {
	return c.stage
}

// Handler returns the current handler.
func (c *executionContext) Handler() HandlerID {
	return c.handler
}

// Iteration returns the workflow iteration.
func (c *executionContext) Iteration() int {
	return c.iteration
}

// ContextOption configures a Context.
type ContextOption func(*executionContext)

// WithLogger sets the logger for the context.
// The driver enriches it with run_id, round, stage, handler and iteration.
func WithLogger(logger *slog.Logger) ContextOption {
	return func(c *executionContext) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithContextRunID sets the run identifier for the context.
// If not set, a UUID is generated. For checkpointing, use WithRunID()
// as a RunOption.
func WithContextRunID(id string) ContextOption {
	return func(c *executionContext) {
		c.runID = id
	}
}

// NewContext creates an execution context from a standard context.
//
// Example:
//
//	ctx := docloop.NewContext(context.Background(),
//	    docloop.WithLogger(logger),
//	    docloop.WithContextRunID("memo-42"))
func NewContext(ctx context.Context, opts ...ContextOption) Context {
	ec := &executionContext{
		Context: ctx,
		logger:  slog.Default(),
		runID:   uuid.New().String(),
	}
	for _, opt := range opts {
		opt(ec)
	}
	return ec
}

// forRun returns a context bound to the run ID used by the driver.
func forRun(ctx Context, logger *slog.Logger, runID string) *executionContext {
	return &executionContext{
		Context: ctx,
		logger:  logger.With("run_id", runID),
		runID:   runID,
	}
}

// withStep returns a derived context for one step.
// parent carries the step span when tracing is enabled.
func (c *executionContext) withStep(parent context.Context, round int, h HandlerID, s *WorkflowState) *executionContext {
	return &executionContext{
		Context: parent,
		logger: c.logger.With(
			"round", round,
			"stage", s.Stage.String(),
			"handler", h.String(),
			"iteration", s.Iteration,
		),
		runID:     c.runID,
		round:     round,
		stage:     s.Stage,
		handler:   h,
		iteration: s.Iteration,
	}
}
