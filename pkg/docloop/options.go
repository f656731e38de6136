package docloop

import (
	"log/slog"

	"github.com/randalmurphal/docloop/pkg/docloop/checkpoint"
	"github.com/randalmurphal/docloop/pkg/docloop/observability"
)

// Option configures a Driver.
type Option func(*Driver)

// WithRouter replaces the default rule table.
func WithRouter(r *Router) Option {
	return func(d *Driver) {
		if r != nil {
			d.router = r
		}
	}
}

// WithOverseer installs an oversight hook consulted after every step.
// Default: AutoContinue.
func WithOverseer(o Overseer) Option {
	return func(d *Driver) {
		if o != nil {
			d.overseer = o
		}
	}
}

// runConfig holds configuration for one run.
type runConfig struct {
	maxRounds     int
	maxIterations int
	runID         string

	checkpointStore        checkpoint.Store
	checkpointFailureFatal bool

	logger         *slog.Logger
	metrics        observability.MetricsRecorder
	spans          observability.SpanManager
	tracingEnabled bool
}

func defaultRunConfig() runConfig {
	return runConfig{
		maxRounds:     DefaultMaxRounds,
		maxIterations: DefaultMaxIterations,
		metrics:       observability.NoopMetrics{},
		spans:         observability.NoopSpanManager{},
	}
}

// RunOption configures execution behavior.
type RunOption func(*runConfig)

// WithMaxRounds sets the ceiling on handler invocations.
// Default: 50
//
// A run that reaches the ceiling before the document is finalized ends with
// OutcomeIncomplete.
func WithMaxRounds(n int) RunOption {
	return func(c *runConfig) {
		if n > 0 {
			c.maxRounds = n
		}
	}
}

// WithMaxIterations sets the review/revision pass limit of a new run.
// Default: 3
func WithMaxIterations(n int) RunOption {
	return func(c *runConfig) {
		if n > 0 {
			c.maxIterations = n
		}
	}
}

// WithRunID sets the run identifier used for checkpoints, logs and spans.
// Required when checkpointing is enabled.
func WithRunID(id string) RunOption {
	return func(c *runConfig) {
		c.runID = id
	}
}

// WithCheckpointing saves the state to store after every accepted step.
func WithCheckpointing(store checkpoint.Store) RunOption {
	return func(c *runConfig) {
		c.checkpointStore = store
	}
}

// WithCheckpointFailureFatal makes checkpoint failures end the run.
// By default they are logged and the run continues.
func WithCheckpointFailureFatal(fatal bool) RunOption {
	return func(c *runConfig) {
		c.checkpointFailureFatal = fatal
	}
}

// WithObservabilityLogger sets the logger for run and step events.
// The Context logger is used when not set.
func WithObservabilityLogger(logger *slog.Logger) RunOption {
	return func(c *runConfig) {
		c.logger = logger
	}
}

// WithMetrics enables OpenTelemetry metrics through the global meter provider.
func WithMetrics(enabled bool) RunOption {
	return func(c *runConfig) {
		if enabled {
			c.metrics = observability.NewMetricsRecorder()
		} else {
			c.metrics = observability.NoopMetrics{}
		}
	}
}

// WithTracing enables OpenTelemetry spans through the global tracer provider.
func WithTracing(enabled bool) RunOption {
	return func(c *runConfig) {
		c.tracingEnabled = enabled
		if enabled {
			c.spans = observability.NewSpanManager()
		} else {
			c.spans = observability.NoopSpanManager{}
		}
	}
}
