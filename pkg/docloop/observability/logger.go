// Package observability provides structured logging, metrics and tracing
// for docloop runs.
//
// Features:
//   - Structured logging via slog
//   - Metrics via OpenTelemetry, exportable to Prometheus
//   - Tracing via OpenTelemetry, exportable to a writer
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"log/slog"
	"time"
)

// LogRunStart logs the start of a document run.
func LogRunStart(logger *slog.Logger, runID, documentType string) {
	if logger == nil {
		return
	}
	logger.Info("document run starting",
		slog.String("run_id", runID),
		slog.String("document_type", documentType),
	)
}

// LogRunComplete logs the end of a run that did not fail.
func LogRunComplete(logger *slog.Logger, runID, outcome string, durationMs float64, rounds, iterations int) {
	if logger == nil {
		return
	}
	logger.Info("document run finished",
		slog.String("run_id", runID),
		slog.String("outcome", outcome),
		slog.Float64("duration_ms", durationMs),
		slog.Int("rounds", rounds),
		slog.Int("iterations", iterations),
	)
}

// LogRunError logs a failed run.
func LogRunError(logger *slog.Logger, runID string, err error, durationMs float64, lastStage string) {
	if logger == nil {
		return
	}
	logger.Error("document run failed",
		slog.String("run_id", runID),
		slog.String("error", err.Error()),
		slog.Float64("duration_ms", durationMs),
		slog.String("last_stage", lastStage),
	)
}

// LogStepStart logs the dispatch of a handler.
func LogStepStart(logger *slog.Logger, handler string) {
	if logger == nil {
		return
	}
	logger.Debug("step starting",
		slog.String("handler", handler),
	)
}

// LogStepComplete logs an accepted step.
func LogStepComplete(logger *slog.Logger, handler, message string, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Info(message,
		slog.String("handler", handler),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogStepError logs a rejected or failed step.
func LogStepError(logger *slog.Logger, handler string, err error) {
	if logger == nil {
		return
	}
	logger.Error("step failed",
		slog.String("handler", handler),
		slog.String("error", err.Error()),
	)
}

// LogTransition logs a stage change.
func LogTransition(logger *slog.Logger, from, to string, iteration int) {
	if logger == nil || from == to {
		return
	}
	logger.Debug("stage transition",
		slog.String("from", from),
		slog.String("to", to),
		slog.Int("iteration", iteration),
	)
}

// LogDecision logs an overseer decision other than continue.
func LogDecision(logger *slog.Logger, handler, decision string) {
	if logger == nil {
		return
	}
	logger.Info("overseer decision",
		slog.String("handler", handler),
		slog.String("decision", decision),
	)
}

// LogCheckpoint logs checkpoint creation.
func LogCheckpoint(logger *slog.Logger, round int, sizeBytes int) {
	if logger == nil {
		return
	}
	logger.Debug("checkpoint saved",
		slog.Int("round", round),
		slog.Int("size_bytes", sizeBytes),
	)
}

// LogCheckpointError logs checkpoint failure (non-fatal).
func LogCheckpointError(logger *slog.Logger, round int, op string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("checkpoint failed",
		slog.Int("round", round),
		slog.String("operation", op),
		slog.String("error", err.Error()),
	)
}

// TimedOperation measures the duration of an operation.
// The returned function reports the elapsed time in milliseconds.
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Microseconds()) / 1000
	}
}
