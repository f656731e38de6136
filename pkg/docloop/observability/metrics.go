package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MeterName is the instrumentation scope of docloop metrics and spans.
const MeterName = "docloop"

// MetricsRecorder records docloop metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordStep records one handler invocation with its duration and error status.
	RecordStep(ctx context.Context, handler string, duration time.Duration, err error)

	// RecordRun records a finished run.
	RecordRun(ctx context.Context, outcome string, iterations int, duration time.Duration)

	// RecordDecision records an overseer decision.
	RecordDecision(ctx context.Context, handler, decision string)

	// RecordCheckpoint records a checkpoint save.
	RecordCheckpoint(ctx context.Context, handler string, sizeBytes int64)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	stepExecutions metric.Int64Counter
	stepLatency    metric.Float64Histogram
	stepErrors     metric.Int64Counter
	runs           metric.Int64Counter
	runLatency     metric.Float64Histogram
	runIterations  metric.Int64Histogram
	decisions      metric.Int64Counter
	checkpointSize metric.Int64Histogram
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter(MeterName)
	m := &otelMetrics{}
	var err error

	if m.stepExecutions, err = meter.Int64Counter("docloop.step.executions",
		metric.WithDescription("Number of handler invocations"),
	); err != nil {
		return nil, err
	}
	if m.stepLatency, err = meter.Float64Histogram("docloop.step.latency_ms",
		metric.WithDescription("Handler latency including the provider call"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}
	if m.stepErrors, err = meter.Int64Counter("docloop.step.errors",
		metric.WithDescription("Number of rejected or failed steps"),
	); err != nil {
		return nil, err
	}
	if m.runs, err = meter.Int64Counter("docloop.run.count",
		metric.WithDescription("Number of finished runs by outcome"),
	); err != nil {
		return nil, err
	}
	if m.runLatency, err = meter.Float64Histogram("docloop.run.latency_ms",
		metric.WithDescription("Run latency in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}
	if m.runIterations, err = meter.Int64Histogram("docloop.run.iterations",
		metric.WithDescription("Review iterations reached per run"),
	); err != nil {
		return nil, err
	}
	if m.decisions, err = meter.Int64Counter("docloop.oversight.decisions",
		metric.WithDescription("Overseer decisions by kind"),
	); err != nil {
		return nil, err
	}
	if m.checkpointSize, err = meter.Int64Histogram("docloop.checkpoint.size_bytes",
		metric.WithDescription("Checkpoint size in bytes"),
		metric.WithUnit("By"),
	); err != nil {
		return nil, err
	}
	return m, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider; see InitMetrics.
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordStep records one handler invocation.
func (m *otelMetrics) RecordStep(ctx context.Context, handler string, duration time.Duration, err error) {
	attrs := metric.WithAttributes(attribute.String("handler", handler))
	m.stepExecutions.Add(ctx, 1, attrs)
	m.stepLatency.Record(ctx, float64(duration.Microseconds())/1000, attrs)
	if err != nil {
		m.stepErrors.Add(ctx, 1, attrs)
	}
}

// RecordRun records a finished run.
func (m *otelMetrics) RecordRun(ctx context.Context, outcome string, iterations int, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.runs.Add(ctx, 1, attrs)
	m.runLatency.Record(ctx, float64(duration.Microseconds())/1000, attrs)
	m.runIterations.Record(ctx, int64(iterations), attrs)
}

// RecordDecision records an overseer decision.
func (m *otelMetrics) RecordDecision(ctx context.Context, handler, decision string) {
	m.decisions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("handler", handler),
		attribute.String("decision", decision),
	))
}

// RecordCheckpoint records a checkpoint save.
func (m *otelMetrics) RecordCheckpoint(ctx context.Context, handler string, sizeBytes int64) {
	m.checkpointSize.Record(ctx, sizeBytes, metric.WithAttributes(attribute.String("handler", handler)))
}
