package errors

import (
	"context"
	"errors"
	"log/slog"
)

// ErrNoModels indicates a Fallback without any model.
var ErrNoModels = errors.New("fallback has no models")

// Fallback retries a call per model and moves down an ordered model list when
// a model keeps failing with invalid output or exhausts its transient retries.
type Fallback struct {
	models     []string
	retry      RetryConfig
	logger     *slog.Logger
	onFallback func(from, to string, err error)
}

// FallbackOption configures a Fallback.
type FallbackOption func(*Fallback)

// NewFallback creates a Fallback over models, tried in order.
func NewFallback(models []string, opts ...FallbackOption) *Fallback {
	f := &Fallback{
		models: append([]string(nil), models...),
		retry:  DefaultRetry,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// WithRetryConfig sets the per-model retry configuration.
func WithRetryConfig(cfg RetryConfig) FallbackOption {
	return func(f *Fallback) {
		f.retry = cfg
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) FallbackOption {
	return func(f *Fallback) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithOnFallback sets a callback for model switches.
func WithOnFallback(fn func(from, to string, err error)) FallbackOption {
	return func(f *Fallback) {
		f.onFallback = fn
	}
}

// Models returns the model list.
func (f *Fallback) Models() []string {
	return append([]string(nil), f.models...)
}

// FallbackResult contains the result of a call run through a Fallback.
type FallbackResult[T any] struct {
	// Value is the result if successful.
	Value T

	// Err is the error of the last attempt if all models failed.
	Err error

	// Model is the model of the last attempt.
	Model string

	// Attempts is the total number of attempts over all models.
	Attempts int

	// Fallbacks is the number of model switches.
	Fallbacks int
}

// Execute runs fn with retries, switching models on invalid output or
// exhausted transient retries. Permanent and human-required errors stop
// immediately.
func Execute[T any](ctx context.Context, f *Fallback, fn func(ctx context.Context, model string) (T, error)) FallbackResult[T] {
	if len(f.models) == 0 {
		return FallbackResult[T]{Err: ErrNoModels}
	}

	var res FallbackResult[T]
	for i, model := range f.models {
		res.Model = model
		result := WithRetryContext(ctx, f.retry, func(ctx context.Context) (T, error) {
			return fn(ctx, model)
		})
		res.Attempts += result.Attempts

		if result.Err == nil {
			res.Value = result.Value
			res.Err = nil
			return res
		}
		res.Err = result.Err

		if ctx.Err() != nil {
			return res
		}
		switch Categorize(result.Err) {
		case CategoryInvalidOutput, CategoryTransient:
		default:
			return res
		}

		if i+1 < len(f.models) {
			next := f.models[i+1]
			res.Fallbacks++
			f.logger.Info("falling back to next model",
				"from", model,
				"to", next,
				"error", result.Err,
			)
			if f.onFallback != nil {
				f.onFallback(model, next, result.Err)
			}
		}
	}
	return res
}
