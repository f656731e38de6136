package provider

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/randalmurphal/docloop/pkg/docloop"
	dlerrors "github.com/randalmurphal/docloop/pkg/docloop/errors"
	"github.com/randalmurphal/docloop/pkg/docloop/llm"
)

// LLM implements docloop.Provider with an llm.Client.
//
// Each call is retried on transient failures. When a model returns output
// that does not decode or validate, the next model in the list is tried.
// If every model returns an invalid record, the last one is passed on so
// the stage handler records the validation failure.
type LLM struct {
	client      llm.Client
	models      []string
	temperature *float64
	maxTokens   int
	retry       dlerrors.RetryConfig

	mu    sync.Mutex
	usage llm.TokenUsage
}

var _ docloop.Provider = (*LLM)(nil)

// LLMOption configures LLM.
type LLMOption func(*LLM)

// WithModels sets the ordered model list. Empty entries are ignored.
// Without models the client's default model is used.
func WithModels(models ...string) LLMOption {
	return func(p *LLM) {
		p.models = p.models[:0]
		for _, m := range models {
			if m != "" {
				p.models = append(p.models, m)
			}
		}
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) LLMOption {
	return func(p *LLM) { p.temperature = llm.Temperature(t) }
}

// WithMaxTokens caps the response length.
func WithMaxTokens(n int) LLMOption {
	return func(p *LLM) { p.maxTokens = n }
}

// WithRetry sets the per-model retry configuration.
func WithRetry(cfg dlerrors.RetryConfig) LLMOption {
	return func(p *LLM) { p.retry = cfg }
}

// NewLLM creates an LLM provider.
func NewLLM(client llm.Client, opts ...LLMOption) *LLM {
	p := &LLM{
		client: client,
		retry:  dlerrors.DefaultRetry,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Usage returns the tokens consumed so far.
func (p *LLM) Usage() llm.TokenUsage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.usage
}

// Plan implements docloop.Provider.
func (p *LLM) Plan(ctx docloop.Context, s docloop.WorkflowState) (docloop.DocumentPlan, error) {
	return complete[docloop.DocumentPlan](ctx, p, docloop.StagePlanning, s)
}

// Draft implements docloop.Provider.
func (p *LLM) Draft(ctx docloop.Context, s docloop.WorkflowState) (docloop.DocumentDraft, error) {
	return complete[docloop.DocumentDraft](ctx, p, docloop.StageDrafting, s)
}

// Review implements docloop.Provider.
func (p *LLM) Review(ctx docloop.Context, s docloop.WorkflowState) (docloop.FeedbackCollection, error) {
	return complete[docloop.FeedbackCollection](ctx, p, docloop.StageReview, s)
}

// Revise implements docloop.Provider.
func (p *LLM) Revise(ctx docloop.Context, s docloop.WorkflowState) (docloop.RevisedDocument, error) {
	return complete[docloop.RevisedDocument](ctx, p, docloop.StageRevision, s)
}

// Finalize implements docloop.Provider.
func (p *LLM) Finalize(ctx docloop.Context, s docloop.WorkflowState) (docloop.FinalDocument, error) {
	return complete[docloop.FinalDocument](ctx, p, docloop.StageFinal, s)
}

type record interface {
	Validate() error
}

func complete[T record](ctx docloop.Context, p *LLM, stage docloop.Stage, s docloop.WorkflowState) (T, error) {
	var zero T
	schema, err := StageSchema(stage)
	if err != nil {
		return zero, err
	}
	prompt, err := userPrompt(stage, s)
	if err != nil {
		return zero, err
	}
	req := llm.CompletionRequest{
		SystemPrompt: systemPrompt(stage),
		Messages:     []llm.Message{llm.UserMessage(prompt)},
		Temperature:  p.temperature,
		MaxTokens:    p.maxTokens,
		Schema:       schema,
	}

	logger := ctx.Logger()
	models := p.models
	if len(models) == 0 {
		models = []string{""}
	}
	fallback := dlerrors.NewFallback(models,
		dlerrors.WithRetryConfig(p.retry),
		dlerrors.WithLogger(logger),
	)

	var (
		invalid    T
		hasInvalid bool
	)
	res := dlerrors.Execute(ctx, fallback, func(ctx context.Context, model string) (T, error) {
		r := req
		r.Model = model
		resp, err := p.client.Complete(ctx, r)
		if err != nil {
			return zero, err
		}
		p.addUsage(resp.Usage)
		logger.Debug("completion received",
			"model", resp.Model,
			"finish_reason", resp.FinishReason,
			"output_tokens", resp.Usage.OutputTokens,
		)

		rec, err := decode[T](resp.Content)
		if err != nil {
			var ve *docloop.ValidationError
			if errors.As(err, &ve) {
				ve.Stage = stage
			}
			return zero, err
		}
		if err := rec.Validate(); err != nil {
			invalid, hasInvalid = rec, true
			return zero, err
		}
		return rec, nil
	})

	if res.Err != nil {
		if hasInvalid && dlerrors.IsInvalidOutput(res.Err) {
			logger.Warn("no model returned a valid record",
				"stage", stage.String(),
				"error", res.Err.Error(),
			)
			return invalid, nil
		}
		return zero, res.Err
	}
	if res.Fallbacks > 0 {
		logger.Info("record produced after fallback",
			"stage", stage.String(),
			"model", res.Model,
			"attempts", res.Attempts,
		)
	}
	return res.Value, nil
}

func (p *LLM) addUsage(u llm.TokenUsage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.usage.Add(u)
}

// decode parses a JSON record from model output, tolerating Markdown fences
// and text around the object. Required properties of the record schema must
// be present; a missing one is reported as a *docloop.ValidationError.
func decode[T any](content string) (T, error) {
	var rec T
	name := reflect.TypeFor[T]().Name()
	raw := []byte(extractJSON(content))

	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return rec, dlerrors.NewJSONParseError(name, content, err)
	}
	schema, err := SchemaFor[T]()
	if err != nil {
		return rec, err
	}
	if err := checkRequired(schema, generic, ""); err != nil {
		return rec, err
	}

	if err := json.Unmarshal(raw, &rec); err != nil {
		return rec, dlerrors.NewJSONParseError(name, content, err)
	}
	return rec, nil
}

func extractJSON(content string) string {
	s := strings.TrimSpace(content)
	if strings.HasPrefix(s, "```") {
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}
	if strings.HasPrefix(s, "{") {
		return s
	}
	start, end := strings.IndexByte(s, '{'), strings.LastIndexByte(s, '}')
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}
