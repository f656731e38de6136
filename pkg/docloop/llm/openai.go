package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	dlerrors "github.com/randalmurphal/docloop/pkg/docloop/errors"
)

// OpenAI implements Client using the OpenAI chat completions API.
// Any OpenAI-compatible endpoint can be targeted with WithBaseURL.
type OpenAI struct {
	client  openai.Client
	model   string
	timeout time.Duration
}

// OpenAIOption configures OpenAI.
type OpenAIOption func(*openAIConfig)

type openAIConfig struct {
	apiKey  string
	baseURL string
	model   string
	timeout time.Duration
}

// WithAPIKey sets the API key. Without it the SDK reads OPENAI_API_KEY.
func WithAPIKey(key string) OpenAIOption {
	return func(c *openAIConfig) { c.apiKey = key }
}

// WithBaseURL points the client at another OpenAI-compatible endpoint.
func WithBaseURL(url string) OpenAIOption {
	return func(c *openAIConfig) { c.baseURL = url }
}

// WithDefaultModel sets the model used when a request names none.
func WithDefaultModel(model string) OpenAIOption {
	return func(c *openAIConfig) { c.model = model }
}

// WithRequestTimeout bounds every completion call.
func WithRequestTimeout(d time.Duration) OpenAIOption {
	return func(c *openAIConfig) { c.timeout = d }
}

// NewOpenAI creates an OpenAI client. SDK retries are disabled; retries and
// model fallback are handled by the caller.
func NewOpenAI(opts ...OpenAIOption) *OpenAI {
	cfg := openAIConfig{model: openai.ChatModelGPT4oMini}
	for _, opt := range opts {
		opt(&cfg)
	}

	reqOpts := []option.RequestOption{option.WithMaxRetries(0)}
	if cfg.apiKey != "" {
		reqOpts = append(reqOpts, option.WithAPIKey(cfg.apiKey))
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}

	return &OpenAI{
		client:  openai.NewClient(reqOpts...),
		model:   cfg.model,
		timeout: cfg.timeout,
	}
}

// Complete implements Client.
func (c *OpenAI) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()
	parent := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.client.Chat.Completions.New(ctx, c.buildParams(req))
	if err != nil {
		return nil, c.wrapError(parent, ctx, err)
	}
	if len(resp.Choices) == 0 {
		return nil, NewError("complete", errors.New("response has no choices"), true)
	}

	choice := resp.Choices[0]
	return &CompletionResponse{
		Content:      choice.Message.Content,
		Model:        resp.Model,
		FinishReason: choice.FinishReason,
		Duration:     time.Since(start),
		Usage: TokenUsage{
			InputTokens:  int(resp.Usage.PromptTokens),
			OutputTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:  int(resp.Usage.TotalTokens),
		},
	}, nil
}

func (c *OpenAI) buildParams(req CompletionRequest) openai.ChatCompletionNewParams {
	model := c.model
	if req.Model != "" {
		model = req.Model
	}

	var messages []openai.ChatCompletionMessageParamUnion
	if req.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(req.SystemPrompt))
	}
	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleSystem:
			messages = append(messages, openai.SystemMessage(msg.Content))
		case RoleAssistant:
			messages = append(messages, openai.AssistantMessage(msg.Content))
		default:
			messages = append(messages, openai.UserMessage(msg.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: messages,
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.Schema != nil {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        req.Schema.Name,
					Description: openai.String(req.Schema.Description),
					Schema:      req.Schema.Schema,
					Strict:      openai.Bool(false),
				},
			},
		}
	}
	return params
}

// wrapError maps SDK failures onto client errors. API status codes become
// dlerrors.HTTPError so they categorize like any other HTTP failure.
func (c *OpenAI) wrapError(parent, ctx context.Context, err error) error {
	if parent.Err() != nil {
		return NewError("complete", parent.Err(), false)
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return NewError("complete", &dlerrors.TimeoutError{
			Operation: "openai completion",
			Duration:  c.timeout.String(),
		}, true)
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		httpErr := &dlerrors.HTTPError{
			StatusCode: apiErr.StatusCode,
			Message:    http.StatusText(apiErr.StatusCode),
		}
		return NewError("complete", fmt.Errorf("%w: %v", httpErr, err), dlerrors.IsRetryable(httpErr))
	}
	return NewError("complete", err, true)
}
