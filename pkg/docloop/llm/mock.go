package llm

import (
	"context"
	"slices"
	"sync"
)

// Mock is a Client with scripted responses. It records every request.
//
// Responses are returned in order and cycle once exhausted. Errors queued
// with WithErrors are consumed one per call before responses; a nil entry
// lets that call fall through to the next response.
type Mock struct {
	mu           sync.Mutex
	responses    []string
	errs         []error
	completeFunc func(context.Context, CompletionRequest) (*CompletionResponse, error)
	next         int
	calls        []CompletionRequest
}

var _ Client = (*Mock)(nil)

// NewMock creates a Mock returning responses in order.
func NewMock(responses ...string) *Mock {
	return &Mock{responses: responses}
}

// WithErrors queues errors for the next calls.
func (m *Mock) WithErrors(errs ...error) *Mock {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs = append(m.errs, errs...)
	return m
}

// WithCompleteFunc replaces the scripted responses with fn.
func (m *Mock) WithCompleteFunc(fn func(context.Context, CompletionRequest) (*CompletionResponse, error)) *Mock {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completeFunc = fn
	return m
}

// Complete implements Client.
func (m *Mock) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.calls = append(m.calls, req)
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		if err != nil {
			m.mu.Unlock()
			return nil, err
		}
	}
	fn := m.completeFunc
	var content string
	if fn == nil && len(m.responses) > 0 {
		content = m.responses[m.next%len(m.responses)]
		m.next++
	}
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}

	input := approximateTokens(req.SystemPrompt)
	for _, msg := range req.Messages {
		input += approximateTokens(msg.Content)
	}
	output := approximateTokens(content)
	model := req.Model
	if model == "" {
		model = "mock"
	}
	return &CompletionResponse{
		Content:      content,
		Model:        model,
		FinishReason: "stop",
		Usage: TokenUsage{
			InputTokens:  input,
			OutputTokens: output,
			TotalTokens:  input + output,
		},
	}, nil
}

// Calls returns a copy of the recorded requests.
func (m *Mock) Calls() []CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.calls)
}

// CallCount returns the number of Complete calls.
func (m *Mock) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// LastCall returns the most recent request, or nil before the first call.
func (m *Mock) LastCall() *CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return nil
	}
	last := m.calls[len(m.calls)-1]
	return &last
}

// Reset clears recorded calls and restarts the responses.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.next = 0
}

// approximateTokens counts roughly four characters per token, minimum one.
func approximateTokens(s string) int {
	return max(len(s)/4, 1)
}
