package llm_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	dlerrors "github.com/randalmurphal/docloop/pkg/docloop/errors"
	"github.com/randalmurphal/docloop/pkg/docloop/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const completionBody = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "gpt-4o-mini",
  "choices": [{
    "index": 0,
    "finish_reason": "stop",
    "message": {"role": "assistant", "content": "{\"title\":\"Memo\"}"}
  }],
  "usage": {"prompt_tokens": 12, "completion_tokens": 5, "total_tokens": 17}
}`

// fakeOpenAI serves chat completions and records decoded request bodies.
type fakeOpenAI struct {
	mu     sync.Mutex
	bodies []map[string]any
	status int
	reply  string
}

func (f *fakeOpenAI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	data, _ := io.ReadAll(r.Body)
	var body map[string]any
	_ = json.Unmarshal(data, &body)

	f.mu.Lock()
	f.bodies = append(f.bodies, body)
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	status := f.status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = io.WriteString(w, f.reply)
}

func newTestOpenAI(t *testing.T, f *fakeOpenAI) *llm.OpenAI {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return llm.NewOpenAI(
		llm.WithAPIKey("sk-test"),
		llm.WithBaseURL(srv.URL+"/v1/"),
	)
}

func TestOpenAI_Complete(t *testing.T) {
	fake := &fakeOpenAI{reply: completionBody}
	client := newTestOpenAI(t, fake)

	resp, err := client.Complete(context.Background(), llm.CompletionRequest{
		SystemPrompt: "You edit documents.",
		Messages:     []llm.Message{llm.UserMessage("Plan a memo")},
		Temperature:  llm.Temperature(0.3),
		MaxTokens:    256,
		Schema: &llm.JSONSchema{
			Name:        "document_plan",
			Description: "A document plan",
			Schema:      map[string]any{"type": "object"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"title":"Memo"}`, resp.Content)
	assert.Equal(t, "gpt-4o-mini", resp.Model)
	assert.Equal(t, "stop", resp.FinishReason)
	assert.Equal(t, llm.TokenUsage{InputTokens: 12, OutputTokens: 5, TotalTokens: 17}, resp.Usage)

	require.Len(t, fake.bodies, 1)
	body := fake.bodies[0]
	assert.Equal(t, "gpt-4o-mini", body["model"])
	assert.InDelta(t, 0.3, body["temperature"], 1e-9)

	messages, ok := body["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
	assert.Equal(t, "user", messages[1].(map[string]any)["role"])

	format, ok := body["response_format"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "json_schema", format["type"])
	schema := format["json_schema"].(map[string]any)
	assert.Equal(t, "document_plan", schema["name"])
}

func TestOpenAI_RequestModelOverrides(t *testing.T) {
	fake := &fakeOpenAI{reply: completionBody}
	client := newTestOpenAI(t, fake)

	_, err := client.Complete(context.Background(), llm.CompletionRequest{
		Model:    "gpt-4o",
		Messages: []llm.Message{llm.UserMessage("hi")},
	})
	require.NoError(t, err)
	require.Len(t, fake.bodies, 1)
	assert.Equal(t, "gpt-4o", fake.bodies[0]["model"])
	assert.NotContains(t, fake.bodies[0], "response_format")
	assert.NotContains(t, fake.bodies[0], "temperature")
}

func TestOpenAI_Errors(t *testing.T) {
	const apiError = `{"error": {"message": "nope", "type": "invalid_request_error"}}`

	tests := []struct {
		name      string
		status    int
		retryable bool
	}{
		{"unauthorized", http.StatusUnauthorized, false},
		{"bad request", http.StatusBadRequest, false},
		{"rate limited", http.StatusTooManyRequests, true},
		{"server error", http.StatusInternalServerError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeOpenAI{status: tt.status, reply: apiError}
			client := newTestOpenAI(t, fake)

			_, err := client.Complete(context.Background(), llm.CompletionRequest{
				Messages: []llm.Message{llm.UserMessage("hi")},
			})
			require.Error(t, err)
			assert.Len(t, fake.bodies, 1, "SDK retries are disabled")

			var httpErr *dlerrors.HTTPError
			require.True(t, errors.As(err, &httpErr))
			assert.Equal(t, tt.status, httpErr.StatusCode)
			assert.Equal(t, tt.retryable, dlerrors.IsRetryable(err))
		})
	}
}

func TestOpenAI_NoChoices(t *testing.T) {
	fake := &fakeOpenAI{reply: `{"id":"x","object":"chat.completion","created":1,"model":"m","choices":[]}`}
	client := newTestOpenAI(t, fake)

	_, err := client.Complete(context.Background(), llm.CompletionRequest{Messages: []llm.Message{llm.UserMessage("hi")}})
	require.Error(t, err)
	assert.True(t, dlerrors.IsRetryable(err))
}
