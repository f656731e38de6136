// Package llm provides the completion clients used by the LLM-backed
// document provider.
//
// Three implementations are included:
//   - OpenAI: the OpenAI chat completions API via openai-go, with
//     structured output through JSON schema response formats
//   - ClaudeCLI: the claude binary in print mode
//   - Mock: scripted responses for tests and examples
package llm

import "context"

// Client performs completion calls.
type Client interface {
	// Complete sends req and waits for the full response.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}
