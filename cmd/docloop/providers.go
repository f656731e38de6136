package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/randalmurphal/docloop/pkg/docloop"
	"github.com/randalmurphal/docloop/pkg/docloop/config"
	dlerrors "github.com/randalmurphal/docloop/pkg/docloop/errors"
	"github.com/randalmurphal/docloop/pkg/docloop/llm"
	"github.com/randalmurphal/docloop/pkg/docloop/provider"
)

var errScriptedClient = errors.New("the scripted provider has no model to ask")

// newClient builds the LLM client for the configured provider.
func (e *env) newClient() (llm.Client, error) {
	s := e.settings
	switch s.Provider {
	case config.ProviderOpenAI:
		return llm.NewOpenAI(
			llm.WithAPIKey(s.APIKey()),
			llm.WithBaseURL(s.BaseURL),
			llm.WithDefaultModel(s.Model),
			llm.WithRequestTimeout(s.Timeout),
		), nil
	case config.ProviderClaude:
		opts := []llm.ClaudeOption{
			llm.WithClaudePath(s.ClaudePath),
			llm.WithTimeout(s.Timeout),
		}
		if e.modelSet {
			opts = append(opts, llm.WithModel(s.Model))
		}
		return llm.NewClaudeCLI(opts...), nil
	case config.ProviderScripted:
		return nil, errScriptedClient
	}
	return nil, fmt.Errorf("unknown provider %q", s.Provider)
}

// models returns the model fallback chain for the provider.
// The claude binary picks its own model unless one was configured.
func (e *env) models() []string {
	if e.settings.Provider == config.ProviderClaude && !e.modelSet {
		return nil
	}
	return e.settings.Models()
}

// usageReporter is implemented by providers that track token usage.
type usageReporter interface {
	Usage() llm.TokenUsage
}

// newProvider builds the document provider for the configured provider.
func (e *env) newProvider() (docloop.Provider, error) {
	s := e.settings
	if s.Provider == config.ProviderScripted {
		return provider.NewScripted(), nil
	}

	client, err := e.newClient()
	if err != nil {
		return nil, err
	}
	retry := dlerrors.NewRetryConfig(
		dlerrors.WithMaxAttempts(s.RetryAttempts),
		dlerrors.WithInitialBackoff(s.RetryBackoff),
		dlerrors.WithOnRetry(func(attempt int, err error, wait time.Duration) {
			e.logger.Warn("retrying completion", "attempt", attempt, "wait", wait, "error", err)
		}),
	)
	return provider.NewLLM(client,
		provider.WithModels(e.models()...),
		provider.WithTemperature(s.Temperature),
		provider.WithMaxTokens(s.MaxTokens),
		provider.WithRetry(retry),
	), nil
}
