package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"
)

// Provider names accepted in llm.provider.
const (
	ProviderOpenAI   = "openai"
	ProviderClaude   = "claude"
	ProviderScripted = "scripted"
)

// Settings is the typed view of a docloop configuration file.
type Settings struct {
	Provider       string
	Model          string
	FallbackModels []string
	Temperature    float64
	MaxTokens      int
	APIKeyEnv      string
	BaseURL        string
	ClaudePath     string
	Timeout        time.Duration
	RetryAttempts  int
	RetryBackoff   time.Duration

	MaxRounds     int
	MaxIterations int

	CheckpointPath string

	LogLevel  string
	LogFormat string

	MetricsAddr string
	Trace       bool
}

// DefaultSettings returns the settings used for missing keys.
func DefaultSettings() Settings {
	return Settings{
		Provider:      ProviderOpenAI,
		Model:         "gpt-4o-mini",
		Temperature:   0.2,
		MaxTokens:     4096,
		APIKeyEnv:     "OPENAI_API_KEY",
		ClaudePath:    "claude",
		Timeout:       2 * time.Minute,
		RetryAttempts: 3,
		RetryBackoff:  time.Second,
		MaxRounds:     50,
		MaxIterations: 3,
		LogLevel:      "info",
		LogFormat:     "text",
	}
}

// Load decodes settings from c, filling missing keys from DefaultSettings.
//
// Recognised keys:
//
//	llm.provider, llm.model, llm.fallback_models, llm.temperature,
//	llm.max_tokens, llm.api_key_env, llm.base_url, llm.claude_path,
//	llm.timeout, llm.retry.attempts, llm.retry.backoff,
//	workflow.max_rounds, workflow.max_iterations, checkpoint.path,
//	log.level, log.format, observability.metrics_addr, observability.trace
func Load(c Config) Settings {
	d := DefaultSettings()
	llm := c.Section("llm")
	return Settings{
		Provider:       strings.ToLower(llm.String("provider", d.Provider)),
		Model:          llm.String("model", d.Model),
		FallbackModels: llm.StringSlice("fallback_models", nil),
		Temperature:    llm.Float("temperature", d.Temperature),
		MaxTokens:      llm.Int("max_tokens", d.MaxTokens),
		APIKeyEnv:      llm.String("api_key_env", d.APIKeyEnv),
		BaseURL:        llm.String("base_url", d.BaseURL),
		ClaudePath:     llm.String("claude_path", d.ClaudePath),
		Timeout:        llm.Duration("timeout", d.Timeout),
		RetryAttempts:  llm.Int("retry.attempts", d.RetryAttempts),
		RetryBackoff:   llm.Duration("retry.backoff", d.RetryBackoff),
		MaxRounds:      c.Int("workflow.max_rounds", d.MaxRounds),
		MaxIterations:  c.Int("workflow.max_iterations", d.MaxIterations),
		CheckpointPath: c.String("checkpoint.path", d.CheckpointPath),
		LogLevel:       strings.ToLower(c.String("log.level", d.LogLevel)),
		LogFormat:      strings.ToLower(c.String("log.format", d.LogFormat)),
		MetricsAddr:    c.String("observability.metrics_addr", d.MetricsAddr),
		Trace:          c.Bool("observability.trace", d.Trace),
	}
}

// Validate reports every invalid field. Multiple errors are joined together.
func (s Settings) Validate() error {
	var errs []error
	if !slices.Contains([]string{ProviderOpenAI, ProviderClaude, ProviderScripted}, s.Provider) {
		errs = append(errs, fmt.Errorf("llm.provider: unknown provider %q", s.Provider))
	}
	if s.Provider == ProviderOpenAI && s.Model == "" {
		errs = append(errs, errors.New("llm.model: required"))
	}
	if s.Temperature < 0 || s.Temperature > 2 {
		errs = append(errs, fmt.Errorf("llm.temperature: %v outside [0, 2]", s.Temperature))
	}
	if s.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("llm.max_tokens: %d is negative", s.MaxTokens))
	}
	if s.RetryAttempts < 1 {
		errs = append(errs, fmt.Errorf("llm.retry.attempts: %d, need at least 1", s.RetryAttempts))
	}
	if s.MaxRounds < 1 {
		errs = append(errs, fmt.Errorf("workflow.max_rounds: %d, need at least 1", s.MaxRounds))
	}
	if s.MaxIterations < 1 {
		errs = append(errs, fmt.Errorf("workflow.max_iterations: %d, need at least 1", s.MaxIterations))
	}
	if !slices.Contains([]string{"debug", "info", "warn", "error"}, s.LogLevel) {
		errs = append(errs, fmt.Errorf("log.level: unknown level %q", s.LogLevel))
	}
	if !slices.Contains([]string{"text", "json"}, s.LogFormat) {
		errs = append(errs, fmt.Errorf("log.format: unknown format %q", s.LogFormat))
	}
	return errors.Join(errs...)
}

// APIKey reads the API key from the configured environment variable.
func (s Settings) APIKey() string {
	return os.Getenv(s.APIKeyEnv)
}

// Models returns the primary model followed by the fallbacks, without duplicates.
func (s Settings) Models() []string {
	var models []string
	for _, m := range append([]string{s.Model}, s.FallbackModels...) {
		if m != "" && !slices.Contains(models, m) {
			models = append(models, m)
		}
	}
	return models
}
