package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/randalmurphal/docloop/pkg/docloop/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
llm:
  provider: openai
  model: gpt-4o
  fallback_models: [gpt-4o-mini]
  temperature: 0.4
  timeout: 90s
  retry:
    attempts: 5
workflow:
  max_rounds: 20
  max_iterations: "4"
log:
  level: debug
observability:
  trace: "true"
`

// TestString verifies string extraction with defaults.
func TestString(t *testing.T) {
	tests := []struct {
		name       string
		data       map[string]any
		key        string
		defaultVal string
		want       string
	}{
		{"key exists", map[string]any{"name": "memo"}, "name", "default", "memo"},
		{"key missing", map[string]any{"other": "value"}, "name", "default", "default"},
		{"empty string", map[string]any{"name": ""}, "name", "default", "default"},
		{"wrong type", map[string]any{"name": 123}, "name", "default", "default"},
		{"dotted path", map[string]any{"llm": map[string]any{"model": "gpt-4o"}}, "llm.model", "x", "gpt-4o"},
		{"dotted path missing", map[string]any{"llm": map[string]any{}}, "llm.model", "x", "x"},
		{"through non-map", map[string]any{"llm": "flat"}, "llm.model", "x", "x"},
		{"literal dotted key", map[string]any{"llm.model": "flat"}, "llm.model", "x", "flat"},
		{"nil map", nil, "name", "default", "default"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, config.New(tt.data).String(tt.key, tt.defaultVal))
		})
	}
}

// TestString_EnvExpansion verifies ${VAR} and ${VAR:-default} references.
func TestString_EnvExpansion(t *testing.T) {
	t.Setenv("DOCLOOP_TEST_URL", "http://localhost:8080")

	cfg := config.New(map[string]any{
		"set":      "${DOCLOOP_TEST_URL}/v1",
		"fallback": "${DOCLOOP_TEST_UNSET:-https://api.openai.com/v1}",
		"unset":    "${DOCLOOP_TEST_UNSET}",
		"dollar":   "costs $5",
	})

	assert.Equal(t, "http://localhost:8080/v1", cfg.String("set", ""))
	assert.Equal(t, "https://api.openai.com/v1", cfg.String("fallback", ""))
	assert.Equal(t, "default", cfg.String("unset", "default"))
	assert.Equal(t, "costs $5", cfg.String("dollar", ""))
}

// TestTypedAccessors verifies numeric, boolean, duration and slice coercion.
func TestTypedAccessors(t *testing.T) {
	cfg := config.New(map[string]any{
		"int":        3,
		"int_float":  float64(4),
		"frac":       4.5,
		"int_str":    "7",
		"float_int":  2,
		"float_str":  "0.7",
		"bool":       true,
		"bool_str":   "false",
		"bool_bad":   "maybe",
		"dur_str":    "1m30s",
		"dur_int":    10,
		"dur_float":  1.5,
		"slice":      []any{"a", "b"},
		"slice_bad":  []any{"a", 1},
		"slice_csv":  "a, b,,c",
		"slice_real": []string{"x"},
	})

	assert.Equal(t, 3, cfg.Int("int", 0))
	assert.Equal(t, 4, cfg.Int("int_float", 0))
	assert.Equal(t, 9, cfg.Int("frac", 9))
	assert.Equal(t, 7, cfg.Int("int_str", 0))
	assert.InDelta(t, 2.0, cfg.Float("float_int", 0), 1e-9)
	assert.InDelta(t, 0.7, cfg.Float("float_str", 0), 1e-9)
	assert.True(t, cfg.Bool("bool", false))
	assert.False(t, cfg.Bool("bool_str", true))
	assert.True(t, cfg.Bool("bool_bad", true))
	assert.Equal(t, 90*time.Second, cfg.Duration("dur_str", 0))
	assert.Equal(t, 10*time.Second, cfg.Duration("dur_int", 0))
	assert.Equal(t, 1500*time.Millisecond, cfg.Duration("dur_float", 0))
	assert.Equal(t, []string{"a", "b"}, cfg.StringSlice("slice", nil))
	assert.Equal(t, []string{"z"}, cfg.StringSlice("slice_bad", []string{"z"}))
	assert.Equal(t, []string{"a", "b", "c"}, cfg.StringSlice("slice_csv", nil))
	assert.Equal(t, []string{"x"}, cfg.StringSlice("slice_real", nil))
	assert.True(t, cfg.Has("int"))
	assert.False(t, cfg.Has("nope"))
}

// TestSection verifies nested map access, including yaml-decoded maps.
func TestSection(t *testing.T) {
	cfg, err := config.FromYAML([]byte(sampleYAML))
	require.NoError(t, err)

	llm := cfg.Section("llm")
	assert.Equal(t, "gpt-4o", llm.String("model", ""))
	assert.Equal(t, 5, llm.Int("retry.attempts", 0))
	assert.Empty(t, cfg.Section("missing").Raw())
	assert.Empty(t, cfg.Section("llm.model").Raw())
}

// TestFromFile verifies loading by extension.
func TestFromFile(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "docloop.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(sampleYAML), 0o600))
	cfg, err := config.FromFile(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.Int("workflow.max_rounds", 0))

	jsonPath := filepath.Join(dir, "docloop.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"workflow":{"max_rounds":12}}`), 0o600))
	cfg, err = config.FromFile(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.Int("workflow.max_rounds", 0))

	tomlPath := filepath.Join(dir, "docloop.toml")
	require.NoError(t, os.WriteFile(tomlPath, []byte(""), 0o600))
	_, err = config.FromFile(tomlPath)
	assert.ErrorContains(t, err, "unsupported config file extension")

	_, err = config.FromFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	_, err = config.FromYAML([]byte("llm: [unterminated"))
	assert.Error(t, err)
}

// TestLoadDotEnv verifies .env loading and that set variables win.
func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("DOCLOOP_TEST_DOTENV=from-file\nDOCLOOP_TEST_KEEP=from-file\n"), 0o600))

	t.Setenv("DOCLOOP_TEST_KEEP", "from-env")
	t.Setenv("DOCLOOP_TEST_DOTENV", "")
	require.NoError(t, os.Unsetenv("DOCLOOP_TEST_DOTENV"))

	require.NoError(t, config.LoadDotEnv(filepath.Join(dir, "missing.env"), path))
	assert.Equal(t, "from-file", os.Getenv("DOCLOOP_TEST_DOTENV"))
	assert.Equal(t, "from-env", os.Getenv("DOCLOOP_TEST_KEEP"))
}
