package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/randalmurphal/docloop/pkg/docloop/config"
)

// env holds the settings and logger shared by every command.
type env struct {
	settings config.Settings
	// modelSet reports whether a model was configured explicitly.
	modelSet bool
	logger   *slog.Logger
}

// overrides are command flags that take precedence over the config file.
type overrides struct {
	provider      string
	model         string
	maxRounds     int
	maxIterations int
	checkpoint    string
	metricsAddr   string
	trace         bool
}

// load reads the .env file and config, applies flag overrides, validates
// the result and builds the logger.
func (cli *CLI) load(o overrides) (*env, error) {
	if err := config.LoadDotEnv(cli.EnvFile); err != nil {
		return nil, err
	}

	cfg := config.New(nil)
	if cli.Config != "" {
		var err error
		if cfg, err = config.FromFile(cli.Config); err != nil {
			return nil, err
		}
	}

	s := config.Load(cfg)
	e := &env{modelSet: cfg.Has("llm.model") || o.model != ""}
	if o.provider != "" {
		s.Provider = o.provider
	}
	if o.model != "" {
		s.Model = o.model
	}
	if o.maxRounds > 0 {
		s.MaxRounds = o.maxRounds
	}
	if o.maxIterations > 0 {
		s.MaxIterations = o.maxIterations
	}
	if o.checkpoint != "" {
		s.CheckpointPath = o.checkpoint
	}
	if o.metricsAddr != "" {
		s.MetricsAddr = o.metricsAddr
	}
	if o.trace {
		s.Trace = true
	}
	if cli.LogLevel != "" {
		s.LogLevel = cli.LogLevel
	}
	if cli.LogFormat != "" {
		s.LogFormat = cli.LogFormat
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration:\n%w", err)
	}

	logger, err := newLogger(os.Stderr, s.LogLevel, s.LogFormat)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	e.settings = s
	e.logger = logger
	return e, nil
}

// newLogger builds a text or JSON slog logger writing to w.
func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	opts := &slog.HandlerOptions{Level: lvl}

	switch format {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return nil, fmt.Errorf("invalid log format %q", format)
}
