/*
Package config loads docloop configuration.

# Overview

Config wraps a map[string]any decoded from YAML or JSON and offers typed
accessors that fall back to a default when a key is missing or has the wrong
type. Keys may be dotted paths into nested maps:

	cfg, err := config.FromFile("docloop.yaml")
	if err != nil {
	    log.Fatal(err)
	}

	model := cfg.String("llm.model", "gpt-4o-mini")
	rounds := cfg.Int("workflow.max_rounds", 50)
	llm := cfg.Section("llm")
	temperature := llm.Float("temperature", 0.2)

# Environment

String values are expanded against the environment when read, so secrets and
per-machine values can stay out of the file:

	llm:
	  base_url: ${OPENAI_BASE_URL:-https://api.openai.com/v1}

LoadDotEnv reads .env files into the environment first. Variables that are
already set win.

# Settings

Load decodes the well-known keys into a Settings struct with defaults filled
in; Validate reports every invalid field at once.
*/
package config
