package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/randalmurphal/docloop/pkg/docloop"
	"github.com/randalmurphal/docloop/pkg/docloop/llm"
	"github.com/randalmurphal/docloop/pkg/docloop/provider"
)

// SchemaCmd prints the JSON schema a provider must satisfy per stage.
type SchemaCmd struct {
	Stage   string `arg:"" optional:"" help:"Stage (planning, drafting, review, revision, final). All stages when omitted."`
	Compact bool   `help:"Compact JSON output (no indentation)."`
}

func (c *SchemaCmd) Run() error {
	return c.write(os.Stdout)
}

func (c *SchemaCmd) write(w io.Writer) error {
	stages := docloop.Stages()
	if c.Stage != "" {
		stage, err := docloop.ParseStage(c.Stage)
		if err != nil {
			return err
		}
		stages = []docloop.Stage{stage}
	}

	schemas := make(map[string]*llm.JSONSchema, len(stages))
	for _, stage := range stages {
		schema, err := provider.StageSchema(stage)
		if err != nil {
			return err
		}
		schemas[stage.String()] = schema
	}

	encoder := json.NewEncoder(w)
	if !c.Compact {
		encoder.SetIndent("", "  ")
	}
	var out any = schemas
	if c.Stage != "" {
		out = schemas[stages[0].String()]
	}
	if err := encoder.Encode(out); err != nil {
		return fmt.Errorf("failed to encode schema: %w", err)
	}
	return nil
}
