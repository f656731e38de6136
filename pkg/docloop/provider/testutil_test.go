package provider_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/randalmurphal/docloop/pkg/docloop"
	"github.com/stretchr/testify/require"
)

func testContext() docloop.Context {
	return docloop.NewContext(context.Background(),
		docloop.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func startedState(prompt string, typ docloop.DocumentType) docloop.WorkflowState {
	s := docloop.NewState(0)
	s.Started = true
	s.Iteration = 1
	s.DocumentPrompt = prompt
	s.DocumentType = typ
	return s
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}

var validPlan = docloop.DocumentPlan{
	Outline:        []string{"Context", "Proposal", "Timeline"},
	MainArguments:  []string{"Move standup to 10:00"},
	TargetAudience: "engineering team",
	Tone:           "friendly",
	DocumentType:   docloop.DocumentTypeEmail,
}
