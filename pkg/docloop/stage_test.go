package docloop

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageNames(t *testing.T) {
	tests := []struct {
		stage Stage
		name  string
	}{
		{StagePlanning, "planning"},
		{StageDrafting, "drafting"},
		{StageReview, "review"},
		{StageRevision, "revision"},
		{StageFinal, "final"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.name, tt.stage.String())
			parsed, err := ParseStage(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.stage, parsed)
		})
	}

	assert.Equal(t, "stage(9)", Stage(9).String())
	_, err := ParseStage("editing")
	assert.ErrorIs(t, err, ErrUnknownStage)
	assert.True(t, StageFinal.Terminal())
	assert.False(t, StageRevision.Terminal())
}

func TestHandlerStages(t *testing.T) {
	tests := []struct {
		handler HandlerID
		name    string
		stage   Stage
	}{
		{HandlerStart, "start", StagePlanning},
		{HandlerPlan, "submit_plan", StagePlanning},
		{HandlerDraft, "submit_draft", StageDrafting},
		{HandlerFeedback, "submit_feedback", StageReview},
		{HandlerRevision, "submit_revision", StageRevision},
		{HandlerFinalize, "finalize", StageFinal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.name, tt.handler.String())
			assert.True(t, tt.handler.Valid())
			assert.Equal(t, tt.stage, tt.handler.Stage())
		})
	}
	assert.False(t, HandlerNone.Valid())
	assert.Equal(t, "handler(42)", HandlerID(42).String())
}

func TestStageJSON(t *testing.T) {
	step := Step{Round: 2, Iteration: 1, Handler: HandlerPlan, From: StagePlanning, To: StageDrafting}
	data, err := json.Marshal(step)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"handler":"submit_plan"`)
	assert.Contains(t, string(data), `"to":"drafting"`)

	var decoded Step
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, step, decoded)

	assert.Error(t, json.Unmarshal([]byte(`{"from":"editing"}`), &decoded))
	assert.Error(t, json.Unmarshal([]byte(`{"handler":"publish"}`), &decoded))

	_, err = json.Marshal(Step{From: Stage(7)})
	assert.Error(t, err)
}
