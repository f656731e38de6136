package docloop

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStart(t *testing.T) {
	s := NewState(0)
	msg, err := Start(&s, memoRequest)
	require.NoError(t, err)

	assert.Equal(t, "Document creation started for a email from the provided prompt.", msg)
	assert.True(t, s.Started)
	assert.Equal(t, 1, s.Iteration)
	assert.Equal(t, StagePlanning, s.Stage)
	assert.Equal(t, DefaultMaxIterations, s.MaxIterations)
	assert.Equal(t, memoRequest.Prompt, s.DocumentPrompt)
	assert.False(t, s.Error)
}

func TestStart_Twice(t *testing.T) {
	s := NewState(0)
	_, err := Start(&s, memoRequest)
	require.NoError(t, err)

	_, err = Start(&s, DocumentRequest{Prompt: "other", Type: DocumentTypeEssay})
	assert.ErrorIs(t, err, ErrAlreadyStarted)
	assert.Equal(t, memoRequest.Prompt, s.DocumentPrompt, "request is set once")
	assert.True(t, s.Error)
}

func TestStart_InvalidRequest(t *testing.T) {
	tests := []struct {
		name  string
		req   DocumentRequest
		field string
	}{
		{"empty prompt", DocumentRequest{Prompt: "  ", Type: DocumentTypeEssay}, "prompt"},
		{"unknown type", DocumentRequest{Prompt: "x", Type: "poem"}, "type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewState(0)
			_, err := Start(&s, tt.req)

			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
			assert.Equal(t, StagePlanning, ve.Stage)
			assert.False(t, s.Started)
			assert.True(t, s.Error)
			assert.Equal(t, StagePlanning, s.ErrorStage)
			assert.Equal(t, ve.Error(), s.ErrorMessage)
		})
	}
}

func TestSubmitPlan(t *testing.T) {
	s := startedAt(StagePlanning)
	msg, err := SubmitPlan(s, samplePlan())
	require.NoError(t, err)
	assert.Equal(t, "Document plan created. Moving to drafting.", msg)
	assert.Equal(t, StageDrafting, s.Stage)
	require.NotNil(t, s.Plan)
}

func TestSubmitPlan_StoresCopy(t *testing.T) {
	s := startedAt(StagePlanning)
	plan := samplePlan()
	_, err := SubmitPlan(s, plan)
	require.NoError(t, err)

	plan.Outline[0] = "mutated"
	assert.Equal(t, "Why", s.Plan.Outline[0])
}

func TestSubmitPlan_NotStarted(t *testing.T) {
	s := NewState(0)
	_, err := SubmitPlan(&s, samplePlan())
	assert.ErrorIs(t, err, ErrWrongStage)
	assert.Nil(t, s.Plan)
}

func TestHandlers_WrongStage(t *testing.T) {
	tests := []struct {
		name string
		run  func(*WorkflowState) (string, error)
	}{
		{"plan in review", func(s *WorkflowState) (string, error) { return SubmitPlan(s, samplePlan()) }},
		{"draft in review", func(s *WorkflowState) (string, error) { return SubmitDraft(s, sampleDraft()) }},
		{"revision in review", func(s *WorkflowState) (string, error) { return SubmitRevision(s, sampleRevision(1)) }},
		{"finalize in review", func(s *WorkflowState) (string, error) { return Finalize(s, FinalDocument{}) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := startedAt(StageReview)
			_, err := tt.run(s)
			assert.ErrorIs(t, err, ErrWrongStage)
			assert.Equal(t, StageReview, s.Stage)
			assert.True(t, s.Error)
		})
	}
}

// TestHandlers_MissingField verifies that a missing required field sets the
// error flag and leaves the stage unchanged.
func TestHandlers_MissingField(t *testing.T) {
	tests := []struct {
		name  string
		stage Stage
		run   func(*WorkflowState) (string, error)
		field string
	}{
		{
			name:  "plan without outline",
			stage: StagePlanning,
			run: func(s *WorkflowState) (string, error) {
				p := samplePlan()
				p.Outline = []string{" "}
				return SubmitPlan(s, p)
			},
			field: "outline",
		},
		{
			name:  "draft without content",
			stage: StageDrafting,
			run: func(s *WorkflowState) (string, error) {
				d := sampleDraft()
				d.Content = ""
				return SubmitDraft(s, d)
			},
			field: "content",
		},
		{
			name:  "feedback item without severity",
			stage: StageReview,
			run: func(s *WorkflowState) (string, error) {
				f := sampleFeedback(false)
				f.Items[0].Severity = ""
				return SubmitFeedback(s, f)
			},
			field: "items[0].severity",
		},
		{
			name:  "revision without title",
			stage: StageRevision,
			run: func(s *WorkflowState) (string, error) {
				r := sampleRevision(1)
				r.Title = ""
				return SubmitRevision(s, r)
			},
			field: "title",
		},
		{
			name:  "final without document type",
			stage: StageFinal,
			run: func(s *WorkflowState) (string, error) {
				return Finalize(s, FinalDocument{Title: "t", Content: "c"})
			},
			field: "document_type",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := startedAt(tt.stage)
			msg, err := tt.run(s)

			assert.Empty(t, msg)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
			assert.Equal(t, tt.stage, ve.Stage)
			assert.True(t, s.Error)
			assert.Equal(t, tt.stage, s.Stage, "stage must not change")
			assert.Equal(t, tt.stage, s.ErrorStage)
			assert.Contains(t, s.ErrorMessage, tt.field)
		})
	}
}

func TestSubmitFeedback(t *testing.T) {
	s := startedAt(StageReview)
	msg, err := SubmitFeedback(s, sampleFeedback(true))
	require.NoError(t, err)
	assert.Equal(t, "Feedback submitted. Moving to revision.", msg)
	assert.Equal(t, StageRevision, s.Stage)
	assert.True(t, s.IterationNeeded)
}

func TestSubmitRevision(t *testing.T) {
	t.Run("no further pass needed", func(t *testing.T) {
		s := startedAt(StageRevision)
		s.IterationNeeded = false
		msg, err := SubmitRevision(s, sampleRevision(1))
		require.NoError(t, err)
		assert.Equal(t, "Revisions complete. Moving to finalization.", msg)
		assert.Equal(t, StageFinal, s.Stage)
		assert.Equal(t, 1, s.Iteration)
		assert.Len(t, s.ChangeLog, 1)
	})

	t.Run("loops back to review", func(t *testing.T) {
		s := startedAt(StageRevision)
		s.IterationNeeded = true
		rev := sampleRevision(1)
		msg, err := SubmitRevision(s, rev)
		require.NoError(t, err)
		assert.Equal(t, "Document revised. Starting iteration 2 with another review.", msg)
		assert.Equal(t, StageReview, s.Stage)
		assert.Equal(t, 2, s.Iteration)
		require.NotNil(t, s.Draft)
		assert.Equal(t, rev.Content, s.Draft.Content, "the revision becomes the draft under review")
	})

	t.Run("iteration budget exhausted", func(t *testing.T) {
		s := startedAt(StageRevision)
		s.IterationNeeded = true
		s.Iteration = s.MaxIterations
		_, err := SubmitRevision(s, sampleRevision(s.Iteration))
		require.NoError(t, err)
		assert.Equal(t, StageFinal, s.Stage)
		assert.Equal(t, s.MaxIterations, s.Iteration)
	})
}

func TestFinalize(t *testing.T) {
	s := startedAt(StageFinal)
	s.IterationNeeded = true
	rev := sampleRevision(1)
	s.Revision = &rev

	msg, err := Finalize(s, sampleFinal(*s))
	require.NoError(t, err)
	assert.Equal(t, "Document finalized. Feedback loop complete.", msg)
	assert.True(t, s.Finalized())
	assert.False(t, s.IterationNeeded)
	assert.Equal(t, StageFinal, s.Stage)
}
