package provider_test

import (
	"context"
	"errors"
	"testing"

	"github.com/randalmurphal/docloop/pkg/docloop"
	"github.com/randalmurphal/docloop/pkg/docloop/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScripted_QueueRepeatsLast(t *testing.T) {
	first := docloop.FeedbackCollection{OverallAssessment: "again", IterationNeeded: true}
	last := docloop.FeedbackCollection{OverallAssessment: "done"}
	p := provider.NewScripted(provider.WithFeedback(first, last))
	ctx := testContext()
	s := startedState("x", docloop.DocumentTypeEssay)

	var got []string
	for i := 0; i < 3; i++ {
		fb, err := p.Review(ctx, s)
		require.NoError(t, err)
		got = append(got, fb.OverallAssessment)
	}
	assert.Equal(t, []string{"again", "done", "done"}, got)
	assert.Equal(t, 3, p.Calls(docloop.StageReview))
	assert.Zero(t, p.Calls(docloop.StagePlanning))
}

func TestScripted_StageErrors(t *testing.T) {
	boom := errors.New("boom")
	p := provider.NewScripted(provider.WithStageError(docloop.StageDrafting, boom, nil))
	ctx := testContext()
	s := startedState("x", docloop.DocumentTypeEssay)

	_, err := p.Draft(ctx, s)
	assert.ErrorIs(t, err, boom)

	_, err = p.Draft(ctx, s)
	assert.NoError(t, err, "a nil entry lets the call through")

	_, err = p.Draft(ctx, s)
	assert.NoError(t, err)
}

func TestScripted_ErrorsDoNotConsumeQueue(t *testing.T) {
	first := validPlan
	first.Tone = "first"
	second := validPlan
	second.Tone = "second"
	boom := errors.New("boom")
	p := provider.NewScripted(
		provider.WithPlans(first, second),
		provider.WithStageError(docloop.StagePlanning, boom),
	)
	ctx := testContext()
	s := startedState("x", docloop.DocumentTypeEssay)

	_, err := p.Plan(ctx, s)
	require.ErrorIs(t, err, boom)

	var tones []string
	for i := 0; i < 3; i++ {
		plan, err := p.Plan(ctx, s)
		require.NoError(t, err)
		tones = append(tones, plan.Tone)
	}
	assert.Equal(t, []string{"first", "second", "second"}, tones)
	assert.Equal(t, 4, p.Calls(docloop.StagePlanning), "failed calls are counted")
}

func TestScripted_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := provider.NewScripted().Plan(docloop.NewContext(ctx), startedState("x", docloop.DocumentTypeEssay))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScripted_SynthesizedRecordsValidate(t *testing.T) {
	p := provider.NewScripted()
	ctx := testContext()
	s := startedState("write a status memo about the migration.", docloop.DocumentTypeEmail)

	plan, err := p.Plan(ctx, s)
	require.NoError(t, err)
	require.NoError(t, plan.Validate())
	s.Plan = &plan

	draft, err := p.Draft(ctx, s)
	require.NoError(t, err)
	require.NoError(t, draft.Validate())
	assert.Equal(t, "Write a status memo about the migration", draft.Title)
	s.Draft = &draft

	fb, err := p.Review(ctx, s)
	require.NoError(t, err)
	require.NoError(t, fb.Validate())
	assert.True(t, fb.IterationNeeded, "first pass asks for another review")
	s.Feedback = &fb

	rev, err := p.Revise(ctx, s)
	require.NoError(t, err)
	require.NoError(t, rev.Validate())
	assert.NotEmpty(t, rev.ChangesMade)

	s.Iteration = provider.DefaultReviewPasses
	fb, err = p.Review(ctx, s)
	require.NoError(t, err)
	assert.False(t, fb.IterationNeeded)

	s.Revision = &rev
	s.ChangeLog = rev.ChangesMade
	final, err := p.Finalize(ctx, s)
	require.NoError(t, err)
	require.NoError(t, final.Validate())
	assert.Equal(t, rev.Content, final.Content)
	assert.Equal(t, rev.ChangesMade, final.RevisionHistory)
}

func TestScripted_MemoRun(t *testing.T) {
	driver, err := docloop.New(provider.NewScripted())
	require.NoError(t, err)

	result, err := driver.Run(testContext(), docloop.DocumentRequest{
		Prompt: "Write a memo asking the team to adopt code review checklists.",
		Type:   docloop.DocumentTypeEmail,
	})
	require.NoError(t, err)
	assert.Equal(t, docloop.OutcomeCompleted, result.Outcome)
	assert.Equal(t, 2, result.State.Iteration)
	assert.True(t, result.State.Finalized())
	assert.Len(t, result.State.Final.RevisionHistory, 2)
}

func TestScripted_ReviewPasses(t *testing.T) {
	driver, err := docloop.New(provider.NewScripted(provider.WithReviewPasses(10)))
	require.NoError(t, err)

	result, err := driver.Run(testContext(), docloop.DocumentRequest{Prompt: "essay", Type: docloop.DocumentTypeEssay},
		docloop.WithMaxIterations(4))
	require.NoError(t, err)
	assert.Equal(t, docloop.OutcomeCompleted, result.Outcome)
	assert.Equal(t, 4, result.State.Iteration, "capped at the iteration limit")
}
