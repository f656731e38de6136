package docloop

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/docloop/pkg/docloop/checkpoint"
)

// interruptedRun leaves a run with three accepted steps in store.
func interruptedRun(t *testing.T, store checkpoint.Store, runID string, p Provider) {
	t.Helper()
	d := newDriver(t, p)
	result, err := d.Run(testContext(), memoRequest,
		WithRunID(runID),
		WithCheckpointing(store),
		WithMaxRounds(3),
		WithMaxIterations(2),
	)
	require.NoError(t, err)
	require.Equal(t, OutcomeIncomplete, result.Outcome)
}

func TestResume_CompletesRun(t *testing.T) {
	store := checkpoint.NewMemoryStore()
	p := &stubProvider{review: reviewsNeeded(5)}
	interruptedRun(t, store, "memo-r", p)

	d := newDriver(t, p)
	result, err := d.Resume(testContext(), store, "memo-r")
	require.NoError(t, err)

	assert.Equal(t, OutcomeCompleted, result.Outcome)
	assert.Equal(t, "memo-r", result.RunID)
	assert.Equal(t, 2, result.State.Iteration, "checkpointed iteration limit is kept")
	assert.Equal(t, 8, result.Rounds)
	assert.Len(t, result.State.Trail, 8)
	assert.Equal(t, memoRequest.Prompt, result.State.DocumentPrompt)

	assert.Equal(t, 1, p.Calls(StagePlanning), "plan is not regenerated")
	assert.Equal(t, 1, p.Calls(StageDrafting))
	assert.Equal(t, 2, p.Calls(StageReview))

	infos, err := store.List("memo-r")
	require.NoError(t, err)
	assert.Len(t, infos, 8, "resumed steps keep checkpointing")
}

func TestResume_RoundCeilingCoversWholeRun(t *testing.T) {
	store := checkpoint.NewMemoryStore()
	interruptedRun(t, store, "ceiling", &stubProvider{})

	d := newDriver(t, &stubProvider{})
	result, err := d.Resume(testContext(), store, "ceiling", WithMaxRounds(4))
	require.NoError(t, err)

	assert.Equal(t, OutcomeIncomplete, result.Outcome)
	assert.Equal(t, 4, result.Rounds)

	var rl *RoundLimitError
	require.ErrorAs(t, result.Err, &rl)
	assert.Equal(t, HandlerRevision, rl.Next)
}

func TestResumeFrom(t *testing.T) {
	store := checkpoint.NewMemoryStore()
	interruptedRun(t, store, "from", &stubProvider{})

	p := &stubProvider{}
	d := newDriver(t, p)
	result, err := d.ResumeFrom(testContext(), store, "from", 2)
	require.NoError(t, err)

	assert.Equal(t, OutcomeCompleted, result.Outcome)
	assert.Equal(t, 6, result.Rounds)
	assert.Zero(t, p.Calls(StagePlanning))
	assert.Equal(t, 1, p.Calls(StageDrafting), "draft runs again from the plan checkpoint")
}

func TestResumeFrom_DropsLaterCheckpoints(t *testing.T) {
	store := checkpoint.NewMemoryStore()
	d := newDriver(t, &stubProvider{})
	result, err := d.Run(testContext(), memoRequest, WithRunID("rewind"), WithCheckpointing(store))
	require.NoError(t, err)
	require.Equal(t, OutcomeCompleted, result.Outcome)
	require.Equal(t, 6, result.Rounds)

	failing := &stubProvider{draft: func(Context, WorkflowState) (DocumentDraft, error) {
		return DocumentDraft{}, errors.New("model unavailable")
	}}
	rewound, err := newDriver(t, failing).ResumeFrom(testContext(), store, "rewind", 2)
	require.Error(t, err)
	assert.Equal(t, OutcomeFailed, rewound.Outcome)
	assert.Equal(t, 3, rewound.Rounds)

	infos, err := store.List("rewind")
	require.NoError(t, err)
	require.Len(t, infos, 2, "checkpoints after the resume point are gone")
	assert.Equal(t, 2, infos[1].Round)

	p := &stubProvider{}
	again, err := newDriver(t, p).Resume(testContext(), store, "rewind")
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, again.Outcome)
	assert.Equal(t, 6, again.Rounds)
	assert.Equal(t, 1, p.Calls(StageDrafting), "resume continues from round 2, not the abandoned final")
}

func TestResumeFrom_TruncateFailure(t *testing.T) {
	store := &truncateFailStore{MemoryStore: checkpoint.NewMemoryStore()}
	interruptedRun(t, store, "trunc", &stubProvider{})

	_, err := newDriver(t, &stubProvider{}).ResumeFrom(testContext(), store, "trunc", 1)
	var cpErr *CheckpointError
	require.ErrorAs(t, err, &cpErr)
	assert.Equal(t, "truncate", cpErr.Op)
	assert.Equal(t, 1, cpErr.Round)
}

type truncateFailStore struct {
	*checkpoint.MemoryStore
}

func (s *truncateFailStore) DeleteAfter(string, int) error {
	return errors.New("disk full")
}

func TestResume_Errors(t *testing.T) {
	d := newDriver(t, &stubProvider{})

	t.Run("nil context", func(t *testing.T) {
		//nolint:staticcheck // testing nil context handling
		_, err := d.Resume(nil, checkpoint.NewMemoryStore(), "x")
		assert.ErrorIs(t, err, ErrNilContext)
		//nolint:staticcheck // testing nil context handling
		_, err = d.ResumeFrom(nil, checkpoint.NewMemoryStore(), "x", 1)
		assert.ErrorIs(t, err, ErrNilContext)
	})

	t.Run("no checkpoints", func(t *testing.T) {
		_, err := d.Resume(testContext(), checkpoint.NewMemoryStore(), "missing")
		assert.ErrorIs(t, err, ErrNoCheckpoints)
	})

	t.Run("missing round", func(t *testing.T) {
		store := checkpoint.NewMemoryStore()
		interruptedRun(t, store, "rounds", &stubProvider{})
		_, err := d.ResumeFrom(testContext(), store, "rounds", 9)
		assert.ErrorIs(t, err, ErrNoCheckpoints)
	})

	t.Run("closed store", func(t *testing.T) {
		store := checkpoint.NewMemoryStore()
		require.NoError(t, store.Close())
		_, err := d.Resume(testContext(), store, "closed")

		var cpErr *CheckpointError
		require.ErrorAs(t, err, &cpErr)
		assert.Equal(t, "load", cpErr.Op)
		assert.ErrorIs(t, err, checkpoint.ErrStoreClosed)
	})

	t.Run("corrupt checkpoint", func(t *testing.T) {
		store := checkpoint.NewMemoryStore()
		require.NoError(t, store.Save("corrupt", 1, []byte("not json")))
		_, err := d.Resume(testContext(), store, "corrupt")

		var cpErr *CheckpointError
		require.ErrorAs(t, err, &cpErr)
		assert.Equal(t, "unmarshal", cpErr.Op)
	})

	t.Run("version mismatch", func(t *testing.T) {
		store := checkpoint.NewMemoryStore()
		cp := checkpoint.New("old", 1, "start", "planning", 1, []byte(`{}`))
		cp.Version = checkpoint.Version + 1
		data, err := cp.Marshal()
		require.NoError(t, err)
		require.NoError(t, store.Save("old", 1, data))

		_, err = d.Resume(testContext(), store, "old")
		assert.ErrorIs(t, err, ErrCheckpointVersionMismatch)
	})

	t.Run("bad state", func(t *testing.T) {
		store := checkpoint.NewMemoryStore()
		data, err := checkpoint.New("bad", 1, "start", "planning", 1, []byte(`{"stage":"editing"}`)).Marshal()
		require.NoError(t, err)
		require.NoError(t, store.Save("bad", 1, data))

		_, err = d.Resume(testContext(), store, "bad")
		assert.ErrorIs(t, err, ErrDeserializeState)
	})
}
