package docloop

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/randalmurphal/docloop/pkg/docloop/checkpoint"
)

// Resume continues a run from its latest checkpoint.
//
// The round counter continues from the checkpoint, so the round ceiling
// covers the run as a whole. Checkpointing stays enabled on the same store.
//
// Example:
//
//	store, _ := checkpoint.NewSQLiteStore("./docloop.db")
//	result, err := driver.Resume(ctx, store, "memo-42")
func (d *Driver) Resume(ctx Context, store checkpoint.Store, runID string, opts ...RunOption) (*Result, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	data, err := store.Latest(runID)
	if err != nil {
		return nil, loadError(runID, 0, err)
	}
	return d.resume(ctx, store, runID, data, false, opts)
}

// ResumeFrom continues a run from the checkpoint of a specific round.
// Checkpoints of later rounds are deleted before the loop continues, so a
// later Resume never returns to the abandoned steps.
func (d *Driver) ResumeFrom(ctx Context, store checkpoint.Store, runID string, round int, opts ...RunOption) (*Result, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	data, err := store.Load(runID, round)
	if err != nil {
		return nil, loadError(runID, round, err)
	}
	return d.resume(ctx, store, runID, data, true, opts)
}

func (d *Driver) resume(ctx Context, store checkpoint.Store, runID string, data []byte, truncate bool, opts []RunOption) (*Result, error) {
	cp, err := checkpoint.Unmarshal(data)
	if err != nil {
		return nil, &CheckpointError{Op: "unmarshal", Err: err}
	}
	if cp.Version != checkpoint.Version {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrCheckpointVersionMismatch, cp.Version, checkpoint.Version)
	}

	var state WorkflowState
	if err := json.Unmarshal(cp.State, &state); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeserializeState, err)
	}
	if truncate {
		if err := store.DeleteAfter(runID, cp.Round); err != nil {
			return nil, &CheckpointError{Round: cp.Round, Op: "truncate", Err: err}
		}
	}

	cfg := defaultRunConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.runID = runID
	cfg.checkpointStore = store

	req := DocumentRequest{Prompt: state.DocumentPrompt, Type: state.DocumentType}
	return d.execute(ctx, &state, req, cp.Round, &cfg)
}

func loadError(runID string, round int, err error) error {
	if errors.Is(err, checkpoint.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrNoCheckpoints, runID)
	}
	return &CheckpointError{Round: round, Op: "load", Err: err}
}
