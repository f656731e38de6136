// Package checkpoint persists workflow snapshots so interrupted runs can resume.
package checkpoint

import (
	"errors"
	"time"
)

// Store persists checkpoints keyed by run and round.
// Implementations must be safe for concurrent use.
type Store interface {
	// Save stores the checkpoint of a round, overwriting an existing one.
	Save(runID string, round int, data []byte) error

	// Load retrieves the checkpoint of a round.
	// Returns ErrNotFound if it doesn't exist.
	Load(runID string, round int) ([]byte, error)

	// Latest retrieves the checkpoint with the highest round of a run.
	// Returns ErrNotFound if the run has no checkpoints.
	Latest(runID string) ([]byte, error)

	// List returns checkpoint metadata for a run ordered by round.
	// Returns an empty slice (not error) if run has no checkpoints.
	List(runID string) ([]Info, error)

	// Runs returns the IDs of all runs with checkpoints, sorted.
	Runs() ([]string, error)

	// DeleteRun removes all checkpoints for a run.
	// Returns nil if run has no checkpoints.
	DeleteRun(runID string) error

	// DeleteAfter removes the checkpoints of a run with a round above round.
	// Returns nil if there are none.
	DeleteAfter(runID string, round int) error

	// Close releases any resources (connections, files).
	Close() error
}

// Info provides metadata without loading full state.
type Info struct {
	RunID     string
	Round     int
	Timestamp time.Time
	Size      int64
}

// Sentinel errors for checkpoint operations.
var (
	// ErrNotFound indicates a checkpoint doesn't exist.
	ErrNotFound = errors.New("checkpoint not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("checkpoint store closed")
)
