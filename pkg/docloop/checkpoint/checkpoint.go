package checkpoint

import (
	"encoding/json"
	"time"
)

// Version is the current checkpoint format version.
// Increment when making breaking changes to checkpoint structure.
const Version = 1

// Checkpoint is the persisted snapshot taken after an accepted step.
type Checkpoint struct {
	Version   int       `json:"version"`
	RunID     string    `json:"run_id"`
	Round     int       `json:"round"`
	Timestamp time.Time `json:"timestamp"`

	// Handler is the step that was just accepted.
	Handler string `json:"handler"`
	// Stage and Iteration describe the state after the step.
	Stage     string `json:"stage"`
	Iteration int    `json:"iteration"`

	State json.RawMessage `json:"state"`
}

// New creates a checkpoint for the given round. State must already be JSON.
func New(runID string, round int, handler, stage string, iteration int, state []byte) *Checkpoint {
	return &Checkpoint{
		Version:   Version,
		RunID:     runID,
		Round:     round,
		Timestamp: time.Now().UTC(),
		Handler:   handler,
		Stage:     stage,
		Iteration: iteration,
		State:     state,
	}
}

// Marshal serializes a checkpoint to JSON.
func (c *Checkpoint) Marshal() ([]byte, error) {
	return json.Marshal(c)
}

// Unmarshal deserializes a checkpoint from JSON.
func Unmarshal(data []byte) (*Checkpoint, error) {
	var c Checkpoint
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	return &c, nil
}
