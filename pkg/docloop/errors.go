package docloop

import (
	"errors"
	"fmt"

	dlerrors "github.com/randalmurphal/docloop/pkg/docloop/errors"
)

// Sentinel errors for router construction.
var (
	// ErrUnknownStage indicates a stage value outside the workflow.
	ErrUnknownStage = errors.New("unknown stage")

	// ErrUnknownHandler indicates a handler value the driver cannot dispatch.
	ErrUnknownHandler = errors.New("unknown handler")

	// ErrHandlerStageMismatch indicates a rule dispatches a handler from a different stage.
	ErrHandlerStageMismatch = errors.New("handler does not run in rule stage")

	// ErrStageUncovered indicates a non-terminal stage has no rule.
	ErrStageUncovered = errors.New("stage has no routing rule")

	// ErrNoPathToFinal indicates the final stage cannot be reached from planning.
	ErrNoPathToFinal = errors.New("no path to final stage from planning")
)

// Sentinel errors for execution.
var (
	// ErrNilContext indicates Run() was called with a nil context.
	ErrNilContext = errors.New("context cannot be nil")

	// ErrNilProvider indicates New() was called without a provider.
	ErrNilProvider = errors.New("provider cannot be nil")

	// ErrWrongStage indicates a handler was invoked outside its stage.
	ErrWrongStage = errors.New("handler invoked in wrong stage")

	// ErrAlreadyStarted indicates Start was invoked on a started workflow.
	ErrAlreadyStarted = errors.New("workflow already started")

	// ErrRoundLimit indicates the driver hit its round ceiling before the document was final.
	ErrRoundLimit = errors.New("round limit reached")
)

// Sentinel errors for checkpointing and resume.
var (
	// ErrRunIDRequired indicates checkpointing was enabled without a run ID.
	ErrRunIDRequired = errors.New("run ID required for checkpointing")

	// ErrNoCheckpoints indicates no checkpoints exist for the run.
	ErrNoCheckpoints = errors.New("no checkpoints found for run")

	// ErrCheckpointVersionMismatch indicates the checkpoint version is incompatible.
	ErrCheckpointVersionMismatch = errors.New("checkpoint version mismatch")

	// ErrDeserializeState indicates state deserialization failed.
	ErrDeserializeState = errors.New("failed to deserialize state")
)

// ValidationError reports a structured input that failed validation.
type ValidationError struct {
	// Stage is the stage whose handler rejected the input.
	Stage Stage
	// Field is the JSON path of the offending field, empty for whole-input problems.
	Field string
	// Message describes the problem.
	Message string
	// Err is an optional underlying cause such as ErrWrongStage.
	Err error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.Stage, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Stage, e.Field, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Category marks validation failures as bad model output so callers can escalate.
func (e *ValidationError) Category() dlerrors.Category {
	return dlerrors.CategoryInvalidOutput
}

// ProviderError wraps a failure of the reasoning provider.
type ProviderError struct {
	// Handler is the handler whose input was being produced.
	Handler HandlerID
	// Err is the error returned by the provider.
	Err error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider failed for %s: %v", e.Handler, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// StageError wraps a failure with the step that produced it.
type StageError struct {
	// Stage is the stage the workflow was in when the step failed.
	Stage Stage
	// Handler is the handler that was dispatched.
	Handler HandlerID
	// Round is the loop round of the failed step.
	Round int
	// Err is a *ValidationError, *ProviderError or *PanicError.
	Err error
}

// Error implements the error interface.
func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %s (round %d): %v", e.Stage, e.Handler, e.Round, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *StageError) Unwrap() error {
	return e.Err
}

// PanicError captures a panic raised by a provider or handler.
type PanicError struct {
	// Handler is the handler that was running.
	Handler HandlerID
	// Value is the value passed to panic().
	Value any
	// Stack is the full stack trace at the point of panic.
	Stack string
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("%s panicked: %v", e.Handler, e.Value)
}

// CancellationError captures the state when execution was cancelled.
type CancellationError struct {
	// Stage is the stage the workflow was in.
	Stage Stage
	// Handler is the handler that was about to run or was running.
	Handler HandlerID
	// Cause is context.Canceled or context.DeadlineExceeded.
	Cause error
	// WasExecuting is true if cancellation interrupted a provider call.
	WasExecuting bool
}

// Error implements the error interface.
func (e *CancellationError) Error() string {
	if e.WasExecuting {
		return fmt.Sprintf("cancelled during %s at stage %s: %v", e.Handler, e.Stage, e.Cause)
	}
	return fmt.Sprintf("cancelled before %s at stage %s: %v", e.Handler, e.Stage, e.Cause)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *CancellationError) Unwrap() error {
	return e.Cause
}

// RoundLimitError explains an incomplete run.
type RoundLimitError struct {
	// Max is the configured round ceiling.
	Max int
	// Stage is the last stage reached.
	Stage Stage
	// Next is the handler that would have run next.
	Next HandlerID
}

// Error implements the error interface.
func (e *RoundLimitError) Error() string {
	return fmt.Sprintf("round limit (%d) reached at stage %s before %s", e.Max, e.Stage, e.Next)
}

// Unwrap returns ErrRoundLimit for errors.Is support.
func (e *RoundLimitError) Unwrap() error {
	return ErrRoundLimit
}

// CheckpointError wraps errors from checkpoint operations.
type CheckpointError struct {
	// Round is the round being checkpointed or resumed.
	Round int
	// Op is the operation that failed ("save", "load", "marshal", "unmarshal").
	Op string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *CheckpointError) Error() string {
	return fmt.Sprintf("checkpoint %s at round %d: %v", e.Op, e.Round, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *CheckpointError) Unwrap() error {
	return e.Err
}

// OverseerError wraps a failure of the oversight hook.
type OverseerError struct {
	// Handler is the step under review.
	Handler HandlerID
	// Err is the error returned by the overseer.
	Err error
}

// Error implements the error interface.
func (e *OverseerError) Error() string {
	return fmt.Sprintf("overseer failed reviewing %s: %v", e.Handler, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *OverseerError) Unwrap() error {
	return e.Err
}
