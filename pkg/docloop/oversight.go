package docloop

import (
	"fmt"
	"time"
)

// Decision is an overseer's verdict on a completed step.
type Decision int

const (
	// DecisionContinue accepts the step.
	DecisionContinue Decision = iota
	// DecisionRedo discards the step and runs the same handler again.
	DecisionRedo
	// DecisionStop accepts the step and ends the run.
	DecisionStop
)

// String returns the decision name.
func (d Decision) String() string {
	switch d {
	case DecisionContinue:
		return "continue"
	case DecisionRedo:
		return "redo"
	case DecisionStop:
		return "stop"
	}
	return fmt.Sprintf("decision(%d)", int(d))
}

// Step describes one handler invocation.
type Step struct {
	Round     int           `json:"round"`
	Iteration int           `json:"iteration"`
	Handler   HandlerID     `json:"handler"`
	From      Stage         `json:"from"`
	To        Stage         `json:"to"`
	Message   string        `json:"message"`
	Duration  time.Duration `json:"duration"`
}

// Overseer reviews each step before the driver moves on.
type Overseer interface {
	Review(ctx Context, step Step) (Decision, error)
}

// OverseerFunc adapts a function to the Overseer interface.
type OverseerFunc func(ctx Context, step Step) (Decision, error)

// Review calls f.
func (f OverseerFunc) Review(ctx Context, step Step) (Decision, error) {
	return f(ctx, step)
}

// AutoContinue accepts every step.
var AutoContinue Overseer = OverseerFunc(func(Context, Step) (Decision, error) {
	return DecisionContinue, nil
})
