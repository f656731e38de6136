package docloop

import (
	"fmt"
)

// Stage is a step of the document workflow.
type Stage int

const (
	StagePlanning Stage = iota
	StageDrafting
	StageReview
	StageRevision
	StageFinal
)

var stageNames = [...]string{
	StagePlanning: "planning",
	StageDrafting: "drafting",
	StageReview:   "review",
	StageRevision: "revision",
	StageFinal:    "final",
}

// Stages lists every stage in workflow order.
func Stages() []Stage {
	return []Stage{StagePlanning, StageDrafting, StageReview, StageRevision, StageFinal}
}

// String returns the lowercase stage name.
func (s Stage) String() string {
	if !s.Valid() {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

// Valid reports whether s is one of the known stages.
func (s Stage) Valid() bool {
	return s >= StagePlanning && s <= StageFinal
}

// Terminal reports whether no further transitions leave s.
func (s Stage) Terminal() bool {
	return s == StageFinal
}

// MarshalText implements encoding.TextMarshaler.
func (s Stage) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownStage, int(s))
	}
	return []byte(stageNames[s]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Stage) UnmarshalText(text []byte) error {
	parsed, err := ParseStage(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseStage converts a stage name back into a Stage.
func ParseStage(name string) (Stage, error) {
	for i, n := range stageNames {
		if n == name {
			return Stage(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownStage, name)
}

// HandlerID names one of the stage handlers the router can dispatch.
type HandlerID int

const (
	// HandlerNone means no rule matched; control returns to the caller.
	HandlerNone HandlerID = iota
	HandlerStart
	HandlerPlan
	HandlerDraft
	HandlerFeedback
	HandlerRevision
	HandlerFinalize
)

var handlerNames = [...]string{
	HandlerNone:     "none",
	HandlerStart:    "start",
	HandlerPlan:     "submit_plan",
	HandlerDraft:    "submit_draft",
	HandlerFeedback: "submit_feedback",
	HandlerRevision: "submit_revision",
	HandlerFinalize: "finalize",
}

// handlerStages maps each handler to the only stage it may run in.
var handlerStages = map[HandlerID]Stage{
	HandlerStart:    StagePlanning,
	HandlerPlan:     StagePlanning,
	HandlerDraft:    StageDrafting,
	HandlerFeedback: StageReview,
	HandlerRevision: StageRevision,
	HandlerFinalize: StageFinal,
}

// handlerTargets lists the stages a handler can leave the state in.
var handlerTargets = map[HandlerID][]Stage{
	HandlerStart:    {StagePlanning},
	HandlerPlan:     {StageDrafting},
	HandlerDraft:    {StageReview},
	HandlerFeedback: {StageRevision},
	HandlerRevision: {StageReview, StageFinal},
	HandlerFinalize: {StageFinal},
}

// String returns the handler name used in logs, metrics and checkpoints.
func (h HandlerID) String() string {
	if h < HandlerNone || int(h) >= len(handlerNames) {
		return fmt.Sprintf("handler(%d)", int(h))
	}
	return handlerNames[h]
}

// Valid reports whether h is a dispatchable handler.
func (h HandlerID) Valid() bool {
	_, ok := handlerStages[h]
	return ok
}

// Stage returns the stage the handler runs in.
func (h HandlerID) Stage() Stage {
	return handlerStages[h]
}

// MarshalText implements encoding.TextMarshaler.
func (h HandlerID) MarshalText() ([]byte, error) {
	if h < HandlerNone || int(h) >= len(handlerNames) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownHandler, int(h))
	}
	return []byte(handlerNames[h]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *HandlerID) UnmarshalText(text []byte) error {
	for i, n := range handlerNames {
		if n == string(text) {
			*h = HandlerID(i)
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownHandler, string(text))
}
