package docloop

import (
	"slices"
)

const (
	// DefaultMaxIterations is the review/revision pass limit.
	DefaultMaxIterations = 3

	// DefaultMaxRounds is the ceiling on handler invocations per run.
	DefaultMaxRounds = 50
)

// WorkflowState is the shared state of one document run.
//
// The driver owns the state exclusively. Handlers mutate it through a
// pointer; providers and overseers only ever see copies.
type WorkflowState struct {
	Stage           Stage        `json:"stage"`
	Started         bool         `json:"started"`
	Iteration       int          `json:"iteration"`
	MaxIterations   int          `json:"max_iterations"`
	IterationNeeded bool         `json:"iteration_needed"`
	DocumentPrompt  string       `json:"document_prompt,omitempty"`
	DocumentType    DocumentType `json:"document_type,omitempty"`

	Plan     *DocumentPlan       `json:"plan,omitempty"`
	Draft    *DocumentDraft      `json:"draft,omitempty"`
	Feedback *FeedbackCollection `json:"feedback,omitempty"`
	Revision *RevisedDocument    `json:"revision,omitempty"`
	Final    *FinalDocument      `json:"final,omitempty"`

	Error        bool   `json:"error"`
	ErrorMessage string `json:"error_message,omitempty"`
	ErrorStage   Stage  `json:"error_stage"`

	// Trail lists every accepted step in order.
	Trail []Step `json:"trail,omitempty"`
	// ChangeLog accumulates the changes of every submitted revision.
	ChangeLog []string `json:"change_log,omitempty"`
}

// NewState returns a state at the planning stage.
// A non-positive maxIterations selects DefaultMaxIterations.
func NewState(maxIterations int) WorkflowState {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	return WorkflowState{
		Stage:         StagePlanning,
		MaxIterations: maxIterations,
	}
}

// Finalized reports whether Finalize has produced the final document.
func (s *WorkflowState) Finalized() bool {
	return s.Final != nil
}

// Clone returns a deep copy that shares no memory with s.
func (s *WorkflowState) Clone() WorkflowState {
	c := *s
	if s.Plan != nil {
		c.Plan = s.Plan.clone()
	}
	if s.Draft != nil {
		d := *s.Draft
		c.Draft = &d
	}
	if s.Feedback != nil {
		c.Feedback = s.Feedback.clone()
	}
	if s.Revision != nil {
		c.Revision = s.Revision.clone()
	}
	if s.Final != nil {
		c.Final = s.Final.clone()
	}
	c.Trail = slices.Clone(s.Trail)
	c.ChangeLog = slices.Clone(s.ChangeLog)
	return c
}

// Title returns the most recent document title.
func (s *WorkflowState) Title() string {
	switch {
	case s.Final != nil:
		return s.Final.Title
	case s.Revision != nil:
		return s.Revision.Title
	case s.Draft != nil:
		return s.Draft.Title
	}
	return ""
}

// Content returns the most recent document body.
func (s *WorkflowState) Content() string {
	switch {
	case s.Final != nil:
		return s.Final.Content
	case s.Revision != nil:
		return s.Revision.Content
	case s.Draft != nil:
		return s.Draft.Content
	}
	return ""
}

// fail records a handler failure without moving the stage.
func (s *WorkflowState) fail(stage Stage, err error) {
	s.Error = true
	s.ErrorStage = stage
	s.ErrorMessage = err.Error()
}
