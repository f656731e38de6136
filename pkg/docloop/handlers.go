package docloop

import (
	"errors"
	"fmt"
)

// Stage handlers. Each one validates its input, stores a private copy in the
// state and advances the stage. On rejection the state's error fields are set,
// the stage is left unchanged and a *ValidationError is returned.

// Start begins a workflow for the given request.
func Start(s *WorkflowState, req DocumentRequest) (string, error) {
	if s.Started {
		return reject(s, StagePlanning, &ValidationError{Message: "start may only run once", Err: ErrAlreadyStarted})
	}
	if err := requireStage(s, HandlerStart); err != nil {
		return reject(s, s.Stage, err)
	}
	if err := req.Validate(); err != nil {
		return reject(s, StagePlanning, err)
	}

	s.DocumentPrompt = req.Prompt
	s.DocumentType = req.Type
	s.Stage = StagePlanning
	s.Iteration = 1
	s.Started = true
	if s.MaxIterations <= 0 {
		s.MaxIterations = DefaultMaxIterations
	}
	return fmt.Sprintf("Document creation started for a %s from the provided prompt.", req.Type), nil
}

// SubmitPlan stores the plan and moves to drafting.
func SubmitPlan(s *WorkflowState, plan DocumentPlan) (string, error) {
	if err := requireStage(s, HandlerPlan); err != nil {
		return reject(s, s.Stage, err)
	}
	if !s.Started {
		return reject(s, StagePlanning, &ValidationError{Message: "workflow has not been started", Err: ErrWrongStage})
	}
	if err := plan.Validate(); err != nil {
		return reject(s, StagePlanning, err)
	}

	s.Plan = plan.clone()
	s.Stage = StageDrafting
	return "Document plan created. Moving to drafting.", nil
}

// SubmitDraft stores the draft and moves to review.
func SubmitDraft(s *WorkflowState, draft DocumentDraft) (string, error) {
	if err := requireStage(s, HandlerDraft); err != nil {
		return reject(s, s.Stage, err)
	}
	if err := draft.Validate(); err != nil {
		return reject(s, StageDrafting, err)
	}

	s.Draft = &draft
	s.Stage = StageReview
	return "Document draft submitted. Moving to review.", nil
}

// SubmitFeedback stores the review and moves to revision.
func SubmitFeedback(s *WorkflowState, feedback FeedbackCollection) (string, error) {
	if err := requireStage(s, HandlerFeedback); err != nil {
		return reject(s, s.Stage, err)
	}
	if err := feedback.Validate(); err != nil {
		return reject(s, StageReview, err)
	}

	s.Feedback = feedback.clone()
	s.IterationNeeded = feedback.IterationNeeded
	s.Stage = StageRevision
	return "Feedback submitted. Moving to revision.", nil
}

// SubmitRevision stores the revision. It loops back to review while the last
// feedback asked for another pass and the iteration budget allows one;
// otherwise it moves to the final stage.
func SubmitRevision(s *WorkflowState, revision RevisedDocument) (string, error) {
	if err := requireStage(s, HandlerRevision); err != nil {
		return reject(s, s.Stage, err)
	}
	if err := revision.Validate(); err != nil {
		return reject(s, StageRevision, err)
	}

	s.Revision = revision.clone()
	s.ChangeLog = append(s.ChangeLog, revision.ChangesMade...)

	if s.IterationNeeded && s.Iteration < s.MaxIterations {
		s.Iteration++
		s.Draft = &DocumentDraft{
			Title:        revision.Title,
			Content:      revision.Content,
			DocumentType: revision.DocumentType,
		}
		s.Stage = StageReview
		return fmt.Sprintf("Document revised. Starting iteration %d with another review.", s.Iteration), nil
	}

	s.Stage = StageFinal
	return "Revisions complete. Moving to finalization.", nil
}

// Finalize stores the final document. The workflow is complete afterwards.
func Finalize(s *WorkflowState, final FinalDocument) (string, error) {
	if err := requireStage(s, HandlerFinalize); err != nil {
		return reject(s, s.Stage, err)
	}
	if err := final.Validate(); err != nil {
		return reject(s, StageFinal, err)
	}

	s.Final = final.clone()
	s.IterationNeeded = false
	return "Document finalized. Feedback loop complete.", nil
}

func requireStage(s *WorkflowState, h HandlerID) error {
	if s.Stage == h.Stage() {
		return nil
	}
	return &ValidationError{
		Message: fmt.Sprintf("%s requires stage %s, state is at %s", h, h.Stage(), s.Stage),
		Err:     ErrWrongStage,
	}
}

// reject stamps the stage on the validation error and records it in the state.
func reject(s *WorkflowState, stage Stage, err error) (string, error) {
	var ve *ValidationError
	if !errors.As(err, &ve) {
		ve = &ValidationError{Message: err.Error(), Err: err}
	}
	ve.Stage = stage
	s.fail(stage, ve)
	return "", ve
}
