package docloop

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// Test helpers shared across the package tests.

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testContext() Context {
	return NewContext(context.Background(), WithLogger(discardLogger()))
}

var memoRequest = DocumentRequest{
	Prompt: "Write a memo asking the team to adopt code review checklists.",
	Type:   DocumentTypeEmail,
}

func samplePlan() DocumentPlan {
	return DocumentPlan{
		Outline:        []string{"Why", "What changes", "Next steps"},
		MainArguments:  []string{"Checklists catch recurring mistakes"},
		TargetAudience: "engineering team",
		Tone:           "friendly",
		DocumentType:   DocumentTypeEmail,
	}
}

func sampleDraft() DocumentDraft {
	return DocumentDraft{
		Title:        "Code review checklists",
		Content:      "# Code review checklists\n\nLet's adopt them.",
		DocumentType: DocumentTypeEmail,
	}
}

func sampleFeedback(iterationNeeded bool) FeedbackCollection {
	return FeedbackCollection{
		Items: []FeedbackItem{{
			Section:        "Why",
			Feedback:       "Give an example",
			Severity:       SeverityModerate,
			Recommendation: "Mention last month's outage",
		}},
		OverallAssessment: "Solid start",
		PriorityIssues:    []string{"Motivation"},
		IterationNeeded:   iterationNeeded,
	}
}

func sampleRevision(iteration int) RevisedDocument {
	return RevisedDocument{
		Title:        "Code review checklists",
		Content:      "# Code review checklists\n\nLet's adopt them, as last month's outage showed.",
		DocumentType: DocumentTypeEmail,
		ChangesMade:  []string{fmt.Sprintf("Iteration %d: added outage example", iteration)},
	}
}

func sampleFinal(s WorkflowState) FinalDocument {
	return FinalDocument{
		Title:           s.Title(),
		Content:         s.Content(),
		DocumentType:    s.DocumentType,
		RevisionHistory: s.ChangeLog,
	}
}

// stubProvider serves valid records unless a stage function is overridden.
// It counts calls per stage and is safe for concurrent use.
type stubProvider struct {
	plan     func(Context, WorkflowState) (DocumentPlan, error)
	draft    func(Context, WorkflowState) (DocumentDraft, error)
	review   func(Context, WorkflowState) (FeedbackCollection, error)
	revise   func(Context, WorkflowState) (RevisedDocument, error)
	finalize func(Context, WorkflowState) (FinalDocument, error)

	mu    sync.Mutex
	calls map[Stage]int
}

// reviewsNeeded returns a review function asking for another pass while
// the iteration is below n.
func reviewsNeeded(n int) func(Context, WorkflowState) (FeedbackCollection, error) {
	return func(_ Context, s WorkflowState) (FeedbackCollection, error) {
		return sampleFeedback(s.Iteration < n), nil
	}
}

func (p *stubProvider) count(stage Stage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.calls == nil {
		p.calls = make(map[Stage]int)
	}
	p.calls[stage]++
}

func (p *stubProvider) Calls(stage Stage) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[stage]
}

func (p *stubProvider) Plan(ctx Context, s WorkflowState) (DocumentPlan, error) {
	p.count(StagePlanning)
	if p.plan != nil {
		return p.plan(ctx, s)
	}
	return samplePlan(), nil
}

func (p *stubProvider) Draft(ctx Context, s WorkflowState) (DocumentDraft, error) {
	p.count(StageDrafting)
	if p.draft != nil {
		return p.draft(ctx, s)
	}
	return sampleDraft(), nil
}

func (p *stubProvider) Review(ctx Context, s WorkflowState) (FeedbackCollection, error) {
	p.count(StageReview)
	if p.review != nil {
		return p.review(ctx, s)
	}
	return sampleFeedback(false), nil
}

func (p *stubProvider) Revise(ctx Context, s WorkflowState) (RevisedDocument, error) {
	p.count(StageRevision)
	if p.revise != nil {
		return p.revise(ctx, s)
	}
	return sampleRevision(s.Iteration), nil
}

func (p *stubProvider) Finalize(ctx Context, s WorkflowState) (FinalDocument, error) {
	p.count(StageFinal)
	if p.finalize != nil {
		return p.finalize(ctx, s)
	}
	return sampleFinal(s), nil
}

// startedAt returns a started state positioned at stage.
func startedAt(stage Stage) *WorkflowState {
	s := NewState(0)
	s.Started = true
	s.Iteration = 1
	s.DocumentPrompt = memoRequest.Prompt
	s.DocumentType = memoRequest.Type
	s.Stage = stage
	return &s
}
