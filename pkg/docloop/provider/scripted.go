package provider

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/randalmurphal/docloop/pkg/docloop"
)

// DefaultReviewPasses is the number of iterations after which synthesized
// feedback stops asking for another pass.
const DefaultReviewPasses = 2

// Scripted implements docloop.Provider with queued records.
//
// Each stage has its own queue. Records are served in order and the last one
// repeats. A stage without queued records gets one synthesized from the
// state. Queued errors are returned before any record of that stage.
// Scripted is safe for concurrent use.
type Scripted struct {
	mu sync.Mutex

	plans     []docloop.DocumentPlan
	drafts    []docloop.DocumentDraft
	feedback  []docloop.FeedbackCollection
	revisions []docloop.RevisedDocument
	finals    []docloop.FinalDocument

	errs   map[docloop.Stage][]error
	calls  map[docloop.Stage]int
	served map[docloop.Stage]int // records handed out, indexes the queue
	passes int
}

var _ docloop.Provider = (*Scripted)(nil)

// ScriptedOption configures Scripted.
type ScriptedOption func(*Scripted)

// WithPlans queues plans.
func WithPlans(plans ...docloop.DocumentPlan) ScriptedOption {
	return func(p *Scripted) { p.plans = append(p.plans, plans...) }
}

// WithDrafts queues drafts.
func WithDrafts(drafts ...docloop.DocumentDraft) ScriptedOption {
	return func(p *Scripted) { p.drafts = append(p.drafts, drafts...) }
}

// WithFeedback queues review results.
func WithFeedback(feedback ...docloop.FeedbackCollection) ScriptedOption {
	return func(p *Scripted) { p.feedback = append(p.feedback, feedback...) }
}

// WithRevisions queues revisions.
func WithRevisions(revisions ...docloop.RevisedDocument) ScriptedOption {
	return func(p *Scripted) { p.revisions = append(p.revisions, revisions...) }
}

// WithFinals queues final documents.
func WithFinals(finals ...docloop.FinalDocument) ScriptedOption {
	return func(p *Scripted) { p.finals = append(p.finals, finals...) }
}

// WithStageError queues errors returned by the next calls for stage.
func WithStageError(stage docloop.Stage, errs ...error) ScriptedOption {
	return func(p *Scripted) { p.errs[stage] = append(p.errs[stage], errs...) }
}

// WithReviewPasses sets how many iterations synthesized feedback asks for.
// Feedback requests another pass while the iteration is below n.
func WithReviewPasses(n int) ScriptedOption {
	return func(p *Scripted) { p.passes = n }
}

// NewScripted creates a Scripted provider.
func NewScripted(opts ...ScriptedOption) *Scripted {
	p := &Scripted{
		errs:   make(map[docloop.Stage][]error),
		calls:  make(map[docloop.Stage]int),
		served: make(map[docloop.Stage]int),
		passes: DefaultReviewPasses,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Calls returns how often the provider was asked for the record of stage.
func (p *Scripted) Calls(stage docloop.Stage) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[stage]
}

// Plan implements docloop.Provider.
func (p *Scripted) Plan(ctx docloop.Context, s docloop.WorkflowState) (docloop.DocumentPlan, error) {
	return serve(ctx, p, docloop.StagePlanning, p.plans, func() docloop.DocumentPlan { return synthPlan(s) })
}

// Draft implements docloop.Provider.
func (p *Scripted) Draft(ctx docloop.Context, s docloop.WorkflowState) (docloop.DocumentDraft, error) {
	return serve(ctx, p, docloop.StageDrafting, p.drafts, func() docloop.DocumentDraft { return synthDraft(s) })
}

// Review implements docloop.Provider.
func (p *Scripted) Review(ctx docloop.Context, s docloop.WorkflowState) (docloop.FeedbackCollection, error) {
	return serve(ctx, p, docloop.StageReview, p.feedback, func() docloop.FeedbackCollection { return synthFeedback(s, p.passes) })
}

// Revise implements docloop.Provider.
func (p *Scripted) Revise(ctx docloop.Context, s docloop.WorkflowState) (docloop.RevisedDocument, error) {
	return serve(ctx, p, docloop.StageRevision, p.revisions, func() docloop.RevisedDocument { return synthRevision(s) })
}

// Finalize implements docloop.Provider.
func (p *Scripted) Finalize(ctx docloop.Context, s docloop.WorkflowState) (docloop.FinalDocument, error) {
	return serve(ctx, p, docloop.StageFinal, p.finals, func() docloop.FinalDocument { return synthFinal(s) })
}

func serve[T any](ctx docloop.Context, p *Scripted, stage docloop.Stage, queue []T, synth func() T) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	p.mu.Lock()
	p.calls[stage]++
	if errs := p.errs[stage]; len(errs) > 0 {
		p.errs[stage] = errs[1:]
		if errs[0] != nil {
			p.mu.Unlock()
			return zero, errs[0]
		}
	}
	n := p.served[stage]
	p.served[stage]++
	p.mu.Unlock()

	if len(queue) == 0 {
		return synth(), nil
	}
	return queue[min(n, len(queue)-1)], nil
}

func synthPlan(s docloop.WorkflowState) docloop.DocumentPlan {
	return docloop.DocumentPlan{
		Outline:        []string{"Introduction", "Key points", "Next steps"},
		MainArguments:  []string{strings.TrimSpace(s.DocumentPrompt)},
		TargetAudience: audienceFor(s.DocumentType),
		Tone:           "clear and direct",
		DocumentType:   s.DocumentType,
	}
}

func synthDraft(s docloop.WorkflowState) docloop.DocumentDraft {
	title := titleFromPrompt(s.DocumentPrompt)
	var outline []string
	if s.Plan != nil {
		outline = s.Plan.Outline
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", title)
	for _, section := range outline {
		fmt.Fprintf(&b, "\n## %s\n\n%s\n", section, strings.TrimSpace(s.DocumentPrompt))
	}
	return docloop.DocumentDraft{
		Title:        title,
		Content:      b.String(),
		DocumentType: s.DocumentType,
	}
}

func synthFeedback(s docloop.WorkflowState, passes int) docloop.FeedbackCollection {
	section := "Introduction"
	if s.Plan != nil && len(s.Plan.Outline) > 0 {
		section = s.Plan.Outline[max(min(s.Iteration, len(s.Plan.Outline))-1, 0)]
	}
	more := s.Iteration < passes

	severity, assessment := docloop.SeverityMinor, "The draft is ready for finalization."
	if more {
		severity, assessment = docloop.SeverityModerate, "The draft needs another pass."
	}
	return docloop.FeedbackCollection{
		Items: []docloop.FeedbackItem{{
			Section:        section,
			Feedback:       fmt.Sprintf("Review %d: the %s section can be more specific.", s.Iteration, strings.ToLower(section)),
			Severity:       severity,
			Recommendation: "Add a concrete example.",
		}},
		OverallAssessment: assessment,
		PriorityIssues:    []string{fmt.Sprintf("Strengthen %s", strings.ToLower(section))},
		IterationNeeded:   more,
	}
}

func synthRevision(s docloop.WorkflowState) docloop.RevisedDocument {
	var title, content string
	if s.Draft != nil {
		title, content = s.Draft.Title, s.Draft.Content
	}
	var changes []string
	if s.Feedback != nil {
		for _, item := range s.Feedback.Items {
			changes = append(changes, fmt.Sprintf("Iteration %d: %s", s.Iteration, item.Recommendation))
		}
	}
	return docloop.RevisedDocument{
		Title:        title,
		Content:      strings.TrimRight(content, "\n") + fmt.Sprintf("\n\nFor example, revision %d adds a concrete case.\n", s.Iteration),
		DocumentType: s.DocumentType,
		ChangesMade:  changes,
	}
}

func synthFinal(s docloop.WorkflowState) docloop.FinalDocument {
	return docloop.FinalDocument{
		Title:           s.Title(),
		Content:         s.Content(),
		DocumentType:    s.DocumentType,
		RevisionHistory: slices.Clone(s.ChangeLog),
	}
}

func audienceFor(t docloop.DocumentType) string {
	switch t {
	case docloop.DocumentTypeEmail:
		return "colleagues"
	case docloop.DocumentTypeReport:
		return "stakeholders"
	case docloop.DocumentTypeArticle:
		return "general readers"
	case docloop.DocumentTypeEssay:
		return "academic readers"
	}
	return "readers"
}

// titleFromPrompt uses the first words of the prompt, capitalised.
func titleFromPrompt(prompt string) string {
	words := strings.Fields(prompt)
	if len(words) == 0 {
		return "Untitled"
	}
	words = words[:min(len(words), 8)]
	title := strings.TrimRight(strings.Join(words, " "), ".,;:!?")
	if title == "" {
		return "Untitled"
	}
	r, size := utf8.DecodeRuneInString(title)
	return string(unicode.ToUpper(r)) + title[size:]
}
