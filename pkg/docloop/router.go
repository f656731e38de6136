package docloop

// Predicate inspects the state to decide whether a rule applies.
// Predicates must not modify the state.
type Predicate func(s *WorkflowState) bool

// Rule maps a stage, optionally narrowed by a predicate, to a handler.
type Rule struct {
	// Name identifies the rule in logs and validation errors.
	Name string
	// From is the stage the rule applies to.
	From Stage
	// When narrows the rule; nil always matches.
	When Predicate
	// Handler is dispatched when the rule matches.
	Handler HandlerID
}

// Router selects the next handler from an ordered rule table.
// A Router is immutable once built and safe for concurrent use.
type Router struct {
	rules   []Rule
	byStage map[Stage][]Rule
}

// Common predicates.
var (
	// IsStarted matches once Start has run.
	IsStarted Predicate = func(s *WorkflowState) bool { return s.Started }

	// NotStarted matches before Start has run.
	NotStarted Predicate = func(s *WorkflowState) bool { return !s.Started }

	// NotFinalized matches until Finalize has stored the final document.
	NotFinalized Predicate = func(s *WorkflowState) bool { return !s.Finalized() }
)

// DefaultRules returns the standard rule table:
// planning before start runs Start, planning after start runs SubmitPlan,
// drafting runs SubmitDraft, review runs SubmitFeedback, revision runs
// SubmitRevision, and final runs Finalize until the document is finalized.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "start", From: StagePlanning, When: NotStarted, Handler: HandlerStart},
		{Name: "plan", From: StagePlanning, When: IsStarted, Handler: HandlerPlan},
		{Name: "draft", From: StageDrafting, Handler: HandlerDraft},
		{Name: "review", From: StageReview, Handler: HandlerFeedback},
		{Name: "revise", From: StageRevision, Handler: HandlerRevision},
		{Name: "finalize", From: StageFinal, When: NotFinalized, Handler: HandlerFinalize},
	}
}

// DefaultRouter returns a router over DefaultRules.
func DefaultRouter() *Router {
	r, err := NewRouter(DefaultRules()...)
	if err != nil {
		panic("docloop: default rules are invalid: " + err.Error())
	}
	return r
}

// Next returns the handler of the first rule matching the state.
// It returns HandlerNone and false when no rule matches, which hands
// control back to the caller.
func (r *Router) Next(s *WorkflowState) (HandlerID, bool) {
	for _, rule := range r.byStage[s.Stage] {
		if rule.When == nil || rule.When(s) {
			return rule.Handler, true
		}
	}
	return HandlerNone, false
}

// Rules returns a copy of the rule table in evaluation order.
func (r *Router) Rules() []Rule {
	out := make([]Rule, len(r.rules))
	copy(out, r.rules)
	return out
}
