package docloop

// Provider produces the structured input of each stage handler.
//
// Every method receives a copy of the current state; changes made to it are
// discarded. Implementations are expected to honour ctx cancellation.
type Provider interface {
	// Plan produces the document plan from the prompt and document type.
	Plan(ctx Context, s WorkflowState) (DocumentPlan, error)

	// Draft writes the first version of the document from the plan.
	Draft(ctx Context, s WorkflowState) (DocumentDraft, error)

	// Review critiques the current draft and decides whether another pass is needed.
	Review(ctx Context, s WorkflowState) (FeedbackCollection, error)

	// Revise rewrites the current draft to address the latest feedback.
	Revise(ctx Context, s WorkflowState) (RevisedDocument, error)

	// Finalize polishes the last revision into the final document.
	Finalize(ctx Context, s WorkflowState) (FinalDocument, error)
}
