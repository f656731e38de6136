package provider

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/randalmurphal/docloop/pkg/docloop"
)

const baseSystemPrompt = `You are part of a document writing team that plans, drafts, reviews and revises a document until it is ready.
Always answer with one JSON object matching the requested schema. Do not wrap it in Markdown fences and do not add commentary.
Document bodies use Markdown.`

// stageInstructions is the role and task of each stage.
var stageInstructions = map[docloop.Stage]string{
	docloop.StagePlanning: `Role: planner.
Create a plan for the requested document: an ordered outline of section headings, the main arguments it must make, the target audience and the tone.
Set document_type to the requested document type.`,

	docloop.StageDrafting: `Role: writer.
Write the complete first draft following the plan. Cover every outline section and main argument.
Give the document a title and keep document_type unchanged.`,

	docloop.StageReview: `Role: reviewer.
Critique the current draft section by section. Grade each item as minor, moderate, major or critical and recommend a fix.
List the priority issues and give an overall assessment.
Set iteration_needed to true only if the draft needs another revision and review pass after the next revision.`,

	docloop.StageRevision: `Role: editor.
Rewrite the current draft to address the feedback, starting with the priority issues.
Return the full revised document and list the changes you made.`,

	docloop.StageFinal: `Role: finalizer.
Polish the latest revision into the final document. Fix wording and formatting only.
Summarise how the document evolved in revision_history.`,
}

// systemPrompt returns the system prompt of stage.
func systemPrompt(stage docloop.Stage) string {
	return baseSystemPrompt + "\n\n" + stageInstructions[stage]
}

// stageContext is the slice of the workflow state a stage works from.
type stageContext struct {
	Prompt        string                      `json:"prompt"`
	DocumentType  docloop.DocumentType        `json:"document_type"`
	Iteration     int                         `json:"iteration"`
	MaxIterations int                         `json:"max_iterations"`
	Plan          *docloop.DocumentPlan       `json:"plan,omitempty"`
	Draft         *docloop.DocumentDraft      `json:"current_draft,omitempty"`
	Feedback      *docloop.FeedbackCollection `json:"feedback,omitempty"`
	Revision      *docloop.RevisedDocument    `json:"latest_revision,omitempty"`
	ChangeLog     []string                    `json:"changes_so_far,omitempty"`
}

// userPrompt renders the request for stage from the state.
func userPrompt(stage docloop.Stage, s docloop.WorkflowState) (string, error) {
	sc := stageContext{
		Prompt:        s.DocumentPrompt,
		DocumentType:  s.DocumentType,
		Iteration:     s.Iteration,
		MaxIterations: s.MaxIterations,
	}
	switch stage {
	case docloop.StageDrafting:
		sc.Plan = s.Plan
	case docloop.StageReview:
		sc.Plan = s.Plan
		sc.Draft = s.Draft
	case docloop.StageRevision:
		sc.Plan = s.Plan
		sc.Draft = s.Draft
		sc.Feedback = s.Feedback
	case docloop.StageFinal:
		sc.Revision = s.Revision
		if sc.Revision == nil {
			sc.Draft = s.Draft
		}
		sc.ChangeLog = s.ChangeLog
	}

	data, err := json.MarshalIndent(sc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode %s context: %w", stage, err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Stage: %s (iteration %d of at most %d)\n\n", stage, s.Iteration, s.MaxIterations)
	b.WriteString("Workflow state:\n")
	b.Write(data)
	return b.String(), nil
}
