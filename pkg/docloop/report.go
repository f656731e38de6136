package docloop

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	texttemplate "text/template"

	"github.com/yuin/goldmark"
)

// ChecklistItem is one line of the per-iteration progress checklist.
type ChecklistItem struct {
	Label string
	Done  bool
}

// IterationReport lists the stages covered by one iteration.
type IterationReport struct {
	Number int
	Items  []ChecklistItem
}

// Report summarises a run for humans.
type Report struct {
	RunID         string
	Outcome       Outcome
	DocumentType  DocumentType
	Title         string
	WordCount     int
	Iterations    int
	MaxIterations int
	Rounds        int

	Passes    []IterationReport
	Finalized bool

	RevisionHistory []string
	Content         string

	// Problem explains a run that did not complete.
	Problem string
}

// Report builds the summary of the run.
func (r *Result) Report() *Report {
	s := &r.State
	rep := &Report{
		RunID:         r.RunID,
		Outcome:       r.Outcome,
		DocumentType:  s.DocumentType,
		Title:         s.Title(),
		Iterations:    s.Iteration,
		MaxIterations: s.MaxIterations,
		Rounds:        r.Rounds,
		Finalized:     s.Finalized(),
		Content:       s.Content(),
	}
	if s.Final != nil {
		rep.WordCount = s.Final.WordCount()
		rep.RevisionHistory = s.Final.RevisionHistory
	} else {
		rep.WordCount = FinalDocument{Content: rep.Content}.WordCount()
	}
	if len(rep.RevisionHistory) == 0 {
		rep.RevisionHistory = s.ChangeLog
	}

	for i := 1; i <= s.Iteration; i++ {
		pass := IterationReport{Number: i}
		if i == 1 {
			pass.Items = append(pass.Items,
				ChecklistItem{Label: "Planning", Done: hasStep(s, HandlerPlan, 1)},
				ChecklistItem{Label: "Drafting", Done: hasStep(s, HandlerDraft, 1)},
			)
		}
		pass.Items = append(pass.Items,
			ChecklistItem{Label: "Review", Done: hasStep(s, HandlerFeedback, i)},
			ChecklistItem{Label: "Revision", Done: hasStep(s, HandlerRevision, i)},
		)
		rep.Passes = append(rep.Passes, pass)
	}

	switch {
	case s.Error:
		rep.Problem = fmt.Sprintf("error at stage %s: %s", s.ErrorStage, s.ErrorMessage)
	case r.Err != nil:
		rep.Problem = r.Err.Error()
	case r.Reason != "":
		rep.Problem = r.Reason
	}
	return rep
}

func hasStep(s *WorkflowState, h HandlerID, iteration int) bool {
	for _, step := range s.Trail {
		if step.Handler == h && step.Iteration == iteration {
			return true
		}
	}
	return false
}

var textReport = texttemplate.Must(texttemplate.New("report").Parse(`Document Feedback Loop Summary
==============================
Run:           {{.RunID}}
Outcome:       {{.Outcome}}
Document type: {{.DocumentType}}
Title:         {{.Title}}
Word count:    {{.WordCount}}
Iterations:    {{.Iterations}} of {{.MaxIterations}}
Rounds:        {{.Rounds}}

Progress
{{- range .Passes}}
  Iteration {{.Number}}
{{- range .Items}}
    [{{if .Done}}x{{else}} {{end}}] {{.Label}}
{{- end}}
{{- end}}
  [{{if .Finalized}}x{{else}} {{end}}] Finalization
{{- if .Problem}}

Problem: {{.Problem}}
{{- end}}
{{- if .RevisionHistory}}

Revision history
{{- range .RevisionHistory}}
  - {{.}}
{{- end}}
{{- end}}
{{- if .Content}}

{{.Content}}
{{- end}}
`))

// WriteText renders the report as plain text.
func (rep *Report) WriteText(w io.Writer) error {
	return textReport.Execute(w, rep)
}

var htmlReport = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body>
<header>
<p>{{.DocumentType}} &middot; {{.WordCount}} words &middot; {{.Iterations}} iteration(s) &middot; {{.Outcome}}</p>
{{- if .Problem}}
<p class="problem">{{.Problem}}</p>
{{- end}}
</header>
<article>
{{.Body}}
</article>
{{- if .RevisionHistory}}
<section>
<h2>Revision history</h2>
<ul>
{{- range .RevisionHistory}}
<li>{{.}}</li>
{{- end}}
</ul>
</section>
{{- end}}
</body>
</html>
`))

// WriteHTML renders the document content from Markdown into a standalone HTML page.
func (rep *Report) WriteHTML(w io.Writer) error {
	var body bytes.Buffer
	if err := goldmark.Convert([]byte(rep.Content), &body); err != nil {
		return fmt.Errorf("render markdown: %w", err)
	}
	return htmlReport.Execute(w, struct {
		*Report
		Body template.HTML
	}{rep, template.HTML(body.String())})
}
