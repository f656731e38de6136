package docloop

import (
	"fmt"
	"slices"
	"strings"
)

// DocumentType is the kind of document being produced.
type DocumentType string

const (
	DocumentTypeEssay   DocumentType = "essay"
	DocumentTypeArticle DocumentType = "article"
	DocumentTypeEmail   DocumentType = "email"
	DocumentTypeReport  DocumentType = "report"
	DocumentTypeOther   DocumentType = "other"
)

// DocumentTypes lists the accepted document types.
func DocumentTypes() []DocumentType {
	return []DocumentType{DocumentTypeEssay, DocumentTypeArticle, DocumentTypeEmail, DocumentTypeReport, DocumentTypeOther}
}

// Valid reports whether t is one of the accepted document types.
func (t DocumentType) Valid() bool {
	return slices.Contains(DocumentTypes(), t)
}

// ParseDocumentType converts a case-insensitive name into a DocumentType.
func ParseDocumentType(name string) (DocumentType, error) {
	t := DocumentType(strings.ToLower(strings.TrimSpace(name)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown document type %q", name)
	}
	return t, nil
}

// Severity grades a single feedback item.
type Severity string

const (
	SeverityMinor    Severity = "minor"
	SeverityModerate Severity = "moderate"
	SeverityMajor    Severity = "major"
	SeverityCritical Severity = "critical"
)

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	switch s {
	case SeverityMinor, SeverityModerate, SeverityMajor, SeverityCritical:
		return true
	}
	return false
}

// DocumentRequest is the input to Start.
type DocumentRequest struct {
	Prompt string       `json:"prompt"`
	Type   DocumentType `json:"type"`
}

// Validate checks the request fields.
func (r DocumentRequest) Validate() error {
	if strings.TrimSpace(r.Prompt) == "" {
		return missing("prompt")
	}
	if !r.Type.Valid() {
		return invalid("type", "unknown document type %q", r.Type)
	}
	return nil
}

// DocumentPlan is the structured outline produced in the planning stage.
type DocumentPlan struct {
	Outline        []string     `json:"outline" jsonschema:"minItems=1" jsonschema_description:"Ordered section headings of the document"`
	MainArguments  []string     `json:"main_arguments" jsonschema:"minItems=1" jsonschema_description:"Key points the document must make"`
	TargetAudience string       `json:"target_audience" jsonschema_description:"Who the document is written for"`
	Tone           string       `json:"tone" jsonschema_description:"Voice and register of the writing"`
	DocumentType   DocumentType `json:"document_type" jsonschema:"enum=essay,enum=article,enum=email,enum=report,enum=other"`
}

// Validate checks that every required field is present.
func (p DocumentPlan) Validate() error {
	switch {
	case !hasEntries(p.Outline):
		return missing("outline")
	case !hasEntries(p.MainArguments):
		return missing("main_arguments")
	case blank(p.TargetAudience):
		return missing("target_audience")
	case blank(p.Tone):
		return missing("tone")
	}
	return validType(p.DocumentType)
}

func (p DocumentPlan) clone() *DocumentPlan {
	p.Outline = slices.Clone(p.Outline)
	p.MainArguments = slices.Clone(p.MainArguments)
	return &p
}

// DocumentDraft is the first full version of the document.
type DocumentDraft struct {
	Title        string       `json:"title" jsonschema_description:"Document title"`
	Content      string       `json:"content" jsonschema_description:"Full document body in Markdown"`
	DocumentType DocumentType `json:"document_type" jsonschema:"enum=essay,enum=article,enum=email,enum=report,enum=other"`
}

// Validate checks that every required field is present.
func (d DocumentDraft) Validate() error {
	if blank(d.Title) {
		return missing("title")
	}
	if blank(d.Content) {
		return missing("content")
	}
	return validType(d.DocumentType)
}

// FeedbackItem is one critique of a section.
type FeedbackItem struct {
	Section        string   `json:"section" jsonschema_description:"Section the feedback applies to"`
	Feedback       string   `json:"feedback" jsonschema_description:"What is wrong or could be better"`
	Severity       Severity `json:"severity" jsonschema:"enum=minor,enum=moderate,enum=major,enum=critical"`
	Recommendation string   `json:"recommendation,omitempty" jsonschema_description:"Suggested change"`
}

// Validate checks that every required field is present.
func (f FeedbackItem) Validate() error {
	switch {
	case blank(f.Section):
		return missing("section")
	case blank(f.Feedback):
		return missing("feedback")
	case !f.Severity.Valid():
		return invalid("severity", "unknown severity %q", f.Severity)
	}
	return nil
}

// FeedbackCollection is the result of a review pass.
type FeedbackCollection struct {
	Items             []FeedbackItem `json:"items" jsonschema_description:"Individual feedback items"`
	OverallAssessment string         `json:"overall_assessment" jsonschema_description:"Summary judgement of the draft"`
	PriorityIssues    []string       `json:"priority_issues" jsonschema_description:"Issues that must be fixed first"`
	IterationNeeded   bool           `json:"iteration_needed" jsonschema_description:"True when the revised document needs another review"`
}

// Validate checks the assessment and every item.
func (f FeedbackCollection) Validate() error {
	if blank(f.OverallAssessment) {
		return missing("overall_assessment")
	}
	for i, item := range f.Items {
		if err := item.Validate(); err != nil {
			return nestField(err, fmt.Sprintf("items[%d]", i))
		}
	}
	return nil
}

func (f FeedbackCollection) clone() *FeedbackCollection {
	f.Items = slices.Clone(f.Items)
	f.PriorityIssues = slices.Clone(f.PriorityIssues)
	return &f
}

// RevisedDocument is the document after addressing a round of feedback.
type RevisedDocument struct {
	Title        string       `json:"title" jsonschema_description:"Document title"`
	Content      string       `json:"content" jsonschema_description:"Full revised body in Markdown"`
	DocumentType DocumentType `json:"document_type" jsonschema:"enum=essay,enum=article,enum=email,enum=report,enum=other"`
	ChangesMade  []string     `json:"changes_made,omitempty" jsonschema_description:"Changes applied in this revision"`
}

// Validate checks that every required field is present.
func (r RevisedDocument) Validate() error {
	if blank(r.Title) {
		return missing("title")
	}
	if blank(r.Content) {
		return missing("content")
	}
	return validType(r.DocumentType)
}

func (r RevisedDocument) clone() *RevisedDocument {
	r.ChangesMade = slices.Clone(r.ChangesMade)
	return &r
}

// FinalDocument is the polished output of the workflow.
type FinalDocument struct {
	Title           string       `json:"title" jsonschema_description:"Document title"`
	Content         string       `json:"content" jsonschema_description:"Final body in Markdown"`
	DocumentType    DocumentType `json:"document_type" jsonschema:"enum=essay,enum=article,enum=email,enum=report,enum=other"`
	RevisionHistory []string     `json:"revision_history,omitempty" jsonschema_description:"Summary of how the document evolved"`
}

// Validate checks that every required field is present.
func (f FinalDocument) Validate() error {
	if blank(f.Title) {
		return missing("title")
	}
	if blank(f.Content) {
		return missing("content")
	}
	return validType(f.DocumentType)
}

func (f FinalDocument) clone() *FinalDocument {
	f.RevisionHistory = slices.Clone(f.RevisionHistory)
	return &f
}

// WordCount counts whitespace separated words in the content.
func (f FinalDocument) WordCount() int {
	return len(strings.Fields(f.Content))
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func hasEntries(items []string) bool {
	for _, item := range items {
		if !blank(item) {
			return true
		}
	}
	return false
}

func validType(t DocumentType) error {
	if t == "" {
		return missing("document_type")
	}
	if !t.Valid() {
		return invalid("document_type", "unknown document type %q", t)
	}
	return nil
}

func missing(field string) *ValidationError {
	return &ValidationError{Field: field, Message: "required field is missing"}
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func nestField(err error, prefix string) error {
	if ve, ok := err.(*ValidationError); ok {
		nested := *ve
		nested.Field = prefix + "." + ve.Field
		return &nested
	}
	return err
}
