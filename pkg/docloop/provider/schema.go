package provider

import (
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"sync"

	"github.com/invopop/jsonschema"

	"github.com/randalmurphal/docloop/pkg/docloop"
	"github.com/randalmurphal/docloop/pkg/docloop/llm"
)

var schemaCache sync.Map // reflect.Type -> map[string]any

// SchemaFor returns the JSON schema of T as a map, inlined without
// references. Fields without omitempty are required.
func SchemaFor[T any]() (map[string]any, error) {
	typ := reflect.TypeFor[T]()
	if cached, ok := schemaCache.Load(typ); ok {
		return cached.(map[string]any), nil
	}

	reflector := &jsonschema.Reflector{
		ExpandedStruct: true,
		DoNotReference: true,
	}
	data, err := json.Marshal(reflector.Reflect(new(T)))
	if err != nil {
		return nil, fmt.Errorf("marshal schema of %s: %w", typ, err)
	}
	var schema map[string]any
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("unmarshal schema of %s: %w", typ, err)
	}
	delete(schema, "$schema")
	delete(schema, "$id")

	schemaCache.Store(typ, schema)
	return schema, nil
}

// stageRecords maps each stage to its record name and description.
var stageRecords = map[docloop.Stage]struct{ name, description string }{
	docloop.StagePlanning: {"document_plan", "Outline and strategy of the document"},
	docloop.StageDrafting: {"document_draft", "First complete draft of the document"},
	docloop.StageReview:   {"feedback_collection", "Structured review of the current draft"},
	docloop.StageRevision: {"revised_document", "Draft rewritten to address the feedback"},
	docloop.StageFinal:    {"final_document", "Polished final document"},
}

// StageSchema returns the structured output schema for the record of stage.
func StageSchema(stage docloop.Stage) (*llm.JSONSchema, error) {
	rec, ok := stageRecords[stage]
	if !ok {
		return nil, fmt.Errorf("%w: %d", docloop.ErrUnknownStage, stage)
	}

	var (
		schema map[string]any
		err    error
	)
	switch stage {
	case docloop.StagePlanning:
		schema, err = SchemaFor[docloop.DocumentPlan]()
	case docloop.StageDrafting:
		schema, err = SchemaFor[docloop.DocumentDraft]()
	case docloop.StageReview:
		schema, err = SchemaFor[docloop.FeedbackCollection]()
	case docloop.StageRevision:
		schema, err = SchemaFor[docloop.RevisedDocument]()
	case docloop.StageFinal:
		schema, err = SchemaFor[docloop.FinalDocument]()
	}
	if err != nil {
		return nil, err
	}
	return &llm.JSONSchema{Name: rec.name, Description: rec.description, Schema: schema}, nil
}

// checkRequired walks value alongside schema and returns a
// *docloop.ValidationError for the first required property that is absent
// or null. Type mismatches are left to the decoder.
func checkRequired(schema map[string]any, value any, path string) error {
	obj, ok := value.(map[string]any)
	if !ok {
		return nil
	}

	required, _ := schema["required"].([]any)
	for _, r := range required {
		name, _ := r.(string)
		if v, present := obj[name]; !present || v == nil {
			return &docloop.ValidationError{Field: joinField(path, name), Message: "required field is missing"}
		}
	}

	props, _ := schema["properties"].(map[string]any)
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		prop, _ := props[name].(map[string]any)
		child, present := obj[name]
		if prop == nil || !present {
			continue
		}
		field := joinField(path, name)
		switch prop["type"] {
		case "object":
			if err := checkRequired(prop, child, field); err != nil {
				return err
			}
		case "array":
			itemSchema, _ := prop["items"].(map[string]any)
			elems, _ := child.([]any)
			if itemSchema == nil {
				continue
			}
			for i, elem := range elems {
				if err := checkRequired(itemSchema, elem, fmt.Sprintf("%s[%d]", field, i)); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func joinField(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}
