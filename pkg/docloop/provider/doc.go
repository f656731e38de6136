// Package provider implements docloop.Provider.
//
// LLM asks an llm.Client for JSON matching the record schema of each stage,
// falling back through an ordered model list when a model returns output
// that does not decode or validate. Scripted serves queued or synthesized
// records and is used by tests, examples and dry runs.
//
// Example:
//
//	client := llm.NewOpenAI(llm.WithAPIKey(key))
//	p := provider.NewLLM(client, provider.WithModels("gpt-4o-mini", "gpt-4o"))
//	driver, err := docloop.New(p)
package provider
