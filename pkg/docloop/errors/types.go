package errors

import "fmt"

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e.Endpoint != "" {
		return fmt.Sprintf("HTTP %d at %s: %s", e.StatusCode, e.Endpoint, e.Message)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// JSONParseError indicates model output that could not be decoded into a record.
type JSONParseError struct {
	// Record names the record type being decoded.
	Record string
	// Input is the raw output, truncated for logging.
	Input string
	// Err is the decoder error.
	Err error
}

// Error implements the error interface.
func (e *JSONParseError) Error() string {
	if e.Record != "" {
		return fmt.Sprintf("JSON parse error in %s: %v", e.Record, e.Err)
	}
	return fmt.Sprintf("JSON parse error: %v", e.Err)
}

// Unwrap returns the decoder error.
func (e *JSONParseError) Unwrap() error {
	return e.Err
}

// NewJSONParseError truncates input to a loggable size.
func NewJSONParseError(record, input string, err error) *JSONParseError {
	const maxInput = 512
	if len(input) > maxInput {
		input = input[:maxInput] + "..."
	}
	return &JSONParseError{Record: record, Input: input, Err: err}
}

// TimeoutError indicates an operation timed out.
type TimeoutError struct {
	Operation string
	Duration  string
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout after %s: %s", e.Duration, e.Operation)
}

// HumanInterventionError indicates human input is required.
type HumanInterventionError struct {
	Question string
	Original error
}

// Error implements the error interface.
func (e *HumanInterventionError) Error() string {
	return fmt.Sprintf("human intervention required: %s", e.Question)
}

// Unwrap returns the original error.
func (e *HumanInterventionError) Unwrap() error {
	return e.Original
}
