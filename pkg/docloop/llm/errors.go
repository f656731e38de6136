package llm

import (
	"fmt"

	dlerrors "github.com/randalmurphal/docloop/pkg/docloop/errors"
)

// Error is returned by clients when a completion call fails.
type Error struct {
	Op        string
	Err       error
	Retryable bool
}

// NewError creates a client error.
func NewError(op string, err error, retryable bool) *Error {
	return &Error{Op: op, Err: err, Retryable: retryable}
}

func (e *Error) Error() string {
	return fmt.Sprintf("llm %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Category classifies the failure for retry and fallback decisions.
func (e *Error) Category() dlerrors.Category {
	if e.Retryable {
		return dlerrors.CategoryTransient
	}
	return dlerrors.CategoryPermanent
}
