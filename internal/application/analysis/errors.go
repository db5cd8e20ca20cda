package analysis

import (
	sharederrors "github.com/khanhnv2901/domain-insight/internal/shared/errors"
)

// ValidationError reports a request that was rejected before any source
// was contacted.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() []error {
	return []error{sharederrors.ErrValidation, e.Err}
}

// OrchestrationError reports a failure of the orchestrator itself, as
// opposed to a failure of one source.
type OrchestrationError struct {
	Op  string
	Err error
}

func (e *OrchestrationError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *OrchestrationError) Unwrap() []error {
	return []error{sharederrors.ErrOrchestration, e.Err}
}
