package dashboard

import (
	"strings"
)

const failurePrefix = "Failed to load data. "

// ResourceError is the failure of a single read within a load cycle.
type ResourceError struct {
	Resource Resource
	Err      error
}

func (e *ResourceError) Error() string {
	return string(e.Resource) + ": " + e.Err.Error()
}

func (e *ResourceError) Unwrap() error {
	return e.Err
}

// LoadError reports a failed load cycle. It lists every read that failed,
// in dashboard order.
type LoadError struct {
	Failures []*ResourceError
}

func (e *LoadError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, failure := range e.Failures {
		parts[i] = failure.Error()
	}
	return strings.Join(parts, "; ")
}

func (e *LoadError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, failure := range e.Failures {
		errs[i] = failure
	}
	return errs
}

// FailureMessage is the single user-facing text for a failed cycle.
func FailureMessage(err error) string {
	return failurePrefix + err.Error()
}
