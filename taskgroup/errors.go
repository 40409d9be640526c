package taskgroup

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// AggregateError combines every error returned by a Group's Tasks under
// CollectAll. It is a thin alias over multierror.Error so callers can
// errors.Is/errors.As against any individual wrapped error.
type AggregateError = multierror.Error

func newAggregateError(errs []error) *AggregateError {
	return &multierror.Error{Errors: errs}
}

// PanicError wraps a panic recovered from inside a Task submitted via Go.
type PanicError struct {
	Value interface{}
	Stack string
}

func (p *PanicError) Error() string {
	return fmt.Sprintf("taskgroup: task panicked: %v", p.Value)
}
