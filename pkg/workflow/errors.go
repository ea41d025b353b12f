package workflow

import (
	"errors"
	"fmt"

	"github.com/hybriq/hybriq/pkg/completion"
)

// ErrCompletionUnavailable is the completion backend outage sentinel,
// re-exported so callers matching workflow failures do not need to reach
// into the completion package.
var ErrCompletionUnavailable = completion.ErrUnavailable

// Error wraps a failure of one workflow step with its context. It is the
// typed failure the batch driver catches to record an error result for the
// question and move on; a failure on one question never aborts the batch.
type Error struct {
	Step       Step
	QuestionID string
	Err        error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s step failed for question %s: %v", e.Step, e.QuestionID, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is implements error comparison for workflow errors.
func (e *Error) Is(target error) bool {
	return errors.Is(e.Err, target)
}

func newError(step Step, questionID string, err error) *Error {
	return &Error{Step: step, QuestionID: questionID, Err: err}
}
