package visibility

import (
	"errors"
	"fmt"
)

// Evaluator evaluates a boolean is_hidden/is_required expression against the
// answer snapshot of a document.
type Evaluator interface {
	Evaluate(expression string, ctx Context) (bool, error)
}

// Context provides the inputs to an Evaluator. Answers maps question slugs to
// resolved values; Form is the slug of the document's root form.
type Context struct {
	Answers map[string]any
	Form    string
}

// EvaluatorFunc adapts a function into an Evaluator.
type EvaluatorFunc func(expression string, ctx Context) (bool, error)

// Evaluate delegates to the underlying function.
func (fn EvaluatorFunc) Evaluate(expression string, ctx Context) (bool, error) {
	return fn(expression, ctx)
}

// ErrMissingReference matches MissingReferenceError via errors.Is.
var ErrMissingReference = errors.New("visibility: expression references a missing question")

// MissingReferenceError reports an expression that names a question slug
// absent from the answer snapshot.
type MissingReferenceError struct {
	Slug string
}

func (e *MissingReferenceError) Error() string {
	return fmt.Sprintf("visibility: question %q referenced in expression does not exist", e.Slug)
}

// Is lets errors.Is(err, ErrMissingReference) match.
func (e *MissingReferenceError) Is(target error) bool {
	return target == ErrMissingReference
}
