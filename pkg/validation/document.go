package validation

import (
	"context"
	"errors"

	"github.com/goliatone/go-formval/pkg/model"
)

// ValidateDocument runs the full validation pass over doc: it builds the value
// snapshot, evaluates requiredness over the form tree and checks every visible
// answer in answer order. Unless answer error aggregation is enabled the first
// failing answer stops the pass.
func (v *Validator) ValidateDocument(ctx context.Context, doc *model.Document) error {
	return v.validateDocument(ctx, doc, 0)
}

func (v *Validator) validateDocument(ctx context.Context, doc *model.Document, depth int) error {
	if doc == nil || doc.Form == nil {
		return &InternalError{Op: "validate document", Err: ErrMissingForm}
	}
	if depth > v.maxDepth {
		return &InternalError{Op: "validate document", Err: ErrDepthExceeded}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	snapshot, err := v.snapshot(doc, depth)
	if err != nil {
		return err
	}
	visible, err := v.evaluateRequiredness(doc, snapshot, depth)
	if err != nil {
		return err
	}

	var collected ValidationErrors
	for _, answer := range doc.Answers {
		if answer == nil || answer.Question == nil || !visible.Has(answer.Question.Slug) {
			continue
		}
		err := v.validateAnswer(ctx, doc, answer, depth)
		if err == nil {
			continue
		}
		if !v.aggregate {
			return err
		}
		if !collect(&collected, err) {
			return err
		}
	}
	if len(collected) > 0 {
		return collected
	}
	return nil
}

// collect appends the validation failures in err to dst. It returns false
// when err is not a validation failure and must propagate as is.
func collect(dst *ValidationErrors, err error) bool {
	var internal *InternalError
	if errors.As(err, &internal) {
		return false
	}
	var many ValidationErrors
	if errors.As(err, &many) {
		*dst = append(*dst, many...)
		return true
	}
	var single *ValidationError
	if errors.As(err, &single) {
		*dst = append(*dst, single)
		return true
	}
	return false
}
