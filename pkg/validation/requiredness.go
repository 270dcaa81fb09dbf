package validation

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/goliatone/go-formval/pkg/model"
	"github.com/goliatone/go-formval/pkg/visibility"
)

const (
	exprHidden   = "is_hidden"
	exprRequired = "is_required"
)

// Visibility is the set of visible question slugs of one document.
type Visibility map[string]struct{}

// Has reports whether slug is visible.
func (vis Visibility) Has(slug string) bool {
	_, ok := vis[slug]
	return ok
}

// Slugs returns the visible slugs sorted alphabetically.
func (vis Visibility) Slugs() []string {
	out := make([]string, 0, len(vis))
	for slug := range vis {
		out = append(out, slug)
	}
	sort.Strings(out)
	return out
}

// EvaluateRequiredness walks the form tree of doc and returns the visible
// questions. Required questions with empty values are collected over the
// whole tree, including the rows of visible tables, and reported in a single
// ValidationError.
func (v *Validator) EvaluateRequiredness(doc *model.Document, snapshot map[string]any) (Visibility, error) {
	return v.evaluateRequiredness(doc, snapshot, 0)
}

func (v *Validator) evaluateRequiredness(doc *model.Document, snapshot map[string]any, depth int) (Visibility, error) {
	if doc == nil || doc.Form == nil {
		return nil, &InternalError{Op: "evaluate requiredness", Err: ErrMissingForm}
	}

	var missing []Issue
	visible, err := v.walkRequired(doc, doc.Form, snapshot, &missing, depth)
	if err != nil {
		return nil, err
	}
	if len(missing) > 0 {
		return visible, requiredError(missing)
	}
	return visible, nil
}

func requiredError(missing []Issue) *ValidationError {
	slugs := make([]string, 0, len(missing))
	for _, issue := range missing {
		slugs = append(slugs, issue.Slug)
	}
	return &ValidationError{
		Message: fmt.Sprintf("Questions %s are required but not provided.", strings.Join(slugs, ",")),
		Issues:  missing,
	}
}

func (v *Validator) walkRequired(doc *model.Document, form *model.Form, snapshot map[string]any, missing *[]Issue, depth int) (Visibility, error) {
	if depth > v.maxDepth {
		return nil, &InternalError{Op: "evaluate requiredness", Err: ErrDepthExceeded}
	}

	visible := make(Visibility)
	for _, question := range form.Questions {
		if question == nil {
			continue
		}
		hidden, err := v.evaluate(doc, question, exprHidden, question.HiddenExpression(), snapshot)
		if err != nil {
			return nil, err
		}
		if hidden {
			continue
		}
		visible[question.Slug] = struct{}{}

		required, err := v.evaluate(doc, question, exprRequired, question.RequiredExpression(), snapshot)
		if err != nil {
			return nil, err
		}
		if required && carriesAnswer(question.Type) && IsEmpty(snapshot[question.Slug]) {
			*missing = append(*missing, Issue{Slug: question.Slug, DocumentID: doc.ID})
		}

		switch question.Type {
		case model.QuestionTypeForm:
			if question.SubForm == nil {
				continue
			}
			nested, err := v.walkRequired(doc, question.SubForm, snapshot, missing, depth+1)
			if err != nil {
				return nil, err
			}
			for slug := range nested {
				visible[slug] = struct{}{}
			}
		case model.QuestionTypeTable:
			if err := v.walkRows(doc, question, missing, depth); err != nil {
				return nil, err
			}
		}
	}
	return visible, nil
}

// walkRows descends into the row documents of a visible table answer. Each
// row is evaluated against its own snapshot.
func (v *Validator) walkRows(doc *model.Document, question *model.Question, missing *[]Issue, depth int) error {
	answer, ok := doc.Answer(question.Slug)
	if !ok {
		return nil
	}
	for _, row := range answer.Documents {
		if row == nil {
			continue
		}
		form := row.Form
		if form == nil {
			form = question.RowForm
		}
		if form == nil {
			return &InternalError{Op: "evaluate requiredness", Question: question.Slug, Err: ErrMissingForm}
		}
		rowSnapshot, err := v.snapshot(row, depth+1)
		if err != nil {
			return err
		}
		if _, err := v.walkRequired(row, form, rowSnapshot, missing, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// carriesAnswer excludes question types that never hold an answer of their
// own.
func carriesAnswer(t model.QuestionType) bool {
	return t != model.QuestionTypeForm && t != model.QuestionTypeStatic
}

func (v *Validator) evaluate(doc *model.Document, question *model.Question, name, source string, snapshot map[string]any) (bool, error) {
	result, err := v.evaluator.Evaluate(source, visibility.Context{
		Answers: snapshot,
		Form:    doc.FormSlug(),
	})
	if err == nil {
		return result, nil
	}

	if errors.Is(err, visibility.ErrMissingReference) {
		ref := ""
		var missingRef *visibility.MissingReferenceError
		if errors.As(err, &missingRef) {
			ref = missingRef.Slug
		}
		verr := newValidationError(
			fmt.Sprintf("Question %q referenced in %s of question %s could not be found in form %s", ref, name, question.Slug, doc.FormSlug()),
			doc, question.Slug,
		)
		verr.Err = err
		return false, verr
	}

	v.logger.Error().
		Err(err).
		Str("question", question.Slug).
		Str("expression", name).
		Str("source", source).
		Str("form", doc.FormSlug()).
		Msg("error while evaluating expression")
	return false, &InternalError{
		Op:         "evaluate",
		Question:   question.Slug,
		Expression: name,
		Source:     source,
		Err:        err,
	}
}
