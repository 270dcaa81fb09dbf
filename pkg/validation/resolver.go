package validation

import (
	"fmt"

	"github.com/goliatone/go-formval/pkg/model"
)

// Snapshot builds the value snapshot of doc: every answered question plus
// every unanswered question of the form tree except form and table typed
// ones, so expressions can reference questions that have no answer yet.
func (v *Validator) Snapshot(doc *model.Document) (map[string]any, error) {
	return v.snapshot(doc, 0)
}

func (v *Validator) snapshot(doc *model.Document, depth int) (map[string]any, error) {
	if depth > v.maxDepth {
		return nil, &InternalError{Op: "snapshot", Err: ErrDepthExceeded}
	}
	values := make(map[string]any)
	if doc == nil {
		return values, nil
	}

	for _, answer := range doc.Answers {
		if answer == nil || answer.Question == nil {
			continue
		}
		value, err := v.resolve(answer, answer.Question, depth)
		if err != nil {
			return nil, err
		}
		values[answer.Question.Slug] = value
	}

	if doc.Form == nil {
		return values, nil
	}
	for _, question := range doc.Form.AllQuestions() {
		if _, answered := values[question.Slug]; answered {
			continue
		}
		switch question.Type {
		case model.QuestionTypeForm, model.QuestionTypeTable:
			continue
		}
		value, err := v.resolve(nil, question, depth)
		if err != nil {
			return nil, err
		}
		values[question.Slug] = value
	}
	return values, nil
}

// ResolveValue returns the value answer contributes to the snapshot. answer may
// be nil for unanswered questions.
func (v *Validator) ResolveValue(answer *model.Answer, question *model.Question) (any, error) {
	return v.resolve(answer, question, 0)
}

func (v *Validator) resolve(answer *model.Answer, question *model.Question, depth int) (any, error) {
	if answer != nil && answer.Value != nil {
		return answer.Value, nil
	}

	switch question.Type {
	case model.QuestionTypeMultipleChoice, model.QuestionTypeDynamicMultipleChoice:
		return []any{}, nil
	case model.QuestionTypeTable:
		rows := make([]any, 0)
		if answer == nil {
			return rows, nil
		}
		for _, child := range answer.Documents {
			row, err := v.snapshot(child, depth+1)
			if err != nil {
				return nil, err
			}
			rows = append(rows, row)
		}
		return rows, nil
	case model.QuestionTypeFile:
		if answer != nil && answer.File != nil {
			return answer.File.Name, nil
		}
		return nil, nil
	case model.QuestionTypeDate:
		if answer != nil && answer.Date != nil {
			return answer.Date.Format(model.DateLayout), nil
		}
		return nil, nil
	case model.QuestionTypeText,
		model.QuestionTypeTextarea,
		model.QuestionTypeInteger,
		model.QuestionTypeFloat,
		model.QuestionTypeStatic,
		model.QuestionTypeChoice,
		model.QuestionTypeDynamicChoice:
		return nil, nil
	default:
		return nil, &InternalError{
			Op:       "resolve value",
			Question: question.Slug,
			Err:      fmt.Errorf("%w %q", ErrUnhandledQuestionType, question.Type),
		}
	}
}
