package validation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/goliatone/go-formval/pkg/formatvalidator"
	"github.com/goliatone/go-formval/pkg/model"
)

type answerCheck func(ctx context.Context, doc *model.Document, question *model.Question, value any, depth int) error

// answerChecks is the dispatch table of type-specific rules. Form and static
// questions never carry answers and have no entry.
func (v *Validator) answerChecks() map[model.QuestionType]answerCheck {
	return map[model.QuestionType]answerCheck{
		model.QuestionTypeText:                  checkText,
		model.QuestionTypeTextarea:              checkText,
		model.QuestionTypeInteger:               checkInteger,
		model.QuestionTypeFloat:                 checkFloat,
		model.QuestionTypeDate:                  checkNothing,
		model.QuestionTypeFile:                  checkNothing,
		model.QuestionTypeChoice:                checkChoice,
		model.QuestionTypeMultipleChoice:        checkMultipleChoice,
		model.QuestionTypeDynamicChoice:         v.checkDynamicChoice,
		model.QuestionTypeDynamicMultipleChoice: v.checkDynamicMultipleChoice,
		model.QuestionTypeTable:                 v.checkTable,
	}
}

// AnswerValue returns the populated member of the answer union in the shape
// the answer validator inspects.
func AnswerValue(answer *model.Answer) any {
	if answer == nil {
		return nil
	}
	switch {
	case answer.Value != nil:
		return answer.Value
	case answer.File != nil:
		return answer.File.Name
	case answer.Date != nil:
		return answer.Date.Format(model.DateLayout)
	case len(answer.Documents) > 0:
		return answer.Documents
	default:
		return nil
	}
}

// ValidateAnswer checks one answer of doc: the type-specific rule followed by
// the configured format validators. Empty answers pass, requiredness is
// enforced by EvaluateRequiredness.
func (v *Validator) ValidateAnswer(ctx context.Context, doc *model.Document, answer *model.Answer) error {
	if answer == nil || answer.Question == nil {
		return nil
	}
	return v.validateAnswer(ctx, doc, answer, 0)
}

func (v *Validator) validateAnswer(ctx context.Context, doc *model.Document, answer *model.Answer, depth int) error {
	question := answer.Question
	if err := answer.Check(); err != nil {
		verr := newValidationError(err.Error(), doc, question.Slug)
		verr.Err = err
		return verr
	}

	value := AnswerValue(answer)
	if IsEmpty(value) {
		return nil
	}

	check, ok := v.checks[question.Type]
	if !ok {
		return &InternalError{
			Op:       "validate answer",
			Question: question.Slug,
			Err:      fmt.Errorf("%w %q", ErrUnhandledQuestionType, question.Type),
		}
	}
	if err := check(ctx, doc, question, value, depth); err != nil {
		return err
	}
	return v.runFormatValidators(doc, question, value)
}

// runFormatValidators stops at the first failing validator.
func (v *Validator) runFormatValidators(doc *model.Document, question *model.Question, value any) error {
	for _, slug := range question.FormatValidators {
		fv, ok := v.formatValidators.Lookup(slug)
		if !ok {
			return &InternalError{
				Op:       "format validator",
				Question: question.Slug,
				Err:      fmt.Errorf("%w %q", ErrUnknownFormatValidator, slug),
			}
		}
		err := fv.Validate(value, doc)
		if err == nil {
			continue
		}

		var verr *ValidationError
		if errors.As(err, &verr) {
			if len(verr.Issues) == 0 {
				tagged := newValidationError(verr.Message, doc, question.Slug)
				tagged.Err = verr.Err
				return tagged
			}
			return verr
		}
		var fvErr *formatvalidator.Error
		if errors.As(err, &fvErr) {
			tagged := newValidationError(fvErr.Message, doc, question.Slug)
			tagged.Err = err
			return tagged
		}
		return &InternalError{Op: "format validator " + slug, Question: question.Slug, Err: err}
	}
	return nil
}

func checkNothing(context.Context, *model.Document, *model.Question, any, int) error {
	return nil
}

func checkText(_ context.Context, doc *model.Document, question *model.Question, value any, _ int) error {
	maxLength := math.MaxInt
	if question.MaxLength != nil {
		maxLength = *question.MaxLength
	}
	text, ok := value.(string)
	if !ok || utf8.RuneCountInString(text) > maxLength {
		return newValidationError(
			fmt.Sprintf("Invalid value %v. Should be of type str and max length %d", value, maxLength),
			doc, question.Slug,
		)
	}
	return nil
}

func checkInteger(_ context.Context, doc *model.Document, question *model.Question, value any, _ int) error {
	number, ok := integerValue(value)
	if !ok || !inRange(float64(number), question) {
		return newValidationError(
			fmt.Sprintf("Invalid value %v. Should be of type int, not lower than %s and not greater than %s",
				value, formatBound(question.MinValue, "-inf"), formatBound(question.MaxValue, "inf")),
			doc, question.Slug,
		)
	}
	return nil
}

func checkFloat(_ context.Context, doc *model.Document, question *model.Question, value any, _ int) error {
	var number float64
	ok := true
	switch v := value.(type) {
	case float64:
		number = v
	case float32:
		number = float64(v)
	default:
		ok = false
	}
	if !ok || !inRange(number, question) {
		return newValidationError(
			fmt.Sprintf("Invalid value %v. Should be of type float, not lower than %s and not greater than %s",
				value, formatBound(question.MinValue, "-inf"), formatBound(question.MaxValue, "inf")),
			doc, question.Slug,
		)
	}
	return nil
}

func integerValue(value any) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint:
		if uint64(v) > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	case uint64:
		if v > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	default:
		return 0, false
	}
}

func inRange(number float64, question *model.Question) bool {
	if question.MinValue != nil && number < *question.MinValue {
		return false
	}
	if question.MaxValue != nil && number > *question.MaxValue {
		return false
	}
	return true
}

func formatBound(bound *float64, fallback string) string {
	if bound == nil {
		return fallback
	}
	return strconv.FormatFloat(*bound, 'f', -1, 64)
}

func checkChoice(_ context.Context, doc *model.Document, question *model.Question, value any, _ int) error {
	slug, ok := value.(string)
	if !ok || !question.HasOption(slug) {
		return newValidationError(
			fmt.Sprintf("Invalid value %v. Should be of type str and one of the options %s",
				value, strings.Join(question.OptionSlugs(), ", ")),
			doc, question.Slug,
		)
	}
	return nil
}

func checkMultipleChoice(_ context.Context, doc *model.Document, question *model.Question, value any, _ int) error {
	items, ok := listValue(value)
	if !ok {
		return newValidationError(fmt.Sprintf("Invalid value %v. Must be of type list", value), doc, question.Slug)
	}

	var invalid []string
	seen := make(map[string]struct{})
	for _, item := range items {
		slug, isString := item.(string)
		if isString && question.HasOption(slug) {
			continue
		}
		label := fmt.Sprint(item)
		if _, dup := seen[label]; dup {
			continue
		}
		seen[label] = struct{}{}
		invalid = append(invalid, label)
	}
	if len(invalid) > 0 {
		return newValidationError(
			fmt.Sprintf("Invalid options [%s]. Should be one of the options [%s]",
				strings.Join(invalid, ", "), strings.Join(question.OptionSlugs(), ", ")),
			doc, question.Slug,
		)
	}
	return nil
}

func listValue(value any) ([]any, bool) {
	switch v := value.(type) {
	case []any:
		return v, true
	case []string:
		out := make([]any, 0, len(v))
		for _, item := range v {
			out = append(out, item)
		}
		return out, true
	default:
		return nil, false
	}
}

func (v *Validator) checkDynamicChoice(ctx context.Context, doc *model.Document, question *model.Question, value any, _ int) error {
	candidate, ok := value.(string)
	if !ok {
		return newValidationError(fmt.Sprintf("Invalid value %q. Must be of type str.", fmt.Sprint(value)), doc, question.Slug)
	}
	return v.validateDynamicOption(ctx, doc, question, candidate)
}

func (v *Validator) checkDynamicMultipleChoice(ctx context.Context, doc *model.Document, question *model.Question, value any, _ int) error {
	items, ok := listValue(value)
	if !ok {
		return newValidationError(fmt.Sprintf("Invalid value: %q. Must be of type list", fmt.Sprint(value)), doc, question.Slug)
	}
	for _, item := range items {
		candidate, ok := item.(string)
		if !ok {
			return newValidationError(fmt.Sprintf("Invalid value: %q. Must be of type string", fmt.Sprint(item)), doc, question.Slug)
		}
		if err := v.validateDynamicOption(ctx, doc, question, candidate); err != nil {
			return err
		}
	}
	return nil
}

// validateDynamicOption asks the question's data source for the candidate's
// label and records the accepted option. The record is created once per
// (document, question, candidate); later calls reuse it.
func (v *Validator) validateDynamicOption(ctx context.Context, doc *model.Document, question *model.Question, candidate string) error {
	source, ok := v.dataSources.Lookup(question.DataSource)
	if !ok {
		return &InternalError{
			Op:       "dynamic option",
			Question: question.Slug,
			Err:      fmt.Errorf("%w %q", ErrUnknownDataSource, question.DataSource),
		}
	}

	label, valid, err := source.ValidateAnswerValue(ctx, candidate, doc, question)
	if err != nil {
		return &InternalError{Op: "data source " + question.DataSource, Question: question.Slug, Err: err}
	}
	if !valid {
		return newValidationError(fmt.Sprintf("Invalid value %q. Not a valid option.", candidate), doc, question.Slug)
	}

	caller := model.CallerFrom(ctx)
	_, _, err = v.store.GetOrCreate(ctx, model.DynamicOption{
		DocumentID:     doc.ID,
		Question:       question.Slug,
		Slug:           candidate,
		Label:          label,
		CreatedByUser:  caller.Username,
		CreatedByGroup: caller.Group,
		CreatedAt:      v.now().UTC(),
	})
	if err != nil {
		return &InternalError{Op: "store dynamic option", Question: question.Slug, Err: err}
	}
	return nil
}

func (v *Validator) checkTable(ctx context.Context, doc *model.Document, question *model.Question, value any, depth int) error {
	rows, ok := value.([]*model.Document)
	if !ok {
		return newValidationError(fmt.Sprintf("Invalid value %v. Must be a list of documents", value), doc, question.Slug)
	}

	var collected ValidationErrors
	for _, row := range rows {
		if row == nil {
			continue
		}
		if row.Form == nil && question.RowForm != nil {
			bound := *row
			bound.Form = question.RowForm
			row = &bound
		}
		err := v.validateDocument(ctx, row, depth+1)
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
