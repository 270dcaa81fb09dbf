package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/goliatone/go-formval/pkg/model"
)

// QuestionInput is a question definition submitted for creation or update.
type QuestionInput struct {
	Slug             string             `json:"slug" yaml:"slug" validate:"required"`
	Type             model.QuestionType `json:"type" yaml:"type" validate:"required,question_type"`
	FormatValidators []string           `json:"formatValidators,omitempty" yaml:"formatValidators,omitempty"`
	DataSource       *string            `json:"dataSource,omitempty" yaml:"dataSource,omitempty"`
	Options          []model.Option     `json:"options,omitempty" yaml:"options,omitempty" validate:"dive"`
}

// QuestionInputFrom builds the definition input of an existing question.
func QuestionInputFrom(question *model.Question) QuestionInput {
	in := QuestionInput{
		Slug:             question.Slug,
		Type:             question.Type,
		FormatValidators: append([]string(nil), question.FormatValidators...),
		Options:          append([]model.Option(nil), question.Options...),
	}
	if question.DataSource != "" {
		source := question.DataSource
		in.DataSource = &source
	}
	return in
}

func newInputValidator() *validator.Validate {
	validate := validator.New()
	_ = validate.RegisterValidation("question_type", func(fl validator.FieldLevel) bool {
		return model.QuestionType(fl.Field().String()).Valid()
	})
	return validate
}

// ValidateQuestion checks a question definition: its shape, the format
// validators named by text questions and the data source, when present,
// against the registries of v.
func (v *Validator) ValidateQuestion(in QuestionInput) error {
	if err := v.inputs.Struct(in); err != nil {
		return questionError(in, describeInputError(err), err)
	}

	switch in.Type {
	case model.QuestionTypeText, model.QuestionTypeTextarea:
		if missing := v.formatValidators.Missing(in.FormatValidators); len(missing) > 0 {
			quoted := make([]string, 0, len(missing))
			for _, slug := range missing {
				quoted = append(quoted, fmt.Sprintf("%q", slug))
			}
			return questionError(in, fmt.Sprintf("Invalid format validators [%s].", strings.Join(quoted, ", ")), ErrUnknownFormatValidator)
		}
	}

	if in.Type.IsChoice() && len(in.Options) == 0 {
		return questionError(in, fmt.Sprintf("Question type %s requires options.", in.Type), nil)
	}
	if in.Type.IsDynamic() && in.DataSource == nil {
		return questionError(in, fmt.Sprintf("Question type %s requires a data_source.", in.Type), nil)
	}
	if in.DataSource != nil && !v.dataSources.Has(*in.DataSource) {
		return questionError(in, fmt.Sprintf("Invalid data_source: %q", *in.DataSource), ErrUnknownDataSource)
	}
	return nil
}

func questionError(in QuestionInput, message string, cause error) *ValidationError {
	verr := &ValidationError{Message: message, Err: cause}
	if in.Slug != "" {
		verr.Issues = []Issue{{Slug: in.Slug}}
	}
	return verr
}

func describeInputError(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fmt.Sprintf("%s is required", strings.ToLower(fe.Field())))
		case "question_type":
			parts = append(parts, fmt.Sprintf("unknown question type %q", fe.Value()))
		default:
			parts = append(parts, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
		}
	}
	return fmt.Sprintf("Invalid question definition: %s.", strings.Join(parts, "; "))
}
