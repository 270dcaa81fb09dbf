// Package prompt fills documents interactively. Questions are asked in form
// order; hidden questions are skipped and every answer is checked by the
// validation engine before the next question is asked.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-formval/pkg/datasource"
	"github.com/goliatone/go-formval/pkg/model"
	"github.com/goliatone/go-formval/pkg/validation"
	"github.com/goliatone/go-formval/pkg/visibility"
)

const skipOption = "(skip)"

// Option configures a Collector.
type Option func(*Collector)

// WithDriver overrides the prompt driver.
func WithDriver(driver Driver) Option {
	return func(c *Collector) {
		if driver != nil {
			c.driver = driver
		}
	}
}

// Collector asks for the answers of a form and assembles a document.
type Collector struct {
	driver    Driver
	validator *validation.Validator
}

// NewCollector builds a collector around v. The survey driver is used unless
// WithDriver supplies another one.
func NewCollector(v *validation.Validator, options ...Option) (*Collector, error) {
	if v == nil {
		v = validation.New()
	}
	c := &Collector{validator: v}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(c)
	}
	if c.driver == nil {
		c.driver = NewSurveyDriver(nil)
	}
	return c, nil
}

// Fill prompts for every visible question of form and returns the resulting
// document. Table rows are added until the user declines another one.
func (c *Collector) Fill(ctx context.Context, form *model.Form, id string) (*model.Document, error) {
	if c.driver == nil {
		return nil, ErrNoDriver
	}
	if form == nil {
		return nil, errors.New("prompt: form is nil")
	}
	doc := &model.Document{ID: id, Form: form}
	if err := c.fillForm(ctx, doc, form); err != nil {
		return nil, err
	}
	return doc, nil
}

func (c *Collector) fillForm(ctx context.Context, doc *model.Document, form *model.Form) error {
	for _, q := range form.Questions {
		if q == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		hidden, err := c.evaluate(doc, q.HiddenExpression())
		if err != nil {
			return fmt.Errorf("prompt: is_hidden of %s: %w", q.Slug, err)
		}
		if hidden {
			continue
		}

		switch q.Type {
		case model.QuestionTypeStatic:
			if strings.TrimSpace(q.StaticContent) != "" {
				if err := c.driver.Info(ctx, q.StaticContent); err != nil {
					return err
				}
			}
		case model.QuestionTypeForm:
			if q.SubForm == nil {
				continue
			}
			if err := c.fillForm(ctx, doc, q.SubForm); err != nil {
				return err
			}
		case model.QuestionTypeTable:
			if err := c.fillTable(ctx, doc, q); err != nil {
				return err
			}
		default:
			if err := c.fillQuestion(ctx, doc, q); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Collector) fillTable(ctx context.Context, doc *model.Document, q *model.Question) error {
	if q.RowForm == nil {
		return fmt.Errorf("prompt: table %s has no row form", q.Slug)
	}
	answer := &model.Answer{Question: q}
	for {
		more, err := c.driver.Confirm(ctx, fmt.Sprintf("Add a row to %s?", label(q)), len(answer.Documents) == 0)
		if err != nil {
			return err
		}
		if !more {
			break
		}
		row := &model.Document{
			ID:   fmt.Sprintf("%s.%s.%d", doc.ID, q.Slug, len(answer.Documents)),
			Form: q.RowForm,
		}
		if err := c.fillForm(ctx, row, q.RowForm); err != nil {
			return err
		}
		answer.Documents = append(answer.Documents, row)
	}

	if len(answer.Documents) == 0 {
		required, err := c.evaluate(doc, q.RequiredExpression())
		if err != nil {
			return fmt.Errorf("prompt: is_required of %s: %w", q.Slug, err)
		}
		if required {
			if err := c.driver.Info(ctx, fmt.Sprintf("%s needs at least one row.", label(q))); err != nil {
				return err
			}
			return c.fillTable(ctx, doc, q)
		}
		return nil
	}
	doc.Answers = append(doc.Answers, answer)
	return nil
}

func (c *Collector) fillQuestion(ctx context.Context, doc *model.Document, q *model.Question) error {
	required, err := c.evaluate(doc, q.RequiredExpression())
	if err != nil {
		return fmt.Errorf("prompt: is_required of %s: %w", q.Slug, err)
	}

	for {
		answer, err := c.ask(ctx, q, required)
		if err != nil {
			var invalid inputError
			if errors.As(err, &invalid) {
				if err := c.driver.Info(ctx, invalid.Error()); err != nil {
					return err
				}
				continue
			}
			return err
		}
		if answer == nil {
			if !required {
				return nil
			}
			if err := c.driver.Info(ctx, fmt.Sprintf("%s is required.", label(q))); err != nil {
				return err
			}
			continue
		}

		if err := c.validator.ValidateAnswer(ctx, doc, answer); err != nil {
			var verr *validation.ValidationError
			if errors.As(err, &verr) {
				if err := c.driver.Info(ctx, verr.Message); err != nil {
					return err
				}
				continue
			}
			return err
		}
		doc.Answers = append(doc.Answers, answer)
		return nil
	}
}

// inputError is a parse failure the user can correct by answering again.
type inputError struct {
	message string
}

func (e inputError) Error() string { return e.message }

// ask returns nil when the user left the question empty.
func (c *Collector) ask(ctx context.Context, q *model.Question, required bool) (*model.Answer, error) {
	answer := &model.Answer{Question: q}
	switch q.Type {
	case model.QuestionTypeChoice:
		slug, ok, err := c.selectOne(ctx, q, q.Options, required)
		if err != nil || !ok {
			return nil, err
		}
		answer.Value = slug
	case model.QuestionTypeMultipleChoice:
		slugs, err := c.selectMany(ctx, q, q.Options)
		if err != nil || len(slugs) == 0 {
			return nil, err
		}
		answer.Value = slugs
	case model.QuestionTypeDynamicChoice:
		if options, ok := c.listOptions(ctx, q); ok {
			slug, ok, err := c.selectOne(ctx, q, options, required)
			if err != nil || !ok {
				return nil, err
			}
			answer.Value = slug
			break
		}
		text, err := c.input(ctx, q)
		if err != nil || text == "" {
			return nil, err
		}
		answer.Value = text
	case model.QuestionTypeDynamicMultipleChoice:
		if options, ok := c.listOptions(ctx, q); ok {
			slugs, err := c.selectMany(ctx, q, options)
			if err != nil || len(slugs) == 0 {
				return nil, err
			}
			answer.Value = slugs
			break
		}
		text, err := c.input(ctx, q)
		if err != nil || text == "" {
			return nil, err
		}
		var slugs []any
		for _, part := range strings.Split(text, ",") {
			if part = strings.TrimSpace(part); part != "" {
				slugs = append(slugs, part)
			}
		}
		answer.Value = slugs
	case model.QuestionTypeTextarea:
		text, err := c.driver.Text(ctx, label(q), true)
		if err != nil || strings.TrimSpace(text) == "" {
			return nil, err
		}
		answer.Value = text
	default:
		text, err := c.input(ctx, q)
		if err != nil || text == "" {
			return nil, err
		}
		if err := parseInput(answer, q, text); err != nil {
			return nil, err
		}
	}
	return answer, nil
}

func parseInput(answer *model.Answer, q *model.Question, text string) error {
	switch q.Type {
	case model.QuestionTypeInteger:
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return inputError{message: fmt.Sprintf("%q is not a whole number.", text)}
		}
		answer.Value = n
	case model.QuestionTypeFloat:
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return inputError{message: fmt.Sprintf("%q is not a number.", text)}
		}
		answer.Value = f
	case model.QuestionTypeDate:
		day, err := time.Parse(model.DateLayout, text)
		if err != nil {
			return inputError{message: fmt.Sprintf("%q is not a date (YYYY-MM-DD).", text)}
		}
		answer.Date = &day
	case model.QuestionTypeFile:
		answer.File = &model.File{Name: text}
	default:
		answer.Value = text
	}
	return nil
}

func (c *Collector) input(ctx context.Context, q *model.Question) (string, error) {
	text, err := c.driver.Text(ctx, label(q), false)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (c *Collector) selectOne(ctx context.Context, q *model.Question, options []model.Option, required bool) (string, bool, error) {
	labels := optionLabels(options)
	if !required {
		labels = append([]string{skipOption}, labels...)
	}
	picked, err := c.driver.Choose(ctx, label(q), labels, false)
	if err != nil || len(picked) == 0 {
		return "", false, err
	}
	idx := picked[0]
	if !required {
		idx--
	}
	if idx < 0 || idx >= len(options) {
		return "", false, nil
	}
	return options[idx].Slug, true, nil
}

func (c *Collector) selectMany(ctx context.Context, q *model.Question, options []model.Option) ([]any, error) {
	indices, err := c.driver.Choose(ctx, label(q), optionLabels(options), true)
	if err != nil {
		return nil, err
	}
	var out []any
	for _, idx := range indices {
		if idx >= 0 && idx < len(options) {
			out = append(out, options[idx].Slug)
		}
	}
	return out, nil
}

// listOptions reports the options of a listable data source.
func (c *Collector) listOptions(ctx context.Context, q *model.Question) ([]model.Option, bool) {
	src, ok := c.validator.DataSources().Lookup(q.DataSource)
	if !ok {
		return nil, false
	}
	lister, ok := src.(datasource.Lister)
	if !ok {
		return nil, false
	}
	options, err := lister.Options(ctx)
	if err != nil || len(options) == 0 {
		return nil, false
	}
	return options, true
}

// evaluate runs expression against the answers collected so far. Questions
// that are not answered yet resolve to their empty value; a reference the
// snapshot cannot resolve counts as false.
func (c *Collector) evaluate(doc *model.Document, expression string) (bool, error) {
	snapshot, err := c.validator.Snapshot(doc)
	if err != nil {
		return false, err
	}
	result, err := c.validator.Evaluator().Evaluate(expression, visibility.Context{
		Answers: snapshot,
		Form:    doc.FormSlug(),
	})
	if errors.Is(err, visibility.ErrMissingReference) {
		return false, nil
	}
	return result, err
}

func optionLabels(options []model.Option) []string {
	out := make([]string, 0, len(options))
	for _, opt := range options {
		if opt.Label != "" {
			out = append(out, opt.Label)
			continue
		}
		out = append(out, opt.Slug)
	}
	return out
}

func label(q *model.Question) string {
	if strings.TrimSpace(q.Label) != "" {
		return q.Label
	}
	return q.Slug
}
