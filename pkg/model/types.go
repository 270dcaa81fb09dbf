package model

import "strings"

// QuestionType is the closed enumeration of question kinds.
type QuestionType string

const (
	QuestionTypeText                  QuestionType = "text"
	QuestionTypeTextarea              QuestionType = "textarea"
	QuestionTypeInteger               QuestionType = "integer"
	QuestionTypeFloat                 QuestionType = "float"
	QuestionTypeDate                  QuestionType = "date"
	QuestionTypeChoice                QuestionType = "choice"
	QuestionTypeMultipleChoice        QuestionType = "multiple_choice"
	QuestionTypeDynamicChoice         QuestionType = "dynamic_choice"
	QuestionTypeDynamicMultipleChoice QuestionType = "dynamic_multiple_choice"
	QuestionTypeTable                 QuestionType = "table"
	QuestionTypeFile                  QuestionType = "file"
	QuestionTypeForm                  QuestionType = "form"
	QuestionTypeStatic                QuestionType = "static"
)

const (
	// DefaultHiddenExpression is used when a question has no is_hidden expression.
	DefaultHiddenExpression = "false"
	// DefaultRequiredExpression is used when a question has no is_required expression.
	DefaultRequiredExpression = "true"
)

var questionTypes = []QuestionType{
	QuestionTypeText,
	QuestionTypeTextarea,
	QuestionTypeInteger,
	QuestionTypeFloat,
	QuestionTypeDate,
	QuestionTypeChoice,
	QuestionTypeMultipleChoice,
	QuestionTypeDynamicChoice,
	QuestionTypeDynamicMultipleChoice,
	QuestionTypeTable,
	QuestionTypeFile,
	QuestionTypeForm,
	QuestionTypeStatic,
}

// QuestionTypes returns every known question type in declaration order.
func QuestionTypes() []QuestionType {
	return append([]QuestionType(nil), questionTypes...)
}

// Valid reports whether t is one of the known question types.
func (t QuestionType) Valid() bool {
	for _, known := range questionTypes {
		if t == known {
			return true
		}
	}
	return false
}

// IsMultipleChoice reports whether answers are lists of option slugs.
func (t QuestionType) IsMultipleChoice() bool {
	return t == QuestionTypeMultipleChoice || t == QuestionTypeDynamicMultipleChoice
}

// IsDynamic reports whether options come from a data source.
func (t QuestionType) IsDynamic() bool {
	return t == QuestionTypeDynamicChoice || t == QuestionTypeDynamicMultipleChoice
}

// IsChoice reports whether options are declared statically on the question.
func (t QuestionType) IsChoice() bool {
	return t == QuestionTypeChoice || t == QuestionTypeMultipleChoice
}

// Option is a selectable choice identified by slug.
type Option struct {
	Slug  string `json:"slug" yaml:"slug"`
	Label string `json:"label,omitempty" yaml:"label,omitempty"`
}

// Question describes a single input of a form. MinValue, MaxValue and
// MaxLength are nil when unbounded.
type Question struct {
	Slug             string         `json:"slug"`
	Label            string         `json:"label,omitempty"`
	Type             QuestionType   `json:"type"`
	MinValue         *float64       `json:"minValue,omitempty"`
	MaxValue         *float64       `json:"maxValue,omitempty"`
	MaxLength        *int           `json:"maxLength,omitempty"`
	IsHidden         string         `json:"isHidden,omitempty"`
	IsRequired       string         `json:"isRequired,omitempty"`
	DataSource       string         `json:"dataSource,omitempty"`
	FormatValidators []string       `json:"formatValidators,omitempty"`
	Options          []Option       `json:"options,omitempty"`
	SubForm          *Form          `json:"-"`
	RowForm          *Form          `json:"-"`
	StaticContent    string         `json:"staticContent,omitempty"`
	Meta             map[string]any `json:"meta,omitempty"`
}

// HiddenExpression returns the is_hidden expression or its default.
func (q *Question) HiddenExpression() string {
	if q == nil || strings.TrimSpace(q.IsHidden) == "" {
		return DefaultHiddenExpression
	}
	return q.IsHidden
}

// RequiredExpression returns the is_required expression or its default.
func (q *Question) RequiredExpression() string {
	if q == nil || strings.TrimSpace(q.IsRequired) == "" {
		return DefaultRequiredExpression
	}
	return q.IsRequired
}

// OptionSlugs returns the slugs of the declared options in order.
func (q *Question) OptionSlugs() []string {
	if q == nil || len(q.Options) == 0 {
		return nil
	}
	out := make([]string, 0, len(q.Options))
	for _, opt := range q.Options {
		out = append(out, opt.Slug)
	}
	return out
}

// HasOption reports whether slug is one of the declared options.
func (q *Question) HasOption(slug string) bool {
	if q == nil {
		return false
	}
	for _, opt := range q.Options {
		if opt.Slug == slug {
			return true
		}
	}
	return false
}

// Form is a named, ordered sequence of questions.
type Form struct {
	Slug        string      `json:"slug"`
	Name        string      `json:"name,omitempty"`
	Description string      `json:"description,omitempty"`
	Questions   []*Question `json:"questions"`
}

// Question looks up a direct question of the form by slug.
func (f *Form) Question(slug string) (*Question, bool) {
	if f == nil {
		return nil, false
	}
	for _, q := range f.Questions {
		if q != nil && q.Slug == slug {
			return q, true
		}
	}
	return nil, false
}

// AllQuestions returns the questions of the form followed, depth-first, by the
// questions of every sub-form reached through form-typed questions. Row forms
// of tables are not included; their questions belong to the row documents.
func (f *Form) AllQuestions() []*Question {
	if f == nil {
		return nil
	}
	var out []*Question
	collectQuestions(f, &out)
	return out
}

func collectQuestions(form *Form, out *[]*Question) {
	for _, q := range form.Questions {
		if q == nil {
			continue
		}
		*out = append(*out, q)
		if q.Type == QuestionTypeForm && q.SubForm != nil {
			collectQuestions(q.SubForm, out)
		}
	}
}

// FindQuestion looks up a question anywhere in AllQuestions.
func (f *Form) FindQuestion(slug string) (*Question, bool) {
	for _, q := range f.AllQuestions() {
		if q.Slug == slug {
			return q, true
		}
	}
	return nil, false
}
