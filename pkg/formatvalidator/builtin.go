package formatvalidator

import (
	"html"
	"regexp"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-formval/pkg/model"
)

const phoneNumberPattern = `^[\s\/\.\(\)-]*(?:\+|0|00)(?:[\s\/\.\(\)-]*\d[\s\/\.\(\)-]*){6,20}$`

// Builtins returns the validators every registry created through
// NewDefaultRegistry carries.
func Builtins() []FormatValidator {
	return []FormatValidator{
		NewEmail(),
		MustRegex("phone-number", "Phone number", phoneNumberPattern, "Not a valid phone number"),
		NewPlainText(),
	}
}

// Email accepts RFC 5322 addresses.
type Email struct {
	validate *validator.Validate
}

func NewEmail() *Email {
	return &Email{validate: validator.New()}
}

func (e *Email) Slug() string { return "email" }
func (e *Email) Name() string { return "E-mail" }

func (e *Email) Validate(value any, _ *model.Document) error {
	for _, text := range textValues(value) {
		if err := e.validate.Var(text, "required,email"); err != nil {
			return &Error{Validator: e.Slug(), Message: "Not an e-mail address"}
		}
	}
	return nil
}

// PlainText rejects values carrying HTML markup.
type PlainText struct {
	policy *bluemonday.Policy
}

func NewPlainText() *PlainText {
	return &PlainText{policy: bluemonday.StrictPolicy()}
}

func (p *PlainText) Slug() string { return "plain-text" }
func (p *PlainText) Name() string { return "Plain text" }

func (p *PlainText) Validate(value any, _ *model.Document) error {
	for _, text := range textValues(value) {
		if html.UnescapeString(p.policy.Sanitize(text)) != text {
			return &Error{Validator: p.Slug(), Message: "Must not contain markup"}
		}
	}
	return nil
}

// Regex accepts values matching a pattern.
type Regex struct {
	slug    string
	name    string
	pattern *regexp.Regexp
	message string
}

// NewRegex compiles pattern into a validator registered under slug.
func NewRegex(slug, name, pattern, message string) (*Regex, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	return &Regex{slug: slug, name: name, pattern: re, message: message}, nil
}

// MustRegex is NewRegex for patterns known at compile time.
func MustRegex(slug, name, pattern, message string) *Regex {
	re, err := NewRegex(slug, name, pattern, message)
	if err != nil {
		panic(err)
	}
	return re
}

func (r *Regex) Slug() string { return r.slug }
func (r *Regex) Name() string { return r.name }

func (r *Regex) Validate(value any, _ *model.Document) error {
	for _, text := range textValues(value) {
		if !r.pattern.MatchString(text) {
			return &Error{Validator: r.slug, Message: r.message}
		}
	}
	return nil
}
