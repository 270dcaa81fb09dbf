package validation

import (
	"errors"
	"strings"

	"github.com/goliatone/go-formval/pkg/model"
)

var (
	// ErrUnhandledQuestionType signals that a question type reached a resolver or
	// validator with no entry for it.
	ErrUnhandledQuestionType = errors.New("validation: unhandled question type")
	// ErrUnknownDataSource is returned when a question names a data source that
	// is not registered.
	ErrUnknownDataSource = errors.New("validation: unknown data source")
	// ErrUnknownFormatValidator is returned when a question names a format
	// validator that is not registered.
	ErrUnknownFormatValidator = errors.New("validation: unknown format validator")
	// ErrMissingForm is returned for documents that do not reference a form.
	ErrMissingForm = errors.New("validation: document has no form")
	// ErrDepthExceeded is returned when nested forms or tables go deeper than
	// the configured limit.
	ErrDepthExceeded = errors.New("validation: nesting depth exceeded")
)

// Issue locates one offending question. DocumentID identifies the document
// the question was answered in, which differs from the root for table rows.
type Issue struct {
	Slug       string `json:"slug"`
	DocumentID string `json:"documentId,omitempty"`
}

// ValidationError is the user-facing validation failure. Every issue shares
// the same message.
type ValidationError struct {
	Message string
	Issues  []Issue
	Err     error
}

func newValidationError(message string, doc *model.Document, slugs ...string) *ValidationError {
	var docID string
	if doc != nil {
		docID = doc.ID
	}
	issues := make([]Issue, 0, len(slugs))
	for _, slug := range slugs {
		issues = append(issues, Issue{Slug: slug, DocumentID: docID})
	}
	return &ValidationError{Message: message, Issues: issues}
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Slugs returns the offending question slugs in report order.
func (e *ValidationError) Slugs() []string {
	if e == nil {
		return nil
	}
	out := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		out = append(out, issue.Slug)
	}
	return out
}

// ValidationErrors collects failures of distinct answers when aggregation is
// enabled.
type ValidationErrors []*ValidationError

func (errs ValidationErrors) Error() string {
	messages := make([]string, 0, len(errs))
	for _, err := range errs {
		messages = append(messages, err.Error())
	}
	return strings.Join(messages, "; ")
}

func (errs ValidationErrors) Unwrap() []error {
	out := make([]error, 0, len(errs))
	for _, err := range errs {
		out = append(out, err)
	}
	return out
}

// InternalError reports that the validator itself failed: an expression could
// not be evaluated, a collaborator broke, or the type taxonomy is out of sync.
// It is never folded into a validity report.
type InternalError struct {
	Op         string
	Question   string
	Expression string
	Source     string
	Err        error
}

func (e *InternalError) Error() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString("validation: ")
	b.WriteString(e.Op)
	if e.Expression != "" {
		b.WriteString(" '")
		b.WriteString(e.Expression)
		b.WriteString("' expression")
	}
	if e.Question != "" {
		b.WriteString(" on question ")
		b.WriteString(e.Question)
	}
	if e.Source != "" {
		b.WriteString(": ")
		b.WriteString(e.Source)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *InternalError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsValidationError reports whether err carries user-facing validation
// failures rather than an internal error.
func IsValidationError(err error) bool {
	var internal *InternalError
	if errors.As(err, &internal) {
		return false
	}
	var single *ValidationError
	return errors.As(err, &single)
}
