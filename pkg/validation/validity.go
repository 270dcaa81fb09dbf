package validation

import (
	"context"
	"errors"

	"github.com/goliatone/go-formval/pkg/model"
)

// ReportError is one entry of a validity report. DocumentID is set when the
// question was answered in a table row rather than in the reported document.
type ReportError struct {
	Slug       string `json:"slug"`
	ErrorMsg   string `json:"error_msg"`
	DocumentID string `json:"document_id,omitempty"`
}

// Report is the outcome of GetDocumentValidity.
type Report struct {
	ID      string        `json:"id"`
	IsValid bool          `json:"is_valid"`
	Errors  []ReportError `json:"errors"`
}

// GetDocumentValidity validates doc and converts validation failures into a
// report. Internal errors are returned unchanged and never produce a report.
func (v *Validator) GetDocumentValidity(ctx context.Context, doc *model.Document) (Report, error) {
	report := Report{IsValid: true, Errors: []ReportError{}}
	if doc != nil {
		report.ID = doc.ID
	}

	err := v.ValidateDocument(ctx, doc)
	if err == nil {
		v.logger.Debug().Str("document", report.ID).Bool("valid", true).Msg("document validated")
		return report, nil
	}

	var failures ValidationErrors
	if !collect(&failures, err) {
		return Report{}, err
	}

	report.IsValid = false
	for _, failure := range failures {
		for _, issue := range failure.Issues {
			entry := ReportError{Slug: issue.Slug, ErrorMsg: failure.Message}
			if issue.DocumentID != report.ID {
				entry.DocumentID = issue.DocumentID
			}
			report.Errors = append(report.Errors, entry)
		}
	}
	v.logger.Debug().
		Str("document", report.ID).
		Bool("valid", false).
		Int("errors", len(report.Errors)).
		Msg("document validated")
	return report, nil
}

// Failures returns the validation failures carried by err, or nil when err is
// nil or an internal error.
func Failures(err error) []*ValidationError {
	if err == nil {
		return nil
	}
	var internal *InternalError
	if errors.As(err, &internal) {
		return nil
	}
	var out ValidationErrors
	if !collect(&out, err) {
		return nil
	}
	return out
}
