// Package formval validates documents answered against dynamic forms. It
// re-exports the main types of pkg/validation and pairs a Validator with a
// set of form definitions for callers that only need the common path.
package formval

import (
	"context"
	"io/fs"

	"github.com/goliatone/go-formval/pkg/datasource"
	"github.com/goliatone/go-formval/pkg/formdef"
	"github.com/goliatone/go-formval/pkg/validation"
)

// Report is the validity report of a document.
type Report = validation.Report

// ReportError is one entry of a Report.
type ReportError = validation.ReportError

// ValidationError is the user-facing validation failure.
type ValidationError = validation.ValidationError

// InternalError is a failure that never turns into a report.
type InternalError = validation.InternalError

// Option customises the underlying validator.
type Option = validation.Option

// New exposes the validator constructor from the top-level module.
func New(options ...Option) *validation.Validator {
	return validation.New(options...)
}

// Engine pairs a validator with the form definitions documents are decoded
// against.
type Engine struct {
	Validator *validation.Validator
	Forms     *formdef.Set
}

// Load reads the definition files of fsys and registers their static data
// sources with the validator built from options. wrap, when non-nil,
// decorates each data source, e.g. with datasource.Cached.
func Load(fsys fs.FS, wrap func(name string, src datasource.DataSource) datasource.DataSource, options ...Option) (*Engine, error) {
	set, err := formdef.LoadFS(fsys)
	if err != nil {
		return nil, err
	}
	v := validation.New(options...)
	set.RegisterDataSources(v.DataSources(), wrap)
	return &Engine{Validator: v, Forms: set}, nil
}

// Validity decodes a JSON or YAML document payload and reports its validity.
func (e *Engine) Validity(ctx context.Context, payload []byte) (Report, error) {
	doc, err := e.Forms.DecodeDocument(payload)
	if err != nil {
		return Report{}, err
	}
	return e.Validator.GetDocumentValidity(ctx, doc)
}
