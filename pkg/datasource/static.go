package datasource

import (
	"context"

	"github.com/goliatone/go-formval/pkg/model"
)

// Static is a data source backed by a fixed option list, typically declared
// in form definition files.
type Static struct {
	options []model.Option
}

var (
	_ DataSource = (*Static)(nil)
	_ Lister     = (*Static)(nil)
)

// NewStatic returns a source over a copy of options.
func NewStatic(options []model.Option) *Static {
	return &Static{options: append([]model.Option(nil), options...)}
}

// ValidateAnswerValue returns the option label, falling back to the slug when
// the option has no label.
func (s *Static) ValidateAnswerValue(ctx context.Context, value string, _ *model.Document, _ *model.Question) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	for _, opt := range s.options {
		if opt.Slug != value {
			continue
		}
		if opt.Label == "" {
			return opt.Slug, true, nil
		}
		return opt.Label, true, nil
	}
	return "", false, nil
}

// Options returns a copy of the option list.
func (s *Static) Options(ctx context.Context) ([]model.Option, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return append([]model.Option(nil), s.options...), nil
}
