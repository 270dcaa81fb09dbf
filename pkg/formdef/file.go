// Package formdef loads form and data source definitions from JSON or YAML
// files and decodes documents submitted against them.
//
// A definition file looks like:
//
//	dataSources:
//	  colors:
//	    options:
//	      - {slug: red, label: Red}
//	forms:
//	  - slug: order
//	    questions:
//	      - {slug: color, type: dynamic_choice, dataSource: colors}
//	      - {slug: lines, type: table, rowForm: order-line}
//
// Question slugs are unique across all loaded files. Form-typed questions
// reference their sub-form and table questions their row form by slug.
package formdef

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formval/pkg/model"
)

// File is the on-disk shape of a definition file.
type File struct {
	DataSources map[string]DataSourceDef `json:"dataSources,omitempty" yaml:"dataSources,omitempty"`
	Forms       []FormDef                `json:"forms" yaml:"forms"`
}

// DataSourceDef declares a static data source.
type DataSourceDef struct {
	Options []model.Option `json:"options" yaml:"options"`
}

// FormDef declares a form and its questions in order.
type FormDef struct {
	Slug        string        `json:"slug" yaml:"slug"`
	Name        string        `json:"name,omitempty" yaml:"name,omitempty"`
	Description string        `json:"description,omitempty" yaml:"description,omitempty"`
	Questions   []QuestionDef `json:"questions" yaml:"questions"`
}

// QuestionDef declares a question. SubForm and RowForm hold form slugs.
type QuestionDef struct {
	Slug             string         `json:"slug" yaml:"slug"`
	Label            string         `json:"label,omitempty" yaml:"label,omitempty"`
	Type             string         `json:"type" yaml:"type"`
	MinValue         *float64       `json:"minValue,omitempty" yaml:"minValue,omitempty"`
	MaxValue         *float64       `json:"maxValue,omitempty" yaml:"maxValue,omitempty"`
	MaxLength        *int           `json:"maxLength,omitempty" yaml:"maxLength,omitempty"`
	IsHidden         string         `json:"isHidden,omitempty" yaml:"isHidden,omitempty"`
	IsRequired       string         `json:"isRequired,omitempty" yaml:"isRequired,omitempty"`
	DataSource       string         `json:"dataSource,omitempty" yaml:"dataSource,omitempty"`
	FormatValidators []string       `json:"formatValidators,omitempty" yaml:"formatValidators,omitempty"`
	Options          []model.Option `json:"options,omitempty" yaml:"options,omitempty"`
	SubForm          string         `json:"subForm,omitempty" yaml:"subForm,omitempty"`
	RowForm          string         `json:"rowForm,omitempty" yaml:"rowForm,omitempty"`
	StaticContent    string         `json:"staticContent,omitempty" yaml:"staticContent,omitempty"`
	Meta             map[string]any `json:"meta,omitempty" yaml:"meta,omitempty"`
}

// Parse decodes a definition file, trying JSON first and YAML second.
func Parse(data []byte, source string) (File, error) {
	var file File
	if len(strings.TrimSpace(string(data))) == 0 {
		return File{}, fmt.Errorf("formdef: file %s is empty", source)
	}
	if err := json.Unmarshal(data, &file); err == nil {
		return file, nil
	}
	file = File{}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return File{}, fmt.Errorf("formdef: parse %s: invalid JSON or YAML: %w", source, err)
	}
	return file, nil
}

func isDefinitionFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}

// Export converts forms back into a definition file. Forms reachable through
// sub-form and row-form references are included once, after the forms that
// reference them.
func Export(forms ...*model.Form) File {
	var out File
	seen := make(map[string]struct{})
	var visit func(form *model.Form)
	visit = func(form *model.Form) {
		if form == nil {
			return
		}
		if _, ok := seen[form.Slug]; ok {
			return
		}
		seen[form.Slug] = struct{}{}

		def := FormDef{Slug: form.Slug, Name: form.Name, Description: form.Description}
		var nested []*model.Form
		for _, q := range form.Questions {
			qd := QuestionDef{
				Slug:             q.Slug,
				Label:            q.Label,
				Type:             string(q.Type),
				MinValue:         q.MinValue,
				MaxValue:         q.MaxValue,
				MaxLength:        q.MaxLength,
				IsHidden:         q.IsHidden,
				IsRequired:       q.IsRequired,
				DataSource:       q.DataSource,
				FormatValidators: append([]string(nil), q.FormatValidators...),
				Options:          append([]model.Option(nil), q.Options...),
				StaticContent:    q.StaticContent,
				Meta:             q.Meta,
			}
			if q.SubForm != nil {
				qd.SubForm = q.SubForm.Slug
				nested = append(nested, q.SubForm)
			}
			if q.RowForm != nil {
				qd.RowForm = q.RowForm.Slug
				nested = append(nested, q.RowForm)
			}
			def.Questions = append(def.Questions, qd)
		}
		out.Forms = append(out.Forms, def)
		for _, child := range nested {
			visit(child)
		}
	}
	for _, form := range forms {
		visit(form)
	}
	return out
}
