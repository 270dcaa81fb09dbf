package formdef

import (
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/goliatone/go-formval/pkg/datasource"
	"github.com/goliatone/go-formval/pkg/model"
)

// Set holds linked forms, their questions and static data sources.
type Set struct {
	forms       map[string]*model.Form
	order       []string
	questions   map[string]*model.Question
	dataSources map[string][]model.Option
}

type sourcedFile struct {
	file   File
	source string
}

// LoadFS walks fsys and builds a Set from every JSON/YAML file found. When
// fsys is nil or holds no definition files the returned set is empty.
func LoadFS(fsys fs.FS) (*Set, error) {
	if fsys == nil {
		return Build()
	}

	var files []sourcedFile
	err := fs.WalkDir(fsys, ".", func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !isDefinitionFile(path) {
			return nil
		}
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("formdef: read %s: %w", path, err)
		}
		file, err := Parse(data, path)
		if err != nil {
			return err
		}
		files = append(files, sourcedFile{file: file, source: path})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return build(files)
}

// Build links already parsed definition files into a Set.
func Build(files ...File) (*Set, error) {
	sourced := make([]sourcedFile, 0, len(files))
	for idx, file := range files {
		sourced = append(sourced, sourcedFile{file: file, source: fmt.Sprintf("file #%d", idx)})
	}
	return build(sourced)
}

type pendingLink struct {
	question *model.Question
	subForm  string
	rowForm  string
	source   string
}

func build(files []sourcedFile) (*Set, error) {
	set := &Set{
		forms:       make(map[string]*model.Form),
		questions:   make(map[string]*model.Question),
		dataSources: make(map[string][]model.Option),
	}

	var links []pendingLink
	for _, sf := range files {
		for name, def := range sf.file.DataSources {
			trimmed := strings.TrimSpace(name)
			if trimmed == "" {
				return nil, fmt.Errorf("formdef: file %s defines a data source with an empty name", sf.source)
			}
			if _, exists := set.dataSources[trimmed]; exists {
				return nil, fmt.Errorf("formdef: duplicate data source %q (file %s)", trimmed, sf.source)
			}
			set.dataSources[trimmed] = append([]model.Option(nil), def.Options...)
		}

		for _, fd := range sf.file.Forms {
			slug := strings.TrimSpace(fd.Slug)
			if slug == "" {
				return nil, fmt.Errorf("formdef: file %s defines a form with an empty slug", sf.source)
			}
			if _, exists := set.forms[slug]; exists {
				return nil, fmt.Errorf("formdef: duplicate form %q (file %s)", slug, sf.source)
			}
			form := &model.Form{Slug: slug, Name: fd.Name, Description: fd.Description}

			for _, qd := range fd.Questions {
				q, err := newQuestion(qd, slug, sf.source)
				if err != nil {
					return nil, err
				}
				if _, exists := set.questions[q.Slug]; exists {
					return nil, fmt.Errorf("formdef: duplicate question %q in form %q (file %s)", q.Slug, slug, sf.source)
				}
				set.questions[q.Slug] = q
				form.Questions = append(form.Questions, q)
				if qd.SubForm != "" || qd.RowForm != "" || q.Type == model.QuestionTypeForm || q.Type == model.QuestionTypeTable {
					links = append(links, pendingLink{
						question: q,
						subForm:  strings.TrimSpace(qd.SubForm),
						rowForm:  strings.TrimSpace(qd.RowForm),
						source:   sf.source,
					})
				}
			}
			set.forms[slug] = form
			set.order = append(set.order, slug)
		}
	}

	for _, link := range links {
		if err := set.link(link); err != nil {
			return nil, err
		}
	}
	if err := set.checkCycles(); err != nil {
		return nil, err
	}
	return set, nil
}

func newQuestion(qd QuestionDef, form, source string) (*model.Question, error) {
	slug := strings.TrimSpace(qd.Slug)
	if slug == "" {
		return nil, fmt.Errorf("formdef: form %q (file %s) defines a question with an empty slug", form, source)
	}
	typ := model.QuestionType(strings.TrimSpace(qd.Type))
	if !typ.Valid() {
		return nil, fmt.Errorf("formdef: question %q (file %s) has unknown type %q", slug, source, qd.Type)
	}
	return &model.Question{
		Slug:             slug,
		Label:            qd.Label,
		Type:             typ,
		MinValue:         qd.MinValue,
		MaxValue:         qd.MaxValue,
		MaxLength:        qd.MaxLength,
		IsHidden:         qd.IsHidden,
		IsRequired:       qd.IsRequired,
		DataSource:       strings.TrimSpace(qd.DataSource),
		FormatValidators: append([]string(nil), qd.FormatValidators...),
		Options:          append([]model.Option(nil), qd.Options...),
		StaticContent:    qd.StaticContent,
		Meta:             qd.Meta,
	}, nil
}

func (s *Set) link(l pendingLink) error {
	q := l.question
	switch q.Type {
	case model.QuestionTypeForm:
		if l.rowForm != "" {
			return fmt.Errorf("formdef: form question %q (file %s) cannot declare a row form", q.Slug, l.source)
		}
		if l.subForm == "" {
			return fmt.Errorf("formdef: form question %q (file %s) requires a sub form", q.Slug, l.source)
		}
		form, ok := s.forms[l.subForm]
		if !ok {
			return fmt.Errorf("formdef: question %q (file %s) references unknown sub form %q", q.Slug, l.source, l.subForm)
		}
		q.SubForm = form
	case model.QuestionTypeTable:
		if l.subForm != "" {
			return fmt.Errorf("formdef: table question %q (file %s) cannot declare a sub form", q.Slug, l.source)
		}
		if l.rowForm == "" {
			return fmt.Errorf("formdef: table question %q (file %s) requires a row form", q.Slug, l.source)
		}
		form, ok := s.forms[l.rowForm]
		if !ok {
			return fmt.Errorf("formdef: question %q (file %s) references unknown row form %q", q.Slug, l.source, l.rowForm)
		}
		q.RowForm = form
	default:
		return fmt.Errorf("formdef: question %q (file %s) of type %s cannot reference forms", q.Slug, l.source, q.Type)
	}
	return nil
}

// checkCycles rejects forms that reference themselves through sub or row
// forms.
func (s *Set) checkCycles() error {
	const (
		unvisited = iota
		active
		done
	)
	state := make(map[string]int, len(s.forms))
	var path []string

	var visit func(form *model.Form) error
	visit = func(form *model.Form) error {
		switch state[form.Slug] {
		case done:
			return nil
		case active:
			start := 0
			for i, slug := range path {
				if slug == form.Slug {
					start = i
					break
				}
			}
			cycle := append(append([]string(nil), path[start:]...), form.Slug)
			return fmt.Errorf("formdef: form reference cycle %s", strings.Join(cycle, " -> "))
		}
		state[form.Slug] = active
		path = append(path, form.Slug)
		for _, q := range form.Questions {
			for _, child := range []*model.Form{q.SubForm, q.RowForm} {
				if child == nil {
					continue
				}
				if err := visit(child); err != nil {
					return err
				}
			}
		}
		path = path[:len(path)-1]
		state[form.Slug] = done
		return nil
	}

	for _, slug := range s.order {
		if err := visit(s.forms[slug]); err != nil {
			return err
		}
	}
	return nil
}

// Form returns the form registered under slug.
func (s *Set) Form(slug string) (*model.Form, bool) {
	if s == nil {
		return nil, false
	}
	form, ok := s.forms[slug]
	return form, ok
}

// Forms returns every form in load order.
func (s *Set) Forms() []*model.Form {
	if s == nil {
		return nil
	}
	out := make([]*model.Form, 0, len(s.order))
	for _, slug := range s.order {
		out = append(out, s.forms[slug])
	}
	return out
}

// Question returns the question registered under slug.
func (s *Set) Question(slug string) (*model.Question, bool) {
	if s == nil {
		return nil, false
	}
	q, ok := s.questions[slug]
	return q, ok
}

// DataSourceNames returns the declared static data sources sorted by name.
func (s *Set) DataSourceNames() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.dataSources))
	for name := range s.dataSources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegisterDataSources registers the declared static data sources in reg.
// wrap, when non-nil, decorates each source before registration.
func (s *Set) RegisterDataSources(reg *datasource.Registry, wrap func(name string, src datasource.DataSource) datasource.DataSource) {
	if s == nil || reg == nil {
		return
	}
	for _, name := range s.DataSourceNames() {
		var src datasource.DataSource = datasource.NewStatic(s.dataSources[name])
		if wrap != nil {
			src = wrap(name, src)
		}
		reg.Register(name, src)
	}
}
