package datasource

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-formval/pkg/model"
)

// ErrNotListable is returned by decorators when the wrapped source cannot
// enumerate its options.
var ErrNotListable = errors.New("datasource: source does not list options")

// DataSource resolves dynamic choice values at answer time. It returns the
// label of a valid value, or ok=false when the value is not a valid option.
// Errors are reserved for failures of the source itself.
type DataSource interface {
	ValidateAnswerValue(ctx context.Context, value string, doc *model.Document, question *model.Question) (label string, ok bool, err error)
}

// Lister is implemented by sources that can enumerate their options, used by
// interactive filling.
type Lister interface {
	Options(ctx context.Context) ([]model.Option, error)
}

// Registry maps data source names to implementations. It is populated at
// start-up and passed explicitly to the validator. Later registrations under
// the same name win.
type Registry struct {
	mu      sync.RWMutex
	sources map[string]DataSource
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{sources: make(map[string]DataSource)}
}

// Register adds source under name. Blank names and nil sources are ignored.
func (r *Registry) Register(name string, source DataSource) {
	if r == nil || source == nil {
		return
	}
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sources == nil {
		r.sources = make(map[string]DataSource)
	}
	r.sources[trimmed] = source
}

// Lookup returns the source registered under name.
func (r *Registry) Lookup(name string) (DataSource, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	source, ok := r.sources[strings.TrimSpace(name)]
	return source, ok
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.Lookup(name)
	return ok
}

// Names returns the registered names sorted alphabetically.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.sources))
	for name := range r.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
