package formatvalidator

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-formval/pkg/model"
)

// FormatValidator checks the textual shape of an answer value.
type FormatValidator interface {
	Slug() string
	Name() string
	Validate(value any, doc *model.Document) error
}

// Error is returned by format validators when a value is rejected. The
// validation engine attaches the offending question slug.
type Error struct {
	Validator string
	Message   string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// Registry maps format validator slugs to implementations.
type Registry struct {
	mu         sync.RWMutex
	validators map[string]FormatValidator
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{validators: make(map[string]FormatValidator)}
}

// NewDefaultRegistry returns a registry preloaded with the built-in
// validators.
func NewDefaultRegistry() *Registry {
	reg := NewRegistry()
	for _, v := range Builtins() {
		reg.Register(v)
	}
	return reg
}

// Register adds validator under its slug, replacing any previous entry.
func (r *Registry) Register(validator FormatValidator) {
	if r == nil || validator == nil {
		return
	}
	slug := strings.TrimSpace(validator.Slug())
	if slug == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.validators == nil {
		r.validators = make(map[string]FormatValidator)
	}
	r.validators[slug] = validator
}

func (r *Registry) Lookup(slug string) (FormatValidator, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.validators[slug]
	return v, ok
}

func (r *Registry) Has(slug string) bool {
	_, ok := r.Lookup(slug)
	return ok
}

// Slugs returns the registered slugs in sorted order.
func (r *Registry) Slugs() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.validators))
	for slug := range r.validators {
		out = append(out, slug)
	}
	sort.Strings(out)
	return out
}

// Missing returns the entries of slugs that are not registered, preserving
// order and dropping duplicates.
func (r *Registry) Missing(slugs []string) []string {
	var missing []string
	seen := make(map[string]struct{}, len(slugs))
	for _, slug := range slugs {
		if _, dup := seen[slug]; dup {
			continue
		}
		seen[slug] = struct{}{}
		if !r.Has(slug) {
			missing = append(missing, slug)
		}
	}
	return missing
}

// textValues flattens a scalar or list answer into the strings a format
// validator inspects. Nil values produce nothing.
func textValues(value any) []string {
	switch v := value.(type) {
	case nil:
		return nil
	case string:
		return []string{v}
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, textValues(item)...)
		}
		return out
	default:
		return []string{fmt.Sprint(v)}
	}
}
