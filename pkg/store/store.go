// Package store persists the labels recorded for dynamic choice answers.
//
// Records are keyed by (document, question, slug). The first validation that
// accepts a value records it; later validations of the same value in the same
// document leave the original record untouched.
package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/goliatone/go-formval/pkg/model"
)

// ErrInvalidOption is returned when a record misses part of its key.
var ErrInvalidOption = errors.New("store: dynamic option requires document, question and slug")

// DynamicOptionStore is the get-or-create persistence used by the answer
// validator.
type DynamicOptionStore interface {
	// GetOrCreate returns the stored record for the option key, creating it
	// from opt when absent. created reports whether a new record was written.
	GetOrCreate(ctx context.Context, opt model.DynamicOption) (stored model.DynamicOption, created bool, err error)
	// List returns the records of a document ordered by question then slug.
	List(ctx context.Context, documentID string) ([]model.DynamicOption, error)
}

func checkKey(opt model.DynamicOption) error {
	if opt.DocumentID == "" || opt.Question == "" || opt.Slug == "" {
		return ErrInvalidOption
	}
	return nil
}

func stamp(opt model.DynamicOption, now func() time.Time) model.DynamicOption {
	if opt.CreatedAt.IsZero() {
		opt.CreatedAt = now().UTC()
	}
	return opt
}

type memoryKey struct {
	document string
	question string
	slug     string
}

// Memory is an in-process store, used by default and in tests.
type Memory struct {
	mu      sync.Mutex
	now     func() time.Time
	records map[memoryKey]model.DynamicOption
}

var _ DynamicOptionStore = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{now: time.Now, records: make(map[memoryKey]model.DynamicOption)}
}

func (m *Memory) GetOrCreate(ctx context.Context, opt model.DynamicOption) (model.DynamicOption, bool, error) {
	if err := ctx.Err(); err != nil {
		return model.DynamicOption{}, false, err
	}
	if err := checkKey(opt); err != nil {
		return model.DynamicOption{}, false, err
	}
	key := memoryKey{document: opt.DocumentID, question: opt.Question, slug: opt.Slug}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.records[key]; ok {
		return existing, false, nil
	}
	opt = stamp(opt, m.now)
	m.records[key] = opt
	return opt, true, nil
}

func (m *Memory) List(ctx context.Context, documentID string) ([]model.DynamicOption, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	out := make([]model.DynamicOption, 0)
	for key, opt := range m.records {
		if key.document == documentID {
			out = append(out, opt)
		}
	}
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Question != out[j].Question {
			return out[i].Question < out[j].Question
		}
		return out[i].Slug < out[j].Slug
	})
	return out, nil
}
