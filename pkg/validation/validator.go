package validation

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-formval/pkg/datasource"
	"github.com/goliatone/go-formval/pkg/formatvalidator"
	"github.com/goliatone/go-formval/pkg/model"
	"github.com/goliatone/go-formval/pkg/store"
	"github.com/goliatone/go-formval/pkg/visibility"
	"github.com/goliatone/go-formval/pkg/visibility/expr"
)

const defaultMaxDepth = 32

// Option customises the validator configuration.
type Option func(*Validator)

// WithLogger sets the logger used for internal evaluation failures.
func WithLogger(logger zerolog.Logger) Option {
	return func(v *Validator) {
		v.logger = logger
	}
}

// WithEvaluator injects the expression evaluator used for is_hidden and
// is_required.
func WithEvaluator(evaluator visibility.Evaluator) Option {
	return func(v *Validator) {
		v.evaluator = evaluator
	}
}

// WithDataSources injects the registry consulted for dynamic choice
// questions.
func WithDataSources(registry *datasource.Registry) Option {
	return func(v *Validator) {
		v.dataSources = registry
	}
}

// WithFormatValidators injects the format validator registry.
func WithFormatValidators(registry *formatvalidator.Registry) Option {
	return func(v *Validator) {
		v.formatValidators = registry
	}
}

// WithStore injects the store recording accepted dynamic options.
func WithStore(s store.DynamicOptionStore) Option {
	return func(v *Validator) {
		v.store = s
	}
}

// WithAnswerErrorAggregation makes document validation check every visible
// answer and return all failures together instead of stopping at the first.
func WithAnswerErrorAggregation() Option {
	return func(v *Validator) {
		v.aggregate = true
	}
}

// WithMaxDepth bounds how deep sub-forms and table rows may nest.
func WithMaxDepth(depth int) Option {
	return func(v *Validator) {
		if depth > 0 {
			v.maxDepth = depth
		}
	}
}

// Validator runs the document validation pipeline: value snapshot,
// requiredness, then per-answer checks. A Validator holds no per-document
// state and may be shared between goroutines as long as its collaborators
// allow it.
type Validator struct {
	logger           zerolog.Logger
	evaluator        visibility.Evaluator
	dataSources      *datasource.Registry
	formatValidators *formatvalidator.Registry
	store            store.DynamicOptionStore
	aggregate        bool
	maxDepth         int
	inputs           *validator.Validate
	checks           map[model.QuestionType]answerCheck
	now              func() time.Time
}

// New constructs a Validator. Collaborators that are not supplied fall back to
// the built-in implementations: the expression evaluator, an empty data source
// registry, the default format validators and an in-memory store.
func New(options ...Option) *Validator {
	v := &Validator{
		logger:   zerolog.Nop(),
		maxDepth: defaultMaxDepth,
		now:      time.Now,
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(v)
	}
	v.applyDefaults()
	return v
}

func (v *Validator) applyDefaults() {
	if v.evaluator == nil {
		v.evaluator = expr.New()
	}
	if v.dataSources == nil {
		v.dataSources = datasource.NewRegistry()
	}
	if v.formatValidators == nil {
		v.formatValidators = formatvalidator.NewDefaultRegistry()
	}
	if v.store == nil {
		v.store = store.NewMemory()
	}
	v.inputs = newInputValidator()
	v.checks = v.answerChecks()
}

// DataSources exposes the configured data source registry.
func (v *Validator) DataSources() *datasource.Registry {
	return v.dataSources
}

// FormatValidators exposes the configured format validator registry.
func (v *Validator) FormatValidators() *formatvalidator.Registry {
	return v.formatValidators
}

// Store exposes the dynamic option store.
func (v *Validator) Store() store.DynamicOptionStore {
	return v.store
}

// Evaluator exposes the expression evaluator.
func (v *Validator) Evaluator() visibility.Evaluator {
	return v.evaluator
}
