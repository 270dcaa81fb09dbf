package formval

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formval/pkg/datasource"
	"github.com/goliatone/go-formval/pkg/testsupport"
	"github.com/goliatone/go-formval/pkg/validation"
)

const formsDir = "pkg/formdef/testdata/forms"

func loadEngine(t *testing.T, options ...Option) *Engine {
	t.Helper()

	cache := datasource.NewMemoryLabelCache()
	engine, err := Load(os.DirFS(formsDir), func(name string, src datasource.DataSource) datasource.DataSource {
		return datasource.Cached(name, src, cache, time.Minute)
	}, options...)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return engine
}

func TestEngineValidDocument(t *testing.T) {
	t.Parallel()

	engine := loadEngine(t)
	payload := testsupport.MustReadGolden(t, "pkg/formdef/testdata/order-document.json")

	report, err := engine.Validity(testsupport.Context(), payload)
	if err != nil {
		t.Fatalf("Validity: %v", err)
	}
	want := Report{ID: "order-1", IsValid: true, Errors: []ReportError{}}
	if diff := cmp.Diff(want, report); diff != "" {
		t.Fatalf("report mismatch (-want +got):\n%s", diff)
	}
}

func TestEngineInvalidDocumentMatchesGolden(t *testing.T) {
	t.Parallel()

	engine := loadEngine(t)
	doc := testsupport.MustDecodeDocument(t, engine.Forms, "testdata/invalid-order.yaml")

	report, err := engine.Validator.GetDocumentValidity(testsupport.Context(), doc)
	if err != nil {
		t.Fatalf("GetDocumentValidity: %v", err)
	}

	goldenPath := "testdata/invalid-order.report.json"
	testsupport.WriteGolden(t, goldenPath, report)
	want := testsupport.MustLoadReport(t, goldenPath)
	if diff := testsupport.CompareGolden(want, report); diff != "" {
		t.Fatalf("report mismatch (-want +got):\n%s", diff)
	}
}

func TestEngineAggregatesAnswerErrors(t *testing.T) {
	t.Parallel()

	engine := loadEngine(t, validation.WithAnswerErrorAggregation())
	payload := []byte(`
id: order-3
form: order
answers:
  customer: ada
  delivery: shipping
  street: Main Street 1
  email: not-an-address
  lines:
    - {product: Widget, quantity: 200}
    - {product: Gadget, quantity: 1}
`)

	report, err := engine.Validity(context.Background(), payload)
	if err != nil {
		t.Fatalf("Validity: %v", err)
	}
	want := Report{ID: "order-3", IsValid: false, Errors: []ReportError{
		{Slug: "email", ErrorMsg: "Not an e-mail address"},
		{
			Slug:       "quantity",
			ErrorMsg:   "Invalid value 200. Should be of type int, not lower than 1 and not greater than 100",
			DocumentID: "order-3.lines.0",
		},
	}}
	if diff := cmp.Diff(want, report); diff != "" {
		t.Fatalf("report mismatch (-want +got):\n%s", diff)
	}
}

func TestEngineInternalErrorsAreNotReports(t *testing.T) {
	t.Parallel()

	// No data sources registered: the dynamic choice cannot be resolved.
	engine := loadEngine(t)
	engine.Validator = New()

	payload := testsupport.MustReadGolden(t, "pkg/formdef/testdata/order-document.json")
	_, err := engine.Validity(context.Background(), payload)

	var internal *InternalError
	if !errors.As(err, &internal) || !errors.Is(err, validation.ErrUnknownDataSource) {
		t.Fatalf("expected internal unknown data source error, got %v", err)
	}
}
