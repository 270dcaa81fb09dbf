package formdef

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formval/pkg/datasource"
	"github.com/goliatone/go-formval/pkg/model"
)

func loadFixtureSet(t *testing.T) *Set {
	t.Helper()
	set, err := LoadFS(os.DirFS("testdata/forms"))
	if err != nil {
		t.Fatalf("LoadFS: %v", err)
	}
	return set
}

func TestLoadFSLinksForms(t *testing.T) {
	t.Parallel()

	set := loadFixtureSet(t)

	order, ok := set.Form("order")
	if !ok {
		t.Fatalf("order form not loaded")
	}
	shipping, _ := order.Question("shipping")
	if shipping.SubForm == nil || shipping.SubForm.Slug != "shipping-address" {
		t.Fatalf("expected shipping to link its sub form, got %#v", shipping.SubForm)
	}
	lines, _ := order.Question("lines")
	if lines.RowForm == nil || lines.RowForm.Slug != "order-line" {
		t.Fatalf("expected lines to link its row form, got %#v", lines.RowForm)
	}

	var slugs []string
	for _, q := range order.AllQuestions() {
		slugs = append(slugs, q.Slug)
	}
	want := []string{"intro", "customer", "delivery", "shipping", "street", "email", "lines", "due", "contract"}
	if diff := cmp.Diff(want, slugs); diff != "" {
		t.Fatalf("question order mismatch (-want +got):\n%s", diff)
	}

	quantity, ok := set.Question("quantity")
	if !ok || quantity.MinValue == nil || *quantity.MinValue != 1 || *quantity.MaxValue != 100 {
		t.Fatalf("unexpected quantity bounds %#v", quantity)
	}
}

func TestRegisterDataSources(t *testing.T) {
	t.Parallel()

	set := loadFixtureSet(t)
	reg := datasource.NewRegistry()
	var wrapped []string
	set.RegisterDataSources(reg, func(name string, src datasource.DataSource) datasource.DataSource {
		wrapped = append(wrapped, name)
		return src
	})

	if diff := cmp.Diff([]string{"customers"}, wrapped); diff != "" {
		t.Fatalf("wrapped mismatch (-want +got):\n%s", diff)
	}
	src, ok := reg.Lookup("customers")
	if !ok {
		t.Fatalf("customers not registered")
	}
	label, valid, err := src.ValidateAnswerValue(context.Background(), "grace", nil, nil)
	if err != nil || !valid || label != "Grace Hopper" {
		t.Fatalf("unexpected lookup result (%q, %v, %v)", label, valid, err)
	}
}

func TestLoadFSRejectsBrokenDefinitions(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		files map[string]string
		want  string
	}{
		"duplicate question": {
			files: map[string]string{
				"a.yaml": "forms:\n  - slug: a\n    questions:\n      - {slug: x, type: text}\n",
				"b.yaml": "forms:\n  - slug: b\n    questions:\n      - {slug: x, type: text}\n",
			},
			want: `duplicate question "x"`,
		},
		"duplicate form": {
			files: map[string]string{
				"a.yaml": "forms:\n  - slug: a\n    questions: []\n  - slug: a\n    questions: []\n",
			},
			want: `duplicate form "a"`,
		},
		"unknown type": {
			files: map[string]string{
				"a.yaml": "forms:\n  - slug: a\n    questions:\n      - {slug: x, type: hologram}\n",
			},
			want: `unknown type "hologram"`,
		},
		"unknown sub form": {
			files: map[string]string{
				"a.yaml": "forms:\n  - slug: a\n    questions:\n      - {slug: x, type: form, subForm: nope}\n",
			},
			want: `unknown sub form "nope"`,
		},
		"table without row form": {
			files: map[string]string{
				"a.yaml": "forms:\n  - slug: a\n    questions:\n      - {slug: x, type: table}\n",
			},
			want: "requires a row form",
		},
		"cycle": {
			files: map[string]string{
				"a.yaml": "forms:\n  - slug: a\n    questions:\n      - {slug: x, type: form, subForm: b}\n  - slug: b\n    questions:\n      - {slug: y, type: table, rowForm: a}\n",
			},
			want: "form reference cycle a -> b -> a",
		},
		"empty file": {
			files: map[string]string{"a.yaml": "  \n"},
			want:  "is empty",
		},
	}

	for name, tc := range cases {
		fsys := fstest.MapFS{}
		for path, body := range tc.files {
			fsys[path] = &fstest.MapFile{Data: []byte(body)}
		}
		_, err := LoadFS(fsys)
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: expected error containing %q, got %v", name, tc.want, err)
		}
	}
}

func TestDecodeDocument(t *testing.T) {
	t.Parallel()

	set := loadFixtureSet(t)
	data, err := os.ReadFile("testdata/order-document.json")
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}

	doc, err := set.DecodeDocument(data)
	if err != nil {
		t.Fatalf("DecodeDocument: %v", err)
	}
	if doc.ID != "order-1" || doc.FormSlug() != "order" {
		t.Fatalf("unexpected document header %s/%s", doc.ID, doc.FormSlug())
	}

	var slugs []string
	for _, a := range doc.Answers {
		slugs = append(slugs, a.QuestionSlug())
	}
	if diff := cmp.Diff([]string{"customer", "delivery", "street", "lines", "due", "contract"}, slugs); diff != "" {
		t.Fatalf("answer order mismatch (-want +got):\n%s", diff)
	}

	due, _ := doc.Answer("due")
	if due.Date == nil || !due.Date.Equal(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected date %v", due.Date)
	}
	contract, _ := doc.Answer("contract")
	if contract.File == nil || contract.File.Name != "contract.pdf" {
		t.Fatalf("unexpected file %#v", contract.File)
	}

	lines, _ := doc.Answer("lines")
	if len(lines.Documents) != 2 {
		t.Fatalf("expected two rows, got %d", len(lines.Documents))
	}
	row := lines.Documents[0]
	if row.ID != "order-1.lines.0" || row.FormSlug() != "order-line" {
		t.Fatalf("unexpected row header %s/%s", row.ID, row.FormSlug())
	}
	quantity, _ := row.Answer("quantity")
	if quantity.Value != int64(2) {
		t.Fatalf("expected int64 quantity, got %#v", quantity.Value)
	}
	price, _ := row.Answer("price")
	if price.Value != float64(3) {
		t.Fatalf("expected integral price widened to float64, got %#v", price.Value)
	}
}

func TestDecodeDocumentYAMLAndDefaults(t *testing.T) {
	t.Parallel()

	set := loadFixtureSet(t)
	doc, err := set.DecodeDocument([]byte("form: order-line\nanswers:\n  product: Widget\n  quantity: 3\n"))
	if err != nil {
		t.Fatalf("DecodeDocument: %v", err)
	}
	if doc.ID == "" {
		t.Fatalf("expected generated id")
	}
	quantity, _ := doc.Answer("quantity")
	if quantity.Value != int64(3) {
		t.Fatalf("expected int64 quantity, got %#v", quantity.Value)
	}
}

func TestDecodeDocumentErrors(t *testing.T) {
	t.Parallel()

	set := loadFixtureSet(t)
	cases := map[string]string{
		`{"form": "missing", "answers": {}}`:                   "unknown form",
		`{"form": "order", "answers": {"nope": 1}}`:            `has no question "nope"`,
		`{"form": "order", "answers": {"intro": "x"}}`:         "cannot be answered",
		`{"form": "order", "answers": {"due": "01.05.2024"}}`:  `question "due"`,
		`{"form": "order", "answers": {"lines": "x"}}`:         "expects a list of rows",
		`{"form": "order", "answers": {"lines": [{"x": 1}]}}`:  `has no question "x"`,
		`{"form": "order", "answers": {"contract": {"n": 1}}}`: "expects a name",
	}
	for payload, want := range cases {
		_, err := set.DecodeDocument([]byte(payload))
		if err == nil || !strings.Contains(err.Error(), want) {
			t.Fatalf("%s: expected error containing %q, got %v", payload, want, err)
		}
	}
	if _, err := set.DecodeDocument([]byte(`{"form": "missing"}`)); !errors.Is(err, ErrUnknownForm) {
		t.Fatalf("expected ErrUnknownForm, got %v", err)
	}
}

func TestEncodeDocumentRoundTrip(t *testing.T) {
	t.Parallel()

	set := loadFixtureSet(t)
	data, err := os.ReadFile("testdata/order-document.json")
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	doc, err := set.DecodeDocument(data)
	if err != nil {
		t.Fatalf("DecodeDocument: %v", err)
	}

	again, err := set.BuildDocument(EncodeDocument(doc))
	if err != nil {
		t.Fatalf("BuildDocument: %v", err)
	}
	if diff := cmp.Diff(EncodeDocument(doc), EncodeDocument(again)); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestExportRebuildsEquivalentSet(t *testing.T) {
	t.Parallel()

	set := loadFixtureSet(t)
	order, _ := set.Form("order")
	file := Export(order)

	var slugs []string
	for _, f := range file.Forms {
		slugs = append(slugs, f.Slug)
	}
	if diff := cmp.Diff([]string{"order", "shipping-address", "order-line"}, slugs); diff != "" {
		t.Fatalf("exported forms mismatch (-want +got):\n%s", diff)
	}

	rebuilt, err := Build(file)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if diff := cmp.Diff(Export(order), Export(rebuilt.Forms()[0])); diff != "" {
		t.Fatalf("rebuilt export mismatch (-want +got):\n%s", diff)
	}
}

const petStore = `
openapi: 3.0.3
info: {title: Pets, version: "1.0"}
paths:
  /pets:
    post:
      operationId: createPet
      summary: Create a pet
      requestBody:
        content:
          application/json:
            schema:
              type: object
              required: [name, kind]
              properties:
                id: {type: string, readOnly: true}
                name: {type: string, maxLength: 20}
                kind: {type: string, enum: [cat, dog]}
                born: {type: string, format: date}
                weight: {type: number, minimum: 0}
                age: {type: integer, maximum: 40}
                vaccinated: {type: boolean}
                tags:
                  type: array
                  items: {type: string, enum: [calm, playful]}
                owner:
                  type: object
                  properties:
                    email: {type: string, format: email}
                visits:
                  type: array
                  items:
                    type: object
                    required: [date]
                    properties:
                      date: {type: string, format: date}
      responses:
        "201": {description: created}
`

func TestFromOpenAPI(t *testing.T) {
	t.Parallel()

	file, err := FromOpenAPI(context.Background(), []byte(petStore), "createPet")
	if err != nil {
		t.Fatalf("FromOpenAPI: %v", err)
	}
	set, err := Build(file)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	form, ok := set.Form("createpet")
	if !ok {
		t.Fatalf("root form missing, got %#v", file.Forms)
	}
	if form.Name != "Create a pet" {
		t.Fatalf("unexpected form name %q", form.Name)
	}

	types := make(map[string]model.QuestionType)
	for _, q := range form.AllQuestions() {
		types[q.Slug] = q.Type
	}
	want := map[string]model.QuestionType{
		"age":         model.QuestionTypeInteger,
		"born":        model.QuestionTypeDate,
		"kind":        model.QuestionTypeChoice,
		"name":        model.QuestionTypeText,
		"owner":       model.QuestionTypeForm,
		"owner-email": model.QuestionTypeText,
		"tags":        model.QuestionTypeMultipleChoice,
		"vaccinated":  model.QuestionTypeChoice,
		"visits":      model.QuestionTypeTable,
		"weight":      model.QuestionTypeFloat,
	}
	if diff := cmp.Diff(want, types); diff != "" {
		t.Fatalf("question types mismatch (-want +got):\n%s", diff)
	}

	name, _ := set.Question("name")
	if name.MaxLength == nil || *name.MaxLength != 20 || name.RequiredExpression() != "true" {
		t.Fatalf("unexpected name question %#v", name)
	}
	age, _ := set.Question("age")
	if age.RequiredExpression() != "false" || age.MaxValue == nil || *age.MaxValue != 40 {
		t.Fatalf("unexpected age question %#v", age)
	}
	email, _ := set.Question("owner-email")
	if diff := cmp.Diff([]string{"email"}, email.FormatValidators); diff != "" {
		t.Fatalf("format validators mismatch (-want +got):\n%s", diff)
	}
	visits, _ := set.Question("visits")
	if visits.RowForm == nil || visits.RowForm.Slug != "visits-row" {
		t.Fatalf("unexpected row form %#v", visits.RowForm)
	}
	visitDate, _ := set.Question("visits-date")
	if visitDate == nil || visitDate.Type != model.QuestionTypeDate || visitDate.RequiredExpression() != "true" {
		t.Fatalf("unexpected visit date question %#v", visitDate)
	}

	if _, err := FromOpenAPI(context.Background(), []byte(petStore), "deletePet"); !errors.Is(err, ErrOperationNotFound) {
		t.Fatalf("expected ErrOperationNotFound, got %v", err)
	}
}
