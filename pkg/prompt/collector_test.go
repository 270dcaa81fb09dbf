package prompt

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formval/pkg/datasource"
	"github.com/goliatone/go-formval/pkg/model"
	"github.com/goliatone/go-formval/pkg/validation"
)

type stubDriver struct {
	inputs       []string
	selectIdx    []int
	multiIdx     [][]int
	confirm      []bool
	textAreas    []string
	infoMessages []string
	prompts      []string
	inputPos     int
	selectPos    int
	multiPos     int
	confirmPos   int
	textPos      int
	inputErr     error
}

func (s *stubDriver) Text(_ context.Context, message string, multiline bool) (string, error) {
	s.prompts = append(s.prompts, message)
	if multiline {
		if s.textPos >= len(s.textAreas) {
			return "", errors.New("no textarea scripted")
		}
		val := s.textAreas[s.textPos]
		s.textPos++
		return val, nil
	}
	if s.inputErr != nil {
		return "", s.inputErr
	}
	if s.inputPos >= len(s.inputs) {
		return "", errors.New("no input scripted")
	}
	val := s.inputs[s.inputPos]
	s.inputPos++
	return val, nil
}

func (s *stubDriver) Confirm(_ context.Context, message string, _ bool) (bool, error) {
	s.prompts = append(s.prompts, message)
	if s.confirmPos >= len(s.confirm) {
		return false, errors.New("no confirm scripted")
	}
	val := s.confirm[s.confirmPos]
	s.confirmPos++
	return val, nil
}

func (s *stubDriver) Choose(_ context.Context, message string, _ []string, many bool) ([]int, error) {
	s.prompts = append(s.prompts, message)
	if many {
		if s.multiPos >= len(s.multiIdx) {
			return nil, errors.New("no multiselect scripted")
		}
		val := s.multiIdx[s.multiPos]
		s.multiPos++
		return val, nil
	}
	if s.selectPos >= len(s.selectIdx) {
		return nil, errors.New("no select scripted")
	}
	val := s.selectIdx[s.selectPos]
	s.selectPos++
	return []int{val}, nil
}

func (s *stubDriver) Info(_ context.Context, msg string) error {
	s.infoMessages = append(s.infoMessages, msg)
	return nil
}

func ptr(v float64) *float64 { return &v }

func tripForm() *model.Form {
	leg := &model.Form{Slug: "leg", Questions: []*model.Question{
		{Slug: "destination", Type: model.QuestionTypeText},
	}}
	return &model.Form{Slug: "trip", Questions: []*model.Question{
		{Slug: "intro", Type: model.QuestionTypeStatic, StaticContent: "Welcome"},
		{Slug: "mode", Type: model.QuestionTypeChoice, Options: []model.Option{
			{Slug: "car", Label: "Car"}, {Slug: "train", Label: "Train"},
		}},
		{Slug: "plate", Type: model.QuestionTypeText, IsHidden: "'mode'|answer != 'car'"},
		{Slug: "seats", Type: model.QuestionTypeInteger, MinValue: ptr(1), MaxValue: ptr(9)},
		{Slug: "tags", Type: model.QuestionTypeMultipleChoice, IsRequired: "false", Options: []model.Option{
			{Slug: "a"}, {Slug: "b"},
		}},
		{Slug: "legs", Type: model.QuestionTypeTable, RowForm: leg},
		{Slug: "when", Type: model.QuestionTypeDate, IsRequired: "false"},
	}}
}

func TestCollectorFillsVisibleQuestions(t *testing.T) {
	t.Parallel()

	driver := &stubDriver{
		inputs:    []string{"abc", "12", "3", "Bern", ""},
		selectIdx: []int{1},
		multiIdx:  [][]int{{1}},
		confirm:   []bool{true, false},
	}
	collector, err := NewCollector(validation.New(), WithDriver(driver))
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}

	doc, err := collector.Fill(context.Background(), tripForm(), "t1")
	if err != nil {
		t.Fatalf("Fill: %v", err)
	}

	got := make(map[string]any)
	for _, a := range doc.Answers {
		got[a.QuestionSlug()] = validation.AnswerValue(a)
	}
	legs, _ := doc.Answer("legs")
	if len(legs.Documents) != 1 || legs.Documents[0].ID != "t1.legs.0" {
		t.Fatalf("unexpected rows %#v", legs.Documents)
	}
	dest, _ := legs.Documents[0].Answer("destination")
	if dest.Value != "Bern" {
		t.Fatalf("unexpected destination %#v", dest.Value)
	}
	delete(got, "legs")

	want := map[string]any{
		"mode":  "train",
		"seats": int64(3),
		"tags":  []any{"b"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("answers mismatch (-want +got):\n%s", diff)
	}

	wantInfo := []string{
		"Welcome",
		`"abc" is not a whole number.`,
		"Invalid value 12. Should be of type int, not lower than 1 and not greater than 9",
	}
	if diff := cmp.Diff(wantInfo, driver.infoMessages); diff != "" {
		t.Fatalf("info mismatch (-want +got):\n%s", diff)
	}
	for _, p := range driver.prompts {
		if p == "plate" {
			t.Fatalf("hidden question was prompted")
		}
	}

	report, err := validation.New().GetDocumentValidity(context.Background(), doc)
	if err != nil || !report.IsValid {
		t.Fatalf("expected a valid document, got %#v (%v)", report, err)
	}
}

func TestCollectorRepromptsRequiredAndUsesDataSourceOptions(t *testing.T) {
	t.Parallel()

	sources := datasource.NewRegistry()
	sources.Register("people", datasource.NewStatic([]model.Option{
		{Slug: "ada", Label: "Ada"}, {Slug: "grace", Label: "Grace"},
	}))
	v := validation.New(validation.WithDataSources(sources))

	form := &model.Form{Slug: "review", Questions: []*model.Question{
		{Slug: "reviewer", Type: model.QuestionTypeDynamicChoice, DataSource: "people"},
		{Slug: "color", Type: model.QuestionTypeChoice, IsRequired: "false", Options: []model.Option{{Slug: "red"}}},
		{Slug: "notes", Type: model.QuestionTypeTextarea},
	}}
	driver := &stubDriver{
		selectIdx: []int{1, 0},
		textAreas: []string{"  ", "fine"},
	}
	collector, err := NewCollector(v, WithDriver(driver))
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}

	doc, err := collector.Fill(context.Background(), form, "r1")
	if err != nil {
		t.Fatalf("Fill: %v", err)
	}

	var slugs []string
	for _, a := range doc.Answers {
		slugs = append(slugs, a.QuestionSlug())
	}
	if diff := cmp.Diff([]string{"reviewer", "notes"}, slugs); diff != "" {
		t.Fatalf("answered slugs mismatch (-want +got):\n%s", diff)
	}
	reviewer, _ := doc.Answer("reviewer")
	if reviewer.Value != "grace" {
		t.Fatalf("unexpected reviewer %#v", reviewer.Value)
	}
	if diff := cmp.Diff([]string{"notes is required."}, driver.infoMessages); diff != "" {
		t.Fatalf("info mismatch (-want +got):\n%s", diff)
	}

	stored, err := v.Store().List(context.Background(), "r1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(stored) != 1 || stored[0].Slug != "grace" || stored[0].Label != "Grace" {
		t.Fatalf("unexpected stored options %#v", stored)
	}
}

func TestCollectorPropagatesAbort(t *testing.T) {
	t.Parallel()

	form := &model.Form{Slug: "f", Questions: []*model.Question{{Slug: "name", Type: model.QuestionTypeText}}}
	collector, _ := NewCollector(nil, WithDriver(&stubDriver{inputErr: ErrAborted}))

	if _, err := collector.Fill(context.Background(), form, "x"); !errors.Is(err, ErrAborted) {
		t.Fatalf("expected ErrAborted, got %v", err)
	}
}
