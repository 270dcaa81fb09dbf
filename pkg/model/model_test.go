package model_test

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formval/pkg/model"
)

func TestAllQuestionsDescendsIntoSubForms(t *testing.T) {
	t.Parallel()

	address := &model.Form{
		Slug: "address",
		Questions: []*model.Question{
			{Slug: "street", Type: model.QuestionTypeText},
			{Slug: "city", Type: model.QuestionTypeText},
		},
	}
	rows := &model.Form{
		Slug:      "child",
		Questions: []*model.Question{{Slug: "child-name", Type: model.QuestionTypeText}},
	}
	root := &model.Form{
		Slug: "person",
		Questions: []*model.Question{
			{Slug: "name", Type: model.QuestionTypeText},
			{Slug: "address", Type: model.QuestionTypeForm, SubForm: address},
			{Slug: "children", Type: model.QuestionTypeTable, RowForm: rows},
		},
	}

	var got []string
	for _, q := range root.AllQuestions() {
		got = append(got, q.Slug)
	}
	want := []string{"name", "address", "street", "city", "children"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("AllQuestions mismatch (-want +got):\n%s", diff)
	}

	if _, ok := root.FindQuestion("city"); !ok {
		t.Fatalf("expected to find sub-form question")
	}
	if _, ok := root.FindQuestion("child-name"); ok {
		t.Fatalf("row form questions must not be part of the form tree")
	}
}

func TestQuestionExpressionDefaults(t *testing.T) {
	t.Parallel()

	q := &model.Question{Slug: "q"}
	if got := q.HiddenExpression(); got != model.DefaultHiddenExpression {
		t.Fatalf("hidden default: got %q", got)
	}
	if got := q.RequiredExpression(); got != model.DefaultRequiredExpression {
		t.Fatalf("required default: got %q", got)
	}

	q.IsHidden = "'other'|answer == 'x'"
	if got := q.HiddenExpression(); got != q.IsHidden {
		t.Fatalf("expected explicit expression, got %q", got)
	}
}

func TestAnswerUnion(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		name    string
		answer  *model.Answer
		kind    model.AnswerKind
		wantErr bool
	}{
		{name: "empty", answer: &model.Answer{}, kind: model.AnswerKindEmpty},
		{name: "value", answer: &model.Answer{Value: "x"}, kind: model.AnswerKindValue},
		{name: "file", answer: &model.Answer{File: &model.File{Name: "a.pdf"}}, kind: model.AnswerKindFile},
		{name: "date", answer: &model.Answer{Date: &now}, kind: model.AnswerKindDate},
		{name: "documents", answer: &model.Answer{Documents: []*model.Document{{ID: "row"}}}, kind: model.AnswerKindDocuments},
		{name: "value and date", answer: &model.Answer{Value: "x", Date: &now}, kind: model.AnswerKindValue, wantErr: true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := tc.answer.Kind(); got != tc.kind {
				t.Fatalf("kind: want %s, got %s", tc.kind, got)
			}
			err := tc.answer.Check()
			if tc.wantErr && err == nil {
				t.Fatalf("expected union violation")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestNormalizeValue(t *testing.T) {
	t.Parallel()

	got := model.NormalizeValue([]any{json.Number("10"), json.Number("1.5"), 3, float32(2), "x"})
	want := []any{int64(10), 1.5, int64(3), float64(2), "x"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("NormalizeValue mismatch (-want +got):\n%s", diff)
	}

	if got := model.NormalizeValue(json.Number("1e3")); got != float64(1000) {
		t.Fatalf("exponent literal should become float64, got %#v", got)
	}

	if got := model.NormalizeValue(uint64(42)); got != int64(42) {
		t.Fatalf("small unsigned should become int64, got %#v", got)
	}
	if got := model.NormalizeValue(uint64(math.MaxUint64)); got != float64(math.MaxUint64) {
		t.Fatalf("unsigned above MaxInt64 must not wrap, got %#v", got)
	}
	if got := model.NormalizeValue(uint64(1 << 63)); got != float64(1<<63) {
		t.Fatalf("1<<63 must not wrap to MinInt64, got %#v", got)
	}
}

func TestStringList(t *testing.T) {
	t.Parallel()

	if got, ok := model.StringList([]any{"a", "b"}); !ok || len(got) != 2 {
		t.Fatalf("expected string list, got %v (ok=%v)", got, ok)
	}
	if _, ok := model.StringList([]any{"a", int64(1)}); ok {
		t.Fatalf("mixed list must not be a string list")
	}
	if _, ok := model.StringList("a"); ok {
		t.Fatalf("scalar must not be a string list")
	}
}
