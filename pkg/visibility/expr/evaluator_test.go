package expr

import (
	"errors"
	"testing"

	"github.com/goliatone/go-formval/pkg/visibility"
)

func TestEvaluatorLiterals(t *testing.T) {
	t.Parallel()

	eval := New()
	cases := map[string]bool{
		"true":           true,
		"false":          false,
		"null":           false,
		"1":              true,
		"0":              false,
		"'x'":            true,
		"''":             false,
		"!false":         true,
		"true && false":  false,
		"false || true":  true,
		"(false || 1)":   true,
		"1 < 2 && 3 > 2": true,
		"2 <= 2":         true,
		"2 >= 3":         false,
		"'b' > 'a'":      true,
	}

	for src, want := range cases {
		got, err := eval.Evaluate(src, visibility.Context{})
		if err != nil {
			t.Fatalf("Evaluate(%q) returned error: %v", src, err)
		}
		if got != want {
			t.Fatalf("Evaluate(%q): want %v, got %v", src, want, got)
		}
	}
}

func TestEvaluatorAnswerTransform(t *testing.T) {
	t.Parallel()

	eval := New()
	ctx := visibility.Context{
		Form: "main",
		Answers: map[string]any{
			"color":    "red",
			"age":      int64(42),
			"weight":   72.5,
			"empty":    nil,
			"toppings": []any{"cheese", "ham"},
		},
	}

	cases := []struct {
		src  string
		want bool
	}{
		{src: `'color'|answer == 'red'`, want: true},
		{src: `'color'|answer != "red"`, want: false},
		{src: `'age'|answer > 40`, want: true},
		{src: `'age'|answer == 42`, want: true},
		{src: `'weight'|answer < 70`, want: false},
		{src: `'empty'|answer == null`, want: true},
		{src: `'empty'|answer`, want: false},
		{src: `'cheese' in 'toppings'|answer`, want: true},
		{src: `'olives' in 'toppings'|answer`, want: false},
		{src: `'color'|answer in ['red', 'blue']`, want: true},
		{src: `'re' in 'color'|answer`, want: true},
		{src: `form == 'main'`, want: true},
		{src: `!('color'|answer == 'red') || 'age'|answer >= 42`, want: true},
	}

	for _, tc := range cases {
		got, err := eval.Evaluate(tc.src, ctx)
		if err != nil {
			t.Fatalf("Evaluate(%q) returned error: %v", tc.src, err)
		}
		if got != tc.want {
			t.Fatalf("Evaluate(%q): want %v, got %v", tc.src, tc.want, got)
		}
	}
}

func TestEvaluatorMapBy(t *testing.T) {
	t.Parallel()

	ctx := visibility.Context{
		Answers: map[string]any{
			"children": []any{
				map[string]any{"child-name": "Ada", "child-age": int64(3)},
				map[string]any{"child-name": "Bob", "child-age": int64(9)},
			},
		},
	}

	ok, err := New().Evaluate(`'Bob' in 'children'|answer|mapby('child-name')`, ctx)
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if !ok {
		t.Fatalf("expected Bob to be found in the mapped column")
	}
}

func TestEvaluatorMissingReference(t *testing.T) {
	t.Parallel()

	for _, src := range []string{
		`'doesnotexist'|answer == 'x'`,
		`true || 'doesnotexist'|answer == 'x'`,
		`false && 'doesnotexist'|answer == 'x'`,
		`'doesnotexist'|answer == 'x' || true`,
		`!(false && 'doesnotexist'|answer)`,
	} {
		_, err := New().Evaluate(src, visibility.Context{
			Answers: map[string]any{"known": "x"},
		})
		if !errors.Is(err, visibility.ErrMissingReference) {
			t.Fatalf("Evaluate(%q): expected ErrMissingReference, got %v", src, err)
		}
		var missing *visibility.MissingReferenceError
		if !errors.As(err, &missing) || missing.Slug != "doesnotexist" {
			t.Fatalf("Evaluate(%q): expected missing slug doesnotexist, got %#v", src, missing)
		}
	}
}

func TestEvaluatorErrors(t *testing.T) {
	t.Parallel()

	eval := New()
	for _, src := range []string{
		"",
		"a = b",
		"'unterminated",
		"(true",
		"'x'|unknown",
		"'x' < 1",
		"true true",
		"1 in 2",
	} {
		_, err := eval.Evaluate(src, visibility.Context{Answers: map[string]any{}})
		if err == nil {
			t.Fatalf("Evaluate(%q): expected error", src)
		}
		if errors.Is(err, visibility.ErrMissingReference) {
			t.Fatalf("Evaluate(%q): syntax problems must not be reported as missing references", src)
		}
	}
}
