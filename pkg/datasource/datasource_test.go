package datasource

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/redis/go-redis/v9"

	"github.com/goliatone/go-formval/pkg/model"
)

func TestRegistryRegisterAndLookup(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.Register("", NewStatic(nil))
	reg.Register("colors", nil)
	reg.Register(" colors ", NewStatic([]model.Option{{Slug: "red"}}))
	reg.Register("sizes", NewStatic(nil))

	if diff := cmp.Diff([]string{"colors", "sizes"}, reg.Names()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
	if !reg.Has("colors") {
		t.Fatalf("expected colors to be registered")
	}
	if _, ok := reg.Lookup("unknown"); ok {
		t.Fatalf("expected lookup of unknown source to fail")
	}
}

func TestStaticValidateAnswerValue(t *testing.T) {
	t.Parallel()

	src := NewStatic([]model.Option{
		{Slug: "red", Label: "Red"},
		{Slug: "blue"},
	})
	ctx := context.Background()

	label, ok, err := src.ValidateAnswerValue(ctx, "red", nil, nil)
	if err != nil || !ok || label != "Red" {
		t.Fatalf("red: got (%q, %v, %v)", label, ok, err)
	}
	label, ok, err = src.ValidateAnswerValue(ctx, "blue", nil, nil)
	if err != nil || !ok || label != "blue" {
		t.Fatalf("blue: expected slug fallback label, got (%q, %v, %v)", label, ok, err)
	}
	if _, ok, err := src.ValidateAnswerValue(ctx, "green", nil, nil); err != nil || ok {
		t.Fatalf("green: expected rejection without error, got (%v, %v)", ok, err)
	}
}

type countingSource struct {
	calls int
	err   error
}

func (c *countingSource) ValidateAnswerValue(context.Context, string, *model.Document, *model.Question) (string, bool, error) {
	c.calls++
	if c.err != nil {
		return "", false, c.err
	}
	return "Label", true, nil
}

func TestCachedServesRepeatLookupsFromCache(t *testing.T) {
	t.Parallel()

	inner := &countingSource{}
	cached := Cached("people", inner, NewMemoryLabelCache(), time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		label, ok, err := cached.ValidateAnswerValue(ctx, "ada", nil, nil)
		if err != nil || !ok || label != "Label" {
			t.Fatalf("lookup %d: got (%q, %v, %v)", i, label, ok, err)
		}
	}
	if inner.calls != 1 {
		t.Fatalf("expected a single inner call, got %d", inner.calls)
	}
}

type perQuestionSource struct {
	calls int
}

func (p *perQuestionSource) ValidateAnswerValue(_ context.Context, value string, _ *model.Document, question *model.Question) (string, bool, error) {
	p.calls++
	return question.Slug + "/" + value, true, nil
}

func TestCachedKeysByQuestion(t *testing.T) {
	t.Parallel()

	inner := &perQuestionSource{}
	cached := Cached("people", inner, NewMemoryLabelCache(), time.Minute)
	ctx := context.Background()
	owner := &model.Question{Slug: "owner"}
	reviewer := &model.Question{Slug: "reviewer"}

	for _, tc := range []struct {
		question *model.Question
		want     string
	}{
		{question: owner, want: "owner/ada"},
		{question: reviewer, want: "reviewer/ada"},
		{question: owner, want: "owner/ada"},
	} {
		label, ok, err := cached.ValidateAnswerValue(ctx, "ada", nil, tc.question)
		if err != nil || !ok || label != tc.want {
			t.Fatalf("%s: got (%q, %v, %v), want %q", tc.question.Slug, label, ok, err, tc.want)
		}
	}
	if inner.calls != 2 {
		t.Fatalf("expected one inner call per question, got %d", inner.calls)
	}
}

func TestCachedPropagatesSourceErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	cached := Cached("people", &countingSource{err: boom}, NewMemoryLabelCache(), time.Minute)
	if _, _, err := cached.ValidateAnswerValue(context.Background(), "ada", nil, nil); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestCachedOptionsRequiresLister(t *testing.T) {
	t.Parallel()

	cached := Cached("people", &countingSource{}, NewMemoryLabelCache(), time.Minute)
	lister, ok := cached.(Lister)
	if !ok {
		t.Fatalf("expected cached source to expose Options")
	}
	if _, err := lister.Options(context.Background()); !errors.Is(err, ErrNotListable) {
		t.Fatalf("expected ErrNotListable, got %v", err)
	}
}

func TestMemoryLabelCacheExpires(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cache := NewMemoryLabelCache()
	cache.now = func() time.Time { return now }
	ctx := context.Background()

	if err := cache.Set(ctx, "k", "v", time.Second); err != nil {
		t.Fatalf("set: %v", err)
	}
	if label, ok, _ := cache.Get(ctx, "k"); !ok || label != "v" {
		t.Fatalf("expected cached value, got (%q, %v)", label, ok)
	}
	now = now.Add(2 * time.Second)
	if _, ok, _ := cache.Get(ctx, "k"); ok {
		t.Fatalf("expected entry to expire")
	}
}

func TestRedisLabelCache(t *testing.T) {
	addr := os.Getenv("FORMVAL_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("FORMVAL_TEST_REDIS_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	cache := NewRedisLabelCache(client)
	ctx := context.Background()
	key := "formval:test:" + t.Name()

	if _, ok, err := cache.Get(ctx, key); err != nil || ok {
		t.Fatalf("expected miss, got (%v, %v)", ok, err)
	}
	if err := cache.Set(ctx, key, "label", time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	t.Cleanup(func() { client.Del(ctx, key) })
	if label, ok, err := cache.Get(ctx, key); err != nil || !ok || label != "label" {
		t.Fatalf("expected hit, got (%q, %v, %v)", label, ok, err)
	}
}
