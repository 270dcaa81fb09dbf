package testsupport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formval/pkg/formdef"
	"github.com/goliatone/go-formval/pkg/model"
	"github.com/goliatone/go-formval/pkg/validation"
)

// LoadSet loads every definition file under dir. Testing helpers fail the
// test on error to keep contract tests concise.
func LoadSet(t *testing.T, dir string) *formdef.Set {
	t.Helper()

	set, err := LoadSetFromPath(dir)
	if err != nil {
		t.Fatalf("load definitions: %v", err)
	}
	return set
}

// LoadSetFromPath returns a Set without requiring testing.T, allowing callers
// to wire fixtures in setup functions.
func LoadSetFromPath(dir string) (*formdef.Set, error) {
	if dir == "" {
		return nil, errors.New("testsupport: definitions dir is required")
	}
	set, err := formdef.LoadFS(os.DirFS(dir))
	if err != nil {
		return nil, fmt.Errorf("testsupport: load definitions: %w", err)
	}
	return set, nil
}

// MustDecodeDocument reads a JSON or YAML document fixture and builds it
// against set.
func MustDecodeDocument(t *testing.T, set *formdef.Set, path string) *model.Document {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read document: %v", err)
	}
	doc, err := set.DecodeDocument(data)
	if err != nil {
		t.Fatalf("decode document: %v", err)
	}
	return doc
}

// MustLoadReport loads a JSON golden file into a validity report.
func MustLoadReport(t *testing.T, path string) validation.Report {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("load golden: %v", err)
	}
	var out validation.Report
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal golden: %v", err)
	}
	return out
}

// WriteGolden writes arbitrary data to a golden file when UPDATE_GOLDENS is set.
func WriteGolden(t *testing.T, path string, value any) {
	t.Helper()

	if os.Getenv("UPDATE_GOLDENS") == "" {
		return
	}
	payload, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		t.Fatalf("marshal golden: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir golden dir: %v", err)
	}
	if err := os.WriteFile(path, append(payload, '\n'), 0o644); err != nil {
		t.Fatalf("write golden: %v", err)
	}
}

// CompareGolden returns a diff string if the values differ.
func CompareGolden(want, got any) string {
	return cmp.Diff(want, got)
}

// MustReadGolden reads a golden file and returns its raw bytes.
func MustReadGolden(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read golden: %v", err)
	}
	return data
}

// Context returns a background context for tests.
func Context() context.Context {
	return context.Background()
}
