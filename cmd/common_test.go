package cmd

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestWriteJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")

	if err := writeJSON(path, map[string]int{"assigned": 2}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if got := string(data); got != "{\n  \"assigned\": 2\n}\n" {
		t.Fatalf("unexpected content %q", got)
	}
}

func TestLoadReviewSourceFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.json")
	content := `{"cohort_id":"spring","mode":"batch","stats":{},"results":[{"mentee_id":"e1","recommendations":[]}],"timestamp":"2026-03-01T12:00:00Z"}`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	out, err := loadReviewSource(context.Background(), nil, path, "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.CohortID != "spring" || len(out.Results) != 1 {
		t.Fatalf("unexpected output: %+v", out)
	}
}

func TestLoadReviewSourceRequiresStore(t *testing.T) {
	_, err := loadReviewSource(context.Background(), nil, "", "", "spring")
	if err == nil || !strings.Contains(err.Error(), "postgres is not configured") {
		t.Fatalf("expected missing store error, got %v", err)
	}
}

func TestLoadCohortWithoutSource(t *testing.T) {
	if _, err := loadCohort(context.Background(), &Config{}, nil); err == nil {
		t.Fatalf("expected error without cohort source")
	}
}

func TestOptionalBackends(t *testing.T) {
	logger := zap.NewNop()

	client, err := newProfileClient(&Config{}, logger)
	if err != nil || client != nil {
		t.Fatalf("expected no profile client, got %v, %v", client, err)
	}

	db, err := openStore(context.Background(), &Config{Postgres: &PostgresConfig{}}, logger)
	if err != nil || db != nil {
		t.Fatalf("expected no store without dsn, got %v, %v", db, err)
	}

	if p := newEmbeddingProvider(context.Background(), &Config{}, logger); p != nil {
		t.Fatalf("expected embeddings disabled, got %T", p)
	}
}
