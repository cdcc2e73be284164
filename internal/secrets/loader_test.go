package secrets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadPrefersFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "key")
	if err := os.WriteFile(path, []byte("  from-file\n"), 0o600); err != nil {
		t.Fatalf("write secret: %v", err)
	}

	t.Setenv("MM_TEST_SECRET", "from-env")

	got, err := Load(Source{Name: "api key", File: path, Env: "MM_TEST_SECRET", Value: "inline"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "from-file" {
		t.Fatalf("expected file secret, got %q", got)
	}
}

func TestLoadFallsBackToEnvThenValue(t *testing.T) {
	t.Setenv("MM_TEST_SECRET", " from-env ")

	got, err := Load(Source{Env: "MM_TEST_SECRET", Value: "inline"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "from-env" {
		t.Fatalf("expected env secret, got %q", got)
	}

	got, err = Load(Source{Env: "MM_TEST_SECRET_UNSET", Value: "inline"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "inline" {
		t.Fatalf("expected inline secret, got %q", got)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty")
	if err := os.WriteFile(empty, []byte("  \n"), 0o600); err != nil {
		t.Fatalf("write secret: %v", err)
	}

	if _, err := Load(Source{Name: "dsn", File: empty}); err == nil || !strings.Contains(err.Error(), "is empty") {
		t.Fatalf("expected empty file error, got %v", err)
	}

	if _, err := Load(Source{Name: "dsn", File: filepath.Join(dir, "missing")}); err == nil {
		t.Fatal("expected error for missing file")
	}

	if _, err := Load(Source{Name: "dsn"}); err == nil || !strings.Contains(err.Error(), "dsn is not configured") {
		t.Fatalf("expected not configured error, got %v", err)
	}
}

func TestOptional(t *testing.T) {
	got, err := Optional(Source{Name: "redis password"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "" {
		t.Fatalf("expected empty secret, got %q", got)
	}

	got, err = Optional(Source{Value: "pw"})
	if err != nil || got != "pw" {
		t.Fatalf("expected inline value, got %q (%v)", got, err)
	}
}
