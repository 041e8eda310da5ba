package testsupport

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadFixture(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "statements.yaml")
	testContent := []byte("statements: []")

	if err := os.WriteFile(testFile, testContent, 0o644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	result := LoadFixture(t, testFile)
	if string(result) != string(testContent) {
		t.Errorf("expected %q, got %q", testContent, result)
	}
}

func TestWriteGolden(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "keys.golden")

	WriteGolden(t, path, []byte("key"))

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read golden file: %v", err)
	}
	if string(got) != "key" {
		t.Errorf("expected key, got %q", got)
	}
}

func TestCompareWithGolden(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys.golden")

	// Missing file is created from the actual output
	CompareWithGolden(t, path, []byte("first"))
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected golden file to be created: %v", err)
	}

	// Matching content passes
	CompareWithGolden(t, path, []byte("first"))
}

func TestCompareWithGolden_Update(t *testing.T) {
	t.Setenv(UpdateGoldenEnv, "1")

	path := filepath.Join(t.TempDir(), "keys.golden")
	WriteGolden(t, path, []byte("old"))

	CompareWithGolden(t, path, []byte("new"))

	got := LoadFixture(t, path)
	if string(got) != "new" {
		t.Errorf("expected golden file to be rewritten, got %q", got)
	}
}

func TestWriteFixture(t *testing.T) {
	path := WriteFixture(t, "config.yaml", []byte("cache: {}"))

	if filepath.Base(path) != "config.yaml" {
		t.Errorf("unexpected fixture name %s", path)
	}
	if string(LoadFixture(t, path)) != "cache: {}" {
		t.Error("fixture content mismatch")
	}
}

func TestSQLiteDSN(t *testing.T) {
	dsn := SQLiteDSN(t)

	if !strings.HasPrefix(dsn, "file:") {
		t.Errorf("expected file DSN, got %s", dsn)
	}
	if !strings.Contains(dsn, "journal_mode(WAL)") {
		t.Errorf("expected WAL pragma, got %s", dsn)
	}
}

func TestFixturePath(t *testing.T) {
	if got := FixturePath("config.yaml"); got != filepath.Join("testdata", "config.yaml") {
		t.Errorf("unexpected fixture path %s", got)
	}
}

func TestGoldenPath(t *testing.T) {
	if got := GoldenPath("keys.golden"); got != filepath.Join("testdata", "golden", "keys.golden") {
		t.Errorf("unexpected golden path %s", got)
	}
}
