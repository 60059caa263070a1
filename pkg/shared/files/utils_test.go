package files

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteFileAtomic(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "state.json")

	if err := WriteFileAtomic(path, []byte(`{"a":1}`)); err != nil {
		t.Fatalf("WriteFileAtomic failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading back: %v", err)
	}
	if string(data) != `{"a":1}` {
		t.Errorf("unexpected content: %s", data)
	}

	// Overwrite must replace, not append.
	if err := WriteFileAtomic(path, []byte(`{"b":2}`)); err != nil {
		t.Fatalf("second WriteFileAtomic failed: %v", err)
	}
	data, _ = os.ReadFile(path)
	if string(data) != `{"b":2}` {
		t.Errorf("unexpected content after overwrite: %s", data)
	}

	// No temp files left behind.
	entries, _ := os.ReadDir(tmpDir)
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp-") {
			t.Errorf("leftover temp file: %s", e.Name())
		}
	}
}

func TestEnsureWithinRoot(t *testing.T) {
	tmpDir := t.TempDir()

	got, err := EnsureWithinRoot(tmpDir, filepath.Join(tmpDir, "sub", "file.json"))
	if err != nil {
		t.Fatalf("expected path inside root to be accepted: %v", err)
	}
	if !strings.HasPrefix(got, tmpDir) {
		t.Errorf("resolved path %q not under root %q", got, tmpDir)
	}

	if _, err := EnsureWithinRoot(tmpDir, filepath.Join(tmpDir, "..", "escape.json")); err == nil {
		t.Error("expected escaping path to be rejected")
	}

	// Empty root disables the check.
	if _, err := EnsureWithinRoot("", "/anywhere/file.json"); err != nil {
		t.Errorf("empty root should accept any path: %v", err)
	}
}

func TestCreateFolderIfNotExists(t *testing.T) {
	tmpDir := t.TempDir()
	target := filepath.Join(tmpDir, "a", "b", "c")

	if err := CreateFolderIfNotExists(target); err != nil {
		t.Fatalf("CreateFolderIfNotExists failed: %v", err)
	}
	info, err := os.Stat(target)
	if err != nil || !info.IsDir() {
		t.Fatalf("expected directory at %s", target)
	}

	// Second call on an existing folder is a no-op.
	if err := CreateFolderIfNotExists(target); err != nil {
		t.Errorf("existing folder should not error: %v", err)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir available")
	}

	got, err := ExpandPath("~/audits")
	if err != nil {
		t.Fatalf("ExpandPath failed: %v", err)
	}
	if got != filepath.Join(home, "audits") {
		t.Errorf("expected %s, got %s", filepath.Join(home, "audits"), got)
	}

	got, _ = ExpandPath("/absolute/path")
	if got != "/absolute/path" {
		t.Errorf("absolute path should be unchanged, got %s", got)
	}
}
