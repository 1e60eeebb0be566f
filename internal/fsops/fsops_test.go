package fsops

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMoveCreatesParentDirs(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "source.mkv")
	if err := os.WriteFile(src, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}

	dest := filepath.Join(dir, "Season 01", "dest.mkv")
	if err := Move(src, dest); err != nil {
		t.Fatalf("Move failed: %v", err)
	}

	if _, err := os.Stat(dest); err != nil {
		t.Fatalf("expected dest to exist: %v", err)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Fatalf("expected src to be gone")
	}
}

func TestRemoveEmptyDirs(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "Season 01")
	nonEmpty := filepath.Join(dir, "Season 02")
	if err := os.MkdirAll(empty, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(nonEmpty, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(nonEmpty, "keep.mkv"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := RemoveEmptyDirs(dir); err != nil {
		t.Fatalf("RemoveEmptyDirs failed: %v", err)
	}

	if _, err := os.Stat(empty); !os.IsNotExist(err) {
		t.Fatalf("expected empty season dir to be removed")
	}
	if _, err := os.Stat(nonEmpty); err != nil {
		t.Fatalf("expected non-empty season dir to survive: %v", err)
	}
}

func TestCheckerFileExists(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.mkv")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	c := NewChecker()
	if !c.FileExists(file) {
		t.Fatalf("expected FileExists true for %s", file)
	}
	if c.FileExists(dir) {
		t.Fatalf("expected FileExists false for a directory")
	}
	if c.FileExists(filepath.Join(dir, "missing")) {
		t.Fatalf("expected FileExists false for a missing path")
	}
}
