package util

import (
	"os"
	"path/filepath"
	"testing"
)

func TestIsSameFilesystem(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	same, err := IsSameFilesystem(dir, sub)
	if err != nil {
		t.Fatalf("IsSameFilesystem: %v", err)
	}
	if !same {
		t.Error("expected temp dir and its subdirectory to share a filesystem")
	}
}

func TestSameDirectory(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if !SameDirectory(dir, dir) {
		t.Error("a directory should be SameDirectory as itself")
	}
	if SameDirectory(dir, sub) {
		t.Error("a directory and its subdirectory must not be SameDirectory")
	}
}

func TestSameDirectoryMissingPath(t *testing.T) {
	dir := t.TempDir()
	if SameDirectory(dir, filepath.Join(dir, "does-not-exist")) {
		t.Error("SameDirectory must be false when one path cannot be stat'd")
	}
}
