package detector

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeWeights(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("weights"), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestResolveWeights_AbsolutePath(t *testing.T) {
	tmpDir := t.TempDir()
	path := writeWeights(t, tmpDir, "best.onnx")

	got, err := ResolveWeights(path)
	if err != nil {
		t.Fatalf("ResolveWeights() error = %v", err)
	}
	if got != path {
		t.Errorf("ResolveWeights() = %q, want %q", got, path)
	}
}

func TestResolveWeights_RelativeToCWD(t *testing.T) {
	tmpDir := t.TempDir()
	writeWeights(t, tmpDir, "best.onnx")
	t.Chdir(tmpDir)

	got, err := ResolveWeights("best.onnx")
	if err != nil {
		t.Fatalf("ResolveWeights() error = %v", err)
	}
	if filepath.Base(got) != "best.onnx" {
		t.Errorf("ResolveWeights() = %q, want best.onnx", got)
	}
	if !filepath.IsAbs(got) {
		t.Errorf("ResolveWeights() = %q, want absolute path", got)
	}
}

func TestResolveWeights_NotFound(t *testing.T) {
	tmpDir := t.TempDir()
	t.Chdir(tmpDir)

	_, err := ResolveWeights("missing.onnx")
	if err == nil {
		t.Fatal("ResolveWeights() should fail for missing weights")
	}
	if !strings.Contains(err.Error(), "missing.onnx") {
		t.Errorf("error %q should name the weights spec", err)
	}
}

func TestResolveWeights_DirectoryIsNotWeights(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.Mkdir(filepath.Join(tmpDir, "best.onnx"), 0755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	t.Chdir(tmpDir)

	if _, err := ResolveWeights("best.onnx"); err == nil {
		t.Error("ResolveWeights() should not resolve a directory")
	}
}

func TestNewestWeights(t *testing.T) {
	tmpDir := t.TempDir()

	older := writeWeights(t, tmpDir, "older.pt")
	newer := writeWeights(t, tmpDir, "newer.onnx")

	// Make modification times unambiguous
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(older, past, past); err != nil {
		t.Fatalf("failed to set mtime: %v", err)
	}

	got, err := newestWeights(tmpDir)
	if err != nil {
		t.Fatalf("newestWeights() error = %v", err)
	}
	if got != newer {
		t.Errorf("newestWeights() = %q, want %q", got, newer)
	}
}

func TestNewestWeights_Empty(t *testing.T) {
	tmpDir := t.TempDir()

	if _, err := newestWeights(tmpDir); err == nil {
		t.Error("newestWeights() should fail when no weights files exist")
	}
}

func TestNewestWeights_IgnoresOtherFiles(t *testing.T) {
	tmpDir := t.TempDir()
	writeWeights(t, tmpDir, "notes.txt")
	want := writeWeights(t, tmpDir, "best.pt")

	got, err := newestWeights(tmpDir)
	if err != nil {
		t.Fatalf("newestWeights() error = %v", err)
	}
	if got != want {
		t.Errorf("newestWeights() = %q, want %q", got, want)
	}
}
