package ingest

import (
	"crypto/sha256"
	"os"
	"path/filepath"
	"testing"
)

func TestStreamComputesHashAndStages(t *testing.T) {
	srcDir := t.TempDir()
	tmpDir := t.TempDir()
	src := filepath.Join(srcDir, "a.txt")
	content := []byte("hello\n")
	if err := os.WriteFile(src, content, 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := Stream(src, tmpDir)
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if res.Size != int64(len(content)) {
		t.Errorf("Size = %d, want %d", res.Size, len(content))
	}
	want := sha256.Sum256(content)
	if res.Sum != want {
		t.Errorf("Sum = %x, want %x", res.Sum, want)
	}
	staged, err := os.ReadFile(res.StagingPath)
	if err != nil {
		t.Fatalf("reading staged file: %v", err)
	}
	if string(staged) != string(content) {
		t.Errorf("staged content = %q, want %q", staged, content)
	}
}

func TestStreamRemovesStagingOnReadError(t *testing.T) {
	tmpDir := t.TempDir()
	_, err := Stream(filepath.Join(t.TempDir(), "missing.txt"), tmpDir)
	if err == nil {
		t.Fatal("Stream succeeded on a missing source")
	}
	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("tmp dir has leftover entries: %v", entries)
	}
}

func TestStreamUniqueStagingNames(t *testing.T) {
	srcDir := t.TempDir()
	tmpDir := t.TempDir()
	src := filepath.Join(srcDir, "a.txt")
	if err := os.WriteFile(src, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	r1, err := Stream(src, tmpDir)
	if err != nil {
		t.Fatal(err)
	}
	r2, err := Stream(src, tmpDir)
	if err != nil {
		t.Fatal(err)
	}
	if r1.StagingPath == r2.StagingPath {
		t.Errorf("two calls to Stream produced the same staging path: %s", r1.StagingPath)
	}
}
