package pathutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNormalizeTrailingSlash(t *testing.T) {
	dir := t.TempDir()
	withSlash := dir + string(filepath.Separator)

	a, err := Normalize(dir)
	if err != nil {
		t.Fatalf("Normalize(%q): %v", dir, err)
	}
	b, err := Normalize(withSlash)
	if err != nil {
		t.Fatalf("Normalize(%q): %v", withSlash, err)
	}
	if a != b {
		t.Fatalf("Normalize differs with/without trailing slash: %q vs %q", a, b)
	}
}

func TestNormalizeRejectsFile(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Normalize(f); err == nil {
		t.Fatal("Normalize accepted a regular file")
	}
}

func TestNormalizeRejectsMissing(t *testing.T) {
	if _, err := Normalize(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("Normalize accepted a missing path")
	}
}

func TestRel(t *testing.T) {
	start := "/a/b"
	cases := []struct {
		abs, want string
	}{
		{"/a/b", ""},
		{"/a/b/c", "c"},
		{"/a/b/c/d.txt", filepath.Join("c", "d.txt")},
	}
	for _, c := range cases {
		got, err := Rel(c.abs, start)
		if err != nil {
			t.Errorf("Rel(%q, %q) error: %v", c.abs, start, err)
			continue
		}
		if got != c.want {
			t.Errorf("Rel(%q, %q) = %q, want %q", c.abs, start, got, c.want)
		}
	}
}

func TestRelRejectsNonDescendant(t *testing.T) {
	if _, err := Rel("/a/other", "/a/b"); err == nil {
		t.Fatal("Rel accepted a non-descendant path")
	}
}

func TestIsUnder(t *testing.T) {
	if !IsUnder("/a/b/blobs", "/a/b/blobs") {
		t.Error("IsUnder should be true for identical paths")
	}
	if !IsUnder("/a/b/blobs/x", "/a/b/blobs") {
		t.Error("IsUnder should be true for a descendant")
	}
	if IsUnder("/a/bblobs", "/a/b") {
		t.Error("IsUnder should not match on a bare string prefix")
	}
}
