// Package pathutil normalizes the user-supplied start directory and
// derives restore-time relative paths from it, grounded in the sharded
// path derivation style of the localdisk storage layer
// (blobDirectory/blobPath), generalized from blob-identity paths to
// arbitrary source-tree paths.
package pathutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidStartDir is returned when the supplied path does not resolve
// to an existing directory.
var ErrInvalidStartDir = errors.New("pathutil: not an existing directory")

// Normalize resolves p to an absolute directory path with no trailing
// separator. "foo/" and "foo" normalize identically. It fails with
// ErrInvalidStartDir if p does not exist or is not a directory.
func Normalize(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("pathutil: %v: %w", err, ErrInvalidStartDir)
	}
	// filepath.Abs already runs Clean, which strips trailing separators
	// except for the filesystem root; the explicit TrimSuffix below is
	// the sentinel trick for that root case and for inputs Clean leaves
	// alone on exotic platforms.
	abs = strings.TrimSuffix(abs, string(filepath.Separator))
	if abs == "" {
		abs = string(filepath.Separator)
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("pathutil: stat %q: %v: %w", abs, err, ErrInvalidStartDir)
	}
	if !fi.IsDir() {
		return "", fmt.Errorf("pathutil: %q is not a directory: %w", abs, ErrInvalidStartDir)
	}
	return abs, nil
}

// Rel computes the relative path of the absolute descendant path p from
// the absolute start directory s, with no leading separator. Rel(s, s) is
// the empty string.
func Rel(p, s string) (string, error) {
	rel, err := filepath.Rel(s, p)
	if err != nil {
		return "", fmt.Errorf("pathutil: Rel(%q, %q): %v", p, s, err)
	}
	if rel == "." {
		return "", nil
	}
	if strings.HasPrefix(rel, ".."+string(filepath.Separator)) || rel == ".." {
		return "", fmt.Errorf("pathutil: %q is not a descendant of %q", p, s)
	}
	return rel, nil
}

// IsUnder reports whether candidate is dir itself or a descendant of dir,
// comparing cleaned absolute paths. It is used to prune carb's own
// storage roots from enumeration when they sit under the start directory.
func IsUnder(candidate, dir string) bool {
	candidate = filepath.Clean(candidate)
	dir = filepath.Clean(dir)
	if candidate == dir {
		return true
	}
	return strings.HasPrefix(candidate, dir+string(filepath.Separator))
}
