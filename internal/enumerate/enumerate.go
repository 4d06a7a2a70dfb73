// Package enumerate produces the lazy sequence of candidate regular files
// under a start directory, generalized from the recursive
// directory walk in cmd/camput's TreeUpload.statPath: stat each entry,
// skip what IsIgnoredFile-equivalent predicates reject, recurse into
// directories, and tolerate (warn, don't fail) entries that can't be
// statted.
package enumerate

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/alexandrosbouzalas/carb/internal/pathutil"
)

// Mode selects the enumeration predicate.
type Mode int

const (
	// Full enumerates every qualifying regular file.
	Full Mode = iota
	// Incremental enumerates only files with mtime strictly greater
	// than a reference cutoff.
	Incremental
)

// Options configures one enumeration pass.
type Options struct {
	StartDir     string
	Mode         Mode
	CutoffMtime  time.Time // used only when Mode == Incremental
	ExcludeGlobs []string
	InternalDirs []string // carb's own storage roots, pruned if under StartDir
}

// Warning reports a non-fatal enumeration problem: a path that could not
// be read or statted. A malformed exclude glob matches nothing and
// produces no warning. The enumerator never fails the run because of
// these.
type Warning struct {
	Path string
	Err  error
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %v", w.Path, w.Err)
}

// Enumerate walks opts.StartDir and sends every qualifying absolute file
// path on the returned channel. Warnings are sent on the second channel.
// Both channels are closed when the walk completes or ctx is canceled.
// The walk runs in its own goroutine so callers can begin consuming
// lazily, bounding memory for large trees.
func Enumerate(ctx context.Context, opts Options) (<-chan string, <-chan Warning) {
	paths := make(chan string)
	warnings := make(chan Warning)

	go func() {
		defer close(paths)
		defer close(warnings)

		walkErr := filepath.WalkDir(opts.StartDir, func(path string, d fs.DirEntry, err error) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			if err != nil {
				warnings <- Warning{Path: path, Err: err}
				if d != nil && d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				if path != opts.StartDir && isInternalDir(path, opts.InternalDirs) {
					return filepath.SkipDir
				}
				return nil
			}

			info, err := entryInfo(path, d)
			if err != nil {
				warnings <- Warning{Path: path, Err: err}
				return nil
			}
			if !info.Mode().IsRegular() {
				return nil
			}
			if matchesExclude(filepath.Base(path), opts.ExcludeGlobs) {
				return nil
			}
			if opts.Mode == Incremental && !info.ModTime().Truncate(time.Second).After(opts.CutoffMtime.Truncate(time.Second)) {
				return nil
			}
			select {
			case paths <- path:
			case <-ctx.Done():
				return ctx.Err()
			}
			return nil
		})
		if walkErr != nil && walkErr != context.Canceled {
			warnings <- Warning{Path: opts.StartDir, Err: walkErr}
		}
	}()

	return paths, warnings
}

// entryInfo resolves d to an os.FileInfo, following a symlink (and any
// chain of symlinks) to its final target without recursing into it: if
// that target is a regular file, its info is returned. A
// symlink to a directory or other non-regular target comes back with
// IsRegular() false, which the caller skips without treating it as an
// error.
func entryInfo(path string, d fs.DirEntry) (os.FileInfo, error) {
	if d.Type()&os.ModeSymlink != 0 {
		return os.Stat(path) // follows the link
	}
	return d.Info()
}

func isInternalDir(path string, internalDirs []string) bool {
	for _, d := range internalDirs {
		if d == "" {
			continue
		}
		if pathutil.IsUnder(path, d) {
			return true
		}
	}
	return false
}

func matchesExclude(base string, globs []string) bool {
	for _, g := range globs {
		if ok, err := filepath.Match(g, base); err == nil && ok {
			return true
		}
	}
	return false
}
