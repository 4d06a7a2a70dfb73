// Package ingest implements the streaming ingestor (C3): reading a source
// file exactly once while writing it to a uniquely-named staging file and
// feeding the same bytes into an incremental SHA-256 hash. It is grounded
// in two idioms from the wider codebase: internal/hashutil.TrackDigestReader
// (a reader that records a running digest as it's consumed) and
// pkg/blobserver/localdisk/receive.go's io.MultiWriter(hash, tempFile)
// single-pass tee.
package ingest

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// bufSize is the fixed read-buffer size for the tee copy: large enough
// to amortize syscalls, small enough to never buffer a whole file.
const bufSize = 128 * 1024

// Result is the observable outcome of streaming one source file into the
// tmp directory.
type Result struct {
	StagingPath string
	Size        int64
	Sum         [sha256.Size]byte
}

// ReadError indicates the source could not be opened, or that copying its
// bytes into the staging file failed part-way (a read or a write error).
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("ingest: reading %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// Stream reads src exactly once, writing its bytes to a uniquely named
// file under tmpDir while computing its SHA-256 digest in the same pass.
// On any failure the staging file is removed before returning.
func Stream(src, tmpDir string) (Result, error) {
	in, err := os.Open(src)
	if err != nil {
		return Result{}, &ReadError{Path: src, Err: err}
	}
	defer in.Close()

	staging, err := createStaging(tmpDir)
	if err != nil {
		return Result{}, fmt.Errorf("ingest: staging %s: %v", src, err)
	}

	success := false
	defer func() {
		if !success {
			os.Remove(staging.Name())
		}
	}()

	h := sha256.New()
	buf := make([]byte, bufSize)
	written, err := io.CopyBuffer(io.MultiWriter(h, staging), in, buf)
	if err != nil {
		staging.Close()
		return Result{}, &ReadError{Path: src, Err: err}
	}
	if err := staging.Sync(); err != nil {
		staging.Close()
		return Result{}, fmt.Errorf("ingest: sync staging for %s: %v", src, err)
	}
	if err := staging.Close(); err != nil {
		return Result{}, fmt.Errorf("ingest: close staging for %s: %v", src, err)
	}

	success = true
	var sum [sha256.Size]byte
	copy(sum[:], h.Sum(nil))
	return Result{StagingPath: staging.Name(), Size: written, Sum: sum}, nil
}

// createStaging opens a uniquely named file under tmpDir using an
// exclusive create, a mktemp-class protocol that bounds collision
// probability across concurrent workers. The name incorporates
// a random UUID rather than relying solely on os.CreateTemp's internal
// counter, so staging names stay unique even if two workers race within
// the same process-local sequence.
func createStaging(tmpDir string) (*os.File, error) {
	name := filepath.Join(tmpDir, fmt.Sprintf("stage-%s.tmp", uuid.NewString()))
	return os.OpenFile(name, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
}
