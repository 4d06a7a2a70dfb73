// Package store implements the blob installer (C4): the atomic
// content-addressed install protocol that gives carb exactly-one-copy
// storage under concurrency. It generalizes
// pkg/blobserver/localdisk/receive.go, which installs a staged upload by
// renaming into a sharded path and mirroring via hardlink, into a
// hardlink-first, create-if-absent protocol keyed directly by BlobId.
package store

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/alexandrosbouzalas/carb/internal/blobid"
)

// Outcome records whether Install created a new blob or found the
// content already present.
type Outcome int

const (
	Ingested Outcome = iota
	Deduped
)

func (o Outcome) String() string {
	if o == Ingested {
		return "Ingested"
	}
	return "Deduped"
}

// InstallFailed is returned when every fallback in the install protocol
// is exhausted.
type InstallFailed struct {
	ID  blobid.ID
	Err error
}

func (e *InstallFailed) Error() string {
	return fmt.Sprintf("store: install %s: %v", e.ID, e.Err)
}

func (e *InstallFailed) Unwrap() error { return e.Err }

// Install moves stagingPath into blobDir under id's canonical name,
// following the protocol in order:
//
//  1. Attempt an atomic hardlink. Success means this worker is the one
//     that created the blob (Ingested); the staging file is removed.
//  2. If the link fails because the target exists, the content is
//     already stored (Deduped); the staging file is removed.
//  3. If the link fails because staging and blobDir are on different
//     devices, fall back to a no-clobber rename, then a no-clobber
//     copy. Both fallbacks still treat a pre-existing target as Deduped.
//     Any other link failure is returned as InstallFailed without a
//     fallback.
//
// The hardlink step is the sole correctness primitive for dedup under
// races: exactly one of N workers racing on identical content observes
// link success.
func Install(stagingPath string, id blobid.ID, blobDir string) (Outcome, error) {
	target := filepath.Join(blobDir, id.String())

	err := os.Link(stagingPath, target)
	if err == nil {
		os.Remove(stagingPath)
		return Ingested, nil
	}
	if targetExists(target) {
		os.Remove(stagingPath)
		return Deduped, nil
	}
	if !isCrossDevice(err) {
		return 0, &InstallFailed{ID: id, Err: err}
	}

	if err := noClobberRename(stagingPath, target); err == nil {
		return Ingested, nil
	} else if targetExists(target) {
		os.Remove(stagingPath)
		return Deduped, nil
	}

	if err := noClobberCopy(stagingPath, target); err != nil {
		if targetExists(target) {
			os.Remove(stagingPath)
			return Deduped, nil
		}
		return 0, &InstallFailed{ID: id, Err: err}
	}
	os.Remove(stagingPath)
	return Ingested, nil
}

func targetExists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// noClobberRename renames src to dst only if dst does not already exist.
// The existence check and the rename are not atomic together; this
// fallback path only ever runs cross-device, with hardlink-with-
// existing-target on a single filesystem remaining the actual
// correctness primitive for the race (see Install's doc comment).
func noClobberRename(src, dst string) error {
	if targetExists(dst) {
		return os.ErrExist
	}
	return os.Rename(src, dst)
}

// noClobberCopy copies src to dst via an exclusive create, so a
// concurrent creation of dst loses the copy rather than corrupting it.
func noClobberCopy(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer func() {
		cerr := out.Close()
		if err == nil {
			err = cerr
		}
	}()

	_, err = io.Copy(out, in)
	return err
}
