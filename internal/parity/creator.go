package parity

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/alexandrosbouzalas/carb/internal/blobid"
)

const (
	lockPollInterval = 100 * time.Millisecond
	lockPollAttempts = 50
)

// Creator emits at most one ParitySet per BlobId, coordinating with other
// workers (in this process or another run entirely) through a named lock
// directory under parityDir, the filesystem-visible generalization of
// pkg/blobserver/localdisk/dirlock.go's in-process dirLock:
// os.Mkdir is the test-and-set primitive there is no portable advisory
// file lock for across every target platform.
type Creator struct {
	ParityDir string
	Codec     Codec
}

// Outcome of a single CreateIfAbsent call.
type Outcome int

const (
	// AlreadyExists means a ParitySet for this BlobId was already
	// present; no work was done.
	AlreadyExists Outcome = iota
	// Created means this call produced a new ParitySet.
	Created
	// LostRace means another worker or run was creating parity for
	// this BlobId concurrently; this call waited and deferred to it.
	LostRace
	// Skipped means the codec could not run (commonly: the FEC tool
	// isn't installed) and parity was left absent; ingestion tolerates
	// this rather than failing the run.
	Skipped
)

// CreateIfAbsent creates a ParitySet for id from blobPath, unless one
// already exists or another worker is already creating one. A Skipped
// outcome is never treated as a run failure by the caller, but it does
// carry a non-nil error when the codec itself failed (missing tool,
// bad input, disk full in ParityDir, ...) or the lock directory could
// not be managed, so the caller can still log why parity ended up
// absent.
func (c *Creator) CreateIfAbsent(ctx context.Context, id blobid.ID, blobPath string, plan Plan) (Outcome, error) {
	base := c.outputBase(id)
	if parityExists(base) {
		return AlreadyExists, nil
	}

	lockDir := c.lockPath(id)
	acquired, err := tryLock(lockDir)
	if err != nil {
		return Skipped, fmt.Errorf("parity: acquiring lock for %s: %v", id, err)
	}
	if !acquired {
		if waitForRelease(ctx, lockDir) {
			return LostRace, nil
		}
		// Timed out waiting; treat as absent parity rather than block
		// the run indefinitely.
		return Skipped, nil
	}
	defer os.Remove(lockDir)

	if parityExists(base) {
		// Backfill race: another run finished between our first check
		// and acquiring the lock.
		return AlreadyExists, nil
	}

	if err := c.Codec.Create(ctx, plan.BlockSize, plan.Redundancy, base, blobPath); err != nil {
		return Skipped, err
	}
	return Created, nil
}

func (c *Creator) outputBase(id blobid.ID) string {
	return filepath.Join(c.ParityDir, id.String()+".par2")
}

func (c *Creator) lockPath(id blobid.ID) string {
	return filepath.Join(c.ParityDir, "lock_"+id.String())
}

func parityExists(outputBase string) bool {
	_, err := os.Stat(outputBase)
	return err == nil
}

// tryLock attempts to claim the lock directory as a test-and-set
// primitive: os.Mkdir fails with ErrExist if another holder already
// created it.
func tryLock(lockDir string) (bool, error) {
	err := os.Mkdir(lockDir, 0o700)
	if err == nil {
		return true, nil
	}
	if os.IsExist(err) {
		return false, nil
	}
	return false, err
}

// waitForRelease polls for the lock directory's removal, bounded at
// roughly lockPollAttempts*lockPollInterval (~5s) so a stuck or crashed
// holder can never block the run indefinitely.
func waitForRelease(ctx context.Context, lockDir string) bool {
	for i := 0; i < lockPollAttempts; i++ {
		select {
		case <-ctx.Done():
			return false
		case <-time.After(lockPollInterval):
		}
		if _, err := os.Stat(lockDir); os.IsNotExist(err) {
			return true
		}
	}
	return false
}
