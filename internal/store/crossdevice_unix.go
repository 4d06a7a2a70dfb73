//go:build !windows

package store

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// isCrossDevice reports whether err is the link failure a staging area
// and blob directory on different filesystems would produce, the one
// case warranting the rename/copy fallback instead of treating the
// hardlink failure as InstallFailed outright.
func isCrossDevice(err error) bool {
	var linkErr *os.LinkError
	if !errors.As(err, &linkErr) {
		return false
	}
	return errors.Is(linkErr.Err, unix.EXDEV)
}
