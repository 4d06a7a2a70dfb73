//go:build windows

package store

import (
	"errors"
	"os"

	"golang.org/x/sys/windows"
)

// isCrossDevice mirrors crossdevice_unix.go's check for the Windows
// error a hardlink across volumes produces.
func isCrossDevice(err error) bool {
	var linkErr *os.LinkError
	if !errors.As(err, &linkErr) {
		return false
	}
	return errors.Is(linkErr.Err, windows.ERROR_NOT_SAME_DEVICE)
}
