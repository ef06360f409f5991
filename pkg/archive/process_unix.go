//go:build unix

package archive

import (
	"errors"

	"golang.org/x/sys/unix"
)

// processRunning reports whether pid names a live process. Signal 0 checks
// existence without delivering anything; EPERM means it exists under another user.
func processRunning(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}
