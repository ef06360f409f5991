//go:build linux || darwin || freebsd

package archive

import "golang.org/x/sys/unix"

// availableDiskSpace returns the bytes available to an unprivileged user on
// the filesystem holding path.
func availableDiskSpace(path string) (int64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, err
	}
	return int64(stat.Bavail) * int64(stat.Bsize), nil
}
