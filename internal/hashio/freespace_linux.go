//go:build linux

package hashio

import "golang.org/x/sys/unix"

// freeBytes returns bytes available to an unprivileged caller on the
// filesystem containing path.
func freeBytes(path string) (uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, err
	}

	return uint64(stat.Bavail) * uint64(stat.Bsize), nil //nolint:gosec // kernel guarantees non-negative values
}
