//go:build darwin

package hashio

import "syscall"

// freeBytes returns bytes available to an unprivileged caller on the
// filesystem containing path.
func freeBytes(path string) (uint64, error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return 0, err
	}

	return stat.Bavail * uint64(stat.Bsize), nil
}
