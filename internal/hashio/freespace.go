package hashio

import "fmt"

// DefaultLowStorageThreshold is the free-space level below which callers
// should surface a low-storage warning, absent an override. Advisory only;
// nothing in this package or its callers blocks on it.
const DefaultLowStorageThreshold = 10 * 1 << 30 // 10 GiB

// FreeSpace returns the bytes available to an unprivileged caller on the
// filesystem containing path.
func FreeSpace(path string) (uint64, error) {
	bytes, err := freeBytes(path)
	if err != nil {
		return 0, fmt.Errorf("hashio: querying free space for %s: %w", path, err)
	}

	return bytes, nil
}

// IsLowStorage reports whether available is at or below threshold. A
// threshold of <= 0 uses DefaultLowStorageThreshold.
func IsLowStorage(available uint64, threshold int64) bool {
	if threshold <= 0 {
		threshold = DefaultLowStorageThreshold
	}

	return available <= uint64(threshold)
}
