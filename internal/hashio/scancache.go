package hashio

import (
	"time"

	"github.com/jellydator/ttlcache/v2"
)

// scanTTL is how long a folder scan result stays valid. Chosen to cover a
// single Watcher debounce window so a burst of filesystem events doesn't
// trigger a re-stat of every file in the folder.
const scanTTL = 5 * time.Second

// ScanCache memoizes Scan results per folder path for scanTTL, so repeated
// reconciler lookups inside one debounce window are cheap.
type ScanCache struct {
	cache *ttlcache.Cache
}

// NewScanCache constructs an empty ScanCache.
func NewScanCache() *ScanCache {
	cache := ttlcache.NewCache()
	cache.SetTTL(scanTTL)
	cache.SkipTTLExtensionOnHit(true)

	return &ScanCache{cache: cache}
}

// Scan returns the cached scan of dir if still fresh, otherwise scans and
// caches the result.
func (c *ScanCache) Scan(dir string) ([]Entry, error) {
	if v, err := c.cache.Get(dir); err == nil {
		return v.([]Entry), nil
	}

	entries, err := Scan(dir)
	if err != nil {
		return nil, err
	}

	_ = c.cache.Set(dir, entries)

	return entries, nil
}

// Invalidate removes any cached scan for dir. Called by the reconciler
// after any mutation of the folder's contents.
func (c *ScanCache) Invalidate(dir string) {
	_ = c.cache.Remove(dir)
}

// Close stops the cache's background eviction goroutine.
func (c *ScanCache) Close() error {
	return c.cache.Close()
}
