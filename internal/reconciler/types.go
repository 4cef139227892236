// Package reconciler diffs a source folder against the catalog's record of
// an album's images and produces a classified set of changes — new,
// modified, deleted, renamed, and duplicate-skipped — which it can then
// apply transactionally.
package reconciler

import (
	"time"

	"github.com/lumosnap/synccore/internal/catalog"
)

// NewFile is a source file with no matching catalog row.
type NewFile struct {
	Basename string
	Path     string
	Size     int64
	Mtime    time.Time
	Width    int
	Height   int
	Hash     string
}

// ModifiedFile is an existing Image whose source content changed.
type ModifiedFile struct {
	Image  *catalog.Image
	Path   string
	Size   int64
	Mtime  time.Time
	Width  int
	Height int
}

// RenamedFile records a catalog Image whose file reappeared under a new
// basename (detected by matching source hash).
type RenamedFile struct {
	Image       *catalog.Image
	OldFilename string
	NewFilename string
	NewPath     string
}

// SkippedFile is a candidate new file rejected as a duplicate of an
// existing Image.
type SkippedFile struct {
	Basename string
	Reason   string
}

// Changes is the classified output of Detect.
type Changes struct {
	New          []NewFile
	Modified     []ModifiedFile
	Deleted      []*catalog.Image
	Renamed      []RenamedFile
	Skipped      []SkippedFile
	// LimitWarning is set when the remote plan's image limit truncated New.
	LimitWarning bool
}

// IsEmpty reports whether there is nothing to do.
func (c *Changes) IsEmpty() bool {
	return len(c.New) == 0 && len(c.Modified) == 0 && len(c.Deleted) == 0 && len(c.Renamed) == 0
}

// NeedsReview reports whether applying these changes silently (without a
// user review step) would be unsafe — true whenever anything beyond a
// rename or duplicate-skip is present.
func (c *Changes) NeedsReview() bool {
	return len(c.New) > 0 || len(c.Modified) > 0 || len(c.Deleted) > 0
}

// Summary renders a one-line human-readable description of the classified
// changes, used by the CLI's sync output.
func (c *Changes) Summary() string {
	return summarize(c)
}
