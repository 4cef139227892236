// Package catalog implements the durable local store of Albums and Images:
// a single SQLite database with transactional multi-row mutations, additive
// schema migrations, and the indexes the reconciler and pipeline need for
// their hot-path lookups.
package catalog

import "time"

// UploadStatus is the tagged-union state of an Image's upload lifecycle.
type UploadStatus string

// Upload status values, in the order a successful image passes through them.
const (
	StatusPending           UploadStatus = "pending"
	StatusCompressing       UploadStatus = "compressing"
	StatusUploading         UploadStatus = "uploading"
	StatusComplete          UploadStatus = "complete"
	StatusFailedCompression UploadStatus = "failed_compression"
	StatusFailedUpload      UploadStatus = "failed_upload"
)

// Album is a logical grouping of images corresponding one-to-one with a
// source folder owned by the photographer.
type Album struct {
	ID               string
	Title            string
	EventDate        *time.Time
	StartTime        *time.Time
	EndTime          *time.Time
	SourceFolderPath string
	LocalFolderPath  string
	TotalImages      int
	LastSyncedAt     *time.Time
	NeedsSync        bool
	IsOrphaned       bool
	CreatedAt        time.Time
}

// Image is a single tracked file within an Album.
type Image struct {
	ID               int64
	AlbumID          string
	ServerID         *int64
	OriginalFilename string
	LocalFilePath    string
	FileSize         int64
	Width            int
	Height           int
	Mtime            time.Time
	SourceFileHash   string // empty until first computed
	UploadStatus     UploadStatus
	UploadOrder      int64
}

// ImageStats is the aggregate per-status count returned by GetImageStats.
type ImageStats struct {
	Pending            int
	Compressing        int
	Uploading          int
	Complete           int
	FailedCompression  int
	FailedUpload       int
}

// Total returns the sum of all per-status counts.
func (s ImageStats) Total() int {
	return s.Pending + s.Compressing + s.Uploading + s.Complete + s.FailedCompression + s.FailedUpload
}
