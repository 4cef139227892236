// Package sidecar reads and writes the per-source-folder `.lumosnap` file
// that lets the reconciler skip unchanged folders and lets the watcher
// rebind a moved folder to its album without re-uploading anything.
package sidecar

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/natefinch/atomic"
)

// FileName is the sidecar's fixed name within a source folder.
const FileName = ".lumosnap"

// currentVersion is written on every Save; Load does not reject other
// versions, since no version beyond 1 has shipped yet.
const currentVersion = 1

// Stats is the quick-dirty fingerprint compared against a folder's current
// file count and total size to decide whether reconciliation can be
// skipped entirely.
type Stats struct {
	LastFileCount int   `json:"lastFileCount"`
	LastTotalSize int64 `json:"lastTotalSize"`
	TotalImages   int   `json:"totalImages"`
}

// File is the on-disk sidecar format.
type File struct {
	Version      int        `json:"version"`
	AlbumID      string     `json:"albumId"`
	CreatedAt    time.Time  `json:"createdAt"`
	LastSyncedAt *time.Time `json:"lastSyncedAt,omitempty"`
	Stats        Stats      `json:"stats"`
}

// Path returns the sidecar path for a source folder.
func Path(sourceFolder string) string {
	return filepath.Join(sourceFolder, FileName)
}

// Load reads the sidecar in sourceFolder. A missing, corrupt, or otherwise
// unreadable sidecar is treated as absent (fail-soft) rather than an error —
// the reconciler falls back to a full folder scan in that case.
func Load(sourceFolder string) (*File, bool) {
	data, err := os.ReadFile(Path(sourceFolder))
	if err != nil {
		return nil, false
	}

	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, false
	}

	return &f, true
}

// Save atomically writes f to the sidecar path in sourceFolder (write-temp,
// fsync, rename), so a crash mid-write never leaves a half-written sidecar.
func Save(sourceFolder string, f *File) error {
	if f.Version == 0 {
		f.Version = currentVersion
	}

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("sidecar: encoding: %w", err)
	}

	if err := atomic.WriteFile(Path(sourceFolder), bytes.NewReader(data)); err != nil {
		return fmt.Errorf("sidecar: writing %s: %w", sourceFolder, err)
	}

	return nil
}

// New builds a fresh sidecar for a newly discovered or auto-created album.
func New(albumID string, createdAt time.Time) *File {
	return &File{
		Version:   currentVersion,
		AlbumID:   albumID,
		CreatedAt: createdAt,
	}
}

// IsClean reports whether the sidecar's cached stats match the folder's
// current file count and total size — the quick-dirty check that lets the
// reconciler skip a folder entirely.
func (f *File) IsClean(fileCount int, totalSize int64) bool {
	return f.Stats.LastFileCount == fileCount && f.Stats.LastTotalSize == totalSize
}

// ErrAlbumMismatch is returned by VerifyAlbum when a sidecar's recorded
// album id does not match the album it is supposedly bound to.
var ErrAlbumMismatch = errors.New("sidecar: albumId does not match bound album")

// VerifyAlbum checks invariant I5: if a sidecar exists, its albumId must
// equal the album it is found under.
func VerifyAlbum(f *File, albumID string) error {
	if f.AlbumID != albumID {
		return fmt.Errorf("%w: sidecar has %q, expected %q", ErrAlbumMismatch, f.AlbumID, albumID)
	}

	return nil
}
