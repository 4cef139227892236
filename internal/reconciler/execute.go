package reconciler

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/lumosnap/synccore/internal/catalog"
	"github.com/lumosnap/synccore/internal/hashio"
	"github.com/lumosnap/synccore/internal/sidecar"
)

// stagedDir is the subfolder of an album's local folder holding raw source
// copies awaiting compression. Image.LocalFilePath keeps pointing at the
// staged copy; the compression pipeline reads from here and writes its
// output into the album's local folder.
const stagedDir = "source"

// Execute applies changes to the catalog and local filesystem transactionally:
// either the whole batch commits or none of it does, so a crash mid-apply
// can never leave the catalog half-changed.
func (r *Reconciler) Execute(ctx context.Context, album *catalog.Album, changes *Changes) error {
	newFiles, limited, err := r.admitNewFiles(ctx, album, changes.New)
	if err != nil {
		return err
	}

	changes.New = newFiles
	changes.LimitWarning = limited

	if err := r.deleteFromRemote(ctx, album, changes.Deleted); err != nil {
		return err
	}

	err = r.store.WithTx(ctx, func(tx *catalog.Tx) error {
		return r.applyChanges(ctx, tx, album, changes)
	})
	if err != nil {
		return fmt.Errorf("reconciler: executing changes for %s: %w", album.ID, err)
	}

	r.scanCache.Invalidate(album.SourceFolderPath)

	return r.refreshSidecar(album)
}

// admitNewFiles enforces the plan-limit: truncates New to the remaining
// slots allowed by the remote account's image limit. Modified and Deleted
// are never limited.
func (r *Reconciler) admitNewFiles(ctx context.Context, album *catalog.Album, newFiles []NewFile) ([]NewFile, bool, error) {
	if r.profile == nil || len(newFiles) == 0 {
		return newFiles, false, nil
	}

	limit, err := r.profile.ImageLimit(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("reconciler: querying image limit: %w", err)
	}

	remaining := limit - album.TotalImages
	if remaining < 0 {
		remaining = 0
	}

	if remaining == 0 {
		return nil, true, nil
	}

	if len(newFiles) > remaining {
		return newFiles[:remaining], true, nil
	}

	return newFiles, false, nil
}

// deleteFromRemote removes every deleted image that was already uploaded
// (non-nil ServerID) from the remote album before the local rows are
// dropped, so a locally-deleted image never sits orphaned on the remote
// service. Images never uploaded (nil ServerID) have nothing to delete
// remotely.
func (r *Reconciler) deleteFromRemote(ctx context.Context, album *catalog.Album, deleted []*catalog.Image) error {
	if r.remote == nil {
		return nil
	}

	ids := make([]int64, 0, len(deleted))
	for _, img := range deleted {
		if img.ServerID != nil {
			ids = append(ids, *img.ServerID)
		}
	}

	if len(ids) == 0 {
		return nil
	}

	if _, err := r.remote.DeleteImages(ctx, album.ID, ids); err != nil {
		return fmt.Errorf("reconciler: deleting %d image(s) from remote album %s: %w", len(ids), album.ID, err)
	}

	return nil
}

func (r *Reconciler) applyChanges(ctx context.Context, tx *catalog.Tx, album *catalog.Album, changes *Changes) error {
	for _, d := range changes.Deleted {
		if err := tx.DeleteImage(ctx, d.ID); err != nil {
			return fmt.Errorf("deleting image %d: %w", d.ID, err)
		}
	}

	for _, rn := range changes.Renamed {
		if err := hashio.CopyFile(rn.NewPath, filepath.Join(album.LocalFolderPath, stagedDir, rn.NewFilename)); err != nil {
			return err
		}

		rn.Image.OriginalFilename = rn.NewFilename
		rn.Image.LocalFilePath = filepath.Join(album.LocalFolderPath, stagedDir, rn.NewFilename)

		if err := tx.UpdateImage(ctx, rn.Image); err != nil {
			return fmt.Errorf("renaming image %d: %w", rn.Image.ID, err)
		}
	}

	for _, m := range changes.Modified {
		staged := filepath.Join(album.LocalFolderPath, stagedDir, m.Image.OriginalFilename)
		if err := hashio.CopyFile(m.Path, staged); err != nil {
			return err
		}

		m.Image.LocalFilePath = staged
		m.Image.FileSize = m.Size
		m.Image.Mtime = m.Mtime
		m.Image.Width = m.Width
		m.Image.Height = m.Height
		m.Image.UploadStatus = catalog.StatusPending

		if err := tx.UpdateImage(ctx, m.Image); err != nil {
			return fmt.Errorf("updating modified image %d: %w", m.Image.ID, err)
		}
	}

	nextOrder, err := r.nextUploadOrder(ctx, tx, album.ID)
	if err != nil {
		return err
	}

	for _, n := range changes.New {
		staged := filepath.Join(album.LocalFolderPath, stagedDir, n.Basename)
		if err := hashio.CopyFile(n.Path, staged); err != nil {
			return err
		}

		img := &catalog.Image{
			AlbumID:          album.ID,
			OriginalFilename: n.Basename,
			LocalFilePath:    staged,
			FileSize:         n.Size,
			Width:            n.Width,
			Height:           n.Height,
			Mtime:            n.Mtime,
			SourceFileHash:   n.Hash,
			UploadStatus:     catalog.StatusPending,
			UploadOrder:      nextOrder,
		}
		nextOrder++

		if err := tx.CreateImage(ctx, img); err != nil {
			return fmt.Errorf("inserting new image %s: %w", n.Basename, err)
		}
	}

	now := time.Now()
	album.TotalImages += len(changes.New) - len(changes.Deleted)
	album.NeedsSync = false
	album.LastSyncedAt = &now

	return tx.UpdateAlbum(ctx, album)
}

// nextUploadOrder returns max(uploadOrder)+1 across the album's current
// images, satisfying invariant I6 (distinct, monotonic upload order).
func (r *Reconciler) nextUploadOrder(ctx context.Context, tx *catalog.Tx, albumID string) (int64, error) {
	images, err := tx.ListImagesByAlbum(ctx, albumID)
	if err != nil {
		return 0, fmt.Errorf("reconciler: listing images for upload order: %w", err)
	}

	var max int64

	for _, img := range images {
		if img.UploadOrder > max {
			max = img.UploadOrder
		}
	}

	return max + 1, nil
}

// refreshSidecar rewrites the sidecar with fresh stats after a successful
// Execute.
func (r *Reconciler) refreshSidecar(album *catalog.Album) error {
	entries, err := hashio.Scan(album.SourceFolderPath)
	if err != nil {
		return fmt.Errorf("reconciler: refreshing sidecar for %s: %w", album.ID, err)
	}

	count, total := folderTotals(entries)

	f, ok := sidecar.Load(album.SourceFolderPath)
	if !ok {
		f = sidecar.New(album.ID, time.Now())
	}

	now := time.Now()
	f.LastSyncedAt = &now
	f.Stats = sidecar.Stats{LastFileCount: count, LastTotalSize: total, TotalImages: album.TotalImages}

	return sidecar.Save(album.SourceFolderPath, f)
}
