package reconciler

import (
	"context"
	"fmt"

	"github.com/lumosnap/synccore/internal/catalog"
	"github.com/lumosnap/synccore/internal/hashio"
	"github.com/lumosnap/synccore/internal/sidecar"
)

// Detect classifies the source folder's current state against the album's
// catalog rows. It never mutates anything; callers apply the result with
// Execute.
func (r *Reconciler) Detect(ctx context.Context, album *catalog.Album) (*Changes, error) {
	entries, err := r.scanCache.Scan(album.SourceFolderPath)
	if err != nil {
		return nil, fmt.Errorf("reconciler: scanning %s: %w", album.SourceFolderPath, err)
	}

	if sc, ok := sidecar.Load(album.SourceFolderPath); ok {
		count, total := folderTotals(entries)
		if sc.IsClean(count, total) {
			r.logger.Debug("reconciler: sidecar clean, skipping", "album", album.ID)
			return &Changes{}, nil
		}
	}

	existing, err := r.store.ListImagesByAlbum(ctx, album.ID)
	if err != nil {
		return nil, fmt.Errorf("reconciler: listing images for %s: %w", album.ID, err)
	}

	byFilename := make(map[string]*catalog.Image, len(existing))
	for _, img := range existing {
		byFilename[img.OriginalFilename] = img
	}

	byFilenameInScan := make(map[string]bool, len(entries))

	var (
		modified           []ModifiedFile
		heldNew            []hashio.Entry
		potentiallyDeleted []*catalog.Image
	)

	for _, e := range entries {
		byFilenameInScan[e.Basename] = true

		img, ok := byFilename[e.Basename]
		if !ok {
			heldNew = append(heldNew, e)
			continue
		}

		changed := !e.Mtime.Equal(img.Mtime) || e.Size != img.FileSize
		if changed && lastSyncedBefore(album, e) {
			modified = append(modified, ModifiedFile{
				Image:  img,
				Path:   e.Path,
				Size:   e.Size,
				Mtime:  e.Mtime,
				Width:  e.Width,
				Height: e.Height,
			})
		}
	}

	var present []*catalog.Image

	for _, img := range existing {
		if !byFilenameInScan[img.OriginalFilename] {
			potentiallyDeleted = append(potentiallyDeleted, img)
		} else {
			present = append(present, img)
		}
	}

	newFiles, skipped, err := classifyNewFiles(heldNew, present)
	if err != nil {
		return nil, err
	}

	renamed, remainingNew, remainingDeleted := detectRenames(newFiles, potentiallyDeleted)

	return &Changes{
		New:      remainingNew,
		Modified: modified,
		Deleted:  remainingDeleted,
		Renamed:  renamed,
		Skipped:  skipped,
	}, nil
}

// lastSyncedBefore reports whether e's mtime is after the album's last sync
// — the condition spec.md §4.5 step 4 requires before a size/mtime
// difference is classified as a modification.
func lastSyncedBefore(album *catalog.Album, e hashio.Entry) bool {
	if album.LastSyncedAt == nil {
		return true
	}

	return e.Mtime.After(*album.LastSyncedAt)
}

// classifyNewFiles computes the source hash for every held candidate and
// splits it into genuinely-new files versus duplicates of the recorded
// source hash of an Image whose file is still in the folder (step 6-7).
func classifyNewFiles(held []hashio.Entry, existing []*catalog.Image) ([]NewFile, []SkippedFile, error) {
	hashToExisting := make(map[string]*catalog.Image, len(existing))

	for _, img := range existing {
		if img.SourceFileHash != "" {
			hashToExisting[img.SourceFileHash] = img
		}
	}

	var (
		newFiles []NewFile
		skipped  []SkippedFile
	)

	for _, e := range held {
		hash, err := hashio.HashFile(e.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("reconciler: hashing %s: %w", e.Path, err)
		}

		if dup, ok := hashToExisting[hash]; ok {
			skipped = append(skipped, SkippedFile{
				Basename: e.Basename,
				Reason:   fmt.Sprintf("duplicate of %s", dup.OriginalFilename),
			})

			continue
		}

		newFiles = append(newFiles, NewFile{
			Basename: e.Basename,
			Path:     e.Path,
			Size:     e.Size,
			Mtime:    e.Mtime,
			Width:    e.Width,
			Height:   e.Height,
			Hash:     hash,
		})
	}

	return newFiles, skipped, nil
}

// detectRenames matches held-new files against potentially-deleted rows by
// source hash (step 8). On a hash shared by multiple potentially-deleted
// rows, the lowest id wins. Unmatched new files remain "new"; unmatched
// deleted rows remain "deleted".
func detectRenames(newFiles []NewFile, potentiallyDeleted []*catalog.Image) ([]RenamedFile, []NewFile, []*catalog.Image) {
	deletedByHash := make(map[string][]*catalog.Image)

	for _, img := range potentiallyDeleted {
		if img.SourceFileHash == "" {
			continue
		}

		deletedByHash[img.SourceFileHash] = append(deletedByHash[img.SourceFileHash], img)
	}

	matchedDeleted := make(map[int64]bool)

	var (
		renamed      []RenamedFile
		remainingNew []NewFile
	)

	for _, nf := range newFiles {
		candidates := deletedByHash[nf.Hash]
		if len(candidates) == 0 {
			remainingNew = append(remainingNew, nf)
			continue
		}

		candidate := lowestID(candidates, matchedDeleted)
		if candidate == nil {
			remainingNew = append(remainingNew, nf)
			continue
		}

		matchedDeleted[candidate.ID] = true

		renamed = append(renamed, RenamedFile{
			Image:       candidate,
			OldFilename: candidate.OriginalFilename,
			NewFilename: nf.Basename,
			NewPath:     nf.Path,
		})
	}

	var remainingDeleted []*catalog.Image

	for _, img := range potentiallyDeleted {
		if !matchedDeleted[img.ID] {
			remainingDeleted = append(remainingDeleted, img)
		}
	}

	return renamed, remainingNew, remainingDeleted
}

// lowestID returns the lowest-id candidate not already matched.
func lowestID(candidates []*catalog.Image, matched map[int64]bool) *catalog.Image {
	var best *catalog.Image

	for _, c := range candidates {
		if matched[c.ID] {
			continue
		}

		if best == nil || c.ID < best.ID {
			best = c
		}
	}

	return best
}

func folderTotals(entries []hashio.Entry) (count int, totalSize int64) {
	for _, e := range entries {
		count++
		totalSize += e.Size
	}

	return count, totalSize
}
