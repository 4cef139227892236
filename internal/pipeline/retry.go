package pipeline

import (
	"context"
	"os"
	"path/filepath"

	"github.com/lumosnap/synccore/internal/catalog"
	"github.com/lumosnap/synccore/internal/compress"
	"github.com/lumosnap/synccore/internal/hashio"
)

// retryFailedUploads is the single end-of-run retry pass: for every image
// still failed_upload whose compressed output still exists and whose
// source hash still matches, rebuild a descriptor and run one more upload
// batch with freshly-issued presigned URLs. Not a loop — called once per
// run, and a no-op when there is nothing to retry (R2).
func (p *Pipeline) retryFailedUploads(ctx context.Context, album *catalog.Album) error {
	failed, err := p.store.ListImagesByStatus(ctx, album.ID, catalog.StatusFailedUpload)
	if err != nil {
		return err
	}

	if len(failed) == 0 {
		return nil
	}

	descriptors := make([]*descriptor, 0, len(failed))

	for _, img := range failed {
		if desc, ok := rebuildDescriptor(img, album.LocalFolderPath); ok {
			descriptors = append(descriptors, desc)
		}
	}

	if len(descriptors) == 0 {
		return nil
	}

	for start := 0; start < len(descriptors); start += p.opts.BatchSize {
		end := start + p.opts.BatchSize
		if end > len(descriptors) {
			end = len(descriptors)
		}

		if err := p.uploadBatch(ctx, album, descriptors[start:end]); err != nil {
			p.logger.Warn("pipeline: retry batch failed", "album", album.ID, "error", err)
		}
	}

	return nil
}

// rebuildDescriptor reconstructs a descriptor for a failed_upload image from
// its still-present compressed output and recorded hash, without
// recompressing.
func rebuildDescriptor(img *catalog.Image, albumLocalDir string) (*descriptor, bool) {
	outName := compress.OutputName(img.OriginalFilename)
	compressedPath := filepath.Join(albumLocalDir, outName)
	thumbnailPath := filepath.Join(albumLocalDir, thumbnailSubdir, outName)

	info, err := os.Stat(compressedPath)
	if err != nil {
		return nil, false
	}

	if _, err := os.Stat(thumbnailPath); err != nil {
		return nil, false
	}

	currentHash, err := hashio.HashFile(img.LocalFilePath)
	if err != nil || currentHash != img.SourceFileHash {
		return nil, false
	}

	return &descriptor{
		image:          img,
		compressedPath: compressedPath,
		thumbnailPath:  thumbnailPath,
		width:          img.Width,
		height:         img.Height,
		fileSize:       info.Size(),
		sourceHash:     img.SourceFileHash,
	}, true
}

// RetryFailed re-runs the end-of-run retry pass for albumID outside a full
// pipeline run, for callers (e.g. the status/sync CLI) that want to nudge
// stuck failed_upload images without re-enqueuing the whole album.
func (p *Pipeline) RetryFailed(ctx context.Context, albumID string) error {
	album, err := p.store.GetAlbum(ctx, albumID)
	if err != nil {
		return err
	}

	return p.retryFailedUploads(ctx, album)
}
