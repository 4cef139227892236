package pipeline

import (
	"context"
	"fmt"

	"github.com/lumosnap/synccore/internal/catalog"
	"github.com/lumosnap/synccore/internal/remoteapi"
)

type uploaded struct {
	desc *descriptor
	url  remoteapi.UploadURL
}

// confirmAndUpdate partitions successfully-uploaded images by whether they
// already have a serverId: new images are POST-confirmed (which assigns a
// serverId), existing ones are PATCH-updated in place.
func (p *Pipeline) confirmAndUpdate(ctx context.Context, album *catalog.Album, results []uploaded) error {
	if len(results) == 0 {
		return nil
	}

	var toConfirm, toUpdate []uploaded

	for _, r := range results {
		if r.desc.image.ServerID == nil {
			toConfirm = append(toConfirm, r)
		} else {
			toUpdate = append(toUpdate, r)
		}
	}

	if len(toConfirm) > 0 {
		if err := p.confirmNew(ctx, album, toConfirm); err != nil {
			return err
		}
	}

	if len(toUpdate) > 0 {
		if err := p.updateExisting(ctx, album, toUpdate); err != nil {
			return err
		}
	}

	return nil
}

func (p *Pipeline) confirmNew(ctx context.Context, album *catalog.Album, batch []uploaded) error {
	images := make([]remoteapi.ConfirmImage, len(batch))
	for i, r := range batch {
		images[i] = remoteapi.ConfirmImage{
			Filename:        r.desc.image.OriginalFilename,
			Key:             r.url.Key,
			ThumbnailKey:    r.url.ThumbnailKey,
			SourceImageHash: r.desc.sourceHash,
			FileSize:        r.desc.fileSize,
			Width:           r.desc.width,
			Height:          r.desc.height,
			UploadOrder:     r.desc.image.UploadOrder,
		}
	}

	confirmed, err := p.remote.ConfirmUploads(ctx, album.ID, images)
	if err != nil {
		for _, r := range batch {
			p.markUploadFailure(ctx, album.ID, r.desc.image, err)
		}

		return fmt.Errorf("pipeline: confirming uploads: %w", err)
	}

	byFilename := make(map[string]int64, len(confirmed))
	for _, c := range confirmed {
		byFilename[c.OriginalFilename] = c.ID
	}

	for _, r := range batch {
		serverID, ok := byFilename[r.desc.image.OriginalFilename]
		if !ok {
			p.markUploadFailure(ctx, album.ID, r.desc.image, fmt.Errorf("pipeline: no confirmation returned for %s", r.desc.image.OriginalFilename))
			continue
		}

		p.finishImage(ctx, album.ID, r.desc, &serverID)
	}

	return nil
}

func (p *Pipeline) updateExisting(ctx context.Context, album *catalog.Album, batch []uploaded) error {
	updates := make([]remoteapi.ImageUpdate, len(batch))
	for i, r := range batch {
		updates[i] = remoteapi.ImageUpdate{
			ImageID:         *r.desc.image.ServerID,
			SourceImageHash: r.desc.sourceHash,
			Key:             r.url.Key,
			FileSize:        r.desc.fileSize,
			Width:           r.desc.width,
			Height:          r.desc.height,
		}
	}

	if err := p.remote.UpdateImages(ctx, album.ID, updates); err != nil {
		for _, r := range batch {
			p.markUploadFailure(ctx, album.ID, r.desc.image, err)
		}

		return fmt.Errorf("pipeline: updating images: %w", err)
	}

	for _, r := range batch {
		p.finishImage(ctx, album.ID, r.desc, r.desc.image.ServerID)
	}

	return nil
}

// finishImage transitions an image to complete, records its final server
// id and compressed-file metadata, and clears it from the failed set.
func (p *Pipeline) finishImage(ctx context.Context, albumID string, d *descriptor, serverID *int64) {
	img := d.image
	img.ServerID = serverID
	img.UploadStatus = catalog.StatusComplete
	img.FileSize = d.fileSize
	img.Width = d.width
	img.Height = d.height

	if err := p.store.UpdateImage(ctx, img); err != nil {
		p.logger.Warn("pipeline: recording complete image", "image", img.ID, "error", err)
		return
	}

	p.clearFailed(albumID, img.ID)
	p.emitProgress(ctx, albumID)
}
