package pipeline

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/lumosnap/synccore/internal/catalog"
	"github.com/lumosnap/synccore/internal/compress"
	"github.com/lumosnap/synccore/internal/hashio"
)

// descriptor is a compressed image ready for upload, passed from the
// producer to the consumer over the bounded queue.
type descriptor struct {
	image          *catalog.Image
	compressedPath string
	thumbnailPath  string
	width          int
	height         int
	fileSize       int64
	sourceHash     string
}

func (p *Pipeline) resetFailedSet(albumID string) {
	p.mu.Lock()
	p.failedSets[albumID] = make(map[int64]bool)
	p.mu.Unlock()
}

func (p *Pipeline) markFailed(albumID string, imageID int64) {
	p.mu.Lock()
	if p.failedSets[albumID] == nil {
		p.failedSets[albumID] = make(map[int64]bool)
	}
	p.failedSets[albumID][imageID] = true
	p.mu.Unlock()
}

func (p *Pipeline) clearFailed(albumID string, imageID int64) {
	p.mu.Lock()
	delete(p.failedSets[albumID], imageID)
	p.mu.Unlock()
}

// runProducer compresses every pending/failed_compression image for album,
// pushing a descriptor onto queue for each success and transitioning
// failures to failed_compression. Closes queue when the source list is
// exhausted or ctx is canceled.
func (p *Pipeline) runProducer(ctx context.Context, album *catalog.Album, images []*catalog.Image, queue chan<- *descriptor) error {
	defer close(queue)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.CompressWorkers)

	for _, img := range images {
		img := img

		g.Go(func() error {
			if err := p.gate.wait(gctx); err != nil {
				return err
			}

			desc, err := p.compressImage(gctx, album, img)
			if err != nil {
				p.logger.Warn("pipeline: compression failed", "album", album.ID, "image", img.ID, "error", err)
				p.failCompression(gctx, album.ID, img)

				return nil
			}

			select {
			case queue <- desc:
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	}

	return g.Wait()
}

func (p *Pipeline) failCompression(ctx context.Context, albumID string, img *catalog.Image) {
	img.UploadStatus = catalog.StatusFailedCompression
	if err := p.store.UpdateImage(ctx, img); err != nil {
		p.logger.Warn("pipeline: recording failed_compression", "image", img.ID, "error", err)
	}

	p.markFailed(albumID, img.ID)
	p.emitProgress(ctx, albumID)
}

// compressImage resolves one image to a descriptor, short-circuiting to
// on-disk metadata when a prior run's output is still valid.
func (p *Pipeline) compressImage(ctx context.Context, album *catalog.Album, img *catalog.Image) (*descriptor, error) {
	outName := compress.OutputName(img.OriginalFilename)
	compressedPath := filepath.Join(album.LocalFolderPath, outName)
	thumbnailDir := filepath.Join(album.LocalFolderPath, thumbnailSubdir)
	thumbnailPath := filepath.Join(thumbnailDir, outName)

	if !p.opts.InvalidateResumedCompression {
		if desc, ok := resumeFromDisk(img, compressedPath, thumbnailPath); ok {
			return desc, nil
		}
	}

	future := p.pool.Submit(ctx, compress.Task{
		SourcePath:    img.LocalFilePath,
		AlbumLocalDir: album.LocalFolderPath,
		ThumbnailDir:  thumbnailDir,
		OriginalName:  img.OriginalFilename,
	})

	result, err := future.Get(ctx)
	if err != nil {
		return nil, err
	}

	img.Width = result.Width
	img.Height = result.Height
	img.UploadStatus = catalog.StatusCompressing

	if err := p.store.UpdateImage(ctx, img); err != nil {
		return nil, fmt.Errorf("pipeline: recording compressing status for image %d: %w", img.ID, err)
	}

	return &descriptor{
		image:          img,
		compressedPath: result.CompressedPath,
		thumbnailPath:  result.ThumbnailPath,
		width:          result.Width,
		height:         result.Height,
		fileSize:       result.FileSize,
		sourceHash:     result.Hash,
	}, nil
}

// resumeFromDisk implements the resumability short-circuit: if a prior
// compression output still exists and the staged source file's hash still
// matches the image's stored hash, skip recompression entirely.
func resumeFromDisk(img *catalog.Image, compressedPath, thumbnailPath string) (*descriptor, bool) {
	if img.SourceFileHash == "" {
		return nil, false
	}

	compressedInfo, err := os.Stat(compressedPath)
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

	width, height := decodeDimensions(compressedPath)

	return &descriptor{
		image:          img,
		compressedPath: compressedPath,
		thumbnailPath:  thumbnailPath,
		width:          width,
		height:         height,
		fileSize:       compressedInfo.Size(),
		sourceHash:     img.SourceFileHash,
	}, true
}

func decodeDimensions(path string) (width, height int) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0
	}

	return cfg.Width, cfg.Height
}
