package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/lumosnap/synccore/internal/catalog"
	"github.com/lumosnap/synccore/internal/events"
	"github.com/lumosnap/synccore/internal/remoteapi"
)

// rateLimitedReaderChunk bounds how many bytes a single WaitN call asks the
// limiter for, so a limiter with a modest burst can still serve large files.
const rateLimitedReaderChunk = 32 * 1024

// runConsumer drains queue into batches of at most BatchSize descriptors
// and uploads each batch until the producer closes the queue.
func (p *Pipeline) runConsumer(ctx context.Context, album *catalog.Album, queue <-chan *descriptor) error {
	for {
		batch, ok := p.drainBatch(ctx, queue)
		if len(batch) == 0 {
			if !ok {
				return nil
			}

			continue
		}

		if err := p.gate.wait(ctx); err != nil {
			return err
		}

		p.publish(events.UploadBatchStart(album.ID, len(batch)))

		if err := p.uploadBatch(ctx, album, batch); err != nil {
			p.logger.Warn("pipeline: batch upload failed", "album", album.ID, "error", err)
		}

		p.emitProgress(ctx, album.ID)

		if !ok {
			return nil
		}
	}
}

// drainBatch blocks for the first item, then greedily collects up to
// BatchSize-1 more without blocking, so a burst of compressions forms one
// batch while a trickle still makes progress one item at a time. The
// returned bool reports whether the queue is still open.
func (p *Pipeline) drainBatch(ctx context.Context, queue <-chan *descriptor) ([]*descriptor, bool) {
	var batch []*descriptor

	select {
	case d, ok := <-queue:
		if !ok {
			return nil, false
		}

		batch = append(batch, d)
	case <-ctx.Done():
		return batch, true
	}

	for len(batch) < p.opts.BatchSize {
		select {
		case d, ok := <-queue:
			if !ok {
				return batch, false
			}

			batch = append(batch, d)
		default:
			return batch, true
		}
	}

	return batch, true
}

// uploadBatch requests presigned URLs for the batch, uploads main+thumbnail
// concurrently (bounded to UploadWorkers), and confirms/updates the results.
func (p *Pipeline) uploadBatch(ctx context.Context, album *catalog.Album, batch []*descriptor) error {
	filenames := make([]string, len(batch))
	for i, d := range batch {
		filenames[i] = d.image.OriginalFilename
	}

	urls, err := p.remote.RequestUploads(ctx, album.ID, filenames)
	if err != nil {
		return p.failBatch(ctx, album.ID, batch, err)
	}

	byFilename := make(map[string]remoteapi.UploadURL, len(urls))
	for _, u := range urls {
		byFilename[u.Filename] = u
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.UploadWorkers)

	results := make([]uploaded, 0, len(batch))

	var resultsMu sync.Mutex

	for _, d := range batch {
		d := d

		u, ok := byFilename[d.image.OriginalFilename]
		if !ok {
			p.markUploadFailure(ctx, album.ID, d.image, fmt.Errorf("pipeline: no upload URL returned for %s", d.image.OriginalFilename))
			continue
		}

		g.Go(func() error {
			if err := p.gate.wait(gctx); err != nil {
				return err
			}

			if err := p.putImage(gctx, d, u); err != nil {
				p.markUploadFailure(gctx, album.ID, d.image, err)
				return nil
			}

			resultsMu.Lock()
			results = append(results, uploaded{desc: d, url: u})
			resultsMu.Unlock()

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	return p.confirmAndUpdate(ctx, album, results)
}

// putImage uploads the main compressed artifact and, if present, its
// thumbnail to their presigned URLs.
func (p *Pipeline) putImage(ctx context.Context, d *descriptor, u remoteapi.UploadURL) error {
	if err := p.putFile(ctx, u.UploadURL, d.compressedPath); err != nil {
		return fmt.Errorf("pipeline: uploading %s: %w", d.image.OriginalFilename, err)
	}

	if u.ThumbnailUploadURL != "" {
		if err := p.putFile(ctx, u.ThumbnailUploadURL, d.thumbnailPath); err != nil {
			return fmt.Errorf("pipeline: uploading thumbnail for %s: %w", d.image.OriginalFilename, err)
		}
	}

	d.image.UploadStatus = catalog.StatusUploading

	return nil
}

// putFile uploads path's contents to uploadURL, throttled by the pipeline's
// bandwidth limiter when one is configured.
func (p *Pipeline) putFile(ctx context.Context, uploadURL, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stating %s: %w", path, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var r io.Reader = f
	if p.limiter != nil {
		r = &rateLimitedReader{ctx: ctx, r: f, limiter: p.limiter}
	}

	_, err = p.remote.PutObject(ctx, uploadURL, r, info.Size())

	return err
}

// rateLimitedReader throttles reads against a shared token-bucket limiter,
// so every concurrent upload worker draws from one overall bandwidth cap.
type rateLimitedReader struct {
	ctx     context.Context
	r       io.Reader
	limiter *rate.Limiter
}

func (r *rateLimitedReader) Read(p []byte) (int, error) {
	if len(p) > rateLimitedReaderChunk {
		p = p[:rateLimitedReaderChunk]
	}

	n, err := r.r.Read(p)
	if n > 0 {
		if waitErr := r.limiter.WaitN(r.ctx, n); waitErr != nil {
			return n, waitErr
		}
	}

	return n, err
}

func (p *Pipeline) markUploadFailure(ctx context.Context, albumID string, img *catalog.Image, cause error) {
	img.UploadStatus = catalog.StatusFailedUpload
	if err := p.store.UpdateImage(ctx, img); err != nil {
		p.logger.Warn("pipeline: recording failed_upload", "image", img.ID, "error", err)
	}

	p.markFailed(albumID, img.ID)
	p.publish(events.UploadError(albumID, img.ID, cause))
	p.emitProgress(ctx, albumID)
}

func (p *Pipeline) failBatch(ctx context.Context, albumID string, batch []*descriptor, cause error) error {
	for _, d := range batch {
		p.markUploadFailure(ctx, albumID, d.image, cause)
	}

	return fmt.Errorf("pipeline: requesting upload urls: %w", cause)
}
