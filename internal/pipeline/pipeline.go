// Package pipeline drives a single album's pending images end-to-end:
// compression through the worker pool, upload through the remote API, and
// the catalog/sidecar bookkeeping that follows a clean run. At most one
// album runs at a time; additional requests queue FIFO.
package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/lumosnap/synccore/internal/catalog"
	"github.com/lumosnap/synccore/internal/compress"
	"github.com/lumosnap/synccore/internal/events"
	"github.com/lumosnap/synccore/internal/hashio"
	"github.com/lumosnap/synccore/internal/netmon"
	"github.com/lumosnap/synccore/internal/remoteapi"
	"github.com/lumosnap/synccore/internal/sidecar"
)

// Tunables, overridable via Options.
const (
	DefaultCompressWorkers = 4
	DefaultUploadWorkers   = 5
	DefaultQueueCapacity   = 200
	DefaultBatchSize       = 100

	thumbnailSubdir = ".thumbnail"
)

// RunState is the lifecycle state of a single album's pipeline run.
type RunState string

const (
	StateIdle    RunState = "idle"
	StateRunning RunState = "running"
	StatePaused  RunState = "paused"
	StateDone    RunState = "done"
	StateAborted RunState = "aborted"
)

// Options configures a Pipeline's concurrency and batching tunables.
type Options struct {
	CompressWorkers int
	UploadWorkers   int
	QueueCapacity   int
	BatchSize       int

	// BandwidthLimit caps total upload throughput in bytes/sec across every
	// concurrent PUT. Zero (the default) means unlimited.
	BandwidthLimit int64

	// InvalidateResumedCompression disables the resumability short-circuit
	// for this run: every pending/failed_compression image recompresses
	// from source rather than reusing a prior run's on-disk output. Set
	// when the caller detects that compression-affecting ops tunables
	// changed since the last run.
	InvalidateResumedCompression bool
}

func (o Options) withDefaults() Options {
	if o.CompressWorkers <= 0 {
		o.CompressWorkers = DefaultCompressWorkers
	}

	if o.UploadWorkers <= 0 {
		o.UploadWorkers = DefaultUploadWorkers
	}

	if o.QueueCapacity <= 0 {
		o.QueueCapacity = DefaultQueueCapacity
	}

	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}

	return o
}

// Pipeline owns the compression pool, the remote client, and the FIFO
// scheduler enforcing the single-active-run invariant.
type Pipeline struct {
	store  *catalog.Store
	pool   *compress.Pool
	remote *remoteapi.Client
	bus    *events.Bus
	netmon *netmon.Monitor
	logger *slog.Logger
	opts   Options

	gate    *pauseGate
	limiter *rate.Limiter // nil when Options.BandwidthLimit is unset

	mu         sync.Mutex
	queuedSet  map[string]bool
	queue      []string
	running    string
	state      map[string]RunState
	failedSets map[string]map[int64]bool
	wake       chan struct{}
}

// New creates a Pipeline. pool and remote must be non-nil; bus and netmon
// may be nil (events are dropped, pause/resume is never driven externally).
func New(store *catalog.Store, pool *compress.Pool, remote *remoteapi.Client, bus *events.Bus, mon *netmon.Monitor, opts Options, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}

	p := &Pipeline{
		store:      store,
		pool:       pool,
		remote:     remote,
		bus:        bus,
		netmon:     mon,
		logger:     logger,
		opts:       opts.withDefaults(),
		gate:       newPauseGate(),
		limiter:    newUploadLimiter(opts.BandwidthLimit),
		queuedSet:  make(map[string]bool),
		state:      make(map[string]RunState),
		failedSets: make(map[string]map[int64]bool),
		wake:       make(chan struct{}, 1),
	}

	return p
}

// newUploadLimiter builds a token-bucket limiter sized to bytesPerSec, or
// returns nil (no throttling) when bytesPerSec is zero. The burst is at
// least one read chunk (see rateLimitedReaderChunk), so a single WaitN call
// never exceeds it regardless of how low bytesPerSec is configured.
func newUploadLimiter(bytesPerSec int64) *rate.Limiter {
	if bytesPerSec <= 0 {
		return nil
	}

	burst := bytesPerSec
	if burst < rateLimitedReaderChunk {
		burst = rateLimitedReaderChunk
	}

	return rate.NewLimiter(rate.Limit(bytesPerSec), int(burst))
}

// Enqueue adds albumID to the FIFO run queue if it is not already queued or
// running. Safe to call concurrently.
func (p *Pipeline) Enqueue(albumID string) {
	p.mu.Lock()

	if p.queuedSet[albumID] || p.running == albumID {
		p.mu.Unlock()
		return
	}

	p.queuedSet[albumID] = true
	p.queue = append(p.queue, albumID)
	p.state[albumID] = StateRunning // queued counts as not-idle for status purposes
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// State returns the last known run state for albumID, or StateIdle if it
// has never been enqueued.
func (p *Pipeline) State(albumID string) RunState {
	p.mu.Lock()
	defer p.mu.Unlock()

	if s, ok := p.state[albumID]; ok {
		return s
	}

	return StateIdle
}

func (p *Pipeline) setState(albumID string, s RunState) {
	p.mu.Lock()
	p.state[albumID] = s
	p.mu.Unlock()
}

func (p *Pipeline) popNext() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.queue) == 0 {
		return "", false
	}

	albumID := p.queue[0]
	p.queue = p.queue[1:]
	delete(p.queuedSet, albumID)
	p.running = albumID

	return albumID, true
}

func (p *Pipeline) finishRunning() {
	p.mu.Lock()
	p.running = ""
	p.mu.Unlock()
}

// Run is the scheduler loop: pop the next queued album and run it to
// completion, one at a time, until ctx is canceled.
func (p *Pipeline) Run(ctx context.Context) {
	if p.netmon != nil {
		go p.watchConnectivity(ctx)
	}

	for {
		albumID, ok := p.popNext()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-p.wake:
				continue
			}
		}

		if err := p.runAlbum(ctx, albumID); err != nil {
			p.logger.Warn("pipeline: run failed", "album", albumID, "error", err)
		}

		p.finishRunning()
	}
}

// watchConnectivity drives the pause gate from the network monitor.
func (p *Pipeline) watchConnectivity(ctx context.Context) {
	ch := p.netmon.Subscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case online, ok := <-ch:
			if !ok {
				return
			}

			if online {
				p.gate.resume()
				p.publish(events.NetworkStatusChanged(true))
			} else {
				p.gate.pause()
				p.publish(events.NetworkStatusChanged(false))
			}
		}
	}
}

func (p *Pipeline) publish(ev events.Event) {
	if p.bus != nil {
		p.bus.Publish(ev)
	}
}

// runAlbum runs one album's producer/consumer to completion, followed by
// the single end-of-run retry pass.
func (p *Pipeline) runAlbum(ctx context.Context, albumID string) error {
	if p.netmon != nil && !p.netmon.Online() {
		if err := p.awaitOnline(ctx); err != nil {
			return err
		}
	}

	album, err := p.store.GetAlbum(ctx, albumID)
	if err != nil {
		p.setState(albumID, StateAborted)
		return err
	}

	p.setState(albumID, StateRunning)
	p.resetFailedSet(albumID)

	images, err := p.pendingImages(ctx, albumID)
	if err != nil {
		p.setState(albumID, StateAborted)
		return err
	}

	if len(images) == 0 {
		return p.retryFailedUploads(ctx, album)
	}

	queue := make(chan *descriptor, p.opts.QueueCapacity)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return p.runProducer(gctx, album, images, queue)
	})
	g.Go(func() error {
		return p.runConsumer(gctx, album, queue)
	})

	runErr := g.Wait()

	if runErr != nil {
		p.setState(albumID, StateAborted)
		return runErr
	}

	if err := p.retryFailedUploads(ctx, album); err != nil {
		p.logger.Warn("pipeline: end-of-run retry failed", "album", albumID, "error", err)
	}

	if err := p.completeRun(ctx, album); err != nil {
		return err
	}

	p.setState(albumID, StateDone)
	p.publish(events.UploadComplete(albumID))

	return nil
}

// awaitOnline blocks until the network monitor reports connectivity or ctx
// is canceled.
func (p *Pipeline) awaitOnline(ctx context.Context) error {
	ch := p.netmon.Subscribe()

	for {
		if p.netmon.Online() {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case online := <-ch:
			if online {
				return nil
			}
		}
	}
}

func (p *Pipeline) pendingImages(ctx context.Context, albumID string) ([]*catalog.Image, error) {
	pending, err := p.store.ListImagesByStatus(ctx, albumID, catalog.StatusPending)
	if err != nil {
		return nil, err
	}

	failedCompression, err := p.store.ListImagesByStatus(ctx, albumID, catalog.StatusFailedCompression)
	if err != nil {
		return nil, err
	}

	return append(pending, failedCompression...), nil
}

// completeRun applies the post-completion bookkeeping: lastSyncedAt,
// needsSync, and a fresh sidecar.
func (p *Pipeline) completeRun(ctx context.Context, album *catalog.Album) error {
	fresh, err := p.store.GetAlbum(ctx, album.ID)
	if err != nil {
		return err
	}

	now := time.Now()
	fresh.NeedsSync = false
	fresh.LastSyncedAt = &now

	if err := p.store.UpdateAlbum(ctx, fresh); err != nil {
		return err
	}

	f, ok := sidecar.Load(fresh.SourceFolderPath)
	if !ok {
		f = sidecar.New(fresh.ID, fresh.CreatedAt)
	}

	if entries, err := hashio.Scan(fresh.SourceFolderPath); err == nil {
		count, total := scanTotals(entries)
		f.Stats.LastFileCount = count
		f.Stats.LastTotalSize = total
		f.Stats.TotalImages = fresh.TotalImages
	}

	f.LastSyncedAt = &now

	return sidecar.Save(fresh.SourceFolderPath, f)
}

// scanTotals sums a folder scan's entry count and total byte size, the
// same fingerprint the reconciler's sidecar writes use.
func scanTotals(entries []hashio.Entry) (count int, totalSize int64) {
	for _, e := range entries {
		count++
		totalSize += e.Size
	}

	return count, totalSize
}
