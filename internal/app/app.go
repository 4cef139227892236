// Package app wires every long-lived component — catalog, watcher,
// reconciler, compression pool, remote client, upload pipeline, and
// connectivity monitor — into one running instance, and is the only place
// that holds a reference to all of them at once. No package under internal/
// imports app; only the CLI does, which is what makes it the composition
// root.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/lumosnap/synccore/internal/catalog"
	"github.com/lumosnap/synccore/internal/compress"
	"github.com/lumosnap/synccore/internal/events"
	"github.com/lumosnap/synccore/internal/hashio"
	"github.com/lumosnap/synccore/internal/netmon"
	"github.com/lumosnap/synccore/internal/opsconfig"
	"github.com/lumosnap/synccore/internal/pipeline"
	"github.com/lumosnap/synccore/internal/reconciler"
	"github.com/lumosnap/synccore/internal/remoteapi"
	"github.com/lumosnap/synccore/internal/watcher"
)

// catalogFileName and lockFileName are fixed names within dataDir.
const (
	catalogFileName = "catalog.db"
	lockFileName    = "lumosnap.lock"
)

// App owns every long-lived resource for one running instance against one
// data directory. Exactly one App may run against a given dataDir at a
// time; New enforces this with an on-disk lock.
type App struct {
	dataDir      string
	masterFolder string
	logger       *slog.Logger

	lock *flock.Flock

	store     *catalog.Store
	scanCache *hashio.ScanCache
	remote    *remoteapi.Client
	rec       *reconciler.Reconciler
	pool      *compress.Pool
	bus       *events.Bus
	mon       *netmon.Monitor
	pipe      *pipeline.Pipeline
	watcher   *watcher.Watcher

	cancel context.CancelFunc
}

// Config bundles the inputs New needs beyond dataDir and masterFolder: the
// resolved ops tunables and where the remote API lives.
type Config struct {
	Ops     *opsconfig.Resolved
	BaseURL string
}

// New acquires an exclusive lock on dataDir, opens the catalog, and wires
// together every subsystem. The returned App is not yet running filesystem
// watches or the upload pipeline — call Start for that.
func New(ctx context.Context, dataDir, masterFolder string, cfg Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.Ops == nil {
		cfg.Ops = &opsconfig.Resolved{}
	}

	lock := flock.New(filepath.Join(dataDir, lockFileName))

	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("app: locking %s: %w", dataDir, err)
	}

	if !locked {
		return nil, fmt.Errorf("app: %s is already in use by another running instance", dataDir)
	}

	store, err := catalog.Open(ctx, filepath.Join(dataDir, catalogFileName), logger)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("app: opening catalog: %w", err)
	}

	scanCache := hashio.NewScanCache()

	qualityChanged, err := checkQualitySnapshot(ctx, store, cfg.Ops, logger)
	if err != nil {
		_ = store.Close()
		_ = lock.Unlock()

		return nil, fmt.Errorf("app: checking config snapshot: %w", err)
	}

	tokens := &tokenProvider{dataDir: dataDir}
	httpClient := &http.Client{}
	remote := remoteapi.NewClient(cfg.BaseURL, httpClient, tokens, logger)

	rec := reconciler.New(store, scanCache, remote, remote, logger)

	pool := compress.NewPool(ctx, cfg.Ops.CompressWorkers, qualityOptions(cfg.Ops), logger)

	bus := events.NewBus()
	mon := netmon.New(nil, logger)

	pipe := pipeline.New(store, pool, remote, bus, mon, pipeline.Options{
		CompressWorkers:              cfg.Ops.CompressWorkers,
		UploadWorkers:                cfg.Ops.UploadWorkers,
		QueueCapacity:                cfg.Ops.QueueCapacity,
		BatchSize:                    cfg.Ops.BatchSize,
		BandwidthLimit:               cfg.Ops.BandwidthLimit,
		InvalidateResumedCompression: qualityChanged,
	}, logger)

	a := &App{
		dataDir:      dataDir,
		masterFolder: masterFolder,
		logger:       logger,
		lock:         lock,
		store:        store,
		scanCache:    scanCache,
		remote:       remote,
		rec:          rec,
		pool:         pool,
		bus:          bus,
		mon:          mon,
		pipe:         pipe,
	}

	a.watcher = watcher.New(store, rec, &albumNotifier{app: a}, remote, masterFolder, cfg.Ops.DebounceWindow, logger)

	return a, nil
}

// configSnapshotKey is the config_snapshot row tracking the
// compression-quality tunables last used against this catalog.
const configSnapshotKey = "compression_quality"

// checkQualitySnapshot compares ops.QualitySnapshot() against the catalog's
// persisted snapshot, saving the current value and reporting whether it
// differs from a prior run's (a first run, with no prior snapshot, reports
// no change — there is nothing to invalidate yet).
func checkQualitySnapshot(ctx context.Context, store *catalog.Store, ops *opsconfig.Resolved, logger *slog.Logger) (bool, error) {
	if logger == nil {
		logger = slog.Default()
	}

	current := ops.QualitySnapshot()

	previous, err := store.GetConfigSnapshot(ctx, configSnapshotKey)
	if err != nil {
		return false, fmt.Errorf("reading config snapshot: %w", err)
	}

	if err := store.SaveConfigSnapshot(ctx, configSnapshotKey, current, time.Now().Unix()); err != nil {
		return false, fmt.Errorf("saving config snapshot: %w", err)
	}

	changed := previous != "" && previous != current
	if changed {
		logger.Info("app: compression tunables changed since last run, resumed compressions will be redone",
			"previous", previous, "current", current)
	}

	return changed, nil
}

// qualityOptions maps resolved ops tunables onto the compressor's
// QualityOptions, leaving zero-valued fields for withDefaults to fill in.
func qualityOptions(ops *opsconfig.Resolved) compress.QualityOptions {
	return compress.QualityOptions{
		MaxLongEdge:       ops.MaxLongEdge,
		QStart:            ops.QualityStart,
		QMin:              ops.QualityMin,
		QStep:             ops.QualityStep,
		MaxBytes:          int(ops.MaxBytes),
		MaxTolerance:      int(ops.MaxTolerance),
		ThumbnailLongEdge: ops.ThumbnailLongEdge,
		ThumbnailQuality:  ops.ThumbnailQuality,
	}
}

// Start begins the background connectivity monitor, the upload pipeline
// scheduler, and the filesystem watcher over every known album in background
// goroutines and returns without waiting for them; they keep running until
// ctx is canceled or Close is called.
func (a *App) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	albums, err := a.store.ListAlbums(runCtx)
	if err != nil {
		cancel()
		return fmt.Errorf("app: listing albums at startup: %w", err)
	}

	go a.mon.Run(runCtx)
	go a.pipe.Run(runCtx)

	for _, album := range albums {
		if album.NeedsSync {
			a.pipe.Enqueue(album.ID)
		}
	}

	go func() {
		if err := a.watcher.Run(runCtx, albums); err != nil && runCtx.Err() == nil {
			a.logger.Error("app: watcher stopped", "error", err)
		}
	}()

	return nil
}

// Events returns the channel the UI layer drains for progress and status
// notifications.
func (a *App) Events() <-chan events.Event {
	return a.bus.Events()
}

// AlbumRunState reports the pipeline's current run state for albumID
// ("idle", "running", "paused", "done", or "aborted"), for callers that
// need to know when a triggered run has finished.
func (a *App) AlbumRunState(albumID string) string {
	return string(a.pipe.State(albumID))
}

// Close tears down every subsystem in reverse order of construction and
// releases the instance lock. Safe to call once, after Start's context (or
// the one passed to New) has been canceled.
func (a *App) Close() error {
	if a.cancel != nil {
		a.cancel()
	}

	a.watcher.Shutdown()
	a.pool.Shutdown()
	a.bus.Close()

	if err := a.scanCache.Close(); err != nil {
		a.logger.Warn("app: closing scan cache", "error", err)
	}

	storeErr := a.store.Close()

	if err := a.lock.Unlock(); err != nil {
		a.logger.Warn("app: releasing lock", "error", err)
	}

	if storeErr != nil {
		return fmt.Errorf("app: closing catalog: %w", storeErr)
	}

	return nil
}
