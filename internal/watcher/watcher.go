// Package watcher observes the filesystem for album folder and image
// changes: a master-folder observer that notices whole albums appearing and
// disappearing, and one per-album observer per known album that debounces
// file-level changes into reconciler runs.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/lumosnap/synccore/internal/catalog"
	"github.com/lumosnap/synccore/internal/reconciler"
	"github.com/lumosnap/synccore/internal/remoteapi"
)

// DefaultDebounceWindow is how long per-album file events are coalesced
// before Reconciler.Detect runs, absent an override.
const DefaultDebounceWindow = 100 * time.Millisecond

// Notifier is the one-directional callback the watcher uses to tell the
// application layer about album lifecycle and sync-state changes, avoiding
// a back-reference from watcher to app.
type Notifier interface {
	AlbumCreated(album *catalog.Album)
	AlbumOrphaned(albumID string)
	AlbumRebound(album *catalog.Album)
	AlbumNeedsSync(albumID string, changes *reconciler.Changes)
	AlbumSyncedSilently(albumID string, changes *reconciler.Changes)
}

// RemoteAlbumCreator registers a newly auto-created album with the remote
// album service, so the id the service assigns, which the local catalog
// records, is the same id every other remote call addresses in its URL path.
type RemoteAlbumCreator interface {
	CreateAlbum(ctx context.Context, req remoteapi.CreateAlbumRequest) (remoteapi.CreateAlbumResponse, error)
}

// Watcher owns the master-folder observer and the registry of per-album
// observers and copy-in-progress detectors.
type Watcher struct {
	store          *catalog.Store
	reconciler     *reconciler.Reconciler
	notifier       Notifier
	remote         RemoteAlbumCreator
	logger         *slog.Logger
	masterFolder   string
	debounceWindow time.Duration

	mu        sync.Mutex
	albumObs  map[string]*albumObserver
	detectors map[string]*copyDetector

	newWatcher func() (*fsnotify.Watcher, error)
}

// New creates a Watcher for masterFolder, the directory whose immediate
// subdirectories are album source folders. debounceWindow of <= 0 uses
// DefaultDebounceWindow. remote registers auto-created albums with the
// remote service; with a nil remote, a new folder is logged and no album is
// created for it.
func New(store *catalog.Store, rec *reconciler.Reconciler, notifier Notifier, remote RemoteAlbumCreator, masterFolder string, debounceWindow time.Duration, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}

	if debounceWindow <= 0 {
		debounceWindow = DefaultDebounceWindow
	}

	return &Watcher{
		store:          store,
		reconciler:     rec,
		notifier:       notifier,
		remote:         remote,
		logger:         logger,
		masterFolder:   masterFolder,
		debounceWindow: debounceWindow,
		albumObs:       make(map[string]*albumObserver),
		detectors:      make(map[string]*copyDetector),
		newWatcher:     fsnotify.NewWatcher,
	}
}

// RegisterAlbum starts observing an album that was just created — either
// auto-created by handleAddDir or explicitly designated via the
// application layer. Exported so the app package can register an album
// without waiting for a master-folder filesystem event.
func (w *Watcher) RegisterAlbum(ctx context.Context, album *catalog.Album) {
	w.startAlbumObserver(ctx, album)
	w.armCopyDetector(ctx, album)
}

// UnregisterAlbum stops and removes the per-album observer and
// copy-in-progress detector for an album that is being removed.
func (w *Watcher) UnregisterAlbum(albumID string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if obs, ok := w.albumObs[albumID]; ok {
		obs.stop()
		delete(w.albumObs, albumID)
	}

	if d, ok := w.detectors[albumID]; ok {
		d.stop()
		delete(w.detectors, albumID)
	}
}

// Run watches the master folder and every known album's source folder until
// ctx is canceled. It blocks.
func (w *Watcher) Run(ctx context.Context, albums []*catalog.Album) error {
	for _, album := range albums {
		if album.IsOrphaned {
			continue
		}

		w.startAlbumObserver(ctx, album)
	}

	return w.watchMasterFolder(ctx)
}

// Shutdown tears down every per-album observer and copy-in-progress
// detector. Safe to call once, after Run's context has been canceled.
func (w *Watcher) Shutdown() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for id, obs := range w.albumObs {
		obs.stop()
		delete(w.albumObs, id)
	}

	for id, d := range w.detectors {
		d.stop()
		delete(w.detectors, id)
	}
}

// watchMasterFolder watches masterFolder (depth 0) for directories
// appearing and disappearing — album creation, removal, and rename
// evidence.
func (w *Watcher) watchMasterFolder(ctx context.Context) error {
	fw, err := w.newWatcher()
	if err != nil {
		return fmt.Errorf("watcher: creating master watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.masterFolder); err != nil {
		return fmt.Errorf("watcher: watching %s: %w", w.masterFolder, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}

			w.handleMasterEvent(ctx, ev)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}

			w.logger.Warn("master folder watcher error", "error", err)
		}
	}
}

func (w *Watcher) handleMasterEvent(ctx context.Context, ev fsnotify.Event) {
	if filepath.Dir(ev.Name) != w.masterFolder {
		return
	}

	switch {
	case ev.Has(fsnotify.Create):
		if info, err := os.Stat(ev.Name); err != nil || !info.IsDir() {
			return
		}

		w.handleAddDir(ctx, ev.Name)
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		w.handleUnlinkDir(ev.Name)
	}
}
