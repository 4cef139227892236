package watcher

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/lumosnap/synccore/internal/catalog"
	"github.com/lumosnap/synccore/internal/remoteapi"
	"github.com/lumosnap/synccore/internal/sidecar"
)

// handleAddDir implements the master-folder addDir rule: recognize an
// already-known album, rebind via sidecar rename evidence, or auto-create a
// new album and arm its copy-in-progress detector.
func (w *Watcher) handleAddDir(ctx context.Context, path string) {
	if _, err := w.store.GetAlbumBySourceFolder(ctx, path); err == nil {
		return
	} else if !errors.Is(err, catalog.ErrNotFound) {
		w.logger.Warn("watcher: looking up album by source folder", "path", path, "error", err)
		return
	}

	if sc, ok := sidecar.Load(path); ok {
		if album, err := w.store.GetAlbum(ctx, sc.AlbumID); err == nil {
			w.rebindAlbum(ctx, album, path)
			return
		}
	}

	w.createAlbum(ctx, path)
}

// rebindAlbum points an orphaned (or moved) album at its new location and
// un-orphans it — no re-hash, no re-upload, per the sidecar rename-evidence
// rule.
func (w *Watcher) rebindAlbum(ctx context.Context, album *catalog.Album, newPath string) {
	album.SourceFolderPath = newPath
	album.IsOrphaned = false

	if err := w.store.UpdateAlbum(ctx, album); err != nil {
		w.logger.Warn("watcher: rebinding album", "album", album.ID, "error", err)
		return
	}

	w.logger.Info("watcher: rebound album to new folder", "album", album.ID, "path", newPath)
	w.notifier.AlbumRebound(album)
	w.startAlbumObserver(ctx, album)
}

// createAlbum auto-creates an Album for a newly-observed folder with no
// sidecar (or a sidecar pointing at an unknown album): registers it with the
// remote album service first (the server assigns Album.id, the same id
// every later remote call addresses in its URL path), writes a fresh
// sidecar, starts watching it, and arms the copy-in-progress detector.
func (w *Watcher) createAlbum(ctx context.Context, path string) {
	title := filepath.Base(path)

	if w.remote == nil {
		w.logger.Warn("watcher: no remote client configured, cannot auto-create album", "path", path)
		return
	}

	resp, err := w.remote.CreateAlbum(ctx, remoteapi.CreateAlbumRequest{Title: title})
	if err != nil {
		w.logger.Warn("watcher: registering auto-created album with remote service", "path", path, "error", err)
		return
	}

	now := time.Now()
	album := &catalog.Album{
		ID:               resp.ID,
		Title:            title,
		SourceFolderPath: path,
		LocalFolderPath:  filepath.Join(path, ".lumosnap-local"),
		CreatedAt:        now,
	}

	if err := w.store.CreateAlbum(ctx, album); err != nil {
		w.logger.Warn("watcher: auto-creating album", "path", path, "error", err)
		return
	}

	if err := sidecar.Save(path, sidecar.New(album.ID, now)); err != nil {
		w.logger.Warn("watcher: writing fresh sidecar", "path", path, "error", err)
	}

	w.logger.Info("watcher: auto-created album", "album", album.ID, "path", path)
	w.notifier.AlbumCreated(album)
	w.RegisterAlbum(ctx, album)
}

// handleUnlinkDir marks the album whose source folder vanished as orphaned
// and stops watching it.
func (w *Watcher) handleUnlinkDir(path string) {
	ctx := context.Background()

	album, err := w.store.GetAlbumBySourceFolder(ctx, path)
	if err != nil {
		return
	}

	album.IsOrphaned = true

	if err := w.store.UpdateAlbum(ctx, album); err != nil {
		w.logger.Warn("watcher: marking album orphaned", "album", album.ID, "error", err)
		return
	}

	w.mu.Lock()
	if obs, ok := w.albumObs[album.ID]; ok {
		obs.stop()
		delete(w.albumObs, album.ID)
	}
	w.mu.Unlock()

	w.logger.Info("watcher: album orphaned", "album", album.ID, "path", path)
	w.notifier.AlbumOrphaned(album.ID)
}

// startAlbumObserver starts (or restarts) the per-album observer for album,
// replacing any existing one for the same id.
func (w *Watcher) startAlbumObserver(ctx context.Context, album *catalog.Album) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if existing, ok := w.albumObs[album.ID]; ok {
		existing.stop()
	}

	obs, err := newAlbumObserver(w, album)
	if err != nil {
		w.logger.Warn("watcher: starting album observer", "album", album.ID, "error", err)
		return
	}

	w.albumObs[album.ID] = obs

	go obs.run(ctx)
}

// armCopyDetector starts a copy-in-progress detector for a freshly-created
// album, replacing any existing detector for the same id.
func (w *Watcher) armCopyDetector(ctx context.Context, album *catalog.Album) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if existing, ok := w.detectors[album.ID]; ok {
		existing.stop()
	}

	d := newCopyDetector(w, album)
	w.detectors[album.ID] = d

	go d.run(ctx)
}

// unregisterDetector removes album's detector from the registry once it has
// self-disposed.
func (w *Watcher) unregisterDetector(albumID string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	delete(w.detectors, albumID)
}

func errAddWatch(path string, err error) error {
	return fmt.Errorf("watcher: adding watch on %s: %w", path, err)
}
