package watcher

import (
	"context"
	"log/slog"
	"time"

	"github.com/lumosnap/synccore/internal/catalog"
	"github.com/lumosnap/synccore/internal/hashio"
)

const (
	copyDetectorHardTimeout = 2 * time.Minute
	copyDetectorSilence     = 5 * time.Second
	copyDetectorPollPeriod  = 1 * time.Second
)

// fileSnapshot is one poll's view of a file, used to detect size/mtime
// stability across a single poll interval.
type fileSnapshot struct {
	size  int64
	mtime time.Time
}

// copyDetector watches a freshly-created album folder for the first two
// minutes after creation, waiting out bulk-copy activity before handing the
// stabilized file list to the reconciler. Registered per album id so a
// second addDir for the same album never spawns a duplicate.
type copyDetector struct {
	w      *Watcher
	album  *catalog.Album
	logger *slog.Logger
	done   chan struct{}
}

func newCopyDetector(w *Watcher, album *catalog.Album) *copyDetector {
	return &copyDetector{w: w, album: album, logger: w.logger, done: make(chan struct{})}
}

// stop cancels the detector before its natural completion — used on process
// shutdown.
func (d *copyDetector) stop() {
	select {
	case <-d.done:
	default:
		close(d.done)
	}
}

// run polls the album's source folder once per second, tracking each file's
// stability (size and mtime unchanged across one interval). It finalizes
// when either no file has changed for copyDetectorSilence, or
// copyDetectorHardTimeout elapses, whichever comes first.
func (d *copyDetector) run(ctx context.Context) {
	defer d.w.unregisterDetector(d.album.ID)

	deadline := time.NewTimer(copyDetectorHardTimeout)
	defer deadline.Stop()

	ticker := time.NewTicker(copyDetectorPollPeriod)
	defer ticker.Stop()

	snapshots := make(map[string]fileSnapshot)
	lastActivity := time.Now()

	for {
		select {
		case <-ctx.Done():
			return

		case <-d.done:
			return

		case <-deadline.C:
			d.finalize(ctx)
			return

		case <-ticker.C:
			if d.poll(snapshots, &lastActivity) {
				lastActivity = time.Now()
			}

			if time.Since(lastActivity) >= copyDetectorSilence {
				d.finalize(ctx)
				return
			}
		}
	}
}

// poll re-scans the folder, updating snapshots in place. It returns true if
// any file is new or has a different size/mtime than its last snapshot.
func (d *copyDetector) poll(snapshots map[string]fileSnapshot, lastActivity *time.Time) bool {
	entries, err := hashio.Scan(d.album.SourceFolderPath)
	if err != nil {
		d.logger.Warn("copy detector: scan failed", "album", d.album.ID, "error", err)
		return false
	}

	changed := false

	seen := make(map[string]bool, len(entries))

	for _, e := range entries {
		seen[e.Basename] = true

		prev, ok := snapshots[e.Basename]
		snap := fileSnapshot{size: e.Size, mtime: e.Mtime}
		snapshots[e.Basename] = snap

		if !ok || prev != snap {
			changed = true
		}
	}

	for name := range snapshots {
		if !seen[name] {
			delete(snapshots, name)
			changed = true
		}
	}

	return changed
}

// finalize hands the stabilized folder off to the reconciler for a single
// detect/execute cycle, then self-disposes (the caller's deferred
// unregisterDetector runs on return).
func (d *copyDetector) finalize(ctx context.Context) {
	album, err := d.w.store.GetAlbum(ctx, d.album.ID)
	if err != nil {
		d.logger.Warn("copy detector: reloading album", "album", d.album.ID, "error", err)
		return
	}

	changes, err := d.w.reconciler.Detect(ctx, album)
	if err != nil {
		d.logger.Warn("copy detector: detect failed", "album", album.ID, "error", err)
		return
	}

	if changes.IsEmpty() {
		return
	}

	if err := d.w.reconciler.Execute(ctx, album, changes); err != nil {
		d.logger.Warn("copy detector: execute failed", "album", album.ID, "error", err)
		return
	}

	d.logger.Info("copy detector: initial batch inserted", "album", album.ID, "new", len(changes.New))
	d.w.notifier.AlbumSyncedSilently(album.ID, changes)
}
