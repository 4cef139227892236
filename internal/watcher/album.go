package watcher

import (
	"context"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/lumosnap/synccore/internal/catalog"
)

// albumObserver watches one album's source folder (depth 0: file add,
// change, unlink) and debounces bursts of events into a single
// Reconciler.Detect/Execute cycle.
type albumObserver struct {
	w       *Watcher
	album   *catalog.Album
	fw      *fsnotify.Watcher
	logger  *slog.Logger
	done    chan struct{}
	stopped bool
}

func newAlbumObserver(w *Watcher, album *catalog.Album) (*albumObserver, error) {
	fw, err := w.newWatcher()
	if err != nil {
		return nil, err
	}

	if err := fw.Add(album.SourceFolderPath); err != nil {
		fw.Close()
		return nil, errAddWatch(album.SourceFolderPath, err)
	}

	return &albumObserver{
		w:      w,
		album:  album,
		fw:     fw,
		logger: w.logger,
		done:   make(chan struct{}),
	}, nil
}

// stop tears down the observer's filesystem watch. Idempotent.
func (o *albumObserver) stop() {
	if o.stopped {
		return
	}

	o.stopped = true

	close(o.done)
	o.fw.Close()
}

// run is the debounce-by-album-id loop: every fsnotify event (re)starts a
// 100ms timer; when the timer fires with no new events in the window, a
// single reconcile cycle runs.
func (o *albumObserver) run(ctx context.Context) {
	var timer *time.Timer

	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return

		case <-o.done:
			return

		case _, ok := <-o.fw.Events:
			if !ok {
				return
			}

			if timer == nil {
				timer = time.NewTimer(o.w.debounceWindow)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}

				timer.Reset(o.w.debounceWindow)
			}

			timerC = timer.C

		case err, ok := <-o.fw.Errors:
			if !ok {
				return
			}

			o.logger.Warn("album observer error", "album", o.album.ID, "error", err)

		case <-timerC:
			timerC = nil
			o.reconcile(ctx)
		}
	}
}

// reconcile runs one Detect/Execute cycle and notifies per the spec's
// silent-apply-vs-review rule: pure renamed/skipped changes apply silently,
// anything new/modified/deleted sets needsSync and asks the user to review.
func (o *albumObserver) reconcile(ctx context.Context) {
	album, err := o.w.store.GetAlbum(ctx, o.album.ID)
	if err != nil {
		o.logger.Warn("album observer: reloading album", "album", o.album.ID, "error", err)
		return
	}

	o.album = album

	changes, err := o.w.reconciler.Detect(ctx, album)
	if err != nil {
		o.logger.Warn("album observer: detect failed", "album", album.ID, "error", err)
		return
	}

	if changes.IsEmpty() && len(changes.Skipped) == 0 {
		return
	}

	if !changes.NeedsReview() {
		if err := o.w.reconciler.Execute(ctx, album, changes); err != nil {
			o.logger.Warn("album observer: silent execute failed", "album", album.ID, "error", err)
			return
		}

		o.w.notifier.AlbumSyncedSilently(album.ID, changes)
		return
	}

	album.NeedsSync = true
	if err := o.w.store.UpdateAlbum(ctx, album); err != nil {
		o.logger.Warn("album observer: marking needs-sync", "album", album.ID, "error", err)
		return
	}

	o.w.notifier.AlbumNeedsSync(album.ID, changes)
}
