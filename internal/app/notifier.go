package app

import (
	"github.com/lumosnap/synccore/internal/catalog"
	"github.com/lumosnap/synccore/internal/events"
	"github.com/lumosnap/synccore/internal/reconciler"
)

// albumNotifier satisfies watcher.Notifier, translating filesystem-driven
// album lifecycle callbacks into bus events the UI layer subscribes to, and
// into pipeline enqueues where a callback implies new uploadable images.
type albumNotifier struct {
	app *App
}

func (n *albumNotifier) AlbumCreated(album *catalog.Album) {
	n.app.bus.Publish(events.AlbumsRefresh())
}

func (n *albumNotifier) AlbumOrphaned(albumID string) {
	n.app.bus.Publish(events.AlbumsRefresh())
}

func (n *albumNotifier) AlbumRebound(album *catalog.Album) {
	n.app.bus.Publish(events.AlbumsRefresh())
}

// AlbumNeedsSync fires when the watcher detects changes it cannot apply
// silently (new files, modifications or deletions) — the album waits for the user to
// review and approve via ApproveSync.
func (n *albumNotifier) AlbumNeedsSync(albumID string, changes *reconciler.Changes) {
	n.app.bus.Publish(events.AlbumStatusChanged(albumID, true))
}

// AlbumSyncedSilently fires after the watcher applies a change set without
// review (a renames/duplicates-only set, or a copy's initial batch). Any new
// images are already in the catalog as pending; when there are some, enqueue
// the album so the pipeline picks them up.
func (n *albumNotifier) AlbumSyncedSilently(albumID string, changes *reconciler.Changes) {
	n.app.bus.Publish(events.AlbumStatusChanged(albumID, false))

	if len(changes.New) > 0 {
		n.app.pipe.Enqueue(albumID)
	}
}
