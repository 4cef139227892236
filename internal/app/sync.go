package app

import (
	"context"
	"fmt"

	"github.com/lumosnap/synccore/internal/events"
	"github.com/lumosnap/synccore/internal/reconciler"
)

// PendingChanges re-detects the current change set for an album so the UI
// can render a review screen before the user approves or discards it.
func (a *App) PendingChanges(ctx context.Context, albumID string) (*reconciler.Changes, error) {
	album, err := a.store.GetAlbum(ctx, albumID)
	if err != nil {
		return nil, fmt.Errorf("app: loading album %s: %w", albumID, err)
	}

	changes, err := a.rec.Detect(ctx, album)
	if err != nil {
		return nil, fmt.Errorf("app: detecting changes for %s: %w", albumID, err)
	}

	return changes, nil
}

// ApproveSync applies a previously reviewed change set — deletions and
// modifications the watcher never applies on its own — and enqueues the
// album for upload. It re-detects rather than trusting a caller-supplied
// Changes, so changes can't be approved against a stale filesystem state.
func (a *App) ApproveSync(ctx context.Context, albumID string) error {
	album, err := a.store.GetAlbum(ctx, albumID)
	if err != nil {
		return fmt.Errorf("app: loading album %s: %w", albumID, err)
	}

	changes, err := a.rec.Detect(ctx, album)
	if err != nil {
		return fmt.Errorf("app: detecting changes for %s: %w", albumID, err)
	}

	if changes.IsEmpty() {
		return nil
	}

	if err := a.rec.Execute(ctx, album, changes); err != nil {
		return fmt.Errorf("app: applying changes for %s: %w", albumID, err)
	}

	a.bus.Publish(events.AlbumStatusChanged(albumID, false))
	a.pipe.Enqueue(albumID)

	return nil
}
