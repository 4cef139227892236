package app

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/lumosnap/synccore/internal/catalog"
	"github.com/lumosnap/synccore/internal/events"
	"github.com/lumosnap/synccore/internal/remoteapi"
	"github.com/lumosnap/synccore/internal/sidecar"
)

// DesignateFolder registers sourceFolder as a new album: the remote album
// service assigns the id first, then the local catalog row and sidecar are
// written against that same id, and the watcher starts observing it
// immediately without waiting for a master-folder filesystem event. title
// defaults to the folder's base name when empty.
func (a *App) DesignateFolder(ctx context.Context, sourceFolder, title string) (*catalog.Album, error) {
	if title == "" {
		title = filepath.Base(sourceFolder)
	}

	resp, err := a.remote.CreateAlbum(ctx, remoteapi.CreateAlbumRequest{Title: title})
	if err != nil {
		return nil, fmt.Errorf("app: registering album with remote service: %w", err)
	}

	now := time.Now()
	album := &catalog.Album{
		ID:               resp.ID,
		Title:            title,
		SourceFolderPath: sourceFolder,
		LocalFolderPath:  filepath.Join(sourceFolder, ".lumosnap-local"),
		CreatedAt:        now,
	}

	if err := a.store.CreateAlbum(ctx, album); err != nil {
		return nil, fmt.Errorf("app: recording designated album %s: %w", album.ID, err)
	}

	if err := sidecar.Save(sourceFolder, sidecar.New(album.ID, now)); err != nil {
		a.logger.Warn("app: writing sidecar for designated album", "album", album.ID, "error", err)
	}

	a.watcher.RegisterAlbum(ctx, album)
	a.bus.Publish(events.AlbumsRefresh())

	return album, nil
}

// RemoveAlbum deletes an album: the remote service accepts the deletion
// first (per the lifecycle rule that albums "are destroyed only by user
// action and only after the remote service accepts the deletion"), then the
// local row (and, via cascade, its images) is dropped and the watcher stops
// observing it.
func (a *App) RemoveAlbum(ctx context.Context, albumID string) error {
	if _, err := a.store.GetAlbum(ctx, albumID); err != nil {
		return fmt.Errorf("app: loading album %s: %w", albumID, err)
	}

	if err := a.remote.DeleteAlbum(ctx, albumID); err != nil {
		return fmt.Errorf("app: deleting remote album %s: %w", albumID, err)
	}

	if err := a.store.DeleteAlbum(ctx, albumID); err != nil {
		return fmt.Errorf("app: deleting local album %s: %w", albumID, err)
	}

	a.watcher.UnregisterAlbum(albumID)
	a.bus.Publish(events.AlbumsRefresh())

	return nil
}
