package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const sqlInsertAlbum = `INSERT INTO albums
	(id, title, event_date, start_time, end_time, source_folder_path,
	 local_folder_path, total_images, last_synced_at, needs_sync,
	 is_orphaned, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const sqlSelectAlbum = `SELECT id, title, event_date, start_time, end_time,
	source_folder_path, local_folder_path, total_images, last_synced_at,
	needs_sync, is_orphaned, created_at FROM albums WHERE id = ?`

const sqlSelectAllAlbums = `SELECT id, title, event_date, start_time, end_time,
	source_folder_path, local_folder_path, total_images, last_synced_at,
	needs_sync, is_orphaned, created_at FROM albums ORDER BY created_at`

const sqlUpdateAlbum = `UPDATE albums SET title = ?, event_date = ?,
	start_time = ?, end_time = ?, source_folder_path = ?,
	local_folder_path = ?, total_images = ?, last_synced_at = ?,
	needs_sync = ?, is_orphaned = ? WHERE id = ?`

const sqlDeleteAlbum = `DELETE FROM albums WHERE id = ?`

// CreateAlbum inserts a new Album row.
func (s *Store) CreateAlbum(ctx context.Context, a *Album) error {
	return insertAlbum(ctx, s.db, a)
}

// CreateAlbum inserts a new Album row within a transaction.
func (t *Tx) CreateAlbum(ctx context.Context, a *Album) error {
	return insertAlbum(ctx, t.tx, a)
}

func insertAlbum(ctx context.Context, q dbtx, a *Album) error {
	_, err := q.ExecContext(ctx, sqlInsertAlbum,
		a.ID, a.Title, toUnixPtr(a.EventDate), toUnixPtr(a.StartTime), toUnixPtr(a.EndTime),
		a.SourceFolderPath, a.LocalFolderPath, a.TotalImages, toUnixPtr(a.LastSyncedAt),
		a.NeedsSync, a.IsOrphaned, a.CreatedAt.Unix(),
	)
	if err != nil {
		return classifyWriteError(err)
	}

	return nil
}

// GetAlbum returns the Album with the given id, or ErrNotFound.
func (s *Store) GetAlbum(ctx context.Context, id string) (*Album, error) {
	return scanAlbum(s.db.QueryRowContext(ctx, sqlSelectAlbum, id))
}

// GetAlbum returns the Album with the given id within a transaction.
func (t *Tx) GetAlbum(ctx context.Context, id string) (*Album, error) {
	return scanAlbum(t.tx.QueryRowContext(ctx, sqlSelectAlbum, id))
}

func scanAlbum(row *sql.Row) (*Album, error) {
	var a Album

	var eventDate, startTime, endTime, lastSyncedAt sql.NullInt64

	var needsSync, isOrphaned int
	var createdAt int64

	err := row.Scan(&a.ID, &a.Title, &eventDate, &startTime, &endTime,
		&a.SourceFolderPath, &a.LocalFolderPath, &a.TotalImages, &lastSyncedAt,
		&needsSync, &isOrphaned, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("%w: scanning album: %v", ErrDatabaseUnavailable, err)
	}

	a.EventDate = fromUnixPtr(eventDate)
	a.StartTime = fromUnixPtr(startTime)
	a.EndTime = fromUnixPtr(endTime)
	a.LastSyncedAt = fromUnixPtr(lastSyncedAt)
	a.NeedsSync = needsSync != 0
	a.IsOrphaned = isOrphaned != 0
	a.CreatedAt = time.Unix(createdAt, 0).UTC()

	return &a, nil
}

// GetAlbumBySourceFolder returns the Album whose source_folder_path matches
// path, or ErrNotFound. Used by the watcher to recognize a folder it already
// knows about and to resolve rename evidence.
func (s *Store) GetAlbumBySourceFolder(ctx context.Context, path string) (*Album, error) {
	return scanAlbum(s.db.QueryRowContext(ctx,
		"SELECT id, title, event_date, start_time, end_time, source_folder_path, "+
			"local_folder_path, total_images, last_synced_at, needs_sync, is_orphaned, "+
			"created_at FROM albums WHERE source_folder_path = ?", path))
}

// ListAlbums returns every Album, oldest first.
func (s *Store) ListAlbums(ctx context.Context) ([]*Album, error) {
	rows, err := s.db.QueryContext(ctx, sqlSelectAllAlbums)
	if err != nil {
		return nil, fmt.Errorf("%w: listing albums: %v", ErrDatabaseUnavailable, err)
	}
	defer rows.Close()

	var albums []*Album

	for rows.Next() {
		var a Album

		var eventDate, startTime, endTime, lastSyncedAt sql.NullInt64

		var needsSync, isOrphaned int
		var createdAt int64

		if err := rows.Scan(&a.ID, &a.Title, &eventDate, &startTime, &endTime,
			&a.SourceFolderPath, &a.LocalFolderPath, &a.TotalImages, &lastSyncedAt,
			&needsSync, &isOrphaned, &createdAt); err != nil {
			return nil, fmt.Errorf("%w: scanning album row: %v", ErrDatabaseUnavailable, err)
		}

		a.EventDate = fromUnixPtr(eventDate)
		a.StartTime = fromUnixPtr(startTime)
		a.EndTime = fromUnixPtr(endTime)
		a.LastSyncedAt = fromUnixPtr(lastSyncedAt)
		a.NeedsSync = needsSync != 0
		a.IsOrphaned = isOrphaned != 0
		a.CreatedAt = time.Unix(createdAt, 0).UTC()

		albums = append(albums, &a)
	}

	return albums, rows.Err()
}

// UpdateAlbum overwrites all mutable fields of an existing Album row.
func (s *Store) UpdateAlbum(ctx context.Context, a *Album) error {
	return updateAlbum(ctx, s.db, a)
}

// UpdateAlbum overwrites all mutable fields of an existing Album row within a transaction.
func (t *Tx) UpdateAlbum(ctx context.Context, a *Album) error {
	return updateAlbum(ctx, t.tx, a)
}

func updateAlbum(ctx context.Context, q dbtx, a *Album) error {
	res, err := q.ExecContext(ctx, sqlUpdateAlbum,
		a.Title, toUnixPtr(a.EventDate), toUnixPtr(a.StartTime), toUnixPtr(a.EndTime),
		a.SourceFolderPath, a.LocalFolderPath, a.TotalImages, toUnixPtr(a.LastSyncedAt),
		a.NeedsSync, a.IsOrphaned, a.ID,
	)
	if err != nil {
		return classifyWriteError(err)
	}

	return requireRowsAffected(res)
}

// DeleteAlbum deletes an Album and, via ON DELETE CASCADE, all of its Images.
func (s *Store) DeleteAlbum(ctx context.Context, id string) error {
	return deleteAlbum(ctx, s.db, id)
}

// DeleteAlbum deletes an Album within a transaction.
func (t *Tx) DeleteAlbum(ctx context.Context, id string) error {
	return deleteAlbum(ctx, t.tx, id)
}

func deleteAlbum(ctx context.Context, q dbtx, id string) error {
	res, err := q.ExecContext(ctx, sqlDeleteAlbum, id)
	if err != nil {
		return fmt.Errorf("%w: deleting album: %v", ErrDatabaseUnavailable, err)
	}

	return requireRowsAffected(res)
}

func requireRowsAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: checking rows affected: %v", ErrDatabaseUnavailable, err)
	}

	if n == 0 {
		return ErrNotFound
	}

	return nil
}

func toUnixPtr(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}

	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}

func fromUnixPtr(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}

	t := time.Unix(v.Int64, 0).UTC()

	return &t
}
