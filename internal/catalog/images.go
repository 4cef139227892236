package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const sqlInsertImage = `INSERT INTO images
	(album_id, server_id, original_filename, local_file_path, file_size,
	 width, height, mtime, source_file_hash, upload_status, upload_order)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const sqlSelectImageColumns = `id, album_id, server_id, original_filename,
	local_file_path, file_size, width, height, mtime, source_file_hash,
	upload_status, upload_order FROM images`

const sqlUpdateImage = `UPDATE images SET server_id = ?, original_filename = ?,
	local_file_path = ?, file_size = ?, width = ?, height = ?, mtime = ?,
	source_file_hash = ?, upload_status = ?, upload_order = ? WHERE id = ?`

const sqlDeleteImage = `DELETE FROM images WHERE id = ?`

// CreateImage inserts a new Image row and sets its autoincrement ID.
func (s *Store) CreateImage(ctx context.Context, img *Image) error {
	return insertImage(ctx, s.db, img)
}

// CreateImage inserts a new Image row within a transaction.
func (t *Tx) CreateImage(ctx context.Context, img *Image) error {
	return insertImage(ctx, t.tx, img)
}

func insertImage(ctx context.Context, q dbtx, img *Image) error {
	res, err := q.ExecContext(ctx, sqlInsertImage,
		img.AlbumID, img.ServerID, img.OriginalFilename, img.LocalFilePath,
		img.FileSize, img.Width, img.Height, img.Mtime.Unix(), img.SourceFileHash,
		string(img.UploadStatus), img.UploadOrder,
	)
	if err != nil {
		return classifyWriteError(err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("%w: reading inserted image id: %v", ErrDatabaseUnavailable, err)
	}

	img.ID = id

	return nil
}

// GetImage returns the Image with the given id, or ErrNotFound.
func (s *Store) GetImage(ctx context.Context, id int64) (*Image, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+sqlSelectImageColumns+" WHERE id = ?", id)
	return scanImage(row)
}

// GetImage returns the Image with the given id within a transaction.
func (t *Tx) GetImage(ctx context.Context, id int64) (*Image, error) {
	row := t.tx.QueryRowContext(ctx, "SELECT "+sqlSelectImageColumns+" WHERE id = ?", id)
	return scanImage(row)
}

// GetImageByHash returns the Image in albumID whose source file hash matches
// hash, used by the reconciler to detect renames/duplicates. Returns
// ErrNotFound if no such image exists.
func (s *Store) GetImageByHash(ctx context.Context, albumID, hash string) (*Image, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+sqlSelectImageColumns+" WHERE album_id = ? AND source_file_hash = ? LIMIT 1",
		albumID, hash)
	return scanImage(row)
}

func scanImage(row *sql.Row) (*Image, error) {
	var img Image

	var serverID sql.NullInt64

	var mtime int64

	var status string

	err := row.Scan(&img.ID, &img.AlbumID, &serverID, &img.OriginalFilename,
		&img.LocalFilePath, &img.FileSize, &img.Width, &img.Height, &mtime,
		&img.SourceFileHash, &status, &img.UploadOrder)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("%w: scanning image: %v", ErrDatabaseUnavailable, err)
	}

	if serverID.Valid {
		img.ServerID = &serverID.Int64
	}

	img.Mtime = time.Unix(mtime, 0).UTC()
	img.UploadStatus = UploadStatus(status)

	return &img, nil
}

// ListImagesByAlbum returns every Image belonging to albumID, in upload order.
func (s *Store) ListImagesByAlbum(ctx context.Context, albumID string) ([]*Image, error) {
	return queryImages(ctx, s.db,
		"SELECT "+sqlSelectImageColumns+" WHERE album_id = ? ORDER BY upload_order", albumID)
}

// ListImagesByAlbum returns every Image belonging to albumID within a
// transaction, in upload order.
func (t *Tx) ListImagesByAlbum(ctx context.Context, albumID string) ([]*Image, error) {
	return queryImages(ctx, t.tx,
		"SELECT "+sqlSelectImageColumns+" WHERE album_id = ? ORDER BY upload_order", albumID)
}

// ListImagesByStatus returns every Image belonging to albumID with the given
// upload status, in upload order — the pipeline's queue-priming query.
func (s *Store) ListImagesByStatus(ctx context.Context, albumID string, status UploadStatus) ([]*Image, error) {
	return queryImages(ctx, s.db,
		"SELECT "+sqlSelectImageColumns+" WHERE album_id = ? AND upload_status = ? ORDER BY upload_order",
		albumID, string(status))
}

func queryImages(ctx context.Context, q dbtx, query string, args ...any) ([]*Image, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: querying images: %v", ErrDatabaseUnavailable, err)
	}
	defer rows.Close()

	var images []*Image

	for rows.Next() {
		var img Image

		var serverID sql.NullInt64

		var mtime int64

		var status string

		if err := rows.Scan(&img.ID, &img.AlbumID, &serverID, &img.OriginalFilename,
			&img.LocalFilePath, &img.FileSize, &img.Width, &img.Height, &mtime,
			&img.SourceFileHash, &status, &img.UploadOrder); err != nil {
			return nil, fmt.Errorf("%w: scanning image row: %v", ErrDatabaseUnavailable, err)
		}

		if serverID.Valid {
			img.ServerID = &serverID.Int64
		}

		img.Mtime = time.Unix(mtime, 0).UTC()
		img.UploadStatus = UploadStatus(status)

		images = append(images, &img)
	}

	return images, rows.Err()
}

// UpdateImage overwrites all mutable fields of an existing Image row.
func (s *Store) UpdateImage(ctx context.Context, img *Image) error {
	return updateImage(ctx, s.db, img)
}

// UpdateImage overwrites all mutable fields of an existing Image row within
// a transaction.
func (t *Tx) UpdateImage(ctx context.Context, img *Image) error {
	return updateImage(ctx, t.tx, img)
}

func updateImage(ctx context.Context, q dbtx, img *Image) error {
	res, err := q.ExecContext(ctx, sqlUpdateImage,
		img.ServerID, img.OriginalFilename, img.LocalFilePath, img.FileSize,
		img.Width, img.Height, img.Mtime.Unix(), img.SourceFileHash,
		string(img.UploadStatus), img.UploadOrder, img.ID,
	)
	if err != nil {
		return classifyWriteError(err)
	}

	return requireRowsAffected(res)
}

// DeleteImage deletes a single Image row.
func (s *Store) DeleteImage(ctx context.Context, id int64) error {
	return deleteImage(ctx, s.db, id)
}

// DeleteImage deletes a single Image row within a transaction.
func (t *Tx) DeleteImage(ctx context.Context, id int64) error {
	return deleteImage(ctx, t.tx, id)
}

func deleteImage(ctx context.Context, q dbtx, id int64) error {
	res, err := q.ExecContext(ctx, sqlDeleteImage, id)
	if err != nil {
		return fmt.Errorf("%w: deleting image: %v", ErrDatabaseUnavailable, err)
	}

	return requireRowsAffected(res)
}

// DeleteImages deletes every Image row whose id is in ids, used by the
// reconciler to remove local-only entries for files that vanished from
// disk. A no-op on an empty slice.
func (s *Store) DeleteImages(ctx context.Context, ids []int64) error {
	return deleteImages(ctx, s.db, ids)
}

// DeleteImages deletes every Image row whose id is in ids within a
// transaction.
func (t *Tx) DeleteImages(ctx context.Context, ids []int64) error {
	return deleteImages(ctx, t.tx, ids)
}

func deleteImages(ctx context.Context, q dbtx, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))

	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	query := fmt.Sprintf("DELETE FROM images WHERE id IN (%s)", strings.Join(placeholders, ","))

	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: deleting images: %v", ErrDatabaseUnavailable, err)
	}

	return nil
}

// GetImageStats returns the per-status image counts for albumID, used by
// the status command and progress reporting.
func (s *Store) GetImageStats(ctx context.Context, albumID string) (ImageStats, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT upload_status, COUNT(*) FROM images WHERE album_id = ? GROUP BY upload_status",
		albumID)
	if err != nil {
		return ImageStats{}, fmt.Errorf("%w: querying image stats: %v", ErrDatabaseUnavailable, err)
	}
	defer rows.Close()

	var stats ImageStats

	for rows.Next() {
		var status string

		var count int

		if err := rows.Scan(&status, &count); err != nil {
			return ImageStats{}, fmt.Errorf("%w: scanning image stats: %v", ErrDatabaseUnavailable, err)
		}

		switch UploadStatus(status) {
		case StatusPending:
			stats.Pending = count
		case StatusCompressing:
			stats.Compressing = count
		case StatusUploading:
			stats.Uploading = count
		case StatusComplete:
			stats.Complete = count
		case StatusFailedCompression:
			stats.FailedCompression = count
		case StatusFailedUpload:
			stats.FailedUpload = count
		}
	}

	return stats, rows.Err()
}
