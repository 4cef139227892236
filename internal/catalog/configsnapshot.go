package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const sqlGetConfigSnapshot = `SELECT value FROM config_snapshot WHERE key = ?`

const sqlSaveConfigSnapshot = `INSERT INTO config_snapshot (key, value, updated_at)
	VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

// GetConfigSnapshot retrieves a config snapshot value by key, returning ""
// if the key has never been saved.
func (s *Store) GetConfigSnapshot(ctx context.Context, key string) (string, error) {
	return getConfigSnapshot(ctx, s.db, key)
}

// GetConfigSnapshot retrieves a config snapshot value by key within a
// transaction.
func (t *Tx) GetConfigSnapshot(ctx context.Context, key string) (string, error) {
	return getConfigSnapshot(ctx, t.tx, key)
}

func getConfigSnapshot(ctx context.Context, q dbtx, key string) (string, error) {
	var value string

	err := q.QueryRowContext(ctx, sqlGetConfigSnapshot, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}

	if err != nil {
		return "", fmt.Errorf("catalog: getting config snapshot %q: %w", key, err)
	}

	return value, nil
}

// SaveConfigSnapshot persists a config snapshot key/value pair, updating it
// in place if the key already exists.
func (s *Store) SaveConfigSnapshot(ctx context.Context, key, value string, updatedAt int64) error {
	return saveConfigSnapshot(ctx, s.db, key, value, updatedAt)
}

// SaveConfigSnapshot persists a config snapshot key/value pair within a
// transaction.
func (t *Tx) SaveConfigSnapshot(ctx context.Context, key, value string, updatedAt int64) error {
	return saveConfigSnapshot(ctx, t.tx, key, value, updatedAt)
}

func saveConfigSnapshot(ctx context.Context, q dbtx, key, value string, updatedAt int64) error {
	if _, err := q.ExecContext(ctx, sqlSaveConfigSnapshot, key, value, updatedAt); err != nil {
		return fmt.Errorf("catalog: saving config snapshot %q: %w", key, err)
	}

	return nil
}
