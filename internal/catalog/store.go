package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	// Pure-Go SQLite driver (no cgo), matches the teacher's driver choice.
	_ "modernc.org/sqlite"
)

// pragmas applied on every connection. WAL mode lets the watcher/reconciler
// read while a reconciliation transaction is in flight; busy_timeout avoids
// SQLITE_BUSY surfacing as a spurious DatabaseUnavailable under the
// single-writer contention the pipeline and reconciler can create.
const pragmas = `
PRAGMA journal_mode = WAL;
PRAGMA busy_timeout = 5000;
PRAGMA foreign_keys = ON;
`

// Store is the SQLite-backed Catalog. All reads/writes go through it;
// multi-row mutations are wrapped in a single transaction so a crash or
// error mid-reconciliation cannot leave the catalog half-changed.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if necessary) the catalog database at path and
// applies pending migrations. Returns ErrDatabaseUnavailable wrapping the
// underlying error on any failure; callers treat this as fatal at startup.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", ErrDatabaseUnavailable, path, err)
	}

	// SQLite allows only one writer; cap the pool so readers share a
	// connection rather than hitting SQLITE_BUSY against each other.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, pragmas); err != nil {
		db.Close()

		return nil, fmt.Errorf("%w: applying pragmas: %v", ErrDatabaseUnavailable, err)
	}

	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()

		return nil, err
	}

	return &Store{db: db, logger: logger}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("catalog: closing database: %w", err)
	}

	return nil
}

// withTx runs fn inside a transaction, committing on success and rolling
// back on any error (including a panic, which is re-raised after rollback).
// Used through WithTx by Reconciler.Execute and by Tx-scoped mutations;
// Store.DeleteImages runs its statement outside a transaction.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %v", ErrDatabaseUnavailable, err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err = fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error("catalog: rollback failed", slog.String("error", rbErr.Error()))
		}

		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing transaction: %v", ErrDatabaseUnavailable, err)
	}

	return nil
}

// WithTx exposes withTx to callers outside the package (the Reconciler)
// that need several catalog operations to commit atomically together.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	return s.withTx(ctx, func(sqlTx *sql.Tx) error {
		return fn(&Tx{tx: sqlTx, store: s})
	})
}

// Tx is a transactional handle exposing the same per-entity operations as
// Store, scoped to one *sql.Tx.
type Tx struct {
	tx    *sql.Tx
	store *Store
}
