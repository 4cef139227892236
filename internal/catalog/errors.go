package catalog

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors the rest of the system classifies with errors.Is.
var (
	// ErrDatabaseUnavailable means the catalog could not be opened or a
	// query failed for reasons unrelated to the data itself (disk I/O,
	// locked file, corrupt database). Treated as fatal at daemon startup.
	ErrDatabaseUnavailable = errors.New("catalog: database unavailable")

	// ErrConstraintViolation is returned when a write would violate the
	// per-album uniqueness of an original filename or a server id.
	ErrConstraintViolation = errors.New("catalog: constraint violation")

	// ErrNotFound is returned by single-row lookups with no matching row.
	ErrNotFound = errors.New("catalog: not found")
)

// classifyWriteError distinguishes a SQLite UNIQUE constraint failure from
// every other write error, so callers can use errors.Is(err,
// ErrConstraintViolation) instead of string-matching driver errors directly.
func classifyWriteError(err error) error {
	if err == nil {
		return nil
	}

	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%w: %v", ErrConstraintViolation, err)
	}

	return fmt.Errorf("%w: %v", ErrDatabaseUnavailable, err)
}
