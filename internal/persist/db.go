// Package persist is the SQLite-backed store for the handle directory
// and the per-user extra-mem blobs.
package persist

import (
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"
	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ErrAlreadyExists reports a handle name collision. Callers translate
// it into the protocol's NAME_IN_USE reply instead of a generic error.
var ErrAlreadyExists = errors.New("handle already exists")

// DB wraps the sql handle.
type DB struct {
	SQL *sql.DB
	log *zap.Logger
}

// NewDB opens (creating if needed) the database file at path. Writers
// colliding on the file wait up to a second before failing, which is
// plenty for the short transactions this service runs.
func NewDB(path string, log *zap.Logger) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db %s: %w", path, err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout=1000`); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy_timeout: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		db.Close()
		return nil, fmt.Errorf("set journal_mode: %w", err)
	}
	return &DB{SQL: db, log: log}, nil
}

func (db *DB) Close() error {
	return db.SQL.Close()
}

// asAlreadyExists maps a unique-constraint violation to
// ErrAlreadyExists and passes every other error through.
func asAlreadyExists(err error) error {
	if err == nil {
		return nil
	}
	var se *sqlite.Error
	if errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return ErrAlreadyExists
	}
	return err
}
