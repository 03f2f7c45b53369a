package persist

import (
	"context"
	"errors"
	"fmt"
)

// HandleRepo is the per-title handle directory. A user owns up to 8
// handles per title, ordered by index; handle names are unique within
// a title, which the schema enforces.
type HandleRepo struct {
	db *DB
}

func NewHandleRepo(db *DB) *HandleRepo {
	return &HandleRepo{db: db}
}

// Create inserts a handle at the given index. A name collision within
// the title returns ErrAlreadyExists.
func (r *HandleRepo) Create(ctx context.Context, game int, user string, index int, handle string) error {
	_, err := r.db.SQL.ExecContext(ctx,
		`INSERT INTO USER_HANDLE (USER_NAME, GAME, HANDLE_INDEX, HANDLE)
		 VALUES (?, ?, ?, ?)`,
		user, game, index, handle,
	)
	if err := asAlreadyExists(err); err != nil {
		return err
	}
	return nil
}

// Replace renames the handle at the given index in place. The unique
// constraint applies to the new name.
func (r *HandleRepo) Replace(ctx context.Context, game int, user string, index int, handle string) error {
	res, err := r.db.SQL.ExecContext(ctx,
		`UPDATE USER_HANDLE SET HANDLE = ?
		 WHERE USER_NAME = ? AND GAME = ? AND HANDLE_INDEX = ?`,
		handle, user, game, index,
	)
	if err := asAlreadyExists(err); err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("no handle at index %d", index)
	}
	return nil
}

// Delete removes the handle at the given index and shifts the indices
// above it down by one, in a single transaction.
func (r *HandleRepo) Delete(ctx context.Context, game int, user string, index int) error {
	tx, err := r.db.SQL.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM USER_HANDLE
		 WHERE USER_NAME = ? AND GAME = ? AND HANDLE_INDEX = ?`,
		user, game, index,
	); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE USER_HANDLE SET HANDLE_INDEX = HANDLE_INDEX - 1
		 WHERE USER_NAME = ? AND GAME = ? AND HANDLE_INDEX > ?`,
		user, game, index,
	); err != nil {
		return err
	}
	return tx.Commit()
}

// List returns the user's handles for a title in index order. When the
// user has none and def is non-empty, the default is registered at
// index 0 and returned; if someone else already owns the default name
// the list stays empty.
func (r *HandleRepo) List(ctx context.Context, game int, user string, def string) ([]string, error) {
	rows, err := r.db.SQL.QueryContext(ctx,
		`SELECT HANDLE FROM USER_HANDLE
		 WHERE USER_NAME = ? AND GAME = ?
		 ORDER BY HANDLE_INDEX`,
		user, game,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var handles []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, err
		}
		handles = append(handles, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(handles) == 0 && def != "" {
		switch err := r.Create(ctx, game, user, 0, def); {
		case err == nil:
			handles = append(handles, def)
		case errors.Is(err, ErrAlreadyExists):
			// Someone else owns the default name; the client will
			// have to pick one explicitly.
		default:
			return nil, err
		}
	}
	return handles, nil
}
