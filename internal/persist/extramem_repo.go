package persist

import (
	"context"
	"database/sql"
	"errors"
)

// ExtraMemMax caps the per-(user, title) blob at 8 KiB, which is the
// size the shipped clients were written against.
const ExtraMemMax = 0x2000

// ExtraMemRepo stores one opaque blob per (user, title). Clients
// upload it in chunks at arbitrary offsets and read it back whole.
type ExtraMemRepo struct {
	db *DB
}

func NewExtraMemRepo(db *DB) *ExtraMemRepo {
	return &ExtraMemRepo{db: db}
}

// Get returns the blob for (user, title), or nil when none is stored.
func (r *ExtraMemRepo) Get(ctx context.Context, game int, user string) ([]byte, error) {
	var blob []byte
	err := r.db.SQL.QueryRowContext(ctx,
		`SELECT EXTRAMEM FROM USER_EXTRAMEM WHERE USER_NAME = ? AND GAME = ?`,
		user, game,
	).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return blob, nil
}

// Put overwrites len(chunk) bytes at offset, growing the blob as
// needed. Writes past the size cap are clipped.
func (r *ExtraMemRepo) Put(ctx context.Context, game int, user string, offset int, chunk []byte) error {
	if offset < 0 || offset >= ExtraMemMax || len(chunk) == 0 {
		return nil
	}
	if offset+len(chunk) > ExtraMemMax {
		chunk = chunk[:ExtraMemMax-offset]
	}

	tx, err := r.db.SQL.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var blob []byte
	err = tx.QueryRowContext(ctx,
		`SELECT EXTRAMEM FROM USER_EXTRAMEM WHERE USER_NAME = ? AND GAME = ?`,
		user, game,
	).Scan(&blob)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	if need := offset + len(chunk); len(blob) < need {
		grown := make([]byte, need)
		copy(grown, blob)
		blob = grown
	}
	copy(blob[offset:], chunk)

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO USER_EXTRAMEM (USER_NAME, GAME, EXTRAMEM) VALUES (?, ?, ?)
		 ON CONFLICT (USER_NAME, GAME) DO UPDATE SET EXTRAMEM = excluded.EXTRAMEM`,
		user, game, blob,
	); err != nil {
		return err
	}
	return tx.Commit()
}
