package storage

import (
	"context"
	"database/sql"
	"errors"
	"strconv"

	"github.com/erwar/booknest/internal/book"
)

// GetBool reads a boolean preference. found is false when the key was
// never written.
func (r *SQLiteRepository) GetBool(ctx context.Context, key string) (value, found bool, err error) {
	var raw string
	err = r.db.QueryRowContext(ctx, "SELECT value FROM preferences WHERE key = ?", key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, false, nil
	}
	if err != nil {
		return false, false, &book.StorageError{Op: "get preference", Err: err}
	}

	value, err = strconv.ParseBool(raw)
	if err != nil {
		return false, false, &book.StorageError{Op: "parse preference " + key, Err: err}
	}
	return value, true, nil
}

func (r *SQLiteRepository) SetBool(ctx context.Context, key string, value bool) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO preferences (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, strconv.FormatBool(value))
	if err != nil {
		return &book.StorageError{Op: "set preference", Err: err}
	}
	return nil
}
