package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/erwar/booknest/internal/book"
)

const logColumns = `id, book_id, type, start_page, end_page, percentage, description, emoji, session_duration, status, timestamp`

// AppendLog inserts a reading log. Range checks are the caller's job.
func (r *SQLiteRepository) AppendLog(ctx context.Context, l *book.ReadingLog) error {
	if l.Timestamp.IsZero() {
		l.Timestamp = r.now()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO reading_logs (`+logColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, l.ID, l.BookID, l.Type, nullInt(l.StartPage), nullInt(l.EndPage), nullFloat(l.Percentage),
		nullString(l.Description), nullString(l.Emoji), nullInt(l.SessionDuration), l.Status, l.Timestamp.UTC())
	if err != nil {
		return &book.StorageError{Op: "insert log", Err: err}
	}
	return nil
}

// LatestProgressLog returns the newest log carrying an end page or a
// percentage, or nil when the book has none.
func (r *SQLiteRepository) LatestProgressLog(ctx context.Context, bookID string) (*book.ReadingLog, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+logColumns+` FROM reading_logs
		WHERE book_id = ? AND (end_page IS NOT NULL OR percentage IS NOT NULL)
		ORDER BY timestamp DESC, seq DESC LIMIT 1
	`, bookID)

	l, err := scanLog(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &book.StorageError{Op: "latest progress", Err: err}
	}
	return l, nil
}

// AllLogs returns every log of a book, newest first.
func (r *SQLiteRepository) AllLogs(ctx context.Context, bookID string) ([]book.ReadingLog, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+logColumns+` FROM reading_logs
		WHERE book_id = ?
		ORDER BY timestamp DESC, seq DESC
	`, bookID)
	if err != nil {
		return nil, &book.StorageError{Op: "list logs", Err: err}
	}
	defer rows.Close()

	var logs []book.ReadingLog
	for rows.Next() {
		l, err := scanLog(rows)
		if err != nil {
			return nil, &book.StorageError{Op: "list logs", Err: err}
		}
		logs = append(logs, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, &book.StorageError{Op: "list logs", Err: err}
	}
	return logs, nil
}

func (r *SQLiteRepository) GetLog(ctx context.Context, logID string) (*book.ReadingLog, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+logColumns+` FROM reading_logs WHERE id = ?`, logID)

	l, err := scanLog(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("log %s: %w", logID, book.ErrNotFound)
	}
	if err != nil {
		return nil, &book.StorageError{Op: "get log", Err: err}
	}
	return l, nil
}

func (r *SQLiteRepository) DeleteLog(ctx context.Context, logID string) error {
	return r.exec(ctx, "delete log", "DELETE FROM reading_logs WHERE id = ?", logID)
}

func scanLog(s scanner) (*book.ReadingLog, error) {
	var l book.ReadingLog
	var startPage, endPage, duration sql.NullInt64
	var percentage sql.NullFloat64
	var description, emoji sql.NullString

	err := s.Scan(
		&l.ID, &l.BookID, &l.Type, &startPage, &endPage, &percentage,
		&description, &emoji, &duration, &l.Status, &l.Timestamp,
	)
	if err != nil {
		return nil, err
	}

	if startPage.Valid {
		l.StartPage = book.Int(int(startPage.Int64))
	}
	if endPage.Valid {
		l.EndPage = book.Int(int(endPage.Int64))
	}
	if percentage.Valid {
		l.Percentage = book.Float(percentage.Float64)
	}
	if duration.Valid {
		l.SessionDuration = book.Int(int(duration.Int64))
	}
	l.Description = description.String
	l.Emoji = emoji.String
	l.Timestamp = l.Timestamp.Local()

	return &l, nil
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
