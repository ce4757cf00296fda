package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/erwar/booknest/internal/book"
	_ "github.com/mattn/go-sqlite3"
)

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// one connection keeps ":memory:" databases shared and writes serialized
	db.SetMaxOpenConns(1)

	repo := &SQLiteRepository{db: db, now: time.Now}
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return repo, nil
}

// WithClock replaces the clock used to stamp new logs and deliveries.
func (r *SQLiteRepository) WithClock(now func() time.Time) *SQLiteRepository {
	r.now = now
	return r
}

func (r *SQLiteRepository) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS books (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			author TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'to_read',
			total_pages INTEGER NOT NULL DEFAULT 0,
			progress_mode TEXT NOT NULL DEFAULT 'pages',
			rating INTEGER NOT NULL DEFAULT 0,
			favorite INTEGER NOT NULL DEFAULT 0,
			due_date DATETIME,
			cover_image TEXT,
			description TEXT,
			created_at DATETIME NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_books_status ON books(status);`,
		`CREATE TABLE IF NOT EXISTS reading_logs (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			book_id TEXT NOT NULL,
			type TEXT NOT NULL,
			start_page INTEGER,
			end_page INTEGER,
			percentage REAL,
			description TEXT,
			emoji TEXT,
			session_duration INTEGER,
			status TEXT NOT NULL,
			timestamp DATETIME NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_reading_logs_book ON reading_logs(book_id, timestamp);`,
		`CREATE TABLE IF NOT EXISTS preferences (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS notifications (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			body TEXT NOT NULL,
			trigger_at DATETIME NOT NULL,
			created_at DATETIME NOT NULL,
			delivered_at DATETIME
		);`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_pending ON notifications(delivered_at, trigger_at);`,
	}

	for i, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("migrate stmt %d: %w", i, err)
		}
	}
	return nil
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

const bookColumns = `id, title, author, category, status, total_pages, progress_mode, rating, favorite, due_date, cover_image, description, created_at`

func (r *SQLiteRepository) Create(ctx context.Context, b *book.Book) error {
	if b.CreatedAt.IsZero() {
		b.CreatedAt = r.now()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO books (`+bookColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, b.ID, b.Title, b.Author, b.Category, b.Status, b.TotalPages, b.ProgressMode, b.Rating, b.Favorite,
		nullTime(b.DueDate), nullString(b.CoverImage), nullString(b.Description), b.CreatedAt.UTC())
	if err != nil {
		return &book.StorageError{Op: "insert book", Err: err}
	}
	return nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*book.Book, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE id = ?`, id)

	b, err := r.scanBook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("book %s: %w", id, book.ErrNotFound)
	}
	if err != nil {
		return nil, &book.StorageError{Op: "get book", Err: err}
	}
	return b, nil
}

func (r *SQLiteRepository) GetAll(ctx context.Context) ([]book.Book, error) {
	return r.queryBooks(ctx, "list books", `SELECT `+bookColumns+` FROM books ORDER BY created_at DESC`)
}

func (r *SQLiteRepository) GetByStatus(ctx context.Context, status book.Status) ([]book.Book, error) {
	return r.queryBooks(ctx, "list books by status",
		`SELECT `+bookColumns+` FROM books WHERE status = ? ORDER BY created_at DESC`, status)
}

func (r *SQLiteRepository) GetFavorites(ctx context.Context) ([]book.Book, error) {
	return r.queryBooks(ctx, "list favorites",
		`SELECT `+bookColumns+` FROM books WHERE favorite = 1 ORDER BY created_at DESC`)
}

// GetWithDueDates returns books that carry a deadline, soonest first.
func (r *SQLiteRepository) GetWithDueDates(ctx context.Context) ([]book.Book, error) {
	return r.queryBooks(ctx, "list due books",
		`SELECT `+bookColumns+` FROM books WHERE due_date IS NOT NULL ORDER BY due_date ASC`)
}

func (r *SQLiteRepository) Update(ctx context.Context, b *book.Book) error {
	return r.exec(ctx, "update book", `
		UPDATE books SET
			title = ?, author = ?, category = ?, status = ?, total_pages = ?,
			rating = ?, favorite = ?, due_date = ?, cover_image = ?, description = ?
		WHERE id = ?
	`, b.Title, b.Author, b.Category, b.Status, b.TotalPages, b.Rating, b.Favorite,
		nullTime(b.DueDate), nullString(b.CoverImage), nullString(b.Description), b.ID)
}

func (r *SQLiteRepository) UpdateStatus(ctx context.Context, id string, status book.Status) error {
	return r.exec(ctx, "update status", `UPDATE books SET status = ? WHERE id = ?`, status, id)
}

func (r *SQLiteRepository) UpdateRating(ctx context.Context, id string, rating int) error {
	return r.exec(ctx, "update rating", `UPDATE books SET rating = ? WHERE id = ?`, rating, id)
}

func (r *SQLiteRepository) UpdateDueDate(ctx context.Context, id string, due time.Time) error {
	return r.exec(ctx, "update due date", `UPDATE books SET due_date = ? WHERE id = ?`, nullTime(due), id)
}

func (r *SQLiteRepository) SetFavorite(ctx context.Context, id string, favorite bool) error {
	return r.exec(ctx, "set favorite", `UPDATE books SET favorite = ? WHERE id = ?`, favorite, id)
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	return r.exec(ctx, "delete book", "DELETE FROM books WHERE id = ?", id)
}

// DeleteLogsForBook removes every log of a book. It is not atomic with Delete.
func (r *SQLiteRepository) DeleteLogsForBook(ctx context.Context, bookID string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM reading_logs WHERE book_id = ?", bookID)
	if err != nil {
		return &book.StorageError{Op: "delete logs", Err: err}
	}
	return nil
}

func (r *SQLiteRepository) exec(ctx context.Context, op, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return &book.StorageError{Op: op, Err: err}
	}
	n, err := result.RowsAffected()
	if err != nil {
		return &book.StorageError{Op: op, Err: err}
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, book.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) queryBooks(ctx context.Context, op, query string, args ...any) ([]book.Book, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &book.StorageError{Op: op, Err: err}
	}
	defer rows.Close()

	books, err := r.scanBooks(rows)
	if err != nil {
		return nil, &book.StorageError{Op: op, Err: err}
	}
	return books, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func (r *SQLiteRepository) scanBook(s scanner) (*book.Book, error) {
	var b book.Book
	var dueDate sql.NullTime
	var coverImage, description sql.NullString

	err := s.Scan(
		&b.ID, &b.Title, &b.Author, &b.Category, &b.Status, &b.TotalPages, &b.ProgressMode,
		&b.Rating, &b.Favorite, &dueDate, &coverImage, &description, &b.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if dueDate.Valid {
		b.DueDate = dueDate.Time.Local()
	}
	if coverImage.Valid {
		b.CoverImage = coverImage.String
	}
	if description.Valid {
		b.Description = description.String
	}
	b.CreatedAt = b.CreatedAt.Local()

	return &b, nil
}

func (r *SQLiteRepository) scanBooks(rows *sql.Rows) ([]book.Book, error) {
	var books []book.Book
	for rows.Next() {
		b, err := r.scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, *b)
	}
	return books, rows.Err()
}

// Times are stored in UTC so that lexical order in SQLite matches
// chronological order.
func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
