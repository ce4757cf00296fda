package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/erwar/booknest/internal/book"
	"github.com/erwar/booknest/internal/notify"
)

const notificationColumns = `id, title, body, trigger_at, created_at, delivered_at`

func (r *SQLiteRepository) Enqueue(ctx context.Context, n *notify.Pending) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = r.now()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO notifications (`+notificationColumns+`)
		VALUES (?, ?, ?, ?, ?, NULL)
	`, n.ID, n.Title, n.Body, n.TriggerAt.UTC(), n.CreatedAt.UTC())
	if err != nil {
		return &book.StorageError{Op: "enqueue notification", Err: err}
	}
	return nil
}

// ClearPending drops every notification that has not been delivered yet
// and reports how many were removed.
func (r *SQLiteRepository) ClearPending(ctx context.Context) (int, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM notifications WHERE delivered_at IS NULL")
	if err != nil {
		return 0, &book.StorageError{Op: "clear notifications", Err: err}
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, &book.StorageError{Op: "clear notifications", Err: err}
	}
	return int(n), nil
}

// ListPending returns undelivered notifications, earliest trigger first.
func (r *SQLiteRepository) ListPending(ctx context.Context) ([]notify.Pending, error) {
	return r.queryNotifications(ctx, "list pending", `
		SELECT `+notificationColumns+` FROM notifications
		WHERE delivered_at IS NULL
		ORDER BY trigger_at ASC
	`)
}

// ListDue returns undelivered notifications whose trigger is at or before now.
func (r *SQLiteRepository) ListDue(ctx context.Context, now time.Time) ([]notify.Pending, error) {
	return r.queryNotifications(ctx, "list due", `
		SELECT `+notificationColumns+` FROM notifications
		WHERE delivered_at IS NULL AND trigger_at <= ?
		ORDER BY trigger_at ASC
	`, now.UTC())
}

func (r *SQLiteRepository) MarkDelivered(ctx context.Context, id string, at time.Time) error {
	return r.exec(ctx, "mark delivered",
		"UPDATE notifications SET delivered_at = ? WHERE id = ? AND delivered_at IS NULL", at.UTC(), id)
}

func (r *SQLiteRepository) queryNotifications(ctx context.Context, op, query string, args ...any) ([]notify.Pending, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &book.StorageError{Op: op, Err: err}
	}
	defer rows.Close()

	var out []notify.Pending
	for rows.Next() {
		var n notify.Pending
		var delivered sql.NullTime
		if err := rows.Scan(&n.ID, &n.Title, &n.Body, &n.TriggerAt, &n.CreatedAt, &delivered); err != nil {
			return nil, &book.StorageError{Op: op, Err: err}
		}
		n.TriggerAt = n.TriggerAt.Local()
		n.CreatedAt = n.CreatedAt.Local()
		if delivered.Valid {
			n.DeliveredAt = delivered.Time.Local()
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, &book.StorageError{Op: op, Err: err}
	}
	return out, nil
}
