// Package tracker is the application service behind the CLI. It validates
// and appends reading logs, recomputes the derived progress projection
// after every mutation, and keeps reminders in step with due dates.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/erwar/booknest/internal/book"
	"github.com/erwar/booknest/internal/progress"
	"github.com/erwar/booknest/internal/reminder"
)

// PrefNotificationsEnabled is the preference key of the global reminder
// switch.
const PrefNotificationsEnabled = "notifications_enabled"

type BookStore interface {
	Create(ctx context.Context, b *book.Book) error
	GetByID(ctx context.Context, id string) (*book.Book, error)
	GetAll(ctx context.Context) ([]book.Book, error)
	GetByStatus(ctx context.Context, status book.Status) ([]book.Book, error)
	GetFavorites(ctx context.Context) ([]book.Book, error)
	GetWithDueDates(ctx context.Context) ([]book.Book, error)
	Update(ctx context.Context, b *book.Book) error
	UpdateStatus(ctx context.Context, id string, status book.Status) error
	UpdateRating(ctx context.Context, id string, rating int) error
	UpdateDueDate(ctx context.Context, id string, due time.Time) error
	SetFavorite(ctx context.Context, id string, favorite bool) error
	Delete(ctx context.Context, id string) error
}

type LogStore interface {
	AppendLog(ctx context.Context, l *book.ReadingLog) error
	LatestProgressLog(ctx context.Context, bookID string) (*book.ReadingLog, error)
	AllLogs(ctx context.Context, bookID string) ([]book.ReadingLog, error)
	GetLog(ctx context.Context, logID string) (*book.ReadingLog, error)
	DeleteLog(ctx context.Context, logID string) error
	DeleteLogsForBook(ctx context.Context, bookID string) error
}

type PreferenceStore interface {
	GetBool(ctx context.Context, key string) (value, found bool, err error)
	SetBool(ctx context.Context, key string, value bool) error
}

type Reminders interface {
	Schedule(ctx context.Context, prefs reminder.Preferences, title string, due time.Time) reminder.Outcome
	CancelAll(ctx context.Context) bool
	ReconcileAll(ctx context.Context, prefs reminder.Preferences, books []book.Book) reminder.Report
}

type Options struct {
	// NotificationsDefault applies while the preference was never set.
	NotificationsDefault bool
	// AllowStatusRegression lets a Finished book return to Reading when a
	// deleted log drops it below 100%.
	AllowStatusRegression bool
}

type Tracker struct {
	books     BookStore
	logs      LogStore
	prefs     PreferenceStore
	reminders Reminders
	opts      Options
	logger    *slog.Logger
	now       func() time.Time
}

func New(books BookStore, logs LogStore, prefs PreferenceStore, reminders Reminders, opts Options, logger *slog.Logger) *Tracker {
	return &Tracker{
		books:     books,
		logs:      logs,
		prefs:     prefs,
		reminders: reminders,
		opts:      opts,
		logger:    logger,
		now:       time.Now,
	}
}

func (t *Tracker) WithClock(now func() time.Time) *Tracker {
	t.now = now
	return t
}

// Projection is the recomputed state of a book after a load or mutation.
type Projection struct {
	Book       book.Book           `json:"book"`
	Snapshot   progress.Snapshot   `json:"snapshot"`
	Completion progress.Completion `json:"completion"`
	// Log is the entry written by the mutation, when there was one.
	Log *book.ReadingLog `json:"log,omitempty"`
}

func (t *Tracker) AddBook(ctx context.Context, b *book.Book) error {
	b.Title = strings.TrimSpace(b.Title)
	b.Author = strings.TrimSpace(b.Author)
	if b.Title == "" || b.Author == "" {
		return &progress.InvalidRangeError{Field: "book", Reason: "title and author are required"}
	}
	if b.Status == "" {
		b.Status = book.StatusToRead
	}
	if !b.Status.IsValid() {
		return &progress.InvalidRangeError{Field: "status", Reason: fmt.Sprintf("unknown status %q", b.Status)}
	}
	if b.ProgressMode == "" {
		b.ProgressMode = book.ModePages
	}
	if !b.ProgressMode.IsValid() {
		return &progress.InvalidRangeError{Field: "progress mode", Reason: fmt.Sprintf("unknown mode %q", b.ProgressMode)}
	}
	if b.TotalPages < 0 {
		return &progress.InvalidRangeError{Field: "total pages", Reason: "must not be negative"}
	}
	if b.Rating != 0 {
		if err := progress.ValidateRating(b.Rating); err != nil {
			return err
		}
	}

	b.ID = uuid.NewString()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = t.now()
	}
	if err := t.books.Create(ctx, b); err != nil {
		return fmt.Errorf("create book: %w", err)
	}
	t.logger.Info("Book added", "book_id", b.ID, "title", b.Title)

	if b.HasDueDate() {
		prefs, err := t.Preferences(ctx)
		if err != nil {
			return err
		}
		t.reminders.Schedule(ctx, prefs, b.Title, b.DueDate)
	}
	return nil
}

func (t *Tracker) GetBook(ctx context.Context, id string) (*book.Book, error) {
	return t.books.GetByID(ctx, id)
}

// ListBooks returns every book, or only those with the given status when
// status is not empty.
func (t *Tracker) ListBooks(ctx context.Context, status book.Status) ([]book.Book, error) {
	if status == "" {
		return t.books.GetAll(ctx)
	}
	if !status.IsValid() {
		return nil, &progress.InvalidRangeError{Field: "status", Reason: fmt.Sprintf("unknown status %q", status)}
	}
	return t.books.GetByStatus(ctx, status)
}

func (t *Tracker) Favorites(ctx context.Context) ([]book.Book, error) {
	return t.books.GetFavorites(ctx)
}

// UpdateBook saves edited book details. The progress mode is fixed at
// creation and is never changed here; a changed due date reconciles
// reminders.
func (t *Tracker) UpdateBook(ctx context.Context, b *book.Book) error {
	current, err := t.books.GetByID(ctx, b.ID)
	if err != nil {
		return err
	}
	if !b.Status.IsValid() {
		return &progress.InvalidRangeError{Field: "status", Reason: fmt.Sprintf("unknown status %q", b.Status)}
	}
	if b.Rating != 0 {
		if err := progress.ValidateRating(b.Rating); err != nil {
			return err
		}
	}
	b.ProgressMode = current.ProgressMode

	if err := t.books.Update(ctx, b); err != nil {
		return fmt.Errorf("update book: %w", err)
	}

	if !b.DueDate.Equal(current.DueDate) {
		if _, err := t.ReconcileReminders(ctx); err != nil {
			return err
		}
	}
	return nil
}

// DeleteBook removes a book and then its logs. The two deletes are
// independent writes; a failure on the logs leaves orphans behind.
func (t *Tracker) DeleteBook(ctx context.Context, id string) error {
	b, err := t.books.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := t.books.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	if err := t.logs.DeleteLogsForBook(ctx, id); err != nil {
		t.logger.Warn("Book deleted but its logs were not", "book_id", id, "error", err)
	}

	if b.HasDueDate() {
		if _, err := t.ReconcileReminders(ctx); err != nil {
			return err
		}
	}
	t.logger.Info("Book deleted", "book_id", id)
	return nil
}

func (t *Tracker) ToggleFavorite(ctx context.Context, id string) (bool, error) {
	b, err := t.books.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	if err := t.books.SetFavorite(ctx, id, !b.Favorite); err != nil {
		return false, fmt.Errorf("toggle favorite: %w", err)
	}
	return !b.Favorite, nil
}

// Preferences reads the global reminder switch, falling back to the
// configured default when it was never set.
func (t *Tracker) Preferences(ctx context.Context) (reminder.Preferences, error) {
	enabled, found, err := t.prefs.GetBool(ctx, PrefNotificationsEnabled)
	if err != nil {
		return reminder.Preferences{}, fmt.Errorf("read preferences: %w", err)
	}
	if !found {
		enabled = t.opts.NotificationsDefault
	}
	return reminder.Preferences{NotificationsEnabled: enabled}, nil
}

// SetNotificationsEnabled persists the switch. Turning it off cancels every
// pending reminder; turning it on reschedules all future due dates.
func (t *Tracker) SetNotificationsEnabled(ctx context.Context, enabled bool) (reminder.Report, error) {
	if err := t.prefs.SetBool(ctx, PrefNotificationsEnabled, enabled); err != nil {
		return reminder.Report{}, fmt.Errorf("save preference: %w", err)
	}
	if !enabled {
		return reminder.Report{Cancelled: t.reminders.CancelAll(ctx)}, nil
	}
	return t.ReconcileReminders(ctx)
}

// ReconcileReminders cancels pending reminders and reschedules every book
// with a future due date. Run it on start-up and after due date edits.
func (t *Tracker) ReconcileReminders(ctx context.Context) (reminder.Report, error) {
	prefs, err := t.Preferences(ctx)
	if err != nil {
		return reminder.Report{}, err
	}
	books, err := t.books.GetWithDueDates(ctx)
	if err != nil {
		return reminder.Report{}, fmt.Errorf("list due books: %w", err)
	}
	return t.reminders.ReconcileAll(ctx, prefs, books), nil
}

// SetDueDate stores a new deadline and reconciles reminders so the previous
// trigger of this book does not linger.
func (t *Tracker) SetDueDate(ctx context.Context, id string, due time.Time) (reminder.Report, error) {
	if err := t.books.UpdateDueDate(ctx, id, due); err != nil {
		return reminder.Report{}, fmt.Errorf("set due date: %w", err)
	}
	return t.ReconcileReminders(ctx)
}

func (t *Tracker) ClearDueDate(ctx context.Context, id string) (reminder.Report, error) {
	return t.SetDueDate(ctx, id, time.Time{})
}

// Upcoming lists books due within the window, soonest first.
func (t *Tracker) Upcoming(ctx context.Context, within time.Duration) ([]book.Book, error) {
	books, err := t.books.GetWithDueDates(ctx)
	if err != nil {
		return nil, fmt.Errorf("list due books: %w", err)
	}
	return reminder.Upcoming(books, t.now(), within), nil
}

// IsValidationError reports whether err is a correctable input problem
// rather than a storage failure.
func IsValidationError(err error) bool {
	var dup *progress.DuplicateRangeError
	var inv *progress.InvalidRangeError
	return errors.As(err, &dup) || errors.As(err, &inv) || errors.Is(err, progress.ErrInvalidRating)
}
