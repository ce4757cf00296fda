package tracker

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/erwar/booknest/internal/book"
	"github.com/erwar/booknest/internal/progress"
)

// SessionInput describes a timed reading session. Pages apply to books
// tracked by pages, Percentage to books tracked by percentage; both are
// optional for a session.
type SessionInput struct {
	FromPage    int
	ToPage      int
	Percentage  *float64
	Duration    int // seconds
	Description string
	Emoji       string
}

// ProgressInput is a progress update. FromPage 0 starts the range at the
// next unread page.
type ProgressInput struct {
	FromPage   int
	ToPage     int
	Percentage *float64
	Emoji      string
}

func (t *Tracker) LogSession(ctx context.Context, bookID string, in SessionInput) (*Projection, error) {
	b, logs, err := t.loadWithLogs(ctx, bookID)
	if err != nil {
		return nil, err
	}

	entry := book.ReadingLog{
		Type:            book.LogSession,
		Description:     strings.TrimSpace(in.Description),
		Emoji:           in.Emoji,
		SessionDuration: book.Int(in.Duration),
		Percentage:      in.Percentage,
	}
	if in.ToPage > 0 {
		from := in.FromPage
		if from == 0 {
			from = progress.NextUnreadPage(progress.ReadPages(logs), b.TotalPages)
		}
		entry.StartPage = book.Int(from)
		entry.EndPage = book.Int(in.ToPage)
	}
	return t.appendAndProject(ctx, b, logs, entry)
}

func (t *Tracker) LogProgress(ctx context.Context, bookID string, in ProgressInput) (*Projection, error) {
	b, logs, err := t.loadWithLogs(ctx, bookID)
	if err != nil {
		return nil, err
	}

	entry := book.ReadingLog{
		Type:       book.LogProgress,
		Emoji:      in.Emoji,
		Percentage: in.Percentage,
	}
	if in.Percentage == nil {
		from := in.FromPage
		if from == 0 {
			from = progress.NextUnreadPage(progress.ReadPages(logs), b.TotalPages)
		}
		entry.StartPage = book.Int(from)
		entry.EndPage = book.Int(in.ToPage)
	}
	return t.appendAndProject(ctx, b, logs, entry)
}

func (t *Tracker) AddNote(ctx context.Context, bookID, text, emoji string) (*Projection, error) {
	text = strings.TrimSpace(text)
	if text == "" && emoji == "" {
		return nil, &progress.InvalidRangeError{Field: "note", Reason: "note is empty"}
	}

	b, logs, err := t.loadWithLogs(ctx, bookID)
	if err != nil {
		return nil, err
	}
	entry := book.ReadingLog{
		Type:        book.LogNote,
		Description: text,
		Emoji:       emoji,
	}
	return t.appendAndProject(ctx, b, logs, entry)
}

// appendAndProject validates entry against the existing logs, appends it
// and recomputes the projection. Nothing is written when validation fails.
func (t *Tracker) appendAndProject(ctx context.Context, b *book.Book, logs []book.ReadingLog, entry book.ReadingLog) (*Projection, error) {
	logger := t.logger.With("book_id", b.ID, "type", entry.Type)

	if err := progress.ValidateEntry(*b, entry, logs); err != nil {
		logger.Info("Log entry rejected", "reason", err)
		return nil, err
	}

	status := b.Status
	if entry.Type != book.LogNote && status == book.StatusToRead {
		status = book.StatusReading
	}

	entry.ID = uuid.NewString()
	entry.BookID = b.ID
	entry.Status = status
	entry.Timestamp = t.now()
	// keep insertion order and timestamp order aligned if the clock steps back
	if len(logs) > 0 && logs[0].Timestamp.After(entry.Timestamp) {
		entry.Timestamp = logs[0].Timestamp
	}

	if err := t.logs.AppendLog(ctx, &entry); err != nil {
		logger.Error("Failed to append log", "error", err)
		return nil, fmt.Errorf("append log: %w", err)
	}
	logger.Info("Log appended", "log_id", entry.ID)

	if status != b.Status {
		if err := t.books.UpdateStatus(ctx, b.ID, status); err != nil {
			return nil, fmt.Errorf("update status: %w", err)
		}
		b.Status = status
	}

	logs = append([]book.ReadingLog{entry}, logs...)
	proj, err := t.project(ctx, b, logs, false)
	if err != nil {
		return nil, err
	}
	proj.Log = &entry
	return proj, nil
}

// Load recomputes the projection of a book from its stored logs and applies
// the completion gate.
func (t *Tracker) Load(ctx context.Context, bookID string) (*Projection, error) {
	b, logs, err := t.loadWithLogs(ctx, bookID)
	if err != nil {
		return nil, err
	}
	return t.project(ctx, b, logs, false)
}

// project derives the snapshot and completion state and persists the one
// status change the gate may ask for. Finished only moves back to Reading
// after a log deletion and only when regression is enabled.
func (t *Tracker) project(ctx context.Context, b *book.Book, logs []book.ReadingLog, afterDelete bool) (*Projection, error) {
	snap := progress.Summarize(*b, logs)
	completion := progress.EvaluateCompletion(snap.Percent, b.Status, b.Rating)

	if completion.MarkFinished {
		if err := t.books.UpdateStatus(ctx, b.ID, book.StatusFinished); err != nil {
			return nil, fmt.Errorf("mark finished: %w", err)
		}
		b.Status = book.StatusFinished
		t.logger.Info("Book finished", "book_id", b.ID, "prompt_rating", completion.PromptRating)
	}

	if afterDelete {
		if status, ok := progress.RegressedStatus(snap.Percent, b.Status, t.opts.AllowStatusRegression); ok {
			if err := t.books.UpdateStatus(ctx, b.ID, status); err != nil {
				return nil, fmt.Errorf("regress status: %w", err)
			}
			t.logger.Info("Book status regressed", "book_id", b.ID, "status", status, "percent", snap.Percent)
			b.Status = status
		}
	}

	return &Projection{Book: *b, Snapshot: snap, Completion: completion}, nil
}

// Rate records the star rating that closes the completion prompt.
func (t *Tracker) Rate(ctx context.Context, bookID string, stars int) (*Projection, error) {
	if err := progress.ValidateRating(stars); err != nil {
		return nil, err
	}
	if err := t.books.UpdateRating(ctx, bookID, stars); err != nil {
		return nil, fmt.Errorf("rate book: %w", err)
	}
	t.logger.Info("Book rated", "book_id", bookID, "rating", stars)
	return t.Load(ctx, bookID)
}

// DeleteLog removes one log and recomputes the book's projection, which may
// re-open pages the log covered.
func (t *Tracker) DeleteLog(ctx context.Context, logID string) (*Projection, error) {
	l, err := t.logs.GetLog(ctx, logID)
	if err != nil {
		return nil, err
	}
	if err := t.logs.DeleteLog(ctx, logID); err != nil {
		return nil, fmt.Errorf("delete log: %w", err)
	}
	t.logger.Info("Log deleted", "log_id", logID, "book_id", l.BookID, "type", l.Type)

	b, logs, err := t.loadWithLogs(ctx, l.BookID)
	if err != nil {
		return nil, err
	}
	// only a removed page or percentage snapshot can lower the percentage
	return t.project(ctx, b, logs, l.HasProgress())
}

// History returns all logs of a book, newest first.
func (t *Tracker) History(ctx context.Context, bookID string) ([]book.ReadingLog, error) {
	if _, err := t.books.GetByID(ctx, bookID); err != nil {
		return nil, err
	}
	return t.logs.AllLogs(ctx, bookID)
}

// CurrentPercent reads only the latest progress log, for listings.
func (t *Tracker) CurrentPercent(ctx context.Context, b book.Book) (int, error) {
	latest, err := t.logs.LatestProgressLog(ctx, b.ID)
	if err != nil {
		return 0, fmt.Errorf("latest progress: %w", err)
	}
	return progress.PercentComplete(b, latest), nil
}

func (t *Tracker) loadWithLogs(ctx context.Context, bookID string) (*book.Book, []book.ReadingLog, error) {
	b, err := t.books.GetByID(ctx, bookID)
	if err != nil {
		return nil, nil, err
	}
	logs, err := t.logs.AllLogs(ctx, bookID)
	if err != nil {
		return nil, nil, fmt.Errorf("load logs: %w", err)
	}
	return b, logs, nil
}
