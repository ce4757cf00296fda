// Package reminder turns book due dates into host notifications, gated by
// the global notifications preference.
package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/erwar/booknest/internal/book"
)

// Preferences is the global notification opt-in, passed explicitly to
// every scheduling decision.
type Preferences struct {
	NotificationsEnabled bool
}

type Notification struct {
	Title string
	Body  string
}

// Notifier is the host notification service.
type Notifier interface {
	Schedule(ctx context.Context, n Notification, at time.Time) error
	CancelAll(ctx context.Context) error
}

// SchedulingError wraps a failure reported by the host service. It is
// logged, never returned to callers.
type SchedulingError struct {
	Title string
	Err   error
}

func (e *SchedulingError) Error() string {
	return fmt.Sprintf("schedule reminder for %q: %v", e.Title, e.Err)
}

func (e *SchedulingError) Unwrap() error {
	return e.Err
}

type Outcome string

const (
	OutcomeScheduled Outcome = "scheduled"
	OutcomeDisabled  Outcome = "disabled"
	OutcomePastDue   Outcome = "past_due"
	OutcomeFailed    Outcome = "failed"
)

// Payload holds the fixed reminder text. Body is a format string that
// receives the book title.
type Payload struct {
	Title string
	Body  string
}

var DefaultPayload = Payload{
	Title: "Deadline Reminder",
	Body:  `Your book "%s" is due!`,
}

type Scheduler struct {
	notifier Notifier
	payload  Payload
	logger   *slog.Logger
	now      func() time.Time
}

func NewScheduler(notifier Notifier, payload Payload, logger *slog.Logger) *Scheduler {
	if payload.Title == "" {
		payload.Title = DefaultPayload.Title
	}
	if payload.Body == "" {
		payload.Body = DefaultPayload.Body
	}
	return &Scheduler{
		notifier: notifier,
		payload:  payload,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

// Schedule asks the host to fire a reminder for title at due. It never
// schedules when notifications are off or the instant is not in the future,
// and host failures are only logged.
func (s *Scheduler) Schedule(ctx context.Context, prefs Preferences, title string, due time.Time) Outcome {
	logger := s.logger.With("title", title, "due", due)

	if !prefs.NotificationsEnabled {
		logger.Info("Notifications disabled, reminder not scheduled")
		return OutcomeDisabled
	}
	if !due.After(s.now()) {
		logger.Warn("Due date is in the past, reminder not scheduled")
		return OutcomePastDue
	}

	n := Notification{
		Title: s.payload.Title,
		Body:  fmt.Sprintf(s.payload.Body, title),
	}
	if err := s.notifier.Schedule(ctx, n, due); err != nil {
		logger.Error("Failed to schedule reminder", "error", &SchedulingError{Title: title, Err: err})
		return OutcomeFailed
	}

	logger.Info("Reminder scheduled")
	return OutcomeScheduled
}

// CancelAll clears every pending reminder on the host and reports whether
// the host accepted the request.
func (s *Scheduler) CancelAll(ctx context.Context) bool {
	if err := s.notifier.CancelAll(ctx); err != nil {
		s.logger.Error("Failed to cancel reminders", "error", err)
		return false
	}
	s.logger.Info("All scheduled reminders cancelled")
	return true
}

// Report counts the outcomes of a reconcile pass.
type Report struct {
	Cancelled bool
	Scheduled int
	PastDue   int
	NoDueDate int
	Failed    int
}

// ReconcileAll brings the host's pending reminders in line with the book
// list. Pending reminders are cancelled first so a changed due date never
// leaves its old trigger behind; with notifications off, or when the
// cancel failed, nothing is rescheduled.
func (s *Scheduler) ReconcileAll(ctx context.Context, prefs Preferences, books []book.Book) Report {
	report := Report{Cancelled: s.CancelAll(ctx)}

	if !prefs.NotificationsEnabled {
		s.logger.Info("Notifications disabled, reminders left cancelled")
		return report
	}
	if !report.Cancelled {
		s.logger.Warn("Pending reminders were not cleared, skipping reschedule to avoid duplicates")
		return report
	}

	for _, b := range books {
		if !b.HasDueDate() {
			report.NoDueDate++
			continue
		}
		switch s.Schedule(ctx, prefs, b.Title, b.DueDate) {
		case OutcomeScheduled:
			report.Scheduled++
		case OutcomePastDue:
			report.PastDue++
		case OutcomeFailed:
			report.Failed++
		}
	}

	s.logger.Info("Reminders reconciled",
		"scheduled", report.Scheduled, "past_due", report.PastDue, "failed", report.Failed)
	return report
}
