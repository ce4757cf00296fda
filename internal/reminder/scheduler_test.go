package reminder

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/erwar/booknest/internal/book"
)

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Schedule(ctx context.Context, n Notification, at time.Time) error {
	args := m.Called(ctx, n, at)
	return args.Error(0)
}

func (m *mockNotifier) CancelAll(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

var fixedNow = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

func newTestScheduler(n Notifier) *Scheduler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewScheduler(n, Payload{}, logger).WithClock(func() time.Time { return fixedNow })
}

var (
	enabled  = Preferences{NotificationsEnabled: true}
	disabled = Preferences{NotificationsEnabled: false}
)

func TestSchedule(t *testing.T) {
	ctx := context.Background()
	tomorrow := fixedNow.Add(24 * time.Hour)

	t.Run("future due date is scheduled", func(t *testing.T) {
		n := new(mockNotifier)
		want := Notification{Title: "Deadline Reminder", Body: `Your book "Dune" is due!`}
		n.On("Schedule", ctx, want, tomorrow).Return(nil).Once()

		assert.Equal(t, OutcomeScheduled, newTestScheduler(n).Schedule(ctx, enabled, "Dune", tomorrow))
		n.AssertExpectations(t)
	})

	t.Run("disabled never calls the host", func(t *testing.T) {
		n := new(mockNotifier)
		assert.Equal(t, OutcomeDisabled, newTestScheduler(n).Schedule(ctx, disabled, "Dune", tomorrow))
		n.AssertNotCalled(t, "Schedule", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("past due never calls the host", func(t *testing.T) {
		n := new(mockNotifier)
		s := newTestScheduler(n)
		for i := 0; i < 2; i++ {
			assert.Equal(t, OutcomePastDue, s.Schedule(ctx, enabled, "Dune", fixedNow.Add(-time.Hour)))
		}
		assert.Equal(t, OutcomePastDue, s.Schedule(ctx, enabled, "Dune", fixedNow))
		n.AssertNotCalled(t, "Schedule", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("host failure is swallowed", func(t *testing.T) {
		n := new(mockNotifier)
		n.On("Schedule", ctx, mock.Anything, tomorrow).Return(errors.New("permission denied"))

		assert.Equal(t, OutcomeFailed, newTestScheduler(n).Schedule(ctx, enabled, "Dune", tomorrow))
	})
}

func TestCustomPayload(t *testing.T) {
	ctx := context.Background()
	n := new(mockNotifier)
	tomorrow := fixedNow.Add(24 * time.Hour)
	n.On("Schedule", ctx, Notification{Title: "Library", Body: "Return Dune"}, tomorrow).Return(nil)

	s := NewScheduler(n, Payload{Title: "Library", Body: "Return %s"}, slog.New(slog.NewTextHandler(io.Discard, nil))).
		WithClock(func() time.Time { return fixedNow })
	assert.Equal(t, OutcomeScheduled, s.Schedule(ctx, enabled, "Dune", tomorrow))
	n.AssertExpectations(t)
}

func TestReconcileAll(t *testing.T) {
	ctx := context.Background()
	books := []book.Book{
		{Title: "Future", DueDate: fixedNow.Add(48 * time.Hour)},
		{Title: "Past", DueDate: fixedNow.Add(-48 * time.Hour)},
		{Title: "Undated"},
	}

	t.Run("cancels then reschedules future due dates", func(t *testing.T) {
		n := new(mockNotifier)
		var order []string
		n.On("CancelAll", ctx).Run(func(mock.Arguments) { order = append(order, "cancel") }).Return(nil).Once()
		n.On("Schedule", ctx, mock.Anything, books[0].DueDate).
			Run(func(mock.Arguments) { order = append(order, "schedule") }).Return(nil).Once()

		report := newTestScheduler(n).ReconcileAll(ctx, enabled, books)
		assert.Equal(t, Report{Cancelled: true, Scheduled: 1, PastDue: 1, NoDueDate: 1}, report)
		assert.Equal(t, []string{"cancel", "schedule"}, order)
		n.AssertExpectations(t)
	})

	t.Run("disabled only cancels", func(t *testing.T) {
		n := new(mockNotifier)
		n.On("CancelAll", ctx).Return(nil).Once()

		report := newTestScheduler(n).ReconcileAll(ctx, disabled, books)
		assert.Equal(t, Report{Cancelled: true}, report)
		n.AssertNotCalled(t, "Schedule", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("failed cancel skips rescheduling", func(t *testing.T) {
		n := new(mockNotifier)
		n.On("CancelAll", ctx).Return(errors.New("host unavailable"))

		report := newTestScheduler(n).ReconcileAll(ctx, enabled, books)
		assert.Equal(t, Report{Cancelled: false}, report)
		n.AssertNotCalled(t, "Schedule", mock.Anything, mock.Anything, mock.Anything)
	})
}
