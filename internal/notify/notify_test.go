package notify

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erwar/booknest/internal/reminder"
)

// memStore is an in-memory Store.
type memStore struct {
	mu    sync.Mutex
	items []Pending
}

func (s *memStore) Enqueue(_ context.Context, n *Pending) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, *n)
	return nil
}

func (s *memStore) ClearPending(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.items[:0]
	removed := 0
	for _, n := range s.items {
		if n.DeliveredAt.IsZero() {
			removed++
			continue
		}
		kept = append(kept, n)
	}
	s.items = kept
	return removed, nil
}

func (s *memStore) ListPending(_ context.Context) ([]Pending, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Pending
	for _, n := range s.items {
		if n.DeliveredAt.IsZero() {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *memStore) ListDue(ctx context.Context, now time.Time) ([]Pending, error) {
	pending, _ := s.ListPending(ctx)
	var out []Pending
	for _, n := range pending {
		if !n.TriggerAt.After(now) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *memStore) MarkDelivered(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == id {
			s.items[i].DeliveredAt = at
			return nil
		}
	}
	return errors.New("not found")
}

type failingSink struct{}

func (failingSink) Deliver(context.Context, Pending) error { return errors.New("screen locked") }

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestQueueScheduleAndCancel(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	q := NewQueue(store)

	at := time.Date(2026, 11, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, q.Schedule(ctx, reminder.Notification{Title: "Deadline Reminder", Body: "due"}, at))
	require.NoError(t, q.Schedule(ctx, reminder.Notification{Title: "Deadline Reminder", Body: "due too"}, at))

	pending, err := q.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.NotEqual(t, pending[0].ID, pending[1].ID)
	assert.Equal(t, at, pending[0].TriggerAt)

	require.NoError(t, q.CancelAll(ctx))
	pending, err = q.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestDispatcherTick(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	store := &memStore{items: []Pending{
		{ID: "due", Title: "Deadline Reminder", Body: `Your book "Dune" is due!`, TriggerAt: now.Add(-time.Minute)},
		{ID: "later", Title: "Deadline Reminder", Body: `Your book "Emma" is due!`, TriggerAt: now.Add(time.Hour)},
	}}

	var out bytes.Buffer
	d := NewDispatcher(store, WriterSink{W: &out}, time.Minute, testLogger).WithClock(func() time.Time { return now })

	n, err := d.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Contains(t, out.String(), `Your book "Dune" is due!`)
	assert.NotContains(t, out.String(), "Emma")

	// delivered once only
	n, err = d.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestDispatcherKeepsFailedDeliveries(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	store := &memStore{items: []Pending{{ID: "due", TriggerAt: now.Add(-time.Minute)}}}

	d := NewDispatcher(store, failingSink{}, time.Minute, testLogger).WithClock(func() time.Time { return now })
	n, err := d.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	pending, err := store.ListPending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestDispatcherRunStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	store := &memStore{items: []Pending{{ID: "due", Title: "t", Body: "b", TriggerAt: time.Now().Add(-time.Second)}}}

	done := make(chan error, 1)
	d := NewDispatcher(store, LogSink{Logger: testLogger}, 10*time.Millisecond, testLogger)
	go func() { done <- d.Run(ctx) }()

	assert.Eventually(t, func() bool {
		pending, _ := store.ListPending(context.Background())
		return len(pending) == 0
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("dispatcher did not stop")
	}
}
