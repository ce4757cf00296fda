// Package notify is the local notification service: reminders are queued
// in the database and a dispatcher delivers them once their trigger time
// has passed.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/erwar/booknest/internal/reminder"
)

// Pending is a queued notification. DeliveredAt is zero until it fires.
type Pending struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	TriggerAt   time.Time `json:"trigger_at"`
	CreatedAt   time.Time `json:"created_at"`
	DeliveredAt time.Time `json:"delivered_at,omitempty"`
}

type Store interface {
	Enqueue(ctx context.Context, n *Pending) error
	ClearPending(ctx context.Context) (int, error)
	ListPending(ctx context.Context) ([]Pending, error)
	ListDue(ctx context.Context, now time.Time) ([]Pending, error)
	MarkDelivered(ctx context.Context, id string, at time.Time) error
}

// Queue implements reminder.Notifier on top of a Store.
type Queue struct {
	store Store
}

var _ reminder.Notifier = (*Queue)(nil)

func NewQueue(store Store) *Queue {
	return &Queue{store: store}
}

func (q *Queue) Schedule(ctx context.Context, n reminder.Notification, at time.Time) error {
	p := &Pending{
		ID:        uuid.NewString(),
		Title:     n.Title,
		Body:      n.Body,
		TriggerAt: at,
	}
	if err := q.store.Enqueue(ctx, p); err != nil {
		return fmt.Errorf("enqueue: %w", err)
	}
	return nil
}

func (q *Queue) CancelAll(ctx context.Context) error {
	if _, err := q.store.ClearPending(ctx); err != nil {
		return fmt.Errorf("clear pending: %w", err)
	}
	return nil
}

func (q *Queue) Pending(ctx context.Context) ([]Pending, error) {
	return q.store.ListPending(ctx)
}
