package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"
)

// Sink receives notifications whose trigger time has passed.
type Sink interface {
	Deliver(ctx context.Context, n Pending) error
}

// LogSink delivers notifications as log records.
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) Deliver(ctx context.Context, n Pending) error {
	s.Logger.InfoContext(ctx, n.Title, "body", n.Body, "trigger_at", n.TriggerAt)
	return nil
}

// WriterSink prints notifications to a writer, one per line.
type WriterSink struct {
	W io.Writer
}

func (s WriterSink) Deliver(_ context.Context, n Pending) error {
	_, err := fmt.Fprintf(s.W, "[%s] %s: %s\n", n.TriggerAt.Format("Jan 2 15:04"), n.Title, n.Body)
	return err
}

type Dispatcher struct {
	store    Store
	sink     Sink
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

func NewDispatcher(store Store, sink Sink, interval time.Duration, logger *slog.Logger) *Dispatcher {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Dispatcher{
		store:    store,
		sink:     sink,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

func (d *Dispatcher) WithClock(now func() time.Time) *Dispatcher {
	d.now = now
	return d
}

// Run delivers due notifications every interval until ctx is done.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.logger.Info("Notification dispatcher started", "interval", d.interval)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		if _, err := d.Tick(ctx); err != nil {
			d.logger.Error("Dispatch tick failed", "error", err)
		}

		select {
		case <-ctx.Done():
			d.logger.Info("Notification dispatcher stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// Tick delivers every pending notification that is due and returns how
// many were delivered. A failed delivery stays pending for the next tick.
func (d *Dispatcher) Tick(ctx context.Context) (int, error) {
	now := d.now()
	due, err := d.store.ListDue(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("list due: %w", err)
	}

	delivered := 0
	for _, n := range due {
		if err := d.sink.Deliver(ctx, n); err != nil {
			d.logger.Warn("Notification delivery failed", "id", n.ID, "error", err)
			continue
		}
		if err := d.store.MarkDelivered(ctx, n.ID, now); err != nil {
			d.logger.Error("Failed to mark notification delivered", "id", n.ID, "error", err)
			continue
		}
		delivered++
	}
	return delivered, nil
}
