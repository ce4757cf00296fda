package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/erwar/booknest/internal/notify"
)

func dueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "due",
		Short: "Manage book due dates",
	}
	cmd.AddCommand(dueSetCmd(), dueClearCmd(), dueUpcomingCmd())
	return cmd
}

func dueSetCmd() *cobra.Command {
	var date, clock string

	cmd := &cobra.Command{
		Use:   "set [book-id]",
		Short: "Set a due date and schedule its reminder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if date == "" {
				return fmt.Errorf("--date is required")
			}
			due, err := parseDue(date, clock)
			if err != nil {
				return err
			}
			return withServices(func(ctx context.Context, s *services) error {
				id, err := resolveBookID(ctx, s, args[0])
				if err != nil {
					return err
				}
				report, err := s.tracker.SetDueDate(ctx, id, due)
				if err != nil {
					return err
				}
				fmt.Printf("Due %s\n", formatDue(due))
				printReport(report)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "due date, e.g. 2026-11-01 or \"Nov 1 2026\"")
	cmd.Flags().StringVar(&clock, "time", "09:00", "time of day of the reminder")
	return cmd
}

func dueClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear [book-id]",
		Short: "Remove a book's due date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(func(ctx context.Context, s *services) error {
				id, err := resolveBookID(ctx, s, args[0])
				if err != nil {
					return err
				}
				report, err := s.tracker.ClearDueDate(ctx, id)
				if err != nil {
					return err
				}
				fmt.Println("Due date cleared.")
				printReport(report)
				return nil
			})
		},
	}
}

func dueUpcomingCmd() *cobra.Command {
	var within time.Duration

	cmd := &cobra.Command{
		Use:   "upcoming",
		Short: "List books with upcoming due dates",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(func(ctx context.Context, s *services) error {
				books, err := s.tracker.Upcoming(ctx, within)
				if err != nil {
					return err
				}
				if len(books) == 0 {
					fmt.Println("Nothing due.")
					return nil
				}
				table := newTable(os.Stdout, "ID", "Title", "Status", "Due")
				for _, b := range books {
					table.Append([]string{shortID(b.ID), b.Title, b.Status.Label(), formatDue(b.DueDate)})
				}
				table.Render()
				return nil
			})
		},
	}

	cmd.Flags().DurationVarP(&within, "within", "w", 7*24*time.Hour, "look-ahead window (0 for no limit)")
	return cmd
}

func notificationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "Turn due date reminders on or off",
	}

	set := func(enabled bool) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			return withServices(func(ctx context.Context, s *services) error {
				report, err := s.tracker.SetNotificationsEnabled(ctx, enabled)
				if err != nil {
					return err
				}
				if enabled {
					fmt.Println("Notifications enabled.")
					printReport(report)
				} else {
					fmt.Println("Notifications disabled. Pending reminders were cancelled.")
					if !report.Cancelled {
						fmt.Println("Warning: pending reminders could not be cleared.")
					}
				}
				return nil
			})
		}
	}

	cmd.AddCommand(
		&cobra.Command{Use: "on", Short: "Enable reminders", Args: cobra.NoArgs, RunE: set(true)},
		&cobra.Command{Use: "off", Short: "Disable and cancel reminders", Args: cobra.NoArgs, RunE: set(false)},
		&cobra.Command{
			Use:   "status",
			Short: "Show whether reminders are enabled",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withServices(func(ctx context.Context, s *services) error {
					prefs, err := s.tracker.Preferences(ctx)
					if err != nil {
						return err
					}
					if prefs.NotificationsEnabled {
						fmt.Println("Notifications are on.")
					} else {
						fmt.Println("Notifications are off.")
					}
					return nil
				})
			},
		},
	)
	return cmd
}

func reconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Rebuild pending reminders from the current due dates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(func(ctx context.Context, s *services) error {
				report, err := s.tracker.ReconcileReminders(ctx)
				if err != nil {
					return err
				}
				printReport(report)
				return nil
			})
		},
	}
}

func pendingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "List reminders waiting to fire",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(func(ctx context.Context, s *services) error {
				pending, err := s.queue.Pending(ctx)
				if err != nil {
					return err
				}
				if len(pending) == 0 {
					fmt.Println("No pending reminders.")
					return nil
				}
				table := newTable(os.Stdout, "Fires", "When", "Title", "Message")
				for _, p := range pending {
					table.Append([]string{humanize.Time(p.TriggerAt), p.TriggerAt.Format("Jan 2 15:04"), p.Title, p.Body})
				}
				table.Render()
				return nil
			})
		},
	}
}

func watchCmd() *cobra.Command {
	var interval time.Duration
	var asLog bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Deliver reminders as they come due until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(func(ctx context.Context, s *services) error {
				ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
				defer stop()

				report, err := s.tracker.ReconcileReminders(ctx)
				if err != nil {
					return err
				}
				printReport(report)

				every := s.cfg.Watch.Interval
				if cmd.Flags().Changed("interval") {
					every = interval
				}

				var sink notify.Sink = notify.WriterSink{W: os.Stdout}
				if asLog {
					sink = notify.LogSink{Logger: s.logger}
				}
				return notify.NewDispatcher(s.repo, sink, every, s.logger).Run(ctx)
			})
		},
	}

	cmd.Flags().DurationVarP(&interval, "interval", "i", 0, "poll interval (overrides config)")
	cmd.Flags().BoolVar(&asLog, "log", false, "deliver reminders as log records instead of printing them")
	return cmd
}
