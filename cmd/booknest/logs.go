package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/erwar/booknest/internal/book"
	"github.com/erwar/booknest/internal/tracker"
)

func sessionCmd() *cobra.Command {
	var from, to, minutes, seconds int
	var percent float64
	var note, emoji string

	cmd := &cobra.Command{
		Use:   "session [book-id]",
		Short: "Log a timed reading session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := tracker.SessionInput{
				FromPage:    from,
				ToPage:      to,
				Duration:    minutes*60 + seconds,
				Description: note,
				Emoji:       emoji,
			}
			if cmd.Flags().Changed("percent") {
				in.Percentage = book.Float(percent)
			}
			if minutes < 0 || seconds < 0 {
				in.Duration = -1
			}

			return withServices(func(ctx context.Context, s *services) error {
				id, err := resolveBookID(ctx, s, args[0])
				if err != nil {
					return err
				}
				proj, err := s.tracker.LogSession(ctx, id, in)
				if err != nil {
					return err
				}
				fmt.Printf("Session logged for %s (%s).\n", proj.Book.Title, formatSeconds(in.Duration))
				printProjection(proj)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&from, "from", 0, "first page read (defaults to the next unread page)")
	cmd.Flags().IntVar(&to, "to", 0, "last page read")
	cmd.Flags().Float64Var(&percent, "percent", 0, "percentage reached, for books tracked by percentage")
	cmd.Flags().IntVar(&minutes, "minutes", 0, "session length in minutes")
	cmd.Flags().IntVar(&seconds, "seconds", 0, "additional session seconds")
	cmd.Flags().StringVarP(&note, "note", "n", "", "what you thought about it")
	cmd.Flags().StringVarP(&emoji, "emoji", "e", "", "mood emoji")
	return cmd
}

func progressCmd() *cobra.Command {
	var from, to, page int
	var percent float64
	var emoji string

	cmd := &cobra.Command{
		Use:   "progress [book-id]",
		Short: "Record reading progress by page range or percentage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := tracker.ProgressInput{FromPage: from, ToPage: to, Emoji: emoji}
			if cmd.Flags().Changed("page") {
				in.FromPage, in.ToPage = page, page
			}
			if cmd.Flags().Changed("percent") {
				in.Percentage = book.Float(percent)
			}

			return withServices(func(ctx context.Context, s *services) error {
				id, err := resolveBookID(ctx, s, args[0])
				if err != nil {
					return err
				}
				proj, err := s.tracker.LogProgress(ctx, id, in)
				if err != nil {
					return err
				}
				fmt.Printf("Progress saved for %s.\n", proj.Book.Title)
				printProjection(proj)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&from, "from", 0, "first page read (defaults to the next unread page)")
	cmd.Flags().IntVar(&to, "to", 0, "last page read")
	cmd.Flags().IntVar(&page, "page", 0, "a single page read")
	cmd.Flags().Float64Var(&percent, "percent", 0, "percentage reached")
	cmd.Flags().StringVarP(&emoji, "emoji", "e", "", "mood emoji")
	return cmd
}

func noteCmd() *cobra.Command {
	var emoji string

	cmd := &cobra.Command{
		Use:   "note [book-id] [text...]",
		Short: "Add a note to a book's reading log",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args[1:], " ")
			return withServices(func(ctx context.Context, s *services) error {
				id, err := resolveBookID(ctx, s, args[0])
				if err != nil {
					return err
				}
				proj, err := s.tracker.AddNote(ctx, id, text, emoji)
				if err != nil {
					return err
				}
				fmt.Printf("Note added to %s.\n", proj.Book.Title)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&emoji, "emoji", "e", "", "mood emoji")
	return cmd
}

func logsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logs [book-id]",
		Short: "Show a book's reading log, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(func(ctx context.Context, s *services) error {
				id, err := resolveBookID(ctx, s, args[0])
				if err != nil {
					return err
				}
				logs, err := s.tracker.History(ctx, id)
				if err != nil {
					return err
				}
				if len(logs) == 0 {
					fmt.Println("Nothing logged yet.")
					return nil
				}
				printLogTable(logs)
				return nil
			})
		},
	}
}

func unlogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unlog [book-id] [log-id]",
		Short: "Delete one entry from a book's reading log",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(func(ctx context.Context, s *services) error {
				id, err := resolveBookID(ctx, s, args[0])
				if err != nil {
					return err
				}
				logID, err := resolveLogID(ctx, s, id, args[1])
				if err != nil {
					return err
				}
				proj, err := s.tracker.DeleteLog(ctx, logID)
				if err != nil {
					return err
				}
				fmt.Printf("Log entry deleted from %s.\n", proj.Book.Title)
				printProjection(proj)
				return nil
			})
		},
	}
}

func resolveLogID(ctx context.Context, s *services, bookID, arg string) (string, error) {
	logs, err := s.tracker.History(ctx, bookID)
	if err != nil {
		return "", err
	}
	var matches []string
	for _, l := range logs {
		if l.ID == arg {
			return l.ID, nil
		}
		if strings.HasPrefix(l.ID, arg) {
			matches = append(matches, l.ID)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("log %s: %w", arg, book.ErrNotFound)
	case 1:
		return matches[0], nil
	}
	return "", fmt.Errorf("log id %q is ambiguous (%d matches)", arg, len(matches))
}
