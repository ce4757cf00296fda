package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/spf13/cobra"

	"github.com/erwar/booknest/internal/book"
	"github.com/erwar/booknest/internal/catalog"
	"github.com/erwar/booknest/internal/reminder"
)

func addCmd() *cobra.Command {
	var title, author, category, status, mode, description, cover, isbn, dueDate, dueTime string
	var pages int

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a new book to your collection",
		Long: `Add a new book. With --isbn the title, author, page count and cover are
looked up in OpenLibrary and Google Books; flags given explicitly win.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			b := &book.Book{
				Title:        title,
				Author:       author,
				Category:     category,
				Status:       book.Status(status),
				ProgressMode: book.ProgressMode(mode),
				TotalPages:   pages,
				Description:  description,
				CoverImage:   cover,
			}
			if dueDate != "" {
				due, err := parseDue(dueDate, dueTime)
				if err != nil {
					return err
				}
				b.DueDate = due
			}

			return withServices(func(ctx context.Context, s *services) error {
				if isbn != "" {
					md, err := s.catalog.ISBN(ctx, isbn)
					if err != nil {
						return fmt.Errorf("look up isbn: %w", err)
					}
					fillFromCatalog(b, md)
					fmt.Printf("Found %q by %s (%s)\n", md.Title, md.Author, md.Source)
				}

				if b.Title == "" || b.Author == "" {
					return fmt.Errorf("title and author are required")
				}

				if err := s.tracker.AddBook(ctx, b); err != nil {
					return err
				}
				fmt.Printf("Added: %s by %s (ID: %s)\n", b.Title, b.Author, shortID(b.ID))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "book title (required unless --isbn)")
	cmd.Flags().StringVarP(&author, "author", "a", "", "book author (required unless --isbn)")
	cmd.Flags().StringVarP(&category, "category", "c", "", "category")
	cmd.Flags().StringVarP(&status, "status", "s", string(book.StatusToRead), "status (to_read, reading, finished, gave_up)")
	cmd.Flags().StringVarP(&mode, "mode", "m", string(book.ModePages), "track progress by pages or percentage")
	cmd.Flags().IntVarP(&pages, "pages", "p", 0, "total number of pages (0 if unknown)")
	cmd.Flags().StringVarP(&description, "description", "d", "", "short description")
	cmd.Flags().StringVar(&cover, "cover", "", "cover image path or URL")
	cmd.Flags().StringVar(&isbn, "isbn", "", "fill in details from the ISBN")
	cmd.Flags().StringVar(&dueDate, "due", "", "due date, e.g. 2026-11-01")
	cmd.Flags().StringVar(&dueTime, "at", "09:00", "time of day for the due date reminder")

	return cmd
}

// fillFromCatalog copies catalog fields into b where b has none.
func fillFromCatalog(b *book.Book, md *catalog.Metadata) {
	if b.Title == "" {
		b.Title = md.Title
	}
	if b.Author == "" {
		b.Author = md.Author
	}
	if b.Category == "" {
		b.Category = md.Category
	}
	if b.TotalPages == 0 {
		b.TotalPages = md.TotalPages
	}
	if b.CoverImage == "" {
		b.CoverImage = md.CoverImage
	}
	if b.Description == "" {
		b.Description = md.Description
	}
}

func listCmd() *cobra.Command {
	var status string
	var favorites bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List books in your collection",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(func(ctx context.Context, s *services) error {
				var books []book.Book
				var err error
				if favorites {
					books, err = s.tracker.Favorites(ctx)
				} else {
					books, err = s.tracker.ListBooks(ctx, book.Status(status))
				}
				if err != nil {
					return err
				}

				if len(books) == 0 {
					fmt.Println("No books found.")
					return nil
				}

				printBookTable(books, func(b book.Book) string {
					pct, err := s.tracker.CurrentPercent(ctx, b)
					if err != nil {
						s.logger.Warn("Could not compute progress", "book_id", b.ID, "error", err)
						return "?"
					}
					return strconv.Itoa(pct) + "%"
				})
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&status, "status", "s", "", "filter by status")
	cmd.Flags().BoolVarP(&favorites, "favorites", "f", false, "only favorite books")
	return cmd
}

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [book-id]",
		Short: "Show a book with its derived reading progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(func(ctx context.Context, s *services) error {
				id, err := resolveBookID(ctx, s, args[0])
				if err != nil {
					return err
				}
				proj, err := s.tracker.Load(ctx, id)
				if err != nil {
					return err
				}
				printBookFull(proj.Book)
				printProjection(proj)
				return nil
			})
		},
	}
}

func editCmd() *cobra.Command {
	var title, author, category, status, description string
	var pages int

	cmd := &cobra.Command{
		Use:   "edit [book-id]",
		Short: "Edit a book's details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(func(ctx context.Context, s *services) error {
				id, err := resolveBookID(ctx, s, args[0])
				if err != nil {
					return err
				}
				b, err := s.tracker.GetBook(ctx, id)
				if err != nil {
					return err
				}

				if cmd.Flags().Changed("title") {
					b.Title = title
				}
				if cmd.Flags().Changed("author") {
					b.Author = author
				}
				if cmd.Flags().Changed("category") {
					b.Category = category
				}
				if cmd.Flags().Changed("status") {
					b.Status = book.Status(status)
				}
				if cmd.Flags().Changed("pages") {
					b.TotalPages = pages
				}
				if cmd.Flags().Changed("description") {
					b.Description = description
				}

				if err := s.tracker.UpdateBook(ctx, b); err != nil {
					return err
				}
				fmt.Printf("Updated: %s by %s\n", b.Title, b.Author)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "new title")
	cmd.Flags().StringVarP(&author, "author", "a", "", "new author")
	cmd.Flags().StringVarP(&category, "category", "c", "", "new category")
	cmd.Flags().StringVarP(&status, "status", "s", "", "new status")
	cmd.Flags().IntVarP(&pages, "pages", "p", 0, "new total page count")
	cmd.Flags().StringVarP(&description, "description", "d", "", "new description")
	return cmd
}

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [book-id]",
		Short: "Delete a book and its reading log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(func(ctx context.Context, s *services) error {
				id, err := resolveBookID(ctx, s, args[0])
				if err != nil {
					return err
				}
				b, err := s.tracker.GetBook(ctx, id)
				if err != nil {
					return err
				}
				if err := s.tracker.DeleteBook(ctx, id); err != nil {
					return err
				}
				fmt.Printf("Deleted: %s by %s\n", b.Title, b.Author)
				return nil
			})
		},
	}
}

func favoriteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "favorite [book-id]",
		Short: "Toggle a book as favorite",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(func(ctx context.Context, s *services) error {
				id, err := resolveBookID(ctx, s, args[0])
				if err != nil {
					return err
				}
				fav, err := s.tracker.ToggleFavorite(ctx, id)
				if err != nil {
					return err
				}
				if fav {
					fmt.Println("Added to favorites.")
				} else {
					fmt.Println("Removed from favorites.")
				}
				return nil
			})
		},
	}
}

func rateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rate [book-id] [1-5]",
		Short: "Rate a book from 1 to 5 stars",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rating, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid rating: %s", args[1])
			}
			return withServices(func(ctx context.Context, s *services) error {
				id, err := resolveBookID(ctx, s, args[0])
				if err != nil {
					return err
				}
				proj, err := s.tracker.Rate(ctx, id, rating)
				if err != nil {
					return err
				}
				fmt.Printf("Rated %s: %s\n", proj.Book.Title, stars(proj.Book.Rating))
				return nil
			})
		},
	}
}

// resolveBookID accepts a full id or a unique prefix of one.
func resolveBookID(ctx context.Context, s *services, arg string) (string, error) {
	books, err := s.tracker.ListBooks(ctx, "")
	if err != nil {
		return "", err
	}
	var matches []string
	for _, b := range books {
		if b.ID == arg {
			return b.ID, nil
		}
		if strings.HasPrefix(b.ID, arg) {
			matches = append(matches, b.ID)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("book %s: %w", arg, book.ErrNotFound)
	case 1:
		return matches[0], nil
	}
	return "", fmt.Errorf("book id %q is ambiguous (%d matches)", arg, len(matches))
}

// parseDue combines a calendar date with a separately given time of day,
// both read in local time.
func parseDue(date, clock string) (time.Time, error) {
	day, err := dateparse.ParseIn(date, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid due date %q: %w", date, err)
	}
	tod := day
	if clock != "" {
		tod, err = parseClock(clock)
		if err != nil {
			return time.Time{}, err
		}
	}
	return reminder.DueInstant(day, tod, time.Local), nil
}

func parseClock(clock string) (time.Time, error) {
	for _, layout := range []string{"15:04", "15:04:05", "3:04PM", "3:04pm", "3PM", "3pm"} {
		if t, err := time.ParseInLocation(layout, clock, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time of day %q (use HH:MM)", clock)
}
