package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"

	"github.com/erwar/booknest/internal/book"
	"github.com/erwar/booknest/internal/progress"
	"github.com/erwar/booknest/internal/reminder"
	"github.com/erwar/booknest/internal/tracker"
)

// userMessage turns an error into the line shown to the user. Validation
// errors are specific and correctable; storage failures stay generic.
func userMessage(err error) string {
	var dup *progress.DuplicateRangeError
	switch {
	case errors.As(err, &dup):
		return fmt.Sprintf("Page %d is already logged for this book. Pick a range that skips it.", dup.Page)
	case tracker.IsValidationError(err):
		return "Invalid input: " + unwrapAll(err).Error()
	case errors.Is(err, book.ErrNotFound):
		return "Not found: " + err.Error()
	case book.IsStorageError(err):
		return "Could not read or save your library. Nothing was changed by this command."
	}
	return err.Error()
}

func unwrapAll(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}

func stars(n int) string {
	if n <= 0 {
		return "-"
	}
	return strings.Repeat("★", n) + strings.Repeat("☆", 5-n)
}

func formatDue(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return fmt.Sprintf("%s (%s)", t.Format("Jan 2, 2006 15:04"), humanize.Time(t))
}

func formatSeconds(s int) string {
	return (time.Duration(s) * time.Second).String()
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	return table
}

func printBookTable(books []book.Book, percent func(book.Book) string) {
	table := newTable(os.Stdout, "ID", "Title", "Author", "Status", "Progress", "Rating", "Due")
	for _, b := range books {
		title := b.Title
		if b.Favorite {
			title = "♥ " + title
		}
		due := "-"
		if b.HasDueDate() {
			due = humanize.Time(b.DueDate)
		}
		table.Append([]string{shortID(b.ID), title, b.Author, b.Status.Label(), percent(b), stars(b.Rating), due})
	}
	table.Render()
	fmt.Printf("\nTotal: %d books\n", len(books))
}

func printBookFull(b book.Book) {
	fmt.Printf("ID:          %s\n", b.ID)
	fmt.Printf("Title:       %s\n", b.Title)
	fmt.Printf("Author:      %s\n", b.Author)
	if b.Category != "" {
		fmt.Printf("Category:    %s\n", b.Category)
	}
	fmt.Printf("Status:      %s\n", b.Status.Label())
	if b.TotalPages > 0 {
		fmt.Printf("Pages:       %d\n", b.TotalPages)
	}
	fmt.Printf("Tracking:    by %s\n", b.ProgressMode)
	fmt.Printf("Rating:      %s\n", stars(b.Rating))
	fmt.Printf("Favorite:    %t\n", b.Favorite)
	fmt.Printf("Due:         %s\n", formatDue(b.DueDate))
	if b.Description != "" {
		fmt.Printf("Description: %s\n", b.Description)
	}
	fmt.Printf("Added:       %s\n", b.CreatedAt.Format("Jan 2, 2006"))
}

func printProjection(p *tracker.Projection) {
	s := p.Snapshot
	fmt.Printf("Progress:    %d%%\n", s.Percent)
	if p.Book.ProgressMode == book.ModePages && p.Book.TotalPages > 0 {
		if s.NextUnreadPage > p.Book.TotalPages {
			fmt.Printf("Pages read:  %d of %d, nothing left to read\n", s.ReadPages, p.Book.TotalPages)
		} else {
			fmt.Printf("Pages read:  %d of %d, next unread page %d\n", s.ReadPages, p.Book.TotalPages, s.NextUnreadPage)
		}
	}
	if s.Sessions > 0 {
		fmt.Printf("Sessions:    %d (%s total)\n", s.Sessions, formatSeconds(s.SessionSeconds))
	}
	if s.Notes > 0 {
		fmt.Printf("Notes:       %d\n", s.Notes)
	}
	if p.Completion.PromptRating {
		fmt.Printf("\n🎉 You finished %q! Rate it with: booknest rate %s <1-5>\n", p.Book.Title, shortID(p.Book.ID))
	} else if p.Completion.State == progress.StateAwaitingRating {
		fmt.Printf("\nNot rated yet: booknest rate %s <1-5>\n", shortID(p.Book.ID))
	}
}

func printLogTable(logs []book.ReadingLog) {
	table := newTable(os.Stdout, "ID", "When", "Type", "Pages", "%", "Duration", "Note")
	for _, l := range logs {
		pages, pct, dur := "-", "-", "-"
		if from, to, ok := l.PageRange(); ok {
			pages = fmt.Sprintf("%d-%d", from, to)
		}
		if l.Percentage != nil {
			pct = strconv.FormatFloat(*l.Percentage, 'f', -1, 64)
		}
		if l.SessionDuration != nil {
			dur = formatSeconds(*l.SessionDuration)
		}
		note := strings.TrimSpace(l.Emoji + " " + l.Description)
		table.Append([]string{shortID(l.ID), humanize.Time(l.Timestamp), string(l.Type), pages, pct, dur, note})
	}
	table.Render()
}

func printReport(r reminder.Report) {
	if !r.Cancelled {
		fmt.Println("Warning: pending reminders could not be cleared.")
	}
	fmt.Printf("Reminders scheduled: %d, past due: %d, failed: %d\n", r.Scheduled, r.PastDue, r.Failed)
}

// shortID trims a uuid for display; commands accept the full id or any
// unique prefix.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
