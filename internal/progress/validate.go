package progress

import (
	"fmt"
	"math"

	"github.com/erwar/booknest/internal/book"
)

// DuplicateRangeError is returned when a submitted range touches a page
// that is already logged. Page is the lowest conflicting page.
type DuplicateRangeError struct {
	Page int
}

func (e *DuplicateRangeError) Error() string {
	return fmt.Sprintf("page %d is already logged", e.Page)
}

// InvalidRangeError is returned for out-of-bounds pages or percentages and
// for entries that do not match the book's progress mode.
type InvalidRangeError struct {
	Field  string
	Reason string
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ValidatePageRange checks a proposed [from, to] range against the book
// length and the pages already covered by logs. A totalPages of 0 means
// the length is unknown and only the lower bounds apply.
func ValidatePageRange(from, to, totalPages int, logs []book.ReadingLog) error {
	if to < 0 || (totalPages > 0 && to > totalPages) {
		return &InvalidRangeError{Field: "end page", Reason: fmt.Sprintf("%d is outside 0..%d", to, totalPages)}
	}
	if from < 1 || from > to {
		return &InvalidRangeError{Field: "start page", Reason: fmt.Sprintf("%d is outside 1..%d", from, to)}
	}

	read := ReadPages(logs)
	for p := from; p <= to; p++ {
		if read.Has(p) {
			return &DuplicateRangeError{Page: p}
		}
	}
	return nil
}

// ValidatePercentage checks a percentage snapshot is within 0..100.
func ValidatePercentage(p float64) error {
	if math.IsNaN(p) || p < 0 || p > 100 {
		return &InvalidRangeError{Field: "percentage", Reason: fmt.Sprintf("%g is outside 0..100", p)}
	}
	return nil
}

// ValidateEntry checks a new log against the book's progress mode and its
// existing logs before it is appended.
func ValidateEntry(b book.Book, entry book.ReadingLog, logs []book.ReadingLog) error {
	if !entry.Type.IsValid() {
		return &InvalidRangeError{Field: "type", Reason: fmt.Sprintf("unknown log type %q", entry.Type)}
	}

	hasPages := entry.StartPage != nil || entry.EndPage != nil
	if entry.Type == book.LogNote {
		if hasPages || entry.Percentage != nil || entry.SessionDuration != nil {
			return &InvalidRangeError{Field: "note", Reason: "notes carry no progress data"}
		}
		return nil
	}

	if entry.SessionDuration != nil {
		if entry.Type != book.LogSession {
			return &InvalidRangeError{Field: "session duration", Reason: "only sessions carry a duration"}
		}
		if *entry.SessionDuration < 0 {
			return &InvalidRangeError{Field: "session duration", Reason: "must not be negative"}
		}
	}

	switch b.ProgressMode {
	case book.ModePercentage:
		if hasPages {
			return &InvalidRangeError{Field: "pages", Reason: "book tracks progress by percentage"}
		}
		if entry.Percentage != nil {
			return ValidatePercentage(*entry.Percentage)
		}
	default:
		if entry.Percentage != nil {
			return &InvalidRangeError{Field: "percentage", Reason: "book tracks progress by pages"}
		}
		if entry.StartPage != nil && entry.EndPage == nil {
			return &InvalidRangeError{Field: "end page", Reason: "start page given without end page"}
		}
		if from, to, ok := entry.PageRange(); ok {
			return ValidatePageRange(from, to, b.TotalPages, logs)
		}
	}

	if entry.Type == book.LogProgress {
		return &InvalidRangeError{Field: "progress", Reason: "no pages or percentage given"}
	}
	return nil
}
