// Package progress derives reading coverage and completion from a book's
// log history. Everything here is a pure function of the logs and the book;
// nothing is persisted.
package progress

import (
	"math"
	"sort"

	"github.com/erwar/booknest/internal/book"
)

// PageSet is the set of page numbers recorded as read.
type PageSet map[int]struct{}

func (s PageSet) Has(page int) bool {
	_, ok := s[page]
	return ok
}

// Pages returns the set members in ascending order.
func (s PageSet) Pages() []int {
	pages := make([]int, 0, len(s))
	for p := range s {
		pages = append(pages, p)
	}
	sort.Ints(pages)
	return pages
}

// ReadPages collects every page covered by a log with an end page.
// Notes and percentage-only logs contribute nothing.
func ReadPages(logs []book.ReadingLog) PageSet {
	read := make(PageSet)
	for _, l := range logs {
		from, to, ok := l.PageRange()
		if !ok {
			continue
		}
		for p := from; p <= to; p++ {
			read[p] = struct{}{}
		}
	}
	return read
}

// NextUnreadPage returns the first page in 1..totalPages missing from
// read, or totalPages+1 when every page is covered. With an unknown length
// it returns the first gap in coverage.
func NextUnreadPage(read PageSet, totalPages int) int {
	if totalPages <= 0 {
		p := 1
		for read.Has(p) {
			p++
		}
		return p
	}
	for p := 1; p <= totalPages; p++ {
		if !read.Has(p) {
			return p
		}
	}
	return totalPages + 1
}

// PercentComplete derives the completion percentage from the latest
// progress log. A book with unknown length divides by 1, so the result is
// not clamped to 100.
func PercentComplete(b book.Book, latest *book.ReadingLog) int {
	if latest == nil {
		return 0
	}

	switch b.ProgressMode {
	case book.ModePercentage:
		if latest.Percentage == nil {
			return 0
		}
		return roundHalfUp(*latest.Percentage)
	default:
		if latest.EndPage == nil {
			return 0
		}
		total := b.TotalPages
		if total == 0 {
			total = 1
		}
		return roundHalfUp(float64(*latest.EndPage) / float64(total) * 100)
	}
}

func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}

// LatestProgress picks the newest log carrying progress data from a
// newest-first history, mirroring the store's ordering.
func LatestProgress(logs []book.ReadingLog) *book.ReadingLog {
	for i := range logs {
		if logs[i].HasProgress() {
			return &logs[i]
		}
	}
	return nil
}

// Snapshot is the derived reading state of one book.
type Snapshot struct {
	ReadPages      int              `json:"read_pages"`
	NextUnreadPage int              `json:"next_unread_page"`
	Percent        int              `json:"percent"`
	Latest         *book.ReadingLog `json:"latest,omitempty"`
	SessionSeconds int              `json:"session_seconds"`
	Sessions       int              `json:"sessions"`
	Notes          int              `json:"notes"`
}

// Summarize computes the snapshot for a book from its newest-first logs.
func Summarize(b book.Book, logs []book.ReadingLog) Snapshot {
	read := ReadPages(logs)
	latest := LatestProgress(logs)

	s := Snapshot{
		ReadPages:      len(read),
		NextUnreadPage: NextUnreadPage(read, b.TotalPages),
		Percent:        PercentComplete(b, latest),
		Latest:         latest,
	}
	for _, l := range logs {
		switch l.Type {
		case book.LogNote:
			s.Notes++
		case book.LogSession:
			s.Sessions++
			if l.SessionDuration != nil {
				s.SessionSeconds += *l.SessionDuration
			}
		}
	}
	return s
}
