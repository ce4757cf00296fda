package reminder

import (
	"sort"
	"time"

	"github.com/erwar/booknest/internal/book"
)

// DueInstant combines the calendar day of date with the clock time of
// timeOfDay. Both are read as wall-clock values in loc; no conversion
// between zones happens.
func DueInstant(date, timeOfDay time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	y, m, d := date.Date()
	hh, mm, ss := timeOfDay.Clock()
	return time.Date(y, m, d, hh, mm, ss, 0, loc)
}

// Upcoming returns the books due after now and no later than now+within,
// soonest first. A non-positive window means no upper bound.
func Upcoming(books []book.Book, now time.Time, within time.Duration) []book.Book {
	var out []book.Book
	for _, b := range books {
		if !b.HasDueDate() || !b.DueDate.After(now) {
			continue
		}
		if within > 0 && b.DueDate.After(now.Add(within)) {
			continue
		}
		out = append(out, b)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DueDate.Before(out[j].DueDate)
	})
	return out
}
