package progress

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erwar/booknest/internal/book"
)

func TestValidatePageRange(t *testing.T) {
	logged := []book.ReadingLog{pagesLog(1, 100)}

	tests := []struct {
		name     string
		from, to int
		total    int
		logs     []book.ReadingLog
		dupPage  int
		invalid  bool
	}{
		{name: "first range", from: 1, to: 100, total: 300},
		{name: "continues after logged pages", from: 101, to: 200, total: 300, logs: logged},
		{name: "overlap reports lowest page", from: 50, to: 150, total: 300, logs: logged, dupPage: 50},
		{name: "touching the last logged page", from: 100, to: 120, total: 300, logs: logged, dupPage: 100},
		{name: "past the end", from: 250, to: 301, total: 300, invalid: true},
		{name: "start after end", from: 20, to: 10, total: 300, invalid: true},
		{name: "start below one", from: 0, to: 10, total: 300, invalid: true},
		{name: "negative end", from: 1, to: -1, total: 300, invalid: true},
		{name: "unknown length has no upper bound", from: 1, to: 5000, total: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePageRange(tt.from, tt.to, tt.total, tt.logs)
			switch {
			case tt.dupPage > 0:
				var dup *DuplicateRangeError
				require.ErrorAs(t, err, &dup)
				assert.Equal(t, tt.dupPage, dup.Page)
			case tt.invalid:
				var inv *InvalidRangeError
				assert.ErrorAs(t, err, &inv)
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidatePercentage(t *testing.T) {
	assert.NoError(t, ValidatePercentage(0))
	assert.NoError(t, ValidatePercentage(100))
	assert.NoError(t, ValidatePercentage(42.5))

	var inv *InvalidRangeError
	assert.ErrorAs(t, ValidatePercentage(-0.1), &inv)
	assert.ErrorAs(t, ValidatePercentage(100.5), &inv)
	assert.ErrorAs(t, ValidatePercentage(math.NaN()), &inv)
	assert.ErrorAs(t, ValidatePercentage(math.Inf(1)), &inv)
	assert.ErrorAs(t, ValidatePercentage(math.Inf(-1)), &inv)
}

func TestValidateEntry(t *testing.T) {
	pages := book.Book{ProgressMode: book.ModePages, TotalPages: 300}
	pct := book.Book{ProgressMode: book.ModePercentage}

	tests := []struct {
		name    string
		b       book.Book
		entry   book.ReadingLog
		wantErr bool
	}{
		{name: "note", b: pages, entry: book.ReadingLog{Type: book.LogNote, Description: "hi"}},
		{name: "note with pages", b: pages, entry: book.ReadingLog{Type: book.LogNote, EndPage: book.Int(3)}, wantErr: true},
		{name: "session without progress", b: pages, entry: book.ReadingLog{Type: book.LogSession, SessionDuration: book.Int(600)}},
		{name: "negative duration", b: pages, entry: book.ReadingLog{Type: book.LogSession, SessionDuration: book.Int(-1)}, wantErr: true},
		{name: "duration on progress", b: pages, entry: book.ReadingLog{Type: book.LogProgress, EndPage: book.Int(3), SessionDuration: book.Int(5)}, wantErr: true},
		{name: "progress by pages", b: pages, entry: book.ReadingLog{Type: book.LogProgress, StartPage: book.Int(1), EndPage: book.Int(30)}},
		{name: "start without end", b: pages, entry: book.ReadingLog{Type: book.LogProgress, StartPage: book.Int(1)}, wantErr: true},
		{name: "percentage on a pages book", b: pages, entry: book.ReadingLog{Type: book.LogProgress, Percentage: book.Float(20)}, wantErr: true},
		{name: "pages on a percentage book", b: pct, entry: book.ReadingLog{Type: book.LogProgress, EndPage: book.Int(20)}, wantErr: true},
		{name: "percentage", b: pct, entry: book.ReadingLog{Type: book.LogProgress, Percentage: book.Float(20)}},
		{name: "percentage out of range", b: pct, entry: book.ReadingLog{Type: book.LogProgress, Percentage: book.Float(120)}, wantErr: true},
		{name: "empty progress", b: pct, entry: book.ReadingLog{Type: book.LogProgress}, wantErr: true},
		{name: "unknown type", b: pages, entry: book.ReadingLog{Type: "quote"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEntry(tt.b, tt.entry, nil)
			if tt.wantErr {
				var inv *InvalidRangeError
				assert.ErrorAs(t, err, &inv)
				return
			}
			assert.NoError(t, err)
		})
	}
}

// A 300 page book read in two ranges, then a range overlapping the first.
func TestValidateEntryThreeHundredPages(t *testing.T) {
	b := book.Book{ProgressMode: book.ModePages, TotalPages: 300}
	var logs []book.ReadingLog

	first := pagesLog(1, 100)
	require.NoError(t, ValidateEntry(b, first, logs))
	logs = append([]book.ReadingLog{first}, logs...)
	assert.Equal(t, 33, PercentComplete(b, LatestProgress(logs)))

	second := pagesLog(101, 200)
	require.NoError(t, ValidateEntry(b, second, logs))
	logs = append([]book.ReadingLog{second}, logs...)
	assert.Equal(t, 67, PercentComplete(b, LatestProgress(logs)))
	assert.Equal(t, 201, NextUnreadPage(ReadPages(logs), b.TotalPages))

	err := ValidateEntry(b, pagesLog(50, 150), logs)
	var dup *DuplicateRangeError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, 100, dup.Page)
	assert.EqualError(t, err, "page 100 is already logged")
}
