package book

import "time"

type Book struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	Author       string       `json:"author"`
	Category     string       `json:"category,omitempty"`
	Status       Status       `json:"status"`
	TotalPages   int          `json:"total_pages"`   // 0 when unknown
	ProgressMode ProgressMode `json:"progress_mode"` // fixed at creation
	Rating       int          `json:"rating,omitempty"` // 1-5 stars, 0 = unrated
	Favorite     bool         `json:"favorite"`
	DueDate      time.Time    `json:"due_date,omitempty"`
	CoverImage   string       `json:"cover_image,omitempty"`
	Description  string       `json:"description,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
}

// HasDueDate reports whether a reminder deadline is set.
func (b Book) HasDueDate() bool {
	return !b.DueDate.IsZero()
}

type Status string

const (
	StatusToRead   Status = "to_read"
	StatusReading  Status = "reading"
	StatusFinished Status = "finished"
	StatusGaveUp   Status = "gave_up"
)

func (s Status) String() string {
	return string(s)
}

func (s Status) IsValid() bool {
	switch s {
	case StatusToRead, StatusReading, StatusFinished, StatusGaveUp:
		return true
	}
	return false
}

// Label is the human readable form used in listings.
func (s Status) Label() string {
	switch s {
	case StatusToRead:
		return "To Read"
	case StatusReading:
		return "Reading"
	case StatusFinished:
		return "I've Read It All"
	case StatusGaveUp:
		return "Gave Up"
	}
	return string(s)
}

type ProgressMode string

const (
	ModePages      ProgressMode = "pages"
	ModePercentage ProgressMode = "percentage"
)

func (m ProgressMode) String() string {
	return string(m)
}

func (m ProgressMode) IsValid() bool {
	return m == ModePages || m == ModePercentage
}

type LogType string

const (
	LogNote     LogType = "note"
	LogSession  LogType = "session"
	LogProgress LogType = "progress"
)

func (t LogType) IsValid() bool {
	switch t {
	case LogNote, LogSession, LogProgress:
		return true
	}
	return false
}

// ReadingLog is an append-only activity record for a book. Optional
// fields are nil when the entry does not carry them.
type ReadingLog struct {
	ID              string    `json:"id"`
	BookID          string    `json:"book_id"`
	Type            LogType   `json:"type"`
	StartPage       *int      `json:"start_page,omitempty"`
	EndPage         *int      `json:"end_page,omitempty"`
	Percentage      *float64  `json:"percentage,omitempty"`
	Description     string    `json:"description,omitempty"`
	Emoji           string    `json:"emoji,omitempty"`
	SessionDuration *int      `json:"session_duration,omitempty"` // seconds
	Status          Status    `json:"status"`                     // book status when the log was written
	Timestamp       time.Time `json:"timestamp"`
}

// HasProgress reports whether the log carries a page or percentage snapshot.
func (l ReadingLog) HasProgress() bool {
	return l.EndPage != nil || l.Percentage != nil
}

// PageRange returns the inclusive page range the log covers. A missing
// start page counts from page 1.
func (l ReadingLog) PageRange() (from, to int, ok bool) {
	if l.EndPage == nil {
		return 0, 0, false
	}
	from = 1
	if l.StartPage != nil {
		from = *l.StartPage
	}
	return from, *l.EndPage, true
}

// Int returns a pointer to v, for filling optional log fields.
func Int(v int) *int {
	return &v
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}
