package progress

import (
	"errors"

	"github.com/erwar/booknest/internal/book"
)

var ErrInvalidRating = errors.New("rating must be between 1 and 5")

type CompletionState string

const (
	StateInProgress     CompletionState = "in_progress"
	StateAwaitingRating CompletionState = "awaiting_rating"
	StateRated          CompletionState = "rated"
)

// Completion is the gate's verdict for one load of a book.
type Completion struct {
	State CompletionState `json:"state"`
	// MarkFinished is set on the fresh transition into AwaitingRating; the
	// caller persists the Finished status.
	MarkFinished bool `json:"mark_finished"`
	// PromptRating asks the caller to show the one-time rating prompt.
	PromptRating bool `json:"prompt_rating"`
}

// EvaluateCompletion derives the rating gate state. A rated book stays
// rated whatever its percentage.
func EvaluateCompletion(percent int, status book.Status, rating int) Completion {
	if rating > 0 {
		return Completion{State: StateRated}
	}
	if percent != 100 {
		return Completion{State: StateInProgress}
	}

	fresh := status != book.StatusFinished
	return Completion{
		State:        StateAwaitingRating,
		MarkFinished: fresh,
		PromptRating: fresh,
	}
}

func ValidateRating(stars int) error {
	if stars < 1 || stars > 5 {
		return ErrInvalidRating
	}
	return nil
}

// RegressedStatus returns the status a Finished book falls back to when
// its progress drops below 100 and regression is allowed. ok is false when
// the status must stay as it is.
func RegressedStatus(percent int, status book.Status, allowRegression bool) (book.Status, bool) {
	if !allowRegression || status != book.StatusFinished || percent >= 100 {
		return status, false
	}
	return book.StatusReading, true
}
