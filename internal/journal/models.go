package journal

import (
	"errors"
	"time"
)

// Entry is one transcribed call, stored append-only: the core creates each
// entry exactly once and never updates or deletes it.
//
// CallID is a back-reference to the call record, not ownership; call records
// may be pruned independently.

type Entry struct {
	EntryID string `json:"entry_id" db:"entry_id"`
	UserID  string `json:"user_id" db:"user_id"`
	CallID  string `json:"call_id" db:"call_id"`

	Transcription   string `json:"transcription" db:"transcription"`
	DurationSeconds int    `json:"duration,omitempty" db:"duration_seconds"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

var (
	ErrNotFound        = errors.New("journal: entry not found")
	ErrInvalidArgument = errors.New("journal: invalid argument")
	ErrInvalidCursor   = errors.New("journal: invalid cursor")
)
