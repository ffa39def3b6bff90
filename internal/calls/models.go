package calls

import (
	"errors"
	"time"
)

// Record tracks one telephone call attempt end to end.
//
// The primary key is the provider-assigned call identifier (Twilio CallSid,
// Telnyx call_control_id). A record is only ever created by the call-progress
// path; recording and transcription callbacks never create one.
//
// Terminal-state invariant: once Status is terminal, no later event may move
// it back to a non-terminal status. The repository enforces this via
// ApplyIfNotTerminal rather than callers re-checking it.

type Record struct {
	CallID string `json:"call_id" db:"call_id"`
	UserID string `json:"user_id" db:"user_id"`

	Direction Direction `json:"direction" db:"direction"`
	Status    Status    `json:"status" db:"status"`

	FromNumber string `json:"from_number" db:"from_number"`
	ToNumber   string `json:"to_number" db:"to_number"`

	// DurationSeconds is set once, at or after the terminal transition.
	DurationSeconds int `json:"duration,omitempty" db:"duration_seconds"`

	RecordingID  string `json:"recording_id,omitempty" db:"recording_id"`
	RecordingURL string `json:"recording_url,omitempty" db:"recording_url"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

type Status string

const (
	StatusInitiated  Status = "initiated"
	StatusRinging    Status = "ringing"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusBusy       Status = "busy"
	StatusNoAnswer   Status = "no-answer"
)

// IsTerminal reports whether no further legitimate state change is expected.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusBusy, StatusNoAnswer:
		return true
	default:
		return false
	}
}

// Update is a partial mutation applied to an existing record.
// Nil fields are left untouched.
type Update struct {
	Status          *Status
	DurationSeconds *int
	RecordingID     *string
	RecordingURL    *string
}

func (u Update) isEmpty() bool {
	return u.Status == nil && u.DurationSeconds == nil && u.RecordingID == nil && u.RecordingURL == nil
}

var (
	ErrNotFound        = errors.New("calls: record not found")
	ErrAlreadyExists   = errors.New("calls: record already exists")
	ErrInvalidArgument = errors.New("calls: invalid argument")
)
