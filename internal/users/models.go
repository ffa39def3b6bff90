package users

import (
	"errors"
	"time"
)

// Preferences is the per-user call configuration record.
//
// ScheduleRef invariant: non-nil iff an active recurring trigger currently
// exists for this user. The schedule reconciler is the only writer of
// ScheduleRef; preference saves never touch it.

type Preferences struct {
	UserID      string `json:"user_id" db:"user_id"`
	PhoneNumber string `json:"phone_number" db:"phone_number"` // E.164

	PreferredCallTime string `json:"preferred_call_time" db:"preferred_call_time"` // HH:MM, 24h
	Timezone          string `json:"timezone" db:"timezone"`                       // IANA name

	IsActive bool `json:"is_active" db:"is_active"`

	// ScheduleRef is the handle of the external recurring trigger, if any.
	ScheduleRef *string `json:"schedule_ref,omitempty" db:"schedule_ref"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

var (
	ErrNotFound   = errors.New("users: preferences not found")
	ErrValidation = errors.New("users: validation failed")
)
