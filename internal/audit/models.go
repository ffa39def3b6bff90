package audit

import "time"

// Event is an immutable, append-only record of a webhook delivery or a
// dispatch decision. The trail answers "what did the provider send us and
// what did we do with it" without replaying logs.
//
// Invariants:
// - Events are never updated or deleted.
// - Appending is best-effort; critical flows never block on audit failures.
//
// Storage recommendation (Postgres):
// - Table audit_events with an INSERT-only policy.
// - Optional: partition by time for retention.

type Event struct {
	ID string `json:"id" db:"id"`

	// Type indicates the category of the record.
	Type EventType `json:"type" db:"type"`

	// Provider is the telephony provider involved, if any.
	Provider string `json:"provider,omitempty" db:"provider"`

	// Target identifiers (optional, depending on the event type).
	CallID string `json:"call_id,omitempty" db:"call_id"`
	UserID string `json:"user_id,omitempty" db:"user_id"`

	// Outcome is the decision taken: "recorded", "skipped",
	// "unknown_caller", "dispatched", "refused", "rejected_signature".
	Outcome string `json:"outcome,omitempty" db:"outcome"`

	// Message is a short human-readable description for internal ops.
	Message string `json:"message,omitempty" db:"message"`

	// Metadata is optional JSON for full details.
	Metadata string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypeWebhook  EventType = "webhook"
	EventTypeDispatch EventType = "dispatch"
	EventTypeSchedule EventType = "schedule"
)
