package calls

import "time"

// Normalized webhook events. Provider adapters translate their own payload
// shapes into these three kinds; the state machine never sees provider names
// beyond the Provider tag used for logging and audit.

// EventKind tags the variant carried by a normalized event.
type EventKind string

const (
	EventKindProgress      EventKind = "progress"
	EventKindRecording     EventKind = "recording"
	EventKindTranscription EventKind = "transcription"
)

// ProgressEvent is a call-progress notification (initiation, ringing,
// answer, hangup and friends).
type ProgressEvent struct {
	Provider string
	CallID   string

	// EventType is the provider's event name (e.g. "call.hangup").
	// Empty for providers that only report coarse states.
	EventType string
	// ProviderState is the provider's coarse call state string.
	ProviderState string

	FromNumber string
	ToNumber   string
	Direction  Direction

	// SideChannelUserID carries the initiating user for outbound calls,
	// decoded from the provider's client-state side channel.
	SideChannelUserID string

	// StartedAt/EndedAt are set on hangup-equivalent events when the
	// provider reports both; used to compute duration.
	StartedAt time.Time
	EndedAt   time.Time

	// ReportedDurationSeconds is set when the provider reports the call
	// duration directly instead of timestamps. Takes precedence over
	// StartedAt/EndedAt. Zero means not reported.
	ReportedDurationSeconds int
}

// IsInitiation reports whether the event may create a call record.
// Answer events count: with some providers the initiation callback and the
// answer callback race, and either may arrive first.
func (e ProgressEvent) IsInitiation() bool {
	switch e.EventType {
	case "call.initiated", "call.answered":
		return true
	}
	switch e.ProviderState {
	case "initiated", "queued", "ringing", "in-progress", "parked", "active":
		return true
	}
	return false
}

// RecordingEvent reports a finished recording for an existing call.
type RecordingEvent struct {
	Provider string
	CallID   string

	RecordingID    string
	RecordingURL   string
	DurationMillis int
}

// TranscriptionEvent reports the transcription result for a recording.
type TranscriptionEvent struct {
	Provider string
	CallID   string

	Text string
	// TranscriptionStatus is the provider-reported status; only "completed"
	// produces a journal entry.
	TranscriptionStatus string
}
