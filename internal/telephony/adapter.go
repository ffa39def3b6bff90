package telephony

import (
	"errors"
	"net/http"

	"voicejournal/internal/calls"
)

// WebhookAdapter translates one provider's webhook wire format into the
// normalized events consumed by the call state machine.
//
// Rules:
//   - No provider payload shape leaks past this package.
//   - Verify runs against the raw body before any parsing of it is trusted.
//   - Normalizers are pure: no storage access, no side effects.
type WebhookAdapter interface {
	Name() string

	// Verify authenticates the request using the provider's signature
	// scheme. raw is the request body as received on the wire.
	// Returns ErrBadSignature when the signature is missing or wrong.
	Verify(r *http.Request, raw []byte) error

	NormalizeProgress(r *http.Request, raw []byte) (calls.ProgressEvent, error)
	NormalizeRecording(r *http.Request, raw []byte) (calls.RecordingEvent, error)
	NormalizeTranscription(r *http.Request, raw []byte) (calls.TranscriptionEvent, error)
}

var (
	ErrBadSignature = errors.New("telephony: webhook signature invalid")
	ErrBadPayload   = errors.New("telephony: malformed webhook payload")
)
