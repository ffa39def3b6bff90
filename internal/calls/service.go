package calls

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"voicejournal/pkg/logger"
)

// UserLookup resolves an inbound caller's phone number to a user.
type UserLookup interface {
	UserIDByPhone(ctx context.Context, phoneNumber string) (string, error)
}

// ErrUserNotFound is returned by UserLookup when no user owns the number.
var ErrUserNotFound = errors.New("calls: no user for phone number")

// JournalWriter persists a transcribed call as a journal entry.
// CreateEntry must be idempotent per callID: redelivered transcription
// webhooks must not produce duplicate entries.
type JournalWriter interface {
	CreateEntry(ctx context.Context, userID, callID, transcription string, durationSeconds int) (entryID string, err error)
}

// Outcome tells the webhook layer how to answer the call leg.
type Outcome string

const (
	// OutcomeRecorded: the event was reconciled into the call record
	// (created, updated, or safely dropped by the terminal guard).
	OutcomeRecorded Outcome = "recorded"
	// OutcomeUnknownCaller: inbound call from an unregistered number;
	// no record was created.
	OutcomeUnknownCaller Outcome = "unknown_caller"
	// OutcomeSkipped: no record exists and the event may not create one.
	OutcomeSkipped Outcome = "skipped"
)

// Service is the call state machine. It consumes normalized events and
// reconciles them into call records via conditional updates; see the
// Repository contract for the terminal-state guard.
type Service struct {
	repo    Repository
	users   UserLookup
	journal JournalWriter
	clock   func() time.Time
}

func NewService(repo Repository, users UserLookup, journal JournalWriter) *Service {
	return &Service{repo: repo, users: users, journal: journal, clock: time.Now}
}

// candidateStatus derives the next status from a progress event.
// Event-type signals outrank coarse provider states: an explicit
// "call.hangup" is more precise than a lingering "active" state field.
// Anything unrecognized classifies as failed so no call goes invisible.
func candidateStatus(ev ProgressEvent) Status {
	switch ev.EventType {
	case "call.hangup":
		return StatusCompleted
	case "call.initiated":
		return StatusInitiated
	case "call.ringing":
		return StatusRinging
	case "call.answered":
		return StatusInProgress
	}
	switch ev.ProviderState {
	case "initiated", "queued", "parked":
		return StatusInitiated
	case "ringing", "bridging":
		return StatusRinging
	case "in-progress", "active":
		return StatusInProgress
	case "completed", "hangup":
		return StatusCompleted
	case "busy":
		return StatusBusy
	case "no-answer":
		return StatusNoAnswer
	case "canceled", "failed":
		return StatusFailed
	}
	return StatusFailed
}

// HandleProgress reconciles a call-progress event.
//
// A missing record is created only for initiation-class events; resolution
// failures on inbound calls yield OutcomeUnknownCaller with no mutation.
// For existing records the candidate status is applied through the
// terminal guard, with duration written in the same update when the event
// carries both start and end timestamps.
func (s *Service) HandleProgress(ctx context.Context, ev ProgressEvent) (Outcome, error) {
	log := logger.From(ctx)
	if ev.CallID == "" {
		return "", fmt.Errorf("%w: call id required", ErrInvalidArgument)
	}

	cand := candidateStatus(ev)

	_, err := s.repo.Get(ctx, ev.CallID)
	switch {
	case errors.Is(err, ErrNotFound):
		if !ev.IsInitiation() {
			log.Info("no call record for progress event, skipping",
				"call_id", ev.CallID, "event_type", ev.EventType, "state", ev.ProviderState)
			return OutcomeSkipped, nil
		}
		return s.createFromProgress(ctx, ev, cand, log)
	case err != nil:
		return "", err
	}

	u := Update{Status: &cand}
	if dur, ok := durationFrom(ev); ok {
		u.DurationSeconds = &dur
	}
	applied, err := s.repo.ApplyIfNotTerminal(ctx, ev.CallID, u)
	if err != nil {
		return "", err
	}
	if !applied {
		// Terminal guard dropped a late or duplicate event. That is the
		// intended reconciliation, not an error.
		log.Info("terminal guard dropped progress event",
			"call_id", ev.CallID, "candidate", string(cand))
	}
	return OutcomeRecorded, nil
}

func (s *Service) createFromProgress(ctx context.Context, ev ProgressEvent, cand Status, log *slog.Logger) (Outcome, error) {
	var userID string
	switch ev.Direction {
	case DirectionOutbound:
		userID = ev.SideChannelUserID
		if userID == "" {
			log.Warn("outbound progress event without side-channel user", "call_id", ev.CallID)
			return OutcomeSkipped, nil
		}
	default:
		var err error
		userID, err = s.users.UserIDByPhone(ctx, ev.FromNumber)
		if errors.Is(err, ErrUserNotFound) {
			log.Info("inbound call from unregistered number", "from", ev.FromNumber)
			return OutcomeUnknownCaller, nil
		}
		if err != nil {
			return "", err
		}
	}

	direction := ev.Direction
	if direction == "" {
		direction = DirectionInbound
	}
	rec := Record{
		CallID:     ev.CallID,
		UserID:     userID,
		Direction:  direction,
		Status:     cand,
		FromNumber: ev.FromNumber,
		ToNumber:   ev.ToNumber,
		CreatedAt:  s.clock().UTC(),
	}
	err := s.repo.Create(ctx, rec)
	if errors.Is(err, ErrAlreadyExists) {
		// Raced with a concurrent webhook for the same call; the record
		// exists now, so apply the status through the guard instead.
		if _, err := s.repo.ApplyIfNotTerminal(ctx, ev.CallID, Update{Status: &cand}); err != nil && !errors.Is(err, ErrNotFound) {
			return "", err
		}
		return OutcomeRecorded, nil
	}
	if err != nil {
		return "", err
	}
	log.Info("call record created", "call_id", ev.CallID, "user_id", userID, "direction", string(direction), "status", string(cand))
	return OutcomeRecorded, nil
}

// HandleRecording attaches recording metadata to an existing call and
// finalizes it. A recording callback never creates a record: if none
// exists the event is logged and dropped.
func (s *Service) HandleRecording(ctx context.Context, ev RecordingEvent) (Outcome, error) {
	log := logger.From(ctx)
	if ev.CallID == "" {
		return "", fmt.Errorf("%w: call id required", ErrInvalidArgument)
	}

	if _, err := s.repo.Get(ctx, ev.CallID); err != nil {
		if errors.Is(err, ErrNotFound) {
			log.Warn("no call record for recording event, skipping", "call_id", ev.CallID)
			return OutcomeSkipped, nil
		}
		return "", err
	}

	dur := (ev.DurationMillis + 500) / 1000
	completed := StatusCompleted
	u := Update{
		Status:          &completed,
		DurationSeconds: &dur,
		RecordingID:     &ev.RecordingID,
		RecordingURL:    &ev.RecordingURL,
	}
	applied, err := s.repo.ApplyIfNotTerminal(ctx, ev.CallID, u)
	if err != nil {
		return "", err
	}
	if !applied {
		// The hangup callback won the race and the call is already
		// terminal. Recording fields are independently settable, so
		// attach them without touching status.
		if err := s.repo.SetRecording(ctx, ev.CallID, ev.RecordingID, ev.RecordingURL, dur); err != nil {
			return "", err
		}
	}
	log.Info("recording attached", "call_id", ev.CallID, "recording_id", ev.RecordingID, "duration_s", dur)
	return OutcomeRecorded, nil
}

// HandleTranscription turns a completed transcription into exactly one
// journal entry and returns its id. Non-completed or empty transcriptions
// are skipped with an empty id. A missing call record surfaces ErrNotFound
// so the webhook layer can answer with a structured skip.
func (s *Service) HandleTranscription(ctx context.Context, ev TranscriptionEvent) (string, error) {
	log := logger.From(ctx)
	if ev.CallID == "" {
		return "", fmt.Errorf("%w: call id required", ErrInvalidArgument)
	}
	if ev.TranscriptionStatus != "completed" || ev.Text == "" {
		log.Info("skipping transcription", "call_id", ev.CallID, "status", ev.TranscriptionStatus)
		return "", nil
	}

	rec, err := s.repo.Get(ctx, ev.CallID)
	if err != nil {
		return "", err
	}

	entryID, err := s.journal.CreateEntry(ctx, rec.UserID, rec.CallID, ev.Text, rec.DurationSeconds)
	if err != nil {
		return "", fmt.Errorf("create journal entry: %w", err)
	}
	log.Info("journal entry created", "call_id", ev.CallID, "entry_id", entryID)
	return entryID, nil
}

// History returns the user's most recent call records, newest first.
func (s *Service) History(ctx context.Context, userID string, limit int) ([]Record, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id required", ErrInvalidArgument)
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.ListByUser(ctx, userID, limit)
}

func durationFrom(ev ProgressEvent) (int, bool) {
	if ev.ReportedDurationSeconds > 0 {
		return ev.ReportedDurationSeconds, true
	}
	if ev.StartedAt.IsZero() || ev.EndedAt.IsZero() || ev.EndedAt.Before(ev.StartedAt) {
		return 0, false
	}
	d := ev.EndedAt.Sub(ev.StartedAt)
	return int((d + 500*time.Millisecond) / time.Second), true
}
