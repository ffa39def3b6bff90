package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"voicejournal/pkg/logger"
)

// Repository is the persistence contract for audit events.
//
// It MUST be append-only.
// No Update/Delete methods are provided by design.

type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service records the audit trail.
//
// Audit is internal-only and best-effort: the Log helpers swallow append
// failures after logging them, so a broken audit store never fails a
// webhook or a dispatch.

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	return s.repo.Append(ctx, e)
}

// LogWebhook records the outcome of one provider webhook delivery.
func (s *Service) LogWebhook(ctx context.Context, provider, callID, userID, outcome, message string) {
	s.log(ctx, Event{
		Type:     EventTypeWebhook,
		Provider: provider,
		CallID:   callID,
		UserID:   userID,
		Outcome:  outcome,
		Message:  message,
	})
}

// LogDispatch records a schedule-fire dispatch decision.
func (s *Service) LogDispatch(ctx context.Context, userID, callID, outcome, message string) {
	s.log(ctx, Event{
		Type:    EventTypeDispatch,
		CallID:  callID,
		UserID:  userID,
		Outcome: outcome,
		Message: message,
	})
}

// LogSchedule records a schedule reconciliation.
func (s *Service) LogSchedule(ctx context.Context, userID, outcome, message string) {
	s.log(ctx, Event{
		Type:    EventTypeSchedule,
		UserID:  userID,
		Outcome: outcome,
		Message: message,
	})
}

func (s *Service) log(ctx context.Context, e Event) {
	if s == nil {
		return
	}
	if err := s.Append(ctx, e); err != nil {
		logger.From(ctx).Warn("audit append failed",
			"type", string(e.Type), "call_id", e.CallID, "error", err)
	}
}
