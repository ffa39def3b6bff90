package schedule

import (
	"context"
	"errors"
	"fmt"

	"voicejournal/internal/users"
	"voicejournal/pkg/logger"
)

// ScheduleRefWriter persists the trigger handle on the user record.
// The reconciler is the only writer of schedule refs in the system.
type ScheduleRefWriter interface {
	SetScheduleRef(ctx context.Context, userID string, ref *string) error
}

// Action selects the reconciliation operation.
type Action string

const (
	ActionCreate Action = "CREATE"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"
)

// Request describes one reconciliation for one user.
type Request struct {
	Action Action `json:"action"`
	UserID string `json:"userId"`

	// Required for CREATE and UPDATE.
	PhoneNumber       string `json:"phoneNumber,omitempty"`
	PreferredCallTime string `json:"preferredCallTime,omitempty"` // HH:MM
	Timezone          string `json:"timezone,omitempty"`          // IANA name
}

// Result reports the reconciled state.
type Result struct {
	Success     bool   `json:"success"`
	ScheduleRef string `json:"scheduleRef,omitempty"`
}

// Reconciler keeps exactly one recurring trigger per user in sync with
// their preferences. Each operation is idempotent: CREATE on a user with an
// existing trigger behaves as UPDATE, UPDATE with no trigger falls back to
// CREATE, DELETE of a missing trigger is a no-op.
//
// Trigger-service errors propagate; the ref is only persisted after the
// trigger write succeeds, so a failed create never leaves a dangling ref.
type Reconciler struct {
	triggers TriggerService
	users    ScheduleRefWriter

	group     string
	targetURL string
}

func NewReconciler(triggers TriggerService, users ScheduleRefWriter, group, targetURL string) *Reconciler {
	return &Reconciler{
		triggers:  triggers,
		users:     users,
		group:     group,
		targetURL: targetURL,
	}
}

func (r *Reconciler) Apply(ctx context.Context, req Request) (Result, error) {
	log := logger.From(ctx)
	if req.UserID == "" {
		return Result{}, fmt.Errorf("%w: userId is required", ErrInvalidArgument)
	}

	switch req.Action {
	case ActionCreate, ActionUpdate:
		ref, err := r.upsert(ctx, req)
		if err != nil {
			return Result{}, err
		}
		if err := r.users.SetScheduleRef(ctx, req.UserID, &ref); err != nil {
			return Result{}, fmt.Errorf("persist schedule ref: %w", err)
		}
		log.Info("schedule reconciled", "user_id", req.UserID, "action", string(req.Action), "ref", ref)
		return Result{Success: true, ScheduleRef: ref}, nil

	case ActionDelete:
		if err := r.delete(ctx, req.UserID); err != nil {
			return Result{}, err
		}
		// A user with no preferences row has no ref to clear; DELETE
		// stays a no-op for missing state end to end.
		if err := r.users.SetScheduleRef(ctx, req.UserID, nil); err != nil && !errors.Is(err, users.ErrNotFound) {
			return Result{}, fmt.Errorf("clear schedule ref: %w", err)
		}
		log.Info("schedule deleted", "user_id", req.UserID)
		return Result{Success: true}, nil

	default:
		return Result{}, fmt.Errorf("%w: unknown action %q", ErrInvalidArgument, req.Action)
	}
}

func (r *Reconciler) upsert(ctx context.Context, req Request) (string, error) {
	if req.PhoneNumber == "" || req.PreferredCallTime == "" || req.Timezone == "" {
		return "", fmt.Errorf("%w: phoneNumber, preferredCallTime and timezone are required", ErrInvalidArgument)
	}

	// Re-derive the expression on every call so timezone and time-of-day
	// edits always take effect.
	expr, err := ConvertToCron(req.PreferredCallTime, req.Timezone)
	if err != nil {
		return "", err
	}

	t := Trigger{
		Name:        TriggerName(req.UserID),
		Group:       r.group,
		Expression:  expr,
		TargetURL:   r.targetURL,
		Payload:     TriggerPayload{UserID: req.UserID, PhoneNumber: req.PhoneNumber},
		Enabled:     true,
		Description: "Daily journal call for user " + req.UserID,
	}

	_, err = r.triggers.Get(ctx, r.group, t.Name)
	switch {
	case errors.Is(err, ErrTriggerNotFound):
		// Missing trigger is not an error state: UPDATE self-heals into CREATE.
		return r.triggers.Create(ctx, t)
	case err != nil:
		return "", err
	}
	return r.triggers.Update(ctx, t)
}

func (r *Reconciler) delete(ctx context.Context, userID string) error {
	err := r.triggers.Delete(ctx, r.group, TriggerName(userID))
	if errors.Is(err, ErrTriggerNotFound) {
		// Already gone; deletion is idempotent.
		return nil
	}
	return err
}
