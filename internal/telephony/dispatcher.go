package telephony

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"voicejournal/internal/calls"
	"voicejournal/internal/users"
	"voicejournal/pkg/logger"
	"voicejournal/pkg/utils"
)

// PreferenceReader is the slice of the user store the dispatcher needs.
type PreferenceReader interface {
	Get(ctx context.Context, userID string) (users.Preferences, error)
}

// DispatchRequest is the trigger payload delivered when a user's daily
// schedule fires.
type DispatchRequest struct {
	UserID      string `json:"userId"`
	PhoneNumber string `json:"phoneNumber"`
}

// DispatchResult reports what the dispatcher did with a fire.
type DispatchResult struct {
	Dispatched bool   `json:"dispatched"`
	CallID     string `json:"callId,omitempty"`
	// Reason explains a refusal: "user_not_found", "inactive",
	// "no_phone_number", "dial_in_flight".
	Reason string `json:"reason,omitempty"`
}

// Dispatcher turns schedule fires into outbound calls.
//
// The trigger payload is stale by definition (frozen at reconcile time), so
// live preferences are re-read and win on every fire: deactivated users are
// refused and a changed phone number is preferred over the payload's copy.
// A Redis slot caps concurrent dials at one per user, so a double fire
// cannot place two calls.
type Dispatcher struct {
	prefs      PreferenceReader
	client     CallClient
	repo       calls.Repository
	rdb        *redis.Client
	fromNumber string

	slotTTL time.Duration
	clock   func() time.Time
}

func NewDispatcher(prefs PreferenceReader, client CallClient, repo calls.Repository, rdb *redis.Client, fromNumber string) *Dispatcher {
	return &Dispatcher{
		prefs:      prefs,
		client:     client,
		repo:       repo,
		rdb:        rdb,
		fromNumber: fromNumber,
		slotTTL:    2 * time.Minute,
		clock:      time.Now,
	}
}

func dialSlotKey(userID string) string { return "dial:" + userID }

func (d *Dispatcher) Dispatch(ctx context.Context, req DispatchRequest) (DispatchResult, error) {
	log := logger.From(ctx)

	p, err := d.prefs.Get(ctx, req.UserID)
	if errors.Is(err, users.ErrNotFound) {
		log.Warn("schedule fired for missing user", "user_id", req.UserID)
		return DispatchResult{Reason: "user_not_found"}, nil
	}
	if err != nil {
		return DispatchResult{}, err
	}
	if !p.IsActive {
		log.Info("schedule fired for inactive user, refusing dial", "user_id", req.UserID)
		return DispatchResult{Reason: "inactive"}, nil
	}

	to := p.PhoneNumber
	if to == "" {
		to = req.PhoneNumber
	}
	if to == "" {
		return DispatchResult{Reason: "no_phone_number"}, nil
	}

	if d.rdb != nil {
		ok, err := utils.AcquireDialSlot(ctx, d.rdb, dialSlotKey(req.UserID), 1, d.slotTTL)
		if err != nil {
			return DispatchResult{}, err
		}
		if !ok {
			log.Info("dial already in flight, dropping duplicate fire", "user_id", req.UserID)
			return DispatchResult{Reason: "dial_in_flight"}, nil
		}
	}

	callID, err := d.client.Dial(ctx, DialRequest{To: to, From: d.fromNumber, UserID: req.UserID})
	if err != nil {
		if d.rdb != nil {
			_ = utils.ReleaseDialSlot(ctx, d.rdb, dialSlotKey(req.UserID))
		}
		return DispatchResult{}, err
	}

	rec := calls.Record{
		CallID:     callID,
		UserID:     req.UserID,
		Direction:  calls.DirectionOutbound,
		Status:     calls.StatusInitiated,
		FromNumber: d.fromNumber,
		ToNumber:   to,
		CreatedAt:  d.clock().UTC(),
	}
	if err := d.repo.Create(ctx, rec); err != nil && !errors.Is(err, calls.ErrAlreadyExists) {
		// The dial is already in flight; the voice webhook will create the
		// record on initiation if this write is lost.
		log.Error("failed to persist outbound call record", "call_id", callID, "error", err)
	}

	log.Info("outbound call dispatched", "user_id", req.UserID, "call_id", callID)
	return DispatchResult{Dispatched: true, CallID: callID}, nil
}
