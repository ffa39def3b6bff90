package telephony

import (
	"context"
	"errors"
	"testing"

	"voicejournal/internal/calls"
	"voicejournal/internal/users"
)

type fakePrefs struct {
	byID map[string]users.Preferences
}

func (f *fakePrefs) Get(ctx context.Context, userID string) (users.Preferences, error) {
	p, ok := f.byID[userID]
	if !ok {
		return users.Preferences{}, users.ErrNotFound
	}
	return p, nil
}

type fakeDialer struct {
	calls []DialRequest
	err   error
}

func (f *fakeDialer) Dial(ctx context.Context, req DialRequest) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.calls = append(f.calls, req)
	return "cc-dialed-1", nil
}

func newTestDispatcher(prefs map[string]users.Preferences) (*Dispatcher, *fakeDialer, *calls.MemoryRepo) {
	dialer := &fakeDialer{}
	repo := calls.NewMemoryRepo()
	d := NewDispatcher(&fakePrefs{byID: prefs}, dialer, repo, nil, "+15550000000")
	return d, dialer, repo
}

func TestDispatchPlacesCallAndRecordsIt(t *testing.T) {
	d, dialer, repo := newTestDispatcher(map[string]users.Preferences{
		"u1": {UserID: "u1", PhoneNumber: "+15551230001", IsActive: true},
	})

	res, err := d.Dispatch(context.Background(), DispatchRequest{UserID: "u1", PhoneNumber: "+15551230001"})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !res.Dispatched || res.CallID != "cc-dialed-1" {
		t.Fatalf("result = %+v", res)
	}
	if len(dialer.calls) != 1 || dialer.calls[0].UserID != "u1" {
		t.Fatalf("dial requests = %+v", dialer.calls)
	}

	rec, err := repo.Get(context.Background(), "cc-dialed-1")
	if err != nil {
		t.Fatalf("call record not created: %v", err)
	}
	if rec.Direction != calls.DirectionOutbound || rec.Status != calls.StatusInitiated {
		t.Errorf("record = %+v", rec)
	}
}

func TestDispatchRefusesInactiveUser(t *testing.T) {
	d, dialer, _ := newTestDispatcher(map[string]users.Preferences{
		"u1": {UserID: "u1", PhoneNumber: "+15551230001", IsActive: false},
	})

	res, err := d.Dispatch(context.Background(), DispatchRequest{UserID: "u1", PhoneNumber: "+15551230001"})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if res.Dispatched || res.Reason != "inactive" {
		t.Errorf("result = %+v", res)
	}
	if len(dialer.calls) != 0 {
		t.Error("inactive user was dialed")
	}
}

func TestDispatchSkipsMissingUser(t *testing.T) {
	d, dialer, _ := newTestDispatcher(nil)

	res, err := d.Dispatch(context.Background(), DispatchRequest{UserID: "ghost", PhoneNumber: "+15551230001"})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if res.Dispatched || res.Reason != "user_not_found" {
		t.Errorf("result = %+v", res)
	}
	if len(dialer.calls) != 0 {
		t.Error("missing user was dialed")
	}
}

func TestDispatchPrefersLivePhoneNumber(t *testing.T) {
	d, dialer, _ := newTestDispatcher(map[string]users.Preferences{
		"u1": {UserID: "u1", PhoneNumber: "+15557770001", IsActive: true},
	})

	// The payload carries the number frozen at reconcile time; the user has
	// since changed it.
	if _, err := d.Dispatch(context.Background(), DispatchRequest{UserID: "u1", PhoneNumber: "+15551230001"}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if dialer.calls[0].To != "+15557770001" {
		t.Errorf("dialed %q, want the live number", dialer.calls[0].To)
	}
}

func TestDispatchPropagatesDialErrors(t *testing.T) {
	d, dialer, repo := newTestDispatcher(map[string]users.Preferences{
		"u1": {UserID: "u1", PhoneNumber: "+15551230001", IsActive: true},
	})
	dialer.err = errors.New("provider down")

	if _, err := d.Dispatch(context.Background(), DispatchRequest{UserID: "u1"}); err == nil {
		t.Fatal("expected dial error")
	}
	if _, err := repo.Get(context.Background(), "cc-dialed-1"); !errors.Is(err, calls.ErrNotFound) {
		t.Error("record created despite dial failure")
	}
}
