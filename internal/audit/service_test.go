package audit

import (
	"context"
	"testing"
)

func TestService_AppendRequiresType(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.Append(context.Background(), Event{CallID: "cc1"}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestService_AppendsImmutableEvents(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	svc.LogWebhook(context.Background(), "telnyx", "cc1", "u1", "recorded", "hangup applied")

	evs := repo.Events()
	if len(evs) != 1 {
		t.Fatalf("expected 1 event")
	}
	if evs[0].Type != EventTypeWebhook {
		t.Fatalf("expected webhook event")
	}
	if evs[0].ID == "" || evs[0].CreatedAt.IsZero() {
		t.Fatalf("expected id and timestamp assigned")
	}
	if evs[0].Provider != "telnyx" || evs[0].Outcome != "recorded" {
		t.Fatalf("event = %+v", evs[0])
	}
}

func TestService_LogHelpersSwallowFailures(t *testing.T) {
	// No repository configured; helpers must not panic or error out.
	svc := NewService(nil)
	svc.LogDispatch(context.Background(), "u1", "cc1", "dispatched", "")
	svc.LogSchedule(context.Background(), "u1", "reconciled", "")
}
