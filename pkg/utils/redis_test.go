package utils

import (
	"context"
	"testing"
	"time"
)

func TestDialScriptsCompile(t *testing.T) {
	// Compile-time smoke test: scripts should be initialized.
	if dialAcquireScript == nil || dialReleaseScript == nil {
		t.Fatalf("expected scripts to be initialized")
	}
}

func TestMarkFirstDelivery_RejectsBadArgs(t *testing.T) {
	if _, err := MarkFirstDelivery(context.Background(), nil, "k", time.Minute); err == nil {
		t.Fatalf("expected error for nil client")
	}
}

func TestAcquireDialSlot_RejectsBadArgs(t *testing.T) {
	if _, err := AcquireDialSlot(context.Background(), nil, "k", 1, time.Minute); err == nil {
		t.Fatalf("expected error for nil client")
	}
}

func TestClearDelivery_RejectsBadArgs(t *testing.T) {
	if err := ClearDelivery(context.Background(), nil, "k"); err == nil {
		t.Fatalf("expected error for nil client")
	}
	if err := ClearDelivery(context.Background(), nil, ""); err == nil {
		t.Fatalf("expected error for empty key")
	}
}
