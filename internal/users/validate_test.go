package users

import (
	"errors"
	"testing"
)

func TestValidPhoneNumber(t *testing.T) {
	valid := []string{"+15551234567", "+447911123456", "+81312345678"}
	for _, s := range valid {
		if !ValidPhoneNumber(s) {
			t.Fatalf("expected %q valid", s)
		}
	}
	invalid := []string{"", "15551234567", "+0551234567", "+1555123456789012345", "555-1234", "+1 555 123 4567"}
	for _, s := range invalid {
		if ValidPhoneNumber(s) {
			t.Fatalf("expected %q invalid", s)
		}
	}
}

func TestValidCallTime(t *testing.T) {
	valid := []string{"00:00", "09:30", "13:05", "23:59"}
	for _, s := range valid {
		if !ValidCallTime(s) {
			t.Fatalf("expected %q valid", s)
		}
	}
	invalid := []string{"", "24:00", "9:30", "12:60", "12:5", "noon"}
	for _, s := range invalid {
		if ValidCallTime(s) {
			t.Fatalf("expected %q invalid", s)
		}
	}
}

func TestValidateSave(t *testing.T) {
	if err := ValidateSave("+15551234567", "08:00"); err != nil {
		t.Fatalf("expected valid, got %v", err)
	}
	// Empty fields are partial-save friendly.
	if err := ValidateSave("", ""); err != nil {
		t.Fatalf("expected empty fields valid, got %v", err)
	}
	if err := ValidateSave("bogus", "08:00"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if err := ValidateSave("+15551234567", "8am"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}
