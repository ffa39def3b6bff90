package schedule

import (
	"errors"
	"testing"
)

func TestConvertToCron(t *testing.T) {
	tests := []struct {
		name string
		hhmm string
		tz   string
		want string
	}{
		{"new york morning", "09:00", "America/New_York", "cron(0 14 * * ? *)"},
		{"london morning", "09:00", "Europe/London", "cron(0 9 * * ? *)"},
		{"tokyo wraps to previous utc day", "07:30", "Asia/Tokyo", "cron(30 22 * * ? *)"},
		{"honolulu wraps forward", "20:00", "Pacific/Honolulu", "cron(0 6 * * ? *)"},
		{"sydney", "06:15", "Australia/Sydney", "cron(15 19 * * ? *)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ConvertToCron(tt.hhmm, tt.tz)
			if err != nil {
				t.Fatalf("ConvertToCron(%q, %q): %v", tt.hhmm, tt.tz, err)
			}
			if got != tt.want {
				t.Errorf("ConvertToCron(%q, %q) = %q, want %q", tt.hhmm, tt.tz, got, tt.want)
			}
		})
	}
}

func TestConvertToCronRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		hhmm string
		tz   string
	}{
		{"missing colon", "0900", "Europe/London"},
		{"hour out of range", "24:00", "Europe/London"},
		{"minute out of range", "09:60", "Europe/London"},
		{"non numeric", "ab:cd", "Europe/London"},
		{"unknown timezone", "09:00", "Mars/Olympus"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ConvertToCron(tt.hhmm, tt.tz)
			if !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("ConvertToCron(%q, %q) err = %v, want ErrInvalidArgument", tt.hhmm, tt.tz, err)
			}
		})
	}
}

func TestTriggerName(t *testing.T) {
	if got := TriggerName("a1b2-c3d4"); got != "user-call-a1b2-c3d4" {
		t.Errorf("TriggerName = %q", got)
	}
	if got := TriggerName("abc def@x"); got != "user-call-abc-def-x" {
		t.Errorf("TriggerName(%q) = %q", "abc def@x", got)
	}
}
