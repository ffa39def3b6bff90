package schedule

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Fixed IANA-timezone offset table, in hours from UTC.
//
// This is a deliberate simplification: daylight-saving transitions are not
// tracked, so fire times drift by the DST delta during transition periods.
// A production-grade replacement would consult real timezone rules, but the
// trigger shape (UTC cron, re-derived on every edit) stays the same either
// way.
var timezoneOffsets = map[string]int{
	"America/New_York":    -5,
	"America/Chicago":     -6,
	"America/Denver":      -7,
	"America/Los_Angeles": -8,
	"America/Anchorage":   -9,
	"Pacific/Honolulu":    -10,
	"Europe/London":       0,
	"Europe/Paris":        1,
	"Asia/Tokyo":          9,
	"Australia/Sydney":    11,
}

// KnownTimezone reports whether tz has an offset table entry.
func KnownTimezone(tz string) bool {
	_, ok := timezoneOffsets[tz]
	return ok
}

// ConvertToCron turns a local HH:MM in tz into a UTC daily cron expression
// of the form "cron(M H * * ? *)".
func ConvertToCron(hhmm, tz string) (string, error) {
	parts := strings.SplitN(hhmm, ":", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("%w: time must be HH:MM, got %q", ErrInvalidArgument, hhmm)
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil || hours < 0 || hours > 23 {
		return "", fmt.Errorf("%w: bad hour in %q", ErrInvalidArgument, hhmm)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil || minutes < 0 || minutes > 59 {
		return "", fmt.Errorf("%w: bad minute in %q", ErrInvalidArgument, hhmm)
	}

	offset, ok := timezoneOffsets[tz]
	if !ok {
		return "", fmt.Errorf("%w: unknown timezone %q", ErrInvalidArgument, tz)
	}

	utcHours := hours - offset
	for utcHours < 0 {
		utcHours += 24
	}
	for utcHours >= 24 {
		utcHours -= 24
	}

	return fmt.Sprintf("cron(%d %d * * ? *)", minutes, utcHours), nil
}

var triggerNameSanitizer = regexp.MustCompile(`[^A-Za-z0-9]`)

// TriggerName derives the recurring trigger's name from a user id.
// Trigger names are restricted to [.-_A-Za-z0-9] at the scheduler service.
func TriggerName(userID string) string {
	return "user-call-" + triggerNameSanitizer.ReplaceAllString(userID, "-")
}
