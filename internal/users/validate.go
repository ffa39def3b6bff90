package users

import (
	"fmt"
	"regexp"
)

var (
	// Strict E.164: plus sign, leading non-zero digit, max 15 digits total.
	phoneRe = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)
	// 24-hour HH:MM.
	timeRe = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)
)

// ValidPhoneNumber reports whether s is a strict E.164 number.
func ValidPhoneNumber(s string) bool { return phoneRe.MatchString(s) }

// ValidCallTime reports whether s is a 24-hour HH:MM time.
func ValidCallTime(s string) bool { return timeRe.MatchString(s) }

// ValidateSave checks the user-settable preference fields. Empty fields are
// allowed (partial saves merge with existing values); present fields must be
// well-formed. Errors wrap ErrValidation and carry actionable messages.
func ValidateSave(phoneNumber, callTime string) error {
	if phoneNumber != "" && !ValidPhoneNumber(phoneNumber) {
		return fmt.Errorf("%w: invalid phone number format, use E.164 (e.g. +15551234567)", ErrValidation)
	}
	if callTime != "" && !ValidCallTime(callTime) {
		return fmt.Errorf("%w: invalid time format, use HH:MM (24-hour)", ErrValidation)
	}
	return nil
}
