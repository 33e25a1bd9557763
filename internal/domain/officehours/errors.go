package officehours

import "errors"

var (
	// ErrPolicyNotConfigured is informational: no department override and
	// no global policy exist. It never blocks attendance recording.
	ErrPolicyNotConfigured = errors.New("office hours policy not configured")
	ErrPolicyNotFound      = errors.New("office hours policy not found")
	ErrInvalidClockTime    = errors.New("time must be in HH:MM format")
)
