package attendance

import "errors"

// Attendance domain errors
var (
	// State machine errors
	ErrAlreadyCheckedIn    = errors.New("you are already checked in")
	ErrNoActiveSession     = errors.New("no active attendance session, check in first")
	ErrInvalidTimestamp    = errors.New("check-out time precedes check-in time")
	ErrEvidenceUnavailable = errors.New("location or photo evidence unavailable")

	// Metrics errors
	ErrNegativeDuration = errors.New("attendance record has check-out before check-in")

	// General errors
	ErrAttendanceNotFound = errors.New("attendance record not found")
)
