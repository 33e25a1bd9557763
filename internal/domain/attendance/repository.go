package attendance

import (
	"context"
	"time"
)

// ListQuery narrows the records a repository returns. Zero values mean
// unbounded.
type ListQuery struct {
	DateStart  *time.Time
	DateEnd    *time.Time
	EmployeeID *string
}

// AttendanceRepository defines data access methods for attendance records.
type AttendanceRepository interface {
	// WithEmployeeLock runs fn while holding the employee's exclusive
	// lock. Reads and writes through the ctx passed to fn are atomic with
	// respect to other calls for the same employee.
	WithEmployeeLock(ctx context.Context, employeeID string, fn func(ctx context.Context) error) error

	// Create inserts a new open session. It returns ErrAlreadyCheckedIn if
	// an open session already exists for the employee and date.
	Create(ctx context.Context, record Record) (Record, error)

	// GetByID returns ErrAttendanceNotFound when absent.
	GetByID(ctx context.Context, id string) (Record, error)

	// GetActiveByEmployeeAndDate returns nil when no open session exists
	// for the employee on date.
	GetActiveByEmployeeAndDate(ctx context.Context, employeeID string, date time.Time) (*Record, error)

	// GetOpenSession returns the employee's most recent open session on
	// any date, or ErrNoActiveSession.
	GetOpenSession(ctx context.Context, employeeID string) (Record, error)

	// Close stores the check-out of an open session. It returns
	// ErrNoActiveSession if the session was closed meanwhile.
	Close(ctx context.Context, record Record) (Record, error)

	// List returns records matching query in no particular order.
	List(ctx context.Context, query ListQuery) ([]Record, error)

	// ListOpenBefore returns open sessions checked in before cutoff.
	ListOpenBefore(ctx context.Context, cutoff time.Time) ([]Record, error)
}
