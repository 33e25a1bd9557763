package attendance

import (
	"context"
	"time"
)

// AttendanceService defines business logic for attendance operations
type AttendanceService interface {
	// CheckIn opens today's session for the employee.
	CheckIn(ctx context.Context, req CheckInRequest) (AttendanceResponse, error)

	// CheckOut closes the employee's current open session.
	CheckOut(ctx context.Context, req CheckOutRequest) (AttendanceResponse, error)

	// GetMyAttendance lists the employee's own records.
	GetMyAttendance(ctx context.Context, employeeID string, filter ListFilter) (ListAttendanceResponse, error)

	// ListAttendance lists records across employees (admin/HR).
	ListAttendance(ctx context.Context, filter ListFilter) (ListAttendanceResponse, error)

	// GetSessionStatus reports whether the employee can check in or out now.
	GetSessionStatus(ctx context.Context, employeeID string) (SessionStatusResponse, error)

	// GetDailySummary aggregates one civil date.
	GetDailySummary(ctx context.Context, req DailySummaryRequest) (DailySummaryResponse, error)

	// ListStaleSessions returns sessions left open longer than olderThan.
	// It never closes them.
	ListStaleSessions(ctx context.Context, olderThan time.Duration) ([]AttendanceResponse, error)
}
