package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/hris-attendance/internal/domain/attendance"
)

// AttendanceJobs reports on attendance state. None of its jobs change
// records: a session left open stays open until the employee checks out.
type AttendanceJobs struct {
	attendanceService attendance.AttendanceService
	staleAfter        time.Duration
}

func NewAttendanceJobs(attendanceService attendance.AttendanceService, staleAfter time.Duration) *AttendanceJobs {
	return &AttendanceJobs{
		attendanceService: attendanceService,
		staleAfter:        staleAfter,
	}
}

func (j *AttendanceJobs) RegisterJobs(scheduler *Scheduler) {
	scheduler.AddJob("report_stale_sessions", 1*time.Hour, j.ReportStaleSessions)
}

// ReportStaleSessions logs every session open longer than staleAfter.
func (j *AttendanceJobs) ReportStaleSessions(ctx context.Context) error {
	sessions, err := j.attendanceService.ListStaleSessions(ctx, j.staleAfter)
	if err != nil {
		return fmt.Errorf("failed to list stale sessions: %w", err)
	}

	if len(sessions) == 0 {
		slog.Debug("Cron: No stale sessions found")
		return nil
	}

	for _, s := range sessions {
		slog.Warn("Cron: Session still open",
			"attendance_id", s.ID,
			"employee_id", s.EmployeeID,
			"date", s.Date,
			"check_in_time", s.CheckInTime,
		)
	}
	slog.Info("Cron: Stale session report completed", "count", len(sessions), "older_than", j.staleAfter)

	return nil
}
