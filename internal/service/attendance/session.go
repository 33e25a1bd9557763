package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/hris-attendance/internal/domain/attendance"
)

// Sessions is the check-in/check-out state machine. The state is checked
// once without the lock so a rejected action captures nothing, then the
// evidence is captured, and finally the employee's lock is taken to
// re-check the state and write. Evidence of an action that is rejected or
// fails to commit is discarded.
type Sessions struct {
	repo attendance.AttendanceRepository
	loc  *time.Location
}

func NewSessions(repo attendance.AttendanceRepository, loc *time.Location) *Sessions {
	if loc == nil {
		loc = time.UTC
	}
	return &Sessions{repo: repo, loc: loc}
}

// CheckIn opens a session dated on the civil date of at. It fails with
// ErrAlreadyCheckedIn while a session for that date is open.
func (s *Sessions) CheckIn(ctx context.Context, employeeID string, at time.Time, capturer attendance.Capturer) (attendance.Record, error) {
	date := attendance.CivilDate(at, s.loc)

	if err := s.ensureNoActiveSession(ctx, employeeID, date); err != nil {
		return attendance.Record{}, err
	}

	result, evidence, err := s.capture(ctx, capturer)
	if err != nil {
		return attendance.Record{}, err
	}

	var created attendance.Record
	err = s.repo.WithEmployeeLock(ctx, employeeID, func(ctx context.Context) error {
		if err := s.ensureNoActiveSession(ctx, employeeID, date); err != nil {
			return err
		}

		record, err := s.repo.Create(ctx, attendance.Record{
			EmployeeID:      employeeID,
			Date:            date,
			CheckInTime:     at.UTC(),
			CheckInEvidence: evidence,
		})
		if err != nil {
			if errors.Is(err, attendance.ErrAlreadyCheckedIn) {
				return err
			}
			return fmt.Errorf("failed to create attendance record: %w", err)
		}

		created = record
		return nil
	})
	if err != nil {
		s.discard(ctx, capturer, result)
		return attendance.Record{}, err
	}

	slog.Info("Employee checked in",
		"employee_id", created.EmployeeID,
		"attendance_id", created.ID,
		"date", created.Date.Format(attendance.DateLayout),
		"address_resolved", created.CheckInEvidence.Location.AddressResolved,
	)
	return created, nil
}

// CheckOut closes the employee's latest open session, whatever its date.
// The record date never changes. The work report, when attached, is
// stored after the evidence and discarded with it.
func (s *Sessions) CheckOut(ctx context.Context, employeeID string, at time.Time, capturer attendance.Capturer, work attendance.WorkLog) (attendance.Record, error) {
	if _, err := s.openSession(ctx, employeeID, at); err != nil {
		return attendance.Record{}, err
	}

	result, evidence, err := s.capture(ctx, capturer)
	if err != nil {
		return attendance.Record{}, err
	}

	var reportRef string
	if work.Report != nil {
		reportRef, err = work.Report.Store(ctx)
		if err != nil {
			s.discard(ctx, capturer, result)
			return attendance.Record{}, fmt.Errorf("failed to store work report: %w", err)
		}
	}

	var closed attendance.Record
	err = s.repo.WithEmployeeLock(ctx, employeeID, func(ctx context.Context) error {
		open, err := s.openSession(ctx, employeeID, at)
		if err != nil {
			return err
		}

		checkOut := at.UTC()
		open.CheckOutTime = &checkOut
		open.CheckOutEvidence = &evidence
		open.WorkSummary = work.Summary
		open.WorkReportRef = reportRef

		record, err := s.repo.Close(ctx, open)
		if err != nil {
			if errors.Is(err, attendance.ErrNoActiveSession) {
				return err
			}
			return fmt.Errorf("failed to close attendance record: %w", err)
		}

		closed = record
		return nil
	})
	if err != nil {
		s.discard(ctx, capturer, result)
		if reportRef != "" {
			if dErr := work.Report.Discard(context.WithoutCancel(ctx), reportRef); dErr != nil {
				slog.Error("Failed to discard unrecorded work report", "report_ref", reportRef, "error", dErr)
			}
		}
		return attendance.Record{}, err
	}

	slog.Info("Employee checked out",
		"employee_id", closed.EmployeeID,
		"attendance_id", closed.ID,
		"date", closed.Date.Format(attendance.DateLayout),
		"work_report", closed.WorkReportRef != "",
	)
	return closed, nil
}

func (s *Sessions) ensureNoActiveSession(ctx context.Context, employeeID string, date time.Time) error {
	active, err := s.repo.GetActiveByEmployeeAndDate(ctx, employeeID, date)
	if err != nil {
		return fmt.Errorf("failed to check open session: %w", err)
	}
	if active != nil {
		return attendance.ErrAlreadyCheckedIn
	}
	return nil
}

// openSession returns the session a check-out at at would close.
func (s *Sessions) openSession(ctx context.Context, employeeID string, at time.Time) (attendance.Record, error) {
	open, err := s.repo.GetOpenSession(ctx, employeeID)
	if err != nil {
		if errors.Is(err, attendance.ErrNoActiveSession) {
			return attendance.Record{}, err
		}
		return attendance.Record{}, fmt.Errorf("failed to get open session: %w", err)
	}
	if at.Before(open.CheckInTime) {
		return attendance.Record{}, attendance.ErrInvalidTimestamp
	}
	return open, nil
}

// capture awaits the evidence and aborts before any write when it is
// unusable or ctx was cancelled meanwhile.
func (s *Sessions) capture(ctx context.Context, capturer attendance.Capturer) (attendance.CaptureResult, attendance.Evidence, error) {
	result, err := capturer.Capture(ctx)
	if err != nil {
		return result, attendance.Evidence{}, fmt.Errorf("failed to capture evidence: %w", err)
	}

	evidence, err := result.Evidence()
	if err != nil {
		s.discard(ctx, capturer, result)
		return result, attendance.Evidence{}, err
	}

	if err := ctx.Err(); err != nil {
		s.discard(ctx, capturer, result)
		return result, attendance.Evidence{}, err
	}

	if result.Kind == attendance.CapturePartial {
		slog.Warn("Reverse geocoding failed, recording coordinates only",
			"address", evidence.Location.Address,
			"error", result.Cause,
		)
	}
	return result, evidence, nil
}

func (s *Sessions) discard(ctx context.Context, capturer attendance.Capturer, result attendance.CaptureResult) {
	d, ok := capturer.(attendance.Discarder)
	if !ok {
		return
	}
	if err := d.Discard(context.WithoutCancel(ctx), result); err != nil {
		slog.Error("Failed to discard unrecorded evidence", "photo_ref", result.PhotoRef, "error", err)
	}
}
