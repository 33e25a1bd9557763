package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-attendance/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	uniqueViolation       = "23505"
	openSessionConstraint = "uq_attendances_open_session"
)

type attendanceRepository struct {
	db *database.DB
}

func NewAttendanceRepository(db *database.DB) attendance.AttendanceRepository {
	return &attendanceRepository{db: db}
}

const attendanceColumns = `
	id, employee_id, date,
	check_in_time, check_in_latitude, check_in_longitude, check_in_accuracy,
	check_in_address, check_in_address_resolved, check_in_photo,
	check_out_time, check_out_latitude, check_out_longitude, check_out_accuracy,
	check_out_address, check_out_address_resolved, check_out_photo,
	work_summary, work_report,
	created_at, updated_at
`

func scanAttendance(row pgx.Row) (attendance.Record, error) {
	var (
		rec         attendance.Record
		in          attendance.Evidence
		outLat      *float64
		outLon      *float64
		outAcc      *float64
		outAddress  *string
		outResolved *bool
		outPhoto    *string
		summary     *string
		report      *string
	)
	err := row.Scan(
		&rec.ID, &rec.EmployeeID, &rec.Date,
		&rec.CheckInTime, &in.Location.Latitude, &in.Location.Longitude, &in.Location.Accuracy,
		&in.Location.Address, &in.Location.AddressResolved, &in.PhotoRef,
		&rec.CheckOutTime, &outLat, &outLon, &outAcc,
		&outAddress, &outResolved, &outPhoto,
		&summary, &report,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return attendance.Record{}, err
	}

	rec.CheckInEvidence = in
	if summary != nil {
		rec.WorkSummary = *summary
	}
	if report != nil {
		rec.WorkReportRef = *report
	}
	if rec.CheckOutTime != nil && outLat != nil && outLon != nil {
		out := attendance.Evidence{
			Location: attendance.Location{
				Coordinates: attendance.Coordinates{Latitude: *outLat, Longitude: *outLon, Accuracy: outAcc},
			},
		}
		if outAddress != nil {
			out.Location.Address = *outAddress
		}
		if outResolved != nil {
			out.Location.AddressResolved = *outResolved
		}
		if outPhoto != nil {
			out.PhotoRef = *outPhoto
		}
		rec.CheckOutEvidence = &out
	}
	return rec, nil
}

func collectAttendances(rows pgx.Rows) ([]attendance.Record, error) {
	defer rows.Close()

	records := make([]attendance.Record, 0)
	for rows.Next() {
		rec, err := scanAttendance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attendance: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate attendances: %w", err)
	}
	return records, nil
}

// WithEmployeeLock implements attendance.AttendanceRepository. The lock is
// a transaction-scoped advisory lock, released on commit or rollback.
func (a *attendanceRepository) WithEmployeeLock(ctx context.Context, employeeID string, fn func(ctx context.Context) error) error {
	return WithTransaction(ctx, a.db, func(ctx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, employeeID); err != nil {
			return fmt.Errorf("failed to lock employee %s: %w", employeeID, err)
		}
		return fn(ctx)
	})
}

// Create implements attendance.AttendanceRepository.
func (a *attendanceRepository) Create(ctx context.Context, record attendance.Record) (attendance.Record, error) {
	q := GetQuerier(ctx, a.db)

	if record.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return attendance.Record{}, err
		}
		record.ID = id.String()
	}

	in := record.CheckInEvidence
	query := `
		INSERT INTO attendances (
			id, employee_id, date,
			check_in_time, check_in_latitude, check_in_longitude, check_in_accuracy,
			check_in_address, check_in_address_resolved, check_in_photo
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		) RETURNING ` + attendanceColumns

	created, err := scanAttendance(q.QueryRow(ctx, query,
		record.ID,
		record.EmployeeID,
		record.Date,
		record.CheckInTime,
		in.Location.Latitude,
		in.Location.Longitude,
		in.Location.Accuracy,
		in.Location.Address,
		in.Location.AddressResolved,
		in.PhotoRef,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == openSessionConstraint {
			return attendance.Record{}, attendance.ErrAlreadyCheckedIn
		}
		return attendance.Record{}, fmt.Errorf("failed to create attendance: %w", err)
	}

	return created, nil
}

// GetByID implements attendance.AttendanceRepository.
func (a *attendanceRepository) GetByID(ctx context.Context, id string) (attendance.Record, error) {
	q := GetQuerier(ctx, a.db)

	rec, err := scanAttendance(q.QueryRow(ctx, `SELECT `+attendanceColumns+` FROM attendances WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return attendance.Record{}, attendance.ErrAttendanceNotFound
		}
		return attendance.Record{}, fmt.Errorf("failed to get attendance by id: %w", err)
	}
	return rec, nil
}

// GetActiveByEmployeeAndDate implements attendance.AttendanceRepository.
func (a *attendanceRepository) GetActiveByEmployeeAndDate(ctx context.Context, employeeID string, date time.Time) (*attendance.Record, error) {
	q := GetQuerier(ctx, a.db)

	query := `
		SELECT ` + attendanceColumns + `
		FROM attendances
		WHERE employee_id = $1
		  AND date = $2
		  AND check_out_time IS NULL
		LIMIT 1
	`

	rec, err := scanAttendance(q.QueryRow(ctx, query, employeeID, date))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // No open session found
		}
		return nil, fmt.Errorf("failed to get attendance by employee and date: %w", err)
	}
	return &rec, nil
}

// GetOpenSession implements attendance.AttendanceRepository.
func (a *attendanceRepository) GetOpenSession(ctx context.Context, employeeID string) (attendance.Record, error) {
	q := GetQuerier(ctx, a.db)

	query := `
		SELECT ` + attendanceColumns + `
		FROM attendances
		WHERE employee_id = $1
		  AND check_out_time IS NULL
		ORDER BY check_in_time DESC
		LIMIT 1
	`

	rec, err := scanAttendance(q.QueryRow(ctx, query, employeeID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return attendance.Record{}, attendance.ErrNoActiveSession
		}
		return attendance.Record{}, fmt.Errorf("failed to get open session: %w", err)
	}
	return rec, nil
}

// Close implements attendance.AttendanceRepository.
func (a *attendanceRepository) Close(ctx context.Context, record attendance.Record) (attendance.Record, error) {
	q := GetQuerier(ctx, a.db)

	if record.CheckOutTime == nil || record.CheckOutEvidence == nil {
		return attendance.Record{}, fmt.Errorf("close attendance %s: check-out time and evidence are required", record.ID)
	}
	out := record.CheckOutEvidence

	query := `
		UPDATE attendances SET
			check_out_time = $2,
			check_out_latitude = $3,
			check_out_longitude = $4,
			check_out_accuracy = $5,
			check_out_address = $6,
			check_out_address_resolved = $7,
			check_out_photo = $8,
			work_summary = $9,
			work_report = NULLIF($10, ''),
			updated_at = NOW()
		WHERE id = $1
		  AND check_out_time IS NULL
		RETURNING ` + attendanceColumns

	closed, err := scanAttendance(q.QueryRow(ctx, query,
		record.ID,
		*record.CheckOutTime,
		out.Location.Latitude,
		out.Location.Longitude,
		out.Location.Accuracy,
		out.Location.Address,
		out.Location.AddressResolved,
		out.PhotoRef,
		record.WorkSummary,
		record.WorkReportRef,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return attendance.Record{}, attendance.ErrNoActiveSession
		}
		return attendance.Record{}, fmt.Errorf("failed to close attendance: %w", err)
	}
	return closed, nil
}

// List implements attendance.AttendanceRepository.
func (a *attendanceRepository) List(ctx context.Context, query attendance.ListQuery) ([]attendance.Record, error) {
	q := GetQuerier(ctx, a.db)

	// Build WHERE clause
	where := "TRUE"
	args := []interface{}{}
	argIdx := 1

	if query.EmployeeID != nil && *query.EmployeeID != "" {
		where += fmt.Sprintf(" AND employee_id = $%d", argIdx)
		args = append(args, *query.EmployeeID)
		argIdx++
	}
	if query.DateStart != nil {
		where += fmt.Sprintf(" AND date >= $%d", argIdx)
		args = append(args, *query.DateStart)
		argIdx++
	}
	if query.DateEnd != nil {
		where += fmt.Sprintf(" AND date <= $%d", argIdx)
		args = append(args, *query.DateEnd)
	}

	rows, err := q.Query(ctx, `SELECT `+attendanceColumns+` FROM attendances WHERE `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendances: %w", err)
	}
	return collectAttendances(rows)
}

// ListOpenBefore implements attendance.AttendanceRepository.
func (a *attendanceRepository) ListOpenBefore(ctx context.Context, cutoff time.Time) ([]attendance.Record, error) {
	q := GetQuerier(ctx, a.db)

	rows, err := q.Query(ctx, `
		SELECT `+attendanceColumns+`
		FROM attendances
		WHERE check_out_time IS NULL
		  AND check_in_time < $1
		ORDER BY check_in_time
	`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list open sessions: %w", err)
	}
	return collectAttendances(rows)
}
