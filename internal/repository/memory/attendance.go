package memory

import (
	"context"
	"sync"
	"time"

	"github.com/cmlabs-hris/hris-attendance/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance/internal/pkg/keylock"
	"github.com/google/uuid"
)

type attendanceRepository struct {
	locks   *keylock.Map
	mu      sync.RWMutex
	records map[string]attendance.Record
	now     func() time.Time
}

func NewAttendanceRepository() attendance.AttendanceRepository {
	return &attendanceRepository{
		locks:   keylock.New(),
		records: make(map[string]attendance.Record),
		now:     time.Now,
	}
}

// WithEmployeeLock implements attendance.AttendanceRepository.
func (r *attendanceRepository) WithEmployeeLock(ctx context.Context, employeeID string, fn func(ctx context.Context) error) error {
	unlock, err := r.locks.Lock(ctx, employeeID)
	if err != nil {
		return err
	}
	defer unlock()
	return fn(ctx)
}

// Create implements attendance.AttendanceRepository.
func (r *attendanceRepository) Create(ctx context.Context, record attendance.Record) (attendance.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Same guarantee as the partial unique index in PostgreSQL.
	for _, existing := range r.records {
		if existing.EmployeeID == record.EmployeeID && existing.Date.Equal(record.Date) && existing.IsActive() {
			return attendance.Record{}, attendance.ErrAlreadyCheckedIn
		}
	}

	if record.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return attendance.Record{}, err
		}
		record.ID = id.String()
	}
	now := r.now()
	record.CreatedAt = now
	record.UpdatedAt = now

	r.records[record.ID] = record
	return record, nil
}

// GetByID implements attendance.AttendanceRepository.
func (r *attendanceRepository) GetByID(ctx context.Context, id string) (attendance.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok {
		return attendance.Record{}, attendance.ErrAttendanceNotFound
	}
	return rec, nil
}

// GetActiveByEmployeeAndDate implements attendance.AttendanceRepository.
func (r *attendanceRepository) GetActiveByEmployeeAndDate(ctx context.Context, employeeID string, date time.Time) (*attendance.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rec := range r.records {
		if rec.EmployeeID == employeeID && rec.Date.Equal(date) && rec.IsActive() {
			found := rec
			return &found, nil
		}
	}
	return nil, nil
}

// GetOpenSession implements attendance.AttendanceRepository.
func (r *attendanceRepository) GetOpenSession(ctx context.Context, employeeID string) (attendance.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var latest *attendance.Record
	for _, rec := range r.records {
		if rec.EmployeeID != employeeID || !rec.IsActive() {
			continue
		}
		if latest == nil || rec.CheckInTime.After(latest.CheckInTime) {
			found := rec
			latest = &found
		}
	}
	if latest == nil {
		return attendance.Record{}, attendance.ErrNoActiveSession
	}
	return *latest, nil
}

// Close implements attendance.AttendanceRepository.
func (r *attendanceRepository) Close(ctx context.Context, record attendance.Record) (attendance.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.records[record.ID]
	if !ok || !existing.IsActive() {
		return attendance.Record{}, attendance.ErrNoActiveSession
	}

	existing.CheckOutTime = record.CheckOutTime
	existing.CheckOutEvidence = record.CheckOutEvidence
	existing.WorkSummary = record.WorkSummary
	existing.WorkReportRef = record.WorkReportRef
	existing.UpdatedAt = r.now()

	r.records[existing.ID] = existing
	return existing, nil
}

// List implements attendance.AttendanceRepository.
func (r *attendanceRepository) List(ctx context.Context, query attendance.ListQuery) ([]attendance.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]attendance.Record, 0)
	for _, rec := range r.records {
		if query.EmployeeID != nil && rec.EmployeeID != *query.EmployeeID {
			continue
		}
		if query.DateStart != nil && rec.Date.Before(*query.DateStart) {
			continue
		}
		if query.DateEnd != nil && rec.Date.After(*query.DateEnd) {
			continue
		}
		result = append(result, rec)
	}
	return result, nil
}

// ListOpenBefore implements attendance.AttendanceRepository.
func (r *attendanceRepository) ListOpenBefore(ctx context.Context, cutoff time.Time) ([]attendance.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]attendance.Record, 0)
	for _, rec := range r.records {
		if rec.IsActive() && rec.CheckInTime.Before(cutoff) {
			result = append(result, rec)
		}
	}
	return result, nil
}
