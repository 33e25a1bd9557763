package postgresql_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmlabs-hris/hris-attendance/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance/internal/domain/employee"
	"github.com/cmlabs-hris/hris-attendance/internal/repository/postgresql"
	attendancesvc "github.com/cmlabs-hris/hris-attendance/internal/service/attendance"
)

func evidence(photo string) attendance.Evidence {
	acc := 8.5
	return attendance.Evidence{
		Location: attendance.Location{
			Coordinates:     attendance.Coordinates{Latitude: 12.9719, Longitude: 77.5937, Accuracy: &acc},
			Address:         "MG Road, Bengaluru",
			AddressResolved: true,
		},
		PhotoRef: photo,
	}
}

func day(d int) time.Time {
	return time.Date(2025, time.March, d, 0, 0, 0, 0, time.UTC)
}

func TestAttendanceRepository_Lifecycle(t *testing.T) {
	setup := NewTestDatabase(t)
	repo := postgresql.NewAttendanceRepository(setup.DB)
	ctx := context.Background()

	checkIn := time.Date(2025, time.March, 3, 4, 14, 0, 0, time.UTC)
	created, err := repo.Create(ctx, attendance.Record{
		EmployeeID:      "E1",
		Date:            day(3),
		CheckInTime:     checkIn,
		CheckInEvidence: evidence("in.jpg"),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.True(t, created.IsActive())
	assert.Equal(t, day(3), created.Date.UTC())
	require.NotNil(t, created.CheckInEvidence.Location.Accuracy)
	assert.InDelta(t, 8.5, *created.CheckInEvidence.Location.Accuracy, 1e-9)

	_, err = repo.Create(ctx, attendance.Record{
		EmployeeID:      "E1",
		Date:            day(3),
		CheckInTime:     checkIn.Add(time.Hour),
		CheckInEvidence: evidence("again.jpg"),
	})
	assert.ErrorIs(t, err, attendance.ErrAlreadyCheckedIn)

	active, err := repo.GetActiveByEmployeeAndDate(ctx, "E1", day(3))
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, created.ID, active.ID)

	open, err := repo.GetOpenSession(ctx, "E1")
	require.NoError(t, err)

	out := checkIn.Add(8*time.Hour + 26*time.Minute)
	ev := evidence("out.jpg")
	open.CheckOutTime = &out
	open.CheckOutEvidence = &ev
	open.WorkSummary = "Closed the March payroll run"

	closed, err := repo.Close(ctx, open)
	require.NoError(t, err)
	assert.Equal(t, "Closed the March payroll run", closed.WorkSummary)
	assert.Empty(t, closed.WorkReportRef)
	require.NotNil(t, closed.CheckOutEvidence)
	assert.Equal(t, "out.jpg", closed.CheckOutEvidence.PhotoRef)
	assert.True(t, closed.CheckOutTime.Equal(out))

	_, err = repo.Close(ctx, open)
	assert.ErrorIs(t, err, attendance.ErrNoActiveSession)

	_, err = repo.GetOpenSession(ctx, "E1")
	assert.ErrorIs(t, err, attendance.ErrNoActiveSession)

	active, err = repo.GetActiveByEmployeeAndDate(ctx, "E1", day(3))
	require.NoError(t, err)
	assert.Nil(t, active)

	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive())
}

func TestAttendanceRepository_ListBounds(t *testing.T) {
	setup := NewTestDatabase(t)
	repo := postgresql.NewAttendanceRepository(setup.DB)
	ctx := context.Background()

	for _, d := range []int{9, 10, 11} {
		_, err := repo.Create(ctx, attendance.Record{
			EmployeeID:      "E1",
			Date:            day(d),
			CheckInTime:     day(d).Add(4 * time.Hour),
			CheckInEvidence: evidence("in.jpg"),
		})
		require.NoError(t, err)
	}

	end := day(10)
	records, err := repo.List(ctx, attendance.ListQuery{DateEnd: &end})
	require.NoError(t, err)
	assert.Len(t, records, 2)

	start := day(10)
	records, err = repo.List(ctx, attendance.ListQuery{DateStart: &start, DateEnd: &end})
	require.NoError(t, err)
	assert.Len(t, records, 1)

	open, err := repo.ListOpenBefore(ctx, day(11))
	require.NoError(t, err)
	assert.Len(t, open, 2)
}

func TestAttendanceRepository_ConcurrentCheckIns(t *testing.T) {
	setup := NewTestDatabase(t)
	repo := postgresql.NewAttendanceRepository(setup.DB)
	sessions := attendancesvc.NewSessions(repo, time.UTC)
	ctx := context.Background()

	capturer := attendance.CapturerFunc(func(ctx context.Context) (attendance.CaptureResult, error) {
		return attendance.CompleteCapture(attendance.Coordinates{Latitude: 1, Longitude: 1}, "Office", "in.jpg"), nil
	})

	const workers = 10
	var (
		wg        sync.WaitGroup
		successes atomic.Int32
		rejected  atomic.Int32
	)
	at := time.Date(2025, time.March, 3, 9, 0, 0, 0, time.UTC)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := sessions.CheckIn(ctx, "E1", at, capturer)
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, attendance.ErrAlreadyCheckedIn):
				rejected.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), successes.Load())
	assert.Equal(t, int32(workers-1), rejected.Load())
}

func TestEmployeeRepository(t *testing.T) {
	setup := NewTestDatabase(t)
	repo := postgresql.NewEmployeeRepository(setup.DB)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, employee.Employee{ID: "E1", FullName: "Asha Rao", Department: "Ops"}))
	require.NoError(t, repo.Upsert(ctx, employee.Employee{ID: "E2", FullName: "Vikram Nair", Department: "Sales", EmploymentStatus: employee.EmploymentStatusResigned}))

	dept, err := repo.DepartmentOf(ctx, "E1")
	require.NoError(t, err)
	assert.Equal(t, "Ops", dept)

	_, err = repo.DepartmentOf(ctx, "nobody")
	assert.ErrorIs(t, err, employee.ErrEmployeeNotFound)

	active, err := repo.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "E1", active[0].ID)
}
