package attendance_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmlabs-hris/hris-attendance/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance/internal/domain/employee"
	"github.com/cmlabs-hris/hris-attendance/internal/domain/officehours"
	"github.com/cmlabs-hris/hris-attendance/internal/pkg/validator"
	"github.com/cmlabs-hris/hris-attendance/internal/repository/memory"
	attendancesvc "github.com/cmlabs-hris/hris-attendance/internal/service/attendance"
	officehourssvc "github.com/cmlabs-hris/hris-attendance/internal/service/officehours"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type fixture struct {
	svc      attendance.AttendanceService
	policies officehours.Service
	dir      *memory.EmployeeDirectory
	clock    *fakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	policyRepo := memory.NewPolicyRepository()
	resolver := officehourssvc.NewPolicyResolver(policyRepo)
	dir := memory.NewEmployeeDirectory(
		employee.Employee{ID: "E1", FullName: "Asha Rao", Department: "Ops"},
		employee.Employee{ID: "E2", FullName: "Vikram Nair", Department: "Engineering"},
		employee.Employee{ID: "E3", FullName: "Meera Iyer", Department: "Ops"},
	)
	clock := &fakeClock{now: at(3, 8, 0, 0)}

	return &fixture{
		svc: attendancesvc.NewAttendanceService(
			memory.NewAttendanceRepository(), resolver, dir, nil, ist,
			attendancesvc.WithClock(clock.Now),
		),
		policies: officehourssvc.NewPolicyService(policyRepo, resolver),
		dir:      dir,
		clock:    clock,
	}
}

func (f *fixture) upsert(t *testing.T, dept, start, end string, inGrace, outGrace int) {
	t.Helper()
	_, err := f.policies.Upsert(context.Background(), officehours.UpsertPolicyRequest{
		Department:           dept,
		StartTime:            start,
		EndTime:              end,
		CheckInGraceMinutes:  inGrace,
		CheckOutGraceMinutes: outGrace,
	})
	require.NoError(t, err)
}

func (f *fixture) checkIn(t *testing.T, employeeID string, when time.Time) attendance.AttendanceResponse {
	t.Helper()
	f.clock.Set(when)
	resp, err := f.svc.CheckIn(context.Background(), attendance.CheckInRequest{EmployeeID: employeeID, Evidence: completeCapture("in.jpg")})
	require.NoError(t, err)
	return resp
}

func (f *fixture) checkOut(t *testing.T, employeeID string, when time.Time) attendance.AttendanceResponse {
	t.Helper()
	f.clock.Set(when)
	resp, err := f.svc.CheckOut(context.Background(), attendance.CheckOutRequest{
		EmployeeID:  employeeID,
		WorkSummary: "  Closed the quarter-end reconciliation  ",
		Evidence:    completeCapture("out.jpg"),
	})
	require.NoError(t, err)
	return resp
}

func TestAttendanceService_EndToEnd(t *testing.T) {
	f := newFixture(t)
	f.upsert(t, "", "09:30", "18:30", 15, 10)

	in := f.checkIn(t, "E1", at(3, 9, 44, 0))
	assert.Equal(t, attendance.StatusActive, in.Status)
	assert.Equal(t, attendance.StatusOnTime, in.CheckInStatus)
	assert.Equal(t, attendance.CheckOutPending, in.CheckOutStatus)
	assert.Equal(t, "Ops", in.Department)
	assert.Equal(t, "2025-03-03", in.Date)
	assert.Equal(t, "2025-03-03 09:44:00", in.CheckInTime)
	require.NotNil(t, in.PolicyScope)
	assert.Equal(t, "global", *in.PolicyScope)
	assert.Nil(t, in.WorkDurationMinutes)

	f.clock.Set(at(3, 12, 0, 0))
	_, err := f.svc.CheckIn(context.Background(), attendance.CheckInRequest{EmployeeID: "E1", Evidence: completeCapture("again.jpg")})
	assert.ErrorIs(t, err, attendance.ErrAlreadyCheckedIn)

	out := f.checkOut(t, "E1", at(3, 18, 10, 0))
	assert.Equal(t, attendance.StatusCompletedOnTime, out.Status)
	assert.Equal(t, attendance.CheckOutEarly, out.CheckOutStatus)
	require.NotNil(t, out.WorkDurationMinutes)
	assert.Equal(t, 8*60+26, *out.WorkDurationMinutes)
	require.NotNil(t, out.WorkHours)
	assert.InDelta(t, 8.43, *out.WorkHours, 0.001)
	require.NotNil(t, out.WorkSummary)
	assert.Equal(t, "Closed the quarter-end reconciliation", *out.WorkSummary)
	assert.Nil(t, out.WorkReportURL)
}

func TestAttendanceService_DepartmentOverrideWins(t *testing.T) {
	f := newFixture(t)
	f.upsert(t, "", "09:30", "18:30", 15, 10)
	f.upsert(t, " engineering ", "11:00", "20:00", 0, 0)

	eng := f.checkIn(t, "E2", at(3, 10, 30, 0))
	assert.Equal(t, attendance.StatusOnTime, eng.CheckInStatus)
	require.NotNil(t, eng.ScheduledStart)
	assert.Equal(t, "11:00", *eng.ScheduledStart)

	ops := f.checkIn(t, "E1", at(3, 10, 30, 0))
	assert.Equal(t, attendance.StatusLate, ops.CheckInStatus)
}

func TestAttendanceService_NoPolicyNeverLate(t *testing.T) {
	f := newFixture(t)

	in := f.checkIn(t, "E1", at(3, 23, 30, 0))
	assert.Equal(t, attendance.StatusOnTime, in.CheckInStatus)
	assert.Nil(t, in.PolicyScope)

	out := f.checkOut(t, "E1", at(4, 1, 0, 0))
	assert.Equal(t, attendance.StatusCompletedOnTime, out.Status)
}

func TestAttendanceService_StatusFollowsCurrentPolicy(t *testing.T) {
	f := newFixture(t)
	f.upsert(t, "", "09:30", "18:30", 15, 10)
	f.checkIn(t, "E1", at(3, 9, 50, 0))

	list, err := f.svc.GetMyAttendance(context.Background(), "E1", attendance.ListFilter{})
	require.NoError(t, err)
	require.Len(t, list.Attendances, 1)
	assert.Equal(t, attendance.StatusLate, list.Attendances[0].CheckInStatus)

	f.upsert(t, "", "09:30", "18:30", 30, 10)

	list, err = f.svc.GetMyAttendance(context.Background(), "E1", attendance.ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusOnTime, list.Attendances[0].CheckInStatus)
}

func TestAttendanceService_ListAttendance(t *testing.T) {
	f := newFixture(t)
	f.upsert(t, "", "09:30", "18:30", 15, 10)

	f.checkIn(t, "E1", at(2, 9, 0, 0))
	f.checkOut(t, "E1", at(2, 18, 30, 0))
	f.checkIn(t, "E1", at(3, 9, 0, 0))
	f.checkIn(t, "E2", at(3, 9, 10, 0))
	f.checkIn(t, "E3", at(4, 9, 20, 0))

	ctx := context.Background()

	t.Run("department filter with inclusive dates", func(t *testing.T) {
		list, err := f.svc.ListAttendance(ctx, attendance.ListFilter{
			StartDate:  strPtr("2025-03-02"),
			EndDate:    strPtr("2025-03-03"),
			Department: strPtr("OPS"),
		})
		require.NoError(t, err)
		assert.Equal(t, int64(2), list.TotalCount)
		require.Len(t, list.Attendances, 2)
		// newest first by default
		assert.Equal(t, "2025-03-03", list.Attendances[0].Date)
		assert.Equal(t, "2025-03-02", list.Attendances[1].Date)
	})

	t.Run("pagination", func(t *testing.T) {
		list, err := f.svc.ListAttendance(ctx, attendance.ListFilter{Page: 2, Limit: 3, SortOrder: "asc"})
		require.NoError(t, err)
		assert.Equal(t, int64(4), list.TotalCount)
		assert.Equal(t, 2, list.TotalPages)
		assert.Equal(t, "4-4 of 4", list.Showing)
		require.Len(t, list.Attendances, 1)
		assert.Equal(t, "E3", list.Attendances[0].EmployeeID)
	})

	t.Run("page past the end", func(t *testing.T) {
		list, err := f.svc.ListAttendance(ctx, attendance.ListFilter{Page: 9, Limit: 3})
		require.NoError(t, err)
		assert.Empty(t, list.Attendances)
	})

	t.Run("invalid range", func(t *testing.T) {
		_, err := f.svc.ListAttendance(ctx, attendance.ListFilter{StartDate: strPtr("2025-03-05"), EndDate: strPtr("2025-03-01")})
		var verrs validator.ValidationErrors
		require.ErrorAs(t, err, &verrs)
		assert.Equal(t, "end_date", verrs[0].Field)
	})

	t.Run("my attendance ignores other employees", func(t *testing.T) {
		list, err := f.svc.GetMyAttendance(ctx, "E2", attendance.ListFilter{EmployeeID: strPtr("E1")})
		require.NoError(t, err)
		require.Len(t, list.Attendances, 1)
		assert.Equal(t, "E2", list.Attendances[0].EmployeeID)
	})
}

func TestAttendanceService_GetSessionStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	status, err := f.svc.GetSessionStatus(ctx, "E1")
	require.NoError(t, err)
	assert.True(t, status.CanCheckIn)
	assert.False(t, status.CanCheckOut)
	assert.False(t, status.PolicyConfigured)

	f.upsert(t, "ops", "09:30", "18:30", 15, 10)
	f.checkIn(t, "E1", at(3, 22, 0, 0))

	status, err = f.svc.GetSessionStatus(ctx, "E1")
	require.NoError(t, err)
	assert.True(t, status.PolicyConfigured)
	assert.True(t, status.HasCheckedInToday)
	assert.False(t, status.CanCheckIn)
	assert.True(t, status.CanCheckOut)

	// Next morning the overnight session is still open.
	f.clock.Set(at(4, 5, 0, 0))
	status, err = f.svc.GetSessionStatus(ctx, "E1")
	require.NoError(t, err)
	assert.False(t, status.HasCheckedInToday)
	assert.True(t, status.CanCheckIn)
	assert.True(t, status.CanCheckOut)
	assert.Equal(t, "2025-03-03", status.OpenSessionDate)
}

func TestAttendanceService_GetDailySummary(t *testing.T) {
	f := newFixture(t)
	f.upsert(t, "", "09:30", "18:30", 15, 10)

	f.checkIn(t, "E1", at(3, 9, 50, 0)) // late
	f.checkOut(t, "E1", at(3, 17, 50, 0)) // early, 8h
	f.checkIn(t, "E2", at(3, 9, 30, 0))
	f.checkOut(t, "E2", at(3, 19, 30, 0)) // 10h
	f.checkIn(t, "E1", at(4, 9, 0, 0))    // other day

	summary, err := f.svc.GetDailySummary(context.Background(), attendance.DailySummaryRequest{Date: "2025-03-03"})
	require.NoError(t, err)
	assert.Equal(t, attendance.DailySummaryResponse{
		Date:             "2025-03-03",
		TotalEmployees:   3,
		PresentToday:     2,
		AbsentToday:      1,
		StillActive:      0,
		LateArrivals:     1,
		EarlyDepartures:  1,
		AverageWorkHours: 9,
	}, summary)

	ops, err := f.svc.GetDailySummary(context.Background(), attendance.DailySummaryRequest{Date: "2025-03-03", Department: strPtr("ops")})
	require.NoError(t, err)
	assert.Equal(t, 2, ops.TotalEmployees)
	assert.Equal(t, 1, ops.PresentToday)
	assert.Equal(t, 1, ops.AbsentToday)

	_, err = f.svc.GetDailySummary(context.Background(), attendance.DailySummaryRequest{Date: "03/03/2025"})
	var verrs validator.ValidationErrors
	assert.ErrorAs(t, err, &verrs)
}

// switchableFailingDirectory wraps a directory and fails department lookups once
// failing is set.
type switchableFailingDirectory struct {
	*memory.EmployeeDirectory
	failing atomic.Bool
}

func (d *switchableFailingDirectory) DepartmentOf(ctx context.Context, employeeID string) (string, error) {
	if d.failing.Load() {
		return "", errors.New("directory unavailable")
	}
	return d.EmployeeDirectory.DepartmentOf(ctx, employeeID)
}

func TestAttendanceService_GetDailySummaryDirectoryFailure(t *testing.T) {
	ctx := context.Background()
	policyRepo := memory.NewPolicyRepository()
	resolver := officehourssvc.NewPolicyResolver(policyRepo)
	policies := officehourssvc.NewPolicyService(policyRepo, resolver)
	dir := &switchableFailingDirectory{EmployeeDirectory: memory.NewEmployeeDirectory(
		employee.Employee{ID: "E1", FullName: "Asha Rao", Department: "Ops"},
	)}
	clock := &fakeClock{now: at(3, 9, 40, 0)}
	svc := attendancesvc.NewAttendanceService(memory.NewAttendanceRepository(), resolver, dir, nil, ist, attendancesvc.WithClock(clock.Now))

	_, err := policies.Upsert(ctx, officehours.UpsertPolicyRequest{StartTime: "09:30", EndTime: "18:30", CheckInGraceMinutes: 15})
	require.NoError(t, err)
	_, err = policies.Upsert(ctx, officehours.UpsertPolicyRequest{Department: "Ops", StartTime: "09:00", EndTime: "18:00"})
	require.NoError(t, err)

	_, err = svc.CheckIn(ctx, attendance.CheckInRequest{EmployeeID: "E1", Evidence: completeCapture("in.jpg")})
	require.NoError(t, err)

	summary, err := svc.GetDailySummary(ctx, attendance.DailySummaryRequest{Date: "2025-03-03"})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.LateArrivals)

	dir.failing.Store(true)
	_, err = svc.GetDailySummary(ctx, attendance.DailySummaryRequest{Date: "2025-03-03"})
	assert.ErrorContains(t, err, "directory unavailable")
}

func TestAttendanceService_ListStaleSessions(t *testing.T) {
	f := newFixture(t)
	f.checkIn(t, "E1", at(3, 9, 0, 0))
	f.checkIn(t, "E2", at(3, 20, 0, 0))

	f.clock.Set(at(4, 8, 0, 0))
	stale, err := f.svc.ListStaleSessions(context.Background(), 16*time.Hour)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, "E1", stale[0].EmployeeID)
	assert.Equal(t, attendance.StatusActive, stale[0].Status)
}

func TestAttendanceService_ValidatesRequest(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CheckIn(context.Background(), attendance.CheckInRequest{})
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Len(t, verrs, 2)
}

func TestAttendanceService_CheckOutRequiresWorkSummary(t *testing.T) {
	f := newFixture(t)
	f.checkIn(t, "E1", at(3, 9, 0, 0))
	f.clock.Set(at(3, 18, 0, 0))

	tests := []struct {
		name    string
		summary string
	}{
		{"missing", ""},
		{"blank", "   "},
		{"too long", strings.Repeat("x", attendance.MaxWorkSummaryLength+1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var captured atomic.Bool
			capturer := &trackingCapturer{
				result: attendance.CompleteCapture(attendance.Coordinates{Latitude: 1, Longitude: 1}, "x", "out.jpg"),
				before: func() { captured.Store(true) },
			}
			_, err := f.svc.CheckOut(context.Background(), attendance.CheckOutRequest{
				EmployeeID:  "E1",
				WorkSummary: tt.summary,
				Evidence:    capturer,
			})
			var verrs validator.ValidationErrors
			require.ErrorAs(t, err, &verrs)
			assert.Contains(t, verrs.ToMap(), "work_summary")
			assert.False(t, captured.Load(), "nothing is captured for an invalid request")
		})
	}

	status, err := f.svc.GetSessionStatus(context.Background(), "E1")
	require.NoError(t, err)
	assert.True(t, status.CanCheckOut)
}
