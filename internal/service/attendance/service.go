package attendance

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/cmlabs-hris/hris-attendance/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance/internal/domain/employee"
	"github.com/cmlabs-hris/hris-attendance/internal/domain/officehours"
	"github.com/cmlabs-hris/hris-attendance/internal/pkg/storage"
)

// photoURLExpiry bounds signed photo links for storages that sign them.
const photoURLExpiry = 15 * time.Minute

type AttendanceServiceImpl struct {
	*Sessions
	repo      attendance.AttendanceRepository
	resolver  officehours.Resolver
	directory employee.Directory
	photos    storage.FileStorage
	loc       *time.Location
	now       func() time.Time
}

type Option func(*AttendanceServiceImpl)

// WithClock replaces time.Now as the source of check-in/out timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *AttendanceServiceImpl) {
		s.now = now
	}
}

func NewAttendanceService(
	repo attendance.AttendanceRepository,
	resolver officehours.Resolver,
	directory employee.Directory,
	photos storage.FileStorage,
	loc *time.Location,
	opts ...Option,
) attendance.AttendanceService {
	if loc == nil {
		loc = time.UTC
	}
	s := &AttendanceServiceImpl{
		Sessions:  NewSessions(repo, loc),
		repo:      repo,
		resolver:  resolver,
		directory: directory,
		photos:    photos,
		loc:       loc,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// timePtrToString safely converts a *time.Time to a string.
func timePtrToString(t *time.Time, loc *time.Location) *string {
	if t == nil {
		return nil
	}
	format := t.In(loc).Format("2006-01-02 15:04:05")
	return &format
}

// CheckIn implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) CheckIn(ctx context.Context, req attendance.CheckInRequest) (attendance.AttendanceResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.AttendanceResponse{}, err
	}

	record, err := a.Sessions.CheckIn(ctx, req.EmployeeID, a.now(), req.Evidence)
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}
	return a.mapOne(ctx, record)
}

// CheckOut implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) CheckOut(ctx context.Context, req attendance.CheckOutRequest) (attendance.AttendanceResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.AttendanceResponse{}, err
	}

	record, err := a.Sessions.CheckOut(ctx, req.EmployeeID, a.now(), req.Evidence, attendance.WorkLog{
		Summary: req.WorkSummary,
		Report:  req.WorkReport,
	})
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}
	return a.mapOne(ctx, record)
}

// GetMyAttendance implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) GetMyAttendance(ctx context.Context, employeeID string, filter attendance.ListFilter) (attendance.ListAttendanceResponse, error) {
	filter.EmployeeID = &employeeID
	filter.Department = nil
	return a.ListAttendance(ctx, filter)
}

// ListAttendance implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) ListAttendance(ctx context.Context, filter attendance.ListFilter) (attendance.ListAttendanceResponse, error) {
	if err := filter.Validate(); err != nil {
		return attendance.ListAttendanceResponse{}, err
	}

	query := queryFromFilter(filter)
	records, err := a.repo.List(ctx, attendance.ListQuery{
		DateStart:  query.DateStart,
		DateEnd:    query.DateEnd,
		EmployeeID: query.EmployeeID,
	})
	if err != nil {
		return attendance.ListAttendanceResponse{}, fmt.Errorf("failed to list attendances: %w", err)
	}

	departments := newDepartmentCache(a.directory)
	records, err = filterWithCache(ctx, records, query, departments)
	if err != nil {
		return attendance.ListAttendanceResponse{}, err
	}

	asc := strings.ToLower(filter.SortOrder) == "asc"
	sort.SliceStable(records, func(i, j int) bool {
		if asc {
			return records[i].CheckInTime.Before(records[j].CheckInTime)
		}
		return records[i].CheckInTime.After(records[j].CheckInTime)
	})

	total := int64(len(records))
	from := min((filter.Page-1)*filter.Limit, len(records))
	to := min(from+filter.Limit, len(records))
	page := records[from:to]

	set, err := a.resolver.Snapshot(ctx)
	if err != nil {
		return attendance.ListAttendanceResponse{}, err
	}

	// Map to response
	responses := make([]attendance.AttendanceResponse, 0, len(page))
	for _, rec := range page {
		resp, err := a.mapAttendanceToResponse(ctx, rec, set, departments)
		if err != nil {
			return attendance.ListAttendanceResponse{}, err
		}
		responses = append(responses, resp)
	}

	totalPages := int(math.Ceil(float64(total) / float64(filter.Limit)))
	showing := fmt.Sprintf("%d-%d of %d", (filter.Page-1)*filter.Limit+1, min((filter.Page)*filter.Limit, int(total)), total)
	if total == 0 {
		showing = "0 of 0"
	}

	return attendance.ListAttendanceResponse{
		TotalCount:  total,
		Page:        filter.Page,
		Limit:       filter.Limit,
		TotalPages:  totalPages,
		Showing:     showing,
		Attendances: responses,
	}, nil
}

// GetSessionStatus implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) GetSessionStatus(ctx context.Context, employeeID string) (attendance.SessionStatusResponse, error) {
	today := attendance.CivilDate(a.now(), a.loc)

	todays, err := a.repo.List(ctx, attendance.ListQuery{DateStart: &today, DateEnd: &today, EmployeeID: &employeeID})
	if err != nil {
		return attendance.SessionStatusResponse{}, fmt.Errorf("failed to list today's attendance: %w", err)
	}

	status := attendance.SessionStatusResponse{
		HasCheckedInToday: len(todays) > 0,
		CanCheckIn:        true,
	}
	for _, rec := range todays {
		if rec.IsActive() {
			status.CanCheckIn = false
		}
	}

	departments := newDepartmentCache(a.directory)
	dept, err := departments.get(ctx, employeeID)
	if err != nil {
		return attendance.SessionStatusResponse{}, err
	}
	set, err := a.resolver.Snapshot(ctx)
	if err != nil {
		return attendance.SessionStatusResponse{}, err
	}
	_, status.PolicyConfigured = set.Resolve(dept)

	open, err := a.repo.GetOpenSession(ctx, employeeID)
	switch {
	case err == nil:
		resp, err := a.mapAttendanceToResponse(ctx, open, set, departments)
		if err != nil {
			return attendance.SessionStatusResponse{}, err
		}
		status.HasOpenSession = true
		status.CanCheckOut = true
		status.OpenSessionID = open.ID
		status.OpenSessionDate = open.Date.Format(attendance.DateLayout)
		status.OpenSession = &resp
	case !errors.Is(err, attendance.ErrNoActiveSession):
		return attendance.SessionStatusResponse{}, fmt.Errorf("failed to get open session: %w", err)
	}

	switch {
	case status.CanCheckOut && !status.CanCheckIn:
		status.Message = "You are checked in. Check out when you finish work."
	case status.CanCheckOut:
		status.Message = "You have an open session from " + status.OpenSessionDate + ". Check out to close it."
	case status.HasCheckedInToday:
		status.Message = "You have completed today's attendance."
	default:
		status.Message = "You have not checked in today."
	}

	return status, nil
}

// GetDailySummary implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) GetDailySummary(ctx context.Context, req attendance.DailySummaryRequest) (attendance.DailySummaryResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.DailySummaryResponse{}, err
	}
	date, _ := time.Parse(attendance.DateLayout, req.Date)

	records, err := a.repo.List(ctx, attendance.ListQuery{DateStart: &date, DateEnd: &date})
	if err != nil {
		return attendance.DailySummaryResponse{}, fmt.Errorf("failed to list attendances: %w", err)
	}

	departments := newDepartmentCache(a.directory)
	records, err = filterWithCache(ctx, records, Query{Department: req.Department}, departments)
	if err != nil {
		return attendance.DailySummaryResponse{}, err
	}

	employees, err := a.directory.ListActive(ctx)
	if err != nil {
		return attendance.DailySummaryResponse{}, fmt.Errorf("failed to list active employees: %w", err)
	}
	total := len(employees)
	if req.Department != nil && officehours.NormalizeDepartment(*req.Department) != "" {
		want := officehours.NormalizeDepartment(*req.Department)
		total = 0
		for _, e := range employees {
			if officehours.NormalizeDepartment(e.Department) == want {
				total++
			}
		}
	}

	set, err := a.resolver.Snapshot(ctx)
	if err != nil {
		return attendance.DailySummaryResponse{}, err
	}
	depts := make(map[string]string, len(records))
	for _, rec := range records {
		dept, err := departments.get(ctx, rec.EmployeeID)
		if err != nil {
			return attendance.DailySummaryResponse{}, err
		}
		depts[rec.EmployeeID] = dept
	}
	policyOf := func(rec attendance.Record) (officehours.Policy, bool) {
		return set.Resolve(depts[rec.EmployeeID])
	}

	return Summarize(date, records, total, policyOf, a.loc), nil
}

// ListStaleSessions implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) ListStaleSessions(ctx context.Context, olderThan time.Duration) ([]attendance.AttendanceResponse, error) {
	records, err := a.repo.ListOpenBefore(ctx, a.now().Add(-olderThan))
	if err != nil {
		return nil, fmt.Errorf("failed to list open sessions: %w", err)
	}

	set, err := a.resolver.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	departments := newDepartmentCache(a.directory)

	responses := make([]attendance.AttendanceResponse, 0, len(records))
	for _, rec := range records {
		resp, err := a.mapAttendanceToResponse(ctx, rec, set, departments)
		if err != nil {
			return nil, err
		}
		responses = append(responses, resp)
	}
	return responses, nil
}

func (a *AttendanceServiceImpl) mapOne(ctx context.Context, record attendance.Record) (attendance.AttendanceResponse, error) {
	set, err := a.resolver.Snapshot(ctx)
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}
	return a.mapAttendanceToResponse(ctx, record, set, newDepartmentCache(a.directory))
}

// mapAttendanceToResponse converts a record to AttendanceResponse, deriving
// its status from the policy that applies to the employee today.
func (a *AttendanceServiceImpl) mapAttendanceToResponse(ctx context.Context, rec attendance.Record, set officehours.PolicySet, departments *departmentCache) (attendance.AttendanceResponse, error) {
	dept, err := departments.get(ctx, rec.EmployeeID)
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}
	policy, ok := set.Resolve(dept)

	resp := attendance.AttendanceResponse{
		ID:              rec.ID,
		EmployeeID:      rec.EmployeeID,
		Department:      dept,
		Date:            rec.Date.Format(attendance.DateLayout),
		CheckInTime:     *timePtrToString(&rec.CheckInTime, a.loc),
		CheckOutTime:    timePtrToString(rec.CheckOutTime, a.loc),
		CheckInEvidence: a.mapEvidence(ctx, rec.CheckInEvidence),
		Status:          Classify(rec, policy, ok, a.loc),
		CheckInStatus:   ClassifyCheckIn(rec, policy, ok, a.loc),
		CheckOutStatus:  ClassifyCheckOut(rec, policy, ok, a.loc),
	}

	if rec.CheckOutEvidence != nil {
		ev := a.mapEvidence(ctx, *rec.CheckOutEvidence)
		resp.CheckOutEvidence = &ev
	}

	if rec.WorkSummary != "" {
		summary := rec.WorkSummary
		resp.WorkSummary = &summary
	}
	if rec.WorkReportRef != "" {
		url := a.fileURL(ctx, rec.WorkReportRef)
		resp.WorkReportURL = &url
	}

	d, done, err := WorkDuration(rec)
	if err != nil {
		return attendance.AttendanceResponse{}, fmt.Errorf("attendance %s: %w", rec.ID, err)
	}
	if done {
		minutes := int(d / time.Minute)
		hours := roundHours(d)
		resp.WorkDurationMinutes = &minutes
		resp.WorkHours = &hours
	}

	if ok {
		start := policy.StartTime.String()
		end := policy.EndTime.String()
		scope := policy.Scope.String()
		resp.ScheduledStart = &start
		resp.ScheduledEnd = &end
		resp.PolicyScope = &scope
	}

	return resp, nil
}

// fileURL links a stored photo or report, falling back to the bare
// reference when the storage cannot produce a URL.
func (a *AttendanceServiceImpl) fileURL(ctx context.Context, ref string) string {
	if a.photos == nil || ref == "" {
		return ref
	}
	if signed, err := a.photos.GetURL(ctx, ref, photoURLExpiry); err == nil {
		return signed
	}
	return ref
}

func (a *AttendanceServiceImpl) mapEvidence(ctx context.Context, ev attendance.Evidence) attendance.EvidenceResponse {
	url := a.fileURL(ctx, ev.PhotoRef)
	return attendance.EvidenceResponse{
		Latitude:        ev.Location.Latitude,
		Longitude:       ev.Location.Longitude,
		Accuracy:        ev.Location.Accuracy,
		Address:         ev.Location.Address,
		AddressResolved: ev.Location.AddressResolved,
		PhotoURL:        url,
	}
}

// queryFromFilter converts a validated ListFilter.
func queryFromFilter(f attendance.ListFilter) Query {
	q := Query{EmployeeID: f.EmployeeID, Department: f.Department}
	if f.StartDate != nil && *f.StartDate != "" {
		d, _ := time.Parse(attendance.DateLayout, *f.StartDate)
		q.DateStart = &d
	}
	if f.EndDate != nil && *f.EndDate != "" {
		d, _ := time.Parse(attendance.DateLayout, *f.EndDate)
		q.DateEnd = &d
	}
	if q.EmployeeID != nil && *q.EmployeeID == "" {
		q.EmployeeID = nil
	}
	return q
}
