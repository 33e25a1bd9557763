package attendance

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/cmlabs-hris/hris-attendance/internal/pkg/validator"
)

// ========================================
// ATTENDANCE DTOs
// ========================================

type CheckInRequest struct {
	EmployeeID string
	Evidence   Capturer
}

func (r *CheckInRequest) Validate() error {
	return validateAction(r.EmployeeID, r.Evidence)
}

// MaxWorkSummaryLength bounds the check-out work summary, in characters.
const MaxWorkSummaryLength = 2000

type CheckOutRequest struct {
	EmployeeID  string
	WorkSummary string
	WorkReport  Attachment // optional
	Evidence    Capturer
}

// Validate trims WorkSummary in place.
func (r *CheckOutRequest) Validate() error {
	errs := actionErrors(r.EmployeeID, r.Evidence)

	r.WorkSummary = strings.TrimSpace(r.WorkSummary)
	if validator.IsEmpty(r.WorkSummary) {
		errs = append(errs, validator.ValidationError{
			Field:   "work_summary",
			Message: "work_summary is required for check-out",
		})
	} else if utf8.RuneCountInString(r.WorkSummary) > MaxWorkSummaryLength {
		errs = append(errs, validator.ValidationError{
			Field:   "work_summary",
			Message: "work_summary must not exceed " + strconv.Itoa(MaxWorkSummaryLength) + " characters",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

func validateAction(employeeID string, evidence Capturer) error {
	if errs := actionErrors(employeeID, evidence); len(errs) > 0 {
		return errs
	}
	return nil
}

func actionErrors(employeeID string, evidence Capturer) validator.ValidationErrors {
	var errs validator.ValidationErrors

	if validator.IsEmpty(employeeID) {
		errs = append(errs, validator.ValidationError{
			Field:   "employee_id",
			Message: "employee_id is required",
		})
	}

	if evidence == nil {
		errs = append(errs, validator.ValidationError{
			Field:   "evidence",
			Message: "evidence capture is required",
		})
	}

	return errs
}

// LocationPayload is the device-reported part of a check action. A
// device that could not read its sensors sends only CaptureError.
type LocationPayload struct {
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
	Accuracy     *float64 `json:"accuracy,omitempty"`
	Address      *string  `json:"address,omitempty"`
	CaptureError string   `json:"capture_error,omitempty"` // permission_denied, sensor_unavailable, ...
}

func (p *LocationPayload) Validate() error {
	var errs validator.ValidationErrors

	if p.CaptureError != "" {
		return nil
	}

	if p.Latitude == nil {
		errs = append(errs, validator.ValidationError{
			Field:   "latitude",
			Message: "latitude is required",
		})
	} else if !validator.IsValidLatitude(*p.Latitude) {
		errs = append(errs, validator.ValidationError{
			Field:   "latitude",
			Message: "latitude must be between -90 and 90",
		})
	}

	if p.Longitude == nil {
		errs = append(errs, validator.ValidationError{
			Field:   "longitude",
			Message: "longitude is required",
		})
	} else if !validator.IsValidLongitude(*p.Longitude) {
		errs = append(errs, validator.ValidationError{
			Field:   "longitude",
			Message: "longitude must be between -180 and 180",
		})
	}

	if p.Accuracy != nil && *p.Accuracy < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "accuracy",
			Message: "accuracy must not be negative",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// ListFilter drives both the admin list and "my attendance".
type ListFilter struct {
	StartDate  *string `json:"start_date,omitempty"` // YYYY-MM-DD
	EndDate    *string `json:"end_date,omitempty"`   // YYYY-MM-DD
	Department *string `json:"department,omitempty"`
	EmployeeID *string `json:"employee_id,omitempty"`

	// Pagination
	Page  int `json:"page"`
	Limit int `json:"limit"`

	SortOrder string `json:"sort_order"` // asc, desc
}

func (f *ListFilter) Validate() error {
	var errs validator.ValidationErrors

	if f.Page < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "page",
			Message: "page must be a positive number",
		})
	}
	if f.Page == 0 {
		f.Page = 1
	}

	if f.Limit < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "limit",
			Message: "limit must be a positive number",
		})
	}
	if f.Limit == 0 {
		f.Limit = 20
	}
	if f.Limit > 100 {
		errs = append(errs, validator.ValidationError{
			Field:   "limit",
			Message: "limit must not exceed 100",
		})
	}

	start, startOK := parseOptionalDate(f.StartDate)
	if !startOK {
		errs = append(errs, validator.ValidationError{
			Field:   "start_date",
			Message: "start_date must be in YYYY-MM-DD format",
		})
	}

	end, endOK := parseOptionalDate(f.EndDate)
	if !endOK {
		errs = append(errs, validator.ValidationError{
			Field:   "end_date",
			Message: "end_date must be in YYYY-MM-DD format",
		})
	}

	if startOK && endOK && start != "" && end != "" && end < start {
		errs = append(errs, validator.ValidationError{
			Field:   "end_date",
			Message: "end_date must not be before start_date",
		})
	}

	if f.SortOrder != "" {
		if !validator.IsInSlice(strings.ToLower(f.SortOrder), []string{"asc", "desc"}) {
			errs = append(errs, validator.ValidationError{
				Field:   "sort_order",
				Message: "sort_order must be one of: asc, desc",
			})
		}
	} else {
		f.SortOrder = "desc" // newest first
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// parseOptionalDate returns the normalized date string ("" when unset)
// and whether it is well formed.
func parseOptionalDate(s *string) (string, bool) {
	if s == nil || *s == "" {
		return "", true
	}
	d, ok := validator.IsValidDate(*s)
	if !ok {
		return "", false
	}
	return d.Format(DateLayout), true
}

type EvidenceResponse struct {
	Latitude        float64  `json:"latitude"`
	Longitude       float64  `json:"longitude"`
	Accuracy        *float64 `json:"accuracy,omitempty"`
	Address         string   `json:"address"`
	AddressResolved bool     `json:"address_resolved"`
	PhotoURL        string   `json:"photo_url"`
}

type AttendanceResponse struct {
	ID                  string            `json:"id"`
	EmployeeID          string            `json:"employee_id"`
	Department          string            `json:"department,omitempty"`
	Date                string            `json:"date"`
	CheckInTime         string            `json:"check_in_time"`
	CheckOutTime        *string           `json:"check_out_time,omitempty"`
	CheckInEvidence     EvidenceResponse  `json:"check_in_evidence"`
	CheckOutEvidence    *EvidenceResponse `json:"check_out_evidence,omitempty"`
	Status              Status            `json:"status"`
	CheckInStatus       Status            `json:"check_in_status"`
	CheckOutStatus      CheckOutStatus    `json:"check_out_status"`
	WorkDurationMinutes *int              `json:"work_duration_minutes,omitempty"`
	WorkHours           *float64          `json:"working_hours,omitempty"`
	WorkSummary         *string           `json:"work_summary,omitempty"`
	WorkReportURL       *string           `json:"work_report_url,omitempty"`
	ScheduledStart      *string           `json:"scheduled_start,omitempty"`
	ScheduledEnd        *string           `json:"scheduled_end,omitempty"`
	PolicyScope         *string           `json:"policy_scope,omitempty"`
}

type ListAttendanceResponse struct {
	TotalCount  int64                `json:"total_count"`
	Page        int                  `json:"page"`
	Limit       int                  `json:"limit"`
	TotalPages  int                  `json:"total_pages"`
	Showing     string               `json:"showing"`
	Attendances []AttendanceResponse `json:"attendances"`
}

// ========================================
// ATTENDANCE STATUS DTOs
// ========================================

type SessionStatusResponse struct {
	HasCheckedInToday bool                `json:"has_checked_in_today"`
	HasOpenSession    bool                `json:"has_open_session"`
	OpenSessionID     string              `json:"open_session_id,omitempty"`
	OpenSessionDate   string              `json:"open_session_date,omitempty"`
	OpenSession       *AttendanceResponse `json:"open_session,omitempty"`
	CanCheckIn        bool                `json:"can_check_in"`
	CanCheckOut       bool                `json:"can_check_out"`
	PolicyConfigured  bool                `json:"policy_configured"`
	Message           string              `json:"message"`
}

type DailySummaryRequest struct {
	Date       string  `json:"date"` // YYYY-MM-DD
	Department *string `json:"department,omitempty"`
}

func (r *DailySummaryRequest) Validate() error {
	var errs validator.ValidationErrors

	if _, ok := validator.IsValidDate(r.Date); !ok {
		errs = append(errs, validator.ValidationError{
			Field:   "date",
			Message: "date must be in YYYY-MM-DD format",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type DailySummaryResponse struct {
	Date             string  `json:"date"`
	TotalEmployees   int     `json:"total_employees"`
	PresentToday     int     `json:"present_today"`
	AbsentToday      int     `json:"absent_today"`
	StillActive      int     `json:"still_active"`
	LateArrivals     int     `json:"late_arrivals"`
	EarlyDepartures  int     `json:"early_departures"`
	AverageWorkHours float64 `json:"average_work_hours"`
}
