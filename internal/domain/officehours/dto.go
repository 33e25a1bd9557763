package officehours

import (
	"github.com/cmlabs-hris/hris-attendance/internal/pkg/validator"
)

// ========================================
// OFFICE HOURS DTOs
// ========================================

const MaxGraceMinutes = 180

type UpsertPolicyRequest struct {
	Department           string `json:"department" yaml:"department"` // blank = global
	StartTime            string `json:"start_time" yaml:"start_time"` // HH:MM
	EndTime              string `json:"end_time" yaml:"end_time"`     // HH:MM
	CheckInGraceMinutes  int    `json:"check_in_grace_minutes" yaml:"check_in_grace_minutes"`
	CheckOutGraceMinutes int    `json:"check_out_grace_minutes" yaml:"check_out_grace_minutes"`
}

func (r *UpsertPolicyRequest) Validate() error {
	var errs validator.ValidationErrors

	start, startErr := ParseClockTime(r.StartTime)
	if startErr != nil {
		errs = append(errs, validator.ValidationError{
			Field:   "start_time",
			Message: "start_time must be in HH:MM format",
		})
	}

	end, endErr := ParseClockTime(r.EndTime)
	if endErr != nil {
		errs = append(errs, validator.ValidationError{
			Field:   "end_time",
			Message: "end_time must be in HH:MM format",
		})
	}

	if startErr == nil && endErr == nil && end.SecondOfDay() <= start.SecondOfDay() {
		errs = append(errs, validator.ValidationError{
			Field:   "end_time",
			Message: "end_time must be after start_time",
		})
	}

	if !validator.IsInRange(r.CheckInGraceMinutes, 0, MaxGraceMinutes) {
		errs = append(errs, validator.ValidationError{
			Field:   "check_in_grace_minutes",
			Message: "check_in_grace_minutes must be between 0 and " + validator.Itoa(MaxGraceMinutes),
		})
	}

	if !validator.IsInRange(r.CheckOutGraceMinutes, 0, MaxGraceMinutes) {
		errs = append(errs, validator.ValidationError{
			Field:   "check_out_grace_minutes",
			Message: "check_out_grace_minutes must be between 0 and " + validator.Itoa(MaxGraceMinutes),
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// ToPolicy converts a validated request into a policy.
func (r *UpsertPolicyRequest) ToPolicy() (Policy, error) {
	if err := r.Validate(); err != nil {
		return Policy{}, err
	}
	start, _ := ParseClockTime(r.StartTime)
	end, _ := ParseClockTime(r.EndTime)
	return Policy{
		Scope:                ScopeFor(r.Department),
		StartTime:            start,
		EndTime:              end,
		CheckInGraceMinutes:  r.CheckInGraceMinutes,
		CheckOutGraceMinutes: r.CheckOutGraceMinutes,
	}, nil
}

// PatchPolicyRequest changes only the fields that are set.
type PatchPolicyRequest struct {
	Department           string  `json:"department"`
	StartTime            *string `json:"start_time,omitempty"`
	EndTime              *string `json:"end_time,omitempty"`
	CheckInGraceMinutes  *int    `json:"check_in_grace_minutes,omitempty"`
	CheckOutGraceMinutes *int    `json:"check_out_grace_minutes,omitempty"`
}

// Apply overlays the set fields on existing and returns the full request.
func (r *PatchPolicyRequest) Apply(existing Policy) UpsertPolicyRequest {
	full := UpsertPolicyRequest{
		Department:           r.Department,
		StartTime:            existing.StartTime.String(),
		EndTime:              existing.EndTime.String(),
		CheckInGraceMinutes:  existing.CheckInGraceMinutes,
		CheckOutGraceMinutes: existing.CheckOutGraceMinutes,
	}
	if r.StartTime != nil {
		full.StartTime = *r.StartTime
	}
	if r.EndTime != nil {
		full.EndTime = *r.EndTime
	}
	if r.CheckInGraceMinutes != nil {
		full.CheckInGraceMinutes = *r.CheckInGraceMinutes
	}
	if r.CheckOutGraceMinutes != nil {
		full.CheckOutGraceMinutes = *r.CheckOutGraceMinutes
	}
	return full
}

type PolicyResponse struct {
	ID                   string  `json:"id"`
	Scope                string  `json:"scope"`
	Department           *string `json:"department"`
	StartTime            string  `json:"start_time"`
	EndTime              string  `json:"end_time"`
	CheckInGraceMinutes  int     `json:"check_in_grace_minutes"`
	CheckOutGraceMinutes int     `json:"check_out_grace_minutes"`
	UpdatedAt            string  `json:"updated_at,omitempty"`
}

func NewPolicyResponse(p Policy) PolicyResponse {
	resp := PolicyResponse{
		ID:                   p.ID,
		Scope:                string(p.Scope.Kind),
		StartTime:            p.StartTime.String(),
		EndTime:              p.EndTime.String(),
		CheckInGraceMinutes:  p.CheckInGraceMinutes,
		CheckOutGraceMinutes: p.CheckOutGraceMinutes,
	}
	if !p.Scope.IsGlobal() {
		dept := p.Scope.Department
		resp.Department = &dept
	}
	if !p.UpdatedAt.IsZero() {
		resp.UpdatedAt = p.UpdatedAt.Format("2006-01-02 15:04:05")
	}
	return resp
}
