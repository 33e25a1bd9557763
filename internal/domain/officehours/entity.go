package officehours

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
)

type ScopeKind string

const (
	ScopeGlobal     ScopeKind = "global"
	ScopeDepartment ScopeKind = "department"
)

// Scope identifies what a policy applies to. Two scopes are the same
// policy slot when their Key values are equal.
type Scope struct {
	Kind       ScopeKind
	Department string // display name, trimmed; empty for global
}

func GlobalScope() Scope {
	return Scope{Kind: ScopeGlobal}
}

func DepartmentScope(name string) Scope {
	return Scope{Kind: ScopeDepartment, Department: strings.TrimSpace(name)}
}

// ScopeFor maps an admin-supplied department value to a scope. A blank
// department addresses the global policy.
func ScopeFor(department string) Scope {
	if NormalizeDepartment(department) == "" {
		return GlobalScope()
	}
	return DepartmentScope(department)
}

func (s Scope) IsGlobal() bool {
	return s.Kind == ScopeGlobal
}

// Key is the storage key of the scope: empty for global, the normalized
// department name otherwise.
func (s Scope) Key() string {
	if s.IsGlobal() {
		return ""
	}
	return NormalizeDepartment(s.Department)
}

func (s Scope) String() string {
	if s.IsGlobal() {
		return "global"
	}
	return "department:" + s.Department
}

// NormalizeDepartment trims and case-folds a department name. Every
// department comparison in the system goes through this function.
func NormalizeDepartment(name string) string {
	return cases.Fold().String(strings.TrimSpace(name))
}

// ClockTime is a civil time of day with minute precision.
type ClockTime struct {
	Hour   int
	Minute int
}

// ParseClockTime parses "HH:MM" (24h).
func ParseClockTime(s string) (ClockTime, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return ClockTime{}, fmt.Errorf("%w: %q", ErrInvalidClockTime, s)
	}
	return ClockTime{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// SecondOfDay returns seconds elapsed since midnight.
func (c ClockTime) SecondOfDay() int {
	return c.Hour*3600 + c.Minute*60
}

// Policy is the working-hours rule for one scope.
type Policy struct {
	ID                   string
	Scope                Scope
	StartTime            ClockTime
	EndTime              ClockTime
	CheckInGraceMinutes  int
	CheckOutGraceMinutes int
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// CheckInDeadline is the last second of day, inclusive, at which a
// check-in counts as on time. May exceed 86400 when the grace period
// runs past midnight.
func (p Policy) CheckInDeadline() int {
	return p.StartTime.SecondOfDay() + p.CheckInGraceMinutes*60
}

// CheckOutThreshold is the earliest second of day, inclusive, at which
// a check-out is not early. May be negative.
func (p Policy) CheckOutThreshold() int {
	return p.EndTime.SecondOfDay() - p.CheckOutGraceMinutes*60
}
