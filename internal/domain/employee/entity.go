package employee

import (
	"time"
)

// Employee is the directory view the attendance core needs: identity and
// the current department assignment.
type Employee struct {
	ID               string
	FullName         string
	Department       string
	EmploymentStatus EmploymentStatus
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type EmploymentStatus string

const (
	EmploymentStatusActive     EmploymentStatus = "active"
	EmploymentStatusResigned   EmploymentStatus = "resigned"
	EmploymentStatusTerminated EmploymentStatus = "terminated"
)
