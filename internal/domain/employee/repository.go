package employee

import "context"

// Directory is the employee/department lookup maintained outside the
// attendance core.
type Directory interface {
	// DepartmentOf returns the employee's current department, which may be
	// empty. It returns ErrEmployeeNotFound for unknown employees.
	DepartmentOf(ctx context.Context, employeeID string) (string, error)

	// ListActive returns employees whose employment status is active.
	ListActive(ctx context.Context) ([]Employee, error)
}
