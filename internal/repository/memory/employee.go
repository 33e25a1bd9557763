package memory

import (
	"context"
	"sync"

	"github.com/cmlabs-hris/hris-attendance/internal/domain/employee"
)

// EmployeeDirectory is an in-memory employee.Directory. Assign changes
// an employee's current department.
type EmployeeDirectory struct {
	mu        sync.RWMutex
	employees map[string]employee.Employee
}

func NewEmployeeDirectory(employees ...employee.Employee) *EmployeeDirectory {
	d := &EmployeeDirectory{employees: make(map[string]employee.Employee, len(employees))}
	for _, e := range employees {
		if e.EmploymentStatus == "" {
			e.EmploymentStatus = employee.EmploymentStatusActive
		}
		d.employees[e.ID] = e
	}
	return d
}

// Assign sets the current department of an employee, adding the
// employee when unknown.
func (d *EmployeeDirectory) Assign(employeeID, department string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	e, ok := d.employees[employeeID]
	if !ok {
		e = employee.Employee{ID: employeeID, EmploymentStatus: employee.EmploymentStatusActive}
	}
	e.Department = department
	d.employees[employeeID] = e
}

// DepartmentOf implements employee.Directory.
func (d *EmployeeDirectory) DepartmentOf(ctx context.Context, employeeID string) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	e, ok := d.employees[employeeID]
	if !ok {
		return "", employee.ErrEmployeeNotFound
	}
	return e.Department, nil
}

// ListActive implements employee.Directory.
func (d *EmployeeDirectory) ListActive(ctx context.Context) ([]employee.Employee, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	result := make([]employee.Employee, 0, len(d.employees))
	for _, e := range d.employees {
		if e.EmploymentStatus == employee.EmploymentStatusActive {
			result = append(result, e)
		}
	}
	return result, nil
}
