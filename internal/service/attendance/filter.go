package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-attendance/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance/internal/domain/employee"
	"github.com/cmlabs-hris/hris-attendance/internal/domain/officehours"
)

// Query selects records for listing and export. Nil fields do not
// constrain; set fields are ANDed.
type Query struct {
	DateStart  *time.Time // inclusive civil date
	DateEnd    *time.Time // inclusive civil date
	Department *string
	EmployeeID *string
}

// Filter returns the records matching q. Department matches the
// employee's current assignment in dir, not the assignment at the time
// of the record. Order is preserved.
func Filter(ctx context.Context, records []attendance.Record, q Query, dir employee.Directory) ([]attendance.Record, error) {
	return filterWithCache(ctx, records, q, newDepartmentCache(dir))
}

func filterWithCache(ctx context.Context, records []attendance.Record, q Query, departments *departmentCache) ([]attendance.Record, error) {
	var wantDept string
	if q.Department != nil {
		wantDept = officehours.NormalizeDepartment(*q.Department)
	}

	result := make([]attendance.Record, 0, len(records))
	for _, rec := range records {
		if q.EmployeeID != nil && rec.EmployeeID != *q.EmployeeID {
			continue
		}
		if q.DateStart != nil && rec.Date.Before(*q.DateStart) {
			continue
		}
		if q.DateEnd != nil && rec.Date.After(*q.DateEnd) {
			continue
		}
		if wantDept != "" {
			dept, err := departments.get(ctx, rec.EmployeeID)
			if err != nil {
				return nil, err
			}
			if officehours.NormalizeDepartment(dept) != wantDept {
				continue
			}
		}
		result = append(result, rec)
	}
	return result, nil
}

// departmentCache memoizes directory lookups for the duration of one
// call so every record of an employee sees the same assignment.
type departmentCache struct {
	dir  employee.Directory
	byID map[string]string
}

func newDepartmentCache(dir employee.Directory) *departmentCache {
	return &departmentCache{dir: dir, byID: make(map[string]string)}
}

// get returns the employee's current department. Employees missing from
// the directory have no department.
func (c *departmentCache) get(ctx context.Context, employeeID string) (string, error) {
	if dept, ok := c.byID[employeeID]; ok {
		return dept, nil
	}
	dept, err := c.dir.DepartmentOf(ctx, employeeID)
	if err != nil {
		if !errors.Is(err, employee.ErrEmployeeNotFound) {
			return "", fmt.Errorf("failed to look up department of employee %s: %w", employeeID, err)
		}
		dept = ""
	}
	c.byID[employeeID] = dept
	return dept, nil
}
