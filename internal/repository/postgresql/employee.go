package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/hris-attendance/internal/domain/employee"
	"github.com/cmlabs-hris/hris-attendance/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

// EmployeeRepository reads the employees table, which is maintained by
// the HR system of record.
type EmployeeRepository struct {
	db *database.DB
}

func NewEmployeeRepository(db *database.DB) *EmployeeRepository {
	return &EmployeeRepository{db: db}
}

// DepartmentOf implements employee.Directory.
func (r *EmployeeRepository) DepartmentOf(ctx context.Context, employeeID string) (string, error) {
	q := GetQuerier(ctx, r.db)

	var department string
	err := q.QueryRow(ctx, `SELECT department FROM employees WHERE id = $1`, employeeID).Scan(&department)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", employee.ErrEmployeeNotFound
		}
		return "", fmt.Errorf("failed to get employee department: %w", err)
	}
	return department, nil
}

// ListActive implements employee.Directory.
func (r *EmployeeRepository) ListActive(ctx context.Context) ([]employee.Employee, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `
		SELECT id, full_name, department, employment_status, created_at, updated_at
		FROM employees
		WHERE employment_status = $1
		ORDER BY id
	`, string(employee.EmploymentStatusActive))
	if err != nil {
		return nil, fmt.Errorf("failed to list active employees: %w", err)
	}
	defer rows.Close()

	var employees []employee.Employee
	for rows.Next() {
		var e employee.Employee
		if err := rows.Scan(&e.ID, &e.FullName, &e.Department, &e.EmploymentStatus, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		employees = append(employees, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate employees: %w", err)
	}
	return employees, nil
}

// Upsert inserts or updates an employee's directory entry.
func (r *EmployeeRepository) Upsert(ctx context.Context, e employee.Employee) error {
	q := GetQuerier(ctx, r.db)

	status := e.EmploymentStatus
	if status == "" {
		status = employee.EmploymentStatusActive
	}

	_, err := q.Exec(ctx, `
		INSERT INTO employees (id, full_name, department, employment_status)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			full_name = EXCLUDED.full_name,
			department = EXCLUDED.department,
			employment_status = EXCLUDED.employment_status,
			updated_at = NOW()
	`, e.ID, e.FullName, e.Department, string(status))
	if err != nil {
		return fmt.Errorf("failed to upsert employee: %w", err)
	}
	return nil
}
