package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/hris-attendance/internal/domain/officehours"
	"github.com/cmlabs-hris/hris-attendance/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type policyRepository struct {
	db *database.DB
}

func NewPolicyRepository(db *database.DB) officehours.PolicyRepository {
	return &policyRepository{db: db}
}

const policyColumns = `
	id, scope, department,
	to_char(start_time, 'HH24:MI'), to_char(end_time, 'HH24:MI'),
	check_in_grace_minutes, check_out_grace_minutes,
	created_at, updated_at
`

func scanPolicy(row pgx.Row) (officehours.Policy, error) {
	var (
		p          officehours.Policy
		scope      string
		department *string
		start, end string
	)
	err := row.Scan(
		&p.ID, &scope, &department,
		&start, &end,
		&p.CheckInGraceMinutes, &p.CheckOutGraceMinutes,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return officehours.Policy{}, err
	}

	if officehours.ScopeKind(scope) == officehours.ScopeDepartment && department != nil {
		p.Scope = officehours.DepartmentScope(*department)
	} else {
		p.Scope = officehours.GlobalScope()
	}
	if p.StartTime, err = officehours.ParseClockTime(start); err != nil {
		return officehours.Policy{}, err
	}
	if p.EndTime, err = officehours.ParseClockTime(end); err != nil {
		return officehours.Policy{}, err
	}
	return p, nil
}

// List implements officehours.PolicyRepository.
func (r *policyRepository) List(ctx context.Context) ([]officehours.Policy, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `SELECT `+policyColumns+` FROM office_hours_policies ORDER BY department_key`)
	if err != nil {
		return nil, fmt.Errorf("failed to list office hours policies: %w", err)
	}
	defer rows.Close()

	var policies []officehours.Policy
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan office hours policy: %w", err)
		}
		policies = append(policies, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate office hours policies: %w", err)
	}

	return policies, nil
}

// GetByScope implements officehours.PolicyRepository.
func (r *policyRepository) GetByScope(ctx context.Context, scope officehours.Scope) (officehours.Policy, error) {
	q := GetQuerier(ctx, r.db)

	p, err := scanPolicy(q.QueryRow(ctx,
		`SELECT `+policyColumns+` FROM office_hours_policies WHERE department_key = $1`,
		scope.Key(),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return officehours.Policy{}, officehours.ErrPolicyNotFound
		}
		return officehours.Policy{}, fmt.Errorf("failed to get office hours policy: %w", err)
	}
	return p, nil
}

// Upsert implements officehours.PolicyRepository.
func (r *policyRepository) Upsert(ctx context.Context, policy officehours.Policy) (officehours.Policy, error) {
	q := GetQuerier(ctx, r.db)

	id, err := uuid.NewV7()
	if err != nil {
		return officehours.Policy{}, err
	}

	var department *string
	if !policy.Scope.IsGlobal() {
		department = &policy.Scope.Department
	}

	// Every column is replaced; an upsert never merges with the stored row.
	query := `
		INSERT INTO office_hours_policies (
			id, scope, department, department_key,
			start_time, end_time, check_in_grace_minutes, check_out_grace_minutes
		) VALUES (
			$1, $2, $3, $4, $5::time, $6::time, $7, $8
		)
		ON CONFLICT (department_key) DO UPDATE SET
			scope = EXCLUDED.scope,
			department = EXCLUDED.department,
			start_time = EXCLUDED.start_time,
			end_time = EXCLUDED.end_time,
			check_in_grace_minutes = EXCLUDED.check_in_grace_minutes,
			check_out_grace_minutes = EXCLUDED.check_out_grace_minutes,
			updated_at = NOW()
		RETURNING ` + policyColumns

	saved, err := scanPolicy(q.QueryRow(ctx, query,
		id.String(),
		string(policy.Scope.Kind),
		department,
		policy.Scope.Key(),
		policy.StartTime.String(),
		policy.EndTime.String(),
		policy.CheckInGraceMinutes,
		policy.CheckOutGraceMinutes,
	))
	if err != nil {
		return officehours.Policy{}, fmt.Errorf("failed to upsert office hours policy: %w", err)
	}
	return saved, nil
}

// Update implements officehours.PolicyRepository. The row stays locked
// FOR UPDATE until the write commits.
func (r *policyRepository) Update(ctx context.Context, scope officehours.Scope, fn func(existing officehours.Policy) (officehours.Policy, error)) (officehours.Policy, error) {
	var saved officehours.Policy
	err := WithTransaction(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		existing, err := scanPolicy(tx.QueryRow(ctx,
			`SELECT `+policyColumns+` FROM office_hours_policies WHERE department_key = $1 FOR UPDATE`,
			scope.Key(),
		))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return officehours.ErrPolicyNotFound
			}
			return fmt.Errorf("failed to lock office hours policy: %w", err)
		}

		updated, err := fn(existing)
		if err != nil {
			return err
		}

		saved, err = r.Upsert(ctx, updated)
		return err
	})
	if err != nil {
		return officehours.Policy{}, err
	}
	return saved, nil
}

// Delete implements officehours.PolicyRepository.
func (r *policyRepository) Delete(ctx context.Context, scope officehours.Scope) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `DELETE FROM office_hours_policies WHERE department_key = $1`, scope.Key())
	if err != nil {
		return fmt.Errorf("failed to delete office hours policy: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return officehours.ErrPolicyNotFound
	}
	return nil
}
