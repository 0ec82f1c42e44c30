package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-core/internal/domain"
)

// StaffRepository reads staff members for assignment and auth lookups.
type StaffRepository interface {
	GetByID(ctx context.Context, id string) (*domain.StaffMember, error)
	ListByDepartment(ctx context.Context, dept domain.Department) ([]domain.StaffMember, error)
}

type staffRepository struct {
	pool  *pgxpool.Pool
	retry RetryPolicy
}

// NewStaffRepository instantiates repository.
func NewStaffRepository(pool *pgxpool.Pool, retry RetryPolicy) StaffRepository {
	return &staffRepository{pool: pool, retry: retry}
}

func (r *staffRepository) GetByID(ctx context.Context, id string) (*domain.StaffMember, error) {
	const query = `
        SELECT id, name, email, role, department, active, created_at, updated_at
        FROM staff_members WHERE id=$1`
	var staff domain.StaffMember
	err := withRetry(ctx, r.retry, func() error {
		return scanStaff(r.pool.QueryRow(ctx, query, id), &staff)
	})
	if err != nil {
		return nil, err
	}
	return &staff, nil
}

func (r *staffRepository) ListByDepartment(ctx context.Context, dept domain.Department) ([]domain.StaffMember, error) {
	const query = `
        SELECT id, name, email, role, department, active, created_at, updated_at
        FROM staff_members WHERE department=$1 AND active ORDER BY name ASC`
	var result []domain.StaffMember
	err := withRetry(ctx, r.retry, func() error {
		rows, err := r.pool.Query(ctx, query, dept)
		if err != nil {
			return err
		}
		defer rows.Close()
		result = result[:0]
		for rows.Next() {
			var staff domain.StaffMember
			if err := scanStaff(rows, &staff); err != nil {
				return err
			}
			result = append(result, staff)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func scanStaff(row rowScanner, staff *domain.StaffMember) error {
	return row.Scan(
		&staff.ID,
		&staff.Name,
		&staff.Email,
		&staff.Role,
		&staff.Department,
		&staff.Active,
		&staff.CreatedAt,
		&staff.UpdatedAt,
	)
}
