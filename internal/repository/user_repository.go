package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-core/internal/domain"
)

// UserRepository reads end-users for auth lookups and comment authorship.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

type userRepository struct {
	pool  *pgxpool.Pool
	retry RetryPolicy
}

// NewUserRepository instantiates repository.
func NewUserRepository(pool *pgxpool.Pool, retry RetryPolicy) UserRepository {
	return &userRepository{pool: pool, retry: retry}
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	const query = `
        SELECT id, name, email, active, created_at, updated_at
        FROM users WHERE id=$1`
	var user domain.User
	err := withRetry(ctx, r.retry, func() error {
		return r.pool.QueryRow(ctx, query, id).Scan(
			&user.ID,
			&user.Name,
			&user.Email,
			&user.Active,
			&user.CreatedAt,
			&user.UpdatedAt,
		)
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}
