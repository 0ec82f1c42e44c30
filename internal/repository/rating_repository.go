package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-core/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-core/pkg/util"
)

// RatingRepository stores the at-most-one rating of a ticket.
type RatingRepository interface {
	Create(ctx context.Context, rating *domain.Rating) error
	GetByTicket(ctx context.Context, ticketID string) (*domain.Rating, error)
}

type ratingRepository struct {
	pool  *pgxpool.Pool
	retry RetryPolicy
}

// NewRatingRepository builds repository.
func NewRatingRepository(pool *pgxpool.Pool, retry RetryPolicy) RatingRepository {
	return &ratingRepository{pool: pool, retry: retry}
}

func (r *ratingRepository) Create(ctx context.Context, rating *domain.Rating) error {
	const query = `
        INSERT INTO ticket_ratings (ticket_id, stars, comment, created_by)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	err := withRetry(ctx, r.retry, func() error {
		return r.pool.QueryRow(ctx, query,
			rating.TicketID,
			rating.Stars,
			rating.Comment,
			rating.CreatedBy,
		).Scan(&rating.ID, &rating.CreatedAt)
	})
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		// unique index on ticket_id caught a concurrent double-rate
		return apperrors.NewConflict("ticket already rated", map[string]any{"ticket_id": rating.TicketID})
	}
	return err
}

func (r *ratingRepository) GetByTicket(ctx context.Context, ticketID string) (*domain.Rating, error) {
	const query = `
        SELECT id, ticket_id, stars, comment, created_by, created_at
        FROM ticket_ratings WHERE ticket_id=$1`
	var rating domain.Rating
	err := withRetry(ctx, r.retry, func() error {
		return r.pool.QueryRow(ctx, query, ticketID).Scan(
			&rating.ID,
			&rating.TicketID,
			&rating.Stars,
			&rating.Comment,
			&rating.CreatedBy,
			&rating.CreatedAt,
		)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rating, nil
}
