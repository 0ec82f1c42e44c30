package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-core/internal/domain"
)

// CommentRepository stores the append-only comment thread of a ticket.
// There is deliberately no update or delete.
type CommentRepository interface {
	Create(ctx context.Context, comment *domain.Comment) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.Comment, error)
}

type commentRepository struct {
	pool  *pgxpool.Pool
	retry RetryPolicy
}

// NewCommentRepository builds repository.
func NewCommentRepository(pool *pgxpool.Pool, retry RetryPolicy) CommentRepository {
	return &commentRepository{pool: pool, retry: retry}
}

func (r *commentRepository) Create(ctx context.Context, comment *domain.Comment) error {
	const query = `
        INSERT INTO ticket_comments (ticket_id, author_id, author_name, internal, body)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return withRetry(ctx, r.retry, func() error {
		return r.pool.QueryRow(ctx, query,
			comment.TicketID,
			comment.AuthorID,
			comment.AuthorName,
			comment.Internal,
			comment.Body,
		).Scan(&comment.ID, &comment.CreatedAt)
	})
}

func (r *commentRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Comment, error) {
	const query = `
        SELECT id, ticket_id, author_id, author_name, internal, body, created_at
        FROM ticket_comments WHERE ticket_id=$1 ORDER BY created_at ASC, id ASC`
	var result []domain.Comment
	err := withRetry(ctx, r.retry, func() error {
		rows, err := r.pool.Query(ctx, query, ticketID)
		if err != nil {
			return err
		}
		defer rows.Close()
		result = result[:0]
		for rows.Next() {
			var comment domain.Comment
			if err := rows.Scan(
				&comment.ID,
				&comment.TicketID,
				&comment.AuthorID,
				&comment.AuthorName,
				&comment.Internal,
				&comment.Body,
				&comment.CreatedAt,
			); err != nil {
				return err
			}
			result = append(result, comment)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
