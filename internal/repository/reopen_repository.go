package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-core/internal/domain"
)

// ReopenRepository stores the append-only reopen history of a ticket.
type ReopenRepository interface {
	Create(ctx context.Context, entry *domain.ReopenEntry) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.ReopenEntry, error)
}

type reopenRepository struct {
	pool  *pgxpool.Pool
	retry RetryPolicy
}

// NewReopenRepository builds repository.
func NewReopenRepository(pool *pgxpool.Pool, retry RetryPolicy) ReopenRepository {
	return &reopenRepository{pool: pool, retry: retry}
}

func (r *reopenRepository) Create(ctx context.Context, entry *domain.ReopenEntry) error {
	const query = `
        INSERT INTO ticket_reopens (ticket_id, reopened_by, reason)
        VALUES ($1,$2,$3)
        RETURNING id, created_at`
	return withRetry(ctx, r.retry, func() error {
		return r.pool.QueryRow(ctx, query,
			entry.TicketID,
			entry.ReopenedBy,
			entry.Reason,
		).Scan(&entry.ID, &entry.CreatedAt)
	})
}

func (r *reopenRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.ReopenEntry, error) {
	const query = `
        SELECT id, ticket_id, reopened_by, reason, created_at
        FROM ticket_reopens WHERE ticket_id=$1 ORDER BY created_at ASC`
	var result []domain.ReopenEntry
	err := withRetry(ctx, r.retry, func() error {
		rows, err := r.pool.Query(ctx, query, ticketID)
		if err != nil {
			return err
		}
		defer rows.Close()
		result = result[:0]
		for rows.Next() {
			var entry domain.ReopenEntry
			if err := rows.Scan(
				&entry.ID,
				&entry.TicketID,
				&entry.ReopenedBy,
				&entry.Reason,
				&entry.CreatedAt,
			); err != nil {
				return err
			}
			result = append(result, entry)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
