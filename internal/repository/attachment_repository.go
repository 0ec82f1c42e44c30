package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-core/internal/domain"
)

// AttachmentRepository stores append-only attachment metadata. The blobs
// themselves live in an external store addressed by StorageKey.
type AttachmentRepository interface {
	Create(ctx context.Context, attachment *domain.Attachment) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.Attachment, error)
}

type attachmentRepository struct {
	pool  *pgxpool.Pool
	retry RetryPolicy
}

// NewAttachmentRepository builds repository.
func NewAttachmentRepository(pool *pgxpool.Pool, retry RetryPolicy) AttachmentRepository {
	return &attachmentRepository{pool: pool, retry: retry}
}

func (r *attachmentRepository) Create(ctx context.Context, attachment *domain.Attachment) error {
	const query = `
        INSERT INTO ticket_attachments (ticket_id, uploaded_by, storage_key, file_name, mime_type, size_bytes)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return withRetry(ctx, r.retry, func() error {
		return r.pool.QueryRow(ctx, query,
			attachment.TicketID,
			attachment.UploadedBy,
			attachment.StorageKey,
			attachment.FileName,
			attachment.MimeType,
			attachment.SizeBytes,
		).Scan(&attachment.ID, &attachment.CreatedAt)
	})
}

func (r *attachmentRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Attachment, error) {
	const query = `
        SELECT id, ticket_id, uploaded_by, storage_key, file_name, mime_type, size_bytes, created_at
        FROM ticket_attachments WHERE ticket_id=$1 ORDER BY created_at ASC, id ASC`
	var result []domain.Attachment
	err := withRetry(ctx, r.retry, func() error {
		rows, err := r.pool.Query(ctx, query, ticketID)
		if err != nil {
			return err
		}
		defer rows.Close()
		result = result[:0]
		for rows.Next() {
			var attachment domain.Attachment
			if err := rows.Scan(
				&attachment.ID,
				&attachment.TicketID,
				&attachment.UploadedBy,
				&attachment.StorageKey,
				&attachment.FileName,
				&attachment.MimeType,
				&attachment.SizeBytes,
				&attachment.CreatedAt,
			); err != nil {
				return err
			}
			result = append(result, attachment)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
