package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-core/internal/domain"
)

// TicketFilter captures list/search parameters.
type TicketFilter struct {
	Department  *domain.Department
	Statuses    []domain.TicketStatus
	Priorities  []domain.TicketPriority
	AssignedTo  *string
	Unassigned  bool
	CreatedBy   *string
	SearchTerm  *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	UpdatedFrom *time.Time
	UpdatedTo   *time.Time

	// Page/limit pagination.
	Limit  int
	Offset int
	// Cursor pagination; when set, Offset is ignored.
	Cursor *Cursor
}

// TicketPage is one page of list results. NextCursor is populated only
// for cursor-based requests with more rows remaining.
type TicketPage struct {
	Tickets    []domain.Ticket
	HasMore    bool
	NextCursor string
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	GetByShortCode(ctx context.Context, code string) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) (*TicketPage, error)
	// ListForWindow returns every ticket of a department created inside
	// [from, to), for single-pass aggregation.
	ListForWindow(ctx context.Context, dept domain.Department, from, to time.Time) ([]domain.Ticket, error)
}

type ticketRepository struct {
	pool  *pgxpool.Pool
	retry RetryPolicy
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool, retry RetryPolicy) TicketRepository {
	return &ticketRepository{pool: pool, retry: retry}
}

const ticketColumns = `id, short_code, subject, description, department, category,
               status, priority, assigned_to, created_by, contact_name, contact_email,
               created_at, updated_at, resolved_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (short_code, subject, description, department, category, status, priority, assigned_to, created_by, contact_name, contact_email)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING id, created_at, updated_at`
	return withRetry(ctx, r.retry, func() error {
		return r.pool.QueryRow(ctx, query,
			ticket.ShortCode,
			ticket.Subject,
			ticket.Description,
			ticket.Department,
			ticket.Category,
			ticket.Status,
			ticket.Priority,
			ticket.AssignedTo,
			ticket.CreatedBy,
			ticket.ContactName,
			ticket.ContactEmail,
		).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
	})
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET subject=$1, description=$2, category=$3, status=$4, priority=$5,
            assigned_to=$6, resolved_at=$7, updated_at=NOW()
        WHERE id=$8`
	return withRetry(ctx, r.retry, func() error {
		cmd, err := r.pool.Exec(ctx, query,
			ticket.Subject,
			ticket.Description,
			ticket.Category,
			ticket.Status,
			ticket.Priority,
			ticket.AssignedTo,
			ticket.ResolvedAt,
			ticket.ID,
		)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			return pgx.ErrNoRows
		}
		return nil
	})
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE id=$1`, ticketColumns)
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) GetByShortCode(ctx context.Context, code string) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE short_code=$1`, ticketColumns)
	return r.fetchSingle(ctx, query, code)
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Ticket, error) {
	var ticket domain.Ticket
	err := withRetry(ctx, r.retry, func() error {
		return scanTicket(r.pool.QueryRow(ctx, query, arg), &ticket)
	})
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) (*TicketPage, error) {
	base := fmt.Sprintf(`SELECT %s FROM tickets`, ticketColumns)
	clauses := []string{"1=1"}
	args := []any{}

	if filter.Department != nil {
		args = append(args, *filter.Department)
		clauses = append(clauses, fmt.Sprintf("department=$%d", len(args)))
	}
	if filter.CreatedBy != nil {
		args = append(args, *filter.CreatedBy)
		clauses = append(clauses, fmt.Sprintf("created_by=$%d", len(args)))
	}
	if filter.Unassigned {
		clauses = append(clauses, "assigned_to IS NULL")
	} else if filter.AssignedTo != nil {
		args = append(args, *filter.AssignedTo)
		clauses = append(clauses, fmt.Sprintf("assigned_to=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if filter.UpdatedFrom != nil {
		args = append(args, *filter.UpdatedFrom)
		clauses = append(clauses, fmt.Sprintf("updated_at >= $%d", len(args)))
	}
	if filter.UpdatedTo != nil {
		args = append(args, *filter.UpdatedTo)
		clauses = append(clauses, fmt.Sprintf("updated_at <= $%d", len(args)))
	}

	orderBy := "ORDER BY created_at DESC, id DESC"
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		args = append(args, strings.TrimSpace(*filter.SearchTerm))
		placeholder := fmt.Sprintf("$%d", len(args))
		// case-insensitive weighted search: subject > description > contact name
		clauses = append(clauses, fmt.Sprintf(
			"(setweight(to_tsvector('simple', lower(subject)), 'A') || "+
				"setweight(to_tsvector('simple', lower(description)), 'B') || "+
				"setweight(to_tsvector('simple', lower(coalesce(contact_name,''))), 'C')) "+
				"@@ plainto_tsquery('simple', lower(%s))", placeholder))
		orderBy = fmt.Sprintf(
			"ORDER BY ts_rank(setweight(to_tsvector('simple', lower(subject)), 'A') || "+
				"setweight(to_tsvector('simple', lower(description)), 'B') || "+
				"setweight(to_tsvector('simple', lower(coalesce(contact_name,''))), 'C'), "+
				"plainto_tsquery('simple', lower(%s))) DESC, created_at DESC, id DESC", placeholder)
	}

	if filter.Cursor != nil {
		args = append(args, filter.Cursor.CreatedAt)
		tsArg := len(args)
		args = append(args, filter.Cursor.ID)
		clauses = append(clauses, fmt.Sprintf("(created_at, id) < ($%d, $%d)", tsArg, len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 || filter.Cursor != nil {
		offset = 0
	}

	// one extra row decides hasMore without a count query
	query := fmt.Sprintf(`%s WHERE %s %s LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), orderBy, limit+1, offset)

	var tickets []domain.Ticket
	err := withRetry(ctx, r.retry, func() error {
		rows, err := r.pool.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		tickets, err = scanTickets(rows)
		return err
	})
	if err != nil {
		return nil, err
	}

	page := &TicketPage{Tickets: tickets}
	if len(tickets) > limit {
		page.Tickets = tickets[:limit]
		page.HasMore = true
		if filter.Cursor != nil || filter.Offset == 0 {
			last := page.Tickets[len(page.Tickets)-1]
			page.NextCursor = Cursor{CreatedAt: last.CreatedAt, ID: last.ID}.Encode()
		}
	}
	return page, nil
}

func (r *ticketRepository) ListForWindow(ctx context.Context, dept domain.Department, from, to time.Time) ([]domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE department=$1 AND created_at >= $2 AND created_at < $3`, ticketColumns)
	var tickets []domain.Ticket
	err := withRetry(ctx, r.retry, func() error {
		rows, err := r.pool.Query(ctx, query, dept, from, to)
		if err != nil {
			return err
		}
		defer rows.Close()
		tickets, err = scanTickets(rows)
		return err
	})
	if err != nil {
		return nil, err
	}
	return tickets, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTicket(row rowScanner, ticket *domain.Ticket) error {
	return row.Scan(
		&ticket.ID,
		&ticket.ShortCode,
		&ticket.Subject,
		&ticket.Description,
		&ticket.Department,
		&ticket.Category,
		&ticket.Status,
		&ticket.Priority,
		&ticket.AssignedTo,
		&ticket.CreatedBy,
		&ticket.ContactName,
		&ticket.ContactEmail,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.ResolvedAt,
	)
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := scanTicket(rows, &ticket); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
