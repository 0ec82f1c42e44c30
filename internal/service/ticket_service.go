package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-core/internal/cache"
	"github.com/spec-kit/helpdesk-core/internal/domain"
	"github.com/spec-kit/helpdesk-core/internal/events"
	"github.com/spec-kit/helpdesk-core/internal/observability"
	"github.com/spec-kit/helpdesk-core/internal/repository"
	"github.com/spec-kit/helpdesk-core/internal/transition"
	apperrors "github.com/spec-kit/helpdesk-core/pkg/util"
)

// TicketService coordinates the mutation pipeline: transition validation,
// store write, department cache invalidation, then broadcast publish. The
// write-invalidate-publish sequence is strictly ordered within a request.
type TicketService struct {
	tickets     repository.TicketRepository
	comments    repository.CommentRepository
	attachments repository.AttachmentRepository
	reopens     repository.ReopenRepository
	ratings     repository.RatingRepository
	staff       repository.StaffRepository
	users       repository.UserRepository
	cache       cache.Cache
	broadcaster events.Broadcaster
	metrics     *observability.Metrics
	logger      *zap.Logger
	now         func() time.Time
}

// Dependencies bundles collaborators for the ticket service.
type Dependencies struct {
	TicketRepo     repository.TicketRepository
	CommentRepo    repository.CommentRepository
	AttachmentRepo repository.AttachmentRepository
	ReopenRepo     repository.ReopenRepository
	RatingRepo     repository.RatingRepository
	StaffRepo      repository.StaffRepository
	UserRepo       repository.UserRepository
	Cache          cache.Cache
	Broadcaster    events.Broadcaster
	Metrics        *observability.Metrics
	Logger         *zap.Logger
}

// NewTicketService constructs the service.
func NewTicketService(deps Dependencies) *TicketService {
	return &TicketService{
		tickets:     deps.TicketRepo,
		comments:    deps.CommentRepo,
		attachments: deps.AttachmentRepo,
		reopens:     deps.ReopenRepo,
		ratings:     deps.RatingRepo,
		staff:       deps.StaffRepo,
		users:       deps.UserRepo,
		cache:       deps.Cache,
		broadcaster: deps.Broadcaster,
		metrics:     deps.Metrics,
		logger:      deps.Logger,
		now:         time.Now,
	}
}

// CreateInput describes ticket creation payload. CreatedBy is nil for
// anonymous submissions, which must carry contact details instead.
type CreateInput struct {
	Subject      string
	Description  string
	Department   domain.Department
	Category     string
	Priority     domain.TicketPriority
	CreatedBy    *string
	ContactName  string
	ContactEmail string
}

// CreateTicket files a new ticket in OPEN state.
func (s *TicketService) CreateTicket(ctx context.Context, input CreateInput) (*domain.Ticket, error) {
	subject := strings.TrimSpace(input.Subject)
	description := strings.TrimSpace(input.Description)
	if subject == "" || len(subject) > domain.MaxSubjectLen {
		return nil, apperrors.NewValidationError("subject required, at most 200 characters", nil)
	}
	if description == "" || len(description) > domain.MaxDescriptionLen {
		return nil, apperrors.NewValidationError("description required, at most 2000 characters", nil)
	}
	if _, ok := domain.ParseDepartment(string(input.Department)); !ok {
		return nil, apperrors.NewValidationError("unknown department", map[string]any{"department": string(input.Department)})
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	} else if _, ok := domain.ParseTicketPriority(string(priority)); !ok {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": string(priority)})
	}
	if input.CreatedBy == nil && (strings.TrimSpace(input.ContactName) == "" || strings.TrimSpace(input.ContactEmail) == "") {
		return nil, apperrors.NewValidationError("anonymous tickets require contact name and email", nil)
	}

	ticket := &domain.Ticket{
		ShortCode:    generateShortCode(),
		Subject:      subject,
		Description:  description,
		Department:   input.Department,
		Category:     strings.TrimSpace(input.Category),
		Status:       domain.TicketStatusOpen,
		Priority:     priority,
		CreatedBy:    input.CreatedBy,
		ContactName:  strings.TrimSpace(input.ContactName),
		ContactEmail: strings.TrimSpace(input.ContactEmail),
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.invalidateDepartments(ctx, ticket.Department)
	s.publish(events.Event{
		Type:       events.EventTicketCreated,
		Department: ticket.Department,
		TicketID:   ticket.ID,
		Actor:      actorFor(input.CreatedBy),
		Payload: events.TicketCreatedPayload{
			ShortCode: ticket.ShortCode,
			Subject:   ticket.Subject,
			Priority:  ticket.Priority,
			Status:    ticket.Status,
		},
	}, false)
	return ticket, nil
}

// ListTickets returns one page of tickets matching the filter. Search
// results are rank-ordered, which is incompatible with the keyset cursor;
// search callers page with page/limit instead.
func (s *TicketService) ListTickets(ctx context.Context, filter repository.TicketFilter) (*repository.TicketPage, error) {
	if filter.Cursor != nil && filter.SearchTerm != nil {
		return nil, apperrors.NewValidationError("cursor pagination cannot be combined with search", nil)
	}
	page, err := s.tickets.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return page, nil
}

// Detail is a ticket with its child collections. CreatorName is the
// registered creator's display name, or the contact name for anonymous
// submissions.
type Detail struct {
	Ticket      domain.Ticket
	CreatorName string
	Comments    []domain.Comment
	Attachments []domain.Attachment
	Reopens     []domain.ReopenEntry
	Rating      *domain.Rating
}

// GetDetail fetches a ticket with comments, reopen history and rating.
// Internal comments are stripped for callers without staff capability.
func (s *TicketService) GetDetail(ctx context.Context, actor transition.Actor, ticketID string) (*Detail, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	comments, err := s.comments.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if !actor.Role.IsStaff() {
		visible := comments[:0]
		for _, comment := range comments {
			if !comment.Internal {
				visible = append(visible, comment)
			}
		}
		comments = visible
	}
	attachments, err := s.attachments.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	reopens, err := s.reopens.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	rating, err := s.ratings.GetByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	creatorName := ticket.ContactName
	if ticket.CreatedBy != nil {
		if user, err := s.users.GetByID(ctx, *ticket.CreatedBy); err == nil {
			creatorName = user.Name
		}
	}
	return &Detail{
		Ticket:      *ticket,
		CreatorName: creatorName,
		Comments:    comments,
		Attachments: attachments,
		Reopens:     reopens,
		Rating:      rating,
	}, nil
}

// AttachmentInput describes attachment metadata recorded after an upload
// completes in the external blob store.
type AttachmentInput struct {
	StorageKey string
	FileName   string
	MimeType   string
	SizeBytes  int64
}

// AddAttachment appends attachment metadata to a ticket. Only ticket
// participants may attach, and never to a closed ticket.
func (s *TicketService) AddAttachment(ctx context.Context, actor transition.Actor, ticketID string, input AttachmentInput) (*domain.Attachment, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if _, err := transition.ValidateComment(actor, *ticket, false); err != nil {
		return nil, err
	}
	if ticket.IsTerminal() {
		return nil, apperrors.NewConflict("ticket closed", map[string]any{"ticket_id": ticket.ID})
	}
	if strings.TrimSpace(input.StorageKey) == "" || strings.TrimSpace(input.FileName) == "" {
		return nil, apperrors.NewValidationError("storage key and file name required", nil)
	}
	uploadedBy := actor.ID
	attachment := &domain.Attachment{
		TicketID:   ticket.ID,
		UploadedBy: &uploadedBy,
		StorageKey: input.StorageKey,
		FileName:   input.FileName,
		MimeType:   input.MimeType,
		SizeBytes:  input.SizeBytes,
	}
	if err := s.attachments.Create(ctx, attachment); err != nil {
		return nil, apperrors.MapError(err)
	}
	return attachment, nil
}

// Assign assigns a ticket to a staff member of the same department.
// Assigning an OPEN or REOPENED ticket promotes it to ASSIGNED in the
// same change.
func (s *TicketService) Assign(ctx context.Context, actor transition.Actor, ticketID, staffID string) (*domain.Ticket, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	assignee, err := s.getStaff(ctx, staffID)
	if err != nil {
		return nil, err
	}
	updated, err := transition.ApplyAssignment(actor, *ticket, assignee, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.tickets.Update(ctx, &updated); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.invalidateDepartments(ctx, updated.Department)
	s.publish(events.Event{
		Type:       events.EventTicketAssigned,
		Department: updated.Department,
		TicketID:   updated.ID,
		Actor:      events.Actor{ID: actor.ID, Role: actor.Role},
		Payload: events.TicketAssignedPayload{
			AssignedTo: updated.AssignedTo,
			NewStatus:  updated.Status,
		},
	}, true)
	return &updated, nil
}

// ChangeStatus moves a ticket to a new status; RESOLVED stamps
// resolvedAt as part of the same transition.
func (s *TicketService) ChangeStatus(ctx context.Context, actor transition.Actor, ticketID string, target domain.TicketStatus) (*domain.Ticket, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	oldStatus := ticket.Status
	updated, err := transition.ApplyStatusChange(actor, *ticket, target, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.tickets.Update(ctx, &updated); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.invalidateDepartments(ctx, updated.Department)
	s.publish(events.Event{
		Type:       events.EventStatusChanged,
		Department: updated.Department,
		TicketID:   updated.ID,
		Actor:      events.Actor{ID: actor.ID, Role: actor.Role},
		Payload: events.StatusChangedPayload{
			OldStatus:  oldStatus,
			NewStatus:  updated.Status,
			ResolvedAt: updated.ResolvedAt,
		},
	}, true)
	return &updated, nil
}

// ChangePriority changes ticket priority; department-head capability
// required.
func (s *TicketService) ChangePriority(ctx context.Context, actor transition.Actor, ticketID string, target domain.TicketPriority) (*domain.Ticket, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	oldPriority := ticket.Priority
	updated, err := transition.ApplyPriorityChange(actor, *ticket, target, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.tickets.Update(ctx, &updated); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.invalidateDepartments(ctx, updated.Department)
	s.publish(events.Event{
		Type:       events.EventPriorityChanged,
		Department: updated.Department,
		TicketID:   updated.ID,
		Actor:      events.Actor{ID: actor.ID, Role: actor.Role},
		Payload: events.PriorityChangedPayload{
			OldPriority: oldPriority,
			NewPriority: updated.Priority,
		},
	}, true)
	return &updated, nil
}

// Reopen is the creator-driven audited transition out of RESOLVED or
// CLOSED. It clears resolvedAt and appends a reopen-history entry.
func (s *TicketService) Reopen(ctx context.Context, actor transition.Actor, ticketID, reason string) (*domain.Ticket, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	updated, entry, err := transition.ApplyReopen(actor, *ticket, reason, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.tickets.Update(ctx, &updated); err != nil {
		return nil, apperrors.MapError(err)
	}
	if err := s.reopens.Create(ctx, &entry); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.invalidateDepartments(ctx, updated.Department)
	s.publish(events.Event{
		Type:       events.EventTicketReopened,
		Department: updated.Department,
		TicketID:   updated.ID,
		Actor:      events.Actor{ID: actor.ID, Role: actor.Role},
		Payload: events.TicketReopenedPayload{
			Reason:    entry.Reason,
			NewStatus: updated.Status,
		},
	}, true)
	return &updated, nil
}

// AddComment appends a comment to the ticket thread. The creator's
// comments are always external; internal notes require staff capability.
func (s *TicketService) AddComment(ctx context.Context, actor transition.Actor, authorName, ticketID, body string, internal bool) (*domain.Comment, error) {
	if strings.TrimSpace(body) == "" {
		return nil, apperrors.NewValidationError("comment body required", nil)
	}
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	effectiveInternal, err := transition.ValidateComment(actor, *ticket, internal)
	if err != nil {
		return nil, err
	}

	comment := &domain.Comment{
		TicketID:   ticket.ID,
		AuthorName: authorName,
		Internal:   effectiveInternal,
		Body:       strings.TrimSpace(body),
	}
	if actor.ID != "" {
		authorID := actor.ID
		comment.AuthorID = &authorID
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.invalidateDepartments(ctx, ticket.Department)
	s.publish(events.Event{
		Type:       events.EventCommentAdded,
		Department: ticket.Department,
		TicketID:   ticket.ID,
		Actor:      events.Actor{ID: actor.ID, Role: actor.Role},
		Internal:   comment.Internal,
		Payload: events.CommentAddedPayload{
			CommentID:  comment.ID,
			AuthorID:   comment.AuthorID,
			AuthorName: comment.AuthorName,
			Internal:   comment.Internal,
			Body:       comment.Body,
			CreatedAt:  comment.CreatedAt,
		},
	}, true)
	return comment, nil
}

// RateTicket records the creator's one-time satisfaction rating on a
// resolved or closed ticket.
func (s *TicketService) RateTicket(ctx context.Context, actor transition.Actor, ticketID string, stars int, comment string) (*domain.Rating, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	existing, err := s.ratings.GetByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if err := transition.ValidateRating(actor, *ticket, existing, stars); err != nil {
		return nil, err
	}

	rating := &domain.Rating{
		TicketID:  ticket.ID,
		Stars:     stars,
		Comment:   strings.TrimSpace(comment),
		CreatedBy: actor.ID,
	}
	if err := s.ratings.Create(ctx, rating); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.invalidateDepartments(ctx, ticket.Department)
	s.publish(events.Event{
		Type:       events.EventRatingAdded,
		Department: ticket.Department,
		TicketID:   ticket.ID,
		Actor:      events.Actor{ID: actor.ID, Role: actor.Role},
		Payload: events.RatingAddedPayload{
			Stars:   rating.Stars,
			Comment: rating.Comment,
		},
	}, true)
	return rating, nil
}

func (s *TicketService) getTicket(ctx context.Context, id string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

func (s *TicketService) getStaff(ctx context.Context, id string) (*domain.StaffMember, error) {
	staff, err := s.staff.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("staff member", map[string]any{"staff_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return staff, nil
}

// invalidateDepartments drops every cached view of the given departments,
// once per department regardless of how many tickets changed.
func (s *TicketService) invalidateDepartments(ctx context.Context, depts ...domain.Department) {
	seen := make(map[domain.Department]struct{}, len(depts))
	for _, dept := range depts {
		if _, dup := seen[dept]; dup {
			continue
		}
		seen[dept] = struct{}{}
		prefix := cache.DepartmentPrefix(dept)
		s.cache.Invalidate(ctx, prefix)
		s.metrics.RecordCacheInvalidation(prefix)
	}
}

// publish fans the event out to the department channel and, for
// detail-level events, the ticket channel. Fire-and-forget: a dropped
// event never fails the mutation that triggered it.
func (s *TicketService) publish(event events.Event, detail bool) {
	if s.broadcaster == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.EmittedAt.IsZero() {
		event.EmittedAt = s.now()
	}
	s.broadcaster.Publish(events.DepartmentChannel(event.Department), event)
	if detail {
		s.broadcaster.Publish(events.TicketChannel(event.TicketID), event)
	}
}

func actorFor(userID *string) events.Actor {
	if userID == nil {
		return events.Actor{Role: domain.RoleUser}
	}
	return events.Actor{ID: *userID, Role: domain.RoleUser}
}

func generateShortCode() string {
	return "HD-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}
