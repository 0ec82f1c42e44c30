package service

import (
	"context"

	"github.com/spec-kit/helpdesk-core/internal/domain"
	"github.com/spec-kit/helpdesk-core/internal/events"
	"github.com/spec-kit/helpdesk-core/internal/transition"
	apperrors "github.com/spec-kit/helpdesk-core/pkg/util"
)

// Skip explains why one ticket of a batch was not mutated.
type Skip struct {
	TicketID string `json:"ticket_id"`
	Reason   string `json:"reason"`
}

// BulkResult reports the partial outcome of a batch. Tickets succeed or
// fail independently; a skip is never retried.
type BulkResult struct {
	Succeeded int    `json:"succeeded_count"`
	Skipped   int    `json:"skipped_count"`
	Skips     []Skip `json:"skips,omitempty"`
}

// BulkAssign assigns each ticket of the batch to the same staff member,
// applying the single-ticket rules independently per ticket. Department
// caches are invalidated once per touched department, not once per
// ticket.
func (s *TicketService) BulkAssign(ctx context.Context, actor transition.Actor, ticketIDs []string, staffID string) (*BulkResult, error) {
	if len(ticketIDs) == 0 {
		return nil, apperrors.NewValidationError("ticket ids required", nil)
	}
	assignee, err := s.getStaff(ctx, staffID)
	if err != nil {
		return nil, err
	}

	result := &BulkResult{}
	var pending []events.Event
	touched := make(map[domain.Department]struct{})

	for _, id := range ticketIDs {
		ticket, err := s.getTicket(ctx, id)
		if err != nil {
			result.skip(id, err)
			continue
		}
		updated, err := transition.ApplyAssignment(actor, *ticket, assignee, s.now())
		if err != nil {
			result.skip(id, err)
			continue
		}
		if err := s.tickets.Update(ctx, &updated); err != nil {
			result.skip(id, apperrors.MapError(err))
			continue
		}
		result.Succeeded++
		touched[updated.Department] = struct{}{}
		pending = append(pending, events.Event{
			Type:       events.EventTicketAssigned,
			Department: updated.Department,
			TicketID:   updated.ID,
			Actor:      events.Actor{ID: actor.ID, Role: actor.Role},
			Payload: events.TicketAssignedPayload{
				AssignedTo: updated.AssignedTo,
				NewStatus:  updated.Status,
			},
		})
	}

	s.finishBulk(ctx, touched, pending)
	return result, nil
}

// BulkChangeStatus moves each ticket of the batch to the same target
// status, applying the single-ticket rules independently per ticket.
func (s *TicketService) BulkChangeStatus(ctx context.Context, actor transition.Actor, ticketIDs []string, target domain.TicketStatus) (*BulkResult, error) {
	if len(ticketIDs) == 0 {
		return nil, apperrors.NewValidationError("ticket ids required", nil)
	}

	result := &BulkResult{}
	var pending []events.Event
	touched := make(map[domain.Department]struct{})

	for _, id := range ticketIDs {
		ticket, err := s.getTicket(ctx, id)
		if err != nil {
			result.skip(id, err)
			continue
		}
		oldStatus := ticket.Status
		updated, err := transition.ApplyStatusChange(actor, *ticket, target, s.now())
		if err != nil {
			result.skip(id, err)
			continue
		}
		if err := s.tickets.Update(ctx, &updated); err != nil {
			result.skip(id, apperrors.MapError(err))
			continue
		}
		result.Succeeded++
		touched[updated.Department] = struct{}{}
		pending = append(pending, events.Event{
			Type:       events.EventStatusChanged,
			Department: updated.Department,
			TicketID:   updated.ID,
			Actor:      events.Actor{ID: actor.ID, Role: actor.Role},
			Payload: events.StatusChangedPayload{
				OldStatus:  oldStatus,
				NewStatus:  updated.Status,
				ResolvedAt: updated.ResolvedAt,
			},
		})
	}

	s.finishBulk(ctx, touched, pending)
	return result, nil
}

// finishBulk runs the tail of the mutation pipeline for a batch:
// invalidate each touched department once, then publish all events.
func (s *TicketService) finishBulk(ctx context.Context, touched map[domain.Department]struct{}, pending []events.Event) {
	depts := make([]domain.Department, 0, len(touched))
	for dept := range touched {
		depts = append(depts, dept)
	}
	s.invalidateDepartments(ctx, depts...)
	for _, event := range pending {
		s.publish(event, true)
	}
}

func (r *BulkResult) skip(ticketID string, err error) {
	r.Skipped++
	r.Skips = append(r.Skips, Skip{
		TicketID: ticketID,
		Reason:   apperrors.ToDomainError(err).Message,
	})
}
