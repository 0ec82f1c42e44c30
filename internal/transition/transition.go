// Package transition holds the pure state-machine rules for ticket
// status, priority, assignment, comment and rating changes. Functions
// here perform no I/O: they take the current ticket plus the acting
// principal and return the accepted new state or a rejection.
package transition

import (
	"strings"
	"time"

	"github.com/spec-kit/helpdesk-core/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-core/pkg/util"
)

// Actor identifies the caller for permission checks.
type Actor struct {
	ID         string
	Role       domain.ActorRole
	Department domain.Department
}

var allowedTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusOpen:           {domain.TicketStatusAssigned, domain.TicketStatusInProgress, domain.TicketStatusWaitingForUser, domain.TicketStatusResolved},
	domain.TicketStatusAssigned:       {domain.TicketStatusInProgress, domain.TicketStatusWaitingForUser, domain.TicketStatusResolved},
	domain.TicketStatusInProgress:     {domain.TicketStatusWaitingForUser, domain.TicketStatusResolved},
	domain.TicketStatusWaitingForUser: {domain.TicketStatusInProgress, domain.TicketStatusResolved},
	domain.TicketStatusResolved:       {domain.TicketStatusClosed},
	domain.TicketStatusClosed:         {},
	domain.TicketStatusReopened:       {domain.TicketStatusAssigned, domain.TicketStatusInProgress, domain.TicketStatusWaitingForUser, domain.TicketStatusResolved},
}

func isValidTransition(current, next domain.TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

func staffInDepartment(actor Actor, dept domain.Department) bool {
	if actor.Role == domain.RoleAdmin {
		return true
	}
	return actor.Role.IsStaff() && actor.Department == dept
}

// ApplyStatusChange validates a staff-driven status change and returns
// the mutated copy of the ticket. A transition into RESOLVED stamps
// ResolvedAt. CLOSED is terminal; only ApplyReopen leaves it.
func ApplyStatusChange(actor Actor, ticket domain.Ticket, target domain.TicketStatus, now time.Time) (domain.Ticket, error) {
	if !actor.Role.IsStaff() {
		return ticket, apperrors.NewPermissionDenied("staff role required to change status")
	}
	if !staffInDepartment(actor, ticket.Department) {
		return ticket, apperrors.NewPermissionDenied("staff outside ticket department")
	}
	if _, ok := domain.ParseTicketStatus(string(target)); !ok {
		return ticket, apperrors.NewValidationError("unknown target status", map[string]any{"status": string(target)})
	}
	if ticket.IsTerminal() {
		return ticket, apperrors.NewConflict("ticket closed", map[string]any{"ticket_id": ticket.ID})
	}
	if !isValidTransition(ticket.Status, target) {
		return ticket, apperrors.NewConflict("invalid status transition", map[string]any{
			"from": string(ticket.Status),
			"to":   string(target),
		})
	}
	ticket.Status = target
	if target == domain.TicketStatusResolved {
		resolvedAt := now
		ticket.ResolvedAt = &resolvedAt
	}
	ticket.UpdatedAt = now
	return ticket, nil
}

// ApplyReopen validates the creator-driven reopen transition out of
// RESOLVED or CLOSED. It clears ResolvedAt and produces the audited
// reopen-history entry in the same change.
func ApplyReopen(actor Actor, ticket domain.Ticket, reason string, now time.Time) (domain.Ticket, domain.ReopenEntry, error) {
	var entry domain.ReopenEntry
	if ticket.CreatedByID() == "" || actor.ID != ticket.CreatedByID() {
		return ticket, entry, apperrors.NewPermissionDenied("only the ticket creator may reopen")
	}
	if ticket.Status != domain.TicketStatusResolved && ticket.Status != domain.TicketStatusClosed {
		return ticket, entry, apperrors.NewConflict("only resolved or closed tickets can be reopened", map[string]any{
			"status": string(ticket.Status),
		})
	}
	if strings.TrimSpace(reason) == "" {
		return ticket, entry, apperrors.NewValidationError("reopen reason required", nil)
	}
	ticket.Status = domain.TicketStatusReopened
	ticket.ResolvedAt = nil
	ticket.UpdatedAt = now
	entry = domain.ReopenEntry{
		TicketID:   ticket.ID,
		ReopenedBy: actor.ID,
		Reason:     strings.TrimSpace(reason),
		CreatedAt:  now,
	}
	return ticket, entry, nil
}

// ApplyPriorityChange validates a priority change. Only an actor with
// department-head capability may change priority.
func ApplyPriorityChange(actor Actor, ticket domain.Ticket, target domain.TicketPriority, now time.Time) (domain.Ticket, error) {
	if !actor.Role.CanChangePriority() {
		return ticket, apperrors.NewPermissionDenied("department head required to change priority")
	}
	if !staffInDepartment(actor, ticket.Department) {
		return ticket, apperrors.NewPermissionDenied("head outside ticket department")
	}
	if _, ok := domain.ParseTicketPriority(string(target)); !ok {
		return ticket, apperrors.NewValidationError("unknown priority", map[string]any{"priority": string(target)})
	}
	if ticket.IsTerminal() {
		return ticket, apperrors.NewConflict("ticket closed", map[string]any{"ticket_id": ticket.ID})
	}
	ticket.Priority = target
	ticket.UpdatedAt = now
	return ticket, nil
}

// ApplyAssignment validates assigning the ticket to assignee. The
// assignee must be active staff in the ticket's department. Assigning an
// OPEN or REOPENED ticket promotes status to ASSIGNED as part of the
// same change.
func ApplyAssignment(actor Actor, ticket domain.Ticket, assignee *domain.StaffMember, now time.Time) (domain.Ticket, error) {
	if !actor.Role.IsStaff() {
		return ticket, apperrors.NewPermissionDenied("staff role required to assign")
	}
	if !staffInDepartment(actor, ticket.Department) {
		return ticket, apperrors.NewPermissionDenied("staff outside ticket department")
	}
	if assignee == nil {
		return ticket, apperrors.NewValidationError("assignee required", nil)
	}
	if !assignee.Active {
		return ticket, apperrors.NewConflict("assignee inactive", map[string]any{"staff_id": assignee.ID})
	}
	if !assignee.Role.IsStaff() || assignee.Department != ticket.Department {
		return ticket, apperrors.NewPermissionDenied("assignee outside ticket department")
	}
	if ticket.IsTerminal() {
		return ticket, apperrors.NewConflict("ticket closed", map[string]any{"ticket_id": ticket.ID})
	}
	ticket.AssignedTo = &assignee.ID
	if ticket.Status == domain.TicketStatusOpen || ticket.Status == domain.TicketStatusReopened {
		ticket.Status = domain.TicketStatusAssigned
	}
	ticket.UpdatedAt = now
	return ticket, nil
}

// ValidateComment checks whether actor may comment on ticket and returns
// the effective internal flag. Creators always post external comments;
// the internal flag requires staff capability.
func ValidateComment(actor Actor, ticket domain.Ticket, internal bool) (bool, error) {
	isCreator := ticket.CreatedByID() != "" && actor.ID == ticket.CreatedByID()
	isAssignee := ticket.AssignedTo != nil && actor.ID == *ticket.AssignedTo
	isDeptStaff := staffInDepartment(actor, ticket.Department)

	if !isCreator && !isAssignee && !isDeptStaff {
		return false, apperrors.NewPermissionDenied("only ticket participants may comment")
	}
	if isCreator && !actor.Role.IsStaff() {
		return false, nil
	}
	if internal && !actor.Role.IsStaff() {
		return false, apperrors.NewPermissionDenied("only staff may post internal notes")
	}
	return internal, nil
}

// ValidateRating checks whether actor may rate ticket given any existing
// rating. A rating may exist only once, only by the creator, and only on
// a resolved or closed ticket.
func ValidateRating(actor Actor, ticket domain.Ticket, existing *domain.Rating, stars int) error {
	if ticket.CreatedByID() == "" || actor.ID != ticket.CreatedByID() {
		return apperrors.NewPermissionDenied("only the ticket creator may rate")
	}
	if ticket.Status != domain.TicketStatusResolved && ticket.Status != domain.TicketStatusClosed {
		return apperrors.NewConflict("ticket must be resolved or closed to rate", map[string]any{
			"status": string(ticket.Status),
		})
	}
	if existing != nil {
		return apperrors.NewConflict("ticket already rated", map[string]any{"ticket_id": ticket.ID})
	}
	if stars < 1 || stars > 5 {
		return apperrors.NewValidationError("stars must be between 1 and 5", map[string]any{"stars": stars})
	}
	return nil
}
