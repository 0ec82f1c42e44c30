package events

import (
	"time"

	"github.com/spec-kit/helpdesk-core/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated   EventType = "ticket-created"
	EventTicketAssigned  EventType = "ticket-assigned"
	EventStatusChanged   EventType = "status-changed"
	EventPriorityChanged EventType = "priority-changed"
	EventCommentAdded    EventType = "comment-added"
	EventTicketReopened  EventType = "ticket-reopened"
	EventRatingAdded     EventType = "rating-added"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	ID   string           `json:"id,omitempty"`
	Role domain.ActorRole `json:"role"`
}

// Event is the transient envelope fanned out to connected viewers. Never
// stored; a subscriber that connects after publish does not receive it.
type Event struct {
	ID         string            `json:"id"`
	Type       EventType         `json:"type"`
	Department domain.Department `json:"department"`
	TicketID   string            `json:"ticket_id"`
	Actor      Actor             `json:"actor"`
	Internal   bool              `json:"internal,omitempty"`
	Payload    interface{}       `json:"payload"`
	EmittedAt  time.Time         `json:"emitted_at"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	ShortCode string                `json:"short_code"`
	Subject   string                `json:"subject"`
	Priority  domain.TicketPriority `json:"priority"`
	Status    domain.TicketStatus   `json:"status"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	AssignedTo *string             `json:"assigned_to,omitempty"`
	NewStatus  domain.TicketStatus `json:"new_status"`
}

// StatusChangedPayload payload.
type StatusChangedPayload struct {
	OldStatus  domain.TicketStatus `json:"old_status"`
	NewStatus  domain.TicketStatus `json:"new_status"`
	ResolvedAt *time.Time          `json:"resolved_at,omitempty"`
}

// PriorityChangedPayload payload.
type PriorityChangedPayload struct {
	OldPriority domain.TicketPriority `json:"old_priority"`
	NewPriority domain.TicketPriority `json:"new_priority"`
}

// CommentAddedPayload payload.
type CommentAddedPayload struct {
	CommentID  string    `json:"comment_id"`
	AuthorID   *string   `json:"author_id,omitempty"`
	AuthorName string    `json:"author_name"`
	Internal   bool      `json:"internal"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"created_at"`
}

// TicketReopenedPayload payload.
type TicketReopenedPayload struct {
	Reason    string              `json:"reason"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// RatingAddedPayload payload.
type RatingAddedPayload struct {
	Stars   int    `json:"stars"`
	Comment string `json:"comment,omitempty"`
}
