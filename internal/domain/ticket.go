package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen           TicketStatus = "OPEN"
	TicketStatusAssigned       TicketStatus = "ASSIGNED"
	TicketStatusInProgress     TicketStatus = "IN_PROGRESS"
	TicketStatusWaitingForUser TicketStatus = "WAITING_FOR_USER"
	TicketStatusResolved       TicketStatus = "RESOLVED"
	TicketStatusClosed         TicketStatus = "CLOSED"
	TicketStatusReopened       TicketStatus = "REOPENED"
)

// ParseTicketStatus validates a status value received at the boundary.
func ParseTicketStatus(raw string) (TicketStatus, bool) {
	switch TicketStatus(raw) {
	case TicketStatusOpen, TicketStatusAssigned, TicketStatusInProgress,
		TicketStatusWaitingForUser, TicketStatusResolved, TicketStatusClosed,
		TicketStatusReopened:
		return TicketStatus(raw), true
	}
	return "", false
}

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "LOW"
	TicketPriorityMedium   TicketPriority = "MEDIUM"
	TicketPriorityHigh     TicketPriority = "HIGH"
	TicketPriorityCritical TicketPriority = "CRITICAL"
)

// ParseTicketPriority validates a priority value received at the boundary.
func ParseTicketPriority(raw string) (TicketPriority, bool) {
	switch TicketPriority(raw) {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityCritical:
		return TicketPriority(raw), true
	}
	return "", false
}

// MaxSubjectLen and MaxDescriptionLen bound submitted ticket content.
const (
	MaxSubjectLen     = 200
	MaxDescriptionLen = 2000
)

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID           string
	ShortCode    string
	Subject      string
	Description  string
	Department   Department
	Category     string
	Status       TicketStatus
	Priority     TicketPriority
	AssignedTo   *string
	CreatedBy    *string
	ContactName  string
	ContactEmail string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	ResolvedAt   *time.Time
}

// IsTerminal reports whether the ticket rejects regular status changes.
// CLOSED tickets can only leave through the explicit reopen transition.
func (t *Ticket) IsTerminal() bool {
	return t.Status == TicketStatusClosed
}

// CreatedByID returns the creator id, empty for anonymous submissions.
func (t *Ticket) CreatedByID() string {
	if t.CreatedBy == nil {
		return ""
	}
	return *t.CreatedBy
}
