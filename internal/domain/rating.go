package domain

import "time"

// Rating is the single satisfaction score a ticket's creator may leave
// once the ticket is resolved or closed.
type Rating struct {
	ID        string
	TicketID  string
	Stars     int
	Comment   string
	CreatedBy string
	CreatedAt time.Time
}

// ReopenEntry records one audited reopen transition.
type ReopenEntry struct {
	ID         string
	TicketID   string
	ReopenedBy string
	Reason     string
	CreatedAt  time.Time
}
