package domain

import "time"

// Comment is an append-only entry in a ticket thread. Comments are never
// edited or deleted. Internal comments are visible to staff only.
type Comment struct {
	ID         string
	TicketID   string
	AuthorID   *string
	AuthorName string
	Internal   bool
	Body       string
	CreatedAt  time.Time
}

// Attachment stores append-only metadata for an uploaded file. Blob
// storage itself is owned by an external collaborator.
type Attachment struct {
	ID         string
	TicketID   string
	UploadedBy *string
	StorageKey string
	FileName   string
	MimeType   string
	SizeBytes  int64
	CreatedAt  time.Time
}
