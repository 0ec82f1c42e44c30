package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-core/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Subject      string `json:"subject" validate:"required,max=200"`
	Description  string `json:"description" validate:"required,max=2000"`
	Department   string `json:"department" validate:"required"`
	Category     string `json:"category,omitempty"`
	Priority     string `json:"priority,omitempty"`
	ContactName  string `json:"contact_name,omitempty"`
	ContactEmail string `json:"contact_email,omitempty" validate:"omitempty,email"`
}

// AssignRequest payload.
type AssignRequest struct {
	StaffID string `json:"staff_id" validate:"required"`
}

// ChangeStatusRequest payload.
type ChangeStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// ChangePriorityRequest payload.
type ChangePriorityRequest struct {
	Priority string `json:"priority" validate:"required"`
}

// ReopenRequest payload.
type ReopenRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// AddCommentRequest payload.
type AddCommentRequest struct {
	Body       string `json:"body" validate:"required"`
	IsInternal bool   `json:"is_internal,omitempty"`
}

// AddAttachmentRequest records metadata for a blob already uploaded to
// external storage.
type AddAttachmentRequest struct {
	StorageKey string `json:"storage_key" validate:"required"`
	FileName   string `json:"file_name" validate:"required"`
	MimeType   string `json:"mime_type,omitempty"`
	SizeBytes  int64  `json:"size_bytes" validate:"min=0"`
}

// RateTicketRequest payload.
type RateTicketRequest struct {
	Stars   int    `json:"stars" validate:"required,min=1,max=5"`
	Comment string `json:"comment,omitempty"`
}

// BulkAssignRequest payload.
type BulkAssignRequest struct {
	TicketIDs []string `json:"ticket_ids" validate:"required,min=1"`
	StaffID   string   `json:"staff_id" validate:"required"`
}

// BulkChangeStatusRequest payload.
type BulkChangeStatusRequest struct {
	TicketIDs []string `json:"ticket_ids" validate:"required,min=1"`
	Status    string   `json:"status" validate:"required"`
}

// TicketSummary response.
type TicketSummary struct {
	ID         string                `json:"id"`
	ShortCode  string                `json:"short_code"`
	Subject    string                `json:"subject"`
	Department domain.Department     `json:"department"`
	Category   string                `json:"category,omitempty"`
	Status     domain.TicketStatus   `json:"status"`
	Priority   domain.TicketPriority `json:"priority"`
	AssignedTo *string               `json:"assigned_to"`
	CreatedAt  time.Time             `json:"created_at"`
	UpdatedAt  time.Time             `json:"updated_at"`
	ResolvedAt *time.Time            `json:"resolved_at,omitempty"`
}

// TicketListResponse is one page of results. NextCursor is present only
// for cursor-based requests with more rows remaining.
type TicketListResponse struct {
	Data       []TicketSummary `json:"data"`
	HasMore    bool            `json:"has_more"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

// CommentResponse represents a thread entry.
type CommentResponse struct {
	ID         string    `json:"id"`
	AuthorID   *string   `json:"author_id,omitempty"`
	AuthorName string    `json:"author_name"`
	Internal   bool      `json:"internal"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"created_at"`
}

// AttachmentResponse represents attachment metadata.
type AttachmentResponse struct {
	ID         string    `json:"id"`
	UploadedBy *string   `json:"uploaded_by,omitempty"`
	StorageKey string    `json:"storage_key"`
	FileName   string    `json:"file_name"`
	MimeType   string    `json:"mime_type,omitempty"`
	SizeBytes  int64     `json:"size_bytes"`
	CreatedAt  time.Time `json:"created_at"`
}

// ReopenResponse represents one audited reopen.
type ReopenResponse struct {
	ID         string    `json:"id"`
	ReopenedBy string    `json:"reopened_by"`
	Reason     string    `json:"reason"`
	CreatedAt  time.Time `json:"created_at"`
}

// RatingResponse represents the ticket's rating.
type RatingResponse struct {
	Stars     int       `json:"stars"`
	Comment   string    `json:"comment,omitempty"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	TicketSummary
	Description string               `json:"description"`
	CreatorName string               `json:"creator_name,omitempty"`
	ContactName string               `json:"contact_name,omitempty"`
	Comments    []CommentResponse    `json:"comments"`
	Attachments []AttachmentResponse `json:"attachments"`
	Reopens     []ReopenResponse     `json:"reopens"`
	Rating      *RatingResponse      `json:"rating,omitempty"`
}
