package domain

import "time"

// ActorRole enumerates the capabilities of an authenticated caller.
type ActorRole string

const (
	RoleUser  ActorRole = "USER"
	RoleStaff ActorRole = "STAFF"
	RoleHead  ActorRole = "HEAD"
	RoleAdmin ActorRole = "ADMIN"
)

// IsStaff reports whether the role carries staff capabilities.
func (r ActorRole) IsStaff() bool {
	return r == RoleStaff || r == RoleHead || r == RoleAdmin
}

// CanChangePriority reports whether the role carries department-head
// capabilities.
func (r ActorRole) CanChangePriority() bool {
	return r == RoleHead || r == RoleAdmin
}

// StaffMember models a support agent, department head or administrator.
type StaffMember struct {
	ID         string
	Name       string
	Email      string
	Role       ActorRole
	Department Department
	Active     bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
