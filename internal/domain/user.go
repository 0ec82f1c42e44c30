package domain

import "time"

// User is the domain model for end-users who submit tickets.
type User struct {
	ID        string
	Name      string
	Email     string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
