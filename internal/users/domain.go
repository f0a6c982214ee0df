package users

import "time"

// User represents a user account for management.
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	RoleID    *int64    `json:"role_id,omitempty"`
	RoleName  string    `json:"role_name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListFilters narrows user listings.
type ListFilters struct {
	Page    int
	PerPage int
	Search  string
	Active  *bool
	RoleID  *int64
}
