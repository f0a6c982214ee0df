package roles

import "time"

// Role represents a named set of grants assignable to users.
type Role struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Superuser   bool      `json:"superuser"`
	UserCount   int       `json:"user_count"`
	Grants      []Grant   `json:"grants,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Grant is a single module/action pair held by a role. Resource narrows the
// grant to a subset of the module when non-empty.
type Grant struct {
	Module   string `json:"module"`
	Action   string `json:"action"`
	Resource string `json:"resource,omitempty"`
}
