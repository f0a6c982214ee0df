package documents

import (
	"time"

	"github.com/google/uuid"
)

// Status is derived from the expiry date against a clock; it is never
// stored.
type Status string

const (
	StatusValid    Status = "valid"
	StatusExpiring Status = "expiring"
	StatusExpired  Status = "expired"
)

// Document is a tracked record with an expiry date: work permits held on
// file, contracts, certifications, company registrations.
type Document struct {
	ID         int64      `json:"id"`
	Number     string     `json:"number"`
	Title      string     `json:"title"`
	Type       string     `json:"type"`
	OwnerName  string     `json:"owner_name"`
	OwnerEmail string     `json:"owner_email"`
	IssuedAt   *time.Time `json:"issued_at,omitempty"`
	ExpiresAt  time.Time  `json:"expires_at"`
	Notes      string     `json:"notes,omitempty"`
	UploadID   *uuid.UUID `json:"upload_id,omitempty"`
	Status     Status     `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// ListFilters narrows List output.
type ListFilters struct {
	Page    int
	PerPage int
	Search  string
	Type    string
	Status  Status
}

// StatusAt derives the document status for the given moment and warning
// window.
func (d Document) StatusAt(now time.Time, warnWindow time.Duration) Status {
	switch {
	case !d.ExpiresAt.After(now):
		return StatusExpired
	case d.ExpiresAt.Before(now.Add(warnWindow)):
		return StatusExpiring
	default:
		return StatusValid
	}
}
