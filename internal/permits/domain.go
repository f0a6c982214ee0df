package permits

import (
	"time"

	"github.com/google/uuid"
)

// Status enumerates the permit workflow states. Approved and Rejected are
// terminal.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSubmitted Status = "submitted"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
)

// Permit is a request that walks Draft -> Submitted -> Approved | Rejected.
type Permit struct {
	ID            int64      `json:"id"`
	Ref           uuid.UUID  `json:"ref"`
	Title         string     `json:"title"`
	Kind          string     `json:"kind"`
	Description   string     `json:"description,omitempty"`
	RequesterID   int64      `json:"requester_id"`
	RequesterName string     `json:"requester_name,omitempty"`
	Status        Status     `json:"status"`
	DecisionNote  string     `json:"decision_note,omitempty"`
	DecidedBy     *int64     `json:"decided_by,omitempty"`
	DecidedAt     *time.Time `json:"decided_at,omitempty"`
	SubmittedAt   *time.Time `json:"submitted_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// ListFilters narrows List output.
type ListFilters struct {
	Page        int
	PerPage     int
	Status      Status
	RequesterID *int64
	Search      string
}

// CanTransition reports whether moving from the current status to the target
// is a legal workflow step.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusDraft:
		return to == StatusSubmitted
	case StatusSubmitted:
		return to == StatusApproved || to == StatusRejected
	default:
		return false
	}
}
