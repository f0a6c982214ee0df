package dashboard

import "time"

// Summary is the landing-page snapshot: headline counts each widget needs.
type Summary struct {
	ActiveUsers       int       `json:"active_users"`
	Roles             int       `json:"roles"`
	DocumentsTotal    int       `json:"documents_total"`
	DocumentsExpiring int       `json:"documents_expiring"`
	DocumentsExpired  int       `json:"documents_expired"`
	PermitsPending    int       `json:"permits_pending"`
	GeneratedAt       time.Time `json:"generated_at"`
}
