package access

import "time"

// Action is one of the four canonical CRUD operations a permission can grant.
type Action string

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Actions lists the canonical actions in a stable order.
func Actions() []Action {
	return []Action{ActionCreate, ActionRead, ActionUpdate, ActionDelete}
}

// ParseAction maps a stored action string onto the closed enumeration.
// Unrecognized values report false and must be discarded by the caller;
// they never participate in permission evaluation.
func ParseAction(raw string) (Action, bool) {
	switch Action(raw) {
	case ActionCreate, ActionRead, ActionUpdate, ActionDelete:
		return Action(raw), true
	}
	return "", false
}

// Permission is an atomic (module, action) grant. Resource is informational
// only and never consulted during evaluation.
type Permission struct {
	Module   string `json:"module"`
	Action   Action `json:"action"`
	Resource string `json:"resource,omitempty"`
}

// Role is a named bundle of permission grants. Superuser is an explicit
// capability bit; admin status is decided by it, not by the display name.
type Role struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Superuser   bool         `json:"superuser"`
	Permissions []Permission `json:"permissions"`
}

// User is the immutable per-session snapshot handed to permission queries.
// A nil User or a User without a Role evaluates to zero permissions.
type User struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	IsActive bool   `json:"is_active"`
	Role     *Role  `json:"role,omitempty"`

	ResolvedAt time.Time `json:"resolved_at"`
}

// Module names permissions are scoped to in this application.
const (
	ModuleUsers     = "users"
	ModuleRoles     = "roles"
	ModuleDocuments = "documents"
	ModulePermits   = "permits"
	ModuleReports   = "reports"
	ModuleDashboard = "dashboard"
)

// Modules lists every module the console knows about.
func Modules() []string {
	return []string{
		ModuleUsers,
		ModuleRoles,
		ModuleDocuments,
		ModulePermits,
		ModuleReports,
		ModuleDashboard,
	}
}

// Legacy role display names that imply the superuser capability. Rows
// provisioned by the previous console carry no capability column, so the
// storage boundary derives the flag from these exact names.
var legacySuperuserNames = map[string]struct{}{
	"Admin":       {},
	"Super Admin": {},
}

// LegacySuperuserName reports whether the display name implied admin status
// in the previous console. The match is exact and case sensitive.
func LegacySuperuserName(name string) bool {
	_, ok := legacySuperuserNames[name]
	return ok
}
