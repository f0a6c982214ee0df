package access

// Permission evaluation is a pure function of the user snapshot and the
// query. Nothing here performs I/O, caches, or mutates the snapshot, and
// every function degrades to "no access" on a nil user or role.

// HasPermission reports whether the user's role contains a grant for the
// given module and action.
func HasPermission(u *User, module string, action Action) bool {
	if u == nil || u.Role == nil {
		return false
	}
	if _, ok := ParseAction(string(action)); !ok {
		return false
	}
	for _, p := range u.Role.Permissions {
		if p.Module == module && p.Action == action {
			return true
		}
	}
	return false
}

// HasAnyPermission reports whether at least one of the actions is granted
// for the module.
func HasAnyPermission(u *User, module string, actions ...Action) bool {
	for _, a := range actions {
		if HasPermission(u, module, a) {
			return true
		}
	}
	return false
}

// HasAllPermissions reports whether every action in the set is granted for
// the module. An empty action set is vacuously true.
func HasAllPermissions(u *User, module string, actions ...Action) bool {
	for _, a := range actions {
		if !HasPermission(u, module, a) {
			return false
		}
	}
	return true
}

// HasFullAccess reports whether all four canonical actions are granted.
func HasFullAccess(u *User, module string) bool {
	return HasAllPermissions(u, module, Actions()...)
}

// AccessibleModules returns the distinct module names across the user's
// grants. Order is not significant; duplicates collapse.
func AccessibleModules(u *User) []string {
	if u == nil || u.Role == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(u.Role.Permissions))
	modules := make([]string, 0, len(u.Role.Permissions))
	for _, p := range u.Role.Permissions {
		if _, ok := seen[p.Module]; ok {
			continue
		}
		seen[p.Module] = struct{}{}
		modules = append(modules, p.Module)
	}
	return modules
}

// ModuleActions returns the canonical actions granted for the module.
// Grants whose action fell outside the enumeration were already discarded
// at the parse boundary and never appear here.
func ModuleActions(u *User, module string) []Action {
	if u == nil || u.Role == nil {
		return nil
	}
	seen := make(map[Action]struct{}, 4)
	actions := make([]Action, 0, 4)
	for _, p := range u.Role.Permissions {
		if p.Module != module {
			continue
		}
		if _, valid := ParseAction(string(p.Action)); !valid {
			continue
		}
		if _, ok := seen[p.Action]; ok {
			continue
		}
		seen[p.Action] = struct{}{}
		actions = append(actions, p.Action)
	}
	return actions
}

// Summary is the per-module CRUD capability view consumed by the console.
type Summary struct {
	CanCreate bool `json:"can_create"`
	CanRead   bool `json:"can_read"`
	CanUpdate bool `json:"can_update"`
	CanDelete bool `json:"can_delete"`
}

// PermissionSummary computes the four capabilities independently.
func PermissionSummary(u *User, module string) Summary {
	return Summary{
		CanCreate: HasPermission(u, module, ActionCreate),
		CanRead:   HasPermission(u, module, ActionRead),
		CanUpdate: HasPermission(u, module, ActionUpdate),
		CanDelete: HasPermission(u, module, ActionDelete),
	}
}

// IsAdmin reports whether the user's role carries the superuser capability.
func IsAdmin(u *User) bool {
	return u != nil && u.Role != nil && u.Role.Superuser
}
