package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func userWithGrants(perms ...Permission) *User {
	return &User{
		ID:       1,
		Email:    "staff@atlas.local",
		IsActive: true,
		Role:     &Role{ID: 1, Name: "HR Officer", Permissions: perms},
	}
}

func TestHasPermission(t *testing.T) {
	u := userWithGrants(
		Permission{Module: ModuleDocuments, Action: ActionRead},
		Permission{Module: ModuleDocuments, Action: ActionCreate},
		Permission{Module: ModulePermits, Action: ActionRead},
	)

	assert.True(t, HasPermission(u, ModuleDocuments, ActionRead))
	assert.True(t, HasPermission(u, ModuleDocuments, ActionCreate))
	assert.False(t, HasPermission(u, ModuleDocuments, ActionDelete))
	assert.False(t, HasPermission(u, ModulePermits, ActionCreate))
	assert.False(t, HasPermission(u, ModuleUsers, ActionRead))
}

func TestHasPermissionNilUser(t *testing.T) {
	for _, action := range Actions() {
		assert.False(t, HasPermission(nil, ModuleDocuments, action))
	}
}

func TestHasPermissionRolelessUser(t *testing.T) {
	u := &User{ID: 7, IsActive: true}
	assert.False(t, HasPermission(u, ModuleDocuments, ActionRead))
	assert.Empty(t, AccessibleModules(u))
	assert.Empty(t, ModuleActions(u, ModuleDocuments))
}

func TestHasAnyPermission(t *testing.T) {
	u := userWithGrants(Permission{Module: ModulePermits, Action: ActionUpdate})

	assert.True(t, HasAnyPermission(u, ModulePermits, ActionRead, ActionUpdate))
	assert.False(t, HasAnyPermission(u, ModulePermits, ActionRead, ActionDelete))
	assert.False(t, HasAnyPermission(u, ModulePermits))
}

func TestHasAllPermissions(t *testing.T) {
	u := userWithGrants(
		Permission{Module: ModuleUsers, Action: ActionRead},
		Permission{Module: ModuleUsers, Action: ActionUpdate},
	)

	assert.True(t, HasAllPermissions(u, ModuleUsers, ActionRead, ActionUpdate))
	assert.False(t, HasAllPermissions(u, ModuleUsers, ActionRead, ActionDelete))
}

func TestHasAllPermissionsEmptySetIsVacuouslyTrue(t *testing.T) {
	assert.True(t, HasAllPermissions(nil, ModuleUsers))
	assert.True(t, HasAllPermissions(userWithGrants(), ModuleUsers))
}

func TestHasFullAccessMatchesAllFourActions(t *testing.T) {
	full := userWithGrants(
		Permission{Module: ModuleRoles, Action: ActionCreate},
		Permission{Module: ModuleRoles, Action: ActionRead},
		Permission{Module: ModuleRoles, Action: ActionUpdate},
		Permission{Module: ModuleRoles, Action: ActionDelete},
	)
	partial := userWithGrants(
		Permission{Module: ModuleRoles, Action: ActionCreate},
		Permission{Module: ModuleRoles, Action: ActionRead},
	)

	assert.True(t, HasFullAccess(full, ModuleRoles))
	assert.Equal(t, HasAllPermissions(full, ModuleRoles, Actions()...), HasFullAccess(full, ModuleRoles))
	assert.False(t, HasFullAccess(partial, ModuleRoles))
	assert.False(t, HasFullAccess(nil, ModuleRoles))
}

func TestAccessibleModulesDeduplicates(t *testing.T) {
	u := userWithGrants(
		Permission{Module: ModuleDocuments, Action: ActionRead},
		Permission{Module: ModuleDocuments, Action: ActionUpdate},
		Permission{Module: ModulePermits, Action: ActionRead},
	)

	assert.ElementsMatch(t, []string{ModuleDocuments, ModulePermits}, AccessibleModules(u))
	assert.Empty(t, AccessibleModules(nil))
}

func TestModuleActionsExcludesNonCanonicalGrants(t *testing.T) {
	// Grants can arrive from storage with free-form action strings; the
	// parse boundary discards them, and evaluation treats any survivor
	// that is still non-canonical as inert.
	u := userWithGrants(
		Permission{Module: "HR", Action: ActionRead},
		Permission{Module: "HR", Action: Action("write")},
	)

	assert.True(t, HasPermission(u, "HR", ActionRead))
	assert.False(t, HasPermission(u, "HR", ActionCreate))
	assert.False(t, HasPermission(u, "HR", Action("write")))
	assert.Equal(t, []Action{ActionRead}, ModuleActions(u, "HR"))
}

func TestModuleActionsOnlyWriteGrant(t *testing.T) {
	u := userWithGrants(Permission{Module: "HR", Action: Action("write")})
	assert.Empty(t, ModuleActions(u, "HR"))
}

func TestPermissionSummaryReadOnly(t *testing.T) {
	u := userWithGrants(Permission{Module: "Finance", Action: ActionRead})

	got := PermissionSummary(u, "Finance")
	assert.Equal(t, Summary{CanRead: true}, got)
}

func TestPermissionSummaryIndependentActions(t *testing.T) {
	u := userWithGrants(
		Permission{Module: ModuleDocuments, Action: ActionCreate},
		Permission{Module: ModuleDocuments, Action: ActionDelete},
	)

	got := PermissionSummary(u, ModuleDocuments)
	assert.Equal(t, Summary{CanCreate: true, CanDelete: true}, got)
}

func TestIsAdminReadsCapabilityBit(t *testing.T) {
	admin := &User{ID: 1, IsActive: true, Role: &Role{Name: "People Ops", Superuser: true}}
	staff := &User{ID: 2, IsActive: true, Role: &Role{Name: "HR Officer"}}

	assert.True(t, IsAdmin(admin))
	assert.False(t, IsAdmin(staff))
	assert.False(t, IsAdmin(nil))
	assert.False(t, IsAdmin(&User{ID: 3}))
}

func TestLegacySuperuserNameExactMatchOnly(t *testing.T) {
	assert.True(t, LegacySuperuserName("Admin"))
	assert.True(t, LegacySuperuserName("Super Admin"))
	assert.False(t, LegacySuperuserName("super admin"))
	assert.False(t, LegacySuperuserName("admin"))
	assert.False(t, LegacySuperuserName("Super Administrator"))
	assert.False(t, LegacySuperuserName("Administrator"))
	assert.False(t, LegacySuperuserName(""))
}

func TestParseAction(t *testing.T) {
	cases := []struct {
		raw   string
		want  Action
		valid bool
	}{
		{"create", ActionCreate, true},
		{"read", ActionRead, true},
		{"update", ActionUpdate, true},
		{"delete", ActionDelete, true},
		{"write", "", false},
		{"READ", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := ParseAction(tc.raw)
		require.Equal(t, tc.valid, ok, "ParseAction(%q)", tc.raw)
		assert.Equal(t, tc.want, got, "ParseAction(%q)", tc.raw)
	}
}

func TestDuplicateGrantsAreRedundantNotConflicting(t *testing.T) {
	u := userWithGrants(
		Permission{Module: ModulePermits, Action: ActionRead},
		Permission{Module: ModulePermits, Action: ActionRead},
	)

	assert.True(t, HasPermission(u, ModulePermits, ActionRead))
	assert.Equal(t, []Action{ActionRead}, ModuleActions(u, ModulePermits))
	assert.Equal(t, []string{ModulePermits}, AccessibleModules(u))
}
