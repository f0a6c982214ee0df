package roles

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlas-hr/atlas-hr/internal/platform/httpx"
)

type mockRepository struct {
	roles    map[int64]Role
	assigned map[int64]int
	nextID   int64
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		roles:    make(map[int64]Role),
		assigned: make(map[int64]int),
		nextID:   1,
	}
}

func (m *mockRepository) List(ctx context.Context) ([]Role, error) {
	var out []Role
	for _, role := range m.roles {
		out = append(out, role)
	}
	return out, nil
}

func (m *mockRepository) Get(ctx context.Context, id int64) (Role, error) {
	role, ok := m.roles[id]
	if !ok {
		return Role{}, httpx.ErrNotFound
	}
	return role, nil
}

func (m *mockRepository) Create(ctx context.Context, role Role) (Role, error) {
	for _, existing := range m.roles {
		if existing.Name == role.Name {
			return Role{}, httpx.ErrDuplicate
		}
	}
	role.ID = m.nextID
	m.nextID++
	m.roles[role.ID] = role
	return role, nil
}

func (m *mockRepository) Update(ctx context.Context, id int64, role Role) error {
	if _, ok := m.roles[id]; !ok {
		return httpx.ErrNotFound
	}
	role.ID = id
	role.Grants = m.roles[id].Grants
	m.roles[id] = role
	return nil
}

func (m *mockRepository) ReplaceGrants(ctx context.Context, roleID int64, grants []Grant) error {
	role, ok := m.roles[roleID]
	if !ok {
		return httpx.ErrNotFound
	}
	role.Grants = grants
	m.roles[roleID] = role
	return nil
}

func (m *mockRepository) AssignedUsers(ctx context.Context, roleID int64) (int, error) {
	return m.assigned[roleID], nil
}

func (m *mockRepository) Delete(ctx context.Context, id int64) error {
	if _, ok := m.roles[id]; !ok {
		return httpx.ErrNotFound
	}
	delete(m.roles, id)
	return nil
}

func TestCreateRequiresName(t *testing.T) {
	svc := NewService(newMockRepository(), nil)

	_, err := svc.Create(context.Background(), 1, Role{Name: "   "})
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestCreateDuplicateName(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil)

	_, err := svc.Create(context.Background(), 1, Role{Name: "HR Officer"})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), 1, Role{Name: "HR Officer"})
	assert.ErrorIs(t, err, httpx.ErrDuplicate)
}

func TestUpdateTogglesSuperuser(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil)

	created, err := svc.Create(context.Background(), 1, Role{Name: "Operations"})
	require.NoError(t, err)
	require.False(t, created.Superuser)

	err = svc.Update(context.Background(), 1, created.ID, Role{Name: "Operations", Superuser: true})
	require.NoError(t, err)

	got, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.True(t, got.Superuser)
}

func TestReplaceGrantsRejectsUnknownAction(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil)

	created, err := svc.Create(context.Background(), 1, Role{Name: "Clerk"})
	require.NoError(t, err)

	err = svc.ReplaceGrants(context.Background(), 1, created.ID, []Grant{
		{Module: "documents", Action: "write"},
	})
	assert.ErrorIs(t, err, httpx.ErrValidation)

	got, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Grants)
}

func TestReplaceGrantsCollapsesDuplicates(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil)

	created, err := svc.Create(context.Background(), 1, Role{Name: "Clerk"})
	require.NoError(t, err)

	err = svc.ReplaceGrants(context.Background(), 1, created.ID, []Grant{
		{Module: "documents", Action: "read"},
		{Module: "documents", Action: "read"},
		{Module: "documents", Action: "update"},
	})
	require.NoError(t, err)

	got, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Len(t, got.Grants, 2)
}

func TestDeleteRefusedWhenAssigned(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil)

	created, err := svc.Create(context.Background(), 1, Role{Name: "Clerk"})
	require.NoError(t, err)
	repo.assigned[created.ID] = 3

	err = svc.Delete(context.Background(), 1, created.ID)
	assert.ErrorIs(t, err, httpx.ErrValidation)

	repo.assigned[created.ID] = 0
	require.NoError(t, svc.Delete(context.Background(), 1, created.ID))
	_, err = svc.Get(context.Background(), created.ID)
	assert.ErrorIs(t, err, httpx.ErrNotFound)
}
