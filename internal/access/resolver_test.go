package access

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	mu      sync.Mutex
	users   map[int64]*User
	fetches atomic.Int64
	delay   time.Duration
	block   chan struct{}
}

func (s *stubSource) FetchUser(ctx context.Context, userID int64) (*User, error) {
	s.fetches.Add(1)
	if s.block != nil {
		<-s.block
	}
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return nil, ErrNoUser
	}
	clone := *user
	if user.Role != nil {
		role := *user.Role
		role.Permissions = append([]Permission(nil), user.Role.Permissions...)
		clone.Role = &role
	}
	return &clone, nil
}

func (s *stubSource) setRole(userID int64, role *Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[userID].Role = role
}

func activeUser(id int64, role *Role) *User {
	return &User{ID: id, Email: "user@atlas.local", IsActive: true, Role: role}
}

func TestResolvePublishesSnapshot(t *testing.T) {
	src := &stubSource{users: map[int64]*User{
		1: activeUser(1, &Role{ID: 1, Name: "HR Officer", Permissions: []Permission{
			{Module: ModuleDocuments, Action: ActionRead},
		}}),
	}}
	r := NewResolver(src, nil)

	user, err := r.Resolve(context.Background(), "sess-1", 1)
	require.NoError(t, err)
	require.NotNil(t, user.Role)
	assert.True(t, HasPermission(user, ModuleDocuments, ActionRead))
	assert.False(t, user.ResolvedAt.IsZero())

	current, ok := r.Current("sess-1")
	require.True(t, ok)
	assert.Equal(t, user, current)
}

func TestResolveRejectsUnknownOrInactive(t *testing.T) {
	src := &stubSource{users: map[int64]*User{
		2: {ID: 2, IsActive: false},
	}}
	r := NewResolver(src, nil)

	_, err := r.Resolve(context.Background(), "sess-1", 99)
	assert.ErrorIs(t, err, ErrNoUser)

	_, err = r.Resolve(context.Background(), "sess-1", 2)
	assert.ErrorIs(t, err, ErrNoUser)

	_, ok := r.Current("sess-1")
	assert.False(t, ok)
}

func TestResolveEmptySession(t *testing.T) {
	r := NewResolver(&stubSource{users: map[int64]*User{}}, nil)
	_, err := r.Resolve(context.Background(), "", 1)
	assert.ErrorIs(t, err, ErrNoUser)
	_, err = r.Resolve(context.Background(), "sess", 0)
	assert.ErrorIs(t, err, ErrNoUser)
}

func TestConcurrentTriggersCollapseIntoOneFetch(t *testing.T) {
	src := &stubSource{
		users: map[int64]*User{1: activeUser(1, &Role{ID: 1, Name: "HR Officer"})},
		block: make(chan struct{}),
	}
	r := NewResolver(src, nil)

	var wg sync.WaitGroup
	results := make([]*User, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			user, err := r.Resolve(context.Background(), "sess-1", 1)
			assert.NoError(t, err)
			results[i] = user
		}(i)
	}
	// Let all four triggers pile onto the in-flight fetch before it
	// completes.
	time.Sleep(20 * time.Millisecond)
	close(src.block)
	wg.Wait()

	assert.Equal(t, int64(1), src.fetches.Load())
	for _, user := range results {
		assert.Equal(t, results[0], user)
	}
}

func TestLastTriggerWinsOverStalePublication(t *testing.T) {
	// Two resolution paths race: an older trigger whose fetch completes
	// last must not clobber the snapshot published by a newer trigger.
	src := &stubSource{users: map[int64]*User{
		1: activeUser(1, &Role{ID: 1, Name: "HR Officer", Permissions: []Permission{
			{Module: ModuleDocuments, Action: ActionRead},
		}}),
	}}
	r := NewResolver(src, nil)

	staleGen := r.nextGen()
	staleUser, err := src.FetchUser(context.Background(), 1)
	require.NoError(t, err)

	src.setRole(1, &Role{ID: 2, Name: "People Ops", Superuser: true, Permissions: []Permission{
		{Module: ModuleDocuments, Action: ActionRead},
		{Module: ModuleUsers, Action: ActionRead},
	}})
	fresh, err := r.Resolve(context.Background(), "sess-1", 1)
	require.NoError(t, err)
	require.Equal(t, "People Ops", fresh.Role.Name)

	// The stale resolution lands after the fresh one.
	r.publish("sess-1", staleUser, staleGen)

	current, ok := r.Current("sess-1")
	require.True(t, ok)
	assert.Equal(t, "People Ops", current.Role.Name)
	assert.True(t, IsAdmin(current))
}

func TestInvalidateDropsSnapshot(t *testing.T) {
	src := &stubSource{users: map[int64]*User{1: activeUser(1, nil)}}
	r := NewResolver(src, nil)

	_, err := r.Resolve(context.Background(), "sess-1", 1)
	require.NoError(t, err)
	r.Invalidate("sess-1")

	_, ok := r.Current("sess-1")
	assert.False(t, ok)
}
