package access

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Source loads the user/role/permission snapshot from storage.
type Source interface {
	FetchUser(ctx context.Context, userID int64) (*User, error)
}

// ErrNoUser indicates the session references a user that no longer exists
// or has been deactivated.
var ErrNoUser = errors.New("access: user not resolvable")

// Resolver is the single idempotent "resolve current user" operation shared
// by the interactive login path and the auth-state bootstrap path.
// Concurrent triggers for the same session collapse into one fetch, and
// publication is last-trigger-wins: a resolution carrying an older
// generation than the published snapshot is dropped, so the console never
// observes a role from one resolution paired with permissions from another.
type Resolver struct {
	source Source
	logger *slog.Logger
	group  singleflight.Group
	clock  func() time.Time

	mu        sync.Mutex
	gen       uint64
	published map[string]snapshotEntry
}

type snapshotEntry struct {
	user *User
	gen  uint64
}

// NewResolver constructs a Resolver over the given source.
func NewResolver(source Source, logger *slog.Logger) *Resolver {
	return &Resolver{
		source:    source,
		logger:    logger,
		clock:     func() time.Time { return time.Now().UTC() },
		published: make(map[string]snapshotEntry),
	}
}

// Resolve fetches the snapshot for the session's user and publishes it.
// The generation is taken at trigger time, before the fetch, so ordering
// follows the triggers rather than fetch completion timing.
func (r *Resolver) Resolve(ctx context.Context, sessionID string, userID int64) (*User, error) {
	if sessionID == "" || userID <= 0 {
		return nil, ErrNoUser
	}
	gen := r.nextGen()

	key := fmt.Sprintf("%s:%d", sessionID, userID)
	resultChan := r.group.DoChan(key, func() (interface{}, error) {
		user, err := r.source.FetchUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		if user == nil || !user.IsActive {
			return nil, ErrNoUser
		}
		user.ResolvedAt = r.clock()
		return user, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			if r.logger != nil && !errors.Is(res.Err, ErrNoUser) {
				r.logger.Error("resolve user", slog.Int64("user_id", userID), slog.Any("error", res.Err))
			}
			return nil, res.Err
		}
		user := res.Val.(*User)
		r.publish(sessionID, user, gen)
		return user, nil
	}
}

// Current returns the published snapshot for the session, if any.
func (r *Resolver) Current(sessionID string) (*User, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.published[sessionID]
	if !ok {
		return nil, false
	}
	return entry.user, true
}

// Invalidate drops the published snapshot on logout or role reassignment.
func (r *Resolver) Invalidate(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.published, sessionID)
}

func (r *Resolver) nextGen() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gen++
	return r.gen
}

func (r *Resolver) publish(sessionID string, user *User, gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.published[sessionID]; ok && entry.gen > gen {
		return
	}
	r.published[sessionID] = snapshotEntry{user: user, gen: gen}
}
