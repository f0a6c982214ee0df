package roles

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/atlas-hr/atlas-hr/internal/access"
	"github.com/atlas-hr/atlas-hr/internal/platform/httpx"
	"github.com/atlas-hr/atlas-hr/internal/shared"
)

// RepositoryPort defines data access methods for roles.
type RepositoryPort interface {
	List(ctx context.Context) ([]Role, error)
	Get(ctx context.Context, id int64) (Role, error)
	Create(ctx context.Context, role Role) (Role, error)
	Update(ctx context.Context, id int64, role Role) error
	ReplaceGrants(ctx context.Context, roleID int64, grants []Grant) error
	AssignedUsers(ctx context.Context, roleID int64) (int, error)
	Delete(ctx context.Context, id int64) error
}

// Service handles role business logic.
type Service struct {
	repo  RepositoryPort
	audit *shared.AuditLogger
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, audit *shared.AuditLogger) *Service {
	return &Service{repo: repo, audit: audit}
}

// List returns all roles.
func (s *Service) List(ctx context.Context) ([]Role, error) {
	return s.repo.List(ctx)
}

// Get fetches a single role with its grants.
func (s *Service) Get(ctx context.Context, id int64) (Role, error) {
	if id <= 0 {
		return Role{}, fmt.Errorf("%w: invalid role id", httpx.ErrValidation)
	}
	return s.repo.Get(ctx, id)
}

// Create registers a new role.
func (s *Service) Create(ctx context.Context, actorID int64, role Role) (Role, error) {
	role.Name = strings.TrimSpace(role.Name)
	role.Description = strings.TrimSpace(role.Description)
	if role.Name == "" {
		return Role{}, fmt.Errorf("%w: name is required", httpx.ErrValidation)
	}
	created, err := s.repo.Create(ctx, role)
	if err != nil {
		return Role{}, err
	}
	s.recordAudit(ctx, actorID, "role.create", created.ID)
	return created, nil
}

// Update replaces the role's name, description and superuser capability.
// Sessions resolved against the old definition keep it until their next
// resolution.
func (s *Service) Update(ctx context.Context, actorID, id int64, role Role) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid role id", httpx.ErrValidation)
	}
	role.Name = strings.TrimSpace(role.Name)
	role.Description = strings.TrimSpace(role.Description)
	if role.Name == "" {
		return fmt.Errorf("%w: name is required", httpx.ErrValidation)
	}
	if err := s.repo.Update(ctx, id, role); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "role.update", id)
	return nil
}

// ReplaceGrants swaps the role's grant set. Grants with an unknown action
// are rejected outright rather than silently dropped, and exact duplicates
// collapse to one row.
func (s *Service) ReplaceGrants(ctx context.Context, actorID, id int64, grants []Grant) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid role id", httpx.ErrValidation)
	}
	seen := make(map[Grant]struct{}, len(grants))
	cleaned := make([]Grant, 0, len(grants))
	for _, g := range grants {
		g.Module = strings.TrimSpace(g.Module)
		if g.Module == "" {
			return fmt.Errorf("%w: grant module is required", httpx.ErrValidation)
		}
		action, ok := access.ParseAction(g.Action)
		if !ok {
			return fmt.Errorf("%w: unknown action %q", httpx.ErrValidation, g.Action)
		}
		g.Action = string(action)
		if _, dup := seen[g]; dup {
			continue
		}
		seen[g] = struct{}{}
		cleaned = append(cleaned, g)
	}
	if err := s.repo.ReplaceGrants(ctx, id, cleaned); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "role.grants_replace", id)
	return nil
}

// Delete removes a role. Roles still assigned to accounts are refused so a
// live user never dangles on a missing role.
func (s *Service) Delete(ctx context.Context, actorID, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid role id", httpx.ErrValidation)
	}
	assigned, err := s.repo.AssignedUsers(ctx, id)
	if err != nil {
		return err
	}
	if assigned > 0 {
		return fmt.Errorf("%w: role is assigned to %d account(s)", httpx.ErrValidation, assigned)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "role.delete", id)
	return nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, roleID int64) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "role",
		EntityID: strconv.FormatInt(roleID, 10),
	})
}
