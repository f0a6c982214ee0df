package users

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/atlas-hr/atlas-hr/internal/platform/httpx"
	"github.com/atlas-hr/atlas-hr/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	List(ctx context.Context, filters ListFilters) ([]User, int, error)
	Get(ctx context.Context, id int64) (User, error)
	Create(ctx context.Context, u User, passwordHash string) (User, error)
	Update(ctx context.Context, id int64, u User) error
	SetActive(ctx context.Context, id int64, active bool) error
	AssignRole(ctx context.Context, id int64, roleID *int64) error
}

// Service handles user business logic.
type Service struct {
	repo     RepositoryPort
	audit    *shared.AuditLogger
	collator *collate.Collator
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, audit *shared.AuditLogger) *Service {
	return &Service{
		repo:     repo,
		audit:    audit,
		collator: collate.New(language.English, collate.IgnoreCase),
	}
}

// List returns users matching the filters plus the unpaged total. The page
// is re-sorted with a collator because the database's byte order puts
// accented and mixed-case names in surprising places.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]User, int, error) {
	if filters.Page < 1 {
		filters.Page = 1
	}
	if filters.PerPage < 1 {
		filters.PerPage = 20
	}
	users, total, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, 0, err
	}
	sort.SliceStable(users, func(i, j int) bool {
		if c := s.collator.CompareString(users[i].Name, users[j].Name); c != 0 {
			return c < 0
		}
		return users[i].ID < users[j].ID
	})
	return users, total, nil
}

// Get fetches a single user.
func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	if id <= 0 {
		return User{}, fmt.Errorf("%w: invalid user id", httpx.ErrValidation)
	}
	return s.repo.Get(ctx, id)
}

// Create provisions a new account with a hashed password.
func (s *Service) Create(ctx context.Context, actorID int64, u User, password string) (User, error) {
	u.Email = strings.TrimSpace(strings.ToLower(u.Email))
	u.Name = strings.TrimSpace(u.Name)
	if u.Email == "" {
		return User{}, fmt.Errorf("%w: email is required", httpx.ErrValidation)
	}
	if u.Name == "" {
		return User{}, fmt.Errorf("%w: name is required", httpx.ErrValidation)
	}
	if len(password) < 8 {
		return User{}, fmt.Errorf("%w: password must be at least 8 characters", httpx.ErrValidation)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}
	created, err := s.repo.Create(ctx, u, string(hash))
	if err != nil {
		return User{}, err
	}
	s.recordAudit(ctx, actorID, "user.create", created.ID)
	return created, nil
}

// Update replaces the mutable fields of an account.
func (s *Service) Update(ctx context.Context, actorID, id int64, u User) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid user id", httpx.ErrValidation)
	}
	u.Email = strings.TrimSpace(strings.ToLower(u.Email))
	u.Name = strings.TrimSpace(u.Name)
	if u.Email == "" || u.Name == "" {
		return fmt.Errorf("%w: email and name are required", httpx.ErrValidation)
	}
	if err := s.repo.Update(ctx, id, u); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "user.update", id)
	return nil
}

// SetActive toggles account activation. Deactivation takes effect on the
// account's next session resolution.
func (s *Service) SetActive(ctx context.Context, actorID, id int64, active bool) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid user id", httpx.ErrValidation)
	}
	if actorID == id && !active {
		return fmt.Errorf("%w: cannot deactivate your own account", httpx.ErrValidation)
	}
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return err
	}
	action := "user.deactivate"
	if active {
		action = "user.activate"
	}
	s.recordAudit(ctx, actorID, action, id)
	return nil
}

// AssignRole points the account at a role. The new grants apply from the
// next session resolution, not retroactively to live sessions.
func (s *Service) AssignRole(ctx context.Context, actorID, id int64, roleID *int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid user id", httpx.ErrValidation)
	}
	if err := s.repo.AssignRole(ctx, id, roleID); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "user.assign_role", id)
	return nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, userID int64) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "user",
		EntityID: strconv.FormatInt(userID, 10),
	})
}
