package documents

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/atlas-hr/atlas-hr/internal/platform/httpx"
	"github.com/atlas-hr/atlas-hr/internal/shared"
)

// RepositoryPort defines data access methods for documents.
type RepositoryPort interface {
	List(ctx context.Context, filters ListFilters, now time.Time, warnWindow time.Duration) ([]Document, int, error)
	Get(ctx context.Context, id int64) (Document, error)
	Create(ctx context.Context, d Document) (Document, error)
	Update(ctx context.Context, id int64, d Document) error
	Delete(ctx context.Context, id int64) error
	ListExpiring(ctx context.Context, now, until time.Time) ([]Document, error)
}

// Service handles document business logic.
type Service struct {
	repo       RepositoryPort
	audit      *shared.AuditLogger
	warnWindow time.Duration
	now        func() time.Time
}

// NewService builds Service instance. warnWindow is how far ahead of the
// expiry date a document counts as expiring.
func NewService(repo RepositoryPort, audit *shared.AuditLogger, warnWindow time.Duration) *Service {
	return &Service{repo: repo, audit: audit, warnWindow: warnWindow, now: time.Now}
}

// WarnWindow exposes the configured expiring window.
func (s *Service) WarnWindow() time.Duration {
	return s.warnWindow
}

// List returns documents matching the filters plus the unpaged total, each
// stamped with its derived status.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]Document, int, error) {
	if filters.Page < 1 {
		filters.Page = 1
	}
	if filters.PerPage < 1 {
		filters.PerPage = 20
	}
	now := s.now()
	docs, total, err := s.repo.List(ctx, filters, now, s.warnWindow)
	if err != nil {
		return nil, 0, err
	}
	for i := range docs {
		docs[i].Status = docs[i].StatusAt(now, s.warnWindow)
	}
	return docs, total, nil
}

// Get fetches a single document with its derived status.
func (s *Service) Get(ctx context.Context, id int64) (Document, error) {
	if id <= 0 {
		return Document{}, fmt.Errorf("%w: invalid document id", httpx.ErrValidation)
	}
	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		return Document{}, err
	}
	doc.Status = doc.StatusAt(s.now(), s.warnWindow)
	return doc, nil
}

// Create registers a document.
func (s *Service) Create(ctx context.Context, actorID int64, d Document) (Document, error) {
	if err := s.validate(&d); err != nil {
		return Document{}, err
	}
	created, err := s.repo.Create(ctx, d)
	if err != nil {
		return Document{}, err
	}
	created.Status = created.StatusAt(s.now(), s.warnWindow)
	s.recordAudit(ctx, actorID, "document.create", created.ID)
	return created, nil
}

// Update replaces the mutable fields of a document.
func (s *Service) Update(ctx context.Context, actorID, id int64, d Document) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid document id", httpx.ErrValidation)
	}
	if err := s.validate(&d); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, id, d); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "document.update", id)
	return nil
}

// Delete removes a document.
func (s *Service) Delete(ctx context.Context, actorID, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid document id", httpx.ErrValidation)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "document.delete", id)
	return nil
}

// ListExpiring returns documents that expire within the given duration from
// now, soonest first. A non-positive duration falls back to the configured
// window.
func (s *Service) ListExpiring(ctx context.Context, within time.Duration) ([]Document, error) {
	if within <= 0 {
		within = s.warnWindow
	}
	now := s.now()
	docs, err := s.repo.ListExpiring(ctx, now, now.Add(within))
	if err != nil {
		return nil, err
	}
	for i := range docs {
		docs[i].Status = docs[i].StatusAt(now, s.warnWindow)
	}
	return docs, nil
}

func (s *Service) validate(d *Document) error {
	d.Number = strings.TrimSpace(d.Number)
	d.Title = strings.TrimSpace(d.Title)
	d.Type = strings.TrimSpace(d.Type)
	d.OwnerName = strings.TrimSpace(d.OwnerName)
	d.OwnerEmail = strings.TrimSpace(strings.ToLower(d.OwnerEmail))
	if d.Title == "" {
		return fmt.Errorf("%w: title is required", httpx.ErrValidation)
	}
	if d.Type == "" {
		return fmt.Errorf("%w: type is required", httpx.ErrValidation)
	}
	if d.OwnerName == "" {
		return fmt.Errorf("%w: owner name is required", httpx.ErrValidation)
	}
	if d.ExpiresAt.IsZero() {
		return fmt.Errorf("%w: expiry date is required", httpx.ErrValidation)
	}
	if d.IssuedAt != nil && d.IssuedAt.After(d.ExpiresAt) {
		return fmt.Errorf("%w: issued date is after the expiry date", httpx.ErrValidation)
	}
	return nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, docID int64) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "document",
		EntityID: strconv.FormatInt(docID, 10),
	})
}
