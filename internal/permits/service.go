package permits

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/atlas-hr/atlas-hr/internal/platform/httpx"
	"github.com/atlas-hr/atlas-hr/internal/shared"
)

// RepositoryPort defines data access methods for permits.
type RepositoryPort interface {
	List(ctx context.Context, filters ListFilters) ([]Permit, int, error)
	Get(ctx context.Context, id int64) (Permit, error)
	Create(ctx context.Context, p Permit) (Permit, error)
	UpdateDraft(ctx context.Context, id int64, p Permit) error
	Transition(ctx context.Context, id int64, from, to Status, actorID int64, note string, at time.Time) (bool, error)
}

// ApprovalPort records and replays workflow steps. Satisfied by
// shared.ApprovalRecorder.
type ApprovalPort interface {
	Record(ctx context.Context, log shared.ApprovalLog) error
	List(ctx context.Context, module string, ref uuid.UUID) ([]shared.ApprovalLog, error)
}

// IdempotencyPort deduplicates submits. Satisfied by shared.IdempotencyStore.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// Service handles permit workflow logic.
type Service struct {
	repo        RepositoryPort
	approvals   ApprovalPort
	idempotency IdempotencyPort
	audit       *shared.AuditLogger
	now         func() time.Time
}

// NewService builds Service instance. approvals and idempotency may be nil
// in tests; audit may be nil when auditing is disabled.
func NewService(repo RepositoryPort, approvals ApprovalPort, idempotency IdempotencyPort, audit *shared.AuditLogger) *Service {
	return &Service{repo: repo, approvals: approvals, idempotency: idempotency, audit: audit, now: time.Now}
}

// List returns permits matching the filters plus the unpaged total.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]Permit, int, error) {
	if filters.Page < 1 {
		filters.Page = 1
	}
	if filters.PerPage < 1 {
		filters.PerPage = 20
	}
	return s.repo.List(ctx, filters)
}

// Get fetches a single permit.
func (s *Service) Get(ctx context.Context, id int64) (Permit, error) {
	if id <= 0 {
		return Permit{}, fmt.Errorf("%w: invalid permit id", httpx.ErrValidation)
	}
	return s.repo.Get(ctx, id)
}

// History returns the workflow trail of a permit, oldest step first.
func (s *Service) History(ctx context.Context, id int64) ([]shared.ApprovalLog, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.approvals == nil {
		return nil, nil
	}
	return s.approvals.List(ctx, "permits", current.Ref)
}

// CreateDraft opens a new permit request in draft state for the actor.
func (s *Service) CreateDraft(ctx context.Context, actorID int64, p Permit) (Permit, error) {
	if actorID <= 0 {
		return Permit{}, fmt.Errorf("%w: requester is required", httpx.ErrValidation)
	}
	p.Title = strings.TrimSpace(p.Title)
	p.Kind = strings.TrimSpace(p.Kind)
	if p.Title == "" {
		return Permit{}, fmt.Errorf("%w: title is required", httpx.ErrValidation)
	}
	if p.Kind == "" {
		return Permit{}, fmt.Errorf("%w: kind is required", httpx.ErrValidation)
	}
	p.Ref = uuid.New()
	p.RequesterID = actorID
	p.Status = StatusDraft
	created, err := s.repo.Create(ctx, p)
	if err != nil {
		return Permit{}, err
	}
	s.recordAudit(ctx, actorID, "permit.create", created.ID)
	return created, nil
}

// UpdateDraft edits a draft. Only the requester may edit, and only while
// the permit has not been submitted.
func (s *Service) UpdateDraft(ctx context.Context, actorID, id int64, p Permit) error {
	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if current.RequesterID != actorID {
		return fmt.Errorf("%w: only the requester may edit a draft", httpx.ErrForbidden)
	}
	if current.Status != StatusDraft {
		return fmt.Errorf("%w: permit is %s, only drafts can be edited", httpx.ErrValidation, current.Status)
	}
	p.Title = strings.TrimSpace(p.Title)
	p.Kind = strings.TrimSpace(p.Kind)
	if p.Title == "" || p.Kind == "" {
		return fmt.Errorf("%w: title and kind are required", httpx.ErrValidation)
	}
	if err := s.repo.UpdateDraft(ctx, id, p); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "permit.update", id)
	return nil
}

// Submit moves a draft into review. idempotencyKey deduplicates retried
// submissions; an empty key skips the check.
func (s *Service) Submit(ctx context.Context, actorID, id int64, idempotencyKey string) error {
	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if current.RequesterID != actorID {
		return fmt.Errorf("%w: only the requester may submit", httpx.ErrForbidden)
	}
	if !CanTransition(current.Status, StatusSubmitted) {
		return fmt.Errorf("%w: cannot submit a %s permit", httpx.ErrValidation, current.Status)
	}

	if idempotencyKey != "" && s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, idempotencyKey, "permits"); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				return nil
			}
			return err
		}
	}

	at := s.now()
	ok, err := s.repo.Transition(ctx, id, StatusDraft, StatusSubmitted, actorID, "", at)
	if err != nil || !ok {
		if idempotencyKey != "" && s.idempotency != nil {
			_ = s.idempotency.Delete(ctx, idempotencyKey)
		}
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: permit is no longer a draft", httpx.ErrValidation)
	}

	s.recordApproval(ctx, current.Ref, actorID, shared.ApprovalSubmit, "", at)
	s.recordAudit(ctx, actorID, "permit.submit", id)
	return nil
}

// Approve accepts a submitted permit. Approving your own request is
// refused regardless of grants.
func (s *Service) Approve(ctx context.Context, actorID, id int64, note string) error {
	return s.decide(ctx, actorID, id, StatusApproved, note)
}

// Reject declines a submitted permit with a note.
func (s *Service) Reject(ctx context.Context, actorID, id int64, note string) error {
	if strings.TrimSpace(note) == "" {
		return fmt.Errorf("%w: a rejection note is required", httpx.ErrValidation)
	}
	return s.decide(ctx, actorID, id, StatusRejected, note)
}

func (s *Service) decide(ctx context.Context, actorID, id int64, to Status, note string) error {
	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if current.RequesterID == actorID {
		return fmt.Errorf("%w: deciding your own request is not allowed", httpx.ErrForbidden)
	}
	if !CanTransition(current.Status, to) {
		return fmt.Errorf("%w: cannot move a %s permit to %s", httpx.ErrValidation, current.Status, to)
	}

	at := s.now()
	ok, err := s.repo.Transition(ctx, id, StatusSubmitted, to, actorID, note, at)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: permit was decided concurrently", httpx.ErrValidation)
	}

	action := shared.ApprovalApprove
	auditAction := "permit.approve"
	if to == StatusRejected {
		action = shared.ApprovalReject
		auditAction = "permit.reject"
	}
	s.recordApproval(ctx, current.Ref, actorID, action, note, at)
	s.recordAudit(ctx, actorID, auditAction, id)
	return nil
}

// recordApproval stamps the trail entry with the same clock reading as the
// status transition so the two always agree.
func (s *Service) recordApproval(ctx context.Context, ref uuid.UUID, actorID int64, action shared.ApprovalAction, note string, at time.Time) {
	if s.approvals == nil {
		return
	}
	_ = s.approvals.Record(ctx, shared.ApprovalLog{
		Module:  "permits",
		RefID:   ref,
		ActorID: actorID,
		Action:  action,
		Note:    note,
		At:      at,
	})
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, permitID int64) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "permit",
		EntityID: strconv.FormatInt(permitID, 10),
	})
}
