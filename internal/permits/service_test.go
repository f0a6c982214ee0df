package permits

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlas-hr/atlas-hr/internal/platform/httpx"
	"github.com/atlas-hr/atlas-hr/internal/shared"
)

type mockRepository struct {
	permits map[int64]Permit
	nextID  int64
}

func newMockRepository() *mockRepository {
	return &mockRepository{permits: make(map[int64]Permit), nextID: 1}
}

func (m *mockRepository) List(ctx context.Context, filters ListFilters) ([]Permit, int, error) {
	var out []Permit
	for _, p := range m.permits {
		if filters.Status != "" && p.Status != filters.Status {
			continue
		}
		out = append(out, p)
	}
	return out, len(out), nil
}

func (m *mockRepository) Get(ctx context.Context, id int64) (Permit, error) {
	p, ok := m.permits[id]
	if !ok {
		return Permit{}, httpx.ErrNotFound
	}
	return p, nil
}

func (m *mockRepository) Create(ctx context.Context, p Permit) (Permit, error) {
	p.ID = m.nextID
	m.nextID++
	m.permits[p.ID] = p
	return p, nil
}

func (m *mockRepository) UpdateDraft(ctx context.Context, id int64, p Permit) error {
	current, ok := m.permits[id]
	if !ok || current.Status != StatusDraft {
		return httpx.ErrNotFound
	}
	current.Title = p.Title
	current.Kind = p.Kind
	current.Description = p.Description
	m.permits[id] = current
	return nil
}

func (m *mockRepository) Transition(ctx context.Context, id int64, from, to Status, actorID int64, note string, at time.Time) (bool, error) {
	p, ok := m.permits[id]
	if !ok || p.Status != from {
		return false, nil
	}
	p.Status = to
	switch to {
	case StatusSubmitted:
		p.SubmittedAt = &at
	default:
		p.DecisionNote = note
		p.DecidedBy = &actorID
		p.DecidedAt = &at
	}
	m.permits[id] = p
	return true, nil
}

type recordedApproval struct {
	action shared.ApprovalAction
	note   string
}

type mockApprovals struct {
	records []recordedApproval
	logs    []shared.ApprovalLog
}

func (m *mockApprovals) Record(ctx context.Context, log shared.ApprovalLog) error {
	m.records = append(m.records, recordedApproval{action: log.Action, note: log.Note})
	m.logs = append(m.logs, log)
	return nil
}

func (m *mockApprovals) List(ctx context.Context, module string, ref uuid.UUID) ([]shared.ApprovalLog, error) {
	var out []shared.ApprovalLog
	for _, l := range m.logs {
		if l.Module == module && l.RefID == ref {
			out = append(out, l)
		}
	}
	return out, nil
}

type mockIdempotency struct {
	seen    map[string]bool
	deleted []string
}

func (m *mockIdempotency) CheckAndInsert(ctx context.Context, key, module string) error {
	if m.seen == nil {
		m.seen = make(map[string]bool)
	}
	if m.seen[key] {
		return shared.ErrIdempotencyConflict
	}
	m.seen[key] = true
	return nil
}

func (m *mockIdempotency) Delete(ctx context.Context, key string) error {
	m.deleted = append(m.deleted, key)
	delete(m.seen, key)
	return nil
}

func newTestService(repo *mockRepository) (*Service, *mockApprovals, *mockIdempotency) {
	approvals := &mockApprovals{}
	idem := &mockIdempotency{}
	return NewService(repo, approvals, idem, nil), approvals, idem
}

func draft(t *testing.T, svc *Service, requesterID int64) Permit {
	t.Helper()
	p, err := svc.CreateDraft(context.Background(), requesterID, Permit{Title: "Parking pass", Kind: "facility"})
	require.NoError(t, err)
	return p
}

func TestCreateDraftValidation(t *testing.T) {
	svc, _, _ := newTestService(newMockRepository())

	_, err := svc.CreateDraft(context.Background(), 1, Permit{Kind: "facility"})
	assert.ErrorIs(t, err, httpx.ErrValidation)
	_, err = svc.CreateDraft(context.Background(), 1, Permit{Title: "Pass"})
	assert.ErrorIs(t, err, httpx.ErrValidation)
	_, err = svc.CreateDraft(context.Background(), 0, Permit{Title: "Pass", Kind: "facility"})
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestCreateDraftAssignsRefAndStatus(t *testing.T) {
	svc, _, _ := newTestService(newMockRepository())

	p := draft(t, svc, 7)
	assert.Equal(t, StatusDraft, p.Status)
	assert.Equal(t, int64(7), p.RequesterID)
	assert.NotEmpty(t, p.Ref)
}

func TestUpdateDraftOnlyRequester(t *testing.T) {
	svc, _, _ := newTestService(newMockRepository())
	p := draft(t, svc, 7)

	err := svc.UpdateDraft(context.Background(), 8, p.ID, Permit{Title: "New", Kind: "facility"})
	assert.ErrorIs(t, err, httpx.ErrForbidden)

	err = svc.UpdateDraft(context.Background(), 7, p.ID, Permit{Title: "New", Kind: "facility"})
	require.NoError(t, err)
	got, err := svc.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, "New", got.Title)
}

func TestSubmitWorkflow(t *testing.T) {
	svc, approvals, _ := newTestService(newMockRepository())
	p := draft(t, svc, 7)

	err := svc.Submit(context.Background(), 8, p.ID, "")
	assert.ErrorIs(t, err, httpx.ErrForbidden)

	require.NoError(t, svc.Submit(context.Background(), 7, p.ID, ""))
	got, err := svc.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusSubmitted, got.Status)
	require.NotNil(t, got.SubmittedAt)

	err = svc.Submit(context.Background(), 7, p.ID, "")
	assert.ErrorIs(t, err, httpx.ErrValidation)

	require.Len(t, approvals.records, 1)
	assert.Equal(t, shared.ApprovalSubmit, approvals.records[0].action)
}

func TestHistoryReturnsWorkflowTrail(t *testing.T) {
	svc, _, _ := newTestService(newMockRepository())
	p := draft(t, svc, 7)

	require.NoError(t, svc.Submit(context.Background(), 7, p.ID, ""))
	require.NoError(t, svc.Approve(context.Background(), 9, p.ID, "looks fine"))

	trail, err := svc.History(context.Background(), p.ID)
	require.NoError(t, err)
	require.Len(t, trail, 2)
	assert.Equal(t, shared.ApprovalSubmit, trail[0].Action)
	assert.Equal(t, shared.ApprovalApprove, trail[1].Action)
	assert.Equal(t, "looks fine", trail[1].Note)
	assert.Equal(t, p.Ref, trail[1].RefID)
}

func TestWorkflowStepsCarryTransitionTime(t *testing.T) {
	svc, approvals, _ := newTestService(newMockRepository())
	submitAt := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return submitAt }
	p := draft(t, svc, 7)

	require.NoError(t, svc.Submit(context.Background(), 7, p.ID, ""))
	decideAt := submitAt.Add(2 * time.Hour)
	svc.now = func() time.Time { return decideAt }
	require.NoError(t, svc.Approve(context.Background(), 9, p.ID, ""))

	require.Len(t, approvals.logs, 2)
	assert.Equal(t, submitAt, approvals.logs[0].At)
	assert.Equal(t, decideAt, approvals.logs[1].At)
	for _, l := range approvals.logs {
		assert.False(t, l.At.IsZero())
	}
}

func TestSubmitIdempotencyKeyDeduplicates(t *testing.T) {
	svc, approvals, idem := newTestService(newMockRepository())
	p := draft(t, svc, 7)

	require.NoError(t, svc.Submit(context.Background(), 7, p.ID, "key-1"))
	// Retried request with the same key answers success without replay.
	require.NoError(t, svc.Submit(context.Background(), 7, p.ID, "key-1"))
	assert.Len(t, approvals.records, 1)
	assert.True(t, idem.seen["key-1"])
}

func TestApproveRejectRules(t *testing.T) {
	svc, approvals, _ := newTestService(newMockRepository())
	p := draft(t, svc, 7)

	// Drafts cannot be decided.
	err := svc.Approve(context.Background(), 9, p.ID, "")
	assert.ErrorIs(t, err, httpx.ErrValidation)

	require.NoError(t, svc.Submit(context.Background(), 7, p.ID, ""))

	// Self-approval refused.
	err = svc.Approve(context.Background(), 7, p.ID, "")
	assert.ErrorIs(t, err, httpx.ErrForbidden)

	require.NoError(t, svc.Approve(context.Background(), 9, p.ID, "looks fine"))
	got, err := svc.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, got.Status)
	require.NotNil(t, got.DecidedBy)
	assert.Equal(t, int64(9), *got.DecidedBy)

	// Terminal states stay terminal.
	err = svc.Reject(context.Background(), 9, p.ID, "changed my mind")
	assert.ErrorIs(t, err, httpx.ErrValidation)

	require.Len(t, approvals.records, 2)
	assert.Equal(t, shared.ApprovalApprove, approvals.records[1].action)
}

func TestRejectRequiresNote(t *testing.T) {
	svc, approvals, _ := newTestService(newMockRepository())
	p := draft(t, svc, 7)
	require.NoError(t, svc.Submit(context.Background(), 7, p.ID, ""))

	err := svc.Reject(context.Background(), 9, p.ID, "  ")
	assert.ErrorIs(t, err, httpx.ErrValidation)

	require.NoError(t, svc.Reject(context.Background(), 9, p.ID, "missing attachment"))
	got, err := svc.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, got.Status)
	assert.Equal(t, "missing attachment", got.DecisionNote)
	assert.Equal(t, shared.ApprovalReject, approvals.records[len(approvals.records)-1].action)
}

func TestCanTransitionTable(t *testing.T) {
	assert.True(t, CanTransition(StatusDraft, StatusSubmitted))
	assert.True(t, CanTransition(StatusSubmitted, StatusApproved))
	assert.True(t, CanTransition(StatusSubmitted, StatusRejected))
	assert.False(t, CanTransition(StatusDraft, StatusApproved))
	assert.False(t, CanTransition(StatusApproved, StatusRejected))
	assert.False(t, CanTransition(StatusRejected, StatusSubmitted))
	assert.False(t, CanTransition(StatusApproved, StatusSubmitted))
}
