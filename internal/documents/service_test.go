package documents

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlas-hr/atlas-hr/internal/platform/httpx"
)

type mockRepository struct {
	docs   map[int64]Document
	nextID int64
}

func newMockRepository() *mockRepository {
	return &mockRepository{docs: make(map[int64]Document), nextID: 1}
}

func (m *mockRepository) List(ctx context.Context, filters ListFilters, now time.Time, warnWindow time.Duration) ([]Document, int, error) {
	var out []Document
	for _, d := range m.docs {
		if filters.Status != "" && d.StatusAt(now, warnWindow) != filters.Status {
			continue
		}
		out = append(out, d)
	}
	return out, len(out), nil
}

func (m *mockRepository) Get(ctx context.Context, id int64) (Document, error) {
	d, ok := m.docs[id]
	if !ok {
		return Document{}, httpx.ErrNotFound
	}
	return d, nil
}

func (m *mockRepository) Create(ctx context.Context, d Document) (Document, error) {
	for _, existing := range m.docs {
		if existing.Number != "" && existing.Number == d.Number {
			return Document{}, httpx.ErrDuplicate
		}
	}
	d.ID = m.nextID
	m.nextID++
	m.docs[d.ID] = d
	return d, nil
}

func (m *mockRepository) Update(ctx context.Context, id int64, d Document) error {
	if _, ok := m.docs[id]; !ok {
		return httpx.ErrNotFound
	}
	d.ID = id
	m.docs[id] = d
	return nil
}

func (m *mockRepository) Delete(ctx context.Context, id int64) error {
	if _, ok := m.docs[id]; !ok {
		return httpx.ErrNotFound
	}
	delete(m.docs, id)
	return nil
}

func (m *mockRepository) ListExpiring(ctx context.Context, now, until time.Time) ([]Document, error) {
	var out []Document
	for _, d := range m.docs {
		if d.ExpiresAt.After(now) && !d.ExpiresAt.After(until) {
			out = append(out, d)
		}
	}
	return out, nil
}

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestService(repo *mockRepository) *Service {
	svc := NewService(repo, nil, 30*24*time.Hour)
	svc.now = func() time.Time { return testNow }
	return svc
}

func TestStatusDerivation(t *testing.T) {
	window := 30 * 24 * time.Hour

	expired := Document{ExpiresAt: testNow.Add(-time.Hour)}
	assert.Equal(t, StatusExpired, expired.StatusAt(testNow, window))

	atDeadline := Document{ExpiresAt: testNow}
	assert.Equal(t, StatusExpired, atDeadline.StatusAt(testNow, window))

	expiring := Document{ExpiresAt: testNow.Add(10 * 24 * time.Hour)}
	assert.Equal(t, StatusExpiring, expiring.StatusAt(testNow, window))

	valid := Document{ExpiresAt: testNow.Add(90 * 24 * time.Hour)}
	assert.Equal(t, StatusValid, valid.StatusAt(testNow, window))
}

func TestCreateValidation(t *testing.T) {
	svc := newTestService(newMockRepository())

	_, err := svc.Create(context.Background(), 1, Document{Type: "passport", OwnerName: "A", ExpiresAt: testNow})
	assert.ErrorIs(t, err, httpx.ErrValidation)

	_, err = svc.Create(context.Background(), 1, Document{Title: "Passport", OwnerName: "A", ExpiresAt: testNow})
	assert.ErrorIs(t, err, httpx.ErrValidation)

	issued := testNow.Add(time.Hour)
	_, err = svc.Create(context.Background(), 1, Document{
		Title: "Passport", Type: "passport", OwnerName: "A",
		IssuedAt: &issued, ExpiresAt: testNow,
	})
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestCreateStampsStatus(t *testing.T) {
	svc := newTestService(newMockRepository())

	created, err := svc.Create(context.Background(), 1, Document{
		Title: "Work Permit", Type: "permit", OwnerName: "Dana",
		ExpiresAt: testNow.Add(5 * 24 * time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, StatusExpiring, created.Status)
}

func TestListExpiringWindow(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)

	mk := func(title string, expires time.Time) {
		_, err := svc.Create(context.Background(), 1, Document{
			Title: title, Type: "permit", OwnerName: "X", ExpiresAt: expires,
		})
		require.NoError(t, err)
	}
	mk("already expired", testNow.Add(-24*time.Hour))
	mk("soon", testNow.Add(7*24*time.Hour))
	mk("later", testNow.Add(60*24*time.Hour))

	docs, err := svc.ListExpiring(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "soon", docs[0].Title)
	assert.Equal(t, StatusExpiring, docs[0].Status)

	docs, err = svc.ListExpiring(context.Background(), 90*24*time.Hour)
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestWriteExpiringCSV(t *testing.T) {
	var buf bytes.Buffer
	err := WriteExpiringCSV(&buf, []Document{
		{Number: "DOC-1", Title: "Work Permit", Type: "permit", OwnerName: "Dana",
			OwnerEmail: "dana@atlas.local", ExpiresAt: time.Now().Add(48 * time.Hour), Status: StatusExpiring},
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\r\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "number,title,type,owner,owner_email,expires_at,days_left,status", lines[0])
	assert.Contains(t, lines[1], "DOC-1")
	assert.Contains(t, lines[1], "expiring")
}

func TestBuildExpiringHTMLEscapes(t *testing.T) {
	html, err := BuildExpiringHTML([]Document{
		{Number: "DOC-9", Title: "<script>alert(1)</script>", Type: "permit",
			OwnerName: "Eve", ExpiresAt: testNow},
	}, testNow)
	require.NoError(t, err)
	assert.NotContains(t, html, "<script>alert")
	assert.Contains(t, html, "DOC-9")
}
