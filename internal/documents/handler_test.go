package documents

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/atlas-hr/atlas-hr/internal/access"
	"github.com/atlas-hr/atlas-hr/internal/shared"
)

type stubAccessSource struct {
	user *access.User
}

func (s *stubAccessSource) FetchUser(ctx context.Context, userID int64) (*access.User, error) {
	if s.user == nil || s.user.ID != userID {
		return nil, access.ErrNoUser
	}
	return s.user, nil
}

func newDocumentsRouter(t *testing.T, perms []access.Permission) http.Handler {
	t.Helper()
	src := &stubAccessSource{user: &access.User{
		ID:       1,
		IsActive: true,
		Role:     &access.Role{ID: 1, Name: "HR Officer", Permissions: perms},
	}}
	mw := access.Middleware{Resolver: access.NewResolver(src, nil)}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(logger, newTestService(newMockRepository()), nil, mw)
	r := chi.NewRouter()
	r.Route("/documents", h.MountRoutes)
	return r
}

func getAs(t *testing.T, router http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	sess := &shared.Session{ID: "sess-1"}
	sess.SetUser("1")
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestExportsGateOnReportsGrant(t *testing.T) {
	docsOnly := newDocumentsRouter(t, []access.Permission{
		{Module: access.ModuleDocuments, Action: access.ActionRead},
	})

	rec := getAs(t, docsOnly, "/documents/expiring")
	assert.Equal(t, http.StatusOK, rec.Code)

	// A documents read grant alone does not open the reporting surface.
	rec = getAs(t, docsOnly, "/documents/expiring/export.csv")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	withReports := newDocumentsRouter(t, []access.Permission{
		{Module: access.ModuleDocuments, Action: access.ActionRead},
		{Module: access.ModuleReports, Action: access.ActionRead},
	})
	rec = getAs(t, withReports, "/documents/expiring/export.csv")
	assert.Equal(t, http.StatusOK, rec.Code)
}
