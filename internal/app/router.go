package app

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/atlas-hr/atlas-hr/internal/access"
	"github.com/atlas-hr/atlas-hr/internal/auth"
	"github.com/atlas-hr/atlas-hr/internal/dashboard"
	"github.com/atlas-hr/atlas-hr/internal/documents"
	"github.com/atlas-hr/atlas-hr/internal/observability"
	"github.com/atlas-hr/atlas-hr/internal/permits"
	"github.com/atlas-hr/atlas-hr/internal/roles"
	"github.com/atlas-hr/atlas-hr/internal/shared"
	"github.com/atlas-hr/atlas-hr/internal/uploads"
	"github.com/atlas-hr/atlas-hr/internal/users"
	"github.com/atlas-hr/atlas-hr/jobs"
	"github.com/atlas-hr/atlas-hr/web"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	SessionManager   *shared.SessionManager
	CSRFManager      *shared.CSRFManager
	AccessMiddleware access.Middleware

	AuthHandler      *auth.Handler
	AccessHandler    *access.Handler
	UsersHandler     *users.Handler
	RolesHandler     *roles.Handler
	DocumentsHandler *documents.Handler
	PermitsHandler   *permits.Handler
	UploadsHandler   *uploads.Handler
	DashboardHandler *dashboard.Handler
	JobHandler       *jobs.Handler

	Metrics *observability.Metrics
}

// NewRouter constructs the chi.Router with Atlas defaults. The SPA shell is
// served from the embedded static tree; everything under /api/v1 is JSON.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(params.AccessMiddleware.WithUser)

		r.Route("/auth", params.AuthHandler.MountRoutes)
		if params.AccessHandler != nil {
			r.Route("/access", params.AccessHandler.MountRoutes)
		}
		if params.UsersHandler != nil {
			r.Route("/users", params.UsersHandler.MountRoutes)
		}
		if params.RolesHandler != nil {
			r.Route("/roles", params.RolesHandler.MountRoutes)
		}
		if params.DocumentsHandler != nil {
			r.Route("/documents", params.DocumentsHandler.MountRoutes)
		}
		if params.PermitsHandler != nil {
			r.Route("/permits", params.PermitsHandler.MountRoutes)
		}
		if params.UploadsHandler != nil {
			r.Route("/uploads", params.UploadsHandler.MountRoutes)
		}
		if params.DashboardHandler != nil {
			r.Route("/dashboard", params.DashboardHandler.MountRoutes)
		}
		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		params.Logger.Error("create static sub filesystem", slog.Any("error", err))
		return r
	}

	fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
	r.Handle("/static/*", staticCacheHandler(fileServer))

	// Everything else falls through to the SPA shell so client-side routes
	// survive a refresh.
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		shell, err := web.Static.ReadFile("static/index.html")
		if err != nil {
			params.Logger.Error("read spa shell", slog.Any("error", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(shell)
	})

	return r
}

// staticCacheHandler wraps a file server with Cache-Control headers. Assets
// carry hashed names, so an hour of browser caching is safe.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
