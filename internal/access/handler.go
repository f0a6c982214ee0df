package access

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/atlas-hr/atlas-hr/internal/platform/httpx"
)

// Handler exposes the permission view the console bootstraps from.
type Handler struct {
	logger   *slog.Logger
	collator *collate.Collator
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger) *Handler {
	return &Handler{
		logger:   logger,
		collator: collate.New(language.English, collate.IgnoreCase),
	}
}

// MountRoutes registers access routes on the provided router. The snapshot
// is already resolved by the group-level WithUser middleware.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/me", h.me)
}

type meResponse struct {
	User    *User              `json:"user"`
	Admin   bool               `json:"admin"`
	Modules []string           `json:"modules"`
	Summary map[string]Summary `json:"summary"`
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "no active session")
		return
	}

	modules := AccessibleModules(user)
	h.collator.SortStrings(modules)

	summary := make(map[string]Summary, len(modules))
	for _, module := range modules {
		summary[module] = PermissionSummary(user, module)
	}

	httpx.JSON(w, http.StatusOK, meResponse{
		User:    user,
		Admin:   IsAdmin(user),
		Modules: modules,
		Summary: summary,
	})
}
