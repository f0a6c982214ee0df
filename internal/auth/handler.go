package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/atlas-hr/atlas-hr/internal/access"
	"github.com/atlas-hr/atlas-hr/internal/platform/httpx"
	"github.com/atlas-hr/atlas-hr/internal/shared"
)

// Handler wires HTTP endpoints for authentication flows. The console is a
// single-page application, so every endpoint speaks JSON.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
	resolver       *access.Resolver
	validator      *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, sessions *shared.SessionManager, csrf *shared.CSRFManager, resolver *access.Resolver) *Handler {
	return &Handler{
		logger:         logger,
		service:        service,
		sessionManager: sessions,
		csrfManager:    csrf,
		resolver:       resolver,
		validator:      validator.New(),
	}
}

// MountRoutes registers auth routes on provided router. Login carries its
// own per-IP limit, much tighter than the global one, to slow credential
// stuffing.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/session", h.session)
	r.With(httprate.Limit(5, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP))).Post("/login", h.login)
	r.Post("/logout", h.logout)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type sessionResponse struct {
	Authenticated bool                      `json:"authenticated"`
	CSRFToken     string                    `json:"csrf_token,omitempty"`
	User          *access.User              `json:"user,omitempty"`
	Admin         bool                      `json:"admin"`
	Summary       map[string]access.Summary `json:"summary,omitempty"`
}

// session bootstraps the SPA on load and on auth-state change: it reports
// whether a session exists, hands out the CSRF token, and re-resolves the
// user snapshot through the same serialized path the login flow uses.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.JSON(w, http.StatusOK, sessionResponse{})
		return
	}
	token, _ := h.csrfManager.EnsureToken(r.Context(), sess)
	resp := sessionResponse{CSRFToken: token}

	userID, ok := sessionUserID(sess)
	if !ok {
		httpx.JSON(w, http.StatusOK, resp)
		return
	}
	user, err := h.resolver.Resolve(r.Context(), sess.ID, userID)
	if err != nil {
		if !errors.Is(err, access.ErrNoUser) {
			h.logger.Error("resolve session user", slog.Any("error", err))
		}
		httpx.JSON(w, http.StatusOK, resp)
		return
	}
	resp.Authenticated = true
	resp.User = user
	resp.Admin = access.IsAdmin(user)
	resp.Summary = permissionSummaries(user)
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", validationDetail(err))
		return
	}

	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("session missing during login")
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	user, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid email or password")
		return
	}

	sess.SetUser(strconv.FormatInt(user.ID, 10))
	sess.Set(shared.SessionKeyLoginIP, r.RemoteAddr)
	expiresAt := time.Now().Add(h.sessionManager.TTL())
	if err := h.service.RegisterSession(r.Context(), sess.ID, user.ID, expiresAt, r.RemoteAddr, r.UserAgent()); err != nil {
		h.logger.Warn("register session", slog.Any("error", err))
	}

	snapshot, err := h.resolver.Resolve(r.Context(), sess.ID, user.ID)
	if err != nil {
		h.logger.Error("resolve user after login", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	token, _ := h.csrfManager.EnsureToken(r.Context(), sess)
	httpx.JSON(w, http.StatusOK, sessionResponse{
		Authenticated: true,
		CSRFToken:     token,
		User:          snapshot,
		Admin:         access.IsAdmin(snapshot),
		Summary:       permissionSummaries(snapshot),
	})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		if err := h.service.RemoveSession(r.Context(), sess.ID); err != nil {
			h.logger.Warn("remove session", slog.Any("error", err))
		}
		h.resolver.Invalidate(sess.ID)
		h.sessionManager.Destroy(sess)
	}
	httpx.JSON(w, http.StatusOK, sessionResponse{})
}

func permissionSummaries(user *access.User) map[string]access.Summary {
	modules := access.AccessibleModules(user)
	if len(modules) == 0 {
		return nil
	}
	summary := make(map[string]access.Summary, len(modules))
	for _, module := range modules {
		summary[module] = access.PermissionSummary(user, module)
	}
	return summary
}

func sessionUserID(sess *shared.Session) (int64, bool) {
	raw := strings.TrimSpace(sess.User())
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func validationDetail(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, strings.ToLower(fe.Field()))
		}
		return "invalid fields: " + strings.Join(fields, ", ")
	}
	return "invalid request"
}
