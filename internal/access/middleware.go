package access

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/atlas-hr/atlas-hr/internal/shared"
)

// Middleware wires permission gating for HTTP handlers. The gate is a UX
// convenience mirrored by the front end; the real authorization boundary is
// the check itself running server-side on every request.
type Middleware struct {
	Resolver *Resolver
	Logger   *slog.Logger
}

// WithUser resolves the current user and injects the snapshot into the
// request context without gating. Unauthenticated requests pass through
// with no snapshot.
func (m Middleware) WithUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		if sess == nil {
			next.ServeHTTP(w, r)
			return
		}
		userID, ok := sessionUserID(sess, m.Logger)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		user, err := m.Resolver.Resolve(r.Context(), sess.ID, userID)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), user)))
	})
}

// RequireAny ensures the current user holds at least one of the actions on
// the module. The snapshot is injected into context for the handler.
func (m Middleware) RequireAny(module string, actions ...Action) func(http.Handler) http.Handler {
	return m.require(module, actions, HasAnyPermission)
}

// RequireAll ensures the current user holds every action on the module.
func (m Middleware) RequireAll(module string, actions ...Action) func(http.Handler) http.Handler {
	return m.require(module, actions, HasAllPermissions)
}

func (m Middleware) require(module string, actions []Action, check func(*User, string, ...Action) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := shared.SessionFromContext(r.Context())
			if sess == nil {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			userID, ok := sessionUserID(sess, m.Logger)
			if !ok {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			user, err := m.Resolver.Resolve(r.Context(), sess.ID, userID)
			if err != nil {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			if !check(user, module, actions...) {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), user)))
		})
	}
}

func sessionUserID(sess *shared.Session, logger *slog.Logger) (int64, bool) {
	raw := strings.TrimSpace(sess.User())
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		if logger != nil {
			logger.Error("access parse user id", slog.String("value", raw))
		}
		return 0, false
	}
	return id, true
}
