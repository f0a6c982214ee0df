package auth

import "net/http"

// Test hooks for the unexported HTTP handlers.

func (h *Handler) LoginForTest(w http.ResponseWriter, r *http.Request) {
	h.login(w, r)
}

func (h *Handler) SessionForTest(w http.ResponseWriter, r *http.Request) {
	h.session(w, r)
}

func (h *Handler) LogoutForTest(w http.ResponseWriter, r *http.Request) {
	h.logout(w, r)
}
