package permits

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/atlas-hr/atlas-hr/internal/access"
	"github.com/atlas-hr/atlas-hr/internal/platform/httpx"
	"github.com/atlas-hr/atlas-hr/internal/shared"
)

// Handler manages permit endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	mw      access.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, mw access.Middleware) *Handler {
	return &Handler{logger: logger, service: service, mw: mw}
}

// MountRoutes registers permit routes. Approve/reject sit behind the update
// grant; drafting only needs create.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequireAny(access.ModulePermits, access.ActionRead))
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
		r.Get("/{id}/history", h.history)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequireAll(access.ModulePermits, access.ActionCreate))
		r.Post("/", h.createDraft)
		r.Put("/{id}", h.updateDraft)
		r.Post("/{id}/submit", h.submit)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequireAll(access.ModulePermits, access.ActionUpdate))
		r.Post("/{id}/approve", h.approve)
		r.Post("/{id}/reject", h.reject)
	})
}

type listResponse struct {
	Permits    []Permit          `json:"permits"`
	Pagination shared.Pagination `json:"pagination"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	filters := ListFilters{
		Page:    page,
		PerPage: perPage,
		Status:  Status(r.URL.Query().Get("status")),
		Search:  r.URL.Query().Get("search"),
	}
	if raw := r.URL.Query().Get("requester_id"); raw != "" {
		if parsed, err := strconv.ParseInt(raw, 10, 64); err == nil {
			filters.RequesterID = &parsed
		}
	}

	permits, total, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.logger.Error("list permits failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if permits == nil {
		permits = []Permit{}
	}
	httpx.JSON(w, http.StatusOK, listResponse{
		Permits:    permits,
		Pagination: shared.NewPagination(filters.Page, filters.PerPage, total),
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	permit, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, permit)
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	trail, err := h.service.History(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"history": trail})
}

type draftRequest struct {
	Title       string `json:"title"`
	Kind        string `json:"kind"`
	Description string `json:"description"`
}

func (h *Handler) createDraft(w http.ResponseWriter, r *http.Request) {
	var req draftRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	actor := access.UserFromContext(r.Context())
	created, err := h.service.CreateDraft(r.Context(), actorID(actor), Permit{
		Title:       req.Title,
		Kind:        req.Kind,
		Description: req.Description,
	})
	if err != nil {
		h.logger.Error("create permit failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) updateDraft(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var req draftRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	actor := access.UserFromContext(r.Context())
	if err := h.service.UpdateDraft(r.Context(), actorID(actor), id, Permit{
		Title:       req.Title,
		Kind:        req.Kind,
		Description: req.Description,
	}); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"updated": true})
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	actor := access.UserFromContext(r.Context())
	if err := h.service.Submit(r.Context(), actorID(actor), id, r.Header.Get("Idempotency-Key")); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"status": StatusSubmitted})
}

type decisionRequest struct {
	Note string `json:"note"`
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.service.Approve, StatusApproved)
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.service.Reject, StatusRejected)
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, actorID, id int64, note string) error, to Status) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var req decisionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	actor := access.UserFromContext(r.Context())
	if err := fn(r.Context(), actorID(actor), id, req.Note); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"status": to})
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid permit id")
		return 0, false
	}
	return id, true
}

func actorID(u *access.User) int64 {
	if u == nil {
		return 0
	}
	return u.ID
}
