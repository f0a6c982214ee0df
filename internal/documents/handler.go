package documents

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/atlas-hr/atlas-hr/internal/access"
	"github.com/atlas-hr/atlas-hr/internal/platform/httpx"
	"github.com/atlas-hr/atlas-hr/internal/shared"
)

// PDFRenderer converts HTML into a PDF. Satisfied by report.Client.
type PDFRenderer interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

// Handler manages document endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	pdf     PDFRenderer
	mw      access.Middleware
}

// NewHandler builds Handler instance. pdf may be nil when no renderer is
// configured; the PDF export then answers 503.
func NewHandler(logger *slog.Logger, service *Service, pdf PDFRenderer, mw access.Middleware) *Handler {
	return &Handler{logger: logger, service: service, pdf: pdf, mw: mw}
}

// MountRoutes registers document routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequireAny(access.ModuleDocuments, access.ActionRead))
		r.Get("/", h.list)
		r.Get("/expiring", h.expiring)
		r.Get("/{id}", h.get)
	})
	r.Group(func(r chi.Router) {
		// Exports are the reporting surface; a read grant on documents
		// does not imply one on reports.
		r.Use(h.mw.RequireAny(access.ModuleReports, access.ActionRead))
		r.Get("/expiring/export.csv", h.exportCSV)
		r.Get("/expiring/export.pdf", h.exportPDF)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequireAll(access.ModuleDocuments, access.ActionCreate))
		r.Post("/", h.create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequireAll(access.ModuleDocuments, access.ActionUpdate))
		r.Put("/{id}", h.update)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequireAll(access.ModuleDocuments, access.ActionDelete))
		r.Delete("/{id}", h.delete)
	})
}

type listResponse struct {
	Documents  []Document        `json:"documents"`
	Pagination shared.Pagination `json:"pagination"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	filters := ListFilters{
		Page:    page,
		PerPage: perPage,
		Search:  r.URL.Query().Get("search"),
		Type:    r.URL.Query().Get("type"),
		Status:  Status(r.URL.Query().Get("status")),
	}

	docs, total, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.logger.Error("list documents failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if docs == nil {
		docs = []Document{}
	}
	httpx.JSON(w, http.StatusOK, listResponse{
		Documents:  docs,
		Pagination: shared.NewPagination(filters.Page, filters.PerPage, total),
	})
}

func (h *Handler) expiring(w http.ResponseWriter, r *http.Request) {
	docs, err := h.service.ListExpiring(r.Context(), parseWithin(r))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if docs == nil {
		docs = []Document{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"documents": docs})
}

func (h *Handler) exportCSV(w http.ResponseWriter, r *http.Request) {
	docs, err := h.service.ListExpiring(r.Context(), parseWithin(r))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="expiring-documents.csv"`)
	if err := WriteExpiringCSV(w, docs); err != nil {
		h.logger.Error("write expiring csv", slog.Any("error", err))
	}
}

func (h *Handler) exportPDF(w http.ResponseWriter, r *http.Request) {
	if h.pdf == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Unavailable", "PDF rendering is not configured")
		return
	}
	docs, err := h.service.ListExpiring(r.Context(), parseWithin(r))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	html, err := BuildExpiringHTML(docs, time.Now())
	if err != nil {
		h.logger.Error("build expiring report", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	pdf, err := h.pdf.RenderHTML(r.Context(), html)
	if err != nil {
		h.logger.Error("render expiring pdf", slog.Any("error", err))
		httpx.Problem(w, http.StatusBadGateway, "Bad Gateway", "PDF rendering failed")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="expiring-documents.pdf"`)
	_, _ = w.Write(pdf)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid document id")
		return
	}
	doc, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

type upsertRequest struct {
	Number     string     `json:"number"`
	Title      string     `json:"title"`
	Type       string     `json:"type"`
	OwnerName  string     `json:"owner_name"`
	OwnerEmail string     `json:"owner_email"`
	IssuedAt   *time.Time `json:"issued_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
	Notes      string     `json:"notes"`
	UploadID   *uuid.UUID `json:"upload_id"`
}

func (req upsertRequest) document() Document {
	return Document{
		Number:     req.Number,
		Title:      req.Title,
		Type:       req.Type,
		OwnerName:  req.OwnerName,
		OwnerEmail: req.OwnerEmail,
		IssuedAt:   req.IssuedAt,
		ExpiresAt:  req.ExpiresAt,
		Notes:      req.Notes,
		UploadID:   req.UploadID,
	}
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req upsertRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	actor := access.UserFromContext(r.Context())
	created, err := h.service.Create(r.Context(), actorID(actor), req.document())
	if err != nil {
		h.logger.Error("create document failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid document id")
		return
	}
	var req upsertRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	actor := access.UserFromContext(r.Context())
	if err := h.service.Update(r.Context(), actorID(actor), id, req.document()); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"updated": true})
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid document id")
		return
	}
	actor := access.UserFromContext(r.Context())
	if err := h.service.Delete(r.Context(), actorID(actor), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": true})
}

// parseWithin reads a ?within=720h style duration; zero means the configured
// default window.
func parseWithin(r *http.Request) time.Duration {
	raw := r.URL.Query().Get("within")
	if raw == "" {
		return 0
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

func actorID(u *access.User) int64 {
	if u == nil {
		return 0
	}
	return u.ID
}
