package uploads

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/atlas-hr/atlas-hr/internal/access"
	"github.com/atlas-hr/atlas-hr/internal/platform/httpx"
)

// Handler manages attachment endpoints. Uploads ride on the documents
// module grants: whoever may create documents may attach files to them.
type Handler struct {
	logger  *slog.Logger
	service *Service
	mw      access.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, mw access.Middleware) *Handler {
	return &Handler{logger: logger, service: service, mw: mw}
}

// MountRoutes registers upload routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequireAll(access.ModuleDocuments, access.ActionCreate))
		r.Post("/", h.upload)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequireAny(access.ModuleDocuments, access.ActionRead))
		r.Get("/{id}", h.download)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequireAll(access.ModuleDocuments, access.ActionDelete))
		r.Delete("/{id}", h.delete)
	})
}

func (h *Handler) upload(w http.ResponseWriter, r *http.Request) {
	if max := h.service.MaxSize(); max > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, max+1024)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", `multipart field "file" is required`)
		return
	}
	defer file.Close()

	actor := access.UserFromContext(r.Context())
	created, err := h.service.Save(r.Context(), actorID(actor), header.Filename, header.Header.Get("Content-Type"), header.Size, file)
	if err != nil {
		h.logger.Error("store upload failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) download(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	meta, body, err := h.service.Open(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", meta.ContentType)
	w.Header().Set("Content-Length", fmt.Sprintf("%d", meta.Size))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", meta.FileName))
	if _, err := io.Copy(w, body); err != nil {
		h.logger.Warn("stream upload body", slog.Any("error", err))
	}
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": true})
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid upload id")
		return uuid.Nil, false
	}
	return id, true
}

func actorID(u *access.User) int64 {
	if u == nil {
		return 0
	}
	return u.ID
}
