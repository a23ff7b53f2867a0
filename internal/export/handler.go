package export

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/khovattu/khovattu/internal/documents"
	"github.com/khovattu/khovattu/internal/platform/httpx"
	"github.com/khovattu/khovattu/internal/rbac"
)

// Handler serves file downloads.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler constructs Handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers export routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PermExportsRead))
		r.Get("/products/excel", h.serve(h.service.ProductsExcel))
		r.Get("/products/pdf", h.serve(h.service.ProductsPDF))
		r.Get("/inventory/excel", h.serve(h.service.InventoryExcel))
		for _, kind := range []documents.Kind{documents.KindReceipt, documents.KindIssue} {
			r.Get("/"+kind.Module()+"/{id}/excel", h.serveDocument(kind, h.service.DocumentExcel))
			r.Get("/"+kind.Module()+"/{id}/pdf", h.serveDocument(kind, h.service.DocumentPDF))
		}
	})
}

type buildFunc func(ctx context.Context) (File, error)

func (h *Handler) serve(build buildFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		file, err := build(r.Context())
		h.write(w, file, err)
	}
}

func (h *Handler) serveDocument(kind documents.Kind, build func(ctx context.Context, kind documents.Kind, id int64) (File, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := httpx.IDParam(r, "id")
		if err != nil {
			httpx.RespondError(w, h.logger, err)
			return
		}
		file, err := build(r.Context(), kind, id)
		h.write(w, file, err)
	}
}

func (h *Handler) write(w http.ResponseWriter, file File, err error) {
	if errors.Is(err, ErrPDFDisabled) || errors.Is(err, ErrPDFFailed) {
		httpx.Problem(w, http.StatusBadGateway, "PDF Unavailable", err.Error())
		return
	}
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(file.Name))
	w.Header().Set("Content-Length", strconv.Itoa(len(file.Body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(file.Body)
}
