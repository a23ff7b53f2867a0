package inventory

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/khovattu/khovattu/internal/platform/httpx"
	"github.com/khovattu/khovattu/internal/rbac"
)

// Handler wires HTTP endpoints for inventory module.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler constructs inventory handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountCatalogRoutes registers the stock listing under the catalog tree.
func (h *Handler) MountCatalogRoutes(r chi.Router) {
	r.With(h.rbac.RequireAny(rbac.PermProductsRead)).Get("/inventory", h.handleInventory)
}

// MountWarehouseRoutes registers movement history under the warehouse tree.
func (h *Handler) MountWarehouseRoutes(r chi.Router) {
	r.With(h.rbac.RequireAny(rbac.PermReceiptsRead, rbac.PermIssuesRead)).Get("/movements", h.handleMovements)
}

// MountPublicRoutes registers unauthenticated lookups.
func (h *Handler) MountPublicRoutes(r chi.Router) {
	r.Get("/inventory", h.handlePublicSummary)
}

func (h *Handler) handleInventory(w http.ResponseWriter, r *http.Request) {
	warehouseID, err := httpx.OptionalInt64(r, "warehouse_id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	productID, err := httpx.OptionalInt64(r, "product_id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	rows, err := h.service.ListInventory(r.Context(), InventoryFilter{WarehouseID: warehouseID, ProductID: productID})
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if rows == nil {
		rows = []StockRow{}
	}
	httpx.JSON(w, http.StatusOK, rows)
}

func (h *Handler) handleMovements(w http.ResponseWriter, r *http.Request) {
	var filter MovementFilter
	for name, dst := range map[string]*int64{
		"warehouse_id": &filter.WarehouseID,
		"product_id":   &filter.ProductID,
		"reference_id": &filter.ReferenceID,
	} {
		v, err := httpx.OptionalInt64(r, name)
		if err != nil {
			httpx.RespondError(w, h.logger, err)
			return
		}
		*dst = v
	}
	filter.ReferenceType = ReferenceType(strings.TrimSpace(r.URL.Query().Get("reference_type")))
	movements, err := h.service.Movements(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if movements == nil {
		movements = []Movement{}
	}
	httpx.JSON(w, http.StatusOK, movements)
}

func (h *Handler) handlePublicSummary(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.PublicSummary(r.Context(), strings.TrimSpace(r.URL.Query().Get("q")))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if items == nil {
		items = []ProductStock{}
	}
	httpx.JSON(w, http.StatusOK, items)
}
