package documents

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/khovattu/khovattu/internal/platform/httpx"
	"github.com/khovattu/khovattu/internal/rbac"
	"github.com/khovattu/khovattu/internal/shared"
)

type permissionSet struct {
	read, write, approve string
}

var permissions = map[Kind]permissionSet{
	KindReceipt: {read: rbac.PermReceiptsRead, write: rbac.PermReceiptsWrite, approve: rbac.PermReceiptsApprove},
	KindIssue:   {read: rbac.PermIssuesRead, write: rbac.PermIssuesWrite, approve: rbac.PermIssuesApprove},
}

// Handler wires HTTP endpoints for one document kind.
type Handler struct {
	kind    Kind
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler constructs a handler serving kind.
func NewHandler(kind Kind, logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{kind: kind, logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers document routes.
func (h *Handler) MountRoutes(r chi.Router) {
	perms := permissions[h.kind]
	r.With(h.rbac.RequireAny(perms.read)).Get("/", h.handleList)
	r.With(h.rbac.RequireAny(perms.read)).Get("/{id}", h.handleGet)
	r.With(h.rbac.RequireAny(perms.read)).Get("/{id}/history", h.handleHistory)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(perms.write))
		r.Post("/", h.handleCreate)
		r.Post("/{id}/submit", h.handleSubmit)
		r.Post("/{id}/cancel", h.handleCancel)
		r.Delete("/{id}", h.handleDelete)
	})
	r.With(h.rbac.RequireAny(perms.approve)).Post("/{id}/approve", h.handleApprove)
}

type itemRequest struct {
	ProductID int64            `json:"product_id"`
	Quantity  decimal.Decimal  `json:"quantity"`
	UnitCost  *decimal.Decimal `json:"unit_cost,omitempty"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
}

type documentRequest struct {
	Code        string        `json:"code"`
	SupplierID  *int64        `json:"supplier_id,omitempty"`
	WarehouseID int64         `json:"warehouse_id"`
	ReceivedAt  *time.Time    `json:"received_at,omitempty"`
	IssuedAt    *time.Time    `json:"issued_at,omitempty"`
	Note        string        `json:"note"`
	Items       []itemRequest `json:"items"`
}

func (req documentRequest) input(kind Kind) (CreateInput, error) {
	in := CreateInput{
		Code:        req.Code,
		SupplierID:  req.SupplierID,
		WarehouseID: req.WarehouseID,
		Note:        req.Note,
		Lines:       make([]LineInput, 0, len(req.Items)),
	}
	fields := map[string]string{}
	if kind == KindReceipt {
		in.EffectiveAt = req.ReceivedAt
		if req.IssuedAt != nil {
			fields["issued_at"] = "is not allowed on receipts"
		}
	} else {
		in.EffectiveAt = req.IssuedAt
		if req.ReceivedAt != nil {
			fields["received_at"] = "is not allowed on issues"
		}
	}
	for i, item := range req.Items {
		line := LineInput{ProductID: item.ProductID, Quantity: item.Quantity}
		own, other, otherName := item.UnitCost, item.UnitPrice, "unit_price"
		if kind == KindIssue {
			own, other, otherName = item.UnitPrice, item.UnitCost, "unit_cost"
		}
		if other != nil {
			fields["items["+strconv.Itoa(i)+"]."+otherName] = "is not allowed on " + kind.Module()
		}
		if own != nil {
			line.UnitAmount = *own
		}
		in.Lines = append(in.Lines, line)
	}
	if len(fields) > 0 {
		return CreateInput{}, shared.NewValidationError(fields)
	}
	return in, nil
}

type lineView struct {
	ID          int64            `json:"id"`
	ProductID   int64            `json:"product_id"`
	SKU         string           `json:"sku,omitempty"`
	ProductName string           `json:"product_name,omitempty"`
	Quantity    decimal.Decimal  `json:"quantity"`
	UnitCost    *decimal.Decimal `json:"unit_cost,omitempty"`
	UnitPrice   *decimal.Decimal `json:"unit_price,omitempty"`
}

type documentView struct {
	ID            int64           `json:"id"`
	Code          string          `json:"code"`
	SupplierID    *int64          `json:"supplier_id,omitempty"`
	SupplierName  string          `json:"supplier_name,omitempty"`
	WarehouseID   int64           `json:"warehouse_id"`
	WarehouseName string          `json:"warehouse_name,omitempty"`
	Status        Status          `json:"status"`
	ReceivedAt    *time.Time      `json:"received_at,omitempty"`
	IssuedAt      *time.Time      `json:"issued_at,omitempty"`
	Note          string          `json:"note,omitempty"`
	CreatedBy     int64           `json:"created_by"`
	CreatedByName string          `json:"created_by_name,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	LineCount     *int            `json:"line_count,omitempty"`
	TotalQuantity decimal.Decimal `json:"total_quantity"`
	Items         []lineView      `json:"items,omitempty"`
}

func (v *documentView) setEffective(kind Kind, at *time.Time) {
	if kind == KindReceipt {
		v.ReceivedAt = at
	} else {
		v.IssuedAt = at
	}
}

func viewOf(doc Document) documentView {
	v := documentView{
		ID: doc.ID, Code: doc.Code, SupplierID: doc.SupplierID, SupplierName: doc.SupplierName,
		WarehouseID: doc.WarehouseID, WarehouseName: doc.WarehouseName, Status: doc.Status,
		Note: doc.Note, CreatedBy: doc.CreatedBy, CreatedByName: doc.CreatedByName, CreatedAt: doc.CreatedAt,
		TotalQuantity: doc.TotalQuantity(), Items: make([]lineView, 0, len(doc.Lines)),
	}
	v.setEffective(doc.Kind, doc.EffectiveAt)
	for _, l := range doc.Lines {
		lv := lineView{ID: l.ID, ProductID: l.ProductID, SKU: l.SKU, ProductName: l.ProductName, Quantity: l.Quantity}
		amount := l.UnitAmount
		if doc.Kind == KindReceipt {
			lv.UnitCost = &amount
		} else {
			lv.UnitPrice = &amount
		}
		v.Items = append(v.Items, lv)
	}
	return v
}

func summaryView(s Summary) documentView {
	count := s.LineCount
	v := documentView{
		ID: s.ID, Code: s.Code, SupplierID: s.SupplierID, SupplierName: s.SupplierName,
		WarehouseID: s.WarehouseID, WarehouseName: s.WarehouseName, Status: s.Status,
		CreatedBy: s.CreatedBy, CreatedByName: s.CreatedByName, CreatedAt: s.CreatedAt,
		LineCount: &count, TotalQuantity: s.TotalQuantity,
	}
	v.setEffective(s.Kind, s.EffectiveAt)
	return v
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	warehouseID, err := httpx.OptionalInt64(r, "warehouse_id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	rows, err := h.service.List(r.Context(), h.kind, ListFilter{Status: Status(r.URL.Query().Get("status")), WarehouseID: warehouseID})
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	out := make([]documentView, 0, len(rows))
	for _, s := range rows {
		out = append(out, summaryView(s))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	doc, err := h.service.Get(r.Context(), h.kind, id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, viewOf(doc))
}

type historyView struct {
	Action  shared.ApprovalAction `json:"action"`
	ActorID int64                 `json:"actor_id"`
	Note    string                `json:"note,omitempty"`
	At      time.Time             `json:"at"`
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	logs, err := h.service.History(r.Context(), h.kind, id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	out := make([]historyView, 0, len(logs))
	for _, l := range logs {
		out = append(out, historyView{Action: l.Action, ActorID: l.ActorID, Note: l.Note, At: l.At})
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) decode(r *http.Request) (CreateInput, error) {
	var req documentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		return CreateInput{}, err
	}
	return req.input(h.kind)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	if approve, _ := strconv.ParseBool(r.URL.Query().Get("approve")); approve {
		h.rbac.RequireAny(permissions[h.kind].approve)(http.HandlerFunc(h.handleQuickPost)).ServeHTTP(w, r)
		return
	}
	input, err := h.decode(r)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	id, err := h.service.Create(r.Context(), h.kind, actor, input)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (h *Handler) handleQuickPost(w http.ResponseWriter, r *http.Request) {
	input, err := h.decode(r)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	doc, err := h.service.CreateAndApprove(r.Context(), h.kind, actor, input)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, viewOf(doc))
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	h.runTransition(w, r, h.service.Submit)
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	h.runTransition(w, r, h.service.Cancel)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	h.runTransition(w, r, h.service.Delete)
}

func (h *Handler) runTransition(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, kind Kind, id int64, actor shared.Actor) error) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	if err := op(r.Context(), h.kind, id, actor); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	doc, err := h.service.Approve(r.Context(), h.kind, id, actor)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, viewOf(doc))
}
