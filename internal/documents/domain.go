package documents

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/khovattu/khovattu/internal/inventory"
)

// Column scales of line quantities and unit amounts. Finer values would be
// rounded by the database after validation.
const (
	quantityScale = 3
	amountScale   = 2
)

func fitsScale(d decimal.Decimal, places int32) bool {
	return d.Equal(d.Truncate(places))
}

// Kind distinguishes inbound receipts from outbound issues.
type Kind string

const (
	// KindReceipt credits stock on approval.
	KindReceipt Kind = "receipt"
	// KindIssue debits stock on approval and is subject to the shortage guard.
	KindIssue Kind = "issue"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindReceipt || k == KindIssue
}

// Module names the approval-log module of k.
func (k Kind) Module() string {
	return string(k) + "s"
}

func (k Kind) direction() inventory.MovementType {
	if k == KindIssue {
		return inventory.MovementOut
	}
	return inventory.MovementIn
}

func (k Kind) referenceType() inventory.ReferenceType {
	if k == KindIssue {
		return inventory.ReferenceIssue
	}
	return inventory.ReferenceReceipt
}

// Status is a document lifecycle state.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSubmitted Status = "submitted"
	StatusApproved  Status = "approved"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusSubmitted, StatusApproved, StatusCancelled:
		return true
	}
	return false
}

// Document is a receipt or issue header with its lines. EffectiveAt is the
// received_at of a receipt or the issued_at of an issue.
type Document struct {
	ID            int64
	Kind          Kind
	Code          string
	SupplierID    *int64
	SupplierName  string
	WarehouseID   int64
	WarehouseName string
	Status        Status
	EffectiveAt   *time.Time
	Note          string
	CreatedBy     int64
	CreatedByName string
	CreatedAt     time.Time
	Lines         []Line
}

// Line is one product line. UnitAmount is unit_cost on receipts and
// unit_price on issues.
type Line struct {
	ID          int64
	DocumentID  int64
	ProductID   int64
	SKU         string
	ProductName string
	Quantity    decimal.Decimal
	UnitAmount  decimal.Decimal
}

// Amount is quantity times unit amount.
func (l Line) Amount() decimal.Decimal {
	return l.Quantity.Mul(l.UnitAmount)
}

// TotalQuantity sums line quantities.
func (d Document) TotalQuantity() decimal.Decimal {
	total := decimal.Zero
	for _, l := range d.Lines {
		total = total.Add(l.Quantity)
	}
	return total
}

// TotalAmount sums line amounts.
func (d Document) TotalAmount() decimal.Decimal {
	total := decimal.Zero
	for _, l := range d.Lines {
		total = total.Add(l.Amount())
	}
	return total
}

func (d Document) ledgerLines() []inventory.Line {
	out := make([]inventory.Line, len(d.Lines))
	for i, l := range d.Lines {
		out[i] = inventory.Line{ProductID: l.ProductID, Quantity: l.Quantity}
	}
	return out
}

// CreateInput is the validated payload of create.
type CreateInput struct {
	Code        string      `validate:"required,max=64"`
	SupplierID  *int64      `validate:"omitempty,gt=0"`
	WarehouseID int64       `validate:"required,gt=0"`
	EffectiveAt *time.Time
	Note        string      `validate:"max=1000"`
	Lines       []LineInput `validate:"required,min=1,dive"`
}

// LineInput is one requested line.
type LineInput struct {
	ProductID  int64 `validate:"required,gt=0"`
	Quantity   decimal.Decimal
	UnitAmount decimal.Decimal
}

// ListFilter narrows List. Zero values mean no filter.
type ListFilter struct {
	Status      Status
	WarehouseID int64
}

// Summary is a list row.
type Summary struct {
	ID            int64
	Kind          Kind
	Code          string
	SupplierID    *int64
	SupplierName  string
	WarehouseID   int64
	WarehouseName string
	Status        Status
	EffectiveAt   *time.Time
	CreatedBy     int64
	CreatedByName string
	CreatedAt     time.Time
	LineCount     int
	TotalQuantity decimal.Decimal
}
