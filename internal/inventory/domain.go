package inventory

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/khovattu/khovattu/internal/shared"
)

// MovementType is the direction of a stock movement.
type MovementType string

const (
	// MovementIn adds stock.
	MovementIn MovementType = "in"
	// MovementOut removes stock.
	MovementOut MovementType = "out"
)

// ReferenceType names the document that caused a movement.
type ReferenceType string

const (
	// ReferenceReceipt marks movements written by an approved receipt.
	ReferenceReceipt ReferenceType = "receipt"
	// ReferenceIssue marks movements written by an approved issue.
	ReferenceIssue ReferenceType = "issue"
)

// Balance is the on-hand quantity of one product in one warehouse.
type Balance struct {
	WarehouseID int64           `json:"warehouse_id"`
	ProductID   int64           `json:"product_id"`
	Quantity    decimal.Decimal `json:"quantity"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Movement is one append-only ledger history entry. Quantity is signed:
// positive for MovementIn, negative for MovementOut.
type Movement struct {
	ID            int64           `json:"id"`
	ProductID     int64           `json:"product_id"`
	WarehouseID   int64           `json:"warehouse_id"`
	Type          MovementType    `json:"movement_type"`
	Quantity      decimal.Decimal `json:"quantity"`
	ReferenceType ReferenceType   `json:"reference_type"`
	ReferenceID   int64           `json:"reference_id"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Line is a requested quantity of a product.
type Line struct {
	ProductID int64
	Quantity  decimal.Decimal
}

// Shortage describes one product whose requested quantity exceeds stock.
type Shortage struct {
	ProductID int64           `json:"product_id"`
	Required  decimal.Decimal `json:"required"`
	Available decimal.Decimal `json:"available"`
}

// ApplyInput groups the ledger effects of one approved document.
type ApplyInput struct {
	Direction     MovementType
	WarehouseID   int64
	ReferenceType ReferenceType
	ReferenceID   int64
	Lines         []Line
}

// StockRow is one row of the inventory listing.
type StockRow struct {
	WarehouseID   int64           `json:"warehouse_id"`
	WarehouseName string          `json:"warehouse_name"`
	ProductID     int64           `json:"product_id"`
	SKU           string          `json:"sku"`
	ProductName   string          `json:"product_name"`
	Unit          string          `json:"unit"`
	Quantity      decimal.Decimal `json:"quantity"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// InventoryFilter narrows ListInventory. Zero values mean no filter.
type InventoryFilter struct {
	WarehouseID int64
	ProductID   int64
}

// MovementFilter narrows movement history. Zero values mean no filter.
type MovementFilter struct {
	WarehouseID   int64
	ProductID     int64
	ReferenceType ReferenceType
	ReferenceID   int64
}

// ProductStock is the stock of a product summed across warehouses.
type ProductStock struct {
	ProductID     int64           `json:"product_id"`
	SKU           string          `json:"sku"`
	Name          string          `json:"name"`
	Unit          string          `json:"unit"`
	Origin        string          `json:"origin"`
	TotalQuantity decimal.Decimal `json:"total_quantity"`
}

// IntegrityIssue is a ledger pair whose balance disagrees with its movements.
type IntegrityIssue struct {
	WarehouseID   int64           `json:"warehouse_id"`
	ProductID     int64           `json:"product_id"`
	Balance       decimal.Decimal `json:"balance"`
	MovementTotal decimal.Decimal `json:"movement_total"`
}

// LowStockItem is a product whose total stock is below its minimum.
type LowStockItem struct {
	ProductID     int64           `json:"product_id"`
	SKU           string          `json:"sku"`
	Name          string          `json:"name"`
	TotalQuantity decimal.Decimal `json:"total_quantity"`
	MinStock      decimal.Decimal `json:"min_stock"`
}

var (
	// ErrInvalidMovement rejects malformed Apply input.
	ErrInvalidMovement = fmt.Errorf("inventory: invalid movement: %w", shared.ErrValidation)
	// ErrUnknownDirection rejects a direction other than in/out.
	ErrUnknownDirection = errors.New("inventory: unknown movement direction")
)

// Valid reports whether r is a known reference type.
func (r ReferenceType) Valid() bool {
	return r == ReferenceReceipt || r == ReferenceIssue
}
