package products

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product represents a stocked item.
type Product struct {
	ID           int64           `json:"id"`
	SKU          string          `json:"sku"`
	Name         string          `json:"name"`
	CategoryID   *int64          `json:"category_id"`
	CategoryName string          `json:"category_name,omitempty"`
	Unit         string          `json:"unit"`
	Origin       string          `json:"origin"`
	Cost         decimal.Decimal `json:"cost"`
	Price        decimal.Decimal `json:"price"`
	MinStock     decimal.Decimal `json:"min_stock"`
	ImageURL     *string         `json:"image_url"`
	CreatedAt    time.Time       `json:"created_at"`
}
