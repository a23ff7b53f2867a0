package products

import "github.com/shopspring/decimal"

// ProductForm is the create/update payload.
type ProductForm struct {
	SKU        string          `json:"sku" validate:"required,max=64"`
	Name       string          `json:"name" validate:"required,max=255"`
	CategoryID *int64          `json:"category_id" validate:"omitempty,gt=0"`
	Unit       string          `json:"unit" validate:"required,max=32"`
	Origin     string          `json:"origin" validate:"max=128"`
	Cost       decimal.Decimal `json:"cost"`
	Price      decimal.Decimal `json:"price"`
	MinStock   decimal.Decimal `json:"min_stock"`
	ImageURL   *string         `json:"image_url" validate:"omitempty,url"`
}

func (f ProductForm) product() Product {
	return Product{
		SKU:        f.SKU,
		Name:       f.Name,
		CategoryID: f.CategoryID,
		Unit:       f.Unit,
		Origin:     f.Origin,
		Cost:       f.Cost,
		Price:      f.Price,
		MinStock:   f.MinStock,
		ImageURL:   f.ImageURL,
	}
}
