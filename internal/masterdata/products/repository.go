package products

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/khovattu/khovattu/internal/masterdata/shared"
)

const skuConstraint = "products_sku_key"

type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Product, error)
	Get(ctx context.Context, id int64) (Product, error)
	Create(ctx context.Context, product Product) (Product, error)
	Update(ctx context.Context, id int64, product Product) error
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const selectProducts = `SELECT p.id, p.sku, p.name, p.category_id, COALESCE(c.name, ''), p.unit, p.origin,
       p.cost, p.price, p.min_stock, p.image_url, p.created_at
FROM products p
LEFT JOIN categories c ON c.id = p.category_id`

func scanProduct(row pgx.Row, p *Product) error {
	return row.Scan(&p.ID, &p.SKU, &p.Name, &p.CategoryID, &p.CategoryName, &p.Unit, &p.Origin,
		&p.Cost, &p.Price, &p.MinStock, &p.ImageURL, &p.CreatedAt)
}

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Product, error) {
	query := selectProducts
	var args []any
	if filters.CategoryID != nil {
		query += ` WHERE p.category_id = $1`
		args = append(args, *filters.CategoryID)
	}
	query += ` ORDER BY p.name, p.id`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var p Product
		if err := scanProduct(rows, &p); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Product, error) {
	var p Product
	err := scanProduct(r.db.QueryRow(ctx, selectProducts+` WHERE p.id = $1`, id), &p)
	return p, shared.TranslateWrite(err, "")
}

func (r *repository) Create(ctx context.Context, product Product) (Product, error) {
	query := `INSERT INTO products (sku, name, category_id, unit, origin, cost, price, min_stock, image_url)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id, created_at`
	err := r.db.QueryRow(ctx, query, product.SKU, product.Name, product.CategoryID, product.Unit, product.Origin,
		product.Cost, product.Price, product.MinStock, product.ImageURL).Scan(&product.ID, &product.CreatedAt)
	if err != nil {
		return Product{}, shared.TranslateWrite(err, skuConstraint)
	}
	return product, nil
}

func (r *repository) Update(ctx context.Context, id int64, product Product) error {
	query := `UPDATE products SET sku = $1, name = $2, category_id = $3, unit = $4, origin = $5,
    cost = $6, price = $7, min_stock = $8, image_url = $9
WHERE id = $10`
	tag, err := r.db.Exec(ctx, query, product.SKU, product.Name, product.CategoryID, product.Unit, product.Origin,
		product.Cost, product.Price, product.MinStock, product.ImageURL, id)
	if err != nil {
		return shared.TranslateWrite(err, skuConstraint)
	}
	return shared.RequireRow(tag.RowsAffected())
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return shared.TranslateDelete(err)
	}
	return shared.RequireRow(tag.RowsAffected())
}
