package warehouses

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/khovattu/khovattu/internal/masterdata/shared"
)

type Repository interface {
	List(ctx context.Context) ([]Warehouse, error)
	Get(ctx context.Context, id int64) (Warehouse, error)
	Create(ctx context.Context, warehouse Warehouse) (Warehouse, error)
	Update(ctx context.Context, id int64, warehouse Warehouse) error
	Delete(ctx context.Context, id int64) error
	// CreateIfEmpty inserts warehouse only when no warehouse exists and
	// reports whether it did.
	CreateIfEmpty(ctx context.Context, warehouse Warehouse) (Warehouse, bool, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) List(ctx context.Context) ([]Warehouse, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, location, is_default FROM warehouses ORDER BY is_default DESC, name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Warehouse
	for rows.Next() {
		var w Warehouse
		if err := rows.Scan(&w.ID, &w.Name, &w.Location, &w.IsDefault); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Warehouse, error) {
	var w Warehouse
	err := r.db.QueryRow(ctx, `SELECT id, name, location, is_default FROM warehouses WHERE id = $1`, id).
		Scan(&w.ID, &w.Name, &w.Location, &w.IsDefault)
	return w, shared.TranslateWrite(err, "")
}

func (r *repository) Create(ctx context.Context, warehouse Warehouse) (Warehouse, error) {
	err := r.db.QueryRow(ctx, `INSERT INTO warehouses (name, location) VALUES ($1, $2) RETURNING id`,
		warehouse.Name, warehouse.Location).Scan(&warehouse.ID)
	if err != nil {
		return Warehouse{}, shared.TranslateWrite(err, "")
	}
	return warehouse, nil
}

func (r *repository) Update(ctx context.Context, id int64, warehouse Warehouse) error {
	tag, err := r.db.Exec(ctx, `UPDATE warehouses SET name = $1, location = $2 WHERE id = $3`,
		warehouse.Name, warehouse.Location, id)
	if err != nil {
		return shared.TranslateWrite(err, "")
	}
	return shared.RequireRow(tag.RowsAffected())
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM warehouses WHERE id = $1`, id)
	if err != nil {
		return shared.TranslateDelete(err)
	}
	return shared.RequireRow(tag.RowsAffected())
}

func (r *repository) CreateIfEmpty(ctx context.Context, warehouse Warehouse) (Warehouse, bool, error) {
	err := r.db.QueryRow(ctx, `INSERT INTO warehouses (name, location, is_default)
SELECT $1, $2, TRUE
WHERE NOT EXISTS (SELECT 1 FROM warehouses)
ON CONFLICT DO NOTHING
RETURNING id`, warehouse.Name, warehouse.Location).Scan(&warehouse.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		return Warehouse{}, false, nil
	}
	if err != nil {
		return Warehouse{}, false, err
	}
	warehouse.IsDefault = true
	return warehouse, true, nil
}
