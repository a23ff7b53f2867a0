package suppliers

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/khovattu/khovattu/internal/masterdata/shared"
)

type Repository interface {
	List(ctx context.Context) ([]Supplier, error)
	Get(ctx context.Context, id int64) (Supplier, error)
	Create(ctx context.Context, supplier Supplier) (Supplier, error)
	Update(ctx context.Context, id int64, supplier Supplier) error
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) List(ctx context.Context) ([]Supplier, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, phone, email, address FROM suppliers ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Supplier
	for rows.Next() {
		var s Supplier
		if err := rows.Scan(&s.ID, &s.Name, &s.Phone, &s.Email, &s.Address); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Supplier, error) {
	var s Supplier
	err := r.db.QueryRow(ctx, `SELECT id, name, phone, email, address FROM suppliers WHERE id = $1`, id).
		Scan(&s.ID, &s.Name, &s.Phone, &s.Email, &s.Address)
	return s, shared.TranslateWrite(err, "")
}

func (r *repository) Create(ctx context.Context, supplier Supplier) (Supplier, error) {
	err := r.db.QueryRow(ctx, `INSERT INTO suppliers (name, phone, email, address) VALUES ($1, $2, $3, $4) RETURNING id`,
		supplier.Name, supplier.Phone, supplier.Email, supplier.Address).Scan(&supplier.ID)
	if err != nil {
		return Supplier{}, shared.TranslateWrite(err, "")
	}
	return supplier, nil
}

func (r *repository) Update(ctx context.Context, id int64, supplier Supplier) error {
	tag, err := r.db.Exec(ctx, `UPDATE suppliers SET name = $1, phone = $2, email = $3, address = $4 WHERE id = $5`,
		supplier.Name, supplier.Phone, supplier.Email, supplier.Address, id)
	if err != nil {
		return shared.TranslateWrite(err, "")
	}
	return shared.RequireRow(tag.RowsAffected())
}

// Delete removes a supplier not referenced by any receipt.
func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM suppliers WHERE id = $1`, id)
	if err != nil {
		return shared.TranslateDelete(err)
	}
	return shared.RequireRow(tag.RowsAffected())
}
