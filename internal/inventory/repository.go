package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/khovattu/khovattu/internal/platform/db"
)

// Repository persists inventory data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Ledger binds the ledger write surface to an open transaction.
func Ledger(tx pgx.Tx) LedgerTx {
	return &pgLedger{q: tx}
}

type pgLedger struct {
	q db.Querier
}

func (l *pgLedger) GetBalance(ctx context.Context, warehouseID, productID int64) (decimal.Decimal, error) {
	return getBalance(ctx, l.q, warehouseID, productID, false)
}

func (l *pgLedger) GetBalanceForUpdate(ctx context.Context, warehouseID, productID int64) (decimal.Decimal, error) {
	return getBalance(ctx, l.q, warehouseID, productID, true)
}

func (l *pgLedger) ApplyDelta(ctx context.Context, warehouseID, productID int64, delta decimal.Decimal) (decimal.Decimal, error) {
	var qty decimal.Decimal
	err := l.q.QueryRow(ctx, `INSERT INTO inventory (warehouse_id, product_id, quantity, updated_at)
VALUES ($1, $2, $3, NOW())
ON CONFLICT (warehouse_id, product_id)
DO UPDATE SET quantity = inventory.quantity + EXCLUDED.quantity, updated_at = NOW()
RETURNING quantity`, warehouseID, productID, delta).Scan(&qty)
	return qty, err
}

func (l *pgLedger) RecordMovement(ctx context.Context, m Movement) (int64, error) {
	var id int64
	err := l.q.QueryRow(ctx, `INSERT INTO stock_movements (product_id, warehouse_id, movement_type, quantity, reference_type, reference_id)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		m.ProductID, m.WarehouseID, string(m.Type), m.Quantity, string(m.ReferenceType), m.ReferenceID).Scan(&id)
	return id, err
}

func getBalance(ctx context.Context, q db.Querier, warehouseID, productID int64, forUpdate bool) (decimal.Decimal, error) {
	sql := `SELECT quantity FROM inventory WHERE warehouse_id = $1 AND product_id = $2`
	if forUpdate {
		sql += ` FOR UPDATE`
	}
	var qty decimal.Decimal
	err := q.QueryRow(ctx, sql, warehouseID, productID).Scan(&qty)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return qty, nil
}

// GetBalance reads a balance outside any transaction.
func (r *Repository) GetBalance(ctx context.Context, warehouseID, productID int64) (decimal.Decimal, error) {
	return getBalance(ctx, r.pool, warehouseID, productID, false)
}

// ListInventory returns ledger rows joined with product and warehouse names.
func (r *Repository) ListInventory(ctx context.Context, filter InventoryFilter) ([]StockRow, error) {
	var (
		conds []string
		args  []any
	)
	if filter.WarehouseID != 0 {
		args = append(args, filter.WarehouseID)
		conds = append(conds, fmt.Sprintf("i.warehouse_id = $%d", len(args)))
	}
	if filter.ProductID != 0 {
		args = append(args, filter.ProductID)
		conds = append(conds, fmt.Sprintf("i.product_id = $%d", len(args)))
	}
	sql := `SELECT i.warehouse_id, w.name, i.product_id, p.sku, p.name, p.unit, i.quantity, i.updated_at
FROM inventory i
JOIN warehouses w ON w.id = i.warehouse_id
JOIN products p ON p.id = i.product_id`
	if len(conds) > 0 {
		sql += " WHERE " + strings.Join(conds, " AND ")
	}
	sql += " ORDER BY w.name, p.name"

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []StockRow
	for rows.Next() {
		var s StockRow
		if err := rows.Scan(&s.WarehouseID, &s.WarehouseName, &s.ProductID, &s.SKU, &s.ProductName, &s.Unit, &s.Quantity, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListMovements returns movement history, newest first.
func (r *Repository) ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error) {
	var (
		conds []string
		args  []any
	)
	add := func(col string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if filter.WarehouseID != 0 {
		add("warehouse_id", filter.WarehouseID)
	}
	if filter.ProductID != 0 {
		add("product_id", filter.ProductID)
	}
	if filter.ReferenceType != "" {
		add("reference_type", string(filter.ReferenceType))
	}
	if filter.ReferenceID != 0 {
		add("reference_id", filter.ReferenceID)
	}
	sql := `SELECT id, product_id, warehouse_id, movement_type, quantity, reference_type, reference_id, created_at FROM stock_movements`
	if len(conds) > 0 {
		sql += " WHERE " + strings.Join(conds, " AND ")
	}
	sql += " ORDER BY created_at DESC, id DESC"

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Movement
	for rows.Next() {
		var (
			m       Movement
			mType   string
			refType string
		)
		if err := rows.Scan(&m.ID, &m.ProductID, &m.WarehouseID, &mType, &m.Quantity, &refType, &m.ReferenceID, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Type = MovementType(mType)
		m.ReferenceType = ReferenceType(refType)
		out = append(out, m)
	}
	return out, rows.Err()
}

// ProductTotals sums stock per product across all warehouses. Products with
// no ledger rows report zero.
func (r *Repository) ProductTotals(ctx context.Context) ([]ProductStock, error) {
	rows, err := r.pool.Query(ctx, `SELECT p.id, p.sku, p.name, p.unit, p.origin, COALESCE(SUM(i.quantity), 0)
FROM products p
LEFT JOIN inventory i ON i.product_id = p.id
GROUP BY p.id, p.sku, p.name, p.unit, p.origin
ORDER BY p.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ProductStock
	for rows.Next() {
		var p ProductStock
		if err := rows.Scan(&p.ProductID, &p.SKU, &p.Name, &p.Unit, &p.Origin, &p.TotalQuantity); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// IntegrityMismatches returns ledger pairs whose balance differs from the sum
// of their movements, including movement-only pairs with no ledger row.
func (r *Repository) IntegrityMismatches(ctx context.Context) ([]IntegrityIssue, error) {
	rows, err := r.pool.Query(ctx, `WITH sums AS (
    SELECT warehouse_id, product_id, SUM(quantity) AS total
    FROM stock_movements
    GROUP BY warehouse_id, product_id
)
SELECT COALESCE(i.warehouse_id, s.warehouse_id), COALESCE(i.product_id, s.product_id),
       COALESCE(i.quantity, 0), COALESCE(s.total, 0)
FROM inventory i
FULL OUTER JOIN sums s ON s.warehouse_id = i.warehouse_id AND s.product_id = i.product_id
WHERE COALESCE(i.quantity, 0) <> COALESCE(s.total, 0)`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []IntegrityIssue
	for rows.Next() {
		var it IntegrityIssue
		if err := rows.Scan(&it.WarehouseID, &it.ProductID, &it.Balance, &it.MovementTotal); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// LowStock returns products whose total stock is below a positive min_stock.
func (r *Repository) LowStock(ctx context.Context) ([]LowStockItem, error) {
	rows, err := r.pool.Query(ctx, `SELECT p.id, p.sku, p.name, COALESCE(SUM(i.quantity), 0) AS total, p.min_stock
FROM products p
LEFT JOIN inventory i ON i.product_id = p.id
WHERE p.min_stock > 0
GROUP BY p.id, p.sku, p.name, p.min_stock
HAVING COALESCE(SUM(i.quantity), 0) < p.min_stock
ORDER BY p.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LowStockItem
	for rows.Next() {
		var it LowStockItem
		if err := rows.Scan(&it.ProductID, &it.SKU, &it.Name, &it.TotalQuantity, &it.MinStock); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}
