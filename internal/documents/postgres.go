package documents

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/khovattu/khovattu/internal/inventory"
	"github.com/khovattu/khovattu/internal/platform/db"
)

type tableSet struct {
	header    string
	items     string
	fk        string
	effective string
	unit      string
	codeKey   string
}

var tables = map[Kind]tableSet{
	KindReceipt: {header: "receipts", items: "receipt_items", fk: "receipt_id", effective: "received_at", unit: "unit_cost", codeKey: "receipts_code_key"},
	KindIssue:   {header: "issues", items: "issue_items", fk: "issue_id", effective: "issued_at", unit: "unit_price", codeKey: "issues_code_key"},
}

// PGRepository persists documents in PostgreSQL.
type PGRepository struct {
	pool     *pgxpool.Pool
	balances *inventory.Repository
}

// NewRepository constructs PGRepository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool, balances: inventory.NewRepository(pool)}
}

var _ Repository = (*PGRepository)(nil)

// WithTx executes fn inside one read-committed transaction.
func (r *PGRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &pgTx{LedgerTx: inventory.Ledger(tx), tx: tx})
	})
}

// GetBalance reads a ledger balance outside any transaction.
func (r *PGRepository) GetBalance(ctx context.Context, warehouseID, productID int64) (decimal.Decimal, error) {
	return r.balances.GetBalance(ctx, warehouseID, productID)
}

// Get loads a header with its lines.
func (r *PGRepository) Get(ctx context.Context, kind Kind, id int64) (Document, error) {
	t := tables[kind]
	doc := Document{Kind: kind}
	var status string
	err := r.pool.QueryRow(ctx, fmt.Sprintf(`SELECT d.id, d.code, %s, %s, d.warehouse_id, w.name, d.status, d.%s, d.note,
       d.created_by, u.full_name, d.created_at
FROM %s d
JOIN warehouses w ON w.id = d.warehouse_id
JOIN users u ON u.id = d.created_by
%s
WHERE d.id = $1`, supplierCols(kind), supplierNameCol(kind), t.effective, t.header, supplierJoin(kind)), id).
		Scan(&doc.ID, &doc.Code, &doc.SupplierID, &doc.SupplierName, &doc.WarehouseID, &doc.WarehouseName, &status,
			&doc.EffectiveAt, &doc.Note, &doc.CreatedBy, &doc.CreatedByName, &doc.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, err
	}
	doc.Status = Status(status)

	rows, err := r.pool.Query(ctx, fmt.Sprintf(`SELECT l.id, l.%s, l.product_id, p.sku, p.name, l.quantity, l.%s
FROM %s l
JOIN products p ON p.id = l.product_id
WHERE l.%s = $1
ORDER BY l.id`, t.fk, t.unit, t.items, t.fk), id)
	if err != nil {
		return Document{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ID, &l.DocumentID, &l.ProductID, &l.SKU, &l.ProductName, &l.Quantity, &l.UnitAmount); err != nil {
			return Document{}, err
		}
		doc.Lines = append(doc.Lines, l)
	}
	return doc, rows.Err()
}

// List returns summaries, newest first.
func (r *PGRepository) List(ctx context.Context, kind Kind, filter ListFilter) ([]Summary, error) {
	t := tables[kind]
	var (
		conds []string
		args  []any
	)
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conds = append(conds, fmt.Sprintf("d.status = $%d", len(args)))
	}
	if filter.WarehouseID != 0 {
		args = append(args, filter.WarehouseID)
		conds = append(conds, fmt.Sprintf("d.warehouse_id = $%d", len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}
	sql := fmt.Sprintf(`SELECT d.id, d.code, %s, %s, d.warehouse_id, w.name, d.status, d.%s,
       d.created_by, u.full_name, d.created_at,
       (SELECT COUNT(*) FROM %s l WHERE l.%s = d.id),
       (SELECT COALESCE(SUM(l.quantity), 0) FROM %s l WHERE l.%s = d.id)
FROM %s d
JOIN warehouses w ON w.id = d.warehouse_id
JOIN users u ON u.id = d.created_by
%s
%s
ORDER BY d.created_at DESC, d.id DESC`, supplierCols(kind), supplierNameCol(kind), t.effective,
		t.items, t.fk, t.items, t.fk, t.header, supplierJoin(kind), where)

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Summary
	for rows.Next() {
		s := Summary{Kind: kind}
		var status string
		if err := rows.Scan(&s.ID, &s.Code, &s.SupplierID, &s.SupplierName, &s.WarehouseID, &s.WarehouseName, &status,
			&s.EffectiveAt, &s.CreatedBy, &s.CreatedByName, &s.CreatedAt, &s.LineCount, &s.TotalQuantity); err != nil {
			return nil, err
		}
		s.Status = Status(status)
		out = append(out, s)
	}
	return out, rows.Err()
}

func supplierCols(kind Kind) string {
	if kind == KindReceipt {
		return "d.supplier_id"
	}
	return "NULL::BIGINT"
}

func supplierNameCol(kind Kind) string {
	if kind == KindReceipt {
		return "COALESCE(s.name, '')"
	}
	return "''"
}

func supplierJoin(kind Kind) string {
	if kind == KindReceipt {
		return "LEFT JOIN suppliers s ON s.id = d.supplier_id"
	}
	return ""
}

type pgTx struct {
	inventory.LedgerTx
	tx pgx.Tx
}

func (t *pgTx) Insert(ctx context.Context, doc Document) (int64, error) {
	ts := tables[doc.Kind]
	var (
		id  int64
		err error
	)
	if doc.Kind == KindReceipt {
		err = t.tx.QueryRow(ctx, `INSERT INTO receipts (code, supplier_id, warehouse_id, status, received_at, note, created_by)
VALUES ($1, $2, $3, 'draft', $4, $5, $6) RETURNING id`,
			doc.Code, doc.SupplierID, doc.WarehouseID, doc.EffectiveAt, doc.Note, doc.CreatedBy).Scan(&id)
	} else {
		err = t.tx.QueryRow(ctx, `INSERT INTO issues (code, warehouse_id, status, issued_at, note, created_by)
VALUES ($1, $2, 'draft', $3, $4, $5) RETURNING id`,
			doc.Code, doc.WarehouseID, doc.EffectiveAt, doc.Note, doc.CreatedBy).Scan(&id)
	}
	if err != nil {
		return 0, translate(err, ts.codeKey)
	}
	insertLine := fmt.Sprintf(`INSERT INTO %s (%s, product_id, quantity, %s) VALUES ($1, $2, $3, $4)`, ts.items, ts.fk, ts.unit)
	for _, l := range doc.Lines {
		if _, err := t.tx.Exec(ctx, insertLine, id, l.ProductID, l.Quantity, l.UnitAmount); err != nil {
			return 0, translate(err, ts.codeKey)
		}
	}
	return id, nil
}

func (t *pgTx) UpdateStatus(ctx context.Context, kind Kind, id int64, from []Status, to Status, effectiveAt *time.Time) (bool, error) {
	ts := tables[kind]
	tag, err := t.tx.Exec(ctx, fmt.Sprintf(`UPDATE %s SET status = $2, %s = COALESCE($3, %s) WHERE id = $1 AND status = ANY($4)`,
		ts.header, ts.effective, ts.effective), id, string(to), effectiveAt, statusStrings(from))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (t *pgTx) Delete(ctx context.Context, kind Kind, id int64, from []Status) (bool, error) {
	tag, err := t.tx.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND status = ANY($2)`, tables[kind].header), id, statusStrings(from))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (t *pgTx) StatusOf(ctx context.Context, kind Kind, id int64) (Status, error) {
	var status string
	err := t.tx.QueryRow(ctx, fmt.Sprintf(`SELECT status FROM %s WHERE id = $1`, tables[kind].header), id).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	return Status(status), err
}

func statusStrings(in []Status) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = string(s)
	}
	return out
}

func translate(err error, codeKey string) error {
	switch {
	case db.IsUniqueViolation(err, codeKey):
		return ErrDuplicateCode
	case db.IsForeignKeyViolation(err):
		return fmt.Errorf("%w: %v", ErrUnknownReference, err)
	}
	return err
}
