package inventory

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/shopspring/decimal"
)

// BalanceReader reads a single ledger balance. A missing row reads as zero.
type BalanceReader interface {
	GetBalance(ctx context.Context, warehouseID, productID int64) (decimal.Decimal, error)
}

// LedgerTx is the transactional write surface of the ledger and the movement
// log. Implementations must run every call inside the caller's transaction.
type LedgerTx interface {
	BalanceReader
	// GetBalanceForUpdate reads a balance and holds a row lock until the
	// transaction ends.
	GetBalanceForUpdate(ctx context.Context, warehouseID, productID int64) (decimal.Decimal, error)
	// ApplyDelta atomically adds delta to the balance, creating the row seeded
	// at delta when absent, and returns the new balance. It does not validate
	// the sign of the result.
	ApplyDelta(ctx context.Context, warehouseID, productID int64, delta decimal.Decimal) (decimal.Decimal, error)
	// RecordMovement appends a movement and returns its id.
	RecordMovement(ctx context.Context, m Movement) (int64, error)
}

// Locking adapts a LedgerTx so plain balance reads take row locks. The
// shortage guard uses it when approvals must serialize per ledger key.
func Locking(tx LedgerTx) BalanceReader {
	return lockingReader{tx: tx}
}

type lockingReader struct {
	tx LedgerTx
}

func (l lockingReader) GetBalance(ctx context.Context, warehouseID, productID int64) (decimal.Decimal, error) {
	return l.tx.GetBalanceForUpdate(ctx, warehouseID, productID)
}

// Apply writes the ledger effects of an approved document: for every line one
// balance delta and one movement carrying the same signed quantity. It is the
// only write path into the ledger and must run inside the approval transaction.
// Lines are written in product order, the same order the guard locks in, so
// concurrent approvals touching the same products queue instead of deadlocking.
func Apply(ctx context.Context, tx LedgerTx, in ApplyInput) ([]Movement, error) {
	var sign decimal.Decimal
	switch in.Direction {
	case MovementIn:
		sign = decimal.NewFromInt(1)
	case MovementOut:
		sign = decimal.NewFromInt(-1)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDirection, in.Direction)
	}
	if in.WarehouseID == 0 || in.ReferenceID == 0 || !in.ReferenceType.Valid() {
		return nil, ErrInvalidMovement
	}

	lines := slices.Clone(in.Lines)
	slices.SortStableFunc(lines, func(a, b Line) int { return cmp.Compare(a.ProductID, b.ProductID) })

	movements := make([]Movement, 0, len(lines))
	for _, line := range lines {
		if line.ProductID == 0 || !line.Quantity.IsPositive() {
			return nil, fmt.Errorf("%w: product %d quantity %s", ErrInvalidMovement, line.ProductID, line.Quantity)
		}
		delta := line.Quantity.Mul(sign)
		if _, err := tx.ApplyDelta(ctx, in.WarehouseID, line.ProductID, delta); err != nil {
			return nil, fmt.Errorf("inventory: apply delta product %d: %w", line.ProductID, err)
		}
		m := Movement{
			ProductID:     line.ProductID,
			WarehouseID:   in.WarehouseID,
			Type:          in.Direction,
			Quantity:      delta,
			ReferenceType: in.ReferenceType,
			ReferenceID:   in.ReferenceID,
		}
		id, err := tx.RecordMovement(ctx, m)
		if err != nil {
			return nil, fmt.Errorf("inventory: record movement product %d: %w", line.ProductID, err)
		}
		m.ID = id
		movements = append(movements, m)
	}
	return movements, nil
}
