package inventory

import (
	"context"
	"fmt"
	"slices"

	"github.com/shopspring/decimal"
)

// Guard checks whether a warehouse holds enough stock for a set of lines.
type Guard struct{}

// Check evaluates every requested product and returns all shortages in the
// order products first appear in lines. Lines for the same product are summed
// before comparison. Balances are read in ascending product order so a
// locking reader always acquires row locks in the same order.
func (Guard) Check(ctx context.Context, reader BalanceReader, warehouseID int64, lines []Line) ([]Shortage, error) {
	required := make(map[int64]decimal.Decimal, len(lines))
	order := make([]int64, 0, len(lines))
	for _, line := range lines {
		if cur, ok := required[line.ProductID]; ok {
			required[line.ProductID] = cur.Add(line.Quantity)
			continue
		}
		required[line.ProductID] = line.Quantity
		order = append(order, line.ProductID)
	}

	sorted := slices.Clone(order)
	slices.Sort(sorted)
	available := make(map[int64]decimal.Decimal, len(sorted))
	for _, productID := range sorted {
		qty, err := reader.GetBalance(ctx, warehouseID, productID)
		if err != nil {
			return nil, fmt.Errorf("inventory: read balance product %d: %w", productID, err)
		}
		available[productID] = qty
	}

	var shortages []Shortage
	for _, productID := range order {
		if available[productID].LessThan(required[productID]) {
			shortages = append(shortages, Shortage{
				ProductID: productID,
				Required:  required[productID],
				Available: available[productID],
			})
		}
	}
	return shortages, nil
}
