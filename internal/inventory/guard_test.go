package inventory

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type staticBalances struct {
	qty   map[int64]decimal.Decimal
	reads []int64
	err   error
}

func (s *staticBalances) GetBalance(_ context.Context, _ int64, productID int64) (decimal.Decimal, error) {
	s.reads = append(s.reads, productID)
	if s.err != nil {
		return decimal.Zero, s.err
	}
	return s.qty[productID], nil
}

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestGuardReportsEveryShortage(t *testing.T) {
	reader := &staticBalances{qty: map[int64]decimal.Decimal{1: d(5), 2: d(50)}}
	lines := []Line{
		{ProductID: 3, Quantity: d(1)},
		{ProductID: 2, Quantity: d(50)},
		{ProductID: 1, Quantity: d(8)},
	}

	shortages, err := Guard{}.Check(context.Background(), reader, 1, lines)
	require.NoError(t, err)
	require.Len(t, shortages, 2)
	require.Equal(t, int64(3), shortages[0].ProductID)
	require.True(t, shortages[0].Available.IsZero())
	require.Equal(t, int64(1), shortages[1].ProductID)
	require.True(t, shortages[1].Required.Equal(d(8)))
	require.True(t, shortages[1].Available.Equal(d(5)))
	require.Equal(t, []int64{1, 2, 3}, reader.reads)
}

func TestGuardSumsDuplicateProducts(t *testing.T) {
	reader := &staticBalances{qty: map[int64]decimal.Decimal{7: d(5)}}
	lines := []Line{{ProductID: 7, Quantity: d(3)}, {ProductID: 7, Quantity: d(3)}}

	shortages, err := Guard{}.Check(context.Background(), reader, 1, lines)
	require.NoError(t, err)
	require.Len(t, shortages, 1)
	require.True(t, shortages[0].Required.Equal(d(6)))
	require.Len(t, reader.reads, 1)
}

func TestGuardPassesExactStock(t *testing.T) {
	reader := &staticBalances{qty: map[int64]decimal.Decimal{7: decimal.RequireFromString("2.5")}}
	shortages, err := Guard{}.Check(context.Background(), reader, 1, []Line{{ProductID: 7, Quantity: decimal.RequireFromString("2.500")}})
	require.NoError(t, err)
	require.Empty(t, shortages)
}

func TestGuardPropagatesReadErrors(t *testing.T) {
	boom := errors.New("boom")
	reader := &staticBalances{err: boom}
	_, err := Guard{}.Check(context.Background(), reader, 1, []Line{{ProductID: 7, Quantity: d(1)}})
	require.ErrorIs(t, err, boom)
}
