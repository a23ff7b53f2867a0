package warehouses

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/khovattu/khovattu/internal/masterdata/shared"
	core "github.com/khovattu/khovattu/internal/shared"
)

type memoryRepo struct {
	rows   []Warehouse
	inUse  map[int64]bool
	nextID int64
}

func (r *memoryRepo) List(context.Context) ([]Warehouse, error) { return r.rows, nil }

func (r *memoryRepo) Get(_ context.Context, id int64) (Warehouse, error) {
	for _, w := range r.rows {
		if w.ID == id {
			return w, nil
		}
	}
	return Warehouse{}, shared.ErrNotFound
}

func (r *memoryRepo) Create(_ context.Context, w Warehouse) (Warehouse, error) {
	r.nextID++
	w.ID = r.nextID
	r.rows = append(r.rows, w)
	return w, nil
}

func (r *memoryRepo) Update(_ context.Context, id int64, w Warehouse) error {
	for i := range r.rows {
		if r.rows[i].ID == id {
			w.ID, w.IsDefault = id, r.rows[i].IsDefault
			r.rows[i] = w
			return nil
		}
	}
	return shared.ErrNotFound
}

func (r *memoryRepo) Delete(_ context.Context, id int64) error {
	if r.inUse[id] {
		return shared.ErrInUse
	}
	for i := range r.rows {
		if r.rows[i].ID == id {
			r.rows = append(r.rows[:i], r.rows[i+1:]...)
			return nil
		}
	}
	return shared.ErrNotFound
}

func (r *memoryRepo) CreateIfEmpty(ctx context.Context, w Warehouse) (Warehouse, bool, error) {
	if len(r.rows) > 0 {
		return Warehouse{}, false, nil
	}
	w.IsDefault = true
	created, err := r.Create(ctx, w)
	return created, err == nil, err
}

func TestEnsureDefaultSeedsOnce(t *testing.T) {
	repo := &memoryRepo{}
	svc := NewService(repo, nil)
	ctx := context.Background()

	require.NoError(t, svc.EnsureDefault(ctx, "Kho nhan", "Mac dinh"))
	require.NoError(t, svc.EnsureDefault(ctx, "Kho nhan", "Mac dinh"))

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.True(t, list[0].IsDefault)
	require.Equal(t, "Mac dinh", *list[0].Location)

	require.ErrorIs(t, svc.EnsureDefault(context.Background(), " ", ""), core.ErrValidation)
}

func TestWarehouseCRUD(t *testing.T) {
	repo := &memoryRepo{inUse: map[int64]bool{}}
	svc := NewService(repo, nil)
	ctx := context.Background()

	blank := "   "
	w, err := svc.Create(ctx, WarehouseForm{Name: " Kho B ", Location: &blank})
	require.NoError(t, err)
	require.Equal(t, "Kho B", w.Name)
	require.Nil(t, w.Location)

	_, err = svc.Create(ctx, WarehouseForm{})
	require.ErrorIs(t, err, core.ErrValidation)

	require.NoError(t, svc.Update(ctx, w.ID, WarehouseForm{Name: "Kho C"}))
	got, err := svc.Get(ctx, w.ID)
	require.NoError(t, err)
	require.Equal(t, "Kho C", got.Name)
	require.ErrorIs(t, svc.Update(ctx, 99, WarehouseForm{Name: "X"}), core.ErrNotFound)

	repo.inUse[w.ID] = true
	require.ErrorIs(t, svc.Delete(ctx, w.ID), core.ErrConflict)
	repo.inUse[w.ID] = false
	require.NoError(t, svc.Delete(ctx, w.ID))
}
