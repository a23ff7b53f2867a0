package documents

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/khovattu/khovattu/internal/inventory"
)

var errInjected = errors.New("injected storage failure")

type ledgerKey struct {
	warehouseID int64
	productID   int64
}

type memState struct {
	docs      map[Kind]map[int64]Document
	balances  map[ledgerKey]decimal.Decimal
	movements []inventory.Movement
	nextID    int64
}

func (s *memState) clone() *memState {
	c := &memState{
		docs:      map[Kind]map[int64]Document{},
		balances:  make(map[ledgerKey]decimal.Decimal, len(s.balances)),
		movements: append([]inventory.Movement(nil), s.movements...),
		nextID:    s.nextID,
	}
	for kind, docs := range s.docs {
		c.docs[kind] = make(map[int64]Document, len(docs))
		for id, d := range docs {
			c.docs[kind][id] = d
		}
	}
	for k, v := range s.balances {
		c.balances[k] = v
	}
	return c
}

// memoryRepo commits a transaction's working copy only when fn succeeds, so
// any error leaves the previous state untouched.
type memoryRepo struct {
	mu       sync.Mutex
	state    *memState
	failOn   string
	failAt   int
	calls    map[string]int
	beforeTx func(*memState)
}

type memoryTx struct {
	repo *memoryRepo
	st   *memState
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		state: &memState{docs: map[Kind]map[int64]Document{KindReceipt: {}, KindIssue: {}}, balances: map[ledgerKey]decimal.Decimal{}},
		calls: map[string]int{},
	}
}

// failNth makes the nth call of op inside a transaction fail.
func (r *memoryRepo) failNth(op string, n int) {
	r.failOn, r.failAt = op, n
	r.calls = map[string]int{}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.beforeTx != nil {
		r.beforeTx(r.state)
	}
	work := r.state.clone()
	if err := fn(ctx, &memoryTx{repo: r, st: work}); err != nil {
		return err
	}
	r.state = work
	return nil
}

func (r *memoryRepo) GetBalance(_ context.Context, warehouseID, productID int64) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.balances[ledgerKey{warehouseID, productID}], nil
}

func (r *memoryRepo) Get(_ context.Context, kind Kind, id int64) (Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.state.docs[kind][id]
	if !ok {
		return Document{}, ErrNotFound
	}
	doc.Lines = append([]Line(nil), doc.Lines...)
	return doc, nil
}

func (r *memoryRepo) List(_ context.Context, kind Kind, filter ListFilter) ([]Summary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Summary
	for _, d := range r.state.docs[kind] {
		if filter.Status != "" && d.Status != filter.Status {
			continue
		}
		if filter.WarehouseID != 0 && d.WarehouseID != filter.WarehouseID {
			continue
		}
		out = append(out, Summary{
			ID: d.ID, Kind: d.Kind, Code: d.Code, SupplierID: d.SupplierID, WarehouseID: d.WarehouseID,
			Status: d.Status, EffectiveAt: d.EffectiveAt, CreatedBy: d.CreatedBy, CreatedAt: d.CreatedAt,
			LineCount: len(d.Lines), TotalQuantity: d.TotalQuantity(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// snapshot returns committed balances and movements.
func (r *memoryRepo) snapshot() (map[ledgerKey]decimal.Decimal, []inventory.Movement) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.state.clone()
	return c.balances, c.movements
}

func (r *memoryRepo) setStatus(kind Kind, id int64, status Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc := r.state.docs[kind][id]
	doc.Status = status
	r.state.docs[kind][id] = doc
}

func (tx *memoryTx) hit(op string) error {
	if tx.repo.failOn != op {
		return nil
	}
	tx.repo.calls[op]++
	if tx.repo.calls[op] == tx.repo.failAt {
		return errInjected
	}
	return nil
}

func (tx *memoryTx) GetBalance(_ context.Context, warehouseID, productID int64) (decimal.Decimal, error) {
	if err := tx.hit("GetBalance"); err != nil {
		return decimal.Zero, err
	}
	return tx.st.balances[ledgerKey{warehouseID, productID}], nil
}

func (tx *memoryTx) GetBalanceForUpdate(ctx context.Context, warehouseID, productID int64) (decimal.Decimal, error) {
	if err := tx.hit("GetBalanceForUpdate"); err != nil {
		return decimal.Zero, err
	}
	return tx.st.balances[ledgerKey{warehouseID, productID}], nil
}

func (tx *memoryTx) ApplyDelta(_ context.Context, warehouseID, productID int64, delta decimal.Decimal) (decimal.Decimal, error) {
	if err := tx.hit("ApplyDelta"); err != nil {
		return decimal.Zero, err
	}
	k := ledgerKey{warehouseID, productID}
	tx.st.balances[k] = tx.st.balances[k].Add(delta)
	return tx.st.balances[k], nil
}

func (tx *memoryTx) RecordMovement(_ context.Context, m inventory.Movement) (int64, error) {
	if err := tx.hit("RecordMovement"); err != nil {
		return 0, err
	}
	tx.st.nextID++
	m.ID = tx.st.nextID
	m.CreatedAt = time.Now()
	tx.st.movements = append(tx.st.movements, m)
	return m.ID, nil
}

func (tx *memoryTx) Insert(_ context.Context, doc Document) (int64, error) {
	if err := tx.hit("Insert"); err != nil {
		return 0, err
	}
	for _, d := range tx.st.docs[doc.Kind] {
		if d.Code == doc.Code {
			return 0, ErrDuplicateCode
		}
	}
	tx.st.nextID++
	doc.ID = tx.st.nextID
	doc.Status = StatusDraft
	doc.CreatedAt = time.Now()
	lines := make([]Line, len(doc.Lines))
	for i, l := range doc.Lines {
		tx.st.nextID++
		l.ID = tx.st.nextID
		l.DocumentID = doc.ID
		lines[i] = l
	}
	doc.Lines = lines
	tx.st.docs[doc.Kind][doc.ID] = doc
	return doc.ID, nil
}

func (tx *memoryTx) UpdateStatus(_ context.Context, kind Kind, id int64, from []Status, to Status, effectiveAt *time.Time) (bool, error) {
	if err := tx.hit("UpdateStatus"); err != nil {
		return false, err
	}
	doc, ok := tx.st.docs[kind][id]
	if !ok {
		return false, nil
	}
	matched := false
	for _, s := range from {
		if doc.Status == s {
			matched = true
		}
	}
	if !matched {
		return false, nil
	}
	doc.Status = to
	if effectiveAt != nil {
		doc.EffectiveAt = effectiveAt
	}
	tx.st.docs[kind][id] = doc
	return true, nil
}

func (tx *memoryTx) Delete(_ context.Context, kind Kind, id int64, from []Status) (bool, error) {
	doc, ok := tx.st.docs[kind][id]
	if !ok {
		return false, nil
	}
	for _, s := range from {
		if doc.Status == s {
			delete(tx.st.docs[kind], id)
			return true, nil
		}
	}
	return false, nil
}

func (tx *memoryTx) StatusOf(_ context.Context, kind Kind, id int64) (Status, error) {
	doc, ok := tx.st.docs[kind][id]
	if !ok {
		return "", ErrNotFound
	}
	return doc.Status, nil
}

var (
	_ Repository   = (*memoryRepo)(nil)
	_ TxRepository = (*memoryTx)(nil)
)
