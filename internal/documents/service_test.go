package documents

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/khovattu/khovattu/internal/inventory"
	"github.com/khovattu/khovattu/internal/shared"
)

const (
	w1 int64 = 1
	w2 int64 = 2
	p1 int64 = 11
	p2 int64 = 12
	p3 int64 = 13
)

var actor = shared.Actor{UserID: 1, Username: "admin", Roles: []string{"admin"}}

func qty(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func requireQty(t *testing.T, want int64, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, got.Equal(qty(want)), "want %d, got %s", want, got)
}

type countingMetrics struct {
	approved  map[string]int
	shortages int
}

func (m *countingMetrics) DocumentApproved(kind string) { m.approved[kind]++ }
func (m *countingMetrics) ShortageRejected()             { m.shortages++ }

type countingCache struct{ invalidations int }

func (c *countingCache) InvalidatePublicSummary(context.Context) { c.invalidations++ }

type recordedApprovals struct{ logs []shared.ApprovalLog }

func (r *recordedApprovals) Record(_ context.Context, log shared.ApprovalLog) error {
	log.ID = int64(len(r.logs) + 1)
	r.logs = append(r.logs, log)
	return nil
}

func (r *recordedApprovals) List(_ context.Context, module string, ref int64) ([]shared.ApprovalLog, error) {
	var out []shared.ApprovalLog
	for _, l := range r.logs {
		if l.Module == module && l.RefID == ref {
			out = append(out, l)
		}
	}
	return out, nil
}

type fixture struct {
	repo      *memoryRepo
	svc       *Service
	metrics   *countingMetrics
	cache     *countingCache
	approvals *recordedApprovals
}

func newFixture(t *testing.T, mode LockMode) *fixture {
	t.Helper()
	f := &fixture{
		repo:      newMemoryRepo(),
		metrics:   &countingMetrics{approved: map[string]int{}},
		cache:     &countingCache{},
		approvals: &recordedApprovals{},
	}
	f.svc = NewService(f.repo, nil, f.approvals, ServiceConfig{LockMode: mode, Metrics: f.metrics, Cache: f.cache}, nil)
	return f
}

func input(code string, wh int64, lines ...LineInput) CreateInput {
	return CreateInput{Code: code, WarehouseID: wh, Lines: lines}
}

func line(product, q int64) LineInput {
	return LineInput{ProductID: product, Quantity: qty(q), UnitAmount: qty(5)}
}

// receive posts an approved receipt.
func (f *fixture) receive(t *testing.T, code string, wh int64, lines ...LineInput) int64 {
	t.Helper()
	ctx := context.Background()
	id, err := f.svc.CreateReceipt(ctx, actor, input(code, wh, lines...))
	require.NoError(t, err)
	require.NoError(t, f.svc.SubmitReceipt(ctx, id, actor))
	_, err = f.svc.ApproveReceipt(ctx, id, actor)
	require.NoError(t, err)
	return id
}

// submittedIssue creates and submits an issue.
func (f *fixture) submittedIssue(t *testing.T, code string, wh int64, lines ...LineInput) int64 {
	t.Helper()
	ctx := context.Background()
	id, err := f.svc.CreateIssue(ctx, actor, input(code, wh, lines...))
	require.NoError(t, err)
	require.NoError(t, f.svc.SubmitIssue(ctx, id, actor))
	return id
}

func (f *fixture) balance(t *testing.T, wh, product int64) decimal.Decimal {
	t.Helper()
	b, err := f.repo.GetBalance(context.Background(), wh, product)
	require.NoError(t, err)
	return b
}

func TestReceiptRoundTrip(t *testing.T) {
	f := newFixture(t, LockNone)
	id := f.receive(t, "PN-001", w1, line(p1, 10))

	requireQty(t, 10, f.balance(t, w1, p1))
	_, movements := f.repo.snapshot()
	require.Len(t, movements, 1)
	m := movements[0]
	require.Equal(t, p1, m.ProductID)
	require.Equal(t, w1, m.WarehouseID)
	require.Equal(t, inventory.MovementIn, m.Type)
	requireQty(t, 10, m.Quantity)
	require.Equal(t, inventory.ReferenceReceipt, m.ReferenceType)
	require.Equal(t, id, m.ReferenceID)

	doc, err := f.svc.GetReceipt(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, StatusApproved, doc.Status)
	require.NotNil(t, doc.EffectiveAt)
	require.Equal(t, 1, f.metrics.approved["receipt"])
	require.Equal(t, 1, f.cache.invalidations)
	require.Len(t, f.approvals.logs, 2)
	require.Equal(t, shared.ApprovalApprove, f.approvals.logs[1].Action)
	require.Equal(t, "receipts", f.approvals.logs[1].Module)
}

func TestIssueShortage(t *testing.T) {
	for _, mode := range []LockMode{LockNone, LockRow} {
		t.Run(string(mode), func(t *testing.T) {
			f := newFixture(t, mode)
			f.receive(t, "PN-001", w1, line(p1, 5))
			id := f.submittedIssue(t, "PX-001", w1, line(p1, 8))

			_, err := f.svc.ApproveIssue(context.Background(), id, actor)
			require.ErrorIs(t, err, shared.ErrShortage)
			var shortErr *ShortageError
			require.ErrorAs(t, err, &shortErr)
			require.Len(t, shortErr.Shortages, 1)
			require.Equal(t, p1, shortErr.Shortages[0].ProductID)
			requireQty(t, 8, shortErr.Shortages[0].Required)
			requireQty(t, 5, shortErr.Shortages[0].Available)

			requireQty(t, 5, f.balance(t, w1, p1))
			_, movements := f.repo.snapshot()
			require.Len(t, movements, 1)
			doc, err := f.svc.GetIssue(context.Background(), id)
			require.NoError(t, err)
			require.Equal(t, StatusSubmitted, doc.Status)
			require.Equal(t, 1, f.metrics.shortages)
			require.Zero(t, f.metrics.approved["issue"])
		})
	}
}

func TestShortageListsEveryLine(t *testing.T) {
	f := newFixture(t, LockNone)
	f.receive(t, "PN-001", w1, line(p1, 5), line(p2, 100))
	id := f.submittedIssue(t, "PX-001", w1, line(p3, 1), line(p2, 10), line(p1, 6))

	_, err := f.svc.ApproveIssue(context.Background(), id, actor)
	var shortErr *ShortageError
	require.ErrorAs(t, err, &shortErr)
	require.Len(t, shortErr.Shortages, 2)
	require.Equal(t, p3, shortErr.Shortages[0].ProductID)
	requireQty(t, 0, shortErr.Shortages[0].Available)
	require.Equal(t, p1, shortErr.Shortages[1].ProductID)
	requireQty(t, 6, shortErr.Shortages[1].Required)
}

func TestIssueApprovalDebitsStock(t *testing.T) {
	f := newFixture(t, LockRow)
	f.receive(t, "PN-001", w1, line(p1, 10))
	id := f.submittedIssue(t, "PX-001", w1, line(p1, 4), line(p1, 6))

	doc, err := f.svc.ApproveIssue(context.Background(), id, actor)
	require.NoError(t, err)
	require.Equal(t, StatusApproved, doc.Status)
	requireQty(t, 0, f.balance(t, w1, p1))

	_, movements := f.repo.snapshot()
	require.Len(t, movements, 3)
	for _, m := range movements[1:] {
		require.Equal(t, inventory.MovementOut, m.Type)
		require.True(t, m.Quantity.IsNegative())
		require.Equal(t, inventory.ReferenceIssue, m.ReferenceType)
	}
}

func TestDuplicateLinesAreSummedByGuard(t *testing.T) {
	f := newFixture(t, LockNone)
	f.receive(t, "PN-001", w1, line(p1, 5))
	id := f.submittedIssue(t, "PX-001", w1, line(p1, 3), line(p1, 3))

	_, err := f.svc.ApproveIssue(context.Background(), id, actor)
	var shortErr *ShortageError
	require.ErrorAs(t, err, &shortErr)
	require.Len(t, shortErr.Shortages, 1)
	requireQty(t, 6, shortErr.Shortages[0].Required)
	requireQty(t, 5, f.balance(t, w1, p1))
}

func TestApproveTwiceAppliesOnce(t *testing.T) {
	f := newFixture(t, LockNone)
	id := f.receive(t, "PN-001", w1, line(p1, 10))

	_, err := f.svc.ApproveReceipt(context.Background(), id, actor)
	require.ErrorIs(t, err, ErrInvalidState)
	require.ErrorIs(t, err, shared.ErrInvalidState)

	requireQty(t, 10, f.balance(t, w1, p1))
	_, movements := f.repo.snapshot()
	require.Len(t, movements, 1)
	require.Equal(t, 1, f.metrics.approved["receipt"])
}

func TestConcurrentApprovalLosesAtStatusGate(t *testing.T) {
	f := newFixture(t, LockNone)
	ctx := context.Background()
	id, err := f.svc.CreateReceipt(ctx, actor, input("PN-001", w1, line(p1, 10)))
	require.NoError(t, err)
	require.NoError(t, f.svc.SubmitReceipt(ctx, id, actor))

	// Another approval commits between our read and our transaction.
	f.repo.beforeTx = func(st *memState) {
		doc := st.docs[KindReceipt][id]
		doc.Status = StatusApproved
		st.docs[KindReceipt][id] = doc
	}
	_, err = f.svc.ApproveReceipt(ctx, id, actor)
	var stateErr *InvalidStateError
	require.ErrorAs(t, err, &stateErr)
	require.Equal(t, StatusApproved, stateErr.Status)

	_, movements := f.repo.snapshot()
	require.Empty(t, movements)
	requireQty(t, 0, f.balance(t, w1, p1))
}

func TestApprovalIsAtomic(t *testing.T) {
	for _, op := range []string{"ApplyDelta", "RecordMovement", "UpdateStatus"} {
		t.Run(op, func(t *testing.T) {
			f := newFixture(t, LockNone)
			f.receive(t, "PN-000", w1, line(p1, 7))
			ctx := context.Background()
			id, err := f.svc.CreateReceipt(ctx, actor, input("PN-001", w1, line(p1, 10), line(p2, 3)))
			require.NoError(t, err)
			require.NoError(t, f.svc.SubmitReceipt(ctx, id, actor))

			n := 2
			if op == "UpdateStatus" {
				n = 1
			}
			f.repo.failNth(op, n)
			_, err = f.svc.ApproveReceipt(ctx, id, actor)
			require.ErrorIs(t, err, errInjected)

			balances, movements := f.repo.snapshot()
			requireQty(t, 7, balances[ledgerKey{w1, p1}])
			requireQty(t, 0, balances[ledgerKey{w1, p2}])
			require.Len(t, movements, 1)
			doc, err := f.svc.GetReceipt(ctx, id)
			require.NoError(t, err)
			require.Equal(t, StatusSubmitted, doc.Status)
		})
	}
}

func TestTransitionTable(t *testing.T) {
	cases := []struct {
		from   Status
		action Action
		ok     bool
	}{
		{StatusDraft, ActionSubmit, true},
		{StatusSubmitted, ActionSubmit, false},
		{StatusApproved, ActionSubmit, false},
		{StatusCancelled, ActionSubmit, false},
		{StatusDraft, ActionApprove, false},
		{StatusSubmitted, ActionApprove, true},
		{StatusApproved, ActionApprove, false},
		{StatusCancelled, ActionApprove, false},
		{StatusDraft, ActionCancel, true},
		{StatusSubmitted, ActionCancel, true},
		{StatusApproved, ActionCancel, false},
		{StatusCancelled, ActionCancel, false},
		{StatusDraft, ActionDelete, true},
		{StatusSubmitted, ActionDelete, true},
		{StatusApproved, ActionDelete, false},
		{StatusCancelled, ActionDelete, true},
	}
	for _, kind := range []Kind{KindReceipt, KindIssue} {
		for _, tc := range cases {
			t.Run(string(kind)+"/"+string(tc.from)+"/"+string(tc.action), func(t *testing.T) {
				require.Equal(t, tc.ok, Allowed(tc.from, tc.action))

				f := newFixture(t, LockNone)
				f.receive(t, "PN-STOCK", w1, line(p1, 100))
				ctx := context.Background()
				id, err := f.svc.Create(ctx, kind, actor, input("DOC-1", w1, line(p1, 1)))
				require.NoError(t, err)
				f.repo.setStatus(kind, id, tc.from)

				switch tc.action {
				case ActionSubmit:
					err = f.svc.Submit(ctx, kind, id, actor)
				case ActionApprove:
					_, err = f.svc.Approve(ctx, kind, id, actor)
				case ActionCancel:
					err = f.svc.Cancel(ctx, kind, id, actor)
				case ActionDelete:
					err = f.svc.Delete(ctx, kind, id, actor)
				}
				if tc.ok {
					require.NoError(t, err)
					return
				}
				require.ErrorIs(t, err, shared.ErrInvalidState)
				doc, getErr := f.svc.Get(ctx, kind, id)
				require.NoError(t, getErr)
				require.Equal(t, tc.from, doc.Status)
			})
		}
	}
}

func TestDeleteGuard(t *testing.T) {
	f := newFixture(t, LockNone)
	ctx := context.Background()
	id := f.receive(t, "PN-001", w1, line(p1, 10))

	err := f.svc.DeleteReceipt(ctx, id, actor)
	require.ErrorIs(t, err, shared.ErrInvalidState)
	requireQty(t, 10, f.balance(t, w1, p1))

	draft, err := f.svc.CreateReceipt(ctx, actor, input("PN-002", w1, line(p1, 1)))
	require.NoError(t, err)
	require.NoError(t, f.svc.DeleteReceipt(ctx, draft, actor))
	_, err = f.svc.GetReceipt(ctx, draft)
	require.ErrorIs(t, err, shared.ErrNotFound)
	requireQty(t, 10, f.balance(t, w1, p1))
}

func TestUnknownDocument(t *testing.T) {
	f := newFixture(t, LockNone)
	ctx := context.Background()

	_, err := f.svc.ApproveIssue(ctx, 999, actor)
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, f.svc.SubmitIssue(ctx, 999, actor), shared.ErrNotFound)
	require.ErrorIs(t, f.svc.CancelReceipt(ctx, 999, actor), shared.ErrNotFound)
	require.ErrorIs(t, f.svc.DeleteIssue(ctx, 999, actor), shared.ErrNotFound)
}

func TestHistoryListsLifecycleOfOneDocument(t *testing.T) {
	f := newFixture(t, LockNone)
	ctx := context.Background()
	receipt := f.receive(t, "PN-001", w1, line(p1, 10))
	issue := f.submittedIssue(t, "PX-001", w1, line(p1, 2))
	require.NoError(t, f.svc.CancelIssue(ctx, issue, actor))

	logs, err := f.svc.History(ctx, KindReceipt, receipt)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	require.Equal(t, shared.ApprovalSubmit, logs[0].Action)
	require.Equal(t, shared.ApprovalApprove, logs[1].Action)

	logs, err = f.svc.History(ctx, KindIssue, issue)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	require.Equal(t, shared.ApprovalCancel, logs[1].Action)

	_, err = f.svc.History(ctx, KindReceipt, 999)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t, LockNone)
	ctx := context.Background()
	supplier := int64(3)

	cases := map[string]struct {
		kind  Kind
		actor shared.Actor
		in    CreateInput
		field string
	}{
		"no lines":          {KindReceipt, actor, input("PN-1", w1), "Lines"},
		"zero quantity":     {KindReceipt, actor, input("PN-1", w1, line(p1, 0)), "Lines[0].Quantity"},
		"negative quantity": {KindIssue, actor, input("PX-1", w1, line(p1, 1), line(p2, -2)), "Lines[1].Quantity"},
		"negative amount":   {KindReceipt, actor, input("PN-1", w1, LineInput{ProductID: p1, Quantity: qty(1), UnitAmount: qty(-1)}), "Lines[0].UnitAmount"},
		"quantity too fine": {KindReceipt, actor, input("PN-1", w1, LineInput{ProductID: p1, Quantity: decimal.RequireFromString("0.0004"), UnitAmount: qty(1)}), "Lines[0].Quantity"},
		"issue too fine":    {KindIssue, actor, input("PX-1", w1, LineInput{ProductID: p1, Quantity: decimal.RequireFromString("5.0004")}), "Lines[0].Quantity"},
		"amount too fine":   {KindReceipt, actor, input("PN-1", w1, LineInput{ProductID: p1, Quantity: qty(1), UnitAmount: decimal.RequireFromString("1.005")}), "Lines[0].UnitAmount"},
		"missing code":      {KindReceipt, actor, input("  ", w1, line(p1, 1)), "Code"},
		"missing warehouse": {KindIssue, actor, input("PX-1", 0, line(p1, 1)), "WarehouseID"},
		"supplier on issue": {KindIssue, actor, CreateInput{Code: "PX-1", SupplierID: &supplier, WarehouseID: w1, Lines: []LineInput{line(p1, 1)}}, "SupplierID"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, tc.kind, tc.actor, tc.in)
			require.ErrorIs(t, err, shared.ErrValidation)
			var verr *shared.ValidationError
			require.ErrorAs(t, err, &verr)
			require.Contains(t, verr.Fields, tc.field)
		})
	}

	_, err := f.svc.CreateReceipt(ctx, shared.Actor{}, input("PN-1", w1, line(p1, 1)))
	require.ErrorIs(t, err, shared.ErrUnauthorized)

	list, err := f.svc.List(ctx, KindReceipt, ListFilter{})
	require.NoError(t, err)
	require.Empty(t, list)

	_, err = f.svc.CreateAndApprove(ctx, KindReceipt, actor, input("PN-Q", w1, LineInput{ProductID: p1, Quantity: decimal.RequireFromString("0.0004")}))
	require.ErrorIs(t, err, shared.ErrValidation)
	requireQty(t, 0, f.balance(t, w1, p1))

	// Trailing zeros are within scale.
	_, err = f.svc.CreateReceipt(ctx, actor, input("PN-2", w1, LineInput{ProductID: p1, Quantity: decimal.RequireFromString("1.5000"), UnitAmount: decimal.RequireFromString("2.500")}))
	require.NoError(t, err)
}

func TestCreateDuplicateCode(t *testing.T) {
	f := newFixture(t, LockNone)
	ctx := context.Background()
	_, err := f.svc.CreateReceipt(ctx, actor, input("PN-001", w1, line(p1, 1)))
	require.NoError(t, err)

	_, err = f.svc.CreateReceipt(ctx, actor, input("PN-001", w2, line(p2, 1)))
	require.ErrorIs(t, err, shared.ErrConflict)

	_, err = f.svc.CreateIssue(ctx, actor, input("PN-001", w1, line(p1, 1)))
	require.NoError(t, err)
}

func TestCreateAndApprove(t *testing.T) {
	f := newFixture(t, LockNone)
	ctx := context.Background()

	doc, err := f.svc.CreateAndApprove(ctx, KindReceipt, actor, input("PN-001", w1, line(p1, 10)))
	require.NoError(t, err)
	require.Equal(t, StatusApproved, doc.Status)
	requireQty(t, 10, f.balance(t, w1, p1))

	issue, err := f.svc.CreateAndApprove(ctx, KindIssue, actor, input("PX-001", w1, line(p1, 4)))
	require.NoError(t, err)
	require.Equal(t, StatusApproved, issue.Status)
	requireQty(t, 6, f.balance(t, w1, p1))
	require.Equal(t, 1, f.metrics.approved["issue"])
}

func TestCreateAndApproveRollsBackOnShortage(t *testing.T) {
	for _, mode := range []LockMode{LockNone, LockRow} {
		t.Run(string(mode), func(t *testing.T) {
			f := newFixture(t, mode)
			ctx := context.Background()
			f.receive(t, "PN-001", w1, line(p1, 5))

			_, err := f.svc.CreateAndApprove(ctx, KindIssue, actor, input("PX-001", w1, line(p1, 8), line(p2, 1)))
			var shortErr *ShortageError
			require.ErrorAs(t, err, &shortErr)
			require.Len(t, shortErr.Shortages, 2)

			issues, err := f.svc.List(ctx, KindIssue, ListFilter{})
			require.NoError(t, err)
			require.Empty(t, issues)
			requireQty(t, 5, f.balance(t, w1, p1))

			// The code is free again because nothing was kept.
			_, err = f.svc.CreateIssue(ctx, actor, input("PX-001", w1, line(p1, 1)))
			require.NoError(t, err)
		})
	}
}

func TestLedgerMatchesMovements(t *testing.T) {
	f := newFixture(t, LockNone)
	ctx := context.Background()
	f.receive(t, "PN-1", w1, line(p1, 10), line(p2, 4))
	f.receive(t, "PN-2", w2, line(p1, 3))
	f.receive(t, "PN-3", w1, line(p1, 2))

	ok := f.submittedIssue(t, "PX-1", w1, line(p1, 7), line(p2, 4))
	_, err := f.svc.ApproveIssue(ctx, ok, actor)
	require.NoError(t, err)

	short := f.submittedIssue(t, "PX-2", w2, line(p1, 5))
	_, err = f.svc.ApproveIssue(ctx, short, actor)
	require.True(t, errors.Is(err, shared.ErrShortage))

	cancelled := f.submittedIssue(t, "PX-3", w1, line(p1, 1))
	require.NoError(t, f.svc.CancelIssue(ctx, cancelled, actor))

	_, err = f.svc.CreateAndApprove(ctx, KindIssue, actor, input("PX-4", w2, line(p1, 3)))
	require.NoError(t, err)

	balances, movements := f.repo.snapshot()
	sums := map[ledgerKey]decimal.Decimal{}
	for _, m := range movements {
		k := ledgerKey{m.WarehouseID, m.ProductID}
		sums[k] = sums[k].Add(m.Quantity)
	}
	require.Len(t, balances, len(sums))
	for k, b := range balances {
		require.Truef(t, b.Equal(sums[k]), "pair %+v: balance %s, movements %s", k, b, sums[k])
		require.False(t, b.IsNegative())
	}
	requireQty(t, 5, balances[ledgerKey{w1, p1}])
	requireQty(t, 0, balances[ledgerKey{w1, p2}])
	requireQty(t, 0, balances[ledgerKey{w2, p1}])
}

func TestParseLockMode(t *testing.T) {
	mode, err := ParseLockMode("")
	require.NoError(t, err)
	require.Equal(t, LockNone, mode)
	mode, err = ParseLockMode(" ROW ")
	require.NoError(t, err)
	require.Equal(t, LockRow, mode)
	_, err = ParseLockMode("table")
	require.Error(t, err)
}
