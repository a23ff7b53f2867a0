package documents

import (
	"context"
	"time"

	"github.com/khovattu/khovattu/internal/inventory"
)

// Repository abstracts document persistence for the service.
type Repository interface {
	inventory.BalanceReader
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, kind Kind, id int64) (Document, error)
	List(ctx context.Context, kind Kind, filter ListFilter) ([]Summary, error)
}

// TxRepository exposes the operations that run inside one transaction. It
// embeds the ledger so an approval flips status and writes stock atomically.
type TxRepository interface {
	inventory.LedgerTx
	// Insert stores the header in status draft plus all lines and returns the id.
	Insert(ctx context.Context, doc Document) (int64, error)
	// UpdateStatus moves the document to `to` only when its current status is
	// one of from. It reports false when no row matched.
	UpdateStatus(ctx context.Context, kind Kind, id int64, from []Status, to Status, effectiveAt *time.Time) (bool, error)
	// Delete removes the header and its lines when the status is one of from.
	Delete(ctx context.Context, kind Kind, id int64, from []Status) (bool, error)
	// StatusOf returns the current status or ErrNotFound.
	StatusOf(ctx context.Context, kind Kind, id int64) (Status, error)
}
