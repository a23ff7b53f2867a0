package documents

import (
	"fmt"

	"github.com/khovattu/khovattu/internal/inventory"
	"github.com/khovattu/khovattu/internal/shared"
)

var (
	// ErrNotFound indicates an unknown document id.
	ErrNotFound = fmt.Errorf("documents: %w", shared.ErrNotFound)
	// ErrDuplicateCode indicates the human code is already taken.
	ErrDuplicateCode = fmt.Errorf("document code already exists: %w", shared.ErrConflict)
	// ErrUnknownReference indicates a warehouse, supplier or product that does not exist.
	ErrUnknownReference = fmt.Errorf("documents: unknown warehouse, supplier or product: %w", shared.ErrValidation)
	// ErrInvalidState is the root of every rejected transition.
	ErrInvalidState = fmt.Errorf("documents: %w", shared.ErrInvalidState)
)

// InvalidStateError reports an action the document's status forbids.
type InvalidStateError struct {
	Kind   Kind
	ID     int64
	Status Status
	Action Action
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("documents: cannot %s %s %d in status %s", e.Action, e.Kind, e.ID, e.Status)
}

// Unwrap lets errors.Is match ErrInvalidState and shared.ErrInvalidState.
func (e *InvalidStateError) Unwrap() error { return ErrInvalidState }

// ProblemDetails exposes the state in problem responses.
func (e *InvalidStateError) ProblemDetails() map[string]any {
	return map[string]any{"status_current": e.Status, "action": e.Action}
}

// ShortageError blocks an issue approval and lists every short product.
type ShortageError struct {
	DocumentID int64
	Shortages  []inventory.Shortage
}

func (e *ShortageError) Error() string {
	return fmt.Sprintf("documents: issue %d short on %d product(s)", e.DocumentID, len(e.Shortages))
}

// Unwrap lets errors.Is match shared.ErrShortage.
func (e *ShortageError) Unwrap() error { return shared.ErrShortage }

// ProblemDetails exposes the shortages in problem responses.
func (e *ShortageError) ProblemDetails() map[string]any {
	return map[string]any{"shortages": e.Shortages}
}
