package shared

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/khovattu/khovattu/internal/platform/db"
	core "github.com/khovattu/khovattu/internal/shared"
)

var (
	ErrNotFound         = fmt.Errorf("masterdata: %w", core.ErrNotFound)
	ErrDuplicate        = fmt.Errorf("duplicate entry: %w", core.ErrConflict)
	ErrInUse            = fmt.Errorf("record is referenced by stock or documents: %w", core.ErrConflict)
	ErrUnknownReference = fmt.Errorf("referenced record does not exist: %w", core.ErrValidation)
	ErrInvalidID        = fmt.Errorf("invalid ID: %w", core.ErrValidation)
)

// TranslateWrite maps insert/update failures. unique names the constraint
// reported as ErrDuplicate; empty matches any unique violation.
func TranslateWrite(err error, unique string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return ErrNotFound
	case db.IsUniqueViolation(err, unique):
		return ErrDuplicate
	case db.IsForeignKeyViolation(err):
		return ErrUnknownReference
	}
	return err
}

// TranslateDelete maps delete failures. A foreign key violation means the row
// is still referenced.
func TranslateDelete(err error) error {
	if db.IsForeignKeyViolation(err) {
		return ErrInUse
	}
	return err
}

// RequireRow turns a zero-row update or delete into ErrNotFound.
func RequireRow(affected int64) error {
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
