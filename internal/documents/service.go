package documents

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/khovattu/khovattu/internal/inventory"
	"github.com/khovattu/khovattu/internal/shared"
)

// LockMode selects how issue approvals guard against concurrent overdraw.
type LockMode string

const (
	// LockNone checks stock before the approval transaction. Two issues
	// approved concurrently against the same product may both pass the check
	// and drive the balance negative.
	LockNone LockMode = "none"
	// LockRow checks stock inside the approval transaction with row locks
	// taken in product order, serializing approvals per ledger key.
	LockRow LockMode = "row"
)

// ParseLockMode maps a config value to a LockMode.
func ParseLockMode(raw string) (LockMode, error) {
	switch LockMode(strings.ToLower(strings.TrimSpace(raw))) {
	case "", LockNone:
		return LockNone, nil
	case LockRow:
		return LockRow, nil
	}
	return "", fmt.Errorf("documents: unknown lock mode %q", raw)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// ApprovalPort records and reads lifecycle history.
type ApprovalPort interface {
	Record(ctx context.Context, log shared.ApprovalLog) error
	List(ctx context.Context, module string, ref int64) ([]shared.ApprovalLog, error)
}

// MetricsPort counts approvals and shortage rejections.
type MetricsPort interface {
	DocumentApproved(kind string)
	ShortageRejected()
}

// CacheInvalidator drops stock caches after a committed ledger change.
type CacheInvalidator interface {
	InvalidatePublicSummary(ctx context.Context)
}

// ServiceConfig groups optional settings.
type ServiceConfig struct {
	LockMode LockMode
	Metrics  MetricsPort
	Cache    CacheInvalidator
}

// Service runs the receipt and issue lifecycle and is the only writer of the
// inventory ledger and movement log.
type Service struct {
	repo      Repository
	audit     AuditPort
	approvals ApprovalPort
	metrics   MetricsPort
	cache     CacheInvalidator
	lockMode  LockMode
	guard     inventory.Guard
	logger    *slog.Logger
	now       func() time.Time
}

// NewService builds Service.
func NewService(repo Repository, audit AuditPort, approvals ApprovalPort, cfg ServiceConfig, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	mode := cfg.LockMode
	if mode == "" {
		mode = LockNone
	}
	return &Service{
		repo:      repo,
		audit:     audit,
		approvals: approvals,
		metrics:   cfg.Metrics,
		cache:     cfg.Cache,
		lockMode:  mode,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create validates input and stores a draft document with its lines.
func (s *Service) Create(ctx context.Context, kind Kind, actor shared.Actor, input CreateInput) (int64, error) {
	doc, err := s.prepare(kind, actor, input)
	if err != nil {
		return 0, err
	}
	var id int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		id, err = tx.Insert(ctx, doc)
		return err
	})
	if err != nil {
		return 0, err
	}
	s.logger.Info("document created", slog.String("kind", string(kind)), slog.Int64("document_id", id), slog.String("code", doc.Code))
	s.recordAudit(ctx, actor, kind, id, "create", map[string]any{"code": doc.Code, "lines": len(doc.Lines)})
	return id, nil
}

// Submit moves a draft to submitted.
func (s *Service) Submit(ctx context.Context, kind Kind, id int64, actor shared.Actor) error {
	if err := s.transition(ctx, kind, id, ActionSubmit); err != nil {
		return err
	}
	s.recordApproval(ctx, actor, kind, id, shared.ApprovalSubmit)
	return nil
}

// Cancel moves a draft or submitted document to cancelled. Nothing was
// applied to the ledger so there is nothing to revert.
func (s *Service) Cancel(ctx context.Context, kind Kind, id int64, actor shared.Actor) error {
	if err := s.transition(ctx, kind, id, ActionCancel); err != nil {
		return err
	}
	s.recordApproval(ctx, actor, kind, id, shared.ApprovalCancel)
	return nil
}

// Delete removes a document that has not been approved.
func (s *Service) Delete(ctx context.Context, kind Kind, id int64, actor shared.Actor) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: kind %q", shared.ErrValidation, kind)
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		ok, err := tx.Delete(ctx, kind, id, sources(ActionDelete))
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		return rejection(ctx, tx, kind, id, ActionDelete)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, actor, kind, id, "delete", nil)
	return nil
}

// Get returns a document with its lines.
func (s *Service) Get(ctx context.Context, kind Kind, id int64) (Document, error) {
	if !kind.Valid() {
		return Document{}, fmt.Errorf("%w: kind %q", shared.ErrValidation, kind)
	}
	return s.repo.Get(ctx, kind, id)
}

// History returns the submit, approve and cancel entries of a document,
// oldest first.
func (s *Service) History(ctx context.Context, kind Kind, id int64) ([]shared.ApprovalLog, error) {
	if _, err := s.Get(ctx, kind, id); err != nil {
		return nil, err
	}
	if s.approvals == nil {
		return nil, nil
	}
	logs, err := s.approvals.List(ctx, kind.Module(), id)
	if err != nil {
		return nil, fmt.Errorf("documents: history: %w", err)
	}
	return logs, nil
}

// List returns document summaries.
func (s *Service) List(ctx context.Context, kind Kind, filter ListFilter) ([]Summary, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: kind %q", shared.ErrValidation, kind)
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, shared.NewValidationError(map[string]string{"status": "is invalid"})
	}
	return s.repo.List(ctx, kind, filter)
}

// Approve applies a submitted document to the ledger. Issues are checked for
// shortages first; any shortage aborts with a ShortageError listing every
// short product and nothing is written. The status flip, the balance deltas
// and the movement rows commit together or not at all.
func (s *Service) Approve(ctx context.Context, kind Kind, id int64, actor shared.Actor) (Document, error) {
	doc, err := s.Get(ctx, kind, id)
	if err != nil {
		return Document{}, err
	}
	if !Allowed(doc.Status, ActionApprove) {
		return Document{}, &InvalidStateError{Kind: kind, ID: id, Status: doc.Status, Action: ActionApprove}
	}
	// In LockNone mode the balances read here may change before the
	// transaction below commits.
	if kind == KindIssue && s.lockMode == LockNone {
		if err := s.checkStock(ctx, s.repo, doc); err != nil {
			return Document{}, err
		}
	}

	now := s.now()
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return s.applyApproval(ctx, tx, doc, now, s.lockMode == LockRow)
	})
	if err != nil {
		return Document{}, err
	}
	doc.Status = StatusApproved
	doc.EffectiveAt = &now
	s.afterApproval(ctx, actor, doc)
	return doc, nil
}

// CreateAndApprove creates a document and walks it through submitted to
// approved in a single transaction. A shortage or any failure rolls back the
// whole request, leaving no header or lines behind.
func (s *Service) CreateAndApprove(ctx context.Context, kind Kind, actor shared.Actor, input CreateInput) (Document, error) {
	doc, err := s.prepare(kind, actor, input)
	if err != nil {
		return Document{}, err
	}
	now := s.now()
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.Insert(ctx, doc)
		if err != nil {
			return err
		}
		doc.ID = id
		if ok, err := tx.UpdateStatus(ctx, kind, id, sources(ActionSubmit), target(ActionSubmit), nil); err != nil {
			return err
		} else if !ok {
			return rejection(ctx, tx, kind, id, ActionSubmit)
		}
		doc.Status = StatusSubmitted
		return s.applyApproval(ctx, tx, doc, now, true)
	})
	if err != nil {
		return Document{}, err
	}
	doc.Status = StatusApproved
	doc.EffectiveAt = &now
	s.recordAudit(ctx, actor, kind, doc.ID, "create", map[string]any{"code": doc.Code, "lines": len(doc.Lines), "quick_post": true})
	s.recordApproval(ctx, actor, kind, doc.ID, shared.ApprovalSubmit)
	s.afterApproval(ctx, actor, doc)
	return doc, nil
}

// applyApproval runs inside the approval transaction. The conditional status
// update is the exactly-once gate: of two concurrent approvals only one
// matches status submitted, the other sees zero rows and fails.
func (s *Service) applyApproval(ctx context.Context, tx TxRepository, doc Document, now time.Time, checkInTx bool) error {
	ok, err := tx.UpdateStatus(ctx, doc.Kind, doc.ID, sources(ActionApprove), target(ActionApprove), &now)
	if err != nil {
		return err
	}
	if !ok {
		return rejection(ctx, tx, doc.Kind, doc.ID, ActionApprove)
	}
	if doc.Kind == KindIssue && checkInTx {
		var reader inventory.BalanceReader = tx
		if s.lockMode == LockRow {
			reader = inventory.Locking(tx)
		}
		if err := s.checkStock(ctx, reader, doc); err != nil {
			return err
		}
	}
	_, err = inventory.Apply(ctx, tx, inventory.ApplyInput{
		Direction:     doc.Kind.direction(),
		WarehouseID:   doc.WarehouseID,
		ReferenceType: doc.Kind.referenceType(),
		ReferenceID:   doc.ID,
		Lines:         doc.ledgerLines(),
	})
	return err
}

func (s *Service) checkStock(ctx context.Context, reader inventory.BalanceReader, doc Document) error {
	shortages, err := s.guard.Check(ctx, reader, doc.WarehouseID, doc.ledgerLines())
	if err != nil {
		return fmt.Errorf("documents: shortage check: %w", err)
	}
	if len(shortages) == 0 {
		return nil
	}
	if s.metrics != nil {
		s.metrics.ShortageRejected()
	}
	s.logger.Warn("issue approval blocked by shortage",
		slog.Int64("document_id", doc.ID),
		slog.Int64("warehouse_id", doc.WarehouseID),
		slog.Int("shortages", len(shortages)))
	return &ShortageError{DocumentID: doc.ID, Shortages: shortages}
}

func (s *Service) transition(ctx context.Context, kind Kind, id int64, action Action) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: kind %q", shared.ErrValidation, kind)
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		ok, err := tx.UpdateStatus(ctx, kind, id, sources(action), target(action), nil)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		return rejection(ctx, tx, kind, id, action)
	})
}

// rejection explains why a conditional write matched no row.
func rejection(ctx context.Context, tx TxRepository, kind Kind, id int64, action Action) error {
	status, err := tx.StatusOf(ctx, kind, id)
	if err != nil {
		return err
	}
	return &InvalidStateError{Kind: kind, ID: id, Status: status, Action: action}
}

func (s *Service) prepare(kind Kind, actor shared.Actor, input CreateInput) (Document, error) {
	if !kind.Valid() {
		return Document{}, fmt.Errorf("%w: kind %q", shared.ErrValidation, kind)
	}
	if actor.UserID == 0 {
		return Document{}, shared.ErrUnauthorized
	}
	input.Code = strings.TrimSpace(input.Code)
	if err := shared.ValidateStruct(input); err != nil {
		return Document{}, err
	}
	fields := map[string]string{}
	if kind == KindIssue && input.SupplierID != nil {
		fields["SupplierID"] = "is not allowed on issues"
	}
	lines := make([]Line, 0, len(input.Lines))
	for i, l := range input.Lines {
		switch {
		case !l.Quantity.IsPositive():
			fields[fmt.Sprintf("Lines[%d].Quantity", i)] = "must be greater than 0"
		case !fitsScale(l.Quantity, quantityScale):
			fields[fmt.Sprintf("Lines[%d].Quantity", i)] = fmt.Sprintf("must have at most %d decimal places", quantityScale)
		}
		switch {
		case l.UnitAmount.IsNegative():
			fields[fmt.Sprintf("Lines[%d].UnitAmount", i)] = "must not be negative"
		case !fitsScale(l.UnitAmount, amountScale):
			fields[fmt.Sprintf("Lines[%d].UnitAmount", i)] = fmt.Sprintf("must have at most %d decimal places", amountScale)
		}
		lines = append(lines, Line{ProductID: l.ProductID, Quantity: l.Quantity, UnitAmount: l.UnitAmount})
	}
	if len(fields) > 0 {
		return Document{}, shared.NewValidationError(fields)
	}
	return Document{
		Kind:        kind,
		Code:        input.Code,
		SupplierID:  input.SupplierID,
		WarehouseID: input.WarehouseID,
		Status:      StatusDraft,
		EffectiveAt: input.EffectiveAt,
		Note:        input.Note,
		CreatedBy:   actor.UserID,
		Lines:       lines,
	}, nil
}

func (s *Service) afterApproval(ctx context.Context, actor shared.Actor, doc Document) {
	s.logger.Info("document approved",
		slog.String("kind", string(doc.Kind)),
		slog.Int64("document_id", doc.ID),
		slog.Int64("warehouse_id", doc.WarehouseID),
		slog.Int("lines", len(doc.Lines)))
	if s.metrics != nil {
		s.metrics.DocumentApproved(string(doc.Kind))
	}
	if s.cache != nil {
		s.cache.InvalidatePublicSummary(ctx)
	}
	s.recordApproval(ctx, actor, doc.Kind, doc.ID, shared.ApprovalApprove)
	s.recordAudit(ctx, actor, doc.Kind, doc.ID, "approve", map[string]any{
		"warehouse_id":   doc.WarehouseID,
		"total_quantity": doc.TotalQuantity().String(),
	})
}

func (s *Service) recordAudit(ctx context.Context, actor shared.Actor, kind Kind, id int64, action string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor.UserID,
		Action:   fmt.Sprintf("%s:%s", kind, action),
		Entity:   string(kind),
		EntityID: fmt.Sprintf("%d", id),
		Meta:     meta,
	})
	if err != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Int64("document_id", id), slog.Any("error", err))
	}
}

func (s *Service) recordApproval(ctx context.Context, actor shared.Actor, kind Kind, id int64, action shared.ApprovalAction) {
	if s.approvals == nil || actor.UserID == 0 {
		return
	}
	err := s.approvals.Record(ctx, shared.ApprovalLog{Module: kind.Module(), RefID: id, ActorID: actor.UserID, Action: action})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn("approval record failed", slog.String("action", string(action)), slog.Int64("document_id", id), slog.Any("error", err))
	}
}
