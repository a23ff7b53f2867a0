package documents

import (
	"context"

	"github.com/khovattu/khovattu/internal/shared"
)

// CreateReceipt stores a draft receipt.
func (s *Service) CreateReceipt(ctx context.Context, actor shared.Actor, input CreateInput) (int64, error) {
	return s.Create(ctx, KindReceipt, actor, input)
}

// SubmitReceipt moves a draft receipt to submitted.
func (s *Service) SubmitReceipt(ctx context.Context, id int64, actor shared.Actor) error {
	return s.Submit(ctx, KindReceipt, id, actor)
}

// ApproveReceipt credits stock for a submitted receipt.
func (s *Service) ApproveReceipt(ctx context.Context, id int64, actor shared.Actor) (Document, error) {
	return s.Approve(ctx, KindReceipt, id, actor)
}

// CancelReceipt cancels a receipt that is not approved.
func (s *Service) CancelReceipt(ctx context.Context, id int64, actor shared.Actor) error {
	return s.Cancel(ctx, KindReceipt, id, actor)
}

// DeleteReceipt deletes a receipt that is not approved.
func (s *Service) DeleteReceipt(ctx context.Context, id int64, actor shared.Actor) error {
	return s.Delete(ctx, KindReceipt, id, actor)
}

// GetReceipt returns a receipt with its lines.
func (s *Service) GetReceipt(ctx context.Context, id int64) (Document, error) {
	return s.Get(ctx, KindReceipt, id)
}

// CreateIssue stores a draft issue.
func (s *Service) CreateIssue(ctx context.Context, actor shared.Actor, input CreateInput) (int64, error) {
	return s.Create(ctx, KindIssue, actor, input)
}

// SubmitIssue moves a draft issue to submitted.
func (s *Service) SubmitIssue(ctx context.Context, id int64, actor shared.Actor) error {
	return s.Submit(ctx, KindIssue, id, actor)
}

// ApproveIssue debits stock for a submitted issue after the shortage check.
func (s *Service) ApproveIssue(ctx context.Context, id int64, actor shared.Actor) (Document, error) {
	return s.Approve(ctx, KindIssue, id, actor)
}

// CancelIssue cancels an issue that is not approved.
func (s *Service) CancelIssue(ctx context.Context, id int64, actor shared.Actor) error {
	return s.Cancel(ctx, KindIssue, id, actor)
}

// DeleteIssue deletes an issue that is not approved.
func (s *Service) DeleteIssue(ctx context.Context, id int64, actor shared.Actor) error {
	return s.Delete(ctx, KindIssue, id, actor)
}

// GetIssue returns an issue with its lines.
func (s *Service) GetIssue(ctx context.Context, id int64) (Document, error) {
	return s.Get(ctx, KindIssue, id)
}
