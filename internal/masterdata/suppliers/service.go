package suppliers

import (
	"context"

	"github.com/khovattu/khovattu/internal/masterdata/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context) ([]Supplier, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id int64) (Supplier, error) {
	if id <= 0 {
		return Supplier{}, shared.ErrInvalidID
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, form SupplierForm) (Supplier, error) {
	if err := s.validate(&form); err != nil {
		return Supplier{}, err
	}
	return s.repo.Create(ctx, form.supplier())
}

func (s *Service) Update(ctx context.Context, id int64, form SupplierForm) error {
	if id <= 0 {
		return shared.ErrInvalidID
	}
	if err := s.validate(&form); err != nil {
		return err
	}
	return s.repo.Update(ctx, id, form.supplier())
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return shared.ErrInvalidID
	}
	return s.repo.Delete(ctx, id)
}
