package products

import (
	"context"

	"github.com/khovattu/khovattu/internal/masterdata/shared"
	"github.com/khovattu/khovattu/internal/platform/textsearch"
)

// SummaryInvalidator drops cached stock views that embed product fields.
type SummaryInvalidator interface {
	InvalidatePublicSummary(ctx context.Context)
}

type Service struct {
	repo    Repository
	summary SummaryInvalidator
}

// NewService builds Service. summary may be nil.
func NewService(repo Repository, summary SummaryInvalidator) *Service {
	return &Service{repo: repo, summary: summary}
}

// List returns products, narrowed by category and an accent-insensitive
// search over SKU, name and origin.
func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Product, error) {
	products, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, err
	}
	if filters.Search == "" {
		return products, nil
	}
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if textsearch.Contains(filters.Search, p.SKU, p.Name, p.Origin) {
			out = append(out, p)
		}
	}
	return out, nil
}

// Search is List filtered by q only.
func (s *Service) Search(ctx context.Context, q string) ([]Product, error) {
	return s.List(ctx, shared.ListFilters{Search: q})
}

func (s *Service) Get(ctx context.Context, id int64) (Product, error) {
	if id <= 0 {
		return Product{}, shared.ErrInvalidID
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, form ProductForm) (Product, error) {
	if err := s.validate(&form); err != nil {
		return Product{}, err
	}
	p, err := s.repo.Create(ctx, form.product())
	if err != nil {
		return Product{}, err
	}
	s.changed(ctx)
	return p, nil
}

func (s *Service) Update(ctx context.Context, id int64, form ProductForm) error {
	if id <= 0 {
		return shared.ErrInvalidID
	}
	if err := s.validate(&form); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, id, form.product()); err != nil {
		return err
	}
	s.changed(ctx)
	return nil
}

// Delete removes a product. Products with stock or document lines are
// rejected with a conflict.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return shared.ErrInvalidID
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.changed(ctx)
	return nil
}

func (s *Service) changed(ctx context.Context) {
	if s.summary != nil {
		s.summary.InvalidatePublicSummary(ctx)
	}
}
