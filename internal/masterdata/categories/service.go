package categories

import (
	"context"
	"strings"

	"github.com/khovattu/khovattu/internal/masterdata/shared"
	core "github.com/khovattu/khovattu/internal/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context) ([]Category, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id int64) (Category, error) {
	if id <= 0 {
		return Category{}, shared.ErrInvalidID
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, form CategoryForm) (Category, error) {
	form.Name = strings.TrimSpace(form.Name)
	if err := core.ValidateStruct(form); err != nil {
		return Category{}, err
	}
	return s.repo.Create(ctx, Category{Name: form.Name, Description: form.Description})
}

func (s *Service) Update(ctx context.Context, id int64, form CategoryForm) error {
	if id <= 0 {
		return shared.ErrInvalidID
	}
	form.Name = strings.TrimSpace(form.Name)
	if err := core.ValidateStruct(form); err != nil {
		return err
	}
	return s.repo.Update(ctx, id, Category{Name: form.Name, Description: form.Description})
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return shared.ErrInvalidID
	}
	return s.repo.Delete(ctx, id)
}
