package warehouses

import (
	"context"
	"log/slog"
	"strings"

	"github.com/khovattu/khovattu/internal/masterdata/shared"
)

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

func (s *Service) List(ctx context.Context) ([]Warehouse, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id int64) (Warehouse, error) {
	if id <= 0 {
		return Warehouse{}, shared.ErrInvalidID
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, form WarehouseForm) (Warehouse, error) {
	if err := s.validate(&form); err != nil {
		return Warehouse{}, err
	}
	return s.repo.Create(ctx, Warehouse{Name: form.Name, Location: form.Location})
}

func (s *Service) Update(ctx context.Context, id int64, form WarehouseForm) error {
	if id <= 0 {
		return shared.ErrInvalidID
	}
	if err := s.validate(&form); err != nil {
		return err
	}
	return s.repo.Update(ctx, id, Warehouse{Name: form.Name, Location: form.Location})
}

// Delete removes a warehouse that holds no stock and no documents.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return shared.ErrInvalidID
	}
	return s.repo.Delete(ctx, id)
}

// EnsureDefault creates the default warehouse on an empty table. It is safe
// to call on every start.
func (s *Service) EnsureDefault(ctx context.Context, name, location string) error {
	form := WarehouseForm{Name: name}
	if strings.TrimSpace(location) != "" {
		form.Location = &location
	}
	if err := s.validate(&form); err != nil {
		return err
	}
	w, created, err := s.repo.CreateIfEmpty(ctx, Warehouse{Name: form.Name, Location: form.Location})
	if err != nil {
		return err
	}
	if created {
		s.logger.Info("default warehouse created", slog.Int64("warehouse_id", w.ID), slog.String("name", w.Name))
	}
	return nil
}
