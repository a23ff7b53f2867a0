package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/khovattu/khovattu/internal/platform/cache"
	"github.com/khovattu/khovattu/internal/platform/textsearch"
)

const publicSummaryKey = "public:summary"

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	GetBalance(ctx context.Context, warehouseID, productID int64) (decimal.Decimal, error)
	ListInventory(ctx context.Context, filter InventoryFilter) ([]StockRow, error)
	ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error)
	ProductTotals(ctx context.Context) ([]ProductStock, error)
	IntegrityMismatches(ctx context.Context) ([]IntegrityIssue, error)
	LowStock(ctx context.Context) ([]LowStockItem, error)
}

// SummaryCache stores the public stock summary.
type SummaryCache interface {
	GetJSON(ctx context.Context, key string, dst any) error
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// ServiceConfig groups optional settings.
type ServiceConfig struct {
	PublicCacheTTL time.Duration
}

// Service exposes read access to the ledger and movement history.
type Service struct {
	repo   RepositoryPort
	cache  SummaryCache
	ttl    time.Duration
	logger *slog.Logger
	group  singleflight.Group
	// generation advances on every invalidation. A rebuild that overlapped
	// one must not leave its totals in the cache.
	generation atomic.Uint64
}

// NewService builds Service. cache may be nil.
func NewService(repo RepositoryPort, cache SummaryCache, cfg ServiceConfig, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	ttl := cfg.PublicCacheTTL
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Service{repo: repo, cache: cache, ttl: ttl, logger: logger}
}

// ListInventory returns stock rows, optionally filtered by warehouse and/or product.
func (s *Service) ListInventory(ctx context.Context, filter InventoryFilter) ([]StockRow, error) {
	rows, err := s.repo.ListInventory(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("inventory: list: %w", err)
	}
	return rows, nil
}

// Balance returns the on-hand quantity, zero when the pair has never moved.
func (s *Service) Balance(ctx context.Context, warehouseID, productID int64) (decimal.Decimal, error) {
	return s.repo.GetBalance(ctx, warehouseID, productID)
}

// Movements lists movement history.
func (s *Service) Movements(ctx context.Context, filter MovementFilter) ([]Movement, error) {
	if filter.ReferenceType != "" && !filter.ReferenceType.Valid() {
		return nil, fmt.Errorf("%w: reference_type %q", ErrInvalidMovement, filter.ReferenceType)
	}
	return s.repo.ListMovements(ctx, filter)
}

// PublicSummary returns stock per product summed across warehouses, filtered
// by an accent-insensitive match of q against SKU, name and origin. The
// unfiltered summary is cached and concurrent rebuilds share one query.
func (s *Service) PublicSummary(ctx context.Context, q string) ([]ProductStock, error) {
	all, err := s.loadSummary(ctx)
	if err != nil {
		return nil, err
	}
	if q == "" {
		return all, nil
	}
	out := make([]ProductStock, 0, len(all))
	for _, p := range all {
		if textsearch.Contains(q, p.SKU, p.Name, p.Origin) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Service) loadSummary(ctx context.Context) ([]ProductStock, error) {
	if s.cache != nil {
		var cached []ProductStock
		err := s.cache.GetJSON(ctx, publicSummaryKey, &cached)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			s.logger.Warn("public summary cache read failed", slog.Any("error", err))
		}
	}
	v, err, _ := s.group.Do(publicSummaryKey, func() (any, error) {
		gen := s.generation.Load()
		totals, err := s.repo.ProductTotals(ctx)
		if err != nil {
			return nil, fmt.Errorf("inventory: product totals: %w", err)
		}
		if s.cache != nil {
			s.storeSummary(ctx, gen, totals)
		}
		return totals, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]ProductStock), nil
}

// storeSummary caches totals read at generation gen. The generation is checked
// again after the write because an invalidation may land in between.
func (s *Service) storeSummary(ctx context.Context, gen uint64, totals []ProductStock) {
	if s.generation.Load() != gen {
		return
	}
	if err := s.cache.SetJSON(ctx, publicSummaryKey, totals, s.ttl); err != nil {
		s.logger.Warn("public summary cache write failed", slog.Any("error", err))
		return
	}
	if s.generation.Load() != gen {
		if err := s.cache.Delete(ctx, publicSummaryKey); err != nil {
			s.logger.Warn("public summary cache invalidation failed", slog.Any("error", err))
		}
	}
}

// InvalidatePublicSummary drops the cached summary. Called after every
// committed ledger change and after catalog changes to products.
func (s *Service) InvalidatePublicSummary(ctx context.Context) {
	s.generation.Add(1)
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, publicSummaryKey); err != nil {
		s.logger.Warn("public summary cache invalidation failed", slog.Any("error", err))
	}
}

// VerifyIntegrity returns every ledger pair whose balance differs from the
// sum of its movements. An empty result means the ledger is consistent.
func (s *Service) VerifyIntegrity(ctx context.Context) ([]IntegrityIssue, error) {
	issues, err := s.repo.IntegrityMismatches(ctx)
	if err != nil {
		return nil, fmt.Errorf("inventory: verify integrity: %w", err)
	}
	return issues, nil
}

// LowStock lists products whose total stock is below their minimum.
func (s *Service) LowStock(ctx context.Context) ([]LowStockItem, error) {
	items, err := s.repo.LowStock(ctx)
	if err != nil {
		return nil, fmt.Errorf("inventory: low stock: %w", err)
	}
	return items, nil
}
