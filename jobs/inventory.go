package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/khovattu/khovattu/internal/inventory"
	jobmetrics "github.com/khovattu/khovattu/internal/jobs"
)

// InventoryAuditor is the read surface the inventory jobs depend on.
type InventoryAuditor interface {
	VerifyIntegrity(ctx context.Context) ([]inventory.IntegrityIssue, error)
	LowStock(ctx context.Context) ([]inventory.LowStockItem, error)
}

// InventoryJobs runs the scheduled ledger audits.
type InventoryJobs struct {
	Auditor InventoryAuditor
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewInventoryJobs wires the inventory job handlers.
func NewInventoryJobs(auditor InventoryAuditor, logger *slog.Logger, metrics *jobmetrics.Metrics) *InventoryJobs {
	return &InventoryJobs{Auditor: auditor, Logger: logger, Metrics: metrics}
}

// HandleIntegrity logs every warehouse/product pair whose balance is not the
// sum of its movements. Mismatches are reported, never repaired.
func (j *InventoryJobs) HandleIntegrity(ctx context.Context, _ *asynq.Task) (err error) {
	if j == nil || j.Auditor == nil {
		return errors.New("inventory integrity: handler not configured")
	}
	tracker := j.Metrics.Track(TaskInventoryIntegrity)
	defer func() { err = tracker.End(err) }()

	start := time.Now()
	logger := j.logger().With(slog.String("job", TaskInventoryIntegrity))
	issues, err := j.Auditor.VerifyIntegrity(ctx)
	if err != nil {
		logger.Error("integrity audit failed", slog.Any("error", err))
		return err
	}
	for _, it := range issues {
		logger.Warn("ledger mismatch",
			slog.Int64("warehouse_id", it.WarehouseID),
			slog.Int64("product_id", it.ProductID),
			slog.String("balance", it.Balance.String()),
			slog.String("movement_total", it.MovementTotal.String()),
		)
	}
	j.Metrics.SetIntegrityMismatches(len(issues))
	logger.Info("integrity audit completed",
		slog.Int("mismatches", len(issues)),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

// HandleLowStock logs products whose total stock is below min_stock.
func (j *InventoryJobs) HandleLowStock(ctx context.Context, _ *asynq.Task) (err error) {
	if j == nil || j.Auditor == nil {
		return errors.New("inventory low stock: handler not configured")
	}
	tracker := j.Metrics.Track(TaskInventoryLowStock)
	defer func() { err = tracker.End(err) }()

	logger := j.logger().With(slog.String("job", TaskInventoryLowStock))
	items, err := j.Auditor.LowStock(ctx)
	if err != nil {
		logger.Error("low stock scan failed", slog.Any("error", err))
		return err
	}
	for _, it := range items {
		logger.Warn("product below minimum stock",
			slog.Int64("product_id", it.ProductID),
			slog.String("sku", it.SKU),
			slog.String("total", it.TotalQuantity.String()),
			slog.String("min_stock", it.MinStock.String()),
		)
	}
	j.Metrics.SetLowStock(len(items))
	logger.Info("low stock scan completed", slog.Int("products", len(items)))
	return nil
}

// Handlers returns the task registrations for NewWorker.
func (j *InventoryJobs) Handlers() []TaskHandler {
	return []TaskHandler{
		{Type: TaskInventoryIntegrity, Handler: j.HandleIntegrity},
		{Type: TaskInventoryLowStock, Handler: j.HandleLowStock},
	}
}

func (j *InventoryJobs) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
