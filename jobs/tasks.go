package jobs

import (
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskInventoryIntegrity audits the ledger against the movement log.
	TaskInventoryIntegrity = "inventory:integrity"
	// TaskInventoryLowStock reports products below their minimum stock.
	TaskInventoryLowStock = "inventory:low_stock"
)

// NewInventoryIntegrityTask constructs the ledger audit task.
func NewInventoryIntegrityTask() *asynq.Task {
	return asynq.NewTask(TaskInventoryIntegrity, nil)
}

// NewInventoryLowStockTask constructs the low-stock scan task.
func NewInventoryLowStockTask() *asynq.Task {
	return asynq.NewTask(TaskInventoryLowStock, nil)
}
