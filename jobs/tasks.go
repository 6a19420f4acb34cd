package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskDashboardWarmup pre-populates the dashboard summary cache.
	TaskDashboardWarmup = "dashboard:warmup"
	// TaskLowStockCheck scans inventory for products below minimum stock.
	TaskLowStockCheck = "inventory:lowstock"
)

// DashboardWarmupPayload configures a warmup run. Empty is valid and warms
// the default summary.
type DashboardWarmupPayload struct {
	Reason string `json:"reason,omitempty"`
}

// LowStockCheckPayload configures a low stock scan.
type LowStockCheckPayload struct {
	// Limit caps the items scanned per run. Zero uses the repository default.
	Limit int `json:"limit,omitempty"`
}

// NewDashboardWarmupTask constructs an Asynq task for a warmup run.
func NewDashboardWarmupTask(payload DashboardWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDashboardWarmup, data), nil
}

// NewLowStockCheckTask constructs an Asynq task for a low stock scan.
func NewLowStockCheckTask(payload LowStockCheckPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLowStockCheck, data), nil
}
