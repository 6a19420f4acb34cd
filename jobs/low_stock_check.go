package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/tradewind-erp/tradewind-erp/internal/dashboard"
	jobmetrics "github.com/tradewind-erp/tradewind-erp/internal/jobs"
	"github.com/tradewind-erp/tradewind-erp/internal/shared"
)

// AuditRecorder persists audit trail entries for job runs.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// LowStockCheckJob scans stock levels against product minimums and surfaces
// the shortfall in logs, metrics and the audit trail.
type LowStockCheckJob struct {
	Dashboard *dashboard.Service
	Audit     AuditRecorder
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// NewLowStockCheckJob wires dependencies for the low stock handler.
func NewLowStockCheckJob(svc *dashboard.Service, audit AuditRecorder, logger *slog.Logger, metrics *jobmetrics.Metrics) *LowStockCheckJob {
	return &LowStockCheckJob{Dashboard: svc, Audit: audit, Logger: logger, Metrics: metrics}
}

// Handle processes low stock check tasks.
func (j *LowStockCheckJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Dashboard == nil {
		return errors.New("low stock check: handler not configured")
	}
	var payload LowStockCheckPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskLowStockCheck)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger()
	runCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	items, err := j.Dashboard.LowStock(runCtx, payload.Limit)
	if err != nil {
		resultErr = err
		logger.Error("scan low stock", slog.Any("error", err))
		return resultErr
	}

	byWarehouse := make(map[string]int)
	for _, item := range items {
		byWarehouse[item.Warehouse]++
		logger.Warn("product below minimum stock",
			slog.String("sku", item.SKU),
			slog.String("product", item.Name),
			slog.String("warehouse", item.Warehouse),
			slog.Int64("quantity", item.Quantity),
			slog.Int64("min_stock", item.MinStock),
		)
	}
	for warehouse, count := range byWarehouse {
		j.metrics().SetLowStock(warehouse, count)
	}

	if j.Audit != nil {
		if err := j.Audit.Record(runCtx, shared.AuditLog{
			Action:   "jobs.lowstock",
			Entity:   "inventory",
			EntityID: "scan",
			Meta:     map[string]any{"items": len(items)},
		}); err != nil {
			logger.Warn("audit record failed", slog.Any("error", err))
		}
	}

	logger.Info("low stock check completed", slog.Int("items", len(items)))
	return resultErr
}

func (j *LowStockCheckJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskLowStockCheck))
	}
	return slog.Default().With(slog.String("job", TaskLowStockCheck))
}

func (j *LowStockCheckJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
