package inventory

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/tradewind-erp/tradewind-erp/internal/shared"
)

// AuditRecorder persists audit trail entries.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// CacheBuster invalidates cached read models after a mutation.
type CacheBuster interface {
	Invalidate(ctx context.Context, scopes ...string)
}

// Service exposes inventory operations.
type Service struct {
	repo   RepositoryPort
	audit  AuditRecorder
	cache  CacheBuster
	logger *slog.Logger
}

func NewService(repo RepositoryPort, audit AuditRecorder, cache CacheBuster, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, cache: cache, logger: logger}
}

// AdjustInput is a manual stock correction. Quantity is the signed delta.
type AdjustInput struct {
	ProductID   int64  `json:"product_id" validate:"required,gt=0"`
	WarehouseID int64  `json:"warehouse_id" validate:"required,gt=0"`
	Quantity    int64  `json:"quantity" validate:"required"`
	Note        string `json:"note" validate:"max=500"`
}

// AdjustResult reports the level after a manual adjustment.
type AdjustResult struct {
	ProductID   int64 `json:"product_id"`
	WarehouseID int64 `json:"warehouse_id"`
	Quantity    int64 `json:"quantity"`
}

// Adjust applies a manual correction in its own transaction.
func (s *Service) Adjust(ctx context.Context, input AdjustInput) (AdjustResult, error) {
	if input.ProductID <= 0 || input.WarehouseID <= 0 {
		return AdjustResult{}, fmt.Errorf("inventory: product and warehouse required: %w", shared.ErrValidation)
	}
	if input.Quantity == 0 {
		return AdjustResult{}, ErrInvalidQuantity
	}

	var onHand int64
	err := s.repo.WithLedger(ctx, func(ctx context.Context, ledger TxLedger) error {
		var err error
		onHand, err = ledger.Apply(ctx, MovementInput{
			ProductID:   input.ProductID,
			WarehouseID: input.WarehouseID,
			Type:        MovementAdjust,
			Quantity:    input.Quantity,
			Note:        input.Note,
		})
		return err
	})
	if err != nil {
		return AdjustResult{}, err
	}

	s.afterMutation(ctx, "inventory.adjust", input.ProductID, map[string]any{
		"warehouse_id": input.WarehouseID,
		"delta":        input.Quantity,
		"on_hand":      onHand,
	})
	return AdjustResult{ProductID: input.ProductID, WarehouseID: input.WarehouseID, Quantity: onHand}, nil
}

// Levels lists on-hand stock.
func (s *Service) Levels(ctx context.Context, filters LevelFilters) ([]Level, shared.Pagination, error) {
	levels, total, err := s.repo.Levels(ctx, filters)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return levels, filters.Query.Meta(int(total)), nil
}

// Movements lists the audit trail, newest first.
func (s *Service) Movements(ctx context.Context, filters MovementFilters) ([]Movement, shared.Pagination, error) {
	movements, total, err := s.repo.Movements(ctx, filters)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return movements, filters.Query.Meta(int(total)), nil
}

func (s *Service) afterMutation(ctx context.Context, action string, entityID int64, meta map[string]any) {
	if s.audit != nil {
		if err := s.audit.Record(ctx, shared.AuditLog{
			Action:   action,
			Entity:   "inventory",
			EntityID: strconv.FormatInt(entityID, 10),
			Meta:     meta,
		}); err != nil {
			s.logger.Warn("audit record failed", "action", action, "error", err)
		}
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, "inventory", "dashboard")
	}
}
