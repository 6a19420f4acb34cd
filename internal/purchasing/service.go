package purchasing

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tradewind-erp/tradewind-erp/internal/inventory"
	"github.com/tradewind-erp/tradewind-erp/internal/pricing"
	"github.com/tradewind-erp/tradewind-erp/internal/sequence"
	"github.com/tradewind-erp/tradewind-erp/internal/shared"
)

// VATProvider supplies the VAT percentage applied to order totals.
type VATProvider interface {
	VATRate(ctx context.Context) (decimal.Decimal, error)
}

// AuditRecorder persists audit trail entries.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// CacheBuster invalidates cached read models after a mutation.
type CacheBuster interface {
	Invalidate(ctx context.Context, scopes ...string)
}

// Service exposes purchase order operations.
type Service struct {
	repo        RepositoryPort
	vat         VATProvider
	audit       AuditRecorder
	cache       CacheBuster
	logger      *slog.Logger
	warehouseID int64
}

// NewService constructs the service. warehouseID is where received goods
// land.
func NewService(repo RepositoryPort, vat VATProvider, audit AuditRecorder, cache CacheBuster, logger *slog.Logger, warehouseID int64) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, vat: vat, audit: audit, cache: cache, logger: logger, warehouseID: warehouseID}
}

// Create opens a draft order with a freshly allocated number.
func (s *Service) Create(ctx context.Context, input CreateInput) (PurchaseOrder, error) {
	order, err := s.buildOrder(ctx, input.SupplierID, input.OrderDate, input.DueDate, input.Note, input.Items)
	if err != nil {
		return PurchaseOrder{}, err
	}
	order.Status = StatusDraft

	err = s.repo.WithTx(ctx, func(ctx context.Context, repo TxRepository) error {
		number, err := repo.NextNumber(ctx, sequence.PrefixPurchaseOrder)
		if err != nil {
			return err
		}
		order.Number = number
		return repo.Insert(ctx, &order)
	})
	if err != nil {
		return PurchaseOrder{}, err
	}

	s.afterMutation(ctx, "purchasing.create", order.ID, map[string]any{"number": order.Number})
	return order, nil
}

// Update replaces a draft order's lines and header.
func (s *Service) Update(ctx context.Context, id int64, input UpdateInput) (PurchaseOrder, error) {
	updated, err := s.buildOrder(ctx, input.SupplierID, input.OrderDate, input.DueDate, input.Note, input.Items)
	if err != nil {
		return PurchaseOrder{}, err
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, repo TxRepository) error {
		current, err := repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if current.Status != StatusDraft {
			return fmt.Errorf("order %s is %s: %w", current.Number, current.Status, ErrNotDraft)
		}
		updated.ID = current.ID
		updated.Number = current.Number
		updated.Status = current.Status
		return repo.Update(ctx, &updated)
	})
	if err != nil {
		return PurchaseOrder{}, err
	}

	s.afterMutation(ctx, "purchasing.update", updated.ID, map[string]any{"number": updated.Number})
	return s.repo.Get(ctx, id)
}

// Transition moves the order to the requested status. Moving to RECEIVED
// books the goods receipt: every line becomes an IN movement in the same
// transaction as the status change.
func (s *Service) Transition(ctx context.Context, id int64, target Status) (PurchaseOrder, error) {
	var number string
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo TxRepository) error {
		order, err := repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if !order.Status.CanTransitionTo(target) {
			return fmt.Errorf("purchasing: %s -> %s: %w", order.Status, target, shared.ErrInvalidTransition)
		}
		if err := repo.SetStatus(ctx, order.ID, target); err != nil {
			return err
		}
		number = order.Number

		if target != StatusReceived {
			return nil
		}
		ledger := repo.Ledger()
		for _, item := range order.Items {
			_, err := ledger.Apply(ctx, inventory.MovementInput{
				ProductID:   item.ProductID,
				WarehouseID: s.warehouseID,
				Type:        inventory.MovementIn,
				Quantity:    item.Quantity,
				Note:        fmt.Sprintf("รับสินค้าจาก PO: %s", order.Number),
				Reference:   order.Number,
			})
			if err != nil {
				return err
			}
		}
		return repo.MarkReceived(ctx, order.ID)
	})
	if err != nil {
		return PurchaseOrder{}, err
	}

	s.afterMutation(ctx, "purchasing.transition", id, map[string]any{"number": number, "status": target})
	return s.repo.Get(ctx, id)
}

// Delete removes a draft order. Confirmed and later orders are part of
// the audit trail and stay.
func (s *Service) Delete(ctx context.Context, id int64) error {
	var number string
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo TxRepository) error {
		order, err := repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if order.Status != StatusDraft {
			return fmt.Errorf("order %s is %s: %w", order.Number, order.Status, ErrNotDraft)
		}
		number = order.Number
		return repo.Delete(ctx, order.ID)
	})
	if err != nil {
		return err
	}

	s.afterMutation(ctx, "purchasing.delete", id, map[string]any{"number": number})
	return nil
}

// Get loads one order with its lines.
func (s *Service) Get(ctx context.Context, id int64) (PurchaseOrder, error) {
	return s.repo.Get(ctx, id)
}

// List pages through orders.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]PurchaseOrder, shared.Pagination, error) {
	orders, total, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return orders, filters.Query.Meta(int(total)), nil
}

func (s *Service) buildOrder(ctx context.Context, supplierID int64, orderDate time.Time, dueDate *time.Time, note string, items []ItemInput) (PurchaseOrder, error) {
	if len(items) == 0 {
		return PurchaseOrder{}, fmt.Errorf("purchasing: at least one item required: %w", shared.ErrValidation)
	}
	vatRate, err := s.vat.VATRate(ctx)
	if err != nil {
		return PurchaseOrder{}, err
	}
	if orderDate.IsZero() {
		orderDate = time.Now()
	}

	order := PurchaseOrder{
		SupplierID: supplierID,
		OrderDate:  orderDate,
		DueDate:    dueDate,
		Note:       note,
		Items:      make([]Item, 0, len(items)),
	}
	lines := make([]pricing.Line, 0, len(items))
	for _, in := range items {
		if in.Quantity <= 0 {
			return PurchaseOrder{}, fmt.Errorf("purchasing: quantity must be positive: %w", shared.ErrValidation)
		}
		if in.UnitPrice.IsNegative() {
			return PurchaseOrder{}, fmt.Errorf("purchasing: unit price must not be negative: %w", shared.ErrValidation)
		}
		order.Items = append(order.Items, Item{
			ProductID: in.ProductID,
			Quantity:  in.Quantity,
			UnitPrice: in.UnitPrice,
			Total:     pricing.LineTotal(in.Quantity, in.UnitPrice),
		})
		lines = append(lines, pricing.Line{Quantity: in.Quantity, UnitPrice: in.UnitPrice})
	}

	totals := pricing.Calculate(lines, vatRate)
	order.Subtotal = totals.Subtotal
	order.VATAmount = totals.VATAmount
	order.Total = totals.Total
	return order, nil
}

func (s *Service) afterMutation(ctx context.Context, action string, entityID int64, meta map[string]any) {
	if s.audit != nil {
		if err := s.audit.Record(ctx, shared.AuditLog{
			Action:   action,
			Entity:   "purchase_order",
			EntityID: strconv.FormatInt(entityID, 10),
			Meta:     meta,
		}); err != nil {
			s.logger.Warn("audit record failed", "action", action, "error", err)
		}
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, "purchasing", "inventory", "dashboard")
	}
}
