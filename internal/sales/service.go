package sales

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tradewind-erp/tradewind-erp/internal/inventory"
	"github.com/tradewind-erp/tradewind-erp/internal/invoicing"
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

// Service exposes sales order operations.
type Service struct {
	repo        RepositoryPort
	vat         VATProvider
	audit       AuditRecorder
	cache       CacheBuster
	logger      *slog.Logger
	warehouseID int64
	now         func() time.Time
}

// NewService constructs the service. warehouseID is where deliveries
// ship from.
func NewService(repo RepositoryPort, vat VATProvider, audit AuditRecorder, cache CacheBuster, logger *slog.Logger, warehouseID int64) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, vat: vat, audit: audit, cache: cache, logger: logger, warehouseID: warehouseID, now: time.Now}
}

// Create opens a draft order with a freshly allocated number.
func (s *Service) Create(ctx context.Context, input CreateInput) (SalesOrder, error) {
	order, err := s.buildOrder(ctx, input.CustomerID, input.OrderDate, input.DueDate, input.Note, input.Items)
	if err != nil {
		return SalesOrder{}, err
	}
	order.Status = StatusDraft

	err = s.repo.WithTx(ctx, func(ctx context.Context, repo TxRepository) error {
		number, err := repo.NextNumber(ctx, sequence.PrefixSalesOrder)
		if err != nil {
			return err
		}
		order.Number = number
		return repo.Insert(ctx, &order)
	})
	if err != nil {
		return SalesOrder{}, err
	}

	s.afterMutation(ctx, "sales.create", order.ID, map[string]any{"number": order.Number})
	return order, nil
}

// Update replaces a draft order's lines and header.
func (s *Service) Update(ctx context.Context, id int64, input UpdateInput) (SalesOrder, error) {
	updated, err := s.buildOrder(ctx, input.CustomerID, input.OrderDate, input.DueDate, input.Note, input.Items)
	if err != nil {
		return SalesOrder{}, err
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
		return SalesOrder{}, err
	}

	s.afterMutation(ctx, "sales.update", updated.ID, map[string]any{"number": updated.Number})
	return s.repo.Get(ctx, id)
}

// Transition moves the order to the requested status. Delivery ships
// every line as an OUT movement and raises the invoice, all in the same
// transaction as the status change.
func (s *Service) Transition(ctx context.Context, id int64, target Status) (SalesOrder, error) {
	vatRate := decimal.Zero
	if target == StatusDelivered {
		// VAT is read up front: the rate at delivery time is what the
		// invoice bills, not the rate when the order was drafted.
		rate, err := s.vat.VATRate(ctx)
		if err != nil {
			return SalesOrder{}, err
		}
		vatRate = rate
	}

	var (
		number        string
		invoiceNumber string
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo TxRepository) error {
		order, err := repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if !order.Status.CanTransitionTo(target) {
			return fmt.Errorf("sales: %s -> %s: %w", order.Status, target, shared.ErrInvalidTransition)
		}
		if err := repo.SetStatus(ctx, order.ID, target); err != nil {
			return err
		}
		number = order.Number

		if target != StatusDelivered {
			return nil
		}
		if err := s.shipLines(ctx, repo, order); err != nil {
			return err
		}
		if err := repo.MarkDelivered(ctx, order.ID); err != nil {
			return err
		}
		invoiceNumber, err = s.raiseInvoice(ctx, repo, order, vatRate)
		return err
	})
	if err != nil {
		return SalesOrder{}, err
	}

	meta := map[string]any{"number": number, "status": target}
	if invoiceNumber != "" {
		meta["invoice"] = invoiceNumber
	}
	s.afterMutation(ctx, "sales.transition", id, meta)
	return s.repo.Get(ctx, id)
}

func (s *Service) shipLines(ctx context.Context, repo TxRepository, order SalesOrder) error {
	ledger := repo.Ledger()
	for _, item := range order.Items {
		_, err := ledger.Apply(ctx, inventory.MovementInput{
			ProductID:   item.ProductID,
			WarehouseID: s.warehouseID,
			Type:        inventory.MovementOut,
			Quantity:    item.Quantity,
			Note:        fmt.Sprintf("ส่งสินค้าจาก SO: %s", order.Number),
			Reference:   order.Number,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) raiseInvoice(ctx context.Context, repo TxRepository, order SalesOrder, vatRate decimal.Decimal) (string, error) {
	source := invoicing.SourceOrder{
		ID:         order.ID,
		Number:     order.Number,
		CustomerID: order.CustomerID,
	}
	for _, item := range order.Items {
		source.Lines = append(source.Lines, invoicing.SourceLine{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Total:     item.Total,
		})
	}

	inv, err := invoicing.Build([]invoicing.SourceOrder{source}, vatRate, s.now(), nil,
		fmt.Sprintf("สร้างอัตโนมัติจาก %s", order.Number))
	if err != nil {
		return "", err
	}
	inv.Number, err = repo.NextNumber(ctx, sequence.PrefixInvoice)
	if err != nil {
		return "", err
	}
	if err := repo.InsertInvoice(ctx, &inv); err != nil {
		return "", err
	}
	if err := repo.LinkInvoice(ctx, order.ID, inv.ID); err != nil {
		return "", err
	}
	return inv.Number, nil
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

	s.afterMutation(ctx, "sales.delete", id, map[string]any{"number": number})
	return nil
}

// Get loads one order with its lines.
func (s *Service) Get(ctx context.Context, id int64) (SalesOrder, error) {
	return s.repo.Get(ctx, id)
}

// List pages through orders.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]SalesOrder, shared.Pagination, error) {
	orders, total, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return orders, filters.Query.Meta(int(total)), nil
}

func (s *Service) buildOrder(ctx context.Context, customerID int64, orderDate time.Time, dueDate *time.Time, note string, items []ItemInput) (SalesOrder, error) {
	if len(items) == 0 {
		return SalesOrder{}, fmt.Errorf("sales: at least one item required: %w", shared.ErrValidation)
	}
	vatRate, err := s.vat.VATRate(ctx)
	if err != nil {
		return SalesOrder{}, err
	}
	if orderDate.IsZero() {
		orderDate = s.now()
	}

	order := SalesOrder{
		CustomerID: customerID,
		OrderDate:  orderDate,
		DueDate:    dueDate,
		Note:       note,
		Items:      make([]Item, 0, len(items)),
	}
	lines := make([]pricing.Line, 0, len(items))
	for _, in := range items {
		if in.Quantity <= 0 {
			return SalesOrder{}, fmt.Errorf("sales: quantity must be positive: %w", shared.ErrValidation)
		}
		if in.UnitPrice.IsNegative() {
			return SalesOrder{}, fmt.Errorf("sales: unit price must not be negative: %w", shared.ErrValidation)
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
			Entity:   "sales_order",
			EntityID: strconv.FormatInt(entityID, 10),
			Meta:     meta,
		}); err != nil {
			s.logger.Warn("audit record failed", "action", action, "error", err)
		}
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, "sales", "invoicing", "inventory", "dashboard")
	}
}
