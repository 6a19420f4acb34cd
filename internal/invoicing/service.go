package invoicing

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tradewind-erp/tradewind-erp/internal/sequence"
	"github.com/tradewind-erp/tradewind-erp/internal/shared"
)

// VATProvider supplies the VAT percentage applied to invoice totals.
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

// Service exposes invoice operations.
type Service struct {
	repo   RepositoryPort
	vat    VATProvider
	audit  AuditRecorder
	cache  CacheBuster
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo RepositoryPort, vat VATProvider, audit AuditRecorder, cache CacheBuster, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, vat: vat, audit: audit, cache: cache, logger: logger, now: time.Now}
}

// CreateFromSalesOrders bills a customer's delivered orders into one
// draft invoice. Each source order is linked so it cannot be billed
// twice.
func (s *Service) CreateFromSalesOrders(ctx context.Context, input CreateInput) (Invoice, error) {
	if input.CustomerID <= 0 {
		return Invoice{}, fmt.Errorf("invoicing: customer required: %w", shared.ErrValidation)
	}
	vatRate, err := s.vat.VATRate(ctx)
	if err != nil {
		return Invoice{}, err
	}

	var inv Invoice
	err = s.repo.WithTx(ctx, func(ctx context.Context, repo TxRepository) error {
		sources, err := repo.SourceOrders(ctx, input.CustomerID, input.SalesOrderIDs)
		if err != nil {
			return err
		}
		inv, err = Build(sources, vatRate, s.now(), input.DueDate, input.Note)
		if err != nil {
			return err
		}
		number, err := repo.NextNumber(ctx, sequence.PrefixInvoice)
		if err != nil {
			return err
		}
		inv.Number = number
		if err := repo.Insert(ctx, &inv); err != nil {
			return err
		}
		for _, src := range sources {
			if err := repo.LinkSalesOrder(ctx, src.ID, inv.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Invoice{}, err
	}

	s.afterMutation(ctx, "invoicing.create", inv.ID, map[string]any{"number": inv.Number, "sources": inv.SourceNumbers})
	return inv, nil
}

// Transition moves the invoice to the requested status.
func (s *Service) Transition(ctx context.Context, id int64, target Status) (Invoice, error) {
	var number string
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo TxRepository) error {
		inv, err := repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if !inv.Status.CanTransitionTo(target) {
			return fmt.Errorf("invoicing: %s -> %s: %w", inv.Status, target, shared.ErrInvalidTransition)
		}
		number = inv.Number
		return repo.SetStatus(ctx, inv.ID, target)
	})
	if err != nil {
		return Invoice{}, err
	}

	s.afterMutation(ctx, "invoicing.transition", id, map[string]any{"number": number, "status": target})
	return s.repo.Get(ctx, id)
}

// Delete removes a draft invoice and releases its sales orders for
// billing again.
func (s *Service) Delete(ctx context.Context, id int64) error {
	var number string
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo TxRepository) error {
		inv, err := repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if inv.Status != StatusDraft {
			return fmt.Errorf("invoice %s is %s: %w", inv.Number, inv.Status, ErrNotDraft)
		}
		number = inv.Number
		return repo.Delete(ctx, inv.ID)
	})
	if err != nil {
		return err
	}

	s.afterMutation(ctx, "invoicing.delete", id, map[string]any{"number": number})
	return nil
}

// Get loads one invoice with its lines.
func (s *Service) Get(ctx context.Context, id int64) (Invoice, error) {
	return s.repo.Get(ctx, id)
}

// List pages through invoices.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]Invoice, shared.Pagination, error) {
	invoices, total, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return invoices, filters.Query.Meta(int(total)), nil
}

func (s *Service) afterMutation(ctx context.Context, action string, entityID int64, meta map[string]any) {
	if s.audit != nil {
		if err := s.audit.Record(ctx, shared.AuditLog{
			Action:   action,
			Entity:   "invoice",
			EntityID: strconv.FormatInt(entityID, 10),
			Meta:     meta,
		}); err != nil {
			s.logger.Warn("audit record failed", "action", action, "error", err)
		}
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, "invoicing", "dashboard")
	}
}
