package sales

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/tradewind-erp/tradewind-erp/internal/inventory"
	"github.com/tradewind-erp/tradewind-erp/internal/invoicing"
	"github.com/tradewind-erp/tradewind-erp/internal/sequence"
	"github.com/tradewind-erp/tradewind-erp/internal/shared"
)

// memoryStore backs the fake repository. WithTx works on a copy and only
// commits when the callback succeeds, mirroring the rollback behaviour
// the service relies on.
type memoryStore struct {
	orders      map[int64]SalesOrder
	invoices    map[int64]invoicing.Invoice
	stock       map[int64]int64
	movements   []inventory.Movement
	seqs        map[string]int64
	nextID      int64
	failInvoice bool
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		orders:   map[int64]SalesOrder{},
		invoices: map[int64]invoicing.Invoice{},
		stock:    map[int64]int64{},
		seqs:     map[string]int64{},
		nextID:   1,
	}
}

func (m *memoryStore) snapshot() *memoryStore {
	cp := newMemoryStore()
	cp.nextID = m.nextID
	cp.failInvoice = m.failInvoice
	cp.movements = append([]inventory.Movement(nil), m.movements...)
	for id, o := range m.orders {
		o.Items = append([]Item(nil), o.Items...)
		cp.orders[id] = o
	}
	for id, inv := range m.invoices {
		inv.Items = append([]invoicing.Item(nil), inv.Items...)
		cp.invoices[id] = inv
	}
	for p, q := range m.stock {
		cp.stock[p] = q
	}
	for prefix, n := range m.seqs {
		cp.seqs[prefix] = n
	}
	return cp
}

func (m *memoryStore) WithTx(ctx context.Context, fn func(ctx context.Context, repo TxRepository) error) error {
	tx := m.snapshot()
	if err := fn(ctx, &memoryTx{store: tx}); err != nil {
		return err
	}
	*m = *tx
	return nil
}

func (m *memoryStore) Get(ctx context.Context, id int64) (SalesOrder, error) {
	o, ok := m.orders[id]
	if !ok {
		return SalesOrder{}, ErrNotFound
	}
	return o, nil
}

func (m *memoryStore) List(ctx context.Context, filters ListFilters) ([]SalesOrder, int64, error) {
	out := make([]SalesOrder, 0, len(m.orders))
	for _, o := range m.orders {
		if filters.Status != "" && o.Status != filters.Status {
			continue
		}
		out = append(out, o)
	}
	return out, int64(len(out)), nil
}

type memoryTx struct {
	store *memoryStore
}

func (t *memoryTx) Get(ctx context.Context, id int64) (SalesOrder, error) {
	return t.store.Get(ctx, id)
}

func (t *memoryTx) Insert(ctx context.Context, order *SalesOrder) error {
	order.ID = t.store.nextID
	t.store.nextID++
	t.store.orders[order.ID] = *order
	return nil
}

func (t *memoryTx) Update(ctx context.Context, order *SalesOrder) error {
	if _, ok := t.store.orders[order.ID]; !ok {
		return ErrNotFound
	}
	t.store.orders[order.ID] = *order
	return nil
}

func (t *memoryTx) SetStatus(ctx context.Context, id int64, status Status) error {
	o, ok := t.store.orders[id]
	if !ok {
		return ErrNotFound
	}
	o.Status = status
	t.store.orders[id] = o
	return nil
}

func (t *memoryTx) MarkDelivered(ctx context.Context, id int64) error {
	o, ok := t.store.orders[id]
	if !ok {
		return ErrNotFound
	}
	for i := range o.Items {
		o.Items[i].DeliveredQty = o.Items[i].Quantity
	}
	t.store.orders[id] = o
	return nil
}

func (t *memoryTx) Delete(ctx context.Context, id int64) error {
	if _, ok := t.store.orders[id]; !ok {
		return ErrNotFound
	}
	delete(t.store.orders, id)
	return nil
}

func (t *memoryTx) NextNumber(ctx context.Context, prefix string) (string, error) {
	t.store.seqs[prefix]++
	return sequence.Format(prefix, time.Now().Year(), t.store.seqs[prefix]), nil
}

func (t *memoryTx) Ledger() inventory.TxLedger {
	return &memoryLedger{store: t.store}
}

func (t *memoryTx) InsertInvoice(ctx context.Context, inv *invoicing.Invoice) error {
	if t.store.failInvoice {
		return errors.New("invoice insert failed")
	}
	inv.ID = t.store.nextID
	t.store.nextID++
	t.store.invoices[inv.ID] = *inv
	return nil
}

func (t *memoryTx) LinkInvoice(ctx context.Context, salesOrderID, invoiceID int64) error {
	o, ok := t.store.orders[salesOrderID]
	if !ok {
		return ErrNotFound
	}
	if o.InvoiceID != nil {
		return shared.ErrConflict
	}
	o.InvoiceID = &invoiceID
	t.store.orders[salesOrderID] = o
	return nil
}

type memoryLedger struct {
	store *memoryStore
}

func (l *memoryLedger) Apply(ctx context.Context, input inventory.MovementInput) (int64, error) {
	delta, err := input.Delta()
	if err != nil {
		return 0, err
	}
	l.store.stock[input.ProductID] += delta
	l.store.movements = append(l.store.movements, inventory.Movement{
		ProductID:   input.ProductID,
		WarehouseID: input.WarehouseID,
		Type:        input.Type,
		Quantity:    input.Magnitude(),
		Note:        input.Note,
		Reference:   input.Reference,
	})
	return l.store.stock[input.ProductID], nil
}

type fixedVAT struct{ rate decimal.Decimal }

func (v fixedVAT) VATRate(ctx context.Context) (decimal.Decimal, error) {
	return v.rate, nil
}

func newTestService(store *memoryStore) *Service {
	return NewService(store, fixedVAT{rate: decimal.NewFromInt(7)}, nil, nil, nil, 1)
}

func price(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func TestCreateCarriesDueDate(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store)

	due := time.Now().AddDate(0, 0, 7).Truncate(24 * time.Hour)
	order, err := svc.Create(context.Background(), CreateInput{
		CustomerID: 7,
		DueDate:    &due,
		Items:      []ItemInput{{ProductID: 1, Quantity: 1, UnitPrice: price("10")}},
	})
	require.NoError(t, err)
	require.NotNil(t, order.DueDate)
	require.True(t, order.DueDate.Equal(due))
}

func TestDeliveryShipsStockAndRaisesInvoice(t *testing.T) {
	store := newMemoryStore()
	store.stock[1] = 50
	svc := newTestService(store)

	order, err := svc.Create(context.Background(), CreateInput{
		CustomerID: 7,
		Items:      []ItemInput{{ProductID: 1, Quantity: 10, UnitPrice: price("100")}},
	})
	require.NoError(t, err)

	yy := time.Now().Year() % 100
	require.Equal(t, fmt.Sprintf("SO%02d-00001", yy), order.Number)

	_, err = svc.Transition(context.Background(), order.ID, StatusConfirmed)
	require.NoError(t, err)
	delivered, err := svc.Transition(context.Background(), order.ID, StatusDelivered)
	require.NoError(t, err)

	require.Equal(t, StatusDelivered, delivered.Status)
	require.Equal(t, int64(10), delivered.Items[0].DeliveredQty)
	require.Equal(t, int64(40), store.stock[1], "stock reduced by the shipped quantity")

	require.Len(t, store.movements, 1)
	move := store.movements[0]
	require.Equal(t, inventory.MovementOut, move.Type)
	require.Equal(t, int64(10), move.Quantity)
	require.Equal(t, "ส่งสินค้าจาก SO: "+order.Number, move.Note)

	require.Len(t, store.invoices, 1)
	for _, inv := range store.invoices {
		require.Equal(t, fmt.Sprintf("INV%02d-00001", yy), inv.Number)
		require.Equal(t, invoicing.StatusDraft, inv.Status)
		require.True(t, inv.Subtotal.Equal(price("1000")))
		require.True(t, inv.VATAmount.Equal(price("70")))
		require.True(t, inv.Total.Equal(price("1070")))
		require.Equal(t, "สร้างอัตโนมัติจาก "+order.Number, inv.Note)
	}
	require.NotNil(t, delivered.InvoiceID)
}

func TestDeliveryUsesCurrentVATRate(t *testing.T) {
	store := newMemoryStore()
	vat := &mutableVAT{rate: decimal.NewFromInt(7)}
	svc := NewService(store, vat, nil, nil, nil, 1)

	order, err := svc.Create(context.Background(), CreateInput{
		CustomerID: 7,
		Items:      []ItemInput{{ProductID: 1, Quantity: 1, UnitPrice: price("100")}},
	})
	require.NoError(t, err)
	_, err = svc.Transition(context.Background(), order.ID, StatusConfirmed)
	require.NoError(t, err)

	vat.rate = decimal.NewFromInt(10)
	_, err = svc.Transition(context.Background(), order.ID, StatusDelivered)
	require.NoError(t, err)

	for _, inv := range store.invoices {
		require.True(t, inv.VATAmount.Equal(price("10")), "invoice bills the rate at delivery")
	}
}

type mutableVAT struct{ rate decimal.Decimal }

func (v *mutableVAT) VATRate(ctx context.Context) (decimal.Decimal, error) {
	return v.rate, nil
}

func TestDeliveryRollsBackWhenInvoiceFails(t *testing.T) {
	store := newMemoryStore()
	store.stock[1] = 50
	svc := newTestService(store)

	order, err := svc.Create(context.Background(), CreateInput{
		CustomerID: 7,
		Items:      []ItemInput{{ProductID: 1, Quantity: 10, UnitPrice: price("100")}},
	})
	require.NoError(t, err)
	_, err = svc.Transition(context.Background(), order.ID, StatusConfirmed)
	require.NoError(t, err)

	store.failInvoice = true
	_, err = svc.Transition(context.Background(), order.ID, StatusDelivered)
	require.Error(t, err)

	after, err := svc.Get(context.Background(), order.ID)
	require.NoError(t, err)
	require.Equal(t, StatusConfirmed, after.Status, "status rolled back")
	require.Equal(t, int64(50), store.stock[1], "stock untouched")
	require.Empty(t, store.movements)
	require.Empty(t, store.invoices)
}

func TestDeliveryAllowsNegativeStock(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store)

	order, err := svc.Create(context.Background(), CreateInput{
		CustomerID: 7,
		Items:      []ItemInput{{ProductID: 1, Quantity: 5, UnitPrice: price("10")}},
	})
	require.NoError(t, err)
	_, err = svc.Transition(context.Background(), order.ID, StatusConfirmed)
	require.NoError(t, err)
	_, err = svc.Transition(context.Background(), order.ID, StatusDelivered)
	require.NoError(t, err)

	require.Equal(t, int64(-5), store.stock[1], "overselling is visible, not blocked")
}

func TestTransitionRejectsIllegalJump(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store)

	order, err := svc.Create(context.Background(), CreateInput{
		CustomerID: 7,
		Items:      []ItemInput{{ProductID: 1, Quantity: 1, UnitPrice: price("10")}},
	})
	require.NoError(t, err)

	_, err = svc.Transition(context.Background(), order.ID, StatusDelivered)
	require.ErrorIs(t, err, shared.ErrInvalidTransition)
	_, err = svc.Transition(context.Background(), order.ID, StatusDraft)
	require.ErrorIs(t, err, shared.ErrInvalidTransition)
}

func TestCancelledOrderShipsNothing(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store)

	order, err := svc.Create(context.Background(), CreateInput{
		CustomerID: 7,
		Items:      []ItemInput{{ProductID: 1, Quantity: 1, UnitPrice: price("10")}},
	})
	require.NoError(t, err)

	cancelled, err := svc.Transition(context.Background(), order.ID, StatusCancelled)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, cancelled.Status)
	require.Empty(t, store.movements)
	require.Empty(t, store.invoices)
}

func TestUpdateAndDeleteRequireDraft(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store)

	order, err := svc.Create(context.Background(), CreateInput{
		CustomerID: 7,
		Items:      []ItemInput{{ProductID: 1, Quantity: 1, UnitPrice: price("10")}},
	})
	require.NoError(t, err)
	_, err = svc.Transition(context.Background(), order.ID, StatusConfirmed)
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), order.ID, UpdateInput{
		CustomerID: 7,
		Items:      []ItemInput{{ProductID: 1, Quantity: 2, UnitPrice: price("10")}},
	})
	require.ErrorIs(t, err, shared.ErrConflict)
	require.ErrorIs(t, svc.Delete(context.Background(), order.ID), shared.ErrConflict)
}
