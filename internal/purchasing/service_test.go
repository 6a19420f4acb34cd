package purchasing

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/tradewind-erp/tradewind-erp/internal/inventory"
	"github.com/tradewind-erp/tradewind-erp/internal/sequence"
	"github.com/tradewind-erp/tradewind-erp/internal/shared"
)

// memoryStore backs the fake repository. WithTx works on a copy and only
// commits when the callback succeeds, mirroring the rollback behaviour the
// service relies on.
type memoryStore struct {
	orders      map[int64]PurchaseOrder
	stock       map[int64]int64
	movements   []inventory.Movement
	seq         int64
	nextID      int64
	failProduct int64
}

func newMemoryStore() *memoryStore {
	return &memoryStore{orders: map[int64]PurchaseOrder{}, stock: map[int64]int64{}, nextID: 1}
}

func (m *memoryStore) snapshot() *memoryStore {
	cp := &memoryStore{
		orders:      make(map[int64]PurchaseOrder, len(m.orders)),
		stock:       make(map[int64]int64, len(m.stock)),
		movements:   append([]inventory.Movement(nil), m.movements...),
		seq:         m.seq,
		nextID:      m.nextID,
		failProduct: m.failProduct,
	}
	for id, o := range m.orders {
		o.Items = append([]Item(nil), o.Items...)
		cp.orders[id] = o
	}
	for p, q := range m.stock {
		cp.stock[p] = q
	}
	return cp
}

func (m *memoryStore) restore(from *memoryStore) {
	m.orders = from.orders
	m.stock = from.stock
	m.movements = from.movements
	m.seq = from.seq
	m.nextID = from.nextID
}

func (m *memoryStore) WithTx(ctx context.Context, fn func(ctx context.Context, repo TxRepository) error) error {
	tx := m.snapshot()
	if err := fn(ctx, &memoryTx{store: tx}); err != nil {
		return err
	}
	m.restore(tx)
	return nil
}

func (m *memoryStore) Get(ctx context.Context, id int64) (PurchaseOrder, error) {
	o, ok := m.orders[id]
	if !ok {
		return PurchaseOrder{}, ErrNotFound
	}
	return o, nil
}

func (m *memoryStore) List(ctx context.Context, filters ListFilters) ([]PurchaseOrder, int64, error) {
	out := make([]PurchaseOrder, 0, len(m.orders))
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

func (t *memoryTx) Get(ctx context.Context, id int64) (PurchaseOrder, error) {
	return t.store.Get(ctx, id)
}

func (t *memoryTx) Insert(ctx context.Context, order *PurchaseOrder) error {
	order.ID = t.store.nextID
	t.store.nextID++
	for i := range order.Items {
		order.Items[i].ID = int64(i) + 1
	}
	t.store.orders[order.ID] = *order
	return nil
}

func (t *memoryTx) Update(ctx context.Context, order *PurchaseOrder) error {
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

func (t *memoryTx) MarkReceived(ctx context.Context, id int64) error {
	o, ok := t.store.orders[id]
	if !ok {
		return ErrNotFound
	}
	for i := range o.Items {
		o.Items[i].ReceivedQty = o.Items[i].Quantity
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
	t.store.seq++
	return sequence.Format(prefix, time.Now().Year(), t.store.seq), nil
}

func (t *memoryTx) Ledger() inventory.TxLedger {
	return &memoryLedger{store: t.store}
}

type memoryLedger struct {
	store *memoryStore
}

func (l *memoryLedger) Apply(ctx context.Context, input inventory.MovementInput) (int64, error) {
	if l.store.failProduct != 0 && input.ProductID == l.store.failProduct {
		return 0, errors.New("ledger unavailable")
	}
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

func TestCreateAllocatesSequentialNumbers(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store)

	first, err := svc.Create(context.Background(), CreateInput{
		SupplierID: 1,
		Items:      []ItemInput{{ProductID: 1, Quantity: 10, UnitPrice: price("100")}},
	})
	require.NoError(t, err)
	second, err := svc.Create(context.Background(), CreateInput{
		SupplierID: 1,
		Items:      []ItemInput{{ProductID: 2, Quantity: 1, UnitPrice: price("50")}},
	})
	require.NoError(t, err)

	yy := time.Now().Year() % 100
	require.Equal(t, fmt.Sprintf("PO%02d-00001", yy), first.Number)
	require.Equal(t, fmt.Sprintf("PO%02d-00002", yy), second.Number)
	require.Equal(t, StatusDraft, first.Status)
}

func TestCreateComputesTotals(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store)

	order, err := svc.Create(context.Background(), CreateInput{
		SupplierID: 1,
		Items: []ItemInput{
			{ProductID: 1, Quantity: 10, UnitPrice: price("100")},
			{ProductID: 2, Quantity: 2, UnitPrice: price("125.25")},
		},
	})
	require.NoError(t, err)
	require.True(t, order.Subtotal.Equal(price("1250.50")), "subtotal %s", order.Subtotal)
	require.True(t, order.VATAmount.Equal(price("87.54")), "vat %s", order.VATAmount)
	require.True(t, order.Total.Equal(price("1338.04")), "total %s", order.Total)
}

func TestCreateCarriesDueDate(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store)

	due := time.Now().AddDate(0, 0, 30).Truncate(24 * time.Hour)
	order, err := svc.Create(context.Background(), CreateInput{
		SupplierID: 1,
		DueDate:    &due,
		Items:      []ItemInput{{ProductID: 1, Quantity: 1, UnitPrice: price("10")}},
	})
	require.NoError(t, err)
	require.NotNil(t, order.DueDate)
	require.True(t, order.DueDate.Equal(due))

	// Updating without a due date clears it.
	updated, err := svc.Update(context.Background(), order.ID, UpdateInput{
		SupplierID: 1,
		Items:      []ItemInput{{ProductID: 1, Quantity: 1, UnitPrice: price("10")}},
	})
	require.NoError(t, err)
	require.Nil(t, updated.DueDate)
}

func TestReceiveBooksStockInSameTransaction(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store)

	order, err := svc.Create(context.Background(), CreateInput{
		SupplierID: 1,
		Items: []ItemInput{
			{ProductID: 1, Quantity: 10, UnitPrice: price("100")},
			{ProductID: 2, Quantity: 3, UnitPrice: price("20")},
		},
	})
	require.NoError(t, err)

	_, err = svc.Transition(context.Background(), order.ID, StatusConfirmed)
	require.NoError(t, err)
	received, err := svc.Transition(context.Background(), order.ID, StatusReceived)
	require.NoError(t, err)

	require.Equal(t, StatusReceived, received.Status)
	require.Equal(t, int64(10), received.Items[0].ReceivedQty)
	require.Equal(t, int64(3), received.Items[1].ReceivedQty)
	require.Equal(t, int64(10), store.stock[1])
	require.Equal(t, int64(3), store.stock[2])
	require.Len(t, store.movements, 2)
	require.Equal(t, inventory.MovementIn, store.movements[0].Type)
	require.Equal(t, "รับสินค้าจาก PO: "+order.Number, store.movements[0].Note)
	require.Equal(t, order.Number, store.movements[0].Reference)
}

func TestTransitionRejectsIllegalJump(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store)

	order, err := svc.Create(context.Background(), CreateInput{
		SupplierID: 1,
		Items:      []ItemInput{{ProductID: 1, Quantity: 1, UnitPrice: price("10")}},
	})
	require.NoError(t, err)

	_, err = svc.Transition(context.Background(), order.ID, StatusReceived)
	require.ErrorIs(t, err, shared.ErrInvalidTransition)

	unchanged, err := svc.Get(context.Background(), order.ID)
	require.NoError(t, err)
	require.Equal(t, StatusDraft, unchanged.Status)
}

func TestReceiveRollsBackWhenLedgerFails(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store)

	order, err := svc.Create(context.Background(), CreateInput{
		SupplierID: 1,
		Items: []ItemInput{
			{ProductID: 1, Quantity: 5, UnitPrice: price("10")},
			{ProductID: 2, Quantity: 5, UnitPrice: price("10")},
			{ProductID: 3, Quantity: 5, UnitPrice: price("10")},
		},
	})
	require.NoError(t, err)
	_, err = svc.Transition(context.Background(), order.ID, StatusConfirmed)
	require.NoError(t, err)

	store.failProduct = 3
	_, err = svc.Transition(context.Background(), order.ID, StatusReceived)
	require.Error(t, err)

	after, err := svc.Get(context.Background(), order.ID)
	require.NoError(t, err)
	require.Equal(t, StatusConfirmed, after.Status, "status rolled back")
	require.Empty(t, store.movements, "no partial movements")
	require.Zero(t, store.stock[1])
	require.Zero(t, store.stock[2])
}

func TestUpdateRequiresDraft(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store)

	order, err := svc.Create(context.Background(), CreateInput{
		SupplierID: 1,
		Items:      []ItemInput{{ProductID: 1, Quantity: 1, UnitPrice: price("10")}},
	})
	require.NoError(t, err)
	_, err = svc.Transition(context.Background(), order.ID, StatusConfirmed)
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), order.ID, UpdateInput{
		SupplierID: 1,
		Items:      []ItemInput{{ProductID: 1, Quantity: 2, UnitPrice: price("10")}},
	})
	require.ErrorIs(t, err, shared.ErrConflict)
}

func TestDeleteRequiresDraft(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store)

	order, err := svc.Create(context.Background(), CreateInput{
		SupplierID: 1,
		Items:      []ItemInput{{ProductID: 1, Quantity: 1, UnitPrice: price("10")}},
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), order.ID))
	_, err = svc.Get(context.Background(), order.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)

	other, err := svc.Create(context.Background(), CreateInput{
		SupplierID: 1,
		Items:      []ItemInput{{ProductID: 1, Quantity: 1, UnitPrice: price("10")}},
	})
	require.NoError(t, err)
	_, err = svc.Transition(context.Background(), other.ID, StatusConfirmed)
	require.NoError(t, err)
	require.ErrorIs(t, svc.Delete(context.Background(), other.ID), shared.ErrConflict)
}

func TestNumberingUnaffectedByRolledBackCreate(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store)

	_, err := svc.Create(context.Background(), CreateInput{
		SupplierID: 1,
		Items:      []ItemInput{{ProductID: 1, Quantity: 1, UnitPrice: price("10")}},
	})
	require.NoError(t, err)

	// A failing insert must roll the allocation back with it.
	failing := &failingInsertStore{memoryStore: store}
	failingSvc := NewService(failing, fixedVAT{rate: decimal.NewFromInt(7)}, nil, nil, nil, 1)
	_, err = failingSvc.Create(context.Background(), CreateInput{
		SupplierID: 1,
		Items:      []ItemInput{{ProductID: 1, Quantity: 1, UnitPrice: price("10")}},
	})
	require.Error(t, err)

	next, err := svc.Create(context.Background(), CreateInput{
		SupplierID: 1,
		Items:      []ItemInput{{ProductID: 1, Quantity: 1, UnitPrice: price("10")}},
	})
	require.NoError(t, err)
	yy := time.Now().Year() % 100
	require.Equal(t, fmt.Sprintf("PO%02d-00002", yy), next.Number, "no gap after rollback")
}

type failingInsertStore struct {
	*memoryStore
}

func (s *failingInsertStore) WithTx(ctx context.Context, fn func(ctx context.Context, repo TxRepository) error) error {
	tx := s.memoryStore.snapshot()
	if err := fn(ctx, &failingTx{memoryTx: &memoryTx{store: tx}}); err != nil {
		return err
	}
	s.memoryStore.restore(tx)
	return nil
}

type failingTx struct {
	*memoryTx
}

func (t *failingTx) Insert(ctx context.Context, order *PurchaseOrder) error {
	return errors.New("insert failed")
}
