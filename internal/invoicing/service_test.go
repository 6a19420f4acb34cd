package invoicing

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/tradewind-erp/tradewind-erp/internal/sequence"
	"github.com/tradewind-erp/tradewind-erp/internal/shared"
)

type memoryStore struct {
	invoices map[int64]Invoice
	sources  map[int64]SourceOrder
	billed   map[int64]int64
	seq      int64
	nextID   int64
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		invoices: map[int64]Invoice{},
		sources:  map[int64]SourceOrder{},
		billed:   map[int64]int64{},
		nextID:   1,
	}
}

func (m *memoryStore) snapshot() *memoryStore {
	cp := newMemoryStore()
	cp.seq = m.seq
	cp.nextID = m.nextID
	for id, inv := range m.invoices {
		inv.Items = append([]Item(nil), inv.Items...)
		cp.invoices[id] = inv
	}
	for id, src := range m.sources {
		src.Lines = append([]SourceLine(nil), src.Lines...)
		cp.sources[id] = src
	}
	for so, inv := range m.billed {
		cp.billed[so] = inv
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

func (m *memoryStore) Get(ctx context.Context, id int64) (Invoice, error) {
	inv, ok := m.invoices[id]
	if !ok {
		return Invoice{}, ErrNotFound
	}
	return inv, nil
}

func (m *memoryStore) List(ctx context.Context, filters ListFilters) ([]Invoice, int64, error) {
	out := make([]Invoice, 0, len(m.invoices))
	for _, inv := range m.invoices {
		out = append(out, inv)
	}
	return out, int64(len(out)), nil
}

type memoryTx struct {
	store *memoryStore
}

func (t *memoryTx) Get(ctx context.Context, id int64) (Invoice, error) {
	return t.store.Get(ctx, id)
}

func (t *memoryTx) Insert(ctx context.Context, inv *Invoice) error {
	inv.ID = t.store.nextID
	t.store.nextID++
	t.store.invoices[inv.ID] = *inv
	return nil
}

func (t *memoryTx) SetStatus(ctx context.Context, id int64, status Status) error {
	inv, ok := t.store.invoices[id]
	if !ok {
		return ErrNotFound
	}
	inv.Status = status
	t.store.invoices[id] = inv
	return nil
}

func (t *memoryTx) Delete(ctx context.Context, id int64) error {
	if _, ok := t.store.invoices[id]; !ok {
		return ErrNotFound
	}
	delete(t.store.invoices, id)
	for so, inv := range t.store.billed {
		if inv == id {
			delete(t.store.billed, so)
		}
	}
	return nil
}

func (t *memoryTx) NextNumber(ctx context.Context, prefix string) (string, error) {
	t.store.seq++
	return sequence.Format(prefix, 2026, t.store.seq), nil
}

func (t *memoryTx) SourceOrders(ctx context.Context, customerID int64, orderIDs []int64) ([]SourceOrder, error) {
	wanted := map[int64]bool{}
	for _, id := range orderIDs {
		wanted[id] = true
	}
	out := make([]SourceOrder, 0)
	for _, src := range t.store.sources {
		if src.CustomerID != customerID {
			continue
		}
		if _, billed := t.store.billed[src.ID]; billed {
			continue
		}
		if len(wanted) > 0 && !wanted[src.ID] {
			continue
		}
		out = append(out, src)
	}
	return out, nil
}

func (t *memoryTx) LinkSalesOrder(ctx context.Context, salesOrderID, invoiceID int64) error {
	if _, billed := t.store.billed[salesOrderID]; billed {
		return shared.ErrConflict
	}
	t.store.billed[salesOrderID] = invoiceID
	return nil
}

type fixedVAT struct{ rate decimal.Decimal }

func (v fixedVAT) VATRate(ctx context.Context) (decimal.Decimal, error) {
	return v.rate, nil
}

func price(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func seedSource(store *memoryStore, id int64, number string, customerID int64, lines ...SourceLine) {
	store.sources[id] = SourceOrder{ID: id, Number: number, CustomerID: customerID, Lines: lines}
}

func TestCreateFromSalesOrdersKeepsLinesSeparate(t *testing.T) {
	store := newMemoryStore()
	seedSource(store, 1, "SO26-00001", 7,
		SourceLine{ProductID: 1, Quantity: 2, UnitPrice: price("100"), Total: price("200")})
	seedSource(store, 2, "SO26-00002", 7,
		SourceLine{ProductID: 1, Quantity: 3, UnitPrice: price("100"), Total: price("300")},
		SourceLine{ProductID: 2, Quantity: 1, UnitPrice: price("50"), Total: price("50")})

	svc := NewService(store, fixedVAT{rate: decimal.NewFromInt(7)}, nil, nil, nil)
	inv, err := svc.CreateFromSalesOrders(context.Background(), CreateInput{CustomerID: 7})
	require.NoError(t, err)

	require.Equal(t, "INV26-00001", inv.Number)
	require.Equal(t, StatusDraft, inv.Status)
	require.Len(t, inv.Items, 3, "same product on two orders stays two lines")
	require.True(t, inv.Subtotal.Equal(price("550")))
	require.True(t, inv.VATAmount.Equal(price("38.50")))
	require.True(t, inv.Total.Equal(price("588.50")))
	require.Len(t, store.billed, 2)
}

func TestCreateFromSalesOrdersScopesToCustomer(t *testing.T) {
	store := newMemoryStore()
	seedSource(store, 1, "SO26-00001", 7,
		SourceLine{ProductID: 1, Quantity: 1, UnitPrice: price("10"), Total: price("10")})
	seedSource(store, 2, "SO26-00002", 8,
		SourceLine{ProductID: 1, Quantity: 1, UnitPrice: price("10"), Total: price("10")})

	svc := NewService(store, fixedVAT{rate: decimal.NewFromInt(7)}, nil, nil, nil)
	inv, err := svc.CreateFromSalesOrders(context.Background(), CreateInput{CustomerID: 7})
	require.NoError(t, err)
	require.Len(t, inv.Items, 1)
	require.Equal(t, []string{"SO26-00001"}, inv.SourceNumbers)
}

func TestCreateCarriesDueDate(t *testing.T) {
	store := newMemoryStore()
	seedSource(store, 1, "SO26-00001", 7,
		SourceLine{ProductID: 1, Quantity: 1, UnitPrice: price("10"), Total: price("10")})

	due := time.Now().AddDate(0, 0, 15).Truncate(24 * time.Hour)
	svc := NewService(store, fixedVAT{rate: decimal.NewFromInt(7)}, nil, nil, nil)
	inv, err := svc.CreateFromSalesOrders(context.Background(), CreateInput{CustomerID: 7, DueDate: &due})
	require.NoError(t, err)
	require.NotNil(t, inv.DueDate)
	require.True(t, inv.DueDate.Equal(due))
}

func TestCreateWithNoBillableOrdersFails(t *testing.T) {
	store := newMemoryStore()
	svc := NewService(store, fixedVAT{rate: decimal.NewFromInt(7)}, nil, nil, nil)

	_, err := svc.CreateFromSalesOrders(context.Background(), CreateInput{CustomerID: 7})
	require.ErrorIs(t, err, shared.ErrValidation)
	require.Empty(t, store.invoices)
	require.Zero(t, store.seq, "no number burned on failure")
}

func TestOrdersCannotBeBilledTwice(t *testing.T) {
	store := newMemoryStore()
	seedSource(store, 1, "SO26-00001", 7,
		SourceLine{ProductID: 1, Quantity: 1, UnitPrice: price("10"), Total: price("10")})

	svc := NewService(store, fixedVAT{rate: decimal.NewFromInt(7)}, nil, nil, nil)
	_, err := svc.CreateFromSalesOrders(context.Background(), CreateInput{CustomerID: 7})
	require.NoError(t, err)

	_, err = svc.CreateFromSalesOrders(context.Background(), CreateInput{CustomerID: 7})
	require.ErrorIs(t, err, shared.ErrValidation, "already billed orders are not sources")
}

func TestTransitionLifecycle(t *testing.T) {
	store := newMemoryStore()
	seedSource(store, 1, "SO26-00001", 7,
		SourceLine{ProductID: 1, Quantity: 1, UnitPrice: price("10"), Total: price("10")})
	svc := NewService(store, fixedVAT{rate: decimal.NewFromInt(7)}, nil, nil, nil)

	inv, err := svc.CreateFromSalesOrders(context.Background(), CreateInput{CustomerID: 7})
	require.NoError(t, err)

	_, err = svc.Transition(context.Background(), inv.ID, StatusPaid)
	require.ErrorIs(t, err, shared.ErrInvalidTransition)

	issued, err := svc.Transition(context.Background(), inv.ID, StatusIssued)
	require.NoError(t, err)
	require.Equal(t, StatusIssued, issued.Status)

	paid, err := svc.Transition(context.Background(), inv.ID, StatusPaid)
	require.NoError(t, err)
	require.Equal(t, StatusPaid, paid.Status)

	_, err = svc.Transition(context.Background(), inv.ID, StatusCancelled)
	require.ErrorIs(t, err, shared.ErrInvalidTransition)
}

func TestDeleteDraftReleasesOrders(t *testing.T) {
	store := newMemoryStore()
	seedSource(store, 1, "SO26-00001", 7,
		SourceLine{ProductID: 1, Quantity: 1, UnitPrice: price("10"), Total: price("10")})
	svc := NewService(store, fixedVAT{rate: decimal.NewFromInt(7)}, nil, nil, nil)

	inv, err := svc.CreateFromSalesOrders(context.Background(), CreateInput{CustomerID: 7})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), inv.ID))
	require.Empty(t, store.billed)

	// The released order can be billed again.
	again, err := svc.CreateFromSalesOrders(context.Background(), CreateInput{CustomerID: 7})
	require.NoError(t, err)
	require.Equal(t, "INV26-00002", again.Number)
}

func TestDeleteIssuedRejected(t *testing.T) {
	store := newMemoryStore()
	seedSource(store, 1, "SO26-00001", 7,
		SourceLine{ProductID: 1, Quantity: 1, UnitPrice: price("10"), Total: price("10")})
	svc := NewService(store, fixedVAT{rate: decimal.NewFromInt(7)}, nil, nil, nil)

	inv, err := svc.CreateFromSalesOrders(context.Background(), CreateInput{CustomerID: 7})
	require.NoError(t, err)
	_, err = svc.Transition(context.Background(), inv.ID, StatusIssued)
	require.NoError(t, err)

	require.ErrorIs(t, svc.Delete(context.Background(), inv.ID), shared.ErrConflict)
}

func TestBuildRejectsMixedCustomers(t *testing.T) {
	_, err := Build([]SourceOrder{
		{ID: 1, Number: "SO26-00001", CustomerID: 7, Lines: []SourceLine{{ProductID: 1, Quantity: 1, UnitPrice: price("10"), Total: price("10")}}},
		{ID: 2, Number: "SO26-00002", CustomerID: 8, Lines: []SourceLine{{ProductID: 1, Quantity: 1, UnitPrice: price("10"), Total: price("10")}}},
	}, decimal.NewFromInt(7), time.Now(), nil, "")
	require.ErrorIs(t, err, shared.ErrValidation)
}
