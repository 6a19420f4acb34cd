package inventory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tradewind-erp/tradewind-erp/internal/shared"
)

type levelKey struct {
	product   int64
	warehouse int64
}

// memoryRepo mimics the transactional ledger in memory. Mutations run
// against a copy and only land when the callback succeeds.
type memoryRepo struct {
	levels    map[levelKey]int64
	movements []Movement
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{levels: map[levelKey]int64{}}
}

type memoryLedger struct {
	levels    map[levelKey]int64
	movements []Movement
}

func (m *memoryRepo) WithLedger(ctx context.Context, fn func(ctx context.Context, ledger TxLedger) error) error {
	ledger := &memoryLedger{levels: map[levelKey]int64{}}
	for k, v := range m.levels {
		ledger.levels[k] = v
	}
	if err := fn(ctx, ledger); err != nil {
		return err
	}
	m.levels = ledger.levels
	m.movements = append(m.movements, ledger.movements...)
	return nil
}

func (l *memoryLedger) Apply(ctx context.Context, input MovementInput) (int64, error) {
	delta, err := input.Delta()
	if err != nil {
		return 0, err
	}
	key := levelKey{product: input.ProductID, warehouse: input.WarehouseID}
	l.levels[key] += delta
	l.movements = append(l.movements, Movement{
		ProductID:   input.ProductID,
		WarehouseID: input.WarehouseID,
		Type:        input.Type,
		Quantity:    input.Magnitude(),
		Note:        input.Note,
		Reference:   input.Reference,
	})
	return l.levels[key], nil
}

func (m *memoryRepo) Levels(ctx context.Context, filters LevelFilters) ([]Level, int64, error) {
	out := make([]Level, 0, len(m.levels))
	for k, qty := range m.levels {
		out = append(out, Level{ProductID: k.product, WarehouseID: k.warehouse, Quantity: qty})
	}
	return out, int64(len(out)), nil
}

func (m *memoryRepo) Movements(ctx context.Context, filters MovementFilters) ([]Movement, int64, error) {
	return m.movements, int64(len(m.movements)), nil
}

func TestAdjustAppliesSignedDelta(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil, nil)

	result, err := svc.Adjust(context.Background(), AdjustInput{ProductID: 1, WarehouseID: 1, Quantity: 25, Note: "opening balance"})
	require.NoError(t, err)
	require.Equal(t, int64(25), result.Quantity)

	result, err = svc.Adjust(context.Background(), AdjustInput{ProductID: 1, WarehouseID: 1, Quantity: -5})
	require.NoError(t, err)
	require.Equal(t, int64(20), result.Quantity)

	require.Len(t, repo.movements, 2)
	require.Equal(t, MovementAdjust, repo.movements[0].Type)
	require.Equal(t, int64(5), repo.movements[1].Quantity, "movement stores the magnitude")
}

func TestAdjustZeroQuantityRejected(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, nil, nil)

	_, err := svc.Adjust(context.Background(), AdjustInput{ProductID: 1, WarehouseID: 1, Quantity: 0})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestAdjustAllowsNegativeStock(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, nil, nil)

	result, err := svc.Adjust(context.Background(), AdjustInput{ProductID: 2, WarehouseID: 1, Quantity: -10})
	require.NoError(t, err)
	require.Equal(t, int64(-10), result.Quantity)
}

func TestLevelMatchesMovementSum(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil, nil)

	deltas := []int64{10, -3, 7, -14, 2}
	var sum int64
	for _, d := range deltas {
		sum += d
		_, err := svc.Adjust(context.Background(), AdjustInput{ProductID: 9, WarehouseID: 1, Quantity: d})
		require.NoError(t, err)
	}

	require.Equal(t, sum, repo.levels[levelKey{product: 9, warehouse: 1}])
	require.Len(t, repo.movements, len(deltas), "every change leaves a movement row")
}
