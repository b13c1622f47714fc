//go:build integration

package postgres_test

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	stockpg "github.com/Apurer/uniform-orders-api/internal/domains/stock/adapters/persistence/postgres"
	stockapp "github.com/Apurer/uniform-orders-api/internal/domains/stock/application"
	"github.com/Apurer/uniform-orders-api/internal/domains/stock/domain"
	"github.com/Apurer/uniform-orders-api/internal/domains/stock/ports"
	"github.com/Apurer/uniform-orders-api/internal/platform/postgres/pgtest"
)

func TestLedger_UpsertGetAndCompareAndReserve(t *testing.T) {
	ledger := stockpg.NewLedger(pgtest.Start(t))
	ctx := context.Background()
	key := domain.Key{GarmentID: 1, SizeID: 10}

	rec, err := domain.NewStockRecord(key, decimal.NewFromInt(80), decimal.NewFromInt(100), 5, 2)
	require.NoError(t, err)
	saved, err := ledger.Upsert(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, 5, saved.OnHand)

	_, err = ledger.CompareAndReserve(ctx, key, saved.Version+1, 1)
	require.ErrorIs(t, err, ports.ErrConcurrentUpdate)

	reserved, err := ledger.CompareAndReserve(ctx, key, saved.Version, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, reserved.OnHand)
	assert.Greater(t, reserved.Version, saved.Version)

	incremented, err := ledger.Increment(ctx, key, 4)
	require.NoError(t, err)
	assert.Equal(t, 6, incremented.OnHand)

	// re-pricing keeps the quantity on hand
	repriced, err := domain.NewStockRecord(key, decimal.NewFromInt(85), decimal.NewFromInt(110), 0, 3)
	require.NoError(t, err)
	updated, err := ledger.Upsert(ctx, repriced)
	require.NoError(t, err)
	assert.Equal(t, 6, updated.OnHand)
	assert.True(t, updated.RetailPrice.Equal(decimal.NewFromInt(110)))

	require.NoError(t, ledger.Deactivate(ctx, key))
	got, err := ledger.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, got.Active)

	_, err = ledger.Get(ctx, domain.Key{GarmentID: 1, SizeID: 99})
	require.ErrorIs(t, err, ports.ErrNotFound)
}

func TestLedger_ConcurrentReservationsNeverOversell(t *testing.T) {
	svc := stockapp.NewService(stockpg.NewLedger(pgtest.Start(t)), stockapp.WithMaxAttempts(50))
	ctx := context.Background()
	_, err := svc.Define(ctx, ports.DefineInput{
		GarmentID:      2,
		SizeID:         11,
		WholesalePrice: decimal.NewFromInt(40),
		RetailPrice:    decimal.NewFromInt(50),
		InitialOnHand:  10,
	})
	require.NoError(t, err)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		granted int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := svc.TryReserve(ctx, 2, 11, 3)
			if err != nil {
				return
			}
			mu.Lock()
			granted += n
			mu.Unlock()
		}()
	}
	wg.Wait()

	rec, err := svc.Read(ctx, 2, 11)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, rec.OnHand, 0)
	assert.Equal(t, 10, granted+rec.OnHand)
}

func TestLedger_ListBelowThreshold(t *testing.T) {
	svc := stockapp.NewService(stockpg.NewLedger(pgtest.Start(t)))
	ctx := context.Background()
	for _, in := range []ports.DefineInput{
		{GarmentID: 1, SizeID: 1, RetailPrice: decimal.NewFromInt(10), InitialOnHand: 1, ReorderThreshold: 2},
		{GarmentID: 1, SizeID: 2, RetailPrice: decimal.NewFromInt(10), InitialOnHand: 9, ReorderThreshold: 2},
	} {
		_, err := svc.Define(ctx, in)
		require.NoError(t, err)
	}
	low, err := svc.ListBelowThreshold(ctx)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, int64(1), low[0].SizeID)
}
