//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	catalogdomain "github.com/Apurer/uniform-orders-api/internal/domains/catalog/domain"
	orderspg "github.com/Apurer/uniform-orders-api/internal/domains/orders/adapters/persistence/postgres"
	ordersapp "github.com/Apurer/uniform-orders-api/internal/domains/orders/application"
	"github.com/Apurer/uniform-orders-api/internal/domains/orders/application/types"
	"github.com/Apurer/uniform-orders-api/internal/domains/orders/domain"
	"github.com/Apurer/uniform-orders-api/internal/domains/orders/ports"
	stockpg "github.com/Apurer/uniform-orders-api/internal/domains/stock/adapters/persistence/postgres"
	stockapp "github.com/Apurer/uniform-orders-api/internal/domains/stock/application"
	stockdomain "github.com/Apurer/uniform-orders-api/internal/domains/stock/domain"
	stockports "github.com/Apurer/uniform-orders-api/internal/domains/stock/ports"
	"github.com/Apurer/uniform-orders-api/internal/platform/postgres/pgtest"
)

func newService(t *testing.T, db *gorm.DB) (*ordersapp.Service, *stockapp.Service) {
	t.Helper()
	stock := stockapp.NewService(stockpg.NewLedger(db))
	_, err := stock.Define(context.Background(), stockports.DefineInput{
		GarmentID:      1,
		SizeID:         10,
		WholesalePrice: decimal.NewFromInt(100),
		RetailPrice:    decimal.NewFromInt(125),
		InitialOnHand:  3,
	})
	require.NoError(t, err)
	svc := ordersapp.NewService(orderspg.NewRepository(db), stock, nil, nil,
		ordersapp.WithIdempotencyStore(orderspg.NewIdempotencyStore(db)))
	return svc, stock
}

func placeInput(qty int) types.CreateOrderInput {
	return types.CreateOrderInput{
		ClientKind: catalogdomain.ClientStudent,
		ClientID:   7,
		Lines:      []types.CreateOrderLineInput{{GarmentID: 1, SizeID: 10, Quantity: qty}},
	}
}

func TestRepository_OrderLifecycle(t *testing.T) {
	db := pgtest.Start(t)
	svc, stock := newService(t, db)
	repo := orderspg.NewRepository(db)
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, placeInput(5))
	require.NoError(t, err)
	require.Len(t, order.Lines, 1)
	assert.Equal(t, 3, order.Lines[0].Fulfilled)
	assert.Equal(t, 2, order.Lines[0].Backordered)
	assert.True(t, order.Total.Equal(decimal.NewFromInt(625)))

	waiting, err := repo.ListBackordered(ctx, stockdomain.Key{GarmentID: 1, SizeID: 10})
	require.NoError(t, err)
	require.Len(t, waiting, 1)
	assert.Equal(t, order.ID, waiting[0].ID)

	_, err = svc.AdvanceState(ctx, types.AdvanceStateInput{OrderID: order.ID, Target: domain.StatusDelivered})
	require.ErrorIs(t, err, domain.ErrIncompleteFulfillment)

	_, err = stock.Restock(ctx, 1, 10, 4)
	require.NoError(t, err)
	result, err := svc.ReconcilePending(ctx, types.ReconcilePendingInput{GarmentID: 1, SizeID: 10, RestockedQty: 4})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Granted)
	assert.Equal(t, 2, result.Remaining)

	delivered, err := svc.AdvanceState(ctx, types.AdvanceStateInput{OrderID: order.ID, Target: domain.StatusDelivered})
	require.NoError(t, err)
	require.NotNil(t, delivered.DeliveredAt)

	settled, err := svc.Settle(ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, settled.SettledAt)

	inPeriod, err := repo.ListSettled(ctx, settled.SettledAt.Add(-time.Minute), settled.SettledAt.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, inPeriod, 1)
	assert.Equal(t, 5, inPeriod[0].Lines[0].Fulfilled)

	rec, err := stock.Read(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, rec.OnHand)
}

func TestRepository_UpdateRejectsStaleVersion(t *testing.T) {
	db := pgtest.Start(t)
	svc, _ := newService(t, db)
	repo := orderspg.NewRepository(db)
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, placeInput(1))
	require.NoError(t, err)

	first, err := repo.Get(ctx, order.ID)
	require.NoError(t, err)
	second, err := repo.Get(ctx, order.ID)
	require.NoError(t, err)

	first.Observations = "first writer"
	_, err = repo.Update(ctx, first)
	require.NoError(t, err)

	second.Observations = "second writer"
	_, err = repo.Update(ctx, second)
	require.ErrorIs(t, err, ports.ErrConcurrentUpdate)

	missing := second.Clone()
	missing.ID = uuid.New()
	_, err = repo.Update(ctx, missing)
	require.ErrorIs(t, err, ports.ErrNotFound)
}

func TestIdempotencyStore_ReplayAndConflict(t *testing.T) {
	db := pgtest.Start(t)
	svc, stock := newService(t, db)
	ctx := context.Background()

	in := placeInput(2)
	in.IdempotencyKey = "front-desk-42"
	first, err := svc.CreateOrder(ctx, in)
	require.NoError(t, err)

	replay, err := svc.CreateOrder(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, first.ID, replay.ID)

	rec, err := stock.Read(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.OnHand)

	changed := placeInput(1)
	changed.IdempotencyKey = in.IdempotencyKey
	_, err = svc.CreateOrder(ctx, changed)
	require.ErrorIs(t, err, ports.ErrIdempotencyConflict)
}
