package application

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	catalogdomain "github.com/Apurer/uniform-orders-api/internal/domains/catalog/domain"
	ordersmemory "github.com/Apurer/uniform-orders-api/internal/domains/orders/adapters/memory"
	ordersapp "github.com/Apurer/uniform-orders-api/internal/domains/orders/application"
	orderstypes "github.com/Apurer/uniform-orders-api/internal/domains/orders/application/types"
	ordersdomain "github.com/Apurer/uniform-orders-api/internal/domains/orders/domain"
	"github.com/Apurer/uniform-orders-api/internal/domains/returns/adapters/memory"
	"github.com/Apurer/uniform-orders-api/internal/domains/returns/application/types"
	"github.com/Apurer/uniform-orders-api/internal/domains/returns/domain"
	"github.com/Apurer/uniform-orders-api/internal/domains/returns/ports"
	stockmemory "github.com/Apurer/uniform-orders-api/internal/domains/stock/adapters/memory"
	stockapp "github.com/Apurer/uniform-orders-api/internal/domains/stock/application"
	stockports "github.com/Apurer/uniform-orders-api/internal/domains/stock/ports"
	"github.com/Apurer/uniform-orders-api/internal/shared/events"
)

type fixture struct {
	svc    *Service
	orders *ordersapp.Service
	stock  *stockapp.Service
	repo   ports.Repository
	events *events.Recorder
}

// failingAppend rejects every append after the guard would have passed.
type failingAppend struct {
	ports.Repository
}

func (failingAppend) Append(context.Context, *domain.Return, ports.Guard) (*domain.Return, error) {
	return nil, errors.New("connection reset")
}

func newFixture(t *testing.T, wrap func(ports.Repository) ports.Repository) *fixture {
	t.Helper()
	ctx := context.Background()
	stock := stockapp.NewService(stockmemory.NewLedger())
	define := func(garmentID, sizeID int64, retail string, onHand int) {
		_, err := stock.Define(ctx, stockports.DefineInput{
			GarmentID:      garmentID,
			SizeID:         sizeID,
			WholesalePrice: decimal.RequireFromString(retail),
			RetailPrice:    decimal.RequireFromString(retail),
			InitialOnHand:  onHand,
		})
		require.NoError(t, err)
	}
	define(1, 10, "50", 10)
	define(1, 11, "50", 1)
	define(2, 11, "80", 5)

	var repo ports.Repository = memory.NewRepository()
	if wrap != nil {
		repo = wrap(repo)
	}
	recorder := events.NewRecorder()
	orders := ordersapp.NewService(ordersmemory.NewRepository(), stock, nil, nil)
	return &fixture{
		svc:    NewService(repo, orders, stock, WithEventPublisher(recorder)),
		orders: orders,
		stock:  stock,
		repo:   repo,
		events: recorder,
	}
}

func (f *fixture) onHand(t *testing.T, garmentID, sizeID int64) int {
	t.Helper()
	rec, err := f.stock.Read(context.Background(), garmentID, sizeID)
	require.NoError(t, err)
	return rec.OnHand
}

// order places ten polos (garment 1, size 10) at 50 and advances it to target.
func (f *fixture) order(t *testing.T, target ordersdomain.Status) *ordersdomain.Order {
	t.Helper()
	ctx := context.Background()
	order, err := f.orders.CreateOrder(ctx, orderstypes.CreateOrderInput{
		ClientKind: catalogdomain.ClientStudent,
		ClientID:   7,
		Lines:      []orderstypes.CreateOrderLineInput{{GarmentID: 1, SizeID: 10, Quantity: 10}},
	})
	require.NoError(t, err)
	steps := map[ordersdomain.Status][]ordersdomain.Status{
		ordersdomain.StatusPlaced:    nil,
		ordersdomain.StatusDelivered: {ordersdomain.StatusDelivered},
		ordersdomain.StatusSettled:   {ordersdomain.StatusDelivered, ordersdomain.StatusSettled},
		ordersdomain.StatusCancelled: {ordersdomain.StatusCancelled},
	}
	for _, status := range steps[target] {
		order, err = f.orders.AdvanceState(ctx, orderstypes.AdvanceStateInput{OrderID: order.ID, Target: status, Confirmed: true})
		require.NoError(t, err)
	}
	return order
}

func money(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func TestCreateReturn_FullReturnOfSettledOrder(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	order := f.order(t, ordersdomain.StatusSettled)
	require.True(t, order.Total.Equal(decimal.NewFromInt(500)))
	require.Zero(t, f.onHand(t, 1, 10))

	ret, err := f.svc.CreateReturn(ctx, types.CreateReturnInput{
		OrderID: order.ID,
		Kind:    "full",
		Lines:   []types.CreateReturnLineInput{{OrderLineID: order.Lines[0].ID, Quantity: 10}},
		Reason:  "school changed uniform",
		Refund:  money(500),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.KindFull, ret.Kind)
	assert.Equal(t, 10, f.onHand(t, 1, 10))

	after, err := f.orders.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, ordersdomain.StatusSettled, after.Status)
	assert.Equal(t, []string{"returns.return.created"}, f.events.Names())

	_, err = f.svc.CreateReturn(ctx, types.CreateReturnInput{
		OrderID: order.ID,
		Kind:    "partial",
		Lines:   []types.CreateReturnLineInput{{OrderLineID: order.Lines[0].ID, Quantity: 1}},
	})
	require.ErrorIs(t, err, domain.ErrOverReturn)
	assert.Equal(t, 10, f.onHand(t, 1, 10))
}

func TestCreateReturn_PartialReturnsAccumulate(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	order := f.order(t, ordersdomain.StatusDelivered)
	partial := func(qty int) error {
		_, err := f.svc.CreateReturn(ctx, types.CreateReturnInput{
			OrderID: order.ID,
			Kind:    "partial",
			Lines:   []types.CreateReturnLineInput{{OrderLineID: order.Lines[0].ID, Quantity: qty}},
		})
		return err
	}
	require.NoError(t, partial(6))
	require.ErrorIs(t, partial(5), domain.ErrOverReturn)
	require.NoError(t, partial(4))
	assert.Equal(t, 10, f.onHand(t, 1, 10))

	returns, err := f.svc.ListReturns(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, returns, 2)
	assert.Equal(t, 6, returns[0].UnitsReversed())
}

func TestCreateReturn_OrderNotEligible(t *testing.T) {
	for _, status := range []ordersdomain.Status{ordersdomain.StatusPlaced, ordersdomain.StatusCancelled} {
		t.Run(string(status), func(t *testing.T) {
			f := newFixture(t, nil)
			order := f.order(t, status)
			before := f.onHand(t, 1, 10)

			_, err := f.svc.CreateReturn(context.Background(), types.CreateReturnInput{
				OrderID: order.ID,
				Kind:    "partial",
				Lines:   []types.CreateReturnLineInput{{OrderLineID: order.Lines[0].ID, Quantity: 1}},
			})
			require.ErrorIs(t, err, domain.ErrOrderNotEligible)
			assert.Equal(t, before, f.onHand(t, 1, 10))
		})
	}
}

func TestCreateReturn_InvalidInput(t *testing.T) {
	f := newFixture(t, nil)
	order := f.order(t, ordersdomain.StatusDelivered)
	lineID := order.Lines[0].ID
	cases := []struct {
		name  string
		input types.CreateReturnInput
		want  error
	}{
		{"unknown kind", types.CreateReturnInput{OrderID: order.ID, Kind: "credit", Lines: []types.CreateReturnLineInput{{OrderLineID: lineID, Quantity: 1}}}, ErrInvalidInput},
		{"no lines", types.CreateReturnInput{OrderID: order.ID, Kind: "partial"}, ErrInvalidInput},
		{"incomplete full", types.CreateReturnInput{OrderID: order.ID, Kind: "full", Lines: []types.CreateReturnLineInput{{OrderLineID: lineID, Quantity: 3}}}, ErrInvalidInput},
		{"refund above total", types.CreateReturnInput{OrderID: order.ID, Kind: "partial", Refund: money(501), Lines: []types.CreateReturnLineInput{{OrderLineID: lineID, Quantity: 1}}}, domain.ErrInvalidRefund},
		{"unknown order", types.CreateReturnInput{OrderID: uuid.New(), Kind: "partial", Lines: []types.CreateReturnLineInput{{OrderLineID: lineID, Quantity: 1}}}, ports.ErrNotFound},
		{"unknown line", types.CreateReturnInput{OrderID: order.ID, Kind: "partial", Lines: []types.CreateReturnLineInput{{OrderLineID: uuid.New(), Quantity: 1}}}, ports.ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.CreateReturn(context.Background(), tc.input)
			require.ErrorIs(t, err, tc.want)
		})
	}
	assert.Zero(t, f.onHand(t, 1, 10))
}

func TestCreateReturn_SizeExchangeBackordersAndReconciles(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	order := f.order(t, ordersdomain.StatusDelivered)

	ret, err := f.svc.CreateReturn(ctx, types.CreateReturnInput{
		OrderID: order.ID,
		Kind:    "size_exchange",
		Lines: []types.CreateReturnLineInput{{
			OrderLineID: order.Lines[0].ID,
			Quantity:    3,
			Target:      &types.ExchangeTargetInput{GarmentID: 1, SizeID: 11},
		}},
	})
	require.NoError(t, err)
	line := ret.Lines[0]
	require.NotNil(t, line.Target)
	assert.Equal(t, 1, line.Target.Fulfilled)
	assert.Equal(t, 2, line.Target.Backordered)
	assert.True(t, line.PriceDifference().IsZero())
	assert.Equal(t, 3, f.onHand(t, 1, 10))
	assert.Zero(t, f.onHand(t, 1, 11))

	_, err = f.stock.Restock(ctx, 1, 11, 5)
	require.NoError(t, err)
	input := types.ReconcileExchangeInput{ReturnID: ret.ID, LineID: line.ID, RestockedQty: 5}
	updated, err := f.svc.ReconcileExchange(ctx, input)
	require.NoError(t, err)
	outstanding, err := updated.Outstanding(line.ID)
	require.NoError(t, err)
	assert.Zero(t, outstanding)
	assert.Equal(t, 3, f.onHand(t, 1, 11))

	again, err := f.svc.ReconcileExchange(ctx, input)
	require.NoError(t, err)
	assert.Len(t, again.Fulfillments, 1)
	assert.Equal(t, 3, f.onHand(t, 1, 11))
	assert.Contains(t, f.events.Names(), "returns.exchange.fulfilled")
}

func TestListOutstandingExchanges(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	order := f.order(t, ordersdomain.StatusDelivered)

	_, err := f.svc.CreateReturn(ctx, types.CreateReturnInput{
		OrderID: order.ID,
		Kind:    "partial",
		Lines:   []types.CreateReturnLineInput{{OrderLineID: order.Lines[0].ID, Quantity: 1}},
	})
	require.NoError(t, err)
	exchange, err := f.svc.CreateReturn(ctx, types.CreateReturnInput{
		OrderID: order.ID,
		Kind:    "size_exchange",
		Lines: []types.CreateReturnLineInput{{
			OrderLineID: order.Lines[0].ID,
			Quantity:    3,
			Target:      &types.ExchangeTargetInput{GarmentID: 1, SizeID: 11},
		}},
	})
	require.NoError(t, err)

	pending, err := f.svc.ListOutstandingExchanges(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, exchange.ID, pending[0].ID)
	assert.True(t, pending[0].HasOutstanding())

	_, err = f.stock.Restock(ctx, 1, 11, 2)
	require.NoError(t, err)
	_, err = f.svc.ReconcileExchange(ctx, types.ReconcileExchangeInput{ReturnID: exchange.ID, LineID: exchange.Lines[0].ID, RestockedQty: 2})
	require.NoError(t, err)

	pending, err = f.svc.ListOutstandingExchanges(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestCreateReturn_GarmentExchangePricesTarget(t *testing.T) {
	f := newFixture(t, nil)
	order := f.order(t, ordersdomain.StatusDelivered)

	ret, err := f.svc.CreateReturn(context.Background(), types.CreateReturnInput{
		OrderID: order.ID,
		Kind:    "garment_exchange",
		Lines: []types.CreateReturnLineInput{{
			OrderLineID: order.Lines[0].ID,
			Quantity:    2,
			Target:      &types.ExchangeTargetInput{GarmentID: 2, SizeID: 11, Quantity: 2},
		}},
	})
	require.NoError(t, err)
	assert.True(t, ret.Lines[0].Target.UnitPrice.Equal(decimal.NewFromInt(80)))
	assert.True(t, ret.Lines[0].PriceDifference().Equal(decimal.NewFromInt(60)))
	assert.Equal(t, 3, f.onHand(t, 2, 11))
}

func TestCreateReturn_ReleasesTargetsWhenAppendFails(t *testing.T) {
	f := newFixture(t, func(r ports.Repository) ports.Repository { return failingAppend{Repository: r} })
	order := f.order(t, ordersdomain.StatusDelivered)

	_, err := f.svc.CreateReturn(context.Background(), types.CreateReturnInput{
		OrderID: order.ID,
		Kind:    "garment_exchange",
		Lines: []types.CreateReturnLineInput{{
			OrderLineID: order.Lines[0].ID,
			Quantity:    2,
			Target:      &types.ExchangeTargetInput{GarmentID: 2, SizeID: 11},
		}},
	})
	require.ErrorContains(t, err, "connection reset")
	assert.Equal(t, 5, f.onHand(t, 2, 11))
	assert.Zero(t, f.onHand(t, 1, 10))
	assert.Empty(t, f.events.Names())
}

func TestCreateReturn_ConcurrentReturnsNeverOverReverse(t *testing.T) {
	f := newFixture(t, nil)
	order := f.order(t, ordersdomain.StatusDelivered)
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.CreateReturn(context.Background(), types.CreateReturnInput{
				OrderID: order.ID,
				Kind:    "partial",
				Lines:   []types.CreateReturnLineInput{{OrderLineID: order.Lines[0].ID, Quantity: 2}},
			})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 5, succeeded)
	assert.Equal(t, 10, f.onHand(t, 1, 10))
}

func TestReconcileExchange_Errors(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	order := f.order(t, ordersdomain.StatusDelivered)
	ret, err := f.svc.CreateReturn(ctx, types.CreateReturnInput{
		OrderID: order.ID,
		Kind:    "partial",
		Lines:   []types.CreateReturnLineInput{{OrderLineID: order.Lines[0].ID, Quantity: 1}},
	})
	require.NoError(t, err)

	_, err = f.svc.ReconcileExchange(ctx, types.ReconcileExchangeInput{ReturnID: ret.ID, LineID: ret.Lines[0].ID, RestockedQty: 1})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.ReconcileExchange(ctx, types.ReconcileExchangeInput{ReturnID: ret.ID, LineID: ret.Lines[0].ID, RestockedQty: -1})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.ReconcileExchange(ctx, types.ReconcileExchangeInput{ReturnID: ret.ID, LineID: uuid.New(), RestockedQty: 1})
	require.ErrorIs(t, err, ports.ErrNotFound)

	_, err = f.svc.GetReturn(ctx, uuid.New())
	require.ErrorIs(t, err, ports.ErrNotFound)
}
