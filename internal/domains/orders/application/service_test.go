package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	catalogmemory "github.com/Apurer/uniform-orders-api/internal/domains/catalog/adapters/memory"
	catalogdomain "github.com/Apurer/uniform-orders-api/internal/domains/catalog/domain"
	"github.com/Apurer/uniform-orders-api/internal/domains/orders/adapters/memory"
	"github.com/Apurer/uniform-orders-api/internal/domains/orders/application/types"
	"github.com/Apurer/uniform-orders-api/internal/domains/orders/domain"
	"github.com/Apurer/uniform-orders-api/internal/domains/orders/ports"
	stockmemory "github.com/Apurer/uniform-orders-api/internal/domains/stock/adapters/memory"
	stockapp "github.com/Apurer/uniform-orders-api/internal/domains/stock/application"
	stockdomain "github.com/Apurer/uniform-orders-api/internal/domains/stock/domain"
	stockports "github.com/Apurer/uniform-orders-api/internal/domains/stock/ports"
	"github.com/Apurer/uniform-orders-api/internal/shared/events"
)

const (
	polo    int64 = 1
	skirt   int64 = 2
	retired int64 = 9
	sizeM   int64 = 10
	sizeL   int64 = 11
)

type fixture struct {
	svc    *Service
	stock  *stockapp.Service
	repo   *flakyRepo
	events *events.Recorder
}

// flakyRepo injects persistence failures in front of the memory repository.
type flakyRepo struct {
	*memory.Repository
	mu             sync.Mutex
	createErr      error
	updateFailures int
	updates        int
}

func (r *flakyRepo) Create(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	return r.Repository.Create(ctx, order)
}

func (r *flakyRepo) Update(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	r.mu.Lock()
	r.updates++
	fail := r.updates <= r.updateFailures
	r.mu.Unlock()
	if fail {
		return nil, ports.ErrConcurrentUpdate
	}
	return r.Repository.Update(ctx, order)
}

// failingStock refuses reservations for one garment.
type failingStock struct {
	ports.Stock
	garmentID int64
}

func (s failingStock) TryReserve(ctx context.Context, garmentID, sizeID int64, quantity int) (int, error) {
	if garmentID == s.garmentID {
		return 0, errors.New("ledger unavailable")
	}
	return s.Stock.TryReserve(ctx, garmentID, sizeID, quantity)
}

func tickingClock() func() time.Time {
	var mu sync.Mutex
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	ctx := context.Background()
	stock := stockapp.NewService(stockmemory.NewLedger(), stockapp.WithMaxAttempts(50))
	define := func(garmentID, sizeID int64, wholesale, retail string, onHand int) {
		_, err := stock.Define(ctx, stockports.DefineInput{
			GarmentID:        garmentID,
			SizeID:           sizeID,
			WholesalePrice:   decimal.RequireFromString(wholesale),
			RetailPrice:      decimal.RequireFromString(retail),
			InitialOnHand:    onHand,
			ReorderThreshold: 1,
		})
		require.NoError(t, err)
	}
	define(polo, sizeM, "35", "50", 6)
	define(skirt, sizeL, "60", "80", 3)
	define(retired, sizeM, "10", "20", 5)

	catalog := catalogmemory.NewStore()
	catalog.PutGarment(catalogdomain.Garment{ID: polo, Name: "Polo", Active: true})
	catalog.PutGarment(catalogdomain.Garment{ID: skirt, Name: "Skirt", Active: true})
	catalog.PutGarment(catalogdomain.Garment{ID: retired, Name: "Old blazer", Active: false})
	catalog.PutSize(catalogdomain.Size{ID: sizeM, Label: "M"})
	catalog.PutSize(catalogdomain.Size{ID: sizeL, Label: "L"})
	catalog.PutClient(catalogdomain.Client{Kind: catalogdomain.ClientStudent, ID: 7, Name: "Ana Torres"})
	catalog.PutClient(catalogdomain.Client{Kind: catalogdomain.ClientWalkIn, ID: 3, Name: "Luis"})

	f := &fixture{
		stock:  stock,
		repo:   &flakyRepo{Repository: memory.NewRepository()},
		events: events.NewRecorder(),
	}
	base := []Option{WithEventPublisher(f.events), WithClock(tickingClock())}
	f.svc = NewService(f.repo, stock, catalog, catalog, append(base, opts...)...)
	return f
}

func (f *fixture) onHand(t *testing.T, garmentID, sizeID int64) int {
	t.Helper()
	rec, err := f.stock.Read(context.Background(), garmentID, sizeID)
	require.NoError(t, err)
	return rec.OnHand
}

func studentOrder(lines ...types.CreateOrderLineInput) types.CreateOrderInput {
	return types.CreateOrderInput{
		ClientKind: catalogdomain.ClientStudent,
		ClientID:   7,
		Lines:      lines,
	}
}

func line(garmentID, sizeID int64, qty int) types.CreateOrderLineInput {
	return types.CreateOrderLineInput{GarmentID: garmentID, SizeID: sizeID, Quantity: qty}
}

func TestCreateOrder_SplitsAgainstStock(t *testing.T) {
	f := newFixture(t)

	order, err := f.svc.CreateOrder(context.Background(), studentOrder(line(polo, sizeM, 10)))
	require.NoError(t, err)

	require.Len(t, order.Lines, 1)
	assert.Equal(t, domain.StatusPlaced, order.Status)
	assert.Equal(t, 6, order.Lines[0].Fulfilled)
	assert.Equal(t, 4, order.Lines[0].Backordered)
	assert.True(t, order.Total.Equal(decimal.NewFromInt(500)), "total charged on requested units")
	assert.Equal(t, "Ana Torres", order.Client.Name)
	assert.Equal(t, 0, f.onHand(t, polo, sizeM))
	assert.Equal(t, []string{"orders.order.placed"}, f.events.Names())

	stored, err := f.svc.GetOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.Lines, stored.Lines)
}

func TestCreateOrder_WholesaleTier(t *testing.T) {
	f := newFixture(t)
	input := studentOrder(line(polo, sizeM, 2), line(skirt, sizeL, 1))
	input.PriceTier = stockdomain.TierWholesale

	order, err := f.svc.CreateOrder(context.Background(), input)
	require.NoError(t, err)
	assert.True(t, order.Total.Equal(decimal.NewFromInt(130)))
	assert.Equal(t, stockdomain.TierWholesale, order.PriceTier)
}

func TestCreateOrder_RejectsInvalidInputWithoutTouchingStock(t *testing.T) {
	cases := []struct {
		name  string
		input types.CreateOrderInput
		want  error
	}{
		{"empty order", studentOrder(), domain.ErrEmptyOrder},
		{"unknown client kind", types.CreateOrderInput{ClientKind: "staff", ClientID: 7, Lines: []types.CreateOrderLineInput{line(polo, sizeM, 1)}}, domain.ErrInvalidClient},
		{"unknown client", types.CreateOrderInput{ClientKind: catalogdomain.ClientStudent, ClientID: 99, Lines: []types.CreateOrderLineInput{line(polo, sizeM, 1)}}, domain.ErrInvalidClient},
		{"zero quantity", studentOrder(line(polo, sizeM, 1), line(skirt, sizeL, 0)), domain.ErrInvalidQuantity},
		{"inactive garment", studentOrder(line(polo, sizeM, 1), line(retired, sizeM, 1)), domain.ErrGarmentUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.svc.CreateOrder(context.Background(), tc.input)
			require.ErrorIs(t, err, ErrInvalidInput)
			require.ErrorIs(t, err, tc.want)
			assert.Equal(t, 6, f.onHand(t, polo, sizeM))
			assert.Equal(t, 3, f.onHand(t, skirt, sizeL))
		})
	}
}

func TestCreateOrder_UnknownStockRecordIsNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateOrder(context.Background(), studentOrder(line(polo, sizeL, 1)))
	require.ErrorIs(t, err, ports.ErrNotFound)
}

func TestCreateOrder_CompensatesWhenPersistFails(t *testing.T) {
	f := newFixture(t)
	f.repo.createErr = errors.New("disk full")

	_, err := f.svc.CreateOrder(context.Background(), studentOrder(line(polo, sizeM, 4), line(skirt, sizeL, 5)))
	require.ErrorContains(t, err, "disk full")

	assert.Equal(t, 6, f.onHand(t, polo, sizeM))
	assert.Equal(t, 3, f.onHand(t, skirt, sizeL))
	assert.Empty(t, f.events.Names())
}

func TestCreateOrder_CompensatesWhenLaterReservationFails(t *testing.T) {
	f := newFixture(t)
	svc := NewService(f.repo, failingStock{Stock: f.stock, garmentID: skirt}, nil, nil)

	_, err := svc.CreateOrder(context.Background(), studentOrder(line(polo, sizeM, 4), line(skirt, sizeL, 1)))
	require.ErrorContains(t, err, "ledger unavailable")
	assert.Equal(t, 6, f.onHand(t, polo, sizeM))

	orders, err := f.repo.List(context.Background(), ports.OrderFilter{})
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestCreateOrder_CompensatesWhenCancelled(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	svc := NewService(f.repo, cancellingStock{Stock: f.stock, cancel: cancel}, nil, nil)

	_, err := svc.CreateOrder(ctx, studentOrder(line(polo, sizeM, 2), line(skirt, sizeL, 1)))
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 6, f.onHand(t, polo, sizeM))
	assert.Equal(t, 3, f.onHand(t, skirt, sizeL))
}

// cancellingStock cancels the caller's context after the first grant.
type cancellingStock struct {
	ports.Stock
	cancel context.CancelFunc
}

func (s cancellingStock) TryReserve(ctx context.Context, garmentID, sizeID int64, quantity int) (int, error) {
	granted, err := s.Stock.TryReserve(ctx, garmentID, sizeID, quantity)
	s.cancel()
	return granted, err
}

func TestCreateOrder_IdempotencyReplaysAndRejectsDifferentPayload(t *testing.T) {
	f := newFixture(t, WithIdempotencyStore(memory.NewIdempotencyStore()))
	input := studentOrder(line(polo, sizeM, 2))
	input.IdempotencyKey = "req-1"

	first, err := f.svc.CreateOrder(context.Background(), input)
	require.NoError(t, err)
	second, err := f.svc.CreateOrder(context.Background(), input)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 4, f.onHand(t, polo, sizeM), "replay must not reserve again")

	input.Lines[0].Quantity = 3
	_, err = f.svc.CreateOrder(context.Background(), input)
	require.ErrorIs(t, err, ports.ErrIdempotencyConflict)
}

func TestCreateOrder_ResumesClaimedKeyWithoutOrder(t *testing.T) {
	store := memory.NewIdempotencyStore()
	f := newFixture(t, WithIdempotencyStore(store))
	input := studentOrder(line(skirt, sizeL, 1))
	input.IdempotencyKey = "req-2"
	hash, err := FingerprintCreateOrder(input)
	require.NoError(t, err)
	claimed := uuid.New()
	_, err = store.Save(context.Background(), ports.IdempotencyRecord{Key: "req-2", RequestHash: hash, OrderID: claimed})
	require.NoError(t, err)

	order, err := f.svc.CreateOrder(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, claimed, order.ID)
}

func TestFingerprintCreateOrder_IgnoresLineOrderAndKey(t *testing.T) {
	a := studentOrder(line(polo, sizeM, 1), line(skirt, sizeL, 2))
	a.IdempotencyKey = "a"
	b := studentOrder(line(skirt, sizeL, 2), line(polo, sizeM, 1))
	b.IdempotencyKey = "b"
	b.PriceTier = stockdomain.TierRetail

	ha, err := FingerprintCreateOrder(a)
	require.NoError(t, err)
	hb, err := FingerprintCreateOrder(b)
	require.NoError(t, err)
	assert.Equal(t, ha, hb)
}

func TestCreateOrder_ConcurrentOrdersNeverOversell(t *testing.T) {
	f := newFixture(t)
	var wg sync.WaitGroup
	results := make(chan *domain.Order, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			order, err := f.svc.CreateOrder(context.Background(), studentOrder(line(polo, sizeM, 1)))
			if err == nil {
				results <- order
			}
		}()
	}
	wg.Wait()
	close(results)

	fulfilled, backordered := 0, 0
	for order := range results {
		fulfilled += order.Lines[0].Fulfilled
		backordered += order.Lines[0].Backordered
	}
	assert.Equal(t, 6, fulfilled)
	assert.Equal(t, 14, backordered)
	assert.Equal(t, 0, f.onHand(t, polo, sizeM))
}

func placeBackordered(t *testing.T, f *fixture) *domain.Order {
	t.Helper()
	order, err := f.svc.CreateOrder(context.Background(), studentOrder(line(polo, sizeM, 10)))
	require.NoError(t, err)
	require.Equal(t, 4, order.Lines[0].Backordered)
	return order
}

func TestReconcileBackorder_FillsAndIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := placeBackordered(t, f)
	_, err := f.stock.Restock(ctx, polo, sizeM, 5)
	require.NoError(t, err)

	input := types.ReconcileInput{OrderID: order.ID, LineID: order.Lines[0].ID, RestockedQty: 5}
	updated, err := f.svc.ReconcileBackorder(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, 10, updated.Lines[0].Fulfilled)
	assert.Zero(t, updated.Lines[0].Backordered)
	assert.Equal(t, 1, f.onHand(t, polo, sizeM))

	again, err := f.svc.ReconcileBackorder(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, 10, again.Lines[0].Fulfilled)
	assert.Equal(t, 1, f.onHand(t, polo, sizeM))
	assert.Contains(t, f.events.Names(), "orders.order.backorder_reconciled")
}

func TestReconcileBackorder_PartialRestock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := placeBackordered(t, f)
	_, err := f.stock.Restock(ctx, polo, sizeM, 2)
	require.NoError(t, err)

	updated, err := f.svc.ReconcileBackorder(ctx, types.ReconcileInput{OrderID: order.ID, LineID: order.Lines[0].ID, RestockedQty: 2})
	require.NoError(t, err)
	assert.Equal(t, 8, updated.Lines[0].Fulfilled)
	assert.Equal(t, 2, updated.Lines[0].Backordered)
}

func TestReconcileBackorder_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := placeBackordered(t, f)
	lineID := order.Lines[0].ID

	unchanged, err := f.svc.ReconcileBackorder(ctx, types.ReconcileInput{OrderID: order.ID, LineID: lineID, RestockedQty: 0})
	require.NoError(t, err)
	assert.Equal(t, 4, unchanged.Lines[0].Backordered)

	_, err = f.svc.ReconcileBackorder(ctx, types.ReconcileInput{OrderID: order.ID, LineID: lineID, RestockedQty: -1})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.ReconcileBackorder(ctx, types.ReconcileInput{OrderID: order.ID, LineID: uuid.New(), RestockedQty: 1})
	require.ErrorIs(t, err, ports.ErrNotFound)

	_, err = f.svc.ReconcileBackorder(ctx, types.ReconcileInput{OrderID: uuid.New(), LineID: lineID, RestockedQty: 1})
	require.ErrorIs(t, err, ports.ErrNotFound)

	_, err = f.svc.AdvanceState(ctx, types.AdvanceStateInput{OrderID: order.ID, Target: domain.StatusCancelled, Confirmed: true})
	require.NoError(t, err)
	_, err = f.svc.ReconcileBackorder(ctx, types.ReconcileInput{OrderID: order.ID, LineID: lineID, RestockedQty: 1})
	require.ErrorIs(t, err, domain.ErrOrderNotEligible)
}

func TestReconcileBackorder_CompleteLineAfterDeliveryIsNoop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order, err := f.svc.CreateOrder(ctx, studentOrder(line(polo, sizeM, 2)))
	require.NoError(t, err)
	_, err = f.svc.AdvanceState(ctx, types.AdvanceStateInput{OrderID: order.ID, Target: domain.StatusDelivered})
	require.NoError(t, err)

	input := types.ReconcileInput{OrderID: order.ID, LineID: order.Lines[0].ID, RestockedQty: 3}
	unchanged, err := f.svc.ReconcileBackorder(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDelivered, unchanged.Status)
	assert.Equal(t, 2, unchanged.Lines[0].Fulfilled)
	assert.Zero(t, unchanged.Lines[0].Backordered)
	assert.Equal(t, 4, f.onHand(t, polo, sizeM))

	_, err = f.svc.Settle(ctx, order.ID)
	require.NoError(t, err)
	_, err = f.svc.ReconcileBackorder(ctx, input)
	require.NoError(t, err)
}

func TestReconcileBackorder_RetriesVersionConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := placeBackordered(t, f)
	_, err := f.stock.Restock(ctx, polo, sizeM, 4)
	require.NoError(t, err)
	f.repo.updateFailures = 2

	updated, err := f.svc.ReconcileBackorder(ctx, types.ReconcileInput{OrderID: order.ID, LineID: order.Lines[0].ID, RestockedQty: 4})
	require.NoError(t, err)
	assert.Zero(t, updated.Lines[0].Backordered)
	assert.Equal(t, 0, f.onHand(t, polo, sizeM))
}

func TestReconcileBackorder_ConflictAfterBoundedRetriesReleasesGrant(t *testing.T) {
	f := newFixture(t, WithMaxAttempts(3))
	ctx := context.Background()
	order := placeBackordered(t, f)
	_, err := f.stock.Restock(ctx, polo, sizeM, 4)
	require.NoError(t, err)
	f.repo.updateFailures = 100

	_, err = f.svc.ReconcileBackorder(ctx, types.ReconcileInput{OrderID: order.ID, LineID: order.Lines[0].ID, RestockedQty: 4})
	require.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, 4, f.onHand(t, polo, sizeM))
	assert.Equal(t, 3, f.repo.updates)
}

func TestReconcilePending_OldestOrderFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := placeBackordered(t, f)
	second, err := f.svc.CreateOrder(ctx, studentOrder(line(polo, sizeM, 3)))
	require.NoError(t, err)
	require.Equal(t, 3, second.Lines[0].Backordered)
	_, err = f.stock.Restock(ctx, polo, sizeM, 5)
	require.NoError(t, err)

	result, err := f.svc.ReconcilePending(ctx, types.ReconcilePendingInput{GarmentID: polo, SizeID: sizeM, RestockedQty: 5})
	require.NoError(t, err)
	assert.Equal(t, 5, result.Granted)
	assert.Zero(t, result.Remaining)
	require.Len(t, result.Lines, 2)
	assert.Equal(t, first.ID, result.Lines[0].OrderID)
	assert.Equal(t, 4, result.Lines[0].Granted)
	assert.Equal(t, 1, result.Lines[1].Granted)

	reloaded, err := f.svc.GetOrder(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, reloaded.Lines[0].Backordered)
}

func TestAdvanceState_DeliveryRequiresCompleteFulfillment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := placeBackordered(t, f)

	_, err := f.svc.AdvanceState(ctx, types.AdvanceStateInput{OrderID: order.ID, Target: domain.StatusDelivered})
	require.ErrorIs(t, err, domain.ErrIncompleteFulfillment)

	_, err = f.stock.Restock(ctx, polo, sizeM, 4)
	require.NoError(t, err)
	_, err = f.svc.ReconcileBackorder(ctx, types.ReconcileInput{OrderID: order.ID, LineID: order.Lines[0].ID, RestockedQty: 4})
	require.NoError(t, err)

	delivered, err := f.svc.AdvanceState(ctx, types.AdvanceStateInput{OrderID: order.ID, Target: domain.StatusDelivered})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDelivered, delivered.Status)
	require.NotNil(t, delivered.DeliveredAt)

	settled, err := f.svc.Settle(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSettled, settled.Status)
	require.NotNil(t, settled.SettledAt)

	_, err = f.svc.AdvanceState(ctx, types.AdvanceStateInput{OrderID: order.ID, Target: domain.StatusCancelled, Confirmed: true})
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestAdvanceState_CancelRequiresConfirmationAndReleasesStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order, err := f.svc.CreateOrder(ctx, studentOrder(line(polo, sizeM, 4), line(skirt, sizeL, 5)))
	require.NoError(t, err)
	assert.Equal(t, 2, f.onHand(t, polo, sizeM))
	assert.Equal(t, 0, f.onHand(t, skirt, sizeL))

	_, err = f.svc.AdvanceState(ctx, types.AdvanceStateInput{OrderID: order.ID, Target: domain.StatusCancelled})
	require.ErrorIs(t, err, domain.ErrConfirmationRequired)
	assert.Equal(t, 2, f.onHand(t, polo, sizeM))

	cancelled, err := f.svc.AdvanceState(ctx, types.AdvanceStateInput{OrderID: order.ID, Target: domain.StatusCancelled, Confirmed: true})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, cancelled.Status)
	assert.Equal(t, 6, f.onHand(t, polo, sizeM))
	assert.Equal(t, 3, f.onHand(t, skirt, sizeL))

	_, err = f.svc.AdvanceState(ctx, types.AdvanceStateInput{OrderID: order.ID, Target: domain.StatusCancelled, Confirmed: true})
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Equal(t, 6, f.onHand(t, polo, sizeM), "stock is released once")
}

func TestAdvanceState_UnknownTarget(t *testing.T) {
	f := newFixture(t)
	order := placeBackordered(t, f)

	_, err := f.svc.AdvanceState(context.Background(), types.AdvanceStateInput{OrderID: order.ID, Target: "SHIPPED"})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestSettle_RequiresDelivery(t *testing.T) {
	f := newFixture(t)
	order, err := f.svc.CreateOrder(context.Background(), studentOrder(line(polo, sizeM, 1)))
	require.NoError(t, err)

	_, err = f.svc.Settle(context.Background(), order.ID)
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestRecordPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order, err := f.svc.CreateOrder(ctx, studentOrder(line(polo, sizeM, 2)))
	require.NoError(t, err)

	paid, err := f.svc.RecordPayment(ctx, types.RecordPaymentInput{OrderID: order.ID, Amount: decimal.NewFromInt(100)})
	require.NoError(t, err)
	require.NotNil(t, paid.PaymentReceived)
	assert.True(t, paid.Balance().IsZero())

	_, err = f.svc.RecordPayment(ctx, types.RecordPaymentInput{OrderID: order.ID, Amount: decimal.NewFromInt(-5)})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestListOrders_FiltersByStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	placed, err := f.svc.CreateOrder(ctx, studentOrder(line(polo, sizeM, 1)))
	require.NoError(t, err)
	cancelled, err := f.svc.CreateOrder(ctx, studentOrder(line(skirt, sizeL, 1)))
	require.NoError(t, err)
	_, err = f.svc.AdvanceState(ctx, types.AdvanceStateInput{OrderID: cancelled.ID, Target: domain.StatusCancelled, Confirmed: true})
	require.NoError(t, err)

	all, err := f.svc.ListOrders(ctx, types.ListOrdersInput{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	pending, err := f.svc.ListOrders(ctx, types.ListOrdersInput{Status: "pedido"})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, placed.ID, pending[0].ID)

	_, err = f.svc.ListOrders(ctx, types.ListOrdersInput{Status: "lost"})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestErrorCodes_RoundTrip(t *testing.T) {
	err := mapError(domain.ErrEmptyOrder)
	code := ErrorCode(err)
	require.Equal(t, CodeInvalidInput, code)
	require.ErrorIs(t, ErrorFromCode(code, err.Error()), ErrInvalidInput)

	assert.Equal(t, CodeIdempotencyConflict, ErrorCode(ports.ErrIdempotencyConflict))
	assert.Empty(t, ErrorCode(errors.New("timeout")))
}
