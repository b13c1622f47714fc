package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	catalogdomain "github.com/Apurer/uniform-orders-api/internal/domains/catalog/domain"
	stockdomain "github.com/Apurer/uniform-orders-api/internal/domains/stock/domain"
)

var student = ClientRef{Kind: catalogdomain.ClientStudent, ID: 7, Name: "Ana"}

func newTestOrder(t *testing.T, requested, granted int) *Order {
	t.Helper()
	line, err := NewLine(1, 2, requested, decimal.RequireFromString("50"), " embroidered ")
	require.NoError(t, err)
	require.NoError(t, line.Grant(granted))
	order, err := NewOrder(uuid.New(), student, "", []Line{line}, "", time.Now())
	require.NoError(t, err)
	return order
}

func TestNewOrder_TotalsRequestedQuantities(t *testing.T) {
	order := newTestOrder(t, 10, 6)

	assert.Equal(t, StatusPlaced, order.Status)
	assert.Equal(t, stockdomain.TierRetail, order.PriceTier)
	assert.True(t, order.Total.Equal(decimal.RequireFromString("500")))
	assert.Equal(t, 6, order.Lines[0].Fulfilled)
	assert.Equal(t, 4, order.Lines[0].Backordered)
	assert.Equal(t, "embroidered", order.Lines[0].Specification)
	require.Len(t, order.Events(), 1)
	assert.Equal(t, "orders.order.placed", order.Events()[0].EventName())
}

func TestNewOrder_Validation(t *testing.T) {
	line, err := NewLine(1, 1, 1, decimal.NewFromInt(5), "")
	require.NoError(t, err)

	_, err = NewOrder(uuid.New(), student, "", nil, "", time.Now())
	assert.ErrorIs(t, err, ErrEmptyOrder)

	_, err = NewOrder(uuid.New(), ClientRef{Kind: "staff", ID: 1}, "", []Line{line}, "", time.Now())
	assert.ErrorIs(t, err, ErrInvalidClient)

	_, err = NewOrder(uuid.New(), student, "vip", []Line{line}, "", time.Now())
	assert.ErrorIs(t, err, stockdomain.ErrInvalidPriceTier)

	_, err = NewLine(1, 1, 0, decimal.NewFromInt(5), "")
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = NewLine(0, 1, 1, decimal.NewFromInt(5), "")
	assert.ErrorIs(t, err, ErrInvalidReference)

	_, err = NewLine(1, 1, 1, decimal.NewFromInt(-1), "")
	assert.ErrorIs(t, err, ErrNegativePrice)
}

func TestReconcileLine(t *testing.T) {
	order := newTestOrder(t, 10, 6)
	lineID := order.Lines[0].ID

	require.NoError(t, order.ReconcileLine(lineID, 4, time.Now()))
	assert.Equal(t, 10, order.Lines[0].Fulfilled)
	assert.Zero(t, order.Lines[0].Backordered)

	assert.ErrorIs(t, order.ReconcileLine(lineID, 1, time.Now()), ErrInvalidGrant)
	assert.ErrorIs(t, order.ReconcileLine(uuid.New(), 1, time.Now()), ErrLineNotFound)
}

func TestReconcileLine_OnlyPlacedOrders(t *testing.T) {
	order := newTestOrder(t, 2, 1)
	order.Status = StatusCancelled

	err := order.ReconcileLine(order.Lines[0].ID, 1, time.Now())
	assert.ErrorIs(t, err, ErrOrderNotEligible)
}

func TestTransitionTo(t *testing.T) {
	now := time.Now()

	order := newTestOrder(t, 10, 6)
	assert.ErrorIs(t, order.TransitionTo(StatusDelivered, now), ErrIncompleteFulfillment)
	assert.ErrorIs(t, order.TransitionTo(StatusSettled, now), ErrInvalidTransition)

	complete := newTestOrder(t, 3, 3)
	require.NoError(t, complete.TransitionTo(StatusDelivered, now))
	require.NotNil(t, complete.DeliveredAt)
	require.NoError(t, complete.TransitionTo(StatusSettled, now))
	require.NotNil(t, complete.SettledAt)
	for _, target := range []Status{StatusPlaced, StatusDelivered, StatusCancelled, StatusSettled} {
		assert.ErrorIs(t, complete.TransitionTo(target, now), ErrInvalidTransition)
	}

	cancelled := newTestOrder(t, 3, 1)
	require.NoError(t, cancelled.TransitionTo(StatusCancelled, now))
	assert.True(t, cancelled.Status.Terminal())
	assert.ErrorIs(t, cancelled.TransitionTo(StatusDelivered, now), ErrInvalidTransition)
}

func TestRecordPayment(t *testing.T) {
	order := newTestOrder(t, 2, 2)

	require.NoError(t, order.RecordPayment(decimal.NewFromInt(60)))
	assert.True(t, order.Balance().Equal(decimal.NewFromInt(40)))
	assert.ErrorIs(t, order.RecordPayment(decimal.NewFromInt(-1)), ErrNegativePayment)

	order.Status = StatusCancelled
	assert.ErrorIs(t, order.RecordPayment(decimal.NewFromInt(1)), ErrOrderNotEligible)
}

func TestClone_IsDeep(t *testing.T) {
	order := newTestOrder(t, 2, 1)
	clone := order.Clone()
	clone.Lines[0].Fulfilled = 2

	assert.Equal(t, 1, order.Lines[0].Fulfilled)
	assert.Empty(t, clone.Events())
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("LIQUIDADO")
	require.NoError(t, err)
	assert.Equal(t, StatusSettled, s)

	_, err = ParseStatus("SHIPPED")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}
