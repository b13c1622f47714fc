package orders

import (
	"context"
	"errors"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	ordersapp "github.com/Apurer/uniform-orders-api/internal/domains/orders/application"
	"github.com/Apurer/uniform-orders-api/internal/domains/orders/application/types"
	ordersports "github.com/Apurer/uniform-orders-api/internal/domains/orders/ports"
)

const (
	// PrepareOrderActivityName validates and prices a placement and claims its idempotency key.
	PrepareOrderActivityName = "orders.activities.PrepareOrder"
	// ReserveLineActivityName reserves the units of one line.
	ReserveLineActivityName = "orders.activities.ReserveLine"
	// ReleaseLineActivityName compensates a reservation.
	ReleaseLineActivityName = "orders.activities.ReleaseLine"
	// PersistOrderActivityName stores the placed order.
	PersistOrderActivityName = "orders.activities.PersistOrder"
)

var errNotInitialized = errors.New("order placement activities not initialized")

// Activities exposes the placement saga steps to Temporal.
type Activities struct {
	steps ordersports.PlacementSteps
}

func NewActivities(steps ordersports.PlacementSteps) *Activities {
	return &Activities{steps: steps}
}

func (a *Activities) PrepareOrder(ctx context.Context, input types.CreateOrderInput) (*types.PlacementDraft, error) {
	logger := activity.GetLogger(ctx)
	if a == nil || a.steps == nil {
		return nil, errNotInitialized
	}
	logger.Info("PrepareOrder activity started", "clientKind", input.ClientKind, "clientId", input.ClientID, "lines", len(input.Lines))
	draft, err := a.steps.PrepareOrder(ctx, input)
	if err != nil {
		logger.Error("PrepareOrder activity failed", "clientId", input.ClientID, "error", err)
		return nil, classify(err)
	}
	logger.Info("PrepareOrder activity completed", "orderId", draft.OrderID, "replay", draft.Existing != nil)
	return draft, nil
}

func (a *Activities) ReserveLine(ctx context.Context, input types.LineReservation) (*types.LineGrant, error) {
	logger := activity.GetLogger(ctx)
	if a == nil || a.steps == nil {
		return nil, errNotInitialized
	}
	grant, err := a.steps.ReserveLine(ctx, input)
	if err != nil {
		logger.Error("ReserveLine activity failed", "orderId", input.OrderID, "lineId", input.LineID, "error", err)
		return nil, classify(err)
	}
	logger.Info("ReserveLine activity completed", "orderId", input.OrderID, "lineId", input.LineID,
		"requested", input.Quantity, "granted", grant.Granted)
	return grant, nil
}

func (a *Activities) ReleaseLine(ctx context.Context, grant types.LineGrant) error {
	logger := activity.GetLogger(ctx)
	if a == nil || a.steps == nil {
		return errNotInitialized
	}
	if err := a.steps.ReleaseLine(ctx, grant); err != nil {
		logger.Error("ReleaseLine activity failed", "lineId", grant.LineID, "units", grant.Granted, "error", err)
		return err
	}
	logger.Info("ReleaseLine activity completed", "lineId", grant.LineID, "units", grant.Granted)
	return nil
}

func (a *Activities) PersistOrder(ctx context.Context, input types.PersistOrderInput) (*types.PersistOrderResult, error) {
	logger := activity.GetLogger(ctx)
	if a == nil || a.steps == nil {
		return nil, errNotInitialized
	}
	result, err := a.steps.PersistOrder(ctx, input)
	if err != nil {
		logger.Error("PersistOrder activity failed", "orderId", input.Draft.OrderID, "error", err)
		return nil, classify(err)
	}
	logger.Info("PersistOrder activity completed", "orderId", result.Order.ID, "duplicate", result.Duplicate)
	return result, nil
}

// classify turns business errors into non-retryable application errors typed
// with their code, so the caller can rebuild them after the workflow fails.
func classify(err error) error {
	if code := ordersapp.ErrorCode(err); code != "" {
		return temporal.NewNonRetryableApplicationError(err.Error(), code, err)
	}
	return err
}
