package sequences

import (
	"errors"
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/Apurer/uniform-orders-api/internal/domains/orders/application/types"
	"github.com/Apurer/uniform-orders-api/internal/domains/orders/domain"
	orderactivities "github.com/Apurer/uniform-orders-api/internal/platform/temporal/activities/orders"
)

// RunOrderPlacementSequence reserves stock for a prepared order and persists it,
// releasing every grant when a later step fails.
func RunOrderPlacementSequence(ctx workflow.Context, input types.CreateOrderInput) (*domain.Order, error) {
	logger := workflow.GetLogger(ctx)
	prepareOptions := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    10 * time.Second,
			MaximumAttempts:    5,
		},
	}
	// A reservation is not idempotent, so it runs at most once.
	reserveOptions := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	}
	compensateOptions := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    10,
		},
	}

	var draft types.PlacementDraft
	if err := workflow.ExecuteActivity(workflow.WithActivityOptions(ctx, prepareOptions), orderactivities.PrepareOrderActivityName, input).Get(ctx, &draft); err != nil {
		logger.Error("order placement prepare failed", "error", err)
		return nil, err
	}
	if draft.Existing != nil {
		logger.Info("order placement replayed", "orderId", draft.Existing.ID)
		return draft.Existing, nil
	}

	grants := make([]types.LineGrant, 0, len(draft.Lines))
	compensate := func(cause error) error {
		// compensation must run even when the workflow was cancelled
		dctx, _ := workflow.NewDisconnectedContext(ctx)
		dctx = workflow.WithActivityOptions(dctx, compensateOptions)
		var errs []error
		for i := len(grants) - 1; i >= 0; i-- {
			if grants[i].Granted == 0 {
				continue
			}
			if err := workflow.ExecuteActivity(dctx, orderactivities.ReleaseLineActivityName, grants[i]).Get(dctx, nil); err != nil {
				logger.Error("order placement compensation failed", "orderId", draft.OrderID, "lineId", grants[i].LineID, "error", err)
				errs = append(errs, err)
			}
		}
		if len(errs) == 0 {
			return cause
		}
		// keep a single unwrap chain to cause so its application error type survives
		if cause == nil {
			return errors.Join(errs...)
		}
		return fmt.Errorf("%w (compensation failed: %v)", cause, errors.Join(errs...))
	}

	for _, reservation := range types.ReservationsFor(draft) {
		var grant types.LineGrant
		err := workflow.ExecuteActivity(workflow.WithActivityOptions(ctx, reserveOptions), orderactivities.ReserveLineActivityName, reservation).Get(ctx, &grant)
		if err != nil {
			logger.Error("order placement reserve failed", "orderId", draft.OrderID, "lineId", reservation.LineID, "error", err)
			return nil, compensate(err)
		}
		grants = append(grants, grant)
	}

	var result types.PersistOrderResult
	persist := types.PersistOrderInput{Draft: draft, Grants: grants}
	if err := workflow.ExecuteActivity(workflow.WithActivityOptions(ctx, prepareOptions), orderactivities.PersistOrderActivityName, persist).Get(ctx, &result); err != nil {
		logger.Error("order placement persist failed", "orderId", draft.OrderID, "error", err)
		return nil, compensate(err)
	}
	if result.Duplicate {
		logger.Info("order placement lost to a concurrent duplicate", "orderId", draft.OrderID)
		if err := compensate(nil); err != nil {
			return nil, err
		}
	}
	logger.Info("order placement sequence persisted", "orderId", result.Order.ID)
	return result.Order, nil
}
