package ports

import (
	"context"

	"github.com/Apurer/uniform-orders-api/internal/domains/orders/application/types"
	"github.com/Apurer/uniform-orders-api/internal/domains/orders/domain"
)

// PlacementOrchestrator runs the order placement saga, inline or on a durable engine.
type PlacementOrchestrator interface {
	PlaceOrder(ctx context.Context, input types.CreateOrderInput) (*domain.Order, error)
}

// PlacementSteps are the individual saga steps. Each step is safe to retry on its own.
type PlacementSteps interface {
	// PrepareOrder validates and prices the request and claims its idempotency key.
	// No stock is touched.
	PrepareOrder(ctx context.Context, input types.CreateOrderInput) (*types.PlacementDraft, error)
	ReserveLine(ctx context.Context, input types.LineReservation) (*types.LineGrant, error)
	// ReleaseLine compensates a grant. A zero grant is a no-op.
	ReleaseLine(ctx context.Context, grant types.LineGrant) error
	PersistOrder(ctx context.Context, input types.PersistOrderInput) (*types.PersistOrderResult, error)
}
