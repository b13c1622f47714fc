package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/Apurer/uniform-orders-api/internal/domains/orders/application/types"
	"github.com/Apurer/uniform-orders-api/internal/domains/orders/domain"
)

// Service exposes the order use cases.
type Service interface {
	CreateOrder(ctx context.Context, input types.CreateOrderInput) (*domain.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListOrders(ctx context.Context, input types.ListOrdersInput) ([]*domain.Order, error)
	ReconcileBackorder(ctx context.Context, input types.ReconcileInput) (*domain.Order, error)
	ReconcilePending(ctx context.Context, input types.ReconcilePendingInput) (*types.ReconcilePendingResult, error)
	AdvanceState(ctx context.Context, input types.AdvanceStateInput) (*domain.Order, error)
	Settle(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	RecordPayment(ctx context.Context, input types.RecordPaymentInput) (*domain.Order, error)
}
