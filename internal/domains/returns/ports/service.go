package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/Apurer/uniform-orders-api/internal/domains/returns/application/types"
	"github.com/Apurer/uniform-orders-api/internal/domains/returns/domain"
)

// Service exposes the return and exchange use cases.
type Service interface {
	CreateReturn(ctx context.Context, input types.CreateReturnInput) (*domain.Return, error)
	GetReturn(ctx context.Context, id uuid.UUID) (*domain.Return, error)
	ListReturns(ctx context.Context, orderID uuid.UUID) ([]*domain.Return, error)
	ReconcileExchange(ctx context.Context, input types.ReconcileExchangeInput) (*domain.Return, error)
	ListOutstandingExchanges(ctx context.Context) ([]*domain.Return, error)
}
