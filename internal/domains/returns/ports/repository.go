package ports

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/Apurer/uniform-orders-api/internal/domains/returns/domain"
)

var ErrNotFound = errors.New("return not found")

// Guard is evaluated against every return already stored for the order, inside
// the same atomic step that appends the new one.
type Guard func(prior []*domain.Return) error

// Repository stores returns as an append-only log per order.
type Repository interface {
	Append(ctx context.Context, ret *domain.Return, guard Guard) (*domain.Return, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Return, error)
	// ListByOrder returns the returns of one order, oldest first.
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*domain.Return, error)
	// ListOutstanding returns the returns with exchange backorder left, oldest first.
	ListOutstanding(ctx context.Context) ([]*domain.Return, error)
	// AppendFulfillment re-checks the outstanding exchange backorder atomically
	// with the insert and fails with domain.ErrOverFulfillment when it no longer fits.
	AppendFulfillment(ctx context.Context, returnID uuid.UUID, fulfillment domain.Fulfillment) (*domain.Return, error)
}
