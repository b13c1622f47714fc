package ports

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/Apurer/uniform-orders-api/internal/domains/orders/domain"
	stockdomain "github.com/Apurer/uniform-orders-api/internal/domains/stock/domain"
)

var (
	ErrNotFound = errors.New("order not found")
	// ErrConcurrentUpdate reports that the stored version moved since the order was read.
	ErrConcurrentUpdate = errors.New("order modified concurrently")
	ErrAlreadyExists    = errors.New("order already exists")
)

// OrderFilter narrows List. A nil status lists every order.
type OrderFilter struct {
	Status *domain.Status
}

// Repository abstracts order persistence.
type Repository interface {
	Create(ctx context.Context, order *domain.Order) (*domain.Order, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	// Update persists the order only when the stored version equals order.Version
	// and returns it with the version incremented.
	Update(ctx context.Context, order *domain.Order) (*domain.Order, error)
	List(ctx context.Context, filter OrderFilter) ([]*domain.Order, error)
	// ListBackordered returns PEDIDO orders with backorder on the given stock record, oldest first.
	ListBackordered(ctx context.Context, key stockdomain.Key) ([]*domain.Order, error)
	// ListSettled returns LIQUIDADO orders whose settledAt falls in [start, end].
	ListSettled(ctx context.Context, start, end time.Time) ([]*domain.Order, error)
}
