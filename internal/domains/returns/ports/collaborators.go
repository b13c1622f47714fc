package ports

import (
	"context"

	"github.com/google/uuid"

	ordersdomain "github.com/Apurer/uniform-orders-api/internal/domains/orders/domain"
	stockdomain "github.com/Apurer/uniform-orders-api/internal/domains/stock/domain"
)

// Orders is the read-only view of orders returns need.
type Orders interface {
	GetOrder(ctx context.Context, id uuid.UUID) (*ordersdomain.Order, error)
}

// Stock is the part of the stock ledger returns use.
type Stock interface {
	Read(ctx context.Context, garmentID, sizeID int64) (*stockdomain.StockRecord, error)
	TryReserve(ctx context.Context, garmentID, sizeID int64, quantity int) (int, error)
	Release(ctx context.Context, garmentID, sizeID int64, quantity int) error
}
