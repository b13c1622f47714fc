package ports

import (
	"context"

	stockdomain "github.com/Apurer/uniform-orders-api/internal/domains/stock/domain"
)

// Stock is the part of the stock ledger the order service depends on.
type Stock interface {
	Read(ctx context.Context, garmentID, sizeID int64) (*stockdomain.StockRecord, error)
	TryReserve(ctx context.Context, garmentID, sizeID int64, quantity int) (int, error)
	Release(ctx context.Context, garmentID, sizeID int64, quantity int) error
}
