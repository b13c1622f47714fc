package ports

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/Apurer/uniform-orders-api/internal/domains/stock/domain"
)

// DefineInput creates or re-prices a garment/size combination.
type DefineInput struct {
	GarmentID        int64
	SizeID           int64
	WholesalePrice   decimal.Decimal
	RetailPrice      decimal.Decimal
	InitialOnHand    int
	ReorderThreshold int
}

// Service exposes the stock ledger use cases.
type Service interface {
	Read(ctx context.Context, garmentID, sizeID int64) (*domain.StockRecord, error)
	TryReserve(ctx context.Context, garmentID, sizeID int64, quantity int) (int, error)
	Restock(ctx context.Context, garmentID, sizeID int64, quantity int) (int, error)
	Release(ctx context.Context, garmentID, sizeID int64, quantity int) error
	Define(ctx context.Context, input DefineInput) (*domain.StockRecord, error)
	Deactivate(ctx context.Context, garmentID, sizeID int64) error
	ListBelowThreshold(ctx context.Context) ([]*domain.StockRecord, error)
}
