package ports

import (
	"context"
	"errors"

	"github.com/Apurer/uniform-orders-api/internal/domains/stock/domain"
)

var (
	ErrNotFound = errors.New("stock record not found")
	// ErrConcurrentUpdate reports a failed compare-and-swap; callers may retry.
	ErrConcurrentUpdate = errors.New("stock record modified concurrently")
)

// Ledger is the storage primitive behind the stock ledger. Every mutation is a
// single atomic operation on one record.
type Ledger interface {
	Get(ctx context.Context, key domain.Key) (*domain.StockRecord, error)
	// Upsert creates the record or updates prices and threshold of an existing one,
	// reactivating it. On-hand quantity is only taken from the input on creation.
	Upsert(ctx context.Context, record *domain.StockRecord) (*domain.StockRecord, error)
	Deactivate(ctx context.Context, key domain.Key) error
	List(ctx context.Context) ([]*domain.StockRecord, error)
	// CompareAndReserve decrements on-hand by quantity only if the stored version
	// still equals expectedVersion and enough units remain.
	CompareAndReserve(ctx context.Context, key domain.Key, expectedVersion int64, quantity int) (*domain.StockRecord, error)
	// Increment adds quantity to on-hand.
	Increment(ctx context.Context, key domain.Key, quantity int) (*domain.StockRecord, error)
}
