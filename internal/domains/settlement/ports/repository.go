package ports

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/Apurer/uniform-orders-api/internal/domains/settlement/domain"
)

var (
	ErrNotFound = errors.New("cash cut not found")
	// ErrAssociationRace reports that a concurrent cut claimed one of the
	// candidate orders between selection and insert.
	ErrAssociationRace = errors.New("candidate order claimed by a concurrent cut")
)

// Repository stores cash-cuts and their order associations. An order is
// associated with at most one cut.
type Repository interface {
	// Open drops the candidates already associated with any cut, aggregates the
	// rest into cut, and stores both in one atomic step.
	Open(ctx context.Context, cut *domain.CashCut, candidates []domain.SettledOrder) (*domain.CutDetail, error)
	// Attach associates one order with an open cut.
	Attach(ctx context.Context, cutID uuid.UUID, order domain.SettledOrder) (*domain.CutDetail, error)
	Close(ctx context.Context, cutID uuid.UUID, at time.Time) (*domain.CashCut, error)
	Get(ctx context.Context, cutID uuid.UUID) (*domain.CutDetail, error)
	// List returns every cut, newest first.
	List(ctx context.Context) ([]*domain.CashCut, error)
}

// SettledOrders reads LIQUIDADO orders from the order store.
type SettledOrders interface {
	ListSettled(ctx context.Context, start, end time.Time) ([]domain.SettledOrder, error)
	// GetSettled fails with domain.ErrOrderNotEligible for orders that are not LIQUIDADO.
	GetSettled(ctx context.Context, orderID uuid.UUID) (*domain.SettledOrder, error)
}
