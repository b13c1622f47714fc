package ports

import (
	"context"
	"errors"

	"github.com/Apurer/uniform-orders-api/internal/domains/catalog/domain"
)

var ErrNotFound = errors.New("catalog record not found")

// Catalog exposes the garment and size reference data owned by the catalog collaborator.
type Catalog interface {
	GetGarment(ctx context.Context, id int64) (*domain.Garment, error)
	GetSize(ctx context.Context, id int64) (*domain.Size, error)
}

// ClientDirectory resolves enrolled students and walk-in clients.
type ClientDirectory interface {
	GetClient(ctx context.Context, kind domain.ClientKind, id int64) (*domain.Client, error)
}
