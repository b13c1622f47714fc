package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/Apurer/uniform-orders-api/internal/domains/settlement/application/types"
	"github.com/Apurer/uniform-orders-api/internal/domains/settlement/domain"
)

// Service exposes the cash-cut use cases.
type Service interface {
	OpenCut(ctx context.Context, input types.OpenCutInput) (*domain.CutDetail, error)
	CloseCut(ctx context.Context, cutID uuid.UUID) (*domain.CashCut, error)
	GetCutDetail(ctx context.Context, cutID uuid.UUID) (*domain.CutDetail, error)
	AttachOrder(ctx context.Context, input types.AttachOrderInput) (*domain.CutDetail, error)
	ListCuts(ctx context.Context) ([]*domain.CashCut, error)
}
