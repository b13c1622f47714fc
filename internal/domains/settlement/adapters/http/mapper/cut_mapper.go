package mapper

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Apurer/uniform-orders-api/internal/domains/settlement/application/types"
	"github.com/Apurer/uniform-orders-api/internal/domains/settlement/domain"
)

// OpenCut is the body of POST /cuts. Both bounds are inclusive.
type OpenCut struct {
	PeriodStart time.Time `json:"periodStart" binding:"required"`
	PeriodEnd   time.Time `json:"periodEnd" binding:"required"`
}

// Attach is the body of POST /cuts/:cutId/orders.
type Attach struct {
	OrderID uuid.UUID `json:"orderId" binding:"required"`
}

type Cut struct {
	ID          string          `json:"id"`
	PeriodStart time.Time       `json:"periodStart"`
	PeriodEnd   time.Time       `json:"periodEnd"`
	OrderCount  int             `json:"orderCount"`
	Total       decimal.Decimal `json:"total"`
	Active      bool            `json:"active"`
	CreatedAt   time.Time       `json:"createdAt"`
	ClosedAt    *time.Time      `json:"closedAt,omitempty"`
}

type CutOrder struct {
	OrderID    string          `json:"orderId"`
	ClientKind string          `json:"clientKind"`
	ClientID   int64           `json:"clientId"`
	ClientName string          `json:"clientName,omitempty"`
	Total      decimal.Decimal `json:"total"`
	SettledAt  time.Time       `json:"settledAt"`
}

type CutDetail struct {
	Cut
	Orders []CutOrder `json:"orders"`
}

func ToOpenCutInput(body OpenCut) types.OpenCutInput {
	return types.OpenCutInput{PeriodStart: body.PeriodStart, PeriodEnd: body.PeriodEnd}
}

func ToAttachOrderInput(cutID uuid.UUID, body Attach) types.AttachOrderInput {
	return types.AttachOrderInput{CutID: cutID, OrderID: body.OrderID}
}

func FromDomainCut(cut *domain.CashCut) Cut {
	if cut == nil {
		return Cut{}
	}
	return Cut{
		ID:          cut.ID.String(),
		PeriodStart: cut.PeriodStart,
		PeriodEnd:   cut.PeriodEnd,
		OrderCount:  cut.OrderCount,
		Total:       cut.Total,
		Active:      cut.Active,
		CreatedAt:   cut.CreatedAt,
		ClosedAt:    cut.ClosedAt,
	}
}

func FromDomainCuts(cuts []*domain.CashCut) []Cut {
	out := make([]Cut, 0, len(cuts))
	for _, c := range cuts {
		out = append(out, FromDomainCut(c))
	}
	return out
}

func FromDomainCutDetail(detail *domain.CutDetail) CutDetail {
	if detail == nil {
		return CutDetail{Orders: []CutOrder{}}
	}
	orders := make([]CutOrder, 0, len(detail.Orders))
	for _, o := range detail.Orders {
		orders = append(orders, CutOrder{
			OrderID:    o.OrderID.String(),
			ClientKind: o.ClientKind,
			ClientID:   o.ClientID,
			ClientName: o.ClientName,
			Total:      o.Total,
			SettledAt:  o.SettledAt,
		})
	}
	return CutDetail{Cut: FromDomainCut(detail.Cut), Orders: orders}
}
