package mapper

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Apurer/uniform-orders-api/internal/domains/returns/application/types"
	"github.com/Apurer/uniform-orders-api/internal/domains/returns/domain"
)

type ExchangeTarget struct {
	GarmentID int64 `json:"garmentId"`
	SizeID    int64 `json:"sizeId"`
	Quantity  int   `json:"quantity,omitempty"`
}

type CreateReturnLine struct {
	OrderLineID uuid.UUID       `json:"orderLineId" binding:"required"`
	Quantity    int             `json:"quantity"`
	Target      *ExchangeTarget `json:"target,omitempty"`
}

// CreateReturn is the body of POST /orders/:orderId/returns.
type CreateReturn struct {
	Kind   string             `json:"kind" binding:"required"`
	Lines  []CreateReturnLine `json:"lines"`
	Reason string             `json:"reason,omitempty"`
	Refund *decimal.Decimal   `json:"refund,omitempty"`
}

type Target struct {
	GarmentID   int64           `json:"garmentId"`
	SizeID      int64           `json:"sizeId"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Fulfilled   int             `json:"fulfilled"`
	Backordered int             `json:"backordered"`
	Outstanding int             `json:"outstanding"`
}

type ReturnLine struct {
	ID               string          `json:"id"`
	OrderLineID      string          `json:"orderLineId"`
	GarmentID        int64           `json:"garmentId"`
	SizeID           int64           `json:"sizeId"`
	QuantityReversed int             `json:"quantityReversed"`
	UnitPrice        decimal.Decimal `json:"unitPrice"`
	Target           *Target         `json:"target,omitempty"`
	PriceDifference  decimal.Decimal `json:"priceDifference"`
}

type Return struct {
	ID        string           `json:"id"`
	OrderID   string           `json:"orderId"`
	Kind      string           `json:"kind"`
	Reason    string           `json:"reason,omitempty"`
	Refund    *decimal.Decimal `json:"refund,omitempty"`
	Lines     []ReturnLine     `json:"lines"`
	CreatedAt time.Time        `json:"createdAt"`
}

func ToCreateReturnInput(orderID uuid.UUID, body CreateReturn) types.CreateReturnInput {
	lines := make([]types.CreateReturnLineInput, 0, len(body.Lines))
	for _, l := range body.Lines {
		line := types.CreateReturnLineInput{OrderLineID: l.OrderLineID, Quantity: l.Quantity}
		if l.Target != nil {
			line.Target = &types.ExchangeTargetInput{GarmentID: l.Target.GarmentID, SizeID: l.Target.SizeID, Quantity: l.Target.Quantity}
		}
		lines = append(lines, line)
	}
	return types.CreateReturnInput{
		OrderID: orderID,
		Kind:    body.Kind,
		Lines:   lines,
		Reason:  body.Reason,
		Refund:  body.Refund,
	}
}

func FromDomainReturn(ret *domain.Return) Return {
	if ret == nil {
		return Return{}
	}
	lines := make([]ReturnLine, 0, len(ret.Lines))
	for _, l := range ret.Lines {
		line := ReturnLine{
			ID:               l.ID.String(),
			OrderLineID:      l.OrderLineID.String(),
			GarmentID:        l.GarmentID,
			SizeID:           l.SizeID,
			QuantityReversed: l.QuantityReversed,
			UnitPrice:        l.UnitPrice,
			PriceDifference:  l.PriceDifference(),
		}
		if t := l.Target; t != nil {
			outstanding, _ := ret.Outstanding(l.ID)
			line.Target = &Target{
				GarmentID:   t.GarmentID,
				SizeID:      t.SizeID,
				Quantity:    t.Quantity,
				UnitPrice:   t.UnitPrice,
				Fulfilled:   t.Fulfilled,
				Backordered: t.Backordered,
				Outstanding: outstanding,
			}
		}
		lines = append(lines, line)
	}
	return Return{
		ID:        ret.ID.String(),
		OrderID:   ret.OrderID.String(),
		Kind:      string(ret.Kind),
		Reason:    ret.Reason,
		Refund:    ret.Refund,
		Lines:     lines,
		CreatedAt: ret.CreatedAt,
	}
}

func FromDomainReturns(returns []*domain.Return) []Return {
	out := make([]Return, 0, len(returns))
	for _, r := range returns {
		out = append(out, FromDomainReturn(r))
	}
	return out
}
