package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Apurer/uniform-orders-api/internal/shared/events"
)

type CutOpened struct {
	events.BaseEvent
	CutID      uuid.UUID       `json:"cutId"`
	OrderCount int             `json:"orderCount"`
	Total      decimal.Decimal `json:"total"`
}

func (e CutOpened) EventName() string   { return "settlement.cut.opened" }
func (e CutOpened) AggregateID() string { return e.CutID.String() }

type CutClosed struct {
	events.BaseEvent
	CutID      uuid.UUID       `json:"cutId"`
	OrderCount int             `json:"orderCount"`
	Total      decimal.Decimal `json:"total"`
}

func (e CutClosed) EventName() string   { return "settlement.cut.closed" }
func (e CutClosed) AggregateID() string { return e.CutID.String() }
