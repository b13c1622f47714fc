package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Apurer/uniform-orders-api/internal/shared/events"
)

// ReturnCreated is raised once a return is appended and its units released.
type ReturnCreated struct {
	events.BaseEvent
	ReturnID      uuid.UUID        `json:"returnId"`
	OrderID       uuid.UUID        `json:"orderId"`
	Kind          Kind             `json:"kind"`
	UnitsReversed int              `json:"unitsReversed"`
	Refund        *decimal.Decimal `json:"refund,omitempty"`
}

func (e ReturnCreated) EventName() string   { return "returns.return.created" }
func (e ReturnCreated) AggregateID() string { return e.OrderID.String() }

// ExchangeFulfilled is raised when restocked units reach an exchange backorder.
type ExchangeFulfilled struct {
	events.BaseEvent
	ReturnID     uuid.UUID `json:"returnId"`
	OrderID      uuid.UUID `json:"orderId"`
	ReturnLineID uuid.UUID `json:"returnLineId"`
	Quantity     int       `json:"quantity"`
	Remaining    int       `json:"remaining"`
}

func (e ExchangeFulfilled) EventName() string   { return "returns.exchange.fulfilled" }
func (e ExchangeFulfilled) AggregateID() string { return e.OrderID.String() }
