package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Apurer/uniform-orders-api/internal/shared/events"
)

// OrderPlaced is raised when an order is persisted in PEDIDO.
type OrderPlaced struct {
	events.BaseEvent
	OrderID          uuid.UUID       `json:"orderId"`
	ClientKind       string          `json:"clientKind"`
	ClientID         int64           `json:"clientId"`
	Total            decimal.Decimal `json:"total"`
	BackorderedUnits int             `json:"backorderedUnits"`
}

func (e OrderPlaced) EventName() string   { return "orders.order.placed" }
func (e OrderPlaced) AggregateID() string { return e.OrderID.String() }

// BackorderReconciled is raised when restocked units are granted to a line.
type BackorderReconciled struct {
	events.BaseEvent
	OrderID   uuid.UUID `json:"orderId"`
	LineID    uuid.UUID `json:"lineId"`
	Granted   int       `json:"granted"`
	Remaining int       `json:"remaining"`
}

func (e BackorderReconciled) EventName() string   { return "orders.order.backorder_reconciled" }
func (e BackorderReconciled) AggregateID() string { return e.OrderID.String() }

// OrderStatusChanged is raised on every state machine transition.
type OrderStatusChanged struct {
	events.BaseEvent
	OrderID uuid.UUID `json:"orderId"`
	From    Status    `json:"from"`
	To      Status    `json:"to"`
}

func (e OrderStatusChanged) EventName() string   { return "orders.order.status_changed" }
func (e OrderStatusChanged) AggregateID() string { return e.OrderID.String() }
