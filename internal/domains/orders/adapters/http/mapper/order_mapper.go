package mapper

import (
	"time"

	"github.com/shopspring/decimal"

	catalogdomain "github.com/Apurer/uniform-orders-api/internal/domains/catalog/domain"
	"github.com/Apurer/uniform-orders-api/internal/domains/orders/application/types"
	ordersdomain "github.com/Apurer/uniform-orders-api/internal/domains/orders/domain"
	stockdomain "github.com/Apurer/uniform-orders-api/internal/domains/stock/domain"
)

// CreateOrderLine is one requested garment in a create-order payload.
type CreateOrderLine struct {
	GarmentID     int64  `json:"garmentId" binding:"required"`
	SizeID        int64  `json:"sizeId" binding:"required"`
	Quantity      int    `json:"quantity"`
	Specification string `json:"specification,omitempty"`
}

// CreateOrder is the create-order request body.
type CreateOrder struct {
	ClientKind   string            `json:"clientKind" binding:"required"`
	ClientID     int64             `json:"clientId" binding:"required"`
	PriceTier    string            `json:"priceTier,omitempty"`
	Lines        []CreateOrderLine `json:"lines"`
	Observations string            `json:"observations,omitempty"`
}

// Transition is the body of POST /orders/:orderId/transitions.
type Transition struct {
	Target    string `json:"target" binding:"required"`
	Confirmed bool   `json:"confirmed"`
}

// Reconcile is the body of the reconcile endpoints.
type Reconcile struct {
	RestockedQty int `json:"restockedQty"`
}

// Payment is the body of POST /orders/:orderId/payment.
type Payment struct {
	Amount decimal.Decimal `json:"amount"`
}

// Client is the client snapshot stored with an order.
type Client struct {
	Kind string `json:"kind"`
	ID   int64  `json:"id"`
	Name string `json:"name,omitempty"`
}

// OrderLine is the transport representation of an order line.
type OrderLine struct {
	ID            string          `json:"id"`
	GarmentID     int64           `json:"garmentId"`
	SizeID        int64           `json:"sizeId"`
	Requested     int             `json:"requested"`
	Fulfilled     int             `json:"fulfilled"`
	Backordered   int             `json:"backordered"`
	UnitPrice     decimal.Decimal `json:"unitPrice"`
	LineTotal     decimal.Decimal `json:"lineTotal"`
	Specification string          `json:"specification,omitempty"`
}

// Order is the transport representation of an order.
type Order struct {
	ID              string           `json:"id"`
	Client          Client           `json:"client"`
	PriceTier       string           `json:"priceTier"`
	Status          string           `json:"status"`
	Lines           []OrderLine      `json:"lines"`
	Total           decimal.Decimal  `json:"total"`
	Observations    string           `json:"observations,omitempty"`
	PaymentReceived *decimal.Decimal `json:"paymentReceived,omitempty"`
	Balance         decimal.Decimal  `json:"balance"`
	CreatedAt       time.Time        `json:"createdAt"`
	DeliveredAt     *time.Time       `json:"deliveredAt,omitempty"`
	SettledAt       *time.Time       `json:"settledAt,omitempty"`
	CancelledAt     *time.Time       `json:"cancelledAt,omitempty"`
	Version         int64            `json:"version"`
}

// ToCreateOrderInput converts the request body and Idempotency-Key header into the use case input.
func ToCreateOrderInput(body CreateOrder, idempotencyKey string) types.CreateOrderInput {
	lines := make([]types.CreateOrderLineInput, 0, len(body.Lines))
	for _, l := range body.Lines {
		lines = append(lines, types.CreateOrderLineInput{
			GarmentID:     l.GarmentID,
			SizeID:        l.SizeID,
			Quantity:      l.Quantity,
			Specification: l.Specification,
		})
	}
	return types.CreateOrderInput{
		ClientKind:     catalogdomain.ClientKind(body.ClientKind),
		ClientID:       body.ClientID,
		PriceTier:      stockdomain.PriceTier(body.PriceTier),
		Lines:          lines,
		Observations:   body.Observations,
		IdempotencyKey: idempotencyKey,
	}
}

// FromDomainOrder converts a domain order to the transport representation.
func FromDomainOrder(order *ordersdomain.Order) Order {
	if order == nil {
		return Order{}
	}
	lines := make([]OrderLine, 0, len(order.Lines))
	for _, l := range order.Lines {
		lines = append(lines, OrderLine{
			ID:            l.ID.String(),
			GarmentID:     l.GarmentID,
			SizeID:        l.SizeID,
			Requested:     l.Requested,
			Fulfilled:     l.Fulfilled,
			Backordered:   l.Backordered,
			UnitPrice:     l.UnitPrice,
			LineTotal:     l.LineTotal,
			Specification: l.Specification,
		})
	}
	return Order{
		ID: order.ID.String(),
		Client: Client{
			Kind: string(order.Client.Kind),
			ID:   order.Client.ID,
			Name: order.Client.Name,
		},
		PriceTier:       string(order.PriceTier),
		Status:          string(order.Status),
		Lines:           lines,
		Total:           order.Total,
		Observations:    order.Observations,
		PaymentReceived: order.PaymentReceived,
		Balance:         order.Balance(),
		CreatedAt:       order.CreatedAt,
		DeliveredAt:     order.DeliveredAt,
		SettledAt:       order.SettledAt,
		CancelledAt:     order.CancelledAt,
		Version:         order.Version,
	}
}

func FromDomainOrders(orders []*ordersdomain.Order) []Order {
	out := make([]Order, 0, len(orders))
	for _, o := range orders {
		out = append(out, FromDomainOrder(o))
	}
	return out
}
