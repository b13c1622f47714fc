package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	catalogdomain "github.com/Apurer/uniform-orders-api/internal/domains/catalog/domain"
	stockdomain "github.com/Apurer/uniform-orders-api/internal/domains/stock/domain"
	"github.com/Apurer/uniform-orders-api/internal/shared/events"
)

var (
	ErrEmptyOrder            = errors.New("order must contain at least one line")
	ErrInvalidClient         = errors.New("order requires a valid client reference")
	ErrInvalidQuantity       = errors.New("quantity must be greater than zero")
	ErrInvalidReference      = errors.New("garment and size ids must be greater than zero")
	ErrNegativePrice         = errors.New("unit price must not be negative")
	ErrInvalidStatus         = errors.New("order status is invalid")
	ErrInvalidTransition     = errors.New("order status transition is not allowed")
	ErrIncompleteFulfillment = errors.New("order still has backordered lines")
	ErrConfirmationRequired  = errors.New("cancellation must be confirmed")
	ErrOrderNotEligible      = errors.New("order is not eligible for this operation")
	ErrLineNotFound          = errors.New("order line not found")
	ErrInvalidGrant          = errors.New("granted quantity exceeds the backordered quantity")
	ErrNegativePayment       = errors.New("payment amount must not be negative")
	ErrGarmentUnavailable    = errors.New("garment is not available for sale")
)

// ClientRef snapshots the client an order was placed for.
type ClientRef struct {
	Kind catalogdomain.ClientKind
	ID   int64
	Name string
}

// Validate checks the reference points at a known client kind and id.
func (c ClientRef) Validate() error {
	if !c.Kind.Valid() || c.ID <= 0 {
		return ErrInvalidClient
	}
	return nil
}

// Line is one garment/size of an order. Requested always equals Fulfilled plus Backordered.
type Line struct {
	ID            uuid.UUID
	GarmentID     int64
	SizeID        int64
	Requested     int
	Fulfilled     int
	Backordered   int
	UnitPrice     decimal.Decimal
	LineTotal     decimal.Decimal
	Specification string
}

// NewLine builds a fully backordered line; grants are applied afterwards.
func NewLine(garmentID, sizeID int64, requested int, unitPrice decimal.Decimal, specification string) (Line, error) {
	if garmentID <= 0 || sizeID <= 0 {
		return Line{}, ErrInvalidReference
	}
	if requested <= 0 {
		return Line{}, ErrInvalidQuantity
	}
	if unitPrice.IsNegative() {
		return Line{}, ErrNegativePrice
	}
	return Line{
		ID:            uuid.New(),
		GarmentID:     garmentID,
		SizeID:        sizeID,
		Requested:     requested,
		Backordered:   requested,
		UnitPrice:     unitPrice,
		LineTotal:     unitPrice.Mul(decimal.NewFromInt(int64(requested))),
		Specification: strings.TrimSpace(specification),
	}, nil
}

// StockKey is the stock record the line draws from.
func (l Line) StockKey() stockdomain.Key {
	return stockdomain.Key{GarmentID: l.GarmentID, SizeID: l.SizeID}
}

// Grant moves granted units from backordered to fulfilled.
func (l *Line) Grant(granted int) error {
	if granted < 0 || granted > l.Backordered {
		return fmt.Errorf("%w: granted %d, backordered %d", ErrInvalidGrant, granted, l.Backordered)
	}
	l.Fulfilled += granted
	l.Backordered -= granted
	return nil
}

// Order is the aggregate owned by the order service for its whole lifecycle.
type Order struct {
	ID              uuid.UUID
	Client          ClientRef
	PriceTier       stockdomain.PriceTier
	Status          Status
	Lines           []Line
	Total           decimal.Decimal
	Observations    string
	PaymentReceived *decimal.Decimal
	CreatedAt       time.Time
	DeliveredAt     *time.Time
	SettledAt       *time.Time
	CancelledAt     *time.Time
	Version         int64

	events []events.Event
}

// NewOrder validates and constructs an order in PEDIDO. The total is charged on
// requested quantities regardless of the fulfillment split.
func NewOrder(id uuid.UUID, client ClientRef, tier stockdomain.PriceTier, lines []Line, observations string, createdAt time.Time) (*Order, error) {
	if err := client.Validate(); err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, ErrEmptyOrder
	}
	if !stockdomain.ValidTier(tier) {
		return nil, stockdomain.ErrInvalidPriceTier
	}
	if tier == "" {
		tier = stockdomain.TierRetail
	}
	total := decimal.Zero
	for _, line := range lines {
		if line.Requested <= 0 {
			return nil, ErrInvalidQuantity
		}
		if line.Fulfilled+line.Backordered != line.Requested {
			return nil, fmt.Errorf("%w: line %s is unbalanced", ErrInvalidGrant, line.ID)
		}
		total = total.Add(line.LineTotal)
	}
	order := &Order{
		ID:           id,
		Client:       client,
		PriceTier:    tier,
		Status:       StatusPlaced,
		Lines:        append([]Line(nil), lines...),
		Total:        total,
		Observations: strings.TrimSpace(observations),
		CreatedAt:    createdAt,
	}
	order.record(OrderPlaced{
		BaseEvent:        events.BaseEvent{Timestamp: createdAt},
		OrderID:          id,
		ClientKind:       string(client.Kind),
		ClientID:         client.ID,
		Total:            total,
		BackorderedUnits: order.BackorderedUnits(),
	})
	return order, nil
}

// Line returns the line with the given id.
func (o *Order) Line(id uuid.UUID) (*Line, error) {
	for i := range o.Lines {
		if o.Lines[i].ID == id {
			return &o.Lines[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrLineNotFound, id)
}

// BackorderedUnits sums the outstanding backorder over all lines.
func (o *Order) BackorderedUnits() int {
	total := 0
	for _, line := range o.Lines {
		total += line.Backordered
	}
	return total
}

// ReconcileLine applies units granted after a restock to a backordered line.
func (o *Order) ReconcileLine(lineID uuid.UUID, granted int, at time.Time) error {
	if o.Status != StatusPlaced {
		return fmt.Errorf("%w: status %s", ErrOrderNotEligible, o.Status)
	}
	line, err := o.Line(lineID)
	if err != nil {
		return err
	}
	if err := line.Grant(granted); err != nil {
		return err
	}
	o.record(BackorderReconciled{
		BaseEvent: events.BaseEvent{Timestamp: at},
		OrderID:   o.ID,
		LineID:    lineID,
		Granted:   granted,
		Remaining: line.Backordered,
	})
	return nil
}

// TransitionTo enforces the transition table and the delivery precondition.
func (o *Order) TransitionTo(target Status, at time.Time) error {
	if !CanTransition(o.Status, target) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, target)
	}
	if target == StatusDelivered {
		if units := o.BackorderedUnits(); units > 0 {
			return fmt.Errorf("%w: %d units outstanding", ErrIncompleteFulfillment, units)
		}
	}
	stamp := at
	switch target {
	case StatusDelivered:
		o.DeliveredAt = &stamp
	case StatusSettled:
		o.SettledAt = &stamp
	case StatusCancelled:
		o.CancelledAt = &stamp
	}
	from := o.Status
	o.Status = target
	o.record(OrderStatusChanged{
		BaseEvent: events.BaseEvent{Timestamp: at},
		OrderID:   o.ID,
		From:      from,
		To:        target,
	})
	return nil
}

// RecordPayment stores the amount received from the client.
func (o *Order) RecordPayment(amount decimal.Decimal) error {
	if o.Status == StatusCancelled {
		return fmt.Errorf("%w: status %s", ErrOrderNotEligible, o.Status)
	}
	if amount.IsNegative() {
		return ErrNegativePayment
	}
	o.PaymentReceived = &amount
	return nil
}

// Balance is the amount still owed by the client.
func (o *Order) Balance() decimal.Decimal {
	if o.PaymentReceived == nil {
		return o.Total
	}
	return o.Total.Sub(*o.PaymentReceived)
}

// Clone returns a deep copy without pending events.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	clone.Lines = append([]Line(nil), o.Lines...)
	clone.PaymentReceived = cloneDecimal(o.PaymentReceived)
	clone.DeliveredAt = cloneTime(o.DeliveredAt)
	clone.SettledAt = cloneTime(o.SettledAt)
	clone.CancelledAt = cloneTime(o.CancelledAt)
	clone.events = nil
	return &clone
}

// Events returns the events raised since the last ClearEvents.
func (o *Order) Events() []events.Event {
	return append([]events.Event(nil), o.events...)
}

func (o *Order) ClearEvents() {
	o.events = nil
}

func (o *Order) record(e events.Event) {
	o.events = append(o.events, e)
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneDecimal(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	v := *d
	return &v
}
