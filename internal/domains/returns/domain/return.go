package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	ordersdomain "github.com/Apurer/uniform-orders-api/internal/domains/orders/domain"
	"github.com/Apurer/uniform-orders-api/internal/shared/events"
)

var (
	ErrInvalidKind      = errors.New("return kind must be full, partial, size_exchange or garment_exchange")
	ErrEmptyReturn      = errors.New("return must contain at least one line")
	ErrInvalidQuantity  = errors.New("returned quantity must be greater than zero")
	ErrDuplicateLine    = errors.New("order line appears more than once in the return")
	ErrOverReturn       = errors.New("returned quantity exceeds what remains reversible on the line")
	ErrIncompleteReturn = errors.New("a full return must reverse every remaining unit")
	ErrInvalidRefund    = errors.New("refund must be between zero and the unrefunded order total")
	ErrTargetRequired   = errors.New("exchange lines require a target garment and size")
	ErrTargetForbidden  = errors.New("only exchanges may name a target")
	ErrInvalidTarget    = errors.New("exchange target does not match the return kind")
	ErrOrderNotEligible = errors.New("order must be delivered or settled to accept returns")
	ErrLineNotFound     = errors.New("return line not found")
	ErrNotExchange      = errors.New("return line is not an exchange")
	ErrOverFulfillment  = errors.New("fulfillment exceeds the outstanding exchange backorder")
)

// Kind tells how the returned units are handled.
type Kind string

const (
	KindFull            Kind = "full"
	KindPartial         Kind = "partial"
	KindSizeExchange    Kind = "size_exchange"
	KindGarmentExchange Kind = "garment_exchange"
)

func ParseKind(raw string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(raw))); k {
	case KindFull, KindPartial, KindSizeExchange, KindGarmentExchange:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, raw)
	}
}

// Exchange reports whether the kind creates new demand on a target garment.
func (k Kind) Exchange() bool {
	return k == KindSizeExchange || k == KindGarmentExchange
}

// Target is the replacement demand of an exchange line and the split it obtained.
type Target struct {
	GarmentID   int64
	SizeID      int64
	Quantity    int
	UnitPrice   decimal.Decimal
	Fulfilled   int
	Backordered int
}

// Line reverses units of one order line.
type Line struct {
	ID               uuid.UUID
	OrderLineID      uuid.UUID
	GarmentID        int64
	SizeID           int64
	QuantityReversed int
	UnitPrice        decimal.Decimal
	Target           *Target
}

// PriceDifference is what the client owes (positive) or is owed (negative) for
// an exchange line. Non-exchange lines have no difference.
func (l Line) PriceDifference() decimal.Decimal {
	if l.Target == nil {
		return decimal.Zero
	}
	returned := l.UnitPrice.Mul(decimal.NewFromInt(int64(l.QuantityReversed)))
	return l.Target.UnitPrice.Mul(decimal.NewFromInt(int64(l.Target.Quantity))).Sub(returned)
}

// Fulfillment moves exchange backorder into fulfilled after a restock.
type Fulfillment struct {
	ID           uuid.UUID
	ReturnLineID uuid.UUID
	Quantity     int
	CreatedAt    time.Time
}

// Return is an immutable record of reversed units. Only exchange fulfillments
// are appended to it later.
type Return struct {
	ID           uuid.UUID
	OrderID      uuid.UUID
	Kind         Kind
	Reason       string
	Refund       *decimal.Decimal
	Lines        []Line
	Fulfillments []Fulfillment
	CreatedAt    time.Time

	events []events.Event
}

// LineRequest is one line of a return before it is checked against the order.
type LineRequest struct {
	OrderLineID uuid.UUID
	Quantity    int
	Target      *TargetRequest
}

type TargetRequest struct {
	GarmentID int64
	SizeID    int64
	// Quantity defaults to the returned quantity.
	Quantity int
}

// NewReturn builds a return for order, checking line shape and exchange
// targets. Quantities against prior returns are checked by Guard.
func NewReturn(id uuid.UUID, order *ordersdomain.Order, kind Kind, requests []LineRequest, reason string, refund *decimal.Decimal, createdAt time.Time) (*Return, error) {
	if order == nil {
		return nil, errors.New("order is nil")
	}
	if order.Status != ordersdomain.StatusDelivered && order.Status != ordersdomain.StatusSettled {
		return nil, fmt.Errorf("%w: order %s is %s", ErrOrderNotEligible, order.ID, order.Status)
	}
	if _, err := ParseKind(string(kind)); err != nil {
		return nil, err
	}
	if len(requests) == 0 {
		return nil, ErrEmptyReturn
	}
	if refund != nil && refund.IsNegative() {
		return nil, ErrInvalidRefund
	}
	ret := &Return{
		ID:        id,
		OrderID:   order.ID,
		Kind:      kind,
		Reason:    strings.TrimSpace(reason),
		Refund:    refund,
		Lines:     make([]Line, 0, len(requests)),
		CreatedAt: createdAt,
	}
	seen := make(map[uuid.UUID]struct{}, len(requests))
	for _, req := range requests {
		if req.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
		if _, dup := seen[req.OrderLineID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateLine, req.OrderLineID)
		}
		seen[req.OrderLineID] = struct{}{}
		orderLine, err := order.Line(req.OrderLineID)
		if err != nil {
			return nil, err
		}
		line := Line{
			ID:               uuid.New(),
			OrderLineID:      orderLine.ID,
			GarmentID:        orderLine.GarmentID,
			SizeID:           orderLine.SizeID,
			QuantityReversed: req.Quantity,
			UnitPrice:        orderLine.UnitPrice,
		}
		target, err := buildTarget(kind, *orderLine, req)
		if err != nil {
			return nil, err
		}
		line.Target = target
		ret.Lines = append(ret.Lines, line)
	}
	return ret, nil
}

func buildTarget(kind Kind, orderLine ordersdomain.Line, req LineRequest) (*Target, error) {
	if !kind.Exchange() {
		if req.Target != nil {
			return nil, ErrTargetForbidden
		}
		return nil, nil
	}
	if req.Target == nil || req.Target.GarmentID <= 0 || req.Target.SizeID <= 0 {
		return nil, ErrTargetRequired
	}
	switch kind {
	case KindSizeExchange:
		if req.Target.GarmentID != orderLine.GarmentID || req.Target.SizeID == orderLine.SizeID {
			return nil, fmt.Errorf("%w: size exchange must keep garment %d and change size", ErrInvalidTarget, orderLine.GarmentID)
		}
	case KindGarmentExchange:
		if req.Target.GarmentID == orderLine.GarmentID {
			return nil, fmt.Errorf("%w: garment exchange must change garment %d", ErrInvalidTarget, orderLine.GarmentID)
		}
	}
	qty := req.Target.Quantity
	if qty == 0 {
		qty = req.Quantity
	}
	if qty < 0 {
		return nil, ErrInvalidQuantity
	}
	return &Target{GarmentID: req.Target.GarmentID, SizeID: req.Target.SizeID, Quantity: qty}, nil
}

// Guard checks ret against the order and every return already appended to it:
// per-line reversals stay within both requested and fulfilled units, a full
// return takes everything left, and refunds never exceed the order total.
func Guard(order *ordersdomain.Order, ret *Return, prior []*Return) error {
	reversed := map[uuid.UUID]int{}
	refunded := decimal.Zero
	for _, p := range prior {
		for _, l := range p.Lines {
			reversed[l.OrderLineID] += l.QuantityReversed
		}
		if p.Refund != nil {
			refunded = refunded.Add(*p.Refund)
		}
	}
	for _, l := range ret.Lines {
		orderLine, err := order.Line(l.OrderLineID)
		if err != nil {
			return err
		}
		limit := min(orderLine.Requested, orderLine.Fulfilled) - reversed[l.OrderLineID]
		if l.QuantityReversed > limit {
			return fmt.Errorf("%w: line %s has %d reversible, %d requested", ErrOverReturn, l.OrderLineID, max(limit, 0), l.QuantityReversed)
		}
	}
	if ret.Kind == KindFull {
		returning := make(map[uuid.UUID]int, len(ret.Lines))
		for _, l := range ret.Lines {
			returning[l.OrderLineID] = l.QuantityReversed
		}
		for _, orderLine := range order.Lines {
			remaining := min(orderLine.Requested, orderLine.Fulfilled) - reversed[orderLine.ID]
			if remaining > 0 && returning[orderLine.ID] != remaining {
				return fmt.Errorf("%w: line %s has %d remaining", ErrIncompleteReturn, orderLine.ID, remaining)
			}
		}
	}
	if ret.Refund != nil && ret.Refund.GreaterThan(order.Total.Sub(refunded)) {
		return fmt.Errorf("%w: %s requested, %s refundable", ErrInvalidRefund, ret.Refund.StringFixed(2), order.Total.Sub(refunded).StringFixed(2))
	}
	return nil
}

// ApplyTargetGrant records the units reserved for an exchange target.
func (r *Return) ApplyTargetGrant(lineID uuid.UUID, granted int) error {
	line, err := r.Line(lineID)
	if err != nil {
		return err
	}
	if line.Target == nil {
		return ErrNotExchange
	}
	if granted < 0 || granted > line.Target.Quantity {
		return fmt.Errorf("%w: granted %d of %d", ErrOverFulfillment, granted, line.Target.Quantity)
	}
	line.Target.Fulfilled, line.Target.Backordered = ordersdomain.Split(line.Target.Quantity, granted)
	return nil
}

// MarkCreated records the creation event once the return is complete.
func (r *Return) MarkCreated() {
	r.record(ReturnCreated{
		BaseEvent:     events.BaseEvent{Timestamp: r.CreatedAt},
		ReturnID:      r.ID,
		OrderID:       r.OrderID,
		Kind:          r.Kind,
		UnitsReversed: r.UnitsReversed(),
		Refund:        r.Refund,
	})
}

func (r *Return) Line(id uuid.UUID) (*Line, error) {
	for i := range r.Lines {
		if r.Lines[i].ID == id {
			return &r.Lines[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrLineNotFound, id)
}

func (r *Return) UnitsReversed() int {
	total := 0
	for _, l := range r.Lines {
		total += l.QuantityReversed
	}
	return total
}

// Outstanding is the exchange backorder of a line not yet fulfilled.
func (r *Return) Outstanding(lineID uuid.UUID) (int, error) {
	line, err := r.Line(lineID)
	if err != nil {
		return 0, err
	}
	if line.Target == nil {
		return 0, ErrNotExchange
	}
	done := 0
	for _, f := range r.Fulfillments {
		if f.ReturnLineID == lineID {
			done += f.Quantity
		}
	}
	return line.Target.Backordered - done, nil
}

// HasOutstanding reports whether any exchange line still waits for stock.
func (r *Return) HasOutstanding() bool {
	for _, line := range r.Lines {
		if line.Target == nil {
			continue
		}
		if outstanding, err := r.Outstanding(line.ID); err == nil && outstanding > 0 {
			return true
		}
	}
	return false
}

// Fulfill appends a fulfillment of quantity units for an exchange line.
func (r *Return) Fulfill(id, lineID uuid.UUID, quantity int, at time.Time) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	outstanding, err := r.Outstanding(lineID)
	if err != nil {
		return err
	}
	if quantity > outstanding {
		return fmt.Errorf("%w: %d outstanding, %d offered", ErrOverFulfillment, outstanding, quantity)
	}
	r.Fulfillments = append(r.Fulfillments, Fulfillment{ID: id, ReturnLineID: lineID, Quantity: quantity, CreatedAt: at})
	r.record(ExchangeFulfilled{
		BaseEvent:    events.BaseEvent{Timestamp: at},
		ReturnID:     r.ID,
		OrderID:      r.OrderID,
		ReturnLineID: lineID,
		Quantity:     quantity,
		Remaining:    outstanding - quantity,
	})
	return nil
}

// Clone returns a deep copy without pending events.
func (r *Return) Clone() *Return {
	c := *r
	c.events = nil
	if r.Refund != nil {
		refund := *r.Refund
		c.Refund = &refund
	}
	c.Lines = make([]Line, len(r.Lines))
	for i, l := range r.Lines {
		if l.Target != nil {
			target := *l.Target
			l.Target = &target
		}
		c.Lines[i] = l
	}
	c.Fulfillments = append([]Fulfillment(nil), r.Fulfillments...)
	return &c
}

func (r *Return) Events() []events.Event {
	return append([]events.Event(nil), r.events...)
}

func (r *Return) record(e events.Event) {
	r.events = append(r.events, e)
}
