package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Apurer/uniform-orders-api/internal/shared/events"
)

var (
	ErrInvalidRange      = errors.New("period end must not be before period start")
	ErrCutClosed         = errors.New("cash cut is closed")
	ErrAlreadyAssociated = errors.New("order already belongs to a cash cut")
	ErrOrderNotEligible  = errors.New("only settled orders can be added to a cash cut")
	ErrOutsidePeriod     = errors.New("order was not settled within the cash cut period")
)

// SettledOrder is the snapshot of a LIQUIDADO order kept on a cut.
type SettledOrder struct {
	OrderID    uuid.UUID
	ClientKind string
	ClientID   int64
	ClientName string
	Total      decimal.Decimal
	SettledAt  time.Time
}

// CashCut aggregates settled orders over an inclusive period. Once closed it is
// never recomputed or reopened; orders settled later belong to a later cut.
type CashCut struct {
	ID          uuid.UUID
	PeriodStart time.Time
	PeriodEnd   time.Time
	OrderCount  int
	Total       decimal.Decimal
	Active      bool
	CreatedAt   time.Time
	ClosedAt    *time.Time

	events []events.Event
}

// CutDetail is a cut with the orders associated to it.
type CutDetail struct {
	Cut    *CashCut
	Orders []SettledOrder
}

func NewCut(id uuid.UUID, start, end, createdAt time.Time) (*CashCut, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("%w: %s > %s", ErrInvalidRange, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return &CashCut{
		ID:          id,
		PeriodStart: start,
		PeriodEnd:   end,
		Total:       decimal.Zero,
		Active:      true,
		CreatedAt:   createdAt,
	}, nil
}

// Covers reports whether settledAt falls inside the inclusive period.
func (c *CashCut) Covers(settledAt time.Time) bool {
	return !settledAt.Before(c.PeriodStart) && !settledAt.After(c.PeriodEnd)
}

// Include adds orders to the aggregate. Callers pass only orders not yet
// associated with any cut.
func (c *CashCut) Include(orders ...SettledOrder) error {
	if !c.Active {
		return fmt.Errorf("%w: %s", ErrCutClosed, c.ID)
	}
	for _, o := range orders {
		c.OrderCount++
		c.Total = c.Total.Add(o.Total)
	}
	return nil
}

// Attach adds one order settled inside the cut's period to an active cut.
func (c *CashCut) Attach(order SettledOrder) error {
	if !c.Active {
		return fmt.Errorf("%w: %s", ErrCutClosed, c.ID)
	}
	if !c.Covers(order.SettledAt) {
		return fmt.Errorf("%w: order %s settled %s", ErrOutsidePeriod, order.OrderID, order.SettledAt.Format(time.RFC3339))
	}
	return c.Include(order)
}

// MarkOpened records the opening event after the cut is stored.
func (c *CashCut) MarkOpened() {
	c.record(CutOpened{
		BaseEvent:  events.BaseEvent{Timestamp: c.CreatedAt},
		CutID:      c.ID,
		OrderCount: c.OrderCount,
		Total:      c.Total,
	})
}

// Close deactivates the cut. It is irreversible.
func (c *CashCut) Close(at time.Time) error {
	if !c.Active {
		return fmt.Errorf("%w: %s", ErrCutClosed, c.ID)
	}
	c.Active = false
	c.ClosedAt = &at
	c.record(CutClosed{
		BaseEvent:  events.BaseEvent{Timestamp: at},
		CutID:      c.ID,
		OrderCount: c.OrderCount,
		Total:      c.Total,
	})
	return nil
}

func (c *CashCut) Clone() *CashCut {
	clone := *c
	clone.events = nil
	if c.ClosedAt != nil {
		t := *c.ClosedAt
		clone.ClosedAt = &t
	}
	return &clone
}

func (c *CashCut) Events() []events.Event {
	return append([]events.Event(nil), c.events...)
}

func (c *CashCut) record(e events.Event) {
	c.events = append(c.events, e)
}
