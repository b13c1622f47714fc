package types

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	catalogdomain "github.com/Apurer/uniform-orders-api/internal/domains/catalog/domain"
	"github.com/Apurer/uniform-orders-api/internal/domains/orders/domain"
	stockdomain "github.com/Apurer/uniform-orders-api/internal/domains/stock/domain"
)

// CreateOrderLineInput is one requested garment/size.
type CreateOrderLineInput struct {
	GarmentID     int64
	SizeID        int64
	Quantity      int
	Specification string
}

// CreateOrderInput captures the payload for placing an order.
type CreateOrderInput struct {
	ClientKind     catalogdomain.ClientKind
	ClientID       int64
	PriceTier      stockdomain.PriceTier
	Lines          []CreateOrderLineInput
	Observations   string
	IdempotencyKey string
}

// ListOrdersInput filters ListOrders. An empty status lists everything.
type ListOrdersInput struct {
	Status string
}

// ReconcileInput applies a restock to one backordered line.
type ReconcileInput struct {
	OrderID      uuid.UUID
	LineID       uuid.UUID
	RestockedQty int
}

// ReconcilePendingInput distributes a restock of one stock record over waiting orders.
type ReconcilePendingInput struct {
	GarmentID    int64
	SizeID       int64
	RestockedQty int
}

// ReconciledLine reports the units one line received.
type ReconciledLine struct {
	OrderID uuid.UUID `json:"orderId"`
	LineID  uuid.UUID `json:"lineId"`
	Granted int       `json:"granted"`
}

// ReconcilePendingResult summarises a ReconcilePending run.
type ReconcilePendingResult struct {
	Lines     []ReconciledLine `json:"lines"`
	Granted   int              `json:"granted"`
	Remaining int              `json:"remaining"`
}

// AdvanceStateInput requests a state machine transition.
type AdvanceStateInput struct {
	OrderID uuid.UUID
	Target  domain.Status
	// Confirmed must be set to cancel an order.
	Confirmed bool
}

type RecordPaymentInput struct {
	OrderID uuid.UUID
	Amount  decimal.Decimal
}

// PlacementDraft is a validated and priced order whose lines are still fully backordered.
type PlacementDraft struct {
	OrderID      uuid.UUID
	Client       domain.ClientRef
	PriceTier    stockdomain.PriceTier
	Lines        []domain.Line
	Observations string
	CreatedAt    time.Time
	// Existing is set when the idempotency key already produced an order.
	Existing *domain.Order
}

// LineReservation asks the ledger for the units of one draft line.
type LineReservation struct {
	OrderID   uuid.UUID
	LineID    uuid.UUID
	GarmentID int64
	SizeID    int64
	Quantity  int
}

// LineGrant records what a reservation obtained so it can be applied or compensated.
type LineGrant struct {
	LineID    uuid.UUID
	GarmentID int64
	SizeID    int64
	Granted   int
}

// PersistOrderInput applies grants to a draft and stores the order.
type PersistOrderInput struct {
	Draft  PlacementDraft
	Grants []LineGrant
}

// PersistOrderResult carries the stored order. Duplicate is true when another
// placement with the same id won; the caller must then compensate its own grants.
type PersistOrderResult struct {
	Order     *domain.Order
	Duplicate bool
}

// ReservationsFor lists the reservations a draft needs, in line order.
func ReservationsFor(draft PlacementDraft) []LineReservation {
	out := make([]LineReservation, 0, len(draft.Lines))
	for _, line := range draft.Lines {
		out = append(out, LineReservation{
			OrderID:   draft.OrderID,
			LineID:    line.ID,
			GarmentID: line.GarmentID,
			SizeID:    line.SizeID,
			Quantity:  line.Requested,
		})
	}
	return out
}
