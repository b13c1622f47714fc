package types

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ExchangeTargetInput names the replacement garment and size of an exchange line.
type ExchangeTargetInput struct {
	GarmentID int64
	SizeID    int64
	Quantity  int
}

type CreateReturnLineInput struct {
	OrderLineID uuid.UUID
	Quantity    int
	Target      *ExchangeTargetInput
}

type CreateReturnInput struct {
	OrderID uuid.UUID
	Kind    string
	Lines   []CreateReturnLineInput
	Reason  string
	Refund  *decimal.Decimal
}

type ReconcileExchangeInput struct {
	ReturnID     uuid.UUID
	LineID       uuid.UUID
	RestockedQty int
}
