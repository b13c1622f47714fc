package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PriceTier selects which of the two prices of a stock record applies.
type PriceTier string

const (
	TierRetail    PriceTier = "retail"
	TierWholesale PriceTier = "wholesale"
)

var (
	ErrInvalidQuantity   = errors.New("quantity must be greater than zero")
	ErrInvalidGarment    = errors.New("garment id must be greater than zero")
	ErrInvalidSize       = errors.New("size id must be greater than zero")
	ErrNegativePrice     = errors.New("prices must not be negative")
	ErrNegativeStock     = errors.New("quantity on hand must not be negative")
	ErrNegativeThreshold = errors.New("reorder threshold must not be negative")
	ErrInvalidPriceTier  = errors.New("price tier must be retail or wholesale")
	ErrInactive          = errors.New("stock record is inactive")
)

// Key identifies a stock record by garment and size.
type Key struct {
	GarmentID int64
	SizeID    int64
}

// Validate checks both references are set.
func (k Key) Validate() error {
	if k.GarmentID <= 0 {
		return ErrInvalidGarment
	}
	if k.SizeID <= 0 {
		return ErrInvalidSize
	}
	return nil
}

func (k Key) String() string {
	return fmt.Sprintf("%d/%d", k.GarmentID, k.SizeID)
}

// StockRecord is the price and quantity on hand of one garment in one size.
type StockRecord struct {
	ID               uuid.UUID
	GarmentID        int64
	SizeID           int64
	WholesalePrice   decimal.Decimal
	RetailPrice      decimal.Decimal
	OnHand           int
	ReorderThreshold int
	Active           bool
	Version          int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewStockRecord validates and constructs an active stock record.
func NewStockRecord(key Key, wholesale, retail decimal.Decimal, onHand, threshold int) (*StockRecord, error) {
	rec := &StockRecord{
		ID:               uuid.New(),
		GarmentID:        key.GarmentID,
		SizeID:           key.SizeID,
		WholesalePrice:   wholesale,
		RetailPrice:      retail,
		OnHand:           onHand,
		ReorderThreshold: threshold,
		Active:           true,
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return rec, nil
}

// Key returns the garment/size identity of the record.
func (r *StockRecord) Key() Key {
	return Key{GarmentID: r.GarmentID, SizeID: r.SizeID}
}

// Validate enforces the record invariants.
func (r *StockRecord) Validate() error {
	if err := r.Key().Validate(); err != nil {
		return err
	}
	if r.WholesalePrice.IsNegative() || r.RetailPrice.IsNegative() {
		return ErrNegativePrice
	}
	if r.OnHand < 0 {
		return ErrNegativeStock
	}
	if r.ReorderThreshold < 0 {
		return ErrNegativeThreshold
	}
	return nil
}

// Price returns the unit price for the tier. An empty tier means retail.
func (r *StockRecord) Price(tier PriceTier) (decimal.Decimal, error) {
	switch tier {
	case "", TierRetail:
		return r.RetailPrice, nil
	case TierWholesale:
		return r.WholesalePrice, nil
	default:
		return decimal.Zero, ErrInvalidPriceTier
	}
}

// BelowThreshold reports whether the record should be reordered.
func (r *StockRecord) BelowThreshold() bool {
	return r.OnHand <= r.ReorderThreshold
}

// Grant is the quantity a reservation of requested units obtains from onHand.
func Grant(requested, onHand int) int {
	if requested <= 0 || onHand <= 0 {
		return 0
	}
	return min(requested, onHand)
}

// ValidTier reports whether tier is empty or one of the known tiers.
func ValidTier(tier PriceTier) bool {
	return tier == "" || tier == TierRetail || tier == TierWholesale
}
