package mapper

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Apurer/uniform-orders-api/internal/domains/stock/domain"
	"github.com/Apurer/uniform-orders-api/internal/domains/stock/ports"
)

// Define is the body of PUT /stock/:garmentId/:sizeId.
type Define struct {
	WholesalePrice   decimal.Decimal `json:"wholesalePrice"`
	RetailPrice      decimal.Decimal `json:"retailPrice"`
	OnHand           int             `json:"onHand"`
	ReorderThreshold int             `json:"reorderThreshold"`
}

// Restock is the body of POST /stock/:garmentId/:sizeId/restock.
type Restock struct {
	Quantity int `json:"quantity"`
}

type StockRecord struct {
	GarmentID        int64           `json:"garmentId"`
	SizeID           int64           `json:"sizeId"`
	WholesalePrice   decimal.Decimal `json:"wholesalePrice"`
	RetailPrice      decimal.Decimal `json:"retailPrice"`
	OnHand           int             `json:"onHand"`
	ReorderThreshold int             `json:"reorderThreshold"`
	Active           bool            `json:"active"`
	BelowThreshold   bool            `json:"belowThreshold"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

func ToDefineInput(garmentID, sizeID int64, body Define) ports.DefineInput {
	return ports.DefineInput{
		GarmentID:        garmentID,
		SizeID:           sizeID,
		WholesalePrice:   body.WholesalePrice,
		RetailPrice:      body.RetailPrice,
		InitialOnHand:    body.OnHand,
		ReorderThreshold: body.ReorderThreshold,
	}
}

func FromDomainRecord(rec *domain.StockRecord) StockRecord {
	if rec == nil {
		return StockRecord{}
	}
	return StockRecord{
		GarmentID:        rec.GarmentID,
		SizeID:           rec.SizeID,
		WholesalePrice:   rec.WholesalePrice,
		RetailPrice:      rec.RetailPrice,
		OnHand:           rec.OnHand,
		ReorderThreshold: rec.ReorderThreshold,
		Active:           rec.Active,
		BelowThreshold:   rec.BelowThreshold(),
		UpdatedAt:        rec.UpdatedAt,
	}
}

func FromDomainRecords(records []*domain.StockRecord) []StockRecord {
	out := make([]StockRecord, 0, len(records))
	for _, r := range records {
		out = append(out, FromDomainRecord(r))
	}
	return out
}
