package application

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"

	"github.com/Apurer/uniform-orders-api/internal/domains/orders/application/types"
	stockdomain "github.com/Apurer/uniform-orders-api/internal/domains/stock/domain"
)

type normalizedCreateOrderInput struct {
	ClientKind   string                `json:"clientKind"`
	ClientID     int64                 `json:"clientId"`
	PriceTier    string                `json:"priceTier"`
	Lines        []normalizedOrderLine `json:"lines"`
	Observations string                `json:"observations"`
}

type normalizedOrderLine struct {
	GarmentID     int64  `json:"garmentId"`
	SizeID        int64  `json:"sizeId"`
	Quantity      int    `json:"quantity"`
	Specification string `json:"specification"`
}

// FingerprintCreateOrder builds a deterministic hash of the create-order payload (excluding the idempotency key).
// Line order does not change the fingerprint.
func FingerprintCreateOrder(input types.CreateOrderInput) (string, error) {
	payload, err := json.Marshal(normalizeCreateOrderInput(input))
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

func normalizeCreateOrderInput(input types.CreateOrderInput) normalizedCreateOrderInput {
	tier := input.PriceTier
	if tier == "" {
		tier = stockdomain.TierRetail
	}
	lines := make([]normalizedOrderLine, 0, len(input.Lines))
	for _, l := range input.Lines {
		lines = append(lines, normalizedOrderLine{
			GarmentID:     l.GarmentID,
			SizeID:        l.SizeID,
			Quantity:      l.Quantity,
			Specification: strings.TrimSpace(l.Specification),
		})
	}
	sort.SliceStable(lines, func(i, j int) bool {
		a, b := lines[i], lines[j]
		if a.GarmentID != b.GarmentID {
			return a.GarmentID < b.GarmentID
		}
		if a.SizeID != b.SizeID {
			return a.SizeID < b.SizeID
		}
		if a.Quantity != b.Quantity {
			return a.Quantity < b.Quantity
		}
		return a.Specification < b.Specification
	})
	return normalizedCreateOrderInput{
		ClientKind:   string(input.ClientKind),
		ClientID:     input.ClientID,
		PriceTier:    string(tier),
		Lines:        lines,
		Observations: strings.TrimSpace(input.Observations),
	}
}
