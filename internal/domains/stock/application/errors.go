package application

import (
	"errors"
	"fmt"

	"github.com/Apurer/uniform-orders-api/internal/domains/stock/domain"
)

var (
	// ErrInvalidInput signals the request violated a stock invariant.
	ErrInvalidInput = errors.New("invalid stock input")
	// ErrConflict is returned once the bounded compare-and-swap retries are exhausted.
	ErrConflict = errors.New("stock reservation conflict")
)

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrInvalidQuantity) ||
		errors.Is(err, domain.ErrInvalidGarment) ||
		errors.Is(err, domain.ErrInvalidSize) ||
		errors.Is(err, domain.ErrNegativePrice) ||
		errors.Is(err, domain.ErrNegativeStock) ||
		errors.Is(err, domain.ErrNegativeThreshold) ||
		errors.Is(err, domain.ErrInvalidPriceTier) {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return err
}
