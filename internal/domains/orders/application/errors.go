package application

import (
	"errors"
	"fmt"

	catalogports "github.com/Apurer/uniform-orders-api/internal/domains/catalog/ports"
	"github.com/Apurer/uniform-orders-api/internal/domains/orders/domain"
	"github.com/Apurer/uniform-orders-api/internal/domains/orders/ports"
	stockapp "github.com/Apurer/uniform-orders-api/internal/domains/stock/application"
	stockdomain "github.com/Apurer/uniform-orders-api/internal/domains/stock/domain"
	stockports "github.com/Apurer/uniform-orders-api/internal/domains/stock/ports"
)

var (
	// ErrInvalidInput signals the request violated an order invariant.
	ErrInvalidInput = errors.New("invalid order input")
	// ErrConflict is returned once bounded retries on a concurrent update are exhausted.
	ErrConflict = errors.New("order update conflict")
)

func mapError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrConflict), errors.Is(err, ports.ErrNotFound):
		return err
	case errors.Is(err, domain.ErrEmptyOrder) ||
		errors.Is(err, domain.ErrInvalidClient) ||
		errors.Is(err, domain.ErrInvalidQuantity) ||
		errors.Is(err, domain.ErrInvalidReference) ||
		errors.Is(err, domain.ErrNegativePrice) ||
		errors.Is(err, domain.ErrInvalidStatus) ||
		errors.Is(err, domain.ErrNegativePayment) ||
		errors.Is(err, domain.ErrGarmentUnavailable) ||
		errors.Is(err, stockdomain.ErrInvalidPriceTier) ||
		errors.Is(err, stockdomain.ErrInactive) ||
		errors.Is(err, stockapp.ErrInvalidInput):
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	case errors.Is(err, domain.ErrLineNotFound) ||
		errors.Is(err, stockports.ErrNotFound) ||
		errors.Is(err, catalogports.ErrNotFound):
		return fmt.Errorf("%w: %w", ports.ErrNotFound, err)
	case errors.Is(err, stockapp.ErrConflict):
		return fmt.Errorf("%w: %w", ErrConflict, err)
	}
	return err
}

// Error codes carried across process boundaries, where errors.Is no longer works.
const (
	CodeInvalidInput          = "InvalidInput"
	CodeNotFound              = "NotFound"
	CodeConflict              = "Conflict"
	CodeIdempotencyConflict   = "IdempotencyConflict"
	CodeInvalidTransition     = "InvalidTransition"
	CodeIncompleteFulfillment = "IncompleteFulfillment"
	CodeOrderNotEligible      = "OrderNotEligible"
)

var codeErrors = []struct {
	code string
	err  error
}{
	{CodeInvalidInput, ErrInvalidInput},
	{CodeNotFound, ports.ErrNotFound},
	{CodeConflict, ErrConflict},
	{CodeIdempotencyConflict, ports.ErrIdempotencyConflict},
	{CodeInvalidTransition, domain.ErrInvalidTransition},
	{CodeIncompleteFulfillment, domain.ErrIncompleteFulfillment},
	{CodeOrderNotEligible, domain.ErrOrderNotEligible},
}

// ErrorCode returns the stable code of a business error, or "" for anything
// that may succeed on retry.
func ErrorCode(err error) string {
	err = mapError(err)
	for _, ce := range codeErrors {
		if errors.Is(err, ce.err) {
			return ce.code
		}
	}
	return ""
}

// IsErrorCode reports whether code was produced by ErrorCode.
func IsErrorCode(code string) bool {
	for _, ce := range codeErrors {
		if ce.code == code {
			return true
		}
	}
	return false
}

// ErrorFromCode rebuilds a matchable error from a code and message.
func ErrorFromCode(code, message string) error {
	for _, ce := range codeErrors {
		if ce.code == code {
			return fmt.Errorf("%w: %s", ce.err, message)
		}
	}
	return errors.New(message)
}
