package application

import (
	"errors"
	"fmt"

	ordersdomain "github.com/Apurer/uniform-orders-api/internal/domains/orders/domain"
	ordersports "github.com/Apurer/uniform-orders-api/internal/domains/orders/ports"
	"github.com/Apurer/uniform-orders-api/internal/domains/returns/domain"
	"github.com/Apurer/uniform-orders-api/internal/domains/returns/ports"
	stockapp "github.com/Apurer/uniform-orders-api/internal/domains/stock/application"
	stockdomain "github.com/Apurer/uniform-orders-api/internal/domains/stock/domain"
	stockports "github.com/Apurer/uniform-orders-api/internal/domains/stock/ports"
)

var (
	// ErrInvalidInput signals a malformed return request.
	ErrInvalidInput = errors.New("invalid return input")
	// ErrConflict is returned once bounded retries against concurrent fulfillments are exhausted.
	ErrConflict = errors.New("return update conflict")
)

func mapError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrConflict), errors.Is(err, ports.ErrNotFound):
		return err
	case errors.Is(err, domain.ErrInvalidKind) ||
		errors.Is(err, domain.ErrEmptyReturn) ||
		errors.Is(err, domain.ErrInvalidQuantity) ||
		errors.Is(err, domain.ErrDuplicateLine) ||
		errors.Is(err, domain.ErrTargetRequired) ||
		errors.Is(err, domain.ErrTargetForbidden) ||
		errors.Is(err, domain.ErrInvalidTarget) ||
		errors.Is(err, domain.ErrNotExchange) ||
		errors.Is(err, domain.ErrIncompleteReturn) ||
		errors.Is(err, domain.ErrInvalidRefund) ||
		errors.Is(err, stockdomain.ErrInactive) ||
		errors.Is(err, stockapp.ErrInvalidInput):
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	case errors.Is(err, domain.ErrLineNotFound) ||
		errors.Is(err, ordersdomain.ErrLineNotFound) ||
		errors.Is(err, ordersports.ErrNotFound) ||
		errors.Is(err, stockports.ErrNotFound):
		return fmt.Errorf("%w: %w", ports.ErrNotFound, err)
	case errors.Is(err, stockapp.ErrConflict):
		return fmt.Errorf("%w: %w", ErrConflict, err)
	}
	return err
}
