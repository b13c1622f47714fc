package application

import (
	"errors"
	"fmt"

	ordersports "github.com/Apurer/uniform-orders-api/internal/domains/orders/ports"
	"github.com/Apurer/uniform-orders-api/internal/domains/settlement/domain"
	"github.com/Apurer/uniform-orders-api/internal/domains/settlement/ports"
)

var (
	// ErrInvalidInput signals a malformed cut request.
	ErrInvalidInput = errors.New("invalid cash cut input")
	// ErrConflict is returned once racing cuts kept claiming the same orders.
	ErrConflict = errors.New("cash cut conflict")
)

func mapError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrConflict), errors.Is(err, ports.ErrNotFound):
		return err
	case errors.Is(err, domain.ErrInvalidRange):
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	case errors.Is(err, ordersports.ErrNotFound):
		return fmt.Errorf("%w: %w", ports.ErrNotFound, err)
	}
	return err
}
