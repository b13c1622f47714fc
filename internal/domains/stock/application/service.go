package application

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/Apurer/uniform-orders-api/internal/domains/stock/domain"
	"github.com/Apurer/uniform-orders-api/internal/domains/stock/ports"
)

// DefaultMaxAttempts bounds compare-and-swap retries of a reservation.
const DefaultMaxAttempts = 5

// Service implements the stock ledger on top of an atomic storage primitive.
type Service struct {
	ledger      ports.Ledger
	maxAttempts int
}

type Option func(*Service)

// WithMaxAttempts overrides the number of reservation attempts before ErrConflict.
func WithMaxAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

func NewService(ledger ports.Ledger, opts ...Option) *Service {
	s := &Service{ledger: ledger, maxAttempts: DefaultMaxAttempts}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *Service) Read(ctx context.Context, garmentID, sizeID int64) (*domain.StockRecord, error) {
	key := domain.Key{GarmentID: garmentID, SizeID: sizeID}
	if err := key.Validate(); err != nil {
		return nil, mapError(err)
	}
	return s.ledger.Get(ctx, key)
}

// TryReserve grants min(quantity, onHand) and removes the granted units from stock.
func (s *Service) TryReserve(ctx context.Context, garmentID, sizeID int64, quantity int) (int, error) {
	key := domain.Key{GarmentID: garmentID, SizeID: sizeID}
	if err := validateMutation(key, quantity); err != nil {
		return 0, err
	}
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		rec, err := s.ledger.Get(ctx, key)
		if err != nil {
			return 0, err
		}
		if !rec.Active {
			return 0, fmt.Errorf("%w: %s", domain.ErrInactive, key)
		}
		granted := domain.Grant(quantity, rec.OnHand)
		if granted == 0 {
			return 0, nil
		}
		_, err = s.ledger.CompareAndReserve(ctx, key, rec.Version, granted)
		if errors.Is(err, ports.ErrConcurrentUpdate) {
			continue
		}
		if err != nil {
			return 0, err
		}
		return granted, nil
	}
	return 0, fmt.Errorf("%w: %w", ErrConflict, ports.ErrConcurrentUpdate)
}

func (s *Service) Restock(ctx context.Context, garmentID, sizeID int64, quantity int) (int, error) {
	key := domain.Key{GarmentID: garmentID, SizeID: sizeID}
	if err := validateMutation(key, quantity); err != nil {
		return 0, err
	}
	rec, err := s.ledger.Increment(ctx, key, quantity)
	if err != nil {
		return 0, err
	}
	return rec.OnHand, nil
}

// Release puts units back on hand after a return, cancellation, or compensation.
func (s *Service) Release(ctx context.Context, garmentID, sizeID int64, quantity int) error {
	key := domain.Key{GarmentID: garmentID, SizeID: sizeID}
	if err := validateMutation(key, quantity); err != nil {
		return err
	}
	_, err := s.ledger.Increment(ctx, key, quantity)
	return err
}

func (s *Service) Define(ctx context.Context, input ports.DefineInput) (*domain.StockRecord, error) {
	key := domain.Key{GarmentID: input.GarmentID, SizeID: input.SizeID}
	rec, err := domain.NewStockRecord(key, input.WholesalePrice, input.RetailPrice, input.InitialOnHand, input.ReorderThreshold)
	if err != nil {
		return nil, mapError(err)
	}
	return s.ledger.Upsert(ctx, rec)
}

func (s *Service) Deactivate(ctx context.Context, garmentID, sizeID int64) error {
	key := domain.Key{GarmentID: garmentID, SizeID: sizeID}
	if err := key.Validate(); err != nil {
		return mapError(err)
	}
	return s.ledger.Deactivate(ctx, key)
}

func (s *Service) ListBelowThreshold(ctx context.Context) ([]*domain.StockRecord, error) {
	records, err := s.ledger.List(ctx)
	if err != nil {
		return nil, err
	}
	result := make([]*domain.StockRecord, 0, len(records))
	for _, rec := range records {
		if rec.Active && rec.BelowThreshold() {
			result = append(result, rec)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].GarmentID != result[j].GarmentID {
			return result[i].GarmentID < result[j].GarmentID
		}
		return result[i].SizeID < result[j].SizeID
	})
	return result, nil
}

func validateMutation(key domain.Key, quantity int) error {
	if err := key.Validate(); err != nil {
		return mapError(err)
	}
	if quantity <= 0 {
		return mapError(domain.ErrInvalidQuantity)
	}
	return nil
}

var _ ports.Service = (*Service)(nil)
