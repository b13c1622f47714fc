package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Apurer/uniform-orders-api/internal/domains/settlement/application/types"
	"github.com/Apurer/uniform-orders-api/internal/domains/settlement/domain"
	"github.com/Apurer/uniform-orders-api/internal/domains/settlement/ports"
	"github.com/Apurer/uniform-orders-api/internal/shared/events"
)

// DefaultMaxAttempts bounds how often OpenCut re-selects after losing a race.
const DefaultMaxAttempts = 5

// Service aggregates settled orders into cash-cuts.
type Service struct {
	repo        ports.Repository
	orders      ports.SettledOrders
	publisher   events.Publisher
	logger      *slog.Logger
	now         func() time.Time
	maxAttempts int
}

type Option func(*Service)

func WithEventPublisher(p events.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithMaxAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewService(repo ports.Repository, orders ports.SettledOrders, opts ...Option) *Service {
	s := &Service{
		repo:        repo,
		orders:      orders,
		publisher:   events.NopPublisher{},
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:         time.Now,
		maxAttempts: DefaultMaxAttempts,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// OpenCut creates an active cut over every settled order in the inclusive period
// that no other cut holds yet.
func (s *Service) OpenCut(ctx context.Context, input types.OpenCutInput) (*domain.CutDetail, error) {
	start, end := input.PeriodStart.UTC(), input.PeriodEnd.UTC()
	if _, err := domain.NewCut(uuid.Nil, start, end, time.Time{}); err != nil {
		return nil, mapError(err)
	}
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		candidates, err := s.orders.ListSettled(ctx, start, end)
		if err != nil {
			return nil, mapError(err)
		}
		cut, err := domain.NewCut(uuid.New(), start, end, s.now().UTC())
		if err != nil {
			return nil, mapError(err)
		}
		detail, err := s.repo.Open(ctx, cut, candidates)
		if errors.Is(err, ports.ErrAssociationRace) {
			continue
		}
		if err != nil {
			return nil, mapError(err)
		}
		detail.Cut.MarkOpened()
		s.publish(ctx, detail.Cut.Events())
		return detail, nil
	}
	return nil, fmt.Errorf("%w: %w", ErrConflict, ports.ErrAssociationRace)
}

// CloseCut deactivates a cut. A closed cut is never reopened.
func (s *Service) CloseCut(ctx context.Context, cutID uuid.UUID) (*domain.CashCut, error) {
	cut, err := s.repo.Close(ctx, cutID, s.now().UTC())
	if err != nil {
		return nil, mapError(err)
	}
	s.publish(ctx, cut.Events())
	return cut, nil
}

func (s *Service) GetCutDetail(ctx context.Context, cutID uuid.UUID) (*domain.CutDetail, error) {
	detail, err := s.repo.Get(ctx, cutID)
	if err != nil {
		return nil, mapError(err)
	}
	return detail, nil
}

// AttachOrder adds one settled order to an open cut.
func (s *Service) AttachOrder(ctx context.Context, input types.AttachOrderInput) (*domain.CutDetail, error) {
	order, err := s.orders.GetSettled(ctx, input.OrderID)
	if err != nil {
		return nil, mapError(err)
	}
	detail, err := s.repo.Attach(ctx, input.CutID, *order)
	if err != nil {
		return nil, mapError(err)
	}
	return detail, nil
}

func (s *Service) ListCuts(ctx context.Context) ([]*domain.CashCut, error) {
	cuts, err := s.repo.List(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	return cuts, nil
}

func (s *Service) publish(ctx context.Context, evts []events.Event) {
	if len(evts) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, evts...); err != nil {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "failed to publish cash cut events",
			slog.Int("events.count", len(evts)), slog.String("error", err.Error()))
	}
}

var _ ports.Service = (*Service)(nil)
