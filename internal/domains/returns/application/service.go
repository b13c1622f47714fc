package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	catalogports "github.com/Apurer/uniform-orders-api/internal/domains/catalog/ports"
	ordersdomain "github.com/Apurer/uniform-orders-api/internal/domains/orders/domain"
	"github.com/Apurer/uniform-orders-api/internal/domains/returns/application/types"
	"github.com/Apurer/uniform-orders-api/internal/domains/returns/domain"
	"github.com/Apurer/uniform-orders-api/internal/domains/returns/ports"
	"github.com/Apurer/uniform-orders-api/internal/shared/events"
)

// DefaultMaxAttempts bounds retries of an exchange fulfillment that lost a race.
const DefaultMaxAttempts = 5

// Service implements returns and exchanges against orders and the stock ledger.
type Service struct {
	repo        ports.Repository
	orders      ports.Orders
	stock       ports.Stock
	catalog     catalogports.Catalog
	publisher   events.Publisher
	logger      *slog.Logger
	now         func() time.Time
	maxAttempts int
}

type Option func(*Service)

// WithCatalog checks that exchange targets are active catalog garments.
func WithCatalog(catalog catalogports.Catalog) Option {
	return func(s *Service) {
		s.catalog = catalog
	}
}

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

func NewService(repo ports.Repository, orders ports.Orders, stock ports.Stock, opts ...Option) *Service {
	s := &Service{
		repo:        repo,
		orders:      orders,
		stock:       stock,
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

// CreateReturn reverses units of a delivered or settled order. Exchange targets
// are reserved first and released again if the return cannot be appended. The
// reversed units go back to stock only after the return is stored.
func (s *Service) CreateReturn(ctx context.Context, input types.CreateReturnInput) (*domain.Return, error) {
	kind, err := domain.ParseKind(input.Kind)
	if err != nil {
		return nil, mapError(err)
	}
	order, err := s.orders.GetOrder(ctx, input.OrderID)
	if err != nil {
		return nil, mapError(err)
	}
	ret, err := domain.NewReturn(uuid.New(), order, kind, lineRequests(input.Lines), input.Reason, input.Refund, s.now().UTC())
	if err != nil {
		return nil, mapError(err)
	}
	guard := func(prior []*domain.Return) error {
		return domain.Guard(order, ret, prior)
	}
	prior, err := s.repo.ListByOrder(ctx, order.ID)
	if err != nil {
		return nil, mapError(err)
	}
	if err := guard(prior); err != nil {
		return nil, mapError(err)
	}

	grants, err := s.reserveTargets(ctx, order, ret)
	if err != nil {
		return nil, err
	}
	saved, err := s.repo.Append(ctx, ret, guard)
	if err != nil {
		return nil, s.compensate(ctx, grants, mapError(err))
	}

	if err := s.releaseReversed(ctx, saved); err != nil {
		s.logger.LogAttrs(ctx, slog.LevelError, "return stock release incomplete",
			slog.String("return.id", saved.ID.String()), slog.String("error", err.Error()))
		return saved, err
	}
	ret.MarkCreated()
	s.publish(ctx, ret.Events())
	return saved, nil
}

type targetGrant struct {
	garmentID, sizeID int64
	granted           int
}

// reserveTargets prices and reserves every exchange target with the same split
// as order creation.
func (s *Service) reserveTargets(ctx context.Context, order *ordersdomain.Order, ret *domain.Return) ([]targetGrant, error) {
	var grants []targetGrant
	for i := range ret.Lines {
		line := &ret.Lines[i]
		if line.Target == nil {
			continue
		}
		if err := s.priceTarget(ctx, order, line.Target); err != nil {
			return nil, s.compensate(ctx, grants, mapError(err))
		}
		if err := ctx.Err(); err != nil {
			return nil, s.compensate(ctx, grants, err)
		}
		granted, err := s.stock.TryReserve(ctx, line.Target.GarmentID, line.Target.SizeID, line.Target.Quantity)
		if err != nil {
			return nil, s.compensate(ctx, grants, mapError(err))
		}
		grants = append(grants, targetGrant{garmentID: line.Target.GarmentID, sizeID: line.Target.SizeID, granted: granted})
		if err := ret.ApplyTargetGrant(line.ID, granted); err != nil {
			return nil, s.compensate(ctx, grants, err)
		}
	}
	return grants, nil
}

func (s *Service) priceTarget(ctx context.Context, order *ordersdomain.Order, target *domain.Target) error {
	if s.catalog != nil {
		garment, err := s.catalog.GetGarment(ctx, target.GarmentID)
		if err != nil {
			return fmt.Errorf("garment %d: %w", target.GarmentID, err)
		}
		if !garment.Active {
			return fmt.Errorf("%w: garment %d is not active", domain.ErrInvalidTarget, target.GarmentID)
		}
	}
	record, err := s.stock.Read(ctx, target.GarmentID, target.SizeID)
	if err != nil {
		return err
	}
	price, err := record.Price(order.PriceTier)
	if err != nil {
		return err
	}
	target.UnitPrice = price
	return nil
}

func (s *Service) GetReturn(ctx context.Context, id uuid.UUID) (*domain.Return, error) {
	ret, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, mapError(err)
	}
	return ret, nil
}

func (s *Service) ListReturns(ctx context.Context, orderID uuid.UUID) ([]*domain.Return, error) {
	if _, err := s.orders.GetOrder(ctx, orderID); err != nil {
		return nil, mapError(err)
	}
	returns, err := s.repo.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, mapError(err)
	}
	return returns, nil
}

// ListOutstandingExchanges returns every return still owed exchange units,
// oldest first.
func (s *Service) ListOutstandingExchanges(ctx context.Context) ([]*domain.Return, error) {
	returns, err := s.repo.ListOutstanding(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	return returns, nil
}

// ReconcileExchange moves up to restockedQty units of an exchange backorder into
// fulfilled. It is a no-op once nothing is outstanding.
func (s *Service) ReconcileExchange(ctx context.Context, input types.ReconcileExchangeInput) (*domain.Return, error) {
	if input.RestockedQty < 0 {
		return nil, mapError(domain.ErrInvalidQuantity)
	}
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		ret, err := s.repo.Get(ctx, input.ReturnID)
		if err != nil {
			return nil, mapError(err)
		}
		outstanding, err := ret.Outstanding(input.LineID)
		if err != nil {
			return nil, mapError(err)
		}
		additional := min(outstanding, input.RestockedQty)
		if additional <= 0 {
			return ret, nil
		}
		line, _ := ret.Line(input.LineID)
		garmentID, sizeID := line.Target.GarmentID, line.Target.SizeID
		granted, err := s.stock.TryReserve(ctx, garmentID, sizeID, additional)
		if err != nil {
			return nil, mapError(err)
		}
		if granted == 0 {
			return ret, nil
		}
		fulfillment := domain.Fulfillment{ID: uuid.New(), ReturnLineID: input.LineID, Quantity: granted, CreatedAt: s.now().UTC()}
		saved, err := s.repo.AppendFulfillment(ctx, ret.ID, fulfillment)
		if err != nil {
			if releaseErr := s.release(ctx, garmentID, sizeID, granted); releaseErr != nil {
				return nil, errors.Join(mapError(err), releaseErr)
			}
			if errors.Is(err, domain.ErrOverFulfillment) {
				continue
			}
			return nil, mapError(err)
		}
		if err := ret.Fulfill(fulfillment.ID, input.LineID, granted, fulfillment.CreatedAt); err == nil {
			s.publish(ctx, ret.Events())
		}
		return saved, nil
	}
	return nil, fmt.Errorf("%w: %w", ErrConflict, domain.ErrOverFulfillment)
}

func (s *Service) releaseReversed(ctx context.Context, ret *domain.Return) error {
	ctx = context.WithoutCancel(ctx)
	var errs []error
	for _, line := range ret.Lines {
		if err := s.stock.Release(ctx, line.GarmentID, line.SizeID, line.QuantityReversed); err != nil {
			errs = append(errs, fmt.Errorf("release return line %s: %w", line.ID, err))
		}
	}
	return errors.Join(errs...)
}

func (s *Service) release(ctx context.Context, garmentID, sizeID int64, quantity int) error {
	if err := s.stock.Release(context.WithoutCancel(ctx), garmentID, sizeID, quantity); err != nil {
		return fmt.Errorf("release %d units of %d/%d: %w", quantity, garmentID, sizeID, err)
	}
	return nil
}

// compensate releases target reservations in reverse order and reports cause
// together with any release failure.
func (s *Service) compensate(ctx context.Context, grants []targetGrant, cause error) error {
	errs := []error{cause}
	for i := len(grants) - 1; i >= 0; i-- {
		if grants[i].granted == 0 {
			continue
		}
		if err := s.release(ctx, grants[i].garmentID, grants[i].sizeID, grants[i].granted); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 1 {
		return cause
	}
	return errors.Join(errs...)
}

func (s *Service) publish(ctx context.Context, evts []events.Event) {
	if len(evts) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, evts...); err != nil {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "failed to publish return events",
			slog.Int("events.count", len(evts)), slog.String("error", err.Error()))
	}
}

func lineRequests(in []types.CreateReturnLineInput) []domain.LineRequest {
	out := make([]domain.LineRequest, 0, len(in))
	for _, l := range in {
		req := domain.LineRequest{OrderLineID: l.OrderLineID, Quantity: l.Quantity}
		if l.Target != nil {
			req.Target = &domain.TargetRequest{GarmentID: l.Target.GarmentID, SizeID: l.Target.SizeID, Quantity: l.Target.Quantity}
		}
		out = append(out, req)
	}
	return out
}

var _ ports.Service = (*Service)(nil)
