package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	catalogports "github.com/Apurer/uniform-orders-api/internal/domains/catalog/ports"
	"github.com/Apurer/uniform-orders-api/internal/domains/orders/application/types"
	"github.com/Apurer/uniform-orders-api/internal/domains/orders/domain"
	"github.com/Apurer/uniform-orders-api/internal/domains/orders/ports"
	stockdomain "github.com/Apurer/uniform-orders-api/internal/domains/stock/domain"
	"github.com/Apurer/uniform-orders-api/internal/shared/events"
)

// DefaultMaxAttempts bounds optimistic-concurrency retries of one order mutation.
const DefaultMaxAttempts = 5

// Service orchestrates the orders bounded context use cases.
type Service struct {
	repo        ports.Repository
	stock       ports.Stock
	catalog     catalogports.Catalog
	directory   catalogports.ClientDirectory
	idempotency ports.IdempotencyStore
	publisher   events.Publisher
	logger      *slog.Logger
	now         func() time.Time
	maxAttempts int
}

type Option func(*Service)

// WithIdempotencyStore enables Idempotency-Key handling on CreateOrder.
func WithIdempotencyStore(store ports.IdempotencyStore) Option {
	return func(s *Service) {
		s.idempotency = store
	}
}

// WithEventPublisher ships domain events after each persisted change.
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

// WithLogger receives failures that do not fail the operation, such as event publication.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService wires the orders service with its collaborators. The catalog and
// directory may be nil, in which case garment and client checks are skipped.
func NewService(repo ports.Repository, stock ports.Stock, catalog catalogports.Catalog, directory catalogports.ClientDirectory, opts ...Option) *Service {
	s := &Service{
		repo:        repo,
		stock:       stock,
		catalog:     catalog,
		directory:   directory,
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

// CreateOrder runs the placement saga inline: prepare, reserve every line, persist.
// Every grant obtained is released again when a later step fails or ctx ends.
func (s *Service) CreateOrder(ctx context.Context, input types.CreateOrderInput) (*domain.Order, error) {
	draft, err := s.PrepareOrder(ctx, input)
	if err != nil {
		return nil, err
	}
	if draft.Existing != nil {
		return draft.Existing, nil
	}
	grants := make([]types.LineGrant, 0, len(draft.Lines))
	for _, reservation := range types.ReservationsFor(*draft) {
		if err := ctx.Err(); err != nil {
			return nil, s.compensate(ctx, grants, err)
		}
		grant, err := s.ReserveLine(ctx, reservation)
		if err != nil {
			return nil, s.compensate(ctx, grants, err)
		}
		grants = append(grants, *grant)
	}
	if err := ctx.Err(); err != nil {
		return nil, s.compensate(ctx, grants, err)
	}
	result, err := s.PersistOrder(ctx, types.PersistOrderInput{Draft: *draft, Grants: grants})
	if err != nil {
		return nil, s.compensate(ctx, grants, err)
	}
	if result.Duplicate {
		if err := s.compensate(ctx, grants, nil); err != nil {
			return nil, err
		}
	}
	return result.Order, nil
}

// PrepareOrder validates the request, resolves the client, and prices every line.
// All collaborator reads happen here so that no stock is reserved for a request
// that cannot be placed.
func (s *Service) PrepareOrder(ctx context.Context, input types.CreateOrderInput) (*types.PlacementDraft, error) {
	if err := validateCreateOrder(input); err != nil {
		return nil, mapError(err)
	}
	tier := input.PriceTier
	if tier == "" {
		tier = stockdomain.TierRetail
	}
	draft := &types.PlacementDraft{
		OrderID:      uuid.New(),
		Client:       domain.ClientRef{Kind: input.ClientKind, ID: input.ClientID},
		PriceTier:    tier,
		Observations: strings.TrimSpace(input.Observations),
		CreatedAt:    s.now().UTC(),
	}

	key := strings.TrimSpace(input.IdempotencyKey)
	var requestHash string
	resumed := false
	if key != "" && s.idempotency != nil {
		hash, err := FingerprintCreateOrder(input)
		if err != nil {
			return nil, err
		}
		requestHash = hash
		record, err := s.idempotency.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		if record != nil {
			existing, err := s.replay(ctx, record, requestHash)
			if err != nil {
				return nil, err
			}
			if existing != nil {
				return &types.PlacementDraft{OrderID: existing.ID, Existing: existing}, nil
			}
			draft.OrderID = record.OrderID
			resumed = true
		}
	}

	if s.directory != nil {
		client, err := s.directory.GetClient(ctx, input.ClientKind, input.ClientID)
		if errors.Is(err, catalogports.ErrNotFound) {
			return nil, mapError(fmt.Errorf("%w: %s %d", domain.ErrInvalidClient, input.ClientKind, input.ClientID))
		}
		if err != nil {
			return nil, err
		}
		draft.Client.Name = client.Name
	}

	lines := make([]domain.Line, 0, len(input.Lines))
	for _, in := range input.Lines {
		line, err := s.priceLine(ctx, in, tier)
		if err != nil {
			return nil, mapError(err)
		}
		lines = append(lines, line)
	}
	draft.Lines = lines

	if key != "" && s.idempotency != nil && !resumed {
		stored, err := s.idempotency.Save(ctx, ports.IdempotencyRecord{Key: key, RequestHash: requestHash, OrderID: draft.OrderID})
		if err != nil && !errors.Is(err, ports.ErrIdempotencyConflict) {
			return nil, err
		}
		if stored != nil && stored.OrderID != draft.OrderID {
			existing, err := s.replay(ctx, stored, requestHash)
			if err != nil {
				return nil, err
			}
			if existing != nil {
				return &types.PlacementDraft{OrderID: existing.ID, Existing: existing}, nil
			}
			// A concurrent placement claimed the key first; share its order id so
			// that only one of the two can be persisted.
			draft.OrderID = stored.OrderID
		}
	}
	return draft, nil
}

// replay returns the order a stored idempotency record produced, or nil when the
// earlier placement never got persisted.
func (s *Service) replay(ctx context.Context, record *ports.IdempotencyRecord, requestHash string) (*domain.Order, error) {
	if record.RequestHash != requestHash {
		return nil, fmt.Errorf("%w: key %q was used with a different request", ports.ErrIdempotencyConflict, record.Key)
	}
	existing, err := s.repo.Get(ctx, record.OrderID)
	if errors.Is(err, ports.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return existing, nil
}

func (s *Service) priceLine(ctx context.Context, in types.CreateOrderLineInput, tier stockdomain.PriceTier) (domain.Line, error) {
	if s.catalog != nil {
		garment, err := s.catalog.GetGarment(ctx, in.GarmentID)
		if err != nil {
			return domain.Line{}, fmt.Errorf("garment %d: %w", in.GarmentID, err)
		}
		if !garment.Active {
			return domain.Line{}, fmt.Errorf("%w: garment %d", domain.ErrGarmentUnavailable, in.GarmentID)
		}
		if _, err := s.catalog.GetSize(ctx, in.SizeID); err != nil {
			return domain.Line{}, fmt.Errorf("size %d: %w", in.SizeID, err)
		}
	}
	record, err := s.stock.Read(ctx, in.GarmentID, in.SizeID)
	if err != nil {
		return domain.Line{}, err
	}
	if !record.Active {
		return domain.Line{}, fmt.Errorf("%w: stock %s", domain.ErrGarmentUnavailable, record.Key())
	}
	price, err := record.Price(tier)
	if err != nil {
		return domain.Line{}, err
	}
	return domain.NewLine(in.GarmentID, in.SizeID, in.Quantity, price, in.Specification)
}

// ReserveLine asks the ledger for the requested units of one line. The grant may
// be smaller than requested; the difference becomes backorder.
func (s *Service) ReserveLine(ctx context.Context, input types.LineReservation) (*types.LineGrant, error) {
	granted, err := s.stock.TryReserve(ctx, input.GarmentID, input.SizeID, input.Quantity)
	if err != nil {
		return nil, mapError(err)
	}
	return &types.LineGrant{
		LineID:    input.LineID,
		GarmentID: input.GarmentID,
		SizeID:    input.SizeID,
		Granted:   granted,
	}, nil
}

func (s *Service) ReleaseLine(ctx context.Context, grant types.LineGrant) error {
	if grant.Granted <= 0 {
		return nil
	}
	return s.stock.Release(ctx, grant.GarmentID, grant.SizeID, grant.Granted)
}

// PersistOrder applies the grants to the draft and stores the order in PEDIDO.
func (s *Service) PersistOrder(ctx context.Context, input types.PersistOrderInput) (*types.PersistOrderResult, error) {
	draft := input.Draft
	lines := append([]domain.Line(nil), draft.Lines...)
	for _, grant := range input.Grants {
		applied := false
		for i := range lines {
			if lines[i].ID != grant.LineID {
				continue
			}
			if err := lines[i].Grant(grant.Granted); err != nil {
				return nil, err
			}
			applied = true
			break
		}
		if !applied {
			return nil, mapError(fmt.Errorf("%w: %s", domain.ErrLineNotFound, grant.LineID))
		}
	}
	order, err := domain.NewOrder(draft.OrderID, draft.Client, draft.PriceTier, lines, draft.Observations, draft.CreatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	saved, err := s.repo.Create(ctx, order)
	if errors.Is(err, ports.ErrAlreadyExists) {
		existing, err := s.repo.Get(ctx, draft.OrderID)
		if err != nil {
			return nil, mapError(err)
		}
		return &types.PersistOrderResult{Order: existing, Duplicate: true}, nil
	}
	if err != nil {
		return nil, mapError(err)
	}
	s.publish(ctx, order.Events())
	return &types.PersistOrderResult{Order: saved}, nil
}

func (s *Service) GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	order, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, mapError(err)
	}
	return order, nil
}

func (s *Service) ListOrders(ctx context.Context, input types.ListOrdersInput) ([]*domain.Order, error) {
	filter := ports.OrderFilter{}
	if raw := strings.TrimSpace(input.Status); raw != "" {
		status, err := domain.ParseStatus(strings.ToUpper(raw))
		if err != nil {
			return nil, mapError(err)
		}
		filter.Status = &status
	}
	orders, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, mapError(err)
	}
	return orders, nil
}

// ReconcileBackorder moves up to restockedQty backordered units of one line into
// fulfilled. Repeating the call after the line is complete is a no-op.
func (s *Service) ReconcileBackorder(ctx context.Context, input types.ReconcileInput) (*domain.Order, error) {
	if input.RestockedQty < 0 {
		return nil, mapError(domain.ErrInvalidQuantity)
	}
	order, _, err := s.reconcile(ctx, input.OrderID, input.LineID, input.RestockedQty)
	return order, err
}

func (s *Service) reconcile(ctx context.Context, orderID, lineID uuid.UUID, restocked int) (*domain.Order, int, error) {
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		order, err := s.repo.Get(ctx, orderID)
		if err != nil {
			return nil, 0, mapError(err)
		}
		line, err := order.Line(lineID)
		if err != nil {
			return nil, 0, mapError(err)
		}
		additional := min(line.Backordered, restocked)
		if additional <= 0 {
			return order, 0, nil
		}
		if order.Status != domain.StatusPlaced {
			return nil, 0, fmt.Errorf("%w: order %s is %s", domain.ErrOrderNotEligible, order.ID, order.Status)
		}
		garmentID, sizeID := line.GarmentID, line.SizeID
		granted, err := s.stock.TryReserve(ctx, garmentID, sizeID, additional)
		if err != nil {
			return nil, 0, mapError(err)
		}
		if granted == 0 {
			return order, 0, nil
		}
		if err := order.ReconcileLine(lineID, granted, s.now().UTC()); err != nil {
			return nil, 0, errors.Join(mapError(err), s.release(ctx, garmentID, sizeID, granted))
		}
		saved, err := s.repo.Update(ctx, order)
		if err != nil {
			if releaseErr := s.release(ctx, garmentID, sizeID, granted); releaseErr != nil {
				return nil, 0, errors.Join(mapError(err), releaseErr)
			}
			if errors.Is(err, ports.ErrConcurrentUpdate) {
				continue
			}
			return nil, 0, mapError(err)
		}
		s.publish(ctx, order.Events())
		return saved, granted, nil
	}
	return nil, 0, fmt.Errorf("%w: %w", ErrConflict, ports.ErrConcurrentUpdate)
}

// ReconcilePending distributes a restock of one stock record over the
// backordered lines waiting for it, oldest order first.
func (s *Service) ReconcilePending(ctx context.Context, input types.ReconcilePendingInput) (*types.ReconcilePendingResult, error) {
	key := stockdomain.Key{GarmentID: input.GarmentID, SizeID: input.SizeID}
	if err := key.Validate(); err != nil {
		return nil, mapError(fmt.Errorf("%w: %w", domain.ErrInvalidReference, err))
	}
	if input.RestockedQty < 0 {
		return nil, mapError(domain.ErrInvalidQuantity)
	}
	result := &types.ReconcilePendingResult{Lines: []types.ReconciledLine{}, Remaining: input.RestockedQty}
	if input.RestockedQty == 0 {
		return result, nil
	}
	orders, err := s.repo.ListBackordered(ctx, key)
	if err != nil {
		return nil, mapError(err)
	}
	for _, order := range orders {
		for _, line := range order.Lines {
			if result.Remaining == 0 {
				return result, nil
			}
			if line.GarmentID != key.GarmentID || line.SizeID != key.SizeID || line.Backordered == 0 {
				continue
			}
			_, granted, err := s.reconcile(ctx, order.ID, line.ID, result.Remaining)
			if errors.Is(err, domain.ErrOrderNotEligible) {
				// cancelled since it was listed
				break
			}
			if err != nil {
				return result, err
			}
			if granted > 0 {
				result.Lines = append(result.Lines, types.ReconciledLine{OrderID: order.ID, LineID: line.ID, Granted: granted})
				result.Granted += granted
				result.Remaining -= granted
			}
		}
	}
	return result, nil
}

// AdvanceState applies one transition of the order state machine. Cancelling
// releases every fulfilled unit back to stock once the new status is stored.
func (s *Service) AdvanceState(ctx context.Context, input types.AdvanceStateInput) (*domain.Order, error) {
	if _, err := domain.ParseStatus(string(input.Target)); err != nil {
		return nil, mapError(err)
	}
	saved, changed, err := s.mutate(ctx, input.OrderID, func(order *domain.Order) error {
		if !domain.CanTransition(order.Status, input.Target) {
			return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, order.Status, input.Target)
		}
		if input.Target == domain.StatusCancelled && !input.Confirmed {
			return domain.ErrConfirmationRequired
		}
		return order.TransitionTo(input.Target, s.now().UTC())
	})
	if err != nil {
		return nil, err
	}
	if input.Target == domain.StatusCancelled {
		if err := s.releaseFulfilled(ctx, saved); err != nil {
			s.logger.LogAttrs(ctx, slog.LevelError, "cancelled order stock release incomplete",
				slog.String("order.id", saved.ID.String()), slog.String("error", err.Error()))
			return saved, err
		}
	}
	s.publish(ctx, changed.Events())
	return saved, nil
}

// Settle moves a delivered order to LIQUIDADO.
func (s *Service) Settle(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return s.AdvanceState(ctx, types.AdvanceStateInput{OrderID: id, Target: domain.StatusSettled})
}

func (s *Service) RecordPayment(ctx context.Context, input types.RecordPaymentInput) (*domain.Order, error) {
	saved, _, err := s.mutate(ctx, input.OrderID, func(order *domain.Order) error {
		return order.RecordPayment(input.Amount)
	})
	return saved, err
}

// mutate loads the order, applies fn, and stores it with an optimistic version
// check, retrying from a fresh read on conflict.
func (s *Service) mutate(ctx context.Context, id uuid.UUID, fn func(*domain.Order) error) (*domain.Order, *domain.Order, error) {
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		order, err := s.repo.Get(ctx, id)
		if err != nil {
			return nil, nil, mapError(err)
		}
		if err := fn(order); err != nil {
			return nil, nil, mapError(err)
		}
		saved, err := s.repo.Update(ctx, order)
		if errors.Is(err, ports.ErrConcurrentUpdate) {
			continue
		}
		if err != nil {
			return nil, nil, mapError(err)
		}
		return saved, order, nil
	}
	return nil, nil, fmt.Errorf("%w: %w", ErrConflict, ports.ErrConcurrentUpdate)
}

func (s *Service) releaseFulfilled(ctx context.Context, order *domain.Order) error {
	ctx = context.WithoutCancel(ctx)
	var errs []error
	for _, line := range order.Lines {
		if line.Fulfilled == 0 {
			continue
		}
		if err := s.stock.Release(ctx, line.GarmentID, line.SizeID, line.Fulfilled); err != nil {
			errs = append(errs, fmt.Errorf("release line %s: %w", line.ID, err))
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

// compensate releases grants in reverse order and reports cause together with
// any release failure.
func (s *Service) compensate(ctx context.Context, grants []types.LineGrant, cause error) error {
	ctx = context.WithoutCancel(ctx)
	var errs []error
	if cause != nil {
		errs = append(errs, cause)
	}
	for i := len(grants) - 1; i >= 0; i-- {
		if err := s.ReleaseLine(ctx, grants[i]); err != nil {
			errs = append(errs, fmt.Errorf("compensate line %s: %w", grants[i].LineID, err))
		}
	}
	if len(errs) == 1 {
		return errs[0]
	}
	return errors.Join(errs...)
}

func (s *Service) publish(ctx context.Context, evts []events.Event) {
	if len(evts) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, evts...); err != nil {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "failed to publish order events",
			slog.Int("events.count", len(evts)), slog.String("error", err.Error()))
	}
}

func validateCreateOrder(input types.CreateOrderInput) error {
	if len(input.Lines) == 0 {
		return domain.ErrEmptyOrder
	}
	if err := (domain.ClientRef{Kind: input.ClientKind, ID: input.ClientID}).Validate(); err != nil {
		return err
	}
	if !stockdomain.ValidTier(input.PriceTier) {
		return stockdomain.ErrInvalidPriceTier
	}
	for _, line := range input.Lines {
		if line.GarmentID <= 0 || line.SizeID <= 0 {
			return domain.ErrInvalidReference
		}
		if line.Quantity <= 0 {
			return domain.ErrInvalidQuantity
		}
	}
	return nil
}

var (
	_ ports.Service        = (*Service)(nil)
	_ ports.PlacementSteps = (*Service)(nil)
)
