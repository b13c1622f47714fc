package observability

import (
	"context"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Apurer/uniform-orders-api/internal/domains/orders/application/types"
	"github.com/Apurer/uniform-orders-api/internal/domains/orders/domain"
	ordersports "github.com/Apurer/uniform-orders-api/internal/domains/orders/ports"
)

const tracerName = "github.com/Apurer/uniform-orders-api/internal/domains/orders/adapters/observability/service"

// Service decorates the orders service with tracing, logging, and metrics.
type Service struct {
	inner   ordersports.Service
	tracer  trace.Tracer
	logger  *slog.Logger
	metrics serviceMetrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithTracer(tr trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tr
	}
}

func WithMeter(m metric.Meter) Option {
	return func(s *Service) {
		s.metrics = newServiceMetrics(m)
	}
}

// New wraps the core orders service.
func New(inner ordersports.Service, opts ...Option) ordersports.Service {
	s := &Service{
		inner:   inner,
		tracer:  nooptrace.NewTracerProvider().Tracer(tracerName),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics: newServiceMetrics(nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.tracer == nil {
		s.tracer = nooptrace.NewTracerProvider().Tracer(tracerName)
	}
	return s
}

func (s *Service) CreateOrder(ctx context.Context, input types.CreateOrderInput) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.CreateOrder", trace.WithAttributes(
		attribute.String("order.client_kind", string(input.ClientKind)),
		attribute.Int64("order.client_id", input.ClientID),
		attribute.Int("order.lines", len(input.Lines)),
		attribute.Bool("order.idempotent", input.IdempotencyKey != ""),
	))
	defer span.End()

	order, err := s.inner.CreateOrder(ctx, input)
	if err != nil {
		s.metrics.recordFailure(ctx, "create")
		return nil, s.handleError(ctx, span, err, "failed to create order",
			slog.String("order.client_kind", string(input.ClientKind)), slog.Int64("order.client_id", input.ClientID))
	}
	backordered := order.BackorderedUnits()
	span.SetAttributes(attribute.String("order.id", order.ID.String()), attribute.Int("order.backordered_units", backordered))
	s.metrics.recordCreated(ctx, backordered)
	s.logInfo(ctx, "order created",
		slog.String("order.id", order.ID.String()),
		slog.String("order.total", order.Total.StringFixed(2)),
		slog.Int("order.backordered_units", backordered))
	return order, nil
}

func (s *Service) GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.GetOrder", trace.WithAttributes(attribute.String("order.id", id.String())))
	defer span.End()

	order, err := s.inner.GetOrder(ctx, id)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to get order", slog.String("order.id", id.String()))
	}
	return order, nil
}

func (s *Service) ListOrders(ctx context.Context, input types.ListOrdersInput) ([]*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.ListOrders", trace.WithAttributes(attribute.String("order.status", input.Status)))
	defer span.End()

	orders, err := s.inner.ListOrders(ctx, input)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to list orders", slog.String("order.status", input.Status))
	}
	span.SetAttributes(attribute.Int("order.count", len(orders)))
	return orders, nil
}

func (s *Service) ReconcileBackorder(ctx context.Context, input types.ReconcileInput) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.ReconcileBackorder", trace.WithAttributes(
		attribute.String("order.id", input.OrderID.String()),
		attribute.String("order.line_id", input.LineID.String()),
		attribute.Int("stock.restocked", input.RestockedQty),
	))
	defer span.End()

	order, err := s.inner.ReconcileBackorder(ctx, input)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to reconcile backorder",
			slog.String("order.id", input.OrderID.String()), slog.String("order.line_id", input.LineID.String()))
	}
	s.logInfo(ctx, "backorder reconciled",
		slog.String("order.id", order.ID.String()),
		slog.String("order.line_id", input.LineID.String()),
		slog.Int("order.backordered_units", order.BackorderedUnits()))
	return order, nil
}

func (s *Service) ReconcilePending(ctx context.Context, input types.ReconcilePendingInput) (*types.ReconcilePendingResult, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.ReconcilePending", trace.WithAttributes(
		attribute.Int64("stock.garment_id", input.GarmentID),
		attribute.Int64("stock.size_id", input.SizeID),
		attribute.Int("stock.restocked", input.RestockedQty),
	))
	defer span.End()

	result, err := s.inner.ReconcilePending(ctx, input)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to reconcile pending backorders",
			slog.Int64("stock.garment_id", input.GarmentID), slog.Int64("stock.size_id", input.SizeID))
	}
	span.SetAttributes(attribute.Int("order.granted_units", result.Granted))
	s.metrics.recordReconciled(ctx, result.Granted)
	if result.Granted > 0 {
		s.logInfo(ctx, "pending backorders reconciled",
			slog.Int64("stock.garment_id", input.GarmentID),
			slog.Int64("stock.size_id", input.SizeID),
			slog.Int("order.lines", len(result.Lines)),
			slog.Int("order.granted_units", result.Granted))
	}
	return result, nil
}

func (s *Service) AdvanceState(ctx context.Context, input types.AdvanceStateInput) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.AdvanceState", trace.WithAttributes(
		attribute.String("order.id", input.OrderID.String()),
		attribute.String("order.target_status", string(input.Target)),
	))
	defer span.End()

	order, err := s.inner.AdvanceState(ctx, input)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to advance order state",
			slog.String("order.id", input.OrderID.String()), slog.String("order.target_status", string(input.Target)))
	}
	s.metrics.recordTransition(ctx, order.Status)
	s.logInfo(ctx, "order state advanced", slog.String("order.id", order.ID.String()), slog.String("order.status", string(order.Status)))
	return order, nil
}

func (s *Service) Settle(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.Settle", trace.WithAttributes(attribute.String("order.id", id.String())))
	defer span.End()

	order, err := s.inner.Settle(ctx, id)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to settle order", slog.String("order.id", id.String()))
	}
	s.metrics.recordTransition(ctx, order.Status)
	s.logInfo(ctx, "order settled", slog.String("order.id", order.ID.String()))
	return order, nil
}

func (s *Service) RecordPayment(ctx context.Context, input types.RecordPaymentInput) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.RecordPayment", trace.WithAttributes(attribute.String("order.id", input.OrderID.String())))
	defer span.End()

	order, err := s.inner.RecordPayment(ctx, input)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to record payment", slog.String("order.id", input.OrderID.String()))
	}
	s.logInfo(ctx, "payment recorded", slog.String("order.id", order.ID.String()), slog.String("order.payment", input.Amount.StringFixed(2)))
	return order, nil
}

func (s *Service) logInfo(ctx context.Context, msg string, attrs ...slog.Attr) {
	if s.logger == nil {
		return
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, msg, attrs...)
}

func (s *Service) logError(ctx context.Context, msg string, err error, attrs ...slog.Attr) {
	if s.logger == nil {
		return
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	s.logger.LogAttrs(ctx, slog.LevelError, msg, attrs...)
}

func (s *Service) handleError(ctx context.Context, span trace.Span, err error, msg string, attrs ...slog.Attr) error {
	if span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	s.logError(ctx, msg, err, attrs...)
	return err
}

type serviceMetrics struct {
	ordersCreated    metric.Int64Counter
	orderFailures    metric.Int64Counter
	backorderedUnits metric.Int64Counter
	reconciledUnits  metric.Int64Counter
	transitions      metric.Int64Counter
}

func newServiceMetrics(m metric.Meter) serviceMetrics {
	if m == nil {
		return serviceMetrics{}
	}
	created, _ := m.Int64Counter("orders.service.orders_created", metric.WithDescription("Number of orders placed"))
	failures, _ := m.Int64Counter("orders.service.failures", metric.WithDescription("Number of failed order operations"))
	backordered, _ := m.Int64Counter("orders.service.units_backordered", metric.WithDescription("Units left on backorder at placement"))
	reconciled, _ := m.Int64Counter("orders.service.units_reconciled", metric.WithDescription("Backordered units fulfilled after a restock"))
	transitions, _ := m.Int64Counter("orders.service.transitions", metric.WithDescription("Order state transitions by target status"))
	return serviceMetrics{
		ordersCreated:    created,
		orderFailures:    failures,
		backorderedUnits: backordered,
		reconciledUnits:  reconciled,
		transitions:      transitions,
	}
}

func (m serviceMetrics) recordCreated(ctx context.Context, backordered int) {
	if m.ordersCreated != nil {
		m.ordersCreated.Add(ctx, 1)
	}
	if m.backorderedUnits != nil && backordered > 0 {
		m.backorderedUnits.Add(ctx, int64(backordered))
	}
}

func (m serviceMetrics) recordFailure(ctx context.Context, op string) {
	if m.orderFailures != nil {
		m.orderFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", op)))
	}
}

func (m serviceMetrics) recordReconciled(ctx context.Context, units int) {
	if m.reconciledUnits != nil && units > 0 {
		m.reconciledUnits.Add(ctx, int64(units))
	}
}

func (m serviceMetrics) recordTransition(ctx context.Context, status domain.Status) {
	if m.transitions != nil {
		m.transitions.Add(ctx, 1, metric.WithAttributes(attribute.String("status", string(status))))
	}
}

var _ ordersports.Service = (*Service)(nil)
