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

	"github.com/Apurer/uniform-orders-api/internal/domains/returns/application/types"
	"github.com/Apurer/uniform-orders-api/internal/domains/returns/domain"
	returnsports "github.com/Apurer/uniform-orders-api/internal/domains/returns/ports"
)

const tracerName = "github.com/Apurer/uniform-orders-api/internal/domains/returns/adapters/observability/service"

// Service decorates the returns service with tracing, logging, and metrics.
type Service struct {
	inner   returnsports.Service
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

func New(inner returnsports.Service, opts ...Option) returnsports.Service {
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

func (s *Service) CreateReturn(ctx context.Context, input types.CreateReturnInput) (*domain.Return, error) {
	ctx, span := s.tracer.Start(ctx, "ReturnService.CreateReturn", trace.WithAttributes(
		attribute.String("order.id", input.OrderID.String()),
		attribute.String("return.kind", input.Kind),
		attribute.Int("return.lines", len(input.Lines)),
	))
	defer span.End()

	ret, err := s.inner.CreateReturn(ctx, input)
	if err != nil {
		s.metrics.recordFailure(ctx, input.Kind)
		return nil, s.handleError(ctx, span, err, "failed to create return",
			slog.String("order.id", input.OrderID.String()), slog.String("return.kind", input.Kind))
	}
	units := ret.UnitsReversed()
	span.SetAttributes(attribute.String("return.id", ret.ID.String()), attribute.Int("return.units", units))
	s.metrics.recordCreated(ctx, ret.Kind, units)
	attrs := []slog.Attr{
		slog.String("return.id", ret.ID.String()),
		slog.String("order.id", ret.OrderID.String()),
		slog.String("return.kind", string(ret.Kind)),
		slog.Int("return.units", units),
	}
	if ret.Refund != nil {
		attrs = append(attrs, slog.String("return.refund", ret.Refund.StringFixed(2)))
	}
	s.logInfo(ctx, "return created", attrs...)
	return ret, nil
}

func (s *Service) GetReturn(ctx context.Context, id uuid.UUID) (*domain.Return, error) {
	ctx, span := s.tracer.Start(ctx, "ReturnService.GetReturn", trace.WithAttributes(attribute.String("return.id", id.String())))
	defer span.End()

	ret, err := s.inner.GetReturn(ctx, id)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to get return", slog.String("return.id", id.String()))
	}
	return ret, nil
}

func (s *Service) ListReturns(ctx context.Context, orderID uuid.UUID) ([]*domain.Return, error) {
	ctx, span := s.tracer.Start(ctx, "ReturnService.ListReturns", trace.WithAttributes(attribute.String("order.id", orderID.String())))
	defer span.End()

	returns, err := s.inner.ListReturns(ctx, orderID)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to list returns", slog.String("order.id", orderID.String()))
	}
	span.SetAttributes(attribute.Int("return.count", len(returns)))
	return returns, nil
}

func (s *Service) ListOutstandingExchanges(ctx context.Context) ([]*domain.Return, error) {
	ctx, span := s.tracer.Start(ctx, "ReturnService.ListOutstandingExchanges")
	defer span.End()

	returns, err := s.inner.ListOutstandingExchanges(ctx)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to list outstanding exchanges")
	}
	span.SetAttributes(attribute.Int("return.count", len(returns)))
	return returns, nil
}

func (s *Service) ReconcileExchange(ctx context.Context, input types.ReconcileExchangeInput) (*domain.Return, error) {
	ctx, span := s.tracer.Start(ctx, "ReturnService.ReconcileExchange", trace.WithAttributes(
		attribute.String("return.id", input.ReturnID.String()),
		attribute.String("return.line_id", input.LineID.String()),
		attribute.Int("stock.restocked", input.RestockedQty),
	))
	defer span.End()

	ret, err := s.inner.ReconcileExchange(ctx, input)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to reconcile exchange",
			slog.String("return.id", input.ReturnID.String()), slog.String("return.line_id", input.LineID.String()))
	}
	s.logInfo(ctx, "exchange reconciled", slog.String("return.id", ret.ID.String()), slog.String("return.line_id", input.LineID.String()))
	return ret, nil
}

func (s *Service) logInfo(ctx context.Context, msg string, attrs ...slog.Attr) {
	if s.logger == nil {
		return
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, msg, attrs...)
}

func (s *Service) handleError(ctx context.Context, span trace.Span, err error, msg string, attrs ...slog.Attr) error {
	if span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	if s.logger != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
		s.logger.LogAttrs(ctx, slog.LevelError, msg, attrs...)
	}
	return err
}

type serviceMetrics struct {
	returnsCreated metric.Int64Counter
	unitsReversed  metric.Int64Counter
	failures       metric.Int64Counter
}

func newServiceMetrics(m metric.Meter) serviceMetrics {
	if m == nil {
		return serviceMetrics{}
	}
	created, _ := m.Int64Counter("returns.service.returns_created", metric.WithDescription("Number of returns and exchanges recorded"))
	units, _ := m.Int64Counter("returns.service.units_reversed", metric.WithDescription("Units released back to stock by returns"))
	failures, _ := m.Int64Counter("returns.service.failures", metric.WithDescription("Number of rejected returns"))
	return serviceMetrics{returnsCreated: created, unitsReversed: units, failures: failures}
}

func (m serviceMetrics) recordCreated(ctx context.Context, kind domain.Kind, units int) {
	attrs := metric.WithAttributes(attribute.String("kind", string(kind)))
	if m.returnsCreated != nil {
		m.returnsCreated.Add(ctx, 1, attrs)
	}
	if m.unitsReversed != nil {
		m.unitsReversed.Add(ctx, int64(units), attrs)
	}
}

func (m serviceMetrics) recordFailure(ctx context.Context, kind string) {
	if m.failures != nil {
		m.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
	}
}

var _ returnsports.Service = (*Service)(nil)
