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

	"github.com/Apurer/uniform-orders-api/internal/domains/settlement/application/types"
	"github.com/Apurer/uniform-orders-api/internal/domains/settlement/domain"
	settlementports "github.com/Apurer/uniform-orders-api/internal/domains/settlement/ports"
)

const tracerName = "github.com/Apurer/uniform-orders-api/internal/domains/settlement/adapters/observability/service"

// Service decorates the cash-cut service with tracing, logging, and metrics.
type Service struct {
	inner   settlementports.Service
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

func New(inner settlementports.Service, opts ...Option) settlementports.Service {
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

func (s *Service) OpenCut(ctx context.Context, input types.OpenCutInput) (*domain.CutDetail, error) {
	ctx, span := s.tracer.Start(ctx, "CutService.OpenCut", trace.WithAttributes(
		attribute.String("cut.period_start", input.PeriodStart.String()),
		attribute.String("cut.period_end", input.PeriodEnd.String()),
	))
	defer span.End()

	detail, err := s.inner.OpenCut(ctx, input)
	if err != nil {
		s.metrics.recordFailure(ctx, "open")
		return nil, s.handleError(ctx, span, err, "failed to open cash cut")
	}
	span.SetAttributes(attribute.String("cut.id", detail.Cut.ID.String()), attribute.Int("cut.order_count", detail.Cut.OrderCount))
	s.metrics.recordOpened(ctx, detail.Cut.OrderCount)
	s.logInfo(ctx, "cash cut opened",
		slog.String("cut.id", detail.Cut.ID.String()),
		slog.Int("cut.order_count", detail.Cut.OrderCount),
		slog.String("cut.total", detail.Cut.Total.StringFixed(2)))
	return detail, nil
}

func (s *Service) CloseCut(ctx context.Context, cutID uuid.UUID) (*domain.CashCut, error) {
	ctx, span := s.tracer.Start(ctx, "CutService.CloseCut", trace.WithAttributes(attribute.String("cut.id", cutID.String())))
	defer span.End()

	cut, err := s.inner.CloseCut(ctx, cutID)
	if err != nil {
		s.metrics.recordFailure(ctx, "close")
		return nil, s.handleError(ctx, span, err, "failed to close cash cut", slog.String("cut.id", cutID.String()))
	}
	s.metrics.recordClosed(ctx)
	s.logInfo(ctx, "cash cut closed", slog.String("cut.id", cut.ID.String()), slog.String("cut.total", cut.Total.StringFixed(2)))
	return cut, nil
}

func (s *Service) GetCutDetail(ctx context.Context, cutID uuid.UUID) (*domain.CutDetail, error) {
	ctx, span := s.tracer.Start(ctx, "CutService.GetCutDetail", trace.WithAttributes(attribute.String("cut.id", cutID.String())))
	defer span.End()

	detail, err := s.inner.GetCutDetail(ctx, cutID)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to get cash cut", slog.String("cut.id", cutID.String()))
	}
	return detail, nil
}

func (s *Service) AttachOrder(ctx context.Context, input types.AttachOrderInput) (*domain.CutDetail, error) {
	ctx, span := s.tracer.Start(ctx, "CutService.AttachOrder", trace.WithAttributes(
		attribute.String("cut.id", input.CutID.String()),
		attribute.String("order.id", input.OrderID.String()),
	))
	defer span.End()

	detail, err := s.inner.AttachOrder(ctx, input)
	if err != nil {
		s.metrics.recordFailure(ctx, "attach")
		return nil, s.handleError(ctx, span, err, "failed to attach order to cash cut",
			slog.String("cut.id", input.CutID.String()), slog.String("order.id", input.OrderID.String()))
	}
	s.logInfo(ctx, "order attached to cash cut", slog.String("cut.id", input.CutID.String()), slog.String("order.id", input.OrderID.String()))
	return detail, nil
}

func (s *Service) ListCuts(ctx context.Context) ([]*domain.CashCut, error) {
	ctx, span := s.tracer.Start(ctx, "CutService.ListCuts")
	defer span.End()

	cuts, err := s.inner.ListCuts(ctx)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to list cash cuts")
	}
	span.SetAttributes(attribute.Int("cut.count", len(cuts)))
	return cuts, nil
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
	cutsOpened  metric.Int64Counter
	cutsClosed  metric.Int64Counter
	ordersInCut metric.Int64Counter
	failures    metric.Int64Counter
}

func newServiceMetrics(m metric.Meter) serviceMetrics {
	if m == nil {
		return serviceMetrics{}
	}
	opened, _ := m.Int64Counter("settlement.service.cuts_opened", metric.WithDescription("Number of cash cuts opened"))
	closed, _ := m.Int64Counter("settlement.service.cuts_closed", metric.WithDescription("Number of cash cuts closed"))
	orders, _ := m.Int64Counter("settlement.service.orders_cut", metric.WithDescription("Settled orders associated to a cash cut"))
	failures, _ := m.Int64Counter("settlement.service.failures", metric.WithDescription("Number of failed cash cut operations"))
	return serviceMetrics{cutsOpened: opened, cutsClosed: closed, ordersInCut: orders, failures: failures}
}

func (m serviceMetrics) recordOpened(ctx context.Context, orders int) {
	if m.cutsOpened != nil {
		m.cutsOpened.Add(ctx, 1)
	}
	if m.ordersInCut != nil && orders > 0 {
		m.ordersInCut.Add(ctx, int64(orders))
	}
}

func (m serviceMetrics) recordClosed(ctx context.Context) {
	if m.cutsClosed != nil {
		m.cutsClosed.Add(ctx, 1)
	}
}

func (m serviceMetrics) recordFailure(ctx context.Context, op string) {
	if m.failures != nil {
		m.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", op)))
	}
}

var _ settlementports.Service = (*Service)(nil)
