package observability

import (
	"context"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	stockdomain "github.com/Apurer/uniform-orders-api/internal/domains/stock/domain"
	stockports "github.com/Apurer/uniform-orders-api/internal/domains/stock/ports"
)

const tracerName = "github.com/Apurer/uniform-orders-api/internal/domains/stock/adapters/observability/service"

// Service decorates the stock ledger with tracing, logging, and metrics.
type Service struct {
	inner   stockports.Service
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

// New wraps the core stock service.
func New(inner stockports.Service, opts ...Option) stockports.Service {
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

func (s *Service) Read(ctx context.Context, garmentID, sizeID int64) (*stockdomain.StockRecord, error) {
	ctx, span := s.tracer.Start(ctx, "StockService.Read", trace.WithAttributes(keyAttrs(garmentID, sizeID)...))
	defer span.End()

	result, err := s.inner.Read(ctx, garmentID, sizeID)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to read stock", keyLogAttrs(garmentID, sizeID)...)
	}
	span.SetAttributes(attribute.Int("stock.on_hand", result.OnHand))
	return result, nil
}

func (s *Service) TryReserve(ctx context.Context, garmentID, sizeID int64, quantity int) (int, error) {
	ctx, span := s.tracer.Start(ctx, "StockService.TryReserve",
		trace.WithAttributes(append(keyAttrs(garmentID, sizeID), attribute.Int("stock.requested", quantity))...))
	defer span.End()

	granted, err := s.inner.TryReserve(ctx, garmentID, sizeID, quantity)
	if err != nil {
		return 0, s.handleError(ctx, span, err, "failed to reserve stock",
			append(keyLogAttrs(garmentID, sizeID), slog.Int("stock.requested", quantity))...)
	}
	span.SetAttributes(attribute.Int("stock.granted", granted))
	s.metrics.recordReserved(ctx, quantity, granted)
	s.logInfo(ctx, "stock reserved",
		append(keyLogAttrs(garmentID, sizeID), slog.Int("stock.requested", quantity), slog.Int("stock.granted", granted))...)
	return granted, nil
}

func (s *Service) Restock(ctx context.Context, garmentID, sizeID int64, quantity int) (int, error) {
	ctx, span := s.tracer.Start(ctx, "StockService.Restock",
		trace.WithAttributes(append(keyAttrs(garmentID, sizeID), attribute.Int("stock.quantity", quantity))...))
	defer span.End()

	onHand, err := s.inner.Restock(ctx, garmentID, sizeID, quantity)
	if err != nil {
		return 0, s.handleError(ctx, span, err, "failed to restock", keyLogAttrs(garmentID, sizeID)...)
	}
	s.metrics.recordRestocked(ctx, quantity)
	s.logInfo(ctx, "stock restocked",
		append(keyLogAttrs(garmentID, sizeID), slog.Int("stock.quantity", quantity), slog.Int("stock.on_hand", onHand))...)
	return onHand, nil
}

func (s *Service) Release(ctx context.Context, garmentID, sizeID int64, quantity int) error {
	ctx, span := s.tracer.Start(ctx, "StockService.Release",
		trace.WithAttributes(append(keyAttrs(garmentID, sizeID), attribute.Int("stock.quantity", quantity))...))
	defer span.End()

	if err := s.inner.Release(ctx, garmentID, sizeID, quantity); err != nil {
		return s.handleError(ctx, span, err, "failed to release stock", keyLogAttrs(garmentID, sizeID)...)
	}
	s.metrics.recordReleased(ctx, quantity)
	s.logInfo(ctx, "stock released", append(keyLogAttrs(garmentID, sizeID), slog.Int("stock.quantity", quantity))...)
	return nil
}

func (s *Service) Define(ctx context.Context, input stockports.DefineInput) (*stockdomain.StockRecord, error) {
	ctx, span := s.tracer.Start(ctx, "StockService.Define", trace.WithAttributes(keyAttrs(input.GarmentID, input.SizeID)...))
	defer span.End()

	result, err := s.inner.Define(ctx, input)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to define stock record", keyLogAttrs(input.GarmentID, input.SizeID)...)
	}
	s.logInfo(ctx, "stock record defined", append(keyLogAttrs(input.GarmentID, input.SizeID), slog.String("stock.id", result.ID.String()))...)
	return result, nil
}

func (s *Service) Deactivate(ctx context.Context, garmentID, sizeID int64) error {
	ctx, span := s.tracer.Start(ctx, "StockService.Deactivate", trace.WithAttributes(keyAttrs(garmentID, sizeID)...))
	defer span.End()

	if err := s.inner.Deactivate(ctx, garmentID, sizeID); err != nil {
		return s.handleError(ctx, span, err, "failed to deactivate stock record", keyLogAttrs(garmentID, sizeID)...)
	}
	s.logInfo(ctx, "stock record deactivated", keyLogAttrs(garmentID, sizeID)...)
	return nil
}

func (s *Service) ListBelowThreshold(ctx context.Context) ([]*stockdomain.StockRecord, error) {
	ctx, span := s.tracer.Start(ctx, "StockService.ListBelowThreshold")
	defer span.End()

	result, err := s.inner.ListBelowThreshold(ctx)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to list low stock")
	}
	span.SetAttributes(attribute.Int("stock.low.count", len(result)))
	return result, nil
}

func keyAttrs(garmentID, sizeID int64) []attribute.KeyValue {
	return []attribute.KeyValue{attribute.Int64("stock.garment_id", garmentID), attribute.Int64("stock.size_id", sizeID)}
}

func keyLogAttrs(garmentID, sizeID int64) []slog.Attr {
	return []slog.Attr{slog.Int64("stock.garment_id", garmentID), slog.Int64("stock.size_id", sizeID)}
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
	unitsRequested metric.Int64Counter
	unitsGranted   metric.Int64Counter
	unitsRestocked metric.Int64Counter
	unitsReleased  metric.Int64Counter
}

func newServiceMetrics(m metric.Meter) serviceMetrics {
	if m == nil {
		return serviceMetrics{}
	}
	requested, _ := m.Int64Counter("stock.service.units_requested", metric.WithDescription("Units requested from the stock ledger"))
	granted, _ := m.Int64Counter("stock.service.units_reserved", metric.WithDescription("Units granted by the stock ledger"))
	restocked, _ := m.Int64Counter("stock.service.units_restocked", metric.WithDescription("Units added by restocks"))
	released, _ := m.Int64Counter("stock.service.units_released", metric.WithDescription("Units put back by returns, cancellations, and compensations"))
	return serviceMetrics{unitsRequested: requested, unitsGranted: granted, unitsRestocked: restocked, unitsReleased: released}
}

func (m serviceMetrics) recordReserved(ctx context.Context, requested, granted int) {
	if m.unitsRequested != nil {
		m.unitsRequested.Add(ctx, int64(requested))
	}
	if m.unitsGranted != nil {
		m.unitsGranted.Add(ctx, int64(granted))
	}
}

func (m serviceMetrics) recordRestocked(ctx context.Context, quantity int) {
	if m.unitsRestocked != nil {
		m.unitsRestocked.Add(ctx, int64(quantity))
	}
}

func (m serviceMetrics) recordReleased(ctx context.Context, quantity int) {
	if m.unitsReleased != nil {
		m.unitsReleased.Add(ctx, int64(quantity))
	}
}

var _ stockports.Service = (*Service)(nil)
