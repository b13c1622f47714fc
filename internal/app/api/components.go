package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"gorm.io/gorm"

	catalogclient "github.com/Apurer/uniform-orders-api/internal/clients/http/catalog"
	catalogcache "github.com/Apurer/uniform-orders-api/internal/domains/catalog/adapters/cache"
	catalogremote "github.com/Apurer/uniform-orders-api/internal/domains/catalog/adapters/external/remote"
	catalogmemory "github.com/Apurer/uniform-orders-api/internal/domains/catalog/adapters/memory"
	catalogports "github.com/Apurer/uniform-orders-api/internal/domains/catalog/ports"
	ordersmemory "github.com/Apurer/uniform-orders-api/internal/domains/orders/adapters/memory"
	ordersobs "github.com/Apurer/uniform-orders-api/internal/domains/orders/adapters/observability"
	orderspg "github.com/Apurer/uniform-orders-api/internal/domains/orders/adapters/persistence/postgres"
	ordersredis "github.com/Apurer/uniform-orders-api/internal/domains/orders/adapters/persistence/redis"
	ordersapp "github.com/Apurer/uniform-orders-api/internal/domains/orders/application"
	ordersports "github.com/Apurer/uniform-orders-api/internal/domains/orders/ports"
	returnsmemory "github.com/Apurer/uniform-orders-api/internal/domains/returns/adapters/memory"
	returnsobs "github.com/Apurer/uniform-orders-api/internal/domains/returns/adapters/observability"
	returnspg "github.com/Apurer/uniform-orders-api/internal/domains/returns/adapters/persistence/postgres"
	returnsapp "github.com/Apurer/uniform-orders-api/internal/domains/returns/application"
	returnsports "github.com/Apurer/uniform-orders-api/internal/domains/returns/ports"
	settlementmemory "github.com/Apurer/uniform-orders-api/internal/domains/settlement/adapters/memory"
	settlementobs "github.com/Apurer/uniform-orders-api/internal/domains/settlement/adapters/observability"
	settlementpg "github.com/Apurer/uniform-orders-api/internal/domains/settlement/adapters/persistence/postgres"
	settlementsource "github.com/Apurer/uniform-orders-api/internal/domains/settlement/adapters/source"
	settlementapp "github.com/Apurer/uniform-orders-api/internal/domains/settlement/application"
	settlementports "github.com/Apurer/uniform-orders-api/internal/domains/settlement/ports"
	stockmemory "github.com/Apurer/uniform-orders-api/internal/domains/stock/adapters/memory"
	stockobs "github.com/Apurer/uniform-orders-api/internal/domains/stock/adapters/observability"
	stockpg "github.com/Apurer/uniform-orders-api/internal/domains/stock/adapters/persistence/postgres"
	stockapp "github.com/Apurer/uniform-orders-api/internal/domains/stock/application"
	stockports "github.com/Apurer/uniform-orders-api/internal/domains/stock/ports"
	"github.com/Apurer/uniform-orders-api/internal/platform/kafka"
	"github.com/Apurer/uniform-orders-api/internal/platform/migrations"
	platformobservability "github.com/Apurer/uniform-orders-api/internal/platform/observability"
	platformpostgres "github.com/Apurer/uniform-orders-api/internal/platform/postgres"
	platformredis "github.com/Apurer/uniform-orders-api/internal/platform/redis"
	"github.com/Apurer/uniform-orders-api/internal/shared/events"
)

// Components are the wired services of every bounded context, decorated with
// tracing, logging, and metrics.
type Components struct {
	Stock   stockports.Service
	Orders  ordersports.Service
	Returns returnsports.Service
	Cuts    settlementports.Service
	// Placement exposes the individual saga steps to the Temporal worker.
	Placement ordersports.PlacementSteps
	Logger    *slog.Logger
}

// Build wires repositories, collaborators, and services from cfg. Missing
// backends fall back to in-memory adapters with a warning. The returned
// cleanup closes every connection that was opened.
func Build(ctx context.Context, cfg Config, instruments *platformobservability.Instruments) (*Components, func(), error) {
	logger := effectiveLogger(instruments)
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	db := connectPostgres(ctx, cfg, logger)
	if db != nil {
		if sqlDB, err := db.DB(); err == nil {
			cleanups = append(cleanups, func() { _ = sqlDB.Close() })
		}
		if err := migrations.Run(db); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("apply migrations: %w", err)
		}
	}

	publisher, closePublisher := buildPublisher(cfg, logger)
	cleanups = append(cleanups, closePublisher)

	catalog, directory, err := buildCatalog(cfg, logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	var (
		stockLedger stockports.Ledger = stockmemory.NewLedger()
		orderRepo   ordersports.Repository = ordersmemory.NewRepository()
		returnRepo  returnsports.Repository = returnsmemory.NewRepository()
		cutRepo     settlementports.Repository = settlementmemory.NewRepository()
	)
	if db != nil {
		stockLedger = stockpg.NewLedger(db)
		orderRepo = orderspg.NewRepository(db)
		returnRepo = returnspg.NewRepository(db)
		cutRepo = settlementpg.NewRepository(db)
	}
	idempotency, closeIdempotency := buildIdempotencyStore(ctx, cfg, db, logger)
	cleanups = append(cleanups, closeIdempotency)

	stock := stockobs.New(
		stockapp.NewService(stockLedger, stockapp.WithMaxAttempts(cfg.StockMaxAttempts)),
		stockobs.WithLogger(logger),
		stockobs.WithTracer(instruments.Tracer("internal.stock.application")),
		stockobs.WithMeter(instruments.Meter("internal.stock.application")),
	)
	coreOrders := ordersapp.NewService(orderRepo, stock, catalog, directory,
		ordersapp.WithIdempotencyStore(idempotency),
		ordersapp.WithEventPublisher(publisher),
		ordersapp.WithLogger(logger),
	)
	orders := ordersobs.New(coreOrders,
		ordersobs.WithLogger(logger),
		ordersobs.WithTracer(instruments.Tracer("internal.orders.application")),
		ordersobs.WithMeter(instruments.Meter("internal.orders.application")),
	)
	returns := returnsobs.New(
		returnsapp.NewService(returnRepo, orders, stock,
			returnsapp.WithCatalog(catalog),
			returnsapp.WithEventPublisher(publisher),
			returnsapp.WithLogger(logger),
		),
		returnsobs.WithLogger(logger),
		returnsobs.WithTracer(instruments.Tracer("internal.returns.application")),
		returnsobs.WithMeter(instruments.Meter("internal.returns.application")),
	)
	cuts := settlementobs.New(
		settlementapp.NewService(cutRepo, settlementsource.NewOrders(orderRepo),
			settlementapp.WithEventPublisher(publisher),
			settlementapp.WithLogger(logger),
		),
		settlementobs.WithLogger(logger),
		settlementobs.WithTracer(instruments.Tracer("internal.settlement.application")),
		settlementobs.WithMeter(instruments.Meter("internal.settlement.application")),
	)

	return &Components{
		Stock:     stock,
		Orders:    orders,
		Returns:   returns,
		Cuts:      cuts,
		Placement: coreOrders,
		Logger:    logger,
	}, cleanup, nil
}

func connectPostgres(ctx context.Context, cfg Config, logger *slog.Logger) *gorm.DB {
	if cfg.PostgresDSN == "" {
		logger.Warn("POSTGRES_DSN not set, falling back to in-memory repositories")
		return nil
	}
	db, err := platformpostgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Warn("failed to connect to postgres, falling back to memory", slog.String("error", err.Error()))
		return nil
	}
	logger.Info("repositories configured with postgres")
	return db
}

func buildPublisher(cfg Config, logger *slog.Logger) (events.Publisher, func()) {
	if len(cfg.KafkaBrokers) == 0 {
		logger.Info("KAFKA_BROKERS not set, domain events are dropped")
		return events.NopPublisher{}, func() {}
	}
	publisher, err := kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, kafka.WithLogger(logger))
	if err != nil {
		logger.Warn("failed to configure kafka publisher, domain events are dropped", slog.String("error", err.Error()))
		return events.NopPublisher{}, func() {}
	}
	logger.Info("domain events published to kafka", slog.String("topic", cfg.KafkaTopic))
	return publisher, func() {
		if err := publisher.Close(); err != nil {
			logger.Warn("failed to close kafka publisher", slog.String("error", err.Error()))
		}
	}
}

func buildCatalog(cfg Config, logger *slog.Logger) (catalogports.Catalog, catalogports.ClientDirectory, error) {
	if cfg.CatalogBaseURL != "" {
		httpClient := &http.Client{Timeout: 5 * time.Second, Transport: otelhttp.NewTransport(http.DefaultTransport)}
		c, err := catalogclient.NewCatalogClient(cfg.CatalogBaseURL, httpClient)
		if err != nil {
			return nil, nil, fmt.Errorf("configure catalog client: %w", err)
		}
		remote := catalogremote.NewCatalog(c)
		cached := catalogcache.New(remote, remote, cfg.CatalogCacheTTL)
		logger.Info("catalog served by remote service", slog.String("baseURL", cfg.CatalogBaseURL))
		return cached, cached, nil
	}
	store := catalogmemory.NewStore()
	if cfg.CatalogSeedFile == "" {
		logger.Warn("neither CATALOG_BASE_URL nor CATALOG_SEED_FILE set, catalog starts empty")
		return store, store, nil
	}
	if err := store.LoadSeedFile(cfg.CatalogSeedFile); err != nil {
		return nil, nil, err
	}
	logger.Info("catalog loaded from seed file", slog.String("path", cfg.CatalogSeedFile))
	return store, store, nil
}

// buildIdempotencyStore prefers Redis, then Postgres, then memory.
func buildIdempotencyStore(ctx context.Context, cfg Config, db *gorm.DB, logger *slog.Logger) (ordersports.IdempotencyStore, func()) {
	if cfg.RedisAddr != "" {
		rdb, closeRedis := platformredis.ConnectOptional(ctx, cfg.RedisAddr, logger)
		if rdb != nil {
			return ordersredis.NewIdempotencyStore(rdb, cfg.IdempotencyTTL), closeRedis
		}
	}
	if db != nil {
		return orderspg.NewIdempotencyStore(db), func() {}
	}
	return ordersmemory.NewIdempotencyStore(), func() {}
}

var errTemporalDisabled = errors.New("temporal disabled via TEMPORAL_DISABLED env")
