package main

import (
	"context"
	"log"
	"log/slog"
	"time"

	"github.com/Apurer/uniform-orders-api/internal/app/api"
	"github.com/Apurer/uniform-orders-api/internal/app/sweeper"
	platformobservability "github.com/Apurer/uniform-orders-api/internal/platform/observability"
)

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cfg, err := api.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	if cfg.PostgresDSN == "" {
		log.Fatal("POSTGRES_DSN not set; cannot sweep backorders")
	}
	logger := platformobservability.NewLogger()
	components, cleanup, err := api.Build(ctx, cfg, &platformobservability.Instruments{Logger: logger})
	if err != nil {
		log.Fatalf("failed to wire services: %v", err)
	}
	defer cleanup()

	result, err := sweeper.New(components.Orders, components.Returns, components.Stock, sweeper.WithLogger(logger)).Run(ctx)
	if err != nil {
		logger.Error("backorder sweep failed", slog.String("error", err.Error()))
		log.Fatalf("backorder sweep failed: %v", err)
	}
	log.Printf("backorder sweep completed: %d units granted across %d stock records", result.Granted, len(result.Keys))
}
