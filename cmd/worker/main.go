package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/worker"

	"github.com/Apurer/uniform-orders-api/internal/app/api"
	platformobservability "github.com/Apurer/uniform-orders-api/internal/platform/observability"
	orderactivities "github.com/Apurer/uniform-orders-api/internal/platform/temporal/activities/orders"
	orderworkflows "github.com/Apurer/uniform-orders-api/internal/platform/temporal/workflows/orders"
)

func main() {
	ctx := context.Background()
	const serviceName = "uniform-orders-worker"
	cfg, err := api.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	instruments, shutdown, err := platformobservability.Init(ctx, serviceName)
	if err != nil {
		log.Fatalf("failed to initialize observability: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			instruments.Logger.Error("failed to shutdown observability", slog.String("error", err.Error()))
		}
	}()
	logger := instruments.Logger

	components, cleanup, err := api.Build(ctx, cfg, instruments)
	if err != nil {
		logger.Error("failed to wire services", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer cleanup()
	if cfg.PostgresDSN == "" {
		logger.Warn("worker running on in-memory repositories; placements will not be visible to the API")
	}
	placementActivities := orderactivities.NewActivities(components.Placement)

	temporalClient, err := api.ConnectTemporalClient(cfg, instruments, "temporal-worker")
	if err != nil {
		logger.Error("failed to create Temporal client", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer temporalClient.Close()

	w := worker.New(temporalClient, orderworkflows.PlacementTaskQueue, worker.Options{})
	w.RegisterWorkflowWithOptions(orderworkflows.PlacementWorkflow, orderworkflows.RegisterOptions())
	w.RegisterActivityWithOptions(placementActivities.PrepareOrder, activity.RegisterOptions{Name: orderactivities.PrepareOrderActivityName})
	w.RegisterActivityWithOptions(placementActivities.ReserveLine, activity.RegisterOptions{Name: orderactivities.ReserveLineActivityName})
	w.RegisterActivityWithOptions(placementActivities.ReleaseLine, activity.RegisterOptions{Name: orderactivities.ReleaseLineActivityName})
	w.RegisterActivityWithOptions(placementActivities.PersistOrder, activity.RegisterOptions{Name: orderactivities.PersistOrderActivityName})

	logger.Info("worker listening", slog.String("taskQueue", orderworkflows.PlacementTaskQueue), slog.String("namespace", cfg.TemporalNamespace))
	if err := w.Run(worker.InterruptCh()); err != nil {
		logger.Error("Temporal worker exited with error", slog.String("error", err.Error()))
		return
	}
	logger.Info("Temporal worker stopped")
}
