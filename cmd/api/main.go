package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/kitchenstock-backend/api/routes"
	"github.com/angelmondragon/kitchenstock-backend/internal/alerts"
	"github.com/angelmondragon/kitchenstock-backend/internal/ingredients"
	"github.com/angelmondragon/kitchenstock-backend/internal/ledger"
	"github.com/angelmondragon/kitchenstock-backend/internal/notifications"
	"github.com/angelmondragon/kitchenstock-backend/internal/orders"
	"github.com/angelmondragon/kitchenstock-backend/internal/receiving"
	"github.com/angelmondragon/kitchenstock-backend/internal/recipes"
	"github.com/angelmondragon/kitchenstock-backend/pkg/config"
	"github.com/angelmondragon/kitchenstock-backend/pkg/db"
	"github.com/angelmondragon/kitchenstock-backend/pkg/logger"
	"github.com/angelmondragon/kitchenstock-backend/pkg/metrics"
	"github.com/angelmondragon/kitchenstock-backend/pkg/migrate"
	"github.com/angelmondragon/kitchenstock-backend/pkg/redis"
	"github.com/angelmondragon/kitchenstock-backend/pkg/tracing"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	shutdownTracing, err := tracing.Init(context.Background(), cfg.Tracing, "api", cfg.App.Env)
	if err != nil {
		logg.Error(context.Background(), "failed to initialise tracing", err)
		os.Exit(1)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logg.Error(context.Background(), "error flushing spans", err)
		}
	}()

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	var redisClient *redis.Client
	if cfg.Redis.Configured() {
		redisClient, err = redis.New(context.Background(), cfg.Redis, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
	} else {
		logg.Warn(context.Background(), "redis not configured, idempotency keys and event fan-out disabled")
	}

	var notifier notifications.Notifier = notifications.Noop{}
	if cfg.Notifier.Enabled && redisClient != nil {
		redisNotifier, err := notifications.NewRedisNotifier(redisClient, redisClient.ChannelKey(cfg.Notifier.Channel))
		if err != nil {
			logg.Error(context.Background(), "failed to create notifier", err)
			os.Exit(1)
		}
		notifier = redisNotifier
	}

	location, err := cfg.Inventory.Location()
	if err != nil {
		logg.Error(context.Background(), "failed to resolve business timezone", err)
		os.Exit(1)
	}
	ratio := decimal.NewFromFloat(cfg.Inventory.LowStockRatio)

	stockLedger, err := ledger.New(ledger.Params{
		DB:      dbClient,
		Logger:  logg,
		Metrics: metrics.NewLedgerMetrics(prometheus.DefaultRegisterer),
		Mode:    cfg.Inventory.TransactionMode,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create stock ledger", err)
		os.Exit(1)
	}

	ingredientRepo := ingredients.NewRepository(dbClient.DB())
	ingredientService, err := ingredients.NewService(ingredientRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create ingredients service", err)
		os.Exit(1)
	}

	recipeRepo := recipes.NewRepository(dbClient.DB())
	recipeService, err := recipes.NewService(recipeRepo, ingredientRepo, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create recipes service", err)
		os.Exit(1)
	}
	resolver, err := recipes.NewResolver(recipeRepo, ingredientRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create requirement resolver", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(orders.ServiceParams{
		Repo:     orders.NewRepository(dbClient.DB()),
		Resolver: resolver,
		Ledger:   stockLedger,
		Notifier: notifier,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	alertEngine, err := alerts.NewEngine(alerts.Params{
		Repo:                 alerts.NewRepository(dbClient.DB()),
		Ingredients:          ingredientRepo,
		Notifier:             notifier,
		Logger:               logg,
		Ratio:                ratio,
		ReopenResolvedAlerts: cfg.Inventory.ReopenResolvedAlerts,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create low stock engine", err)
		os.Exit(1)
	}

	reconciler, err := receiving.NewReconciler(receiving.Params{
		Repo:        receiving.NewRepository(dbClient.DB()),
		Ingredients: ingredientRepo,
		Ledger:      stockLedger,
		Alerts:      alertEngine,
		DB:          dbClient,
		Logger:      logg,
		Ratio:       ratio,
		Location:    location,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create receiving reconciler", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":             cfg.App.Env,
		"addr":            addr,
		"db_driver":       cfg.DB.Driver,
		"tx_mode":         cfg.Inventory.TransactionMode,
		"transactional":   stockLedger.Transactional(),
		"low_stock_ratio": cfg.Inventory.LowStockRatio,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			ingredientService,
			recipeService,
			resolver,
			ordersService,
			alertEngine,
			reconciler,
		),
	}

	if err := serve(ctx, server, logg); err != nil {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server shut down gracefully")
}

// serve runs server until SIGINT or SIGTERM, then drains in-flight requests so
// the deferred database, redis and tracing cleanup in main still runs.
func serve(ctx context.Context, server *http.Server, logg *logger.Logger) error {
	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-sigCtx.Done():
		logg.Info(ctx, "shutdown signal received, draining requests")
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(drainCtx); err != nil {
		return err
	}
	return <-errCh
}
