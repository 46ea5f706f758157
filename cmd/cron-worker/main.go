package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/kitchenstock-backend/internal/alerts"
	"github.com/angelmondragon/kitchenstock-backend/internal/cron"
	"github.com/angelmondragon/kitchenstock-backend/internal/ingredients"
	"github.com/angelmondragon/kitchenstock-backend/internal/notifications"
	"github.com/angelmondragon/kitchenstock-backend/pkg/config"
	"github.com/angelmondragon/kitchenstock-backend/pkg/db"
	"github.com/angelmondragon/kitchenstock-backend/pkg/logger"
	"github.com/angelmondragon/kitchenstock-backend/pkg/metrics"
	"github.com/angelmondragon/kitchenstock-backend/pkg/migrate"
	"github.com/angelmondragon/kitchenstock-backend/pkg/redis"
	"github.com/angelmondragon/kitchenstock-backend/pkg/tracing"
)

const (
	lockKeyFormat     = "cron-worker:%s"
	traceFlushTimeout = 10 * time.Second
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	shutdownTracing, err := tracing.Init(context.Background(), cfg.Tracing, "cron-worker", cfg.App.Env)
	if err != nil {
		logg.Error(context.Background(), "failed to initialise tracing", err)
		os.Exit(1)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), traceFlushTimeout)
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

	alertEngine, err := alerts.NewEngine(alerts.Params{
		Repo:                 alerts.NewRepository(dbClient.DB()),
		Ingredients:          ingredients.NewRepository(dbClient.DB()),
		Notifier:             notifier,
		Logger:               logg,
		Ratio:                decimal.NewFromFloat(cfg.Inventory.LowStockRatio),
		ReopenResolvedAlerts: cfg.Inventory.ReopenResolvedAlerts,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create low stock engine", err)
		os.Exit(1)
	}

	scanJob, err := cron.NewLowStockScanJob(cron.LowStockScanJobParams{
		Logger:  logg,
		Scanner: alertEngine,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create low stock scan job", err)
		os.Exit(1)
	}

	// a single replica may run without redis; several need the shared lock.
	var lock cron.Lock = &cron.LocalLock{}
	if redisClient != nil {
		redisLock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(lockKey(cfg.App.Env)), cfg.Cron.LockTTL)
		if err != nil {
			logg.Error(context.Background(), "failed to create cron lock", err)
			os.Exit(1)
		}
		lock = redisLock
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:     logg,
		Registry:   cron.NewRegistry(scanJob),
		Lock:       lock,
		Metrics:    metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval:   cfg.Cron.Interval,
		JobTimeout: cfg.Cron.JobTimeout,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"interval":    cfg.Cron.Interval.String(),
		"sharedLock":  redisClient != nil,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
