package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/motogo-vn/motogo-payments/internal/consumers/intents"
	"github.com/motogo-vn/motogo-payments/internal/idemledger"
	"github.com/motogo-vn/motogo-payments/internal/payments"
	"github.com/motogo-vn/motogo-payments/pkg/config"
	"github.com/motogo-vn/motogo-payments/pkg/db"
	"github.com/motogo-vn/motogo-payments/pkg/logger"
	"github.com/motogo-vn/motogo-payments/pkg/metrics"
	"github.com/motogo-vn/motogo-payments/pkg/migrate"
	"github.com/motogo-vn/motogo-payments/pkg/outbox"
	"github.com/motogo-vn/motogo-payments/pkg/outbox/idempotency"
	"github.com/motogo-vn/motogo-payments/pkg/pubsub"
	"github.com/motogo-vn/motogo-payments/pkg/redis"
)

// Redis guard TTL for processed intent event IDs. The DB ledger stays
// authoritative long after the key expires.
const processedGuardTTL = 48 * time.Hour

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "intents-worker"})

	_ = godotenv.Load()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "intents-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	err = migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient)
	requireResource(ctx, logg, "dev migrations", err)

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer redisClient.Close()

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	requireResource(ctx, logg, "pubsub", err)
	defer pubsubClient.Close()

	registry := prometheus.NewRegistry()
	paymentMetrics := metrics.NewPaymentMetrics(registry)
	consumerMetrics := metrics.NewConsumerMetrics(registry)

	emitter := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	paymentsService, err := payments.NewService(payments.NewRepository(dbClient.DB()), dbClient, emitter, logg, paymentMetrics)
	requireResource(ctx, logg, "payments service", err)

	ledgerService, err := idemledger.NewService(idemledger.NewRepository(dbClient.DB()), logg)
	requireResource(ctx, logg, "idempotency ledger", err)

	guard, err := idempotency.NewManager(redisClient, processedGuardTTL)
	requireResource(ctx, logg, "idempotency guard", err)

	intentConsumer, err := intents.NewConsumer(
		paymentsService,
		ledgerService,
		dbClient,
		guard,
		pubsubClient.IntentSubscription(),
		logg,
		consumerMetrics,
	)
	requireResource(ctx, logg, "intent consumer", err)

	service, err := NewService(ServiceParams{
		Config:         cfg,
		Logger:         logg,
		DB:             dbClient,
		Redis:          redisClient,
		PubSub:         pubsubClient,
		IntentConsumer: intentConsumer,
	})
	requireResource(ctx, logg, "worker service", err)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": "intents-worker",
	})
	logg.Info(runCtx, "starting intents worker")

	if err := service.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "intents worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(runCtx, "intents worker shutting down gracefully")
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
