package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/motogo-vn/motogo-payments/api/controllers"
	"github.com/motogo-vn/motogo-payments/api/routes"
	"github.com/motogo-vn/motogo-payments/internal/deposits"
	"github.com/motogo-vn/motogo-payments/internal/gatewaycallbacks"
	"github.com/motogo-vn/motogo-payments/internal/idemledger"
	"github.com/motogo-vn/motogo-payments/internal/payments"
	"github.com/motogo-vn/motogo-payments/internal/pos"
	"github.com/motogo-vn/motogo-payments/pkg/booking"
	"github.com/motogo-vn/motogo-payments/pkg/config"
	"github.com/motogo-vn/motogo-payments/pkg/db"
	"github.com/motogo-vn/motogo-payments/pkg/env"
	"github.com/motogo-vn/motogo-payments/pkg/identity"
	"github.com/motogo-vn/motogo-payments/pkg/logger"
	"github.com/motogo-vn/motogo-payments/pkg/metrics"
	"github.com/motogo-vn/motogo-payments/pkg/migrate"
	"github.com/motogo-vn/motogo-payments/pkg/outbox"
	"github.com/motogo-vn/motogo-payments/pkg/redis"
	"github.com/motogo-vn/motogo-payments/pkg/vnpay"
)

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

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessions, err := identity.NewClient(cfg.Identity, redisClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create identity client", err)
		os.Exit(1)
	}

	bookingClient, err := booking.NewClient(cfg.Booking, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create booking client", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	paymentMetrics := metrics.NewPaymentMetrics(registry)

	gateway := vnpay.New(cfg.VNPay)
	emitter := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	paymentsRepo := payments.NewRepository(dbClient.DB())

	paymentsService, err := payments.NewService(paymentsRepo, dbClient, emitter, logg, paymentMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	ledgerService, err := idemledger.NewService(idemledger.NewRepository(dbClient.DB()), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create idempotency ledger", err)
		os.Exit(1)
	}

	posService, err := pos.NewService(paymentsService, paymentsRepo, dbClient, emitter, bookingClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create pos service", err)
		os.Exit(1)
	}

	depositsService, err := deposits.NewService(deposits.NewRepository(dbClient.DB()), paymentsService, dbClient, emitter, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create deposits service", err)
		os.Exit(1)
	}

	callbacksService, err := gatewaycallbacks.NewService(gateway, paymentsService, ledgerService, bookingClient, dbClient, emitter, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create gateway callback service", err)
		os.Exit(1)
	}

	addr := ":" + env.Get("PORT", cfg.App.Port)
	id := env.Get("HOSTNAME", "local")
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting payments api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Dependencies{
			Config:    cfg,
			Logger:    logg,
			Redis:     redisClient,
			Sessions:  sessions,
			Payments:  paymentsService,
			POS:       posService,
			Deposits:  depositsService,
			Callbacks: callbacksService,
			Gateway:   gateway,
			HealthDeps: map[string]controllers.Pinger{
				"database": dbClient,
				"redis":    redisClient,
			},
			PromGatherer: registry,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
