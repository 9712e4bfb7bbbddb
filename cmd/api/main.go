package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/gestiq/gestiq-backend/api/controllers"
	"github.com/gestiq/gestiq-backend/api/routes"
	"github.com/gestiq/gestiq-backend/internal/conversion"
	"github.com/gestiq/gestiq-backend/internal/documents"
	"github.com/gestiq/gestiq-backend/internal/interventions"
	"github.com/gestiq/gestiq-backend/internal/inventory"
	"github.com/gestiq/gestiq-backend/internal/reservation"
	"github.com/gestiq/gestiq-backend/pkg/config"
	"github.com/gestiq/gestiq-backend/pkg/db"
	"github.com/gestiq/gestiq-backend/pkg/logger"
	"github.com/gestiq/gestiq-backend/pkg/metrics"
	"github.com/gestiq/gestiq-backend/pkg/migrate"
	"github.com/gestiq/gestiq-backend/pkg/outbox"
	"github.com/gestiq/gestiq-backend/pkg/redis"
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

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	httpMetrics := metrics.NewHTTPMetrics(prometheus.DefaultRegisterer)
	stockMetrics := metrics.NewStockMetrics(prometheus.DefaultRegisterer)

	gormDB := dbClient.DB()
	outboxService := outbox.NewService(outbox.NewRepository(gormDB), logg)
	numbers := documents.NewNumberAllocator(gormDB)

	inventoryRepo := inventory.NewRepository(gormDB)
	inventoryService, err := inventory.NewService(inventoryRepo, dbClient, outboxService, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory service", err)
		os.Exit(1)
	}

	reservationService, err := reservation.NewService(interventions.NewLineStore(gormDB), inventoryRepo, logg, stockMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create reservation service", err)
		os.Exit(1)
	}

	interventionRepo := interventions.NewRepository(gormDB)
	interventionService, err := interventions.NewService(interventionRepo, inventoryRepo, reservationService, dbClient, outboxService, numbers, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create interventions service", err)
		os.Exit(1)
	}

	quoteRepo := documents.NewQuoteRepository(gormDB)
	invoiceRepo := documents.NewInvoiceRepository(gormDB)
	documentService, err := documents.NewService(quoteRepo, invoiceRepo, dbClient, numbers, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create documents service", err)
		os.Exit(1)
	}

	conversionService, err := conversion.NewService(quoteRepo, invoiceRepo, interventionRepo, reservationService, dbClient, outboxService, numbers, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create conversion service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config: cfg,
			Logger: logg,
			Readiness: map[string]controllers.Pinger{
				"database": dbClient,
				"redis":    redisClient,
			},
			Idempotency:  redisClient,
			HTTPMetrics:  httpMetrics,
			Inventory:    inventoryService,
			Intervention: interventionService,
			Documents:    documentService,
			Conversion:   conversionService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
