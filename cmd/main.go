package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"github.com/settlepay/settlement_service/internal/api/routes"
	"github.com/settlepay/settlement_service/internal/infrastructure/cache"
	"github.com/settlepay/settlement_service/internal/infrastructure/config"
	"github.com/settlepay/settlement_service/internal/infrastructure/database"
	"github.com/settlepay/settlement_service/internal/infrastructure/di"
	"github.com/settlepay/settlement_service/internal/workers/expiration_sweeper"
	"github.com/settlepay/settlement_service/pkg/graceful"
	"github.com/settlepay/settlement_service/pkg/logger"
	"github.com/settlepay/settlement_service/pkg/tracing"
)

// @title Settlement Service API
// @version 1.0
// @description Crypto payment request checkout, transaction ingestion and refunds
// @BasePath /api/v1

var version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	log := logger.New(cfg.LogLevel, cfg.Environment)
	defer log.Sync()

	// Initialize OpenTelemetry tracing
	tracingConfig := tracing.Config{
		Enabled:      cfg.Tracing.Enabled,
		CollectorURL: cfg.Tracing.CollectorURL,
		Environment:  cfg.Environment,
		SampleRate:   cfg.Tracing.SampleRate,
		Insecure:     cfg.Tracing.Insecure,
	}
	tracingShutdown, err := tracing.InitTracer(context.Background(), tracingConfig, log.Zap())
	if err != nil {
		log.Fatal("Failed to initialize tracing", "error", err)
	}

	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", "error", err)
	}

	if err := database.RunMigrations(db, cfg.Database.MigrationsPath); err != nil {
		log.Fatal("Failed to run migrations", "error", err)
	}

	// Redis carries status events and, when configured, wallet leases
	var rdb *redis.Client
	rdb, err = cache.NewRedisClient(&cfg.Redis, log.Zap())
	if err != nil {
		if cfg.Settlement.WalletLeaseStore == "redis" {
			log.Fatal("Failed to connect to Redis", "error", err)
		}
		log.Warn("Redis unavailable, events will not be published", "error", err)
		rdb = nil
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	container, err := di.NewContainer(cfg, db, rdb, log)
	if err != nil {
		log.Fatal("Failed to create DI container", "error", err)
	}

	router := routes.SetupRoutes(container, version)

	sweeper := expiration_sweeper.NewWorker(container.PaymentRequestService, cfg.Workers.ExpirationSchedule, log.Zap())
	if err := sweeper.Start(); err != nil {
		log.Fatal("Failed to start expiration sweeper", "error", err)
	}

	server := &http.Server{
		Addr:           fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:        router,
		ReadTimeout:    time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		log.Info("Starting server",
			"port", cfg.Server.Port,
			"environment", cfg.Environment,
			"version", version,
		)

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", "error", err)
		}
	}()

	// Database pool metrics
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for range ticker.C {
			database.RecordPoolStats(db)
		}
	}()

	shutdown := graceful.NewShutdownManager(server, log)
	shutdown.Register(sweeper)
	shutdown.Register(graceful.ShutdownFunc(func(timeout time.Duration) error {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return tracingShutdown(ctx)
	}))
	if rdb != nil {
		shutdown.RegisterCloser("redis", rdb)
	}
	shutdown.RegisterCloser("database", db)

	shutdown.WaitForShutdown()
}
