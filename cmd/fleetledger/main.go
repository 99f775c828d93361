package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"fleetledger/internal/amqp"
	"fleetledger/internal/auth"
	"fleetledger/internal/backend"
	"fleetledger/internal/config"
	"fleetledger/internal/events"
	apphttp "fleetledger/internal/http"
	applog "fleetledger/internal/log"
	"fleetledger/internal/metrics"
	"fleetledger/internal/services"
	"fleetledger/internal/taxonomy"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig())
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	metrics.Init()

	tax, err := taxonomy.Load(cfg.TaxonomyFile)
	if err != nil {
		logger.Error("Failed to load taxonomy", "error", err, "path", cfg.TaxonomyFile)
		os.Exit(1)
	}

	store, err := backend.Open(cfg)
	if err != nil {
		logger.Error("Failed to open ledger backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	if store.Cleanup != nil {
		defer func() {
			if err := store.Cleanup(); err != nil {
				logger.Error("Backend cleanup error", "error", err)
			}
		}()
	}

	// AMQP publishing is optional. Without a broker, statement exports wait
	// for the worker's pending scan.
	var publisher services.ExportPublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without export publishing", "error", err)
		} else {
			defer amqpClient.Close()
			publisher = amqpClient
			logger.Info("Initialized AMQP client", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	bus := events.NewBus()
	records := services.NewRecordService(store.Store, tax, bus)
	statements := services.NewStatementService(store.Store, bus, publisher, cfg.CommissionRate)

	var authMW *auth.Middleware
	if cfg.JWTSecret != "" {
		authMW = auth.NewMiddleware([]byte(cfg.JWTSecret),
			auth.NewDefaultPolicy([]string{"/healthz", "/readyz", "/metrics"}, nil))
		logger.Info("JWT auth enabled")
	} else {
		logger.Warn("JWT_SECRET not set, serving without authentication")
	}

	srv := apphttp.NewServer(":"+cfg.Port, records, statements, store.Store, tax, bus, authMW)

	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting fleetledger server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
