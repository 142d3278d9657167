package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/skyfare/booking-finance/internal/api"
	"github.com/skyfare/booking-finance/internal/api/service"
	"github.com/skyfare/booking-finance/internal/config"
	"github.com/skyfare/booking-finance/internal/data/mongo"
	"github.com/skyfare/booking-finance/internal/data/postgres"
	"github.com/skyfare/booking-finance/internal/domain/accounting"
	"github.com/skyfare/booking-finance/internal/journal"
	"github.com/skyfare/booking-finance/internal/logger"
	"github.com/skyfare/booking-finance/internal/platform/messaging/producers"
	"github.com/skyfare/booking-finance/internal/platform/persistence"
	"github.com/skyfare/booking-finance/internal/refundflow"
	"github.com/skyfare/booking-finance/internal/walletledger"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("finance_api")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	// Initialize databases with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	// Initialize Kafka producers
	eventProducer, err := producers.NewBookingEventProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize booking event producer", "error", err)
		os.Exit(1)
	}

	activityProducer, err := producers.NewActivityLogProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize activity log producer", "error", err)
		os.Exit(1)
	}
	// activityProducer may be nil when the topic is not configured; its
	// methods are nil-safe and publishing becomes a no-op.

	// Initialize repositories
	walletRepo := postgres.NewWalletRepository(log, postgresDB)
	bookingRepo := postgres.NewBookingRepository(log, postgresDB)
	refundRepo := postgres.NewRefundRepository(log, postgresDB)
	rateLimitRepo := postgres.NewRateLimitRepository(log, postgresDB)
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)
	journalRepo := mongo.NewJournalRepository(log, mongoDB.Database())

	// Initialize the posting engine over the fixed chart of accounts
	chart := accounting.DefaultChart()
	engine := journal.NewEngine(log, chart)

	// Initialize services
	walletService := walletledger.NewService(log, postgresDB, walletRepo, activityProducer)
	refundService := refundflow.NewService(log, postgresDB, refundRepo, bookingRepo, outboxRepo, engine, walletService, activityProducer)
	eventService := service.NewBookingEventService(log, eventProducer)
	journalService := service.NewJournalService(log, journalRepo, chart)
	searchService := service.NewSearchService(log, rateLimitRepo)

	// Initialize REST server
	server := api.NewServer(log, cfg, eventService, refundService, walletService, journalService, searchService)
	log.Info("REST server initialized")

	// Create error channel for server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Shutdown HTTP server first so no request lands on closed backends
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	if err = eventProducer.Close(); err != nil {
		log.Error("Error closing booking event producer", "error", err)
	}

	if err = activityProducer.Close(); err != nil {
		log.Error("Error closing activity log producer", "error", err)
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
