package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/skyfare/booking-finance/internal/config"
	"github.com/skyfare/booking-finance/internal/data/mongo"
	"github.com/skyfare/booking-finance/internal/data/postgres"
	"github.com/skyfare/booking-finance/internal/domain/accounting"
	"github.com/skyfare/booking-finance/internal/journal"
	"github.com/skyfare/booking-finance/internal/logger"
	"github.com/skyfare/booking-finance/internal/platform/messaging/consumers"
	"github.com/skyfare/booking-finance/internal/platform/messaging/producers"
	"github.com/skyfare/booking-finance/internal/platform/persistence"
	"github.com/skyfare/booking-finance/internal/processor/consumer"
	"github.com/skyfare/booking-finance/internal/processor/outbox_poller"
	"github.com/skyfare/booking-finance/internal/processor/service"
	"github.com/skyfare/booking-finance/internal/walletledger"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("finance_processor")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	log.Info("Starting Finance Processor",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

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

	// Initialize repositories
	walletRepo := postgres.NewWalletRepository(log, postgresDB)
	bookingRepo := postgres.NewBookingRepository(log, postgresDB)
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)
	journalRepo := mongo.NewJournalRepository(log, mongoDB.Database())

	// Initialize Kafka consumer
	kafkaConsumer := consumers.NewKafkaConsumer(appCtx, log, &cfg.Kafka)

	// Initialize Kafka DLQ producer
	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ producer", "error", err)
		os.Exit(1)
	}
	// dlqProducer may be nil when the DLQ topic is not configured; the
	// handler drops unprocessable messages in that case.

	activityProducer, err := producers.NewActivityLogProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize activity log producer", "error", err)
		os.Exit(1)
	}

	// Initialize the posting engine over the fixed chart of accounts
	chart := accounting.DefaultChart()
	engine := journal.NewEngine(log, chart)

	// Initialize the posting pipeline behind a bounded worker pool
	walletLedger := walletledger.NewService(log, postgresDB, walletRepo, activityProducer)
	postingService := service.NewPostingService(
		log,
		postgresDB,
		bookingRepo,
		outboxRepo,
		journalRepo,
		engine,
		walletLedger,
		activityProducer,
	)
	workerPool, err := service.NewWorkerPoolService(log, postingService, cfg.WorkerPool.Size)
	if err != nil {
		log.Error("Failed to initialize worker pool", "error", err)
		os.Exit(1)
	}

	// Initialize booking event handler
	eventHandler := consumer.NewBookingEventHandler(log, workerPool, dlqProducer)

	// Initialize outbox poller
	journalPublisher := outbox_poller.NewJournalPublisher(log, journalRepo, outboxRepo)
	poller := outbox_poller.NewPoller(log, &cfg.Outbox, outboxRepo, journalPublisher)

	// Start consuming booking events
	log.Info("Starting Kafka consumer",
		"topic", cfg.Kafka.BookingEventTopic,
		"group", cfg.Kafka.ConsumerGroup,
	)
	if err := kafkaConsumer.Subscribe(appCtx, cfg.Kafka.BookingEventTopic, cfg.Kafka.ConsumerGroup, eventHandler.HandleMessage); err != nil {
		log.Error("Failed to subscribe to booking event topic", "error", err)
		os.Exit(1)
	}

	// Start draining the journal outbox
	poller.Start(appCtx)

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	<-quit
	log.Info("Shutdown signal received")

	// Cancel the application context
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Stop the poller first so no batch is in flight when the pool closes
	poller.Stop()
	workerPool.Release()

	// Close Kafka consumer
	if err = kafkaConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
	}

	if err = dlqProducer.Close(); err != nil {
		log.Error("Error closing DLQ producer", "error", err)
	}

	if err = activityProducer.Close(); err != nil {
		log.Error("Error closing activity log producer", "error", err)
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	// Close MongoDB connection
	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	if err != nil {
		log.Error("Finance Processor shutdown completed with errors")
	} else {
		log.Info("Finance Processor shutdown completed successfully")
	}
}
