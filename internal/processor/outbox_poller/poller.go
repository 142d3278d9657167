package outbox_poller

import (
	"context"
	"log/slog"
	"time"

	"github.com/skyfare/booking-finance/internal/config"
	"github.com/skyfare/booking-finance/internal/domain/outbox"
)

// Poller periodically drains pending outbox messages into the journal store.
// Messages that keep failing past the retry budget are parked as
// FAILED_TO_PUBLISH for manual inspection.
type Poller struct {
	logger     *slog.Logger
	outboxRepo outbox.Repository
	publisher  *JournalPublisher

	pollingInterval  time.Duration
	batchSize        int
	maxRetryAttempts int

	stop chan struct{}
	done chan struct{}
}

// NewPoller creates a new outbox poller
func NewPoller(logger *slog.Logger, cfg *config.OutboxConfig, outboxRepo outbox.Repository, publisher *JournalPublisher) *Poller {
	return &Poller{
		logger:           logger,
		outboxRepo:       outboxRepo,
		publisher:        publisher,
		pollingInterval:  cfg.PollingInterval,
		batchSize:        cfg.BatchSize,
		maxRetryAttempts: cfg.MaxRetryAttempts,
		stop:             make(chan struct{}),
		done:             make(chan struct{}),
	}
}

// Start runs the polling loop until Stop is called
func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("Starting outbox poller",
		"polling_interval", p.pollingInterval,
		"batch_size", p.batchSize,
	)

	ticker := time.NewTicker(p.pollingInterval)

	go func() {
		defer ticker.Stop()
		defer close(p.done)

		for {
			select {
			case <-ticker.C:
				p.processBatch(ctx)
			case <-p.stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop halts the polling loop and waits for the in-flight batch to finish
func (p *Poller) Stop() {
	p.logger.Info("Stopping outbox poller")
	close(p.stop)
	<-p.done
}

func (p *Poller) processBatch(ctx context.Context) {
	messages, err := p.outboxRepo.GetPending(ctx, p.batchSize)
	if err != nil {
		p.logger.Error("Failed to fetch pending outbox messages", "error", err)
		return
	}

	if len(messages) == 0 {
		return
	}

	p.logger.Debug("Processing outbox batch", "count", len(messages))

	for _, msg := range messages {
		p.processMessage(ctx, msg)
	}
}

func (p *Poller) processMessage(ctx context.Context, msg *outbox.Message) {
	if err := p.outboxRepo.IncrementAttempts(ctx, msg.ID); err != nil {
		p.logger.Error("Failed to increment outbox message attempts", "outbox_id", msg.ID, "error", err)
		return
	}
	msg.IncrementAttempts()

	if err := p.publisher.Publish(ctx, msg); err != nil {
		p.logger.Error("Failed to publish outbox message",
			"outbox_id", msg.ID,
			"entry_id", msg.EntryID,
			"attempts", msg.Attempts,
			"error", err,
		)

		if msg.Attempts >= p.maxRetryAttempts {
			p.logger.Error("Max retry attempts reached, marking outbox message as failed",
				"outbox_id", msg.ID,
				"entry_id", msg.EntryID,
			)
			if err := p.outboxRepo.UpdateStatus(ctx, msg.ID, outbox.StatusFailedToPublish); err != nil {
				p.logger.Error("Failed to mark outbox message as failed", "outbox_id", msg.ID, "error", err)
			}
		}
	}
}
