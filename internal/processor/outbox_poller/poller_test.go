package outbox_poller

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/skyfare/booking-finance/internal/config"
	"github.com/skyfare/booking-finance/internal/domain/accounting"
	"github.com/skyfare/booking-finance/internal/domain/outbox"
)

func newTestPoller(journalRepo *MockJournalRepository, outboxRepo *MockOutboxRepository) *Poller {
	cfg := &config.OutboxConfig{
		PollingInterval:  10 * time.Millisecond,
		BatchSize:        10,
		MaxRetryAttempts: 3,
	}
	publisher := NewJournalPublisher(slog.Default(), journalRepo, outboxRepo)
	return NewPoller(slog.Default(), cfg, outboxRepo, publisher)
}

func TestPoller_ProcessBatch(t *testing.T) {
	ctx := context.Background()
	journalRepo := &MockJournalRepository{}
	outboxRepo := &MockOutboxRepository{}
	poller := newTestPoller(journalRepo, outboxRepo)

	msg, entry := stagedMessage(t)

	outboxRepo.On("GetPending", mock.Anything, 10).Return([]*outbox.Message{msg}, nil)
	outboxRepo.On("IncrementAttempts", mock.Anything, msg.ID).Return(nil)
	journalRepo.On("GetByID", mock.Anything, entry.ID).Return(nil, accounting.ErrEntryNotFound{})
	journalRepo.On("Append", mock.Anything, mock.Anything).Return(nil)
	outboxRepo.On("UpdateStatus", mock.Anything, msg.ID, outbox.StatusProcessed).Return(nil)

	poller.processBatch(ctx)

	outboxRepo.AssertExpectations(t)
	journalRepo.AssertExpectations(t)
}

func TestPoller_MaxRetriesMarksFailed(t *testing.T) {
	ctx := context.Background()
	journalRepo := &MockJournalRepository{}
	outboxRepo := &MockOutboxRepository{}
	poller := newTestPoller(journalRepo, outboxRepo)

	msg, entry := stagedMessage(t)
	msg.Attempts = 2 // the next failure is the third attempt

	outboxRepo.On("IncrementAttempts", mock.Anything, msg.ID).Return(nil)
	journalRepo.On("GetByID", mock.Anything, entry.ID).Return(nil, accounting.ErrEntryNotFound{})
	journalRepo.On("Append", mock.Anything, mock.Anything).Return(errors.New("mongo unavailable"))
	outboxRepo.On("UpdateStatus", mock.Anything, msg.ID, outbox.StatusFailedToPublish).Return(nil)

	poller.processMessage(ctx, msg)

	outboxRepo.AssertExpectations(t)
}

func TestPoller_RetriesBelowBudgetStayPending(t *testing.T) {
	ctx := context.Background()
	journalRepo := &MockJournalRepository{}
	outboxRepo := &MockOutboxRepository{}
	poller := newTestPoller(journalRepo, outboxRepo)

	msg, entry := stagedMessage(t)
	msg.Attempts = 0

	outboxRepo.On("IncrementAttempts", mock.Anything, msg.ID).Return(nil)
	journalRepo.On("GetByID", mock.Anything, entry.ID).Return(nil, accounting.ErrEntryNotFound{})
	journalRepo.On("Append", mock.Anything, mock.Anything).Return(errors.New("mongo unavailable"))

	poller.processMessage(ctx, msg)

	outboxRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestPoller_StartStop(t *testing.T) {
	journalRepo := &MockJournalRepository{}
	outboxRepo := &MockOutboxRepository{}
	poller := newTestPoller(journalRepo, outboxRepo)

	outboxRepo.On("GetPending", mock.Anything, 10).Return([]*outbox.Message{}, nil).Maybe()

	poller.Start(context.Background())
	time.Sleep(30 * time.Millisecond)
	poller.Stop()
}
