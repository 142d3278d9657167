package outbox_poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/skyfare/booking-finance/internal/domain/accounting"
	"github.com/skyfare/booking-finance/internal/domain/outbox"
)

// JournalPublisher moves staged journal entries from the outbox into the
// append-only journal store.
type JournalPublisher struct {
	logger     *slog.Logger
	journal    accounting.Repository
	outboxRepo outbox.Repository
}

// NewJournalPublisher creates a new publisher for staged journal entries
func NewJournalPublisher(logger *slog.Logger, journal accounting.Repository, outboxRepo outbox.Repository) *JournalPublisher {
	return &JournalPublisher{
		logger:     logger,
		journal:    journal,
		outboxRepo: outboxRepo,
	}
}

// Publish appends the staged entry to the journal and marks the outbox row
// processed. An entry already present in the journal only marks the row.
func (p *JournalPublisher) Publish(ctx context.Context, msg *outbox.Message) error {
	entry, err := msg.JournalEntry()
	if err != nil {
		return fmt.Errorf("failed to decode staged journal entry %s: %w", msg.EntryID, err)
	}

	existing, err := p.journal.GetByID(ctx, entry.ID)
	if err != nil && !errors.Is(err, accounting.ErrEntryNotFound{}) {
		return fmt.Errorf("failed to check journal for entry %s: %w", entry.ID, err)
	}

	if existing != nil {
		p.logger.Info("Journal entry already published, marking outbox message processed",
			"entry_id", entry.ID,
			"outbox_id", msg.ID,
		)
		return p.markProcessed(ctx, msg)
	}

	if err := p.journal.Append(ctx, entry); err != nil {
		var dup accounting.ErrDuplicateEntry
		if errors.As(err, &dup) {
			return p.markProcessed(ctx, msg)
		}
		return fmt.Errorf("failed to append journal entry %s: %w", entry.ID, err)
	}

	p.logger.Info("Published journal entry",
		"entry_id", entry.ID,
		"event_id", entry.EventID,
		"booking_id", entry.BookingID,
		"source", string(entry.Source),
	)

	return p.markProcessed(ctx, msg)
}

func (p *JournalPublisher) markProcessed(ctx context.Context, msg *outbox.Message) error {
	if err := p.outboxRepo.UpdateStatus(ctx, msg.ID, outbox.StatusProcessed); err != nil {
		return fmt.Errorf("failed to mark outbox message %d as processed: %w", msg.ID, err)
	}
	return nil
}
