package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/skyfare/booking-finance/internal/domain/accounting"
	"github.com/skyfare/booking-finance/internal/domain/booking"
	"github.com/skyfare/booking-finance/internal/domain/outbox"
	"github.com/skyfare/booking-finance/internal/domain/wallet"
	"github.com/skyfare/booking-finance/internal/journal"
	"github.com/skyfare/booking-finance/internal/platform/messaging/producers"
	"github.com/skyfare/booking-finance/internal/platform/persistence"
)

// PostingServiceImpl implements the PostingService interface. Every event is
// handled in one database transaction: booking row, wallet movement and the
// staged journal entry commit together or not at all.
type PostingServiceImpl struct {
	logger      *slog.Logger
	db          persistence.TxRunner
	bookings    booking.Repository
	outboxRepo  outbox.Repository
	journalRepo accounting.Repository
	engine      *journal.Engine
	wallets     WalletLedger
	activity    producers.MessagePublisher // nil when activity logging is disabled
}

// NewPostingService creates a new posting service
func NewPostingService(
	logger *slog.Logger,
	db persistence.TxRunner,
	bookings booking.Repository,
	outboxRepo outbox.Repository,
	journalRepo accounting.Repository,
	engine *journal.Engine,
	wallets WalletLedger,
	activity producers.MessagePublisher,
) PostingService {
	return &PostingServiceImpl{
		logger:      logger,
		db:          db,
		bookings:    bookings,
		outboxRepo:  outboxRepo,
		journalRepo: journalRepo,
		engine:      engine,
		wallets:     wallets,
		activity:    activity,
	}
}

// ProcessEvent posts the financial effects of one booking lifecycle event.
// The event ID is the idempotency key: a redelivered event whose entry is
// already staged or published is acknowledged without posting again.
func (s *PostingServiceImpl) ProcessEvent(ctx context.Context, evt *booking.Event) error {
	logger := s.logger
	if evt.CorrelationID != "" {
		logger = s.logger.With("correlation_id", evt.CorrelationID)
	}

	processed, err := s.alreadyProcessed(ctx, evt)
	if err != nil {
		return err
	}
	if processed {
		logger.Info("Skipping already processed booking event",
			"event_id", evt.EventID,
			"booking_id", evt.Booking.ID,
		)
		return nil
	}

	switch evt.Type {
	case booking.EventBookingCreated:
		err = s.processCreated(ctx, evt, logger)
	case booking.EventBookingCancelled:
		err = s.processCancelled(ctx, evt, logger)
	case booking.EventManualBooking:
		err = s.processManual(ctx, evt, logger)
	default:
		// Unknown types are unrecoverable; ack so they are not redelivered
		logger.Error("Dropping booking event of unknown type",
			"event_id", evt.EventID,
			"type", string(evt.Type),
		)
		return nil
	}

	if err != nil {
		var unbalanced accounting.UnbalancedEntryError
		if errors.As(err, &unbalanced) {
			logger.Error("Journal engine produced an unbalanced entry",
				"event_id", evt.EventID,
				"booking_id", evt.Booking.ID,
				"debit", unbalanced.Debit,
				"credit", unbalanced.Credit,
			)
		}
		return err
	}

	logger.Info("Processed booking event",
		"event_id", evt.EventID,
		"booking_id", evt.Booking.ID,
		"type", string(evt.Type),
	)
	return nil
}

// alreadyProcessed checks the outbox and the published journal for an entry
// carrying this event ID.
func (s *PostingServiceImpl) alreadyProcessed(ctx context.Context, evt *booking.Event) (bool, error) {
	if _, err := s.outboxRepo.GetByEventID(ctx, evt.EventID); err == nil {
		return true, nil
	} else if !errors.Is(err, outbox.ErrMessageNotFound{}) {
		return false, fmt.Errorf("failed to check outbox for event %s: %w", evt.EventID, err)
	}

	if _, err := s.journalRepo.GetByEventID(ctx, evt.EventID); err == nil {
		return true, nil
	} else if !errors.Is(err, accounting.ErrEntryNotFound{}) {
		return false, fmt.Errorf("failed to check journal for event %s: %w", evt.EventID, err)
	}

	return false, nil
}

// processCreated records the sale: the booking row, the user's wallet debit
// and the staged journal entry commit in one transaction. Insufficient funds
// is a business failure: the event is acknowledged and reported, not retried.
func (s *PostingServiceImpl) processCreated(ctx context.Context, evt *booking.Event, logger *slog.Logger) error {
	b := evt.Booking

	err := s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		if err := s.bookings.WithTx(tx).Create(ctx, &b); err != nil {
			return err
		}

		description := fmt.Sprintf("Payment for booking %s", b.ID)
		if _, err := s.wallets.DebitTx(ctx, tx, b.UserID, wallet.CurrencyIRR, b.TotalPrice(), wallet.TypeBookingPayment, description); err != nil {
			return err
		}

		entry, err := s.engine.PostBookingCreated(evt)
		if err != nil {
			return err
		}

		return s.stageEntry(ctx, tx, entry)
	})

	if errors.Is(err, wallet.ErrInsufficientFunds) {
		logger.Warn("Booking payment failed on insufficient funds",
			"event_id", evt.EventID,
			"booking_id", b.ID,
			"user_id", b.UserID,
			"amount", b.TotalPrice(),
		)
		s.publishFailure(ctx, evt, "insufficient funds")
		return nil
	}

	return err
}

// processCancelled reverses the original sale entry and marks the booking
// cancelled. When the original entry has not reached the journal yet the
// event is retried later.
func (s *PostingServiceImpl) processCancelled(ctx context.Context, evt *booking.Event, logger *slog.Logger) error {
	original, err := s.findCreationEntry(ctx, evt)
	if err != nil {
		return err
	}

	return s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		if _, err := s.bookings.WithTx(tx).GetByID(ctx, evt.Booking.ID); err != nil {
			return err
		}

		entry, err := s.engine.PostBookingCancelled(evt, original)
		if err != nil {
			return err
		}

		if err := s.stageEntry(ctx, tx, entry); err != nil {
			return err
		}

		return s.bookings.WithTx(tx).UpdateStatus(ctx, evt.Booking.ID, booking.StatusCancelled)
	})
}

// processManual records an operator-entered booking; no wallet is involved
func (s *PostingServiceImpl) processManual(ctx context.Context, evt *booking.Event, logger *slog.Logger) error {
	b := evt.Booking

	return s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		if err := s.bookings.WithTx(tx).Create(ctx, &b); err != nil {
			return err
		}

		entry, err := s.engine.PostManualBooking(evt)
		if err != nil {
			return err
		}

		return s.stageEntry(ctx, tx, entry)
	})
}

// findCreationEntry locates the published sale entry for the booking being
// cancelled. Reversals copy its stored legs rather than recomputing.
func (s *PostingServiceImpl) findCreationEntry(ctx context.Context, evt *booking.Event) (*accounting.JournalEntry, error) {
	entries, err := s.journalRepo.GetByBookingID(ctx, evt.Booking.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load journal entries for booking %s: %w", evt.Booking.ID, err)
	}

	for _, e := range entries {
		if e.Source == accounting.SourceBookingCreated || e.Source == accounting.SourceManualBooking {
			return e, nil
		}
	}

	// The sale entry may still be sitting in the outbox; retry the event
	// after the poller has published it.
	return nil, fmt.Errorf("sale entry for booking %s not yet in journal", evt.Booking.ID)
}

func (s *PostingServiceImpl) stageEntry(ctx context.Context, tx pgx.Tx, entry *accounting.JournalEntry) error {
	msg, err := outbox.NewMessage(entry)
	if err != nil {
		return fmt.Errorf("failed to stage journal entry %s: %w", entry.ID, err)
	}
	return s.outboxRepo.WithTx(tx).Create(ctx, msg)
}

type failureRecord struct {
	Kind      string `json:"kind"`
	EventID   string `json:"event_id"`
	BookingID string `json:"booking_id"`
	UserID    string `json:"user_id"`
	Type      string `json:"type"`
	Reason    string `json:"reason"`
}

// publishFailure emits a best-effort record of a business failure
func (s *PostingServiceImpl) publishFailure(ctx context.Context, evt *booking.Event, reason string) {
	if s.activity == nil {
		return
	}
	record := failureRecord{
		Kind:      "BOOKING_EVENT_FAILED",
		EventID:   evt.EventID.String(),
		BookingID: evt.Booking.ID.String(),
		UserID:    evt.Booking.UserID,
		Type:      string(evt.Type),
		Reason:    reason,
	}
	if err := s.activity.Publish(ctx, evt.Booking.ID.String(), record); err != nil {
		s.logger.Warn("Failed to publish booking failure record", "event_id", evt.EventID, "error", err)
	}
}
