package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/skyfare/booking-finance/internal/domain/accounting"
	"github.com/skyfare/booking-finance/internal/domain/booking"
	"github.com/skyfare/booking-finance/internal/domain/refund"
	"github.com/skyfare/booking-finance/internal/domain/wallet"
	"github.com/skyfare/booking-finance/internal/refundflow"
)

// BookingEventService accepts booking lifecycle events for asynchronous
// financial processing
type BookingEventService interface {
	// Submit validates the event and publishes it onto the event stream.
	// The financial effects happen later in the processor.
	Submit(ctx context.Context, eventType booking.EventType, b *booking.Booking, correlationID string) (*booking.Event, error)
}

// JournalService reads the posted journal
type JournalService interface {
	// GetEntryByID retrieves a journal entry; returns nil when not found
	GetEntryByID(ctx context.Context, id uuid.UUID) (*accounting.JournalEntry, error)

	// GetEntriesByBookingID retrieves all entries for a booking in posting order
	GetEntriesByBookingID(ctx context.Context, bookingID uuid.UUID) ([]*accounting.JournalEntry, error)

	// GetEntriesByTimeRange retrieves paginated entries within the window
	GetEntriesByTimeRange(ctx context.Context, startTime, endTime time.Time, page, perPage int) ([]*accounting.JournalEntry, int64, error)

	// Accounts returns the chart of accounts
	Accounts() []*accounting.Account
}

// SearchService applies route rate limit admission control to search results
type SearchService interface {
	// FilterFlights returns the subset of flights the user may see
	FilterFlights(ctx context.Context, flights []booking.Flight, canBypass bool) ([]booking.Flight, error)
}

// WalletService manages wallet balances and history. Satisfied by the wallet
// ledger service.
type WalletService interface {
	Credit(ctx context.Context, userID, currency string, amount int64, txType wallet.TransactionType, description string) (*wallet.Transaction, error)
	Debit(ctx context.Context, userID, currency string, amount int64, txType wallet.TransactionType, description string) (*wallet.Transaction, error)
	Balance(ctx context.Context, userID, currency string) (*wallet.Balance, error)
	Transactions(ctx context.Context, userID, currency string, page, perPage int) ([]*wallet.Transaction, int64, error)
}

// RefundService drives the refund approval workflow. Satisfied by the refund
// workflow service.
type RefundService interface {
	Request(ctx context.Context, bookingID uuid.UUID, originalAmount, penaltyAmount int64) (*refund.Refund, error)
	Get(ctx context.Context, id uuid.UUID) (*refund.Refund, error)
	List(ctx context.Context, page, perPage int) ([]*refund.Refund, int64, error)
	Apply(ctx context.Context, refundID uuid.UUID, cmd refundflow.Command) (*refund.Result, error)
}
