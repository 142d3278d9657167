// Package journal builds balanced double-entry journal entries for booking
// lifecycle events and refunds. The engine is pure: it constructs and
// validates entries but never persists them.
package journal

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/skyfare/booking-finance/internal/domain/accounting"
	"github.com/skyfare/booking-finance/internal/domain/booking"
	"github.com/skyfare/booking-finance/internal/domain/commission"
	"github.com/skyfare/booking-finance/internal/domain/refund"
)

// Engine converts financial events into validated journal entries
type Engine struct {
	chart  *accounting.Chart
	logger *slog.Logger
}

func NewEngine(logger *slog.Logger, chart *accounting.Chart) *Engine {
	return &Engine{
		chart:  chart,
		logger: logger,
	}
}

// Chart exposes the chart of accounts the engine validates against
func (e *Engine) Chart() *accounting.Chart {
	return e.chart
}

// PostBookingCreated records the sale of a booking. Cash is debited for the
// full charged amount; the base fare is credited across the commission
// parties and net revenue, and collected taxes are credited to tax payable.
func (e *Engine) PostBookingCreated(evt *booking.Event) (*accounting.JournalEntry, error) {
	b := evt.Booking

	split, err := commission.ComputeSplit(b.BasePriceTotal(), b.Passengers, b.Flight.CommissionModel)
	if err != nil {
		return nil, fmt.Errorf("failed to split commission for booking %s: %w", b.ID, err)
	}

	legs := []accounting.Transaction{
		{AccountID: accounting.AccountCash, Debit: b.TotalPrice()},
	}
	legs = appendCredit(legs, accounting.AccountCharterPayable, split.Charter)
	legs = appendCredit(legs, accounting.AccountCreatorPayable, split.Creator)
	legs = appendCredit(legs, accounting.AccountWebServiceExpense, split.WebService)
	legs = appendCredit(legs, accounting.AccountNetRevenue, split.NetRevenue)
	legs = appendCredit(legs, accounting.AccountTaxPayable, b.TaxesTotal())

	entry := &accounting.JournalEntry{
		ID:            uuid.New(),
		Date:          time.Now().UTC(),
		Description:   fmt.Sprintf("Booking %s created for flight %s", b.ID, b.Flight.FlightNumber),
		Source:        accounting.SourceBookingCreated,
		BookingID:     b.ID,
		EventID:       evt.EventID,
		UserID:        b.UserID,
		CorrelationID: evt.CorrelationID,
		Transactions:  legs,
	}

	return e.finish(entry)
}

// PostBookingCancelled reverses the original sale entry. Amounts are copied
// leg for leg from the stored entry rather than recomputed, so the
// cancellation nets every account to exactly zero even when commission
// rounding was involved.
func (e *Engine) PostBookingCancelled(evt *booking.Event, original *accounting.JournalEntry) (*accounting.JournalEntry, error) {
	entry := original.Reversed(
		accounting.SourceBookingCancelled,
		fmt.Sprintf("Booking %s cancelled", evt.Booking.ID),
	)
	entry.EventID = evt.EventID
	entry.CorrelationID = evt.CorrelationID

	return e.finish(entry)
}

// PostManualBooking records an operator-entered booking: the sale at full
// price against receivables, and the ticket cost against the supplier.
func (e *Engine) PostManualBooking(evt *booking.Event) (*accounting.JournalEntry, error) {
	b := evt.Booking
	if b.PurchasePrice == nil {
		return nil, booking.ErrMissingPurchasePrice
	}

	legs := []accounting.Transaction{
		{AccountID: accounting.AccountAccountsReceivable, Debit: b.TotalPrice()},
		{AccountID: accounting.AccountSalesRevenue, Credit: b.TotalPrice()},
		{AccountID: accounting.AccountCostOfTicket, Debit: *b.PurchasePrice},
		{AccountID: accounting.AccountSupplierPayable, Credit: *b.PurchasePrice},
	}

	entry := &accounting.JournalEntry{
		ID:            uuid.New(),
		Date:          time.Now().UTC(),
		Description:   fmt.Sprintf("Manual booking %s for flight %s", b.ID, b.Flight.FlightNumber),
		Source:        accounting.SourceManualBooking,
		BookingID:     b.ID,
		EventID:       evt.EventID,
		UserID:        b.UserID,
		CorrelationID: evt.CorrelationID,
		Transactions:  legs,
	}

	return e.finish(entry)
}

// PostRefund records the payout of an approved refund. The refunded amount
// leaves net revenue and cash; any penalty withheld stays recognized.
func (e *Engine) PostRefund(b *booking.Booking, r *refund.Refund, correlationID string) (*accounting.JournalEntry, error) {
	legs := []accounting.Transaction{
		{AccountID: accounting.AccountNetRevenue, Debit: r.RefundAmount},
		{AccountID: accounting.AccountCash, Credit: r.RefundAmount},
	}

	entry := &accounting.JournalEntry{
		ID:            uuid.New(),
		Date:          time.Now().UTC(),
		Description:   fmt.Sprintf("Refund %s paid for booking %s", r.ID, b.ID),
		Source:        accounting.SourceRefund,
		BookingID:     b.ID,
		EventID:       r.ID, // Refund ID doubles as the idempotency key
		UserID:        b.UserID,
		CorrelationID: correlationID,
		Transactions:  legs,
	}

	return e.finish(entry)
}

// finish validates the entry against the chart before releasing it
func (e *Engine) finish(entry *accounting.JournalEntry) (*accounting.JournalEntry, error) {
	if err := entry.Validate(e.chart); err != nil {
		e.logger.Error("Refusing to release invalid journal entry",
			"entry_id", entry.ID,
			"booking_id", entry.BookingID,
			"source", entry.Source,
			"error", err,
		)
		return nil, err
	}
	return entry, nil
}

// appendCredit adds a credit leg, skipping zero amounts so entries stay free
// of no-op legs.
func appendCredit(legs []accounting.Transaction, account accounting.AccountID, amount int64) []accounting.Transaction {
	if amount == 0 {
		return legs
	}
	return append(legs, accounting.Transaction{AccountID: account, Credit: amount})
}
