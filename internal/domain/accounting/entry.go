package accounting

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrEmptyAccountID = errors.New("account id cannot be empty")
	ErrEmptyEntry     = errors.New("journal entry has no transactions")
	ErrNegativeLeg    = errors.New("transaction debit and credit must be non-negative")
	ErrZeroLeg        = errors.New("transaction must carry a debit or a credit")
)

// EntrySource identifies the booking lifecycle event a journal entry records
type EntrySource string

const (
	SourceBookingCreated   EntrySource = "BOOKING_CREATED"
	SourceBookingCancelled EntrySource = "BOOKING_CANCELLED"
	SourceManualBooking    EntrySource = "MANUAL_BOOKING"
	SourceRefund           EntrySource = "REFUND"
)

// Transaction is one leg of a journal entry. Amounts are in minor currency
// units. Exactly one side is normally non-zero; both may be set for
// contra-entries, but neither may be negative.
type Transaction struct {
	AccountID AccountID `json:"account_id" bson:"account_id"`
	Debit     int64     `json:"debit" bson:"debit"`
	Credit    int64     `json:"credit" bson:"credit"`
}

// JournalEntry is a balanced double-entry record. Entries are immutable once
// appended; corrections are new reversing entries, never edits.
type JournalEntry struct {
	ID            uuid.UUID     `json:"id" bson:"id"`
	Date          time.Time     `json:"date" bson:"date"`
	Description   string        `json:"description" bson:"description"`
	Source        EntrySource   `json:"source" bson:"source"`
	BookingID     uuid.UUID     `json:"booking_id" bson:"booking_id"`
	EventID       uuid.UUID     `json:"event_id" bson:"event_id"`
	UserID        string        `json:"user_id,omitempty" bson:"user_id,omitempty"`
	CorrelationID string        `json:"correlation_id,omitempty" bson:"correlation_id,omitempty"`
	Transactions  []Transaction `json:"transactions" bson:"transactions"`
}

// TotalDebit sums the debit side of all legs
func (e *JournalEntry) TotalDebit() int64 {
	var sum int64
	for _, t := range e.Transactions {
		sum += t.Debit
	}
	return sum
}

// TotalCredit sums the credit side of all legs
func (e *JournalEntry) TotalCredit() int64 {
	var sum int64
	for _, t := range e.Transactions {
		sum += t.Credit
	}
	return sum
}

// Balanced reports whether total debits equal total credits
func (e *JournalEntry) Balanced() bool {
	return e.TotalDebit() == e.TotalCredit()
}

// Validate checks the entry against the chart: legs must reference leaf
// accounts, amounts must be non-negative, and the entry must balance.
// An unbalanced entry is a programming defect and must never be appended.
func (e *JournalEntry) Validate(chart *Chart) error {
	if len(e.Transactions) == 0 {
		return ErrEmptyEntry
	}
	for _, t := range e.Transactions {
		if t.Debit < 0 || t.Credit < 0 {
			return ErrNegativeLeg
		}
		if t.Debit == 0 && t.Credit == 0 {
			return ErrZeroLeg
		}
		if chart.Account(t.AccountID) == nil {
			return ErrUnknownAccount{AccountID: t.AccountID}
		}
		if !chart.IsLeaf(t.AccountID) {
			return ErrNotLeafAccount{AccountID: t.AccountID}
		}
	}
	if !e.Balanced() {
		return UnbalancedEntryError{EntryID: e.ID, Debit: e.TotalDebit(), Credit: e.TotalCredit()}
	}
	return nil
}

// Reversed returns a new entry with every debit and credit swapped, which
// nets the original entry to zero on every account. Amounts are copied from
// the original so rounding cancels exactly.
func (e *JournalEntry) Reversed(source EntrySource, description string) *JournalEntry {
	legs := make([]Transaction, len(e.Transactions))
	for i, t := range e.Transactions {
		legs[i] = Transaction{AccountID: t.AccountID, Debit: t.Credit, Credit: t.Debit}
	}
	return &JournalEntry{
		ID:            uuid.New(),
		Date:          time.Now().UTC(),
		Description:   description,
		Source:        source,
		BookingID:     e.BookingID,
		EventID:       e.EventID,
		UserID:        e.UserID,
		CorrelationID: e.CorrelationID,
		Transactions:  legs,
	}
}

// UnbalancedEntryError indicates a journal entry whose debits and credits
// differ. It is fatal: the entry must never reach the ledger.
type UnbalancedEntryError struct {
	EntryID uuid.UUID
	Debit   int64
	Credit  int64
}

func (e UnbalancedEntryError) Error() string {
	return fmt.Sprintf("unbalanced journal entry %s: debits %d, credits %d", e.EntryID, e.Debit, e.Credit)
}

// ErrUnknownAccount indicates a transaction referencing an account missing
// from the chart
type ErrUnknownAccount struct {
	AccountID AccountID
}

func (e ErrUnknownAccount) Error() string {
	return "unknown account: " + string(e.AccountID)
}

// ErrNotLeafAccount indicates a posting against a grouping account
type ErrNotLeafAccount struct {
	AccountID AccountID
}

func (e ErrNotLeafAccount) Error() string {
	return "account is not a leaf account: " + string(e.AccountID)
}

// ErrNotParentAccount indicates a parent reference to a non-grouping account
type ErrNotParentAccount struct {
	AccountID AccountID
}

func (e ErrNotParentAccount) Error() string {
	return "account is not a parent account: " + string(e.AccountID)
}

// ErrDuplicateAccount indicates two chart accounts sharing an ID
type ErrDuplicateAccount struct {
	AccountID AccountID
}

func (e ErrDuplicateAccount) Error() string {
	return "duplicate account in chart: " + string(e.AccountID)
}
