package wallet

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrInsufficientFunds     = errors.New("insufficient funds in wallet")
	ErrInvalidAmount         = errors.New("amount must be positive")
	ErrEmptyUserID           = errors.New("wallet user id cannot be empty")
	ErrInvalidCurrencyFormat = errors.New("currency must be a 3-letter code")
	ErrInvalidType           = errors.New("invalid wallet transaction type")
)

// CurrencyIRR is the marketplace's settlement currency; refunds are always
// paid out in it.
const CurrencyIRR = "IRR"

// TransactionType classifies wallet movements
type TransactionType string

const (
	TypeDeposit          TransactionType = "DEPOSIT"
	TypeWithdrawal       TransactionType = "WITHDRAWAL"
	TypeBookingPayment   TransactionType = "BOOKING_PAYMENT"
	TypeRefund           TransactionType = "REFUND"
	TypeCommissionPayout TransactionType = "COMMISSION_PAYOUT"
)

// credits reports whether the type increases the balance
func (t TransactionType) credits() bool {
	switch t {
	case TypeDeposit, TypeRefund, TypeCommissionPayout:
		return true
	case TypeWithdrawal, TypeBookingPayment:
		return false
	}
	return false
}

func (t TransactionType) valid() bool {
	switch t {
	case TypeDeposit, TypeWithdrawal, TypeBookingPayment, TypeRefund, TypeCommissionPayout:
		return true
	}
	return false
}

// Transaction is one immutable movement in a wallet's history. Amount is
// signed: positive for credits, negative for debits, in minor currency units.
type Transaction struct {
	ID          uuid.UUID       `json:"id"`
	UserID      string          `json:"user_id"`
	Currency    string          `json:"currency"`
	Type        TransactionType `json:"type"`
	Amount      int64           `json:"amount"`
	Description string          `json:"description"`
	Date        time.Time       `json:"date"`
}

// NewTransaction builds a wallet movement for the given positive amount; the
// sign is derived from the transaction type.
func NewTransaction(userID, currency string, amount int64, txType TransactionType, description string) (*Transaction, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}
	if len(currency) != 3 {
		return nil, ErrInvalidCurrencyFormat
	}
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if !txType.valid() {
		return nil, ErrInvalidType
	}

	signed := amount
	if !txType.credits() {
		signed = -amount
	}

	return &Transaction{
		ID:          uuid.New(),
		UserID:      userID,
		Currency:    currency,
		Type:        txType,
		Amount:      signed,
		Description: description,
		Date:        time.Now().UTC(),
	}, nil
}

// Balance is the running balance of one (user, currency) wallet. The
// invariant balance == sum(transaction amounts) holds at all times.
type Balance struct {
	UserID    string    `json:"user_id"`
	Currency  string    `json:"currency"`
	Balance   int64     `json:"balance"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Apply adds a transaction to the balance. Debits that would drive the
// balance negative fail with ErrInsufficientFunds and leave it unchanged.
func (b *Balance) Apply(t *Transaction) error {
	if t.Amount < 0 && b.Balance+t.Amount < 0 {
		return ErrInsufficientFunds
	}
	b.Balance += t.Amount
	b.UpdatedAt = time.Now().UTC()
	return nil
}

// CanDebit reports whether the wallet covers a debit of the given amount
func (b *Balance) CanDebit(amount int64) bool {
	return b.Balance >= amount
}
