package service

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/skyfare/booking-finance/internal/domain/booking"
	"github.com/skyfare/booking-finance/internal/domain/wallet"
)

// PostingService processes booking lifecycle events into journal postings and
// wallet movements.
type PostingService interface {
	ProcessEvent(ctx context.Context, evt *booking.Event) error
}

// WalletLedger debits a wallet inside the caller's transaction. Satisfied by
// the wallet ledger service.
type WalletLedger interface {
	DebitTx(ctx context.Context, tx pgx.Tx, userID, currency string, amount int64, txType wallet.TransactionType, description string) (*wallet.Transaction, error)
}
