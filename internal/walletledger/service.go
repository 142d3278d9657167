// Package walletledger manages user wallet balances and their append-only
// transaction history across currencies.
package walletledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jackc/pgx/v5"

	"github.com/skyfare/booking-finance/internal/domain/wallet"
	"github.com/skyfare/booking-finance/internal/platform/messaging/producers"
	"github.com/skyfare/booking-finance/internal/platform/persistence"
)

// Service serializes wallet mutations per (user, currency) and keeps the
// balance equal to the sum of the transaction history.
type Service struct {
	logger   *slog.Logger
	db       persistence.TxRunner
	wallets  wallet.Repository
	activity producers.MessagePublisher // nil when activity logging is disabled

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewService(logger *slog.Logger, db persistence.TxRunner, wallets wallet.Repository, activity producers.MessagePublisher) *Service {
	return &Service{
		logger:   logger,
		db:       db,
		wallets:  wallets,
		activity: activity,
		locks:    make(map[string]*sync.Mutex),
	}
}

// walletLock returns the mutex serializing one (user, currency) wallet
func (s *Service) walletLock(userID, currency string) *sync.Mutex {
	key := userID + "|" + currency
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	return l
}

// Credit adds funds to a wallet in its own transaction
func (s *Service) Credit(ctx context.Context, userID, currency string, amount int64, txType wallet.TransactionType, description string) (*wallet.Transaction, error) {
	var t *wallet.Transaction
	err := s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		var txErr error
		t, txErr = s.CreditTx(ctx, tx, userID, currency, amount, txType, description)
		return txErr
	})
	if err != nil {
		return nil, err
	}

	s.publishActivity(ctx, t)
	return t, nil
}

// Debit removes funds from a wallet in its own transaction. The debit fails
// with wallet.ErrInsufficientFunds when the balance does not cover it.
func (s *Service) Debit(ctx context.Context, userID, currency string, amount int64, txType wallet.TransactionType, description string) (*wallet.Transaction, error) {
	var t *wallet.Transaction
	err := s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		var txErr error
		t, txErr = s.DebitTx(ctx, tx, userID, currency, amount, txType, description)
		return txErr
	})
	if err != nil {
		return nil, err
	}

	s.publishActivity(ctx, t)
	return t, nil
}

// CreditTx adds funds to a wallet inside the caller's transaction. Used when
// a wallet movement must commit atomically with other state, such as refund
// payment.
func (s *Service) CreditTx(ctx context.Context, tx pgx.Tx, userID, currency string, amount int64, txType wallet.TransactionType, description string) (*wallet.Transaction, error) {
	return s.apply(ctx, tx, userID, currency, amount, txType, description)
}

// DebitTx removes funds from a wallet inside the caller's transaction
func (s *Service) DebitTx(ctx context.Context, tx pgx.Tx, userID, currency string, amount int64, txType wallet.TransactionType, description string) (*wallet.Transaction, error) {
	return s.apply(ctx, tx, userID, currency, amount, txType, description)
}

// apply locks the wallet row, checks and moves the balance, and appends the
// history transaction, all inside tx.
func (s *Service) apply(ctx context.Context, tx pgx.Tx, userID, currency string, amount int64, txType wallet.TransactionType, description string) (*wallet.Transaction, error) {
	t, err := wallet.NewTransaction(userID, currency, amount, txType, description)
	if err != nil {
		return nil, err
	}

	lock := s.walletLock(userID, currency)
	lock.Lock()
	defer lock.Unlock()

	repo := s.wallets.WithTx(tx)

	balance, err := repo.LockBalance(ctx, userID, currency)
	if err != nil {
		return nil, fmt.Errorf("failed to lock wallet %s/%s: %w", userID, currency, err)
	}

	if err := balance.Apply(t); err != nil {
		return nil, err
	}

	if err := repo.ApplyTransaction(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to apply wallet transaction: %w", err)
	}

	s.logger.Info("Applied wallet transaction",
		"user_id", userID,
		"currency", currency,
		"type", t.Type,
		"amount", t.Amount,
		"balance", balance.Balance,
	)

	return t, nil
}

// Balance returns the wallet balance, zero for untouched wallets
func (s *Service) Balance(ctx context.Context, userID, currency string) (*wallet.Balance, error) {
	return s.wallets.GetBalance(ctx, userID, currency)
}

// Transactions returns a page of wallet history, newest first
func (s *Service) Transactions(ctx context.Context, userID, currency string, page, perPage int) ([]*wallet.Transaction, int64, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	offset := (page - 1) * perPage

	transactions, err := s.wallets.GetTransactions(ctx, userID, currency, perPage, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.wallets.CountTransactions(ctx, userID, currency)
	if err != nil {
		return nil, 0, err
	}

	return transactions, total, nil
}

type activityRecord struct {
	Kind        string `json:"kind"`
	UserID      string `json:"user_id"`
	Currency    string `json:"currency"`
	Type        string `json:"type"`
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
}

// publishActivity emits a best-effort activity record; failures are logged
// and never affect the wallet movement.
func (s *Service) publishActivity(ctx context.Context, t *wallet.Transaction) {
	if s.activity == nil {
		return
	}
	record := activityRecord{
		Kind:        "WALLET_TRANSACTION",
		UserID:      t.UserID,
		Currency:    t.Currency,
		Type:        string(t.Type),
		Amount:      t.Amount,
		Description: t.Description,
	}
	if err := s.activity.Publish(ctx, t.UserID, record); err != nil {
		s.logger.Warn("Failed to publish wallet activity record", "user_id", t.UserID, "error", err)
	}
}
