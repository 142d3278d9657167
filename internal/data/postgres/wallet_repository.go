// Package postgres provides PostgreSQL implementations of the domain
// repositories. Wallets, bookings, refunds, rate limits and the journal
// outbox all live here; the journal itself lives in MongoDB.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/skyfare/booking-finance/internal/domain/wallet"
	"github.com/skyfare/booking-finance/internal/platform/persistence"
)

// WalletRepository implements the wallet.Repository interface for PostgreSQL
type WalletRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewWalletRepository creates a new PostgreSQL wallet repository
func NewWalletRepository(logger *slog.Logger, db *persistence.PostgresDB) wallet.Repository {
	return &WalletRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction so a wallet movement can
// commit atomically with other state.
func (r *WalletRepository) WithTx(tx pgx.Tx) wallet.Repository {
	return &WalletRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// GetBalance retrieves the wallet balance. A wallet that has never been
// touched reads as a zero balance rather than an error.
func (r *WalletRepository) GetBalance(ctx context.Context, userID, currency string) (*wallet.Balance, error) {
	query := `
		SELECT user_id, currency, balance, updated_at
		FROM wallet_balances
		WHERE user_id = $1 AND currency = $2
	`

	var b wallet.Balance
	err := r.querier.QueryRow(ctx, query, userID, currency).Scan(
		&b.UserID,
		&b.Currency,
		&b.Balance,
		&b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &wallet.Balance{UserID: userID, Currency: currency}, nil
		}
		r.logger.Error("Failed to get wallet balance", "user_id", userID, "currency", currency, "error", err)
		return nil, fmt.Errorf("failed to get wallet balance: %w", err)
	}

	return &b, nil
}

// LockBalance locks the wallet row for the surrounding transaction, creating
// a zero balance row first if the wallet has never been touched. The lock
// serializes the funds check against the balance update.
func (r *WalletRepository) LockBalance(ctx context.Context, userID, currency string) (*wallet.Balance, error) {
	insert := `
		INSERT INTO wallet_balances (user_id, currency, balance, updated_at)
		VALUES ($1, $2, 0, $3)
		ON CONFLICT (user_id, currency) DO NOTHING
	`
	if _, err := r.querier.Exec(ctx, insert, userID, currency, time.Now().UTC()); err != nil {
		r.logger.Error("Failed to ensure wallet balance row", "user_id", userID, "currency", currency, "error", err)
		return nil, fmt.Errorf("failed to ensure wallet balance row: %w", err)
	}

	query := `
		SELECT user_id, currency, balance, updated_at
		FROM wallet_balances
		WHERE user_id = $1 AND currency = $2
		FOR UPDATE
	`

	var b wallet.Balance
	err := r.querier.QueryRow(ctx, query, userID, currency).Scan(
		&b.UserID,
		&b.Currency,
		&b.Balance,
		&b.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to lock wallet balance", "user_id", userID, "currency", currency, "error", err)
		return nil, fmt.Errorf("failed to lock wallet balance: %w", err)
	}

	return &b, nil
}

// ApplyTransaction moves the balance by the signed amount and appends the
// transaction to the history in one statement pair. Callers run it inside a
// transaction after LockBalance.
func (r *WalletRepository) ApplyTransaction(ctx context.Context, t *wallet.Transaction) error {
	update := `
		UPDATE wallet_balances
		SET balance = balance + $1, updated_at = $2
		WHERE user_id = $3 AND currency = $4
	`

	result, err := r.querier.Exec(ctx, update, t.Amount, t.Date, t.UserID, t.Currency)
	if err != nil {
		r.logger.Error("Failed to update wallet balance", "user_id", t.UserID, "currency", t.Currency, "error", err)
		return fmt.Errorf("failed to update wallet balance: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("wallet balance row missing for %s/%s", t.UserID, t.Currency)
	}

	insert := `
		INSERT INTO wallet_transactions (id, user_id, currency, type, amount, description, date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err = r.querier.Exec(ctx, insert,
		t.ID,
		t.UserID,
		t.Currency,
		t.Type,
		t.Amount,
		t.Description,
		t.Date,
	)
	if err != nil {
		r.logger.Error("Failed to insert wallet transaction", "user_id", t.UserID, "currency", t.Currency, "error", err)
		return fmt.Errorf("failed to insert wallet transaction: %w", err)
	}

	return nil
}

// GetTransactions retrieves a page of wallet history, newest first
func (r *WalletRepository) GetTransactions(ctx context.Context, userID, currency string, limit, offset int) ([]*wallet.Transaction, error) {
	query := `
		SELECT id, user_id, currency, type, amount, description, date
		FROM wallet_transactions
		WHERE user_id = $1 AND currency = $2
		ORDER BY date DESC
		LIMIT $3 OFFSET $4
	`

	rows, err := r.querier.Query(ctx, query, userID, currency, limit, offset)
	if err != nil {
		r.logger.Error("Failed to get wallet transactions", "user_id", userID, "currency", currency, "error", err)
		return nil, fmt.Errorf("failed to get wallet transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*wallet.Transaction
	for rows.Next() {
		var t wallet.Transaction
		err := rows.Scan(
			&t.ID,
			&t.UserID,
			&t.Currency,
			&t.Type,
			&t.Amount,
			&t.Description,
			&t.Date,
		)
		if err != nil {
			r.logger.Error("Failed to scan wallet transaction", "error", err)
			return nil, fmt.Errorf("failed to scan wallet transaction: %w", err)
		}
		transactions = append(transactions, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over wallet transactions: %w", err)
	}

	return transactions, nil
}

// CountTransactions returns the wallet history size
func (r *WalletRepository) CountTransactions(ctx context.Context, userID, currency string) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM wallet_transactions
		WHERE user_id = $1 AND currency = $2
	`

	var count int64
	if err := r.querier.QueryRow(ctx, query, userID, currency).Scan(&count); err != nil {
		r.logger.Error("Failed to count wallet transactions", "user_id", userID, "currency", currency, "error", err)
		return 0, fmt.Errorf("failed to count wallet transactions: %w", err)
	}

	return count, nil
}
