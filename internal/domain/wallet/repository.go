package wallet

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Repository persists wallet balances and their append-only transaction
// history. ApplyTransaction must move the balance and append the history row
// as one atomic operation; callers run it inside a database transaction.
type Repository interface {
	// GetBalance returns the wallet balance, or a zero balance if the wallet
	// has never been touched.
	GetBalance(ctx context.Context, userID, currency string) (*Balance, error)

	// LockBalance acquires a row lock on the wallet for the duration of the
	// surrounding transaction, creating a zero balance row if absent. Used to
	// serialize the insufficient-funds check against the balance update.
	LockBalance(ctx context.Context, userID, currency string) (*Balance, error)

	// ApplyTransaction adds the signed amount to the balance and appends the
	// transaction to the history.
	ApplyTransaction(ctx context.Context, t *Transaction) error

	GetTransactions(ctx context.Context, userID, currency string, limit, offset int) ([]*Transaction, error)
	CountTransactions(ctx context.Context, userID, currency string) (int64, error)

	WithTx(tx pgx.Tx) Repository
}
