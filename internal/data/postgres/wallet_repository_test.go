package postgres

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyfare/booking-finance/internal/domain/wallet"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestWalletRepository_GetBalance(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &WalletRepository{querier: mock, logger: logger}
	now := time.Now()

	query := `
		SELECT user_id, currency, balance, updated_at
		FROM wallet_balances
		WHERE user_id = \$1 AND currency = \$2
	`

	t.Run("success", func(t *testing.T) {
		rows := pgxmock.NewRows([]string{"user_id", "currency", "balance", "updated_at"}).
			AddRow("user-42", "IRR", int64(150_000_000), now)
		mock.ExpectQuery(query).WithArgs("user-42", "IRR").WillReturnRows(rows)

		b, err := repo.GetBalance(ctx, "user-42", "IRR")
		assert.NoError(t, err)
		assert.Equal(t, int64(150_000_000), b.Balance)
		assert.Equal(t, "user-42", b.UserID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("untouched wallet reads as zero", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs("new-user", "IRR").WillReturnError(pgx.ErrNoRows)

		b, err := repo.GetBalance(ctx, "new-user", "IRR")
		assert.NoError(t, err)
		assert.Equal(t, int64(0), b.Balance)
		assert.Equal(t, "new-user", b.UserID)
		assert.Equal(t, "IRR", b.Currency)
		assert.True(t, b.UpdatedAt.IsZero())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failure", func(t *testing.T) {
		expectedErr := errors.New("db error")
		mock.ExpectQuery(query).WithArgs("user-42", "IRR").WillReturnError(expectedErr)

		b, err := repo.GetBalance(ctx, "user-42", "IRR")
		assert.Error(t, err)
		assert.Nil(t, b)
		assert.ErrorIs(t, err, expectedErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestWalletRepository_LockBalance(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &WalletRepository{querier: mock, logger: logger}
	now := time.Now()

	insert := `
		INSERT INTO wallet_balances \(user_id, currency, balance, updated_at\)
		VALUES \(\$1, \$2, 0, \$3\)
		ON CONFLICT \(user_id, currency\) DO NOTHING
	`
	query := `
		SELECT user_id, currency, balance, updated_at
		FROM wallet_balances
		WHERE user_id = \$1 AND currency = \$2
		FOR UPDATE
	`

	t.Run("locks existing row", func(t *testing.T) {
		mock.ExpectExec(insert).
			WithArgs("user-42", "IRR", pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 0))
		rows := pgxmock.NewRows([]string{"user_id", "currency", "balance", "updated_at"}).
			AddRow("user-42", "IRR", int64(5000), now)
		mock.ExpectQuery(query).WithArgs("user-42", "IRR").WillReturnRows(rows)

		b, err := repo.LockBalance(ctx, "user-42", "IRR")
		assert.NoError(t, err)
		assert.Equal(t, int64(5000), b.Balance)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("creates and locks zero row for untouched wallet", func(t *testing.T) {
		mock.ExpectExec(insert).
			WithArgs("new-user", "IRR", pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		rows := pgxmock.NewRows([]string{"user_id", "currency", "balance", "updated_at"}).
			AddRow("new-user", "IRR", int64(0), now)
		mock.ExpectQuery(query).WithArgs("new-user", "IRR").WillReturnRows(rows)

		b, err := repo.LockBalance(ctx, "new-user", "IRR")
		assert.NoError(t, err)
		assert.Equal(t, int64(0), b.Balance)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("insert failure", func(t *testing.T) {
		expectedErr := errors.New("db error")
		mock.ExpectExec(insert).
			WithArgs("user-42", "IRR", pgxmock.AnyArg()).
			WillReturnError(expectedErr)

		b, err := repo.LockBalance(ctx, "user-42", "IRR")
		assert.Error(t, err)
		assert.Nil(t, b)
		assert.ErrorIs(t, err, expectedErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestWalletRepository_ApplyTransaction(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &WalletRepository{querier: mock, logger: logger}

	tx := &wallet.Transaction{
		ID:          uuid.New(),
		UserID:      "user-42",
		Currency:    "IRR",
		Type:        wallet.TypeBookingPayment,
		Amount:      -79_000_000,
		Description: "Booking payment",
		Date:        time.Now().UTC(),
	}

	update := `
		UPDATE wallet_balances
		SET balance = balance \+ \$1, updated_at = \$2
		WHERE user_id = \$3 AND currency = \$4
	`
	insert := `
		INSERT INTO wallet_transactions \(id, user_id, currency, type, amount, description, date\)
		VALUES \(\$1, \$2, \$3, \$4, \$5, \$6, \$7\)
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(update).
			WithArgs(tx.Amount, tx.Date, tx.UserID, tx.Currency).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectExec(insert).
			WithArgs(tx.ID, tx.UserID, tx.Currency, tx.Type, tx.Amount, tx.Description, tx.Date).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err := repo.ApplyTransaction(ctx, tx)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing balance row", func(t *testing.T) {
		mock.ExpectExec(update).
			WithArgs(tx.Amount, tx.Date, tx.UserID, tx.Currency).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.ApplyTransaction(ctx, tx)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "wallet balance row missing")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("history insert failure", func(t *testing.T) {
		expectedErr := errors.New("db error")
		mock.ExpectExec(update).
			WithArgs(tx.Amount, tx.Date, tx.UserID, tx.Currency).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectExec(insert).
			WithArgs(tx.ID, tx.UserID, tx.Currency, tx.Type, tx.Amount, tx.Description, tx.Date).
			WillReturnError(expectedErr)

		err := repo.ApplyTransaction(ctx, tx)
		assert.Error(t, err)
		assert.ErrorIs(t, err, expectedErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestWalletRepository_GetTransactions(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &WalletRepository{querier: mock, logger: logger}
	now := time.Now()

	query := `
		SELECT id, user_id, currency, type, amount, description, date
		FROM wallet_transactions
		WHERE user_id = \$1 AND currency = \$2
		ORDER BY date DESC
		LIMIT \$3 OFFSET \$4
	`

	t.Run("success", func(t *testing.T) {
		firstID := uuid.New()
		secondID := uuid.New()
		rows := pgxmock.NewRows([]string{"id", "user_id", "currency", "type", "amount", "description", "date"}).
			AddRow(firstID, "user-42", "IRR", wallet.TypeDeposit, int64(1000), "top up", now).
			AddRow(secondID, "user-42", "IRR", wallet.TypeBookingPayment, int64(-400), "", now.Add(-time.Hour))
		mock.ExpectQuery(query).WithArgs("user-42", "IRR", 20, 0).WillReturnRows(rows)

		transactions, err := repo.GetTransactions(ctx, "user-42", "IRR", 20, 0)
		assert.NoError(t, err)
		require.Len(t, transactions, 2)
		assert.Equal(t, firstID, transactions[0].ID)
		assert.Equal(t, wallet.TypeDeposit, transactions[0].Type)
		assert.Equal(t, int64(-400), transactions[1].Amount)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failure", func(t *testing.T) {
		expectedErr := errors.New("db error")
		mock.ExpectQuery(query).WithArgs("user-42", "IRR", 20, 0).WillReturnError(expectedErr)

		transactions, err := repo.GetTransactions(ctx, "user-42", "IRR", 20, 0)
		assert.Error(t, err)
		assert.Nil(t, transactions)
		assert.ErrorIs(t, err, expectedErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestWalletRepository_CountTransactions(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &WalletRepository{querier: mock, logger: logger}

	query := `
		SELECT COUNT\(\*\)
		FROM wallet_transactions
		WHERE user_id = \$1 AND currency = \$2
	`

	t.Run("success", func(t *testing.T) {
		rows := pgxmock.NewRows([]string{"count"}).AddRow(int64(7))
		mock.ExpectQuery(query).WithArgs("user-42", "IRR").WillReturnRows(rows)

		count, err := repo.CountTransactions(ctx, "user-42", "IRR")
		assert.NoError(t, err)
		assert.Equal(t, int64(7), count)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failure", func(t *testing.T) {
		expectedErr := errors.New("db error")
		mock.ExpectQuery(query).WithArgs("user-42", "IRR").WillReturnError(expectedErr)

		count, err := repo.CountTransactions(ctx, "user-42", "IRR")
		assert.Error(t, err)
		assert.Zero(t, count)
		assert.ErrorIs(t, err, expectedErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
