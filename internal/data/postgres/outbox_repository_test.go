package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyfare/booking-finance/internal/domain/outbox"
)

func pendingOutboxMessage() *outbox.Message {
	return &outbox.Message{
		EntryID:   uuid.New(),
		EventID:   uuid.New(),
		BookingID: uuid.New(),
		Payload:   []byte(`{"id":"entry"}`),
		Status:    outbox.StatusPending,
		Attempts:  0,
		CreatedAt: time.Now().UTC(),
	}
}

func TestOutboxRepository_Create(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &OutboxRepository{querier: mock, logger: logger}
	msg := pendingOutboxMessage()

	query := `
		INSERT INTO journal_outbox \(entry_id, event_id, booking_id, payload, status, attempts, created_at\)
		VALUES \(\$1, \$2, \$3, \$4, \$5, \$6, \$7\)
		RETURNING id
	`

	t.Run("success assigns generated id", func(t *testing.T) {
		rows := pgxmock.NewRows([]string{"id"}).AddRow(int64(7))
		mock.ExpectQuery(query).
			WithArgs(msg.EntryID, msg.EventID, msg.BookingID, msg.Payload, msg.Status, msg.Attempts, msg.CreatedAt).
			WillReturnRows(rows)

		err := repo.Create(ctx, msg)
		assert.NoError(t, err)
		assert.Equal(t, int64(7), msg.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failure", func(t *testing.T) {
		expectedErr := errors.New("db error")
		mock.ExpectQuery(query).
			WithArgs(msg.EntryID, msg.EventID, msg.BookingID, msg.Payload, msg.Status, msg.Attempts, msg.CreatedAt).
			WillReturnError(expectedErr)

		err := repo.Create(ctx, msg)
		assert.Error(t, err)
		assert.ErrorIs(t, err, expectedErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestOutboxRepository_GetPending(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &OutboxRepository{querier: mock, logger: logger}
	now := time.Now().UTC()

	query := `
		SELECT id, entry_id, event_id, booking_id, payload, status, attempts, created_at, last_attempt_at
		FROM journal_outbox
		WHERE status = \$1
		ORDER BY created_at ASC
		LIMIT \$2
	`

	t.Run("success", func(t *testing.T) {
		rows := pgxmock.NewRows([]string{"id", "entry_id", "event_id", "booking_id", "payload", "status", "attempts", "created_at", "last_attempt_at"}).
			AddRow(int64(1), uuid.New(), uuid.New(), uuid.New(), []byte(`{}`), outbox.StatusPending, 0, now, (*time.Time)(nil)).
			AddRow(int64(2), uuid.New(), uuid.New(), uuid.New(), []byte(`{}`), outbox.StatusPending, 1, now.Add(time.Second), &now)
		mock.ExpectQuery(query).WithArgs(outbox.StatusPending, 10).WillReturnRows(rows)

		messages, err := repo.GetPending(ctx, 10)
		assert.NoError(t, err)
		require.Len(t, messages, 2)
		assert.Equal(t, int64(1), messages[0].ID)
		assert.Nil(t, messages[0].LastAttemptAt)
		assert.NotNil(t, messages[1].LastAttemptAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failure", func(t *testing.T) {
		expectedErr := errors.New("db error")
		mock.ExpectQuery(query).WithArgs(outbox.StatusPending, 10).WillReturnError(expectedErr)

		messages, err := repo.GetPending(ctx, 10)
		assert.Error(t, err)
		assert.Nil(t, messages)
		assert.ErrorIs(t, err, expectedErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestOutboxRepository_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &OutboxRepository{querier: mock, logger: logger}

	query := `
		UPDATE journal_outbox
		SET status = \$1, last_attempt_at = \$2
		WHERE id = \$3
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(outbox.StatusProcessed, pgxmock.AnyArg(), int64(42)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := repo.UpdateStatus(ctx, 42, outbox.StatusProcessed)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing message", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(outbox.StatusProcessed, pgxmock.AnyArg(), int64(42)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.UpdateStatus(ctx, 42, outbox.StatusProcessed)
		assert.Error(t, err)
		assert.ErrorIs(t, err, outbox.ErrMessageNotFound{})
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestOutboxRepository_GetByEventID(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &OutboxRepository{querier: mock, logger: logger}
	eventID := uuid.New()
	now := time.Now().UTC()

	query := `
		SELECT id, entry_id, event_id, booking_id, payload, status, attempts, created_at, last_attempt_at
		FROM journal_outbox
		WHERE event_id = \$1
	`

	t.Run("success", func(t *testing.T) {
		rows := pgxmock.NewRows([]string{"id", "entry_id", "event_id", "booking_id", "payload", "status", "attempts", "created_at", "last_attempt_at"}).
			AddRow(int64(5), uuid.New(), eventID, uuid.New(), []byte(`{}`), outbox.StatusProcessed, 1, now, &now)
		mock.ExpectQuery(query).WithArgs(eventID).WillReturnRows(rows)

		msg, err := repo.GetByEventID(ctx, eventID)
		assert.NoError(t, err)
		assert.Equal(t, eventID, msg.EventID)
		assert.Equal(t, outbox.StatusProcessed, msg.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(eventID).WillReturnError(pgx.ErrNoRows)

		msg, err := repo.GetByEventID(ctx, eventID)
		assert.Error(t, err)
		assert.Nil(t, msg)
		assert.ErrorIs(t, err, outbox.ErrMessageNotFound{})
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestOutboxRepository_IncrementAttempts(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &OutboxRepository{querier: mock, logger: logger}

	query := `
		UPDATE journal_outbox
		SET attempts = attempts \+ 1, last_attempt_at = \$1
		WHERE id = \$2
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(pgxmock.AnyArg(), int64(42)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := repo.IncrementAttempts(ctx, 42)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing message", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(pgxmock.AnyArg(), int64(42)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.IncrementAttempts(ctx, 42)
		assert.ErrorIs(t, err, outbox.ErrMessageNotFound{})
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
