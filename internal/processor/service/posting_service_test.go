package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/skyfare/booking-finance/internal/domain/accounting"
	"github.com/skyfare/booking-finance/internal/domain/booking"
	"github.com/skyfare/booking-finance/internal/domain/commission"
	"github.com/skyfare/booking-finance/internal/domain/outbox"
	"github.com/skyfare/booking-finance/internal/domain/wallet"
	"github.com/skyfare/booking-finance/internal/journal"
)

type fakeTxRunner struct{}

func (f *fakeTxRunner) ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return fn(nil)
}

type MockBookingRepository struct {
	mock.Mock
}

func (m *MockBookingRepository) Create(ctx context.Context, b *booking.Booking) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

func (m *MockBookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*booking.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *MockBookingRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status booking.Status) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockBookingRepository) WithTx(tx pgx.Tx) booking.Repository {
	return m
}

type MockOutboxRepository struct {
	mock.Mock
}

func (m *MockOutboxRepository) Create(ctx context.Context, message *outbox.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *MockOutboxRepository) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*outbox.Message), args.Error(1)
}

func (m *MockOutboxRepository) UpdateStatus(ctx context.Context, id int64, status outbox.Status) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockOutboxRepository) IncrementAttempts(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOutboxRepository) GetByEventID(ctx context.Context, eventID uuid.UUID) (*outbox.Message, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*outbox.Message), args.Error(1)
}

func (m *MockOutboxRepository) WithTx(tx pgx.Tx) outbox.Repository {
	return m
}

type MockJournalRepository struct {
	mock.Mock
}

func (m *MockJournalRepository) Append(ctx context.Context, entry *accounting.JournalEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockJournalRepository) GetByID(ctx context.Context, id uuid.UUID) (*accounting.JournalEntry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accounting.JournalEntry), args.Error(1)
}

func (m *MockJournalRepository) GetByEventID(ctx context.Context, eventID uuid.UUID) (*accounting.JournalEntry, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accounting.JournalEntry), args.Error(1)
}

func (m *MockJournalRepository) GetByBookingID(ctx context.Context, bookingID uuid.UUID) ([]*accounting.JournalEntry, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*accounting.JournalEntry), args.Error(1)
}

func (m *MockJournalRepository) GetByTimeRange(ctx context.Context, startTime, endTime time.Time, limit, offset int) ([]*accounting.JournalEntry, error) {
	args := m.Called(ctx, startTime, endTime, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*accounting.JournalEntry), args.Error(1)
}

func (m *MockJournalRepository) CountByTimeRange(ctx context.Context, startTime, endTime time.Time) (int64, error) {
	args := m.Called(ctx, startTime, endTime)
	return args.Get(0).(int64), args.Error(1)
}

type MockWalletLedger struct {
	mock.Mock
}

func (m *MockWalletLedger) DebitTx(ctx context.Context, tx pgx.Tx, userID, currency string, amount int64, txType wallet.TransactionType, description string) (*wallet.Transaction, error) {
	args := m.Called(ctx, tx, userID, currency, amount, txType, description)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Transaction), args.Error(1)
}

type postingEnv struct {
	svc      PostingService
	bookings *MockBookingRepository
	outbox   *MockOutboxRepository
	journal  *MockJournalRepository
	wallets  *MockWalletLedger
}

func newPostingEnv() *postingEnv {
	bookings := &MockBookingRepository{}
	outboxRepo := &MockOutboxRepository{}
	journalRepo := &MockJournalRepository{}
	wallets := &MockWalletLedger{}
	engine := journal.NewEngine(slog.Default(), accounting.DefaultChart())

	svc := NewPostingService(slog.Default(), &fakeTxRunner{}, bookings, outboxRepo, journalRepo, engine, wallets, nil)
	return &postingEnv{svc: svc, bookings: bookings, outbox: outboxRepo, journal: journalRepo, wallets: wallets}
}

// expectNotProcessed sets up the idempotency probes to report a fresh event
func (e *postingEnv) expectNotProcessed(eventID uuid.UUID) {
	e.outbox.On("GetByEventID", mock.Anything, eventID).Return(nil, outbox.ErrMessageNotFound{})
	e.journal.On("GetByEventID", mock.Anything, eventID).Return(nil, accounting.ErrEntryNotFound{})
}

func createdEvent() *booking.Event {
	return &booking.Event{
		EventID:       uuid.New(),
		Type:          booking.EventBookingCreated,
		CorrelationID: "corr-1",
		Timestamp:     time.Now().UTC(),
		Booking: booking.Booking{
			ID:     uuid.New(),
			UserID: "user-1",
			Flight: booking.Flight{
				ID:           uuid.New(),
				FlightNumber: "IR452",
				FromCity:     "Tehran",
				ToCity:       "Mashhad",
				Price:        35_000_000,
				Taxes:        4_500_000,
				CommissionModel: &commission.Model{
					ID:                   uuid.New(),
					CalculationType:      commission.CalculationTypePercentage,
					CharterCommission:    5,
					CreatorCommission:    3,
					WebServiceCommission: 2,
				},
			},
			Passengers:  2,
			BookingDate: time.Now().UTC(),
			Status:      booking.StatusConfirmed,
		},
	}
}

func TestProcessEvent_BookingCreated(t *testing.T) {
	ctx := context.Background()
	env := newPostingEnv()
	evt := createdEvent()

	env.expectNotProcessed(evt.EventID)
	env.bookings.On("Create", mock.Anything, mock.MatchedBy(func(b *booking.Booking) bool {
		return b.ID == evt.Booking.ID
	})).Return(nil)
	env.wallets.On("DebitTx", mock.Anything, mock.Anything, "user-1", wallet.CurrencyIRR, int64(79_000_000), wallet.TypeBookingPayment, mock.Anything).
		Return(&wallet.Transaction{Amount: -79_000_000}, nil)
	env.outbox.On("Create", mock.Anything, mock.MatchedBy(func(msg *outbox.Message) bool {
		return msg.EventID == evt.EventID && msg.BookingID == evt.Booking.ID && msg.Status == outbox.StatusPending
	})).Return(nil)

	err := env.svc.ProcessEvent(ctx, evt)
	require.NoError(t, err)

	env.bookings.AssertExpectations(t)
	env.wallets.AssertExpectations(t)
	env.outbox.AssertExpectations(t)
}

func TestProcessEvent_BookingCreated_InsufficientFunds(t *testing.T) {
	ctx := context.Background()
	env := newPostingEnv()
	evt := createdEvent()

	env.expectNotProcessed(evt.EventID)
	env.bookings.On("Create", mock.Anything, mock.Anything).Return(nil)
	env.wallets.On("DebitTx", mock.Anything, mock.Anything, "user-1", wallet.CurrencyIRR, int64(79_000_000), wallet.TypeBookingPayment, mock.Anything).
		Return(nil, wallet.ErrInsufficientFunds)

	// A failed payment is a business outcome: the event is acknowledged, not retried
	err := env.svc.ProcessEvent(ctx, evt)
	assert.NoError(t, err)
	env.outbox.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestProcessEvent_AlreadyProcessed(t *testing.T) {
	ctx := context.Background()
	env := newPostingEnv()
	evt := createdEvent()

	env.outbox.On("GetByEventID", mock.Anything, evt.EventID).
		Return(&outbox.Message{ID: 7, EventID: evt.EventID}, nil)

	err := env.svc.ProcessEvent(ctx, evt)
	require.NoError(t, err)

	env.bookings.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	env.outbox.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestProcessEvent_BookingCancelled(t *testing.T) {
	ctx := context.Background()
	env := newPostingEnv()
	evt := createdEvent()

	engine := journal.NewEngine(slog.Default(), accounting.DefaultChart())
	original, err := engine.PostBookingCreated(evt)
	require.NoError(t, err)

	cancelEvt := &booking.Event{
		EventID:   uuid.New(),
		Type:      booking.EventBookingCancelled,
		Booking:   evt.Booking,
		Timestamp: time.Now().UTC(),
	}

	env.expectNotProcessed(cancelEvt.EventID)
	env.journal.On("GetByBookingID", mock.Anything, evt.Booking.ID).
		Return([]*accounting.JournalEntry{original}, nil)
	env.bookings.On("GetByID", mock.Anything, evt.Booking.ID).Return(&evt.Booking, nil)
	env.outbox.On("Create", mock.Anything, mock.MatchedBy(func(msg *outbox.Message) bool {
		if msg.EventID != cancelEvt.EventID {
			return false
		}
		entry, err := msg.JournalEntry()
		return err == nil && entry.Source == accounting.SourceBookingCancelled && entry.Balanced()
	})).Return(nil)
	env.bookings.On("UpdateStatus", mock.Anything, evt.Booking.ID, booking.StatusCancelled).Return(nil)

	err = env.svc.ProcessEvent(ctx, cancelEvt)
	require.NoError(t, err)

	env.bookings.AssertExpectations(t)
	env.outbox.AssertExpectations(t)
}

func TestProcessEvent_BookingCancelled_SaleNotPublishedYet(t *testing.T) {
	ctx := context.Background()
	env := newPostingEnv()
	evt := createdEvent()

	cancelEvt := &booking.Event{
		EventID:   uuid.New(),
		Type:      booking.EventBookingCancelled,
		Booking:   evt.Booking,
		Timestamp: time.Now().UTC(),
	}

	env.expectNotProcessed(cancelEvt.EventID)
	env.journal.On("GetByBookingID", mock.Anything, evt.Booking.ID).
		Return([]*accounting.JournalEntry{}, nil)

	// The event must be redelivered once the poller has published the sale entry
	err := env.svc.ProcessEvent(ctx, cancelEvt)
	assert.Error(t, err)
	env.outbox.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestProcessEvent_ManualBooking(t *testing.T) {
	ctx := context.Background()
	env := newPostingEnv()
	evt := createdEvent()
	evt.Type = booking.EventManualBooking
	purchase := int64(60_000_000)
	evt.Booking.PurchasePrice = &purchase

	env.expectNotProcessed(evt.EventID)
	env.bookings.On("Create", mock.Anything, mock.Anything).Return(nil)
	env.outbox.On("Create", mock.Anything, mock.MatchedBy(func(msg *outbox.Message) bool {
		entry, err := msg.JournalEntry()
		return err == nil && entry.Source == accounting.SourceManualBooking
	})).Return(nil)

	err := env.svc.ProcessEvent(ctx, evt)
	require.NoError(t, err)

	// Manual bookings never touch the wallet
	env.wallets.AssertNotCalled(t, "DebitTx", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessEvent_UnknownTypeAcked(t *testing.T) {
	ctx := context.Background()
	env := newPostingEnv()
	evt := createdEvent()
	evt.Type = "BOOKING_AMENDED"

	env.expectNotProcessed(evt.EventID)

	err := env.svc.ProcessEvent(ctx, evt)
	assert.NoError(t, err)
	env.bookings.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}
