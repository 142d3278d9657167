package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/skyfare/booking-finance/internal/domain/booking"
	"github.com/skyfare/booking-finance/internal/domain/commission"
	"github.com/skyfare/booking-finance/internal/platform/persistence"
)

// BookingRepository implements the booking.Repository interface for PostgreSQL
type BookingRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewBookingRepository creates a new PostgreSQL booking repository
func NewBookingRepository(logger *slog.Logger, db *persistence.PostgresDB) booking.Repository {
	return &BookingRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction
func (r *BookingRepository) WithTx(tx pgx.Tx) booking.Repository {
	return &BookingRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a booking together with its priced flight snapshot. The
// commission model is kept as JSON because its shape is owned by the pricing
// side and only read back for cancellation reversals.
func (r *BookingRepository) Create(ctx context.Context, b *booking.Booking) error {
	var model []byte
	if b.Flight.CommissionModel != nil {
		var err error
		model, err = json.Marshal(b.Flight.CommissionModel)
		if err != nil {
			return fmt.Errorf("failed to marshal commission model: %w", err)
		}
	}

	query := `
		INSERT INTO bookings (
			id, user_id, flight_id, flight_number, from_city, to_city,
			departure_time, price, taxes, commission_model,
			passengers, booking_date, status, purchase_price
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := r.querier.Exec(ctx, query,
		b.ID,
		b.UserID,
		b.Flight.ID,
		b.Flight.FlightNumber,
		b.Flight.FromCity,
		b.Flight.ToCity,
		b.Flight.DepartureTime,
		b.Flight.Price,
		b.Flight.Taxes,
		model,
		b.Passengers,
		b.BookingDate,
		b.Status,
		b.PurchasePrice,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return booking.ErrDuplicateBooking{BookingID: b.ID}
		}
		r.logger.Error("Failed to create booking", "id", b.ID.String(), "error", err)
		return fmt.Errorf("failed to create booking: %w", err)
	}

	return nil
}

// GetByID retrieves a booking by its ID
func (r *BookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*booking.Booking, error) {
	query := `
		SELECT id, user_id, flight_id, flight_number, from_city, to_city,
			departure_time, price, taxes, commission_model,
			passengers, booking_date, status, purchase_price
		FROM bookings
		WHERE id = $1
	`

	var b booking.Booking
	var model []byte
	err := r.querier.QueryRow(ctx, query, id).Scan(
		&b.ID,
		&b.UserID,
		&b.Flight.ID,
		&b.Flight.FlightNumber,
		&b.Flight.FromCity,
		&b.Flight.ToCity,
		&b.Flight.DepartureTime,
		&b.Flight.Price,
		&b.Flight.Taxes,
		&model,
		&b.Passengers,
		&b.BookingDate,
		&b.Status,
		&b.PurchasePrice,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, booking.ErrBookingNotFound{BookingID: id}
		}
		r.logger.Error("Failed to get booking", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}

	if len(model) > 0 {
		var m commission.Model
		if err := json.Unmarshal(model, &m); err != nil {
			return nil, fmt.Errorf("failed to unmarshal commission model for booking %s: %w", id, err)
		}
		b.Flight.CommissionModel = &m
	}

	return &b, nil
}

// UpdateStatus moves a booking to a new lifecycle status
func (r *BookingRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status booking.Status) error {
	query := `
		UPDATE bookings
		SET status = $1
		WHERE id = $2
	`

	result, err := r.querier.Exec(ctx, query, status, id)
	if err != nil {
		r.logger.Error("Failed to update booking status", "id", id.String(), "status", string(status), "error", err)
		return fmt.Errorf("failed to update booking status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return booking.ErrBookingNotFound{BookingID: id}
	}

	return nil
}
