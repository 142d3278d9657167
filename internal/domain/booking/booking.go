package booking

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/skyfare/booking-finance/internal/domain/commission"
)

// Common errors
var (
	ErrEmptyUserID          = errors.New("booking user id cannot be empty")
	ErrInvalidPassengers    = errors.New("passenger count must be positive")
	ErrNegativePrice        = errors.New("flight price and taxes must be non-negative")
	ErrMissingPurchasePrice = errors.New("manual booking requires a purchase price")
)

// Status defines booking lifecycle states. Status is the only field of a
// booking this engine mutates.
type Status string

const (
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
	StatusRefunded  Status = "REFUNDED"
)

// Flight carries the priced flight a booking was made against. Price and
// Taxes are per passenger, in minor currency units.
type Flight struct {
	ID              uuid.UUID         `json:"id"`
	FlightNumber    string            `json:"flight_number"`
	FromCity        string            `json:"from_city"`
	ToCity          string            `json:"to_city"`
	DepartureTime   time.Time         `json:"departure_time"`
	Price           int64             `json:"price"`
	Taxes           int64             `json:"taxes"`
	CommissionModel *commission.Model `json:"commission_model,omitempty"`
}

// TotalFare is the per-passenger fare including taxes
func (f Flight) TotalFare() int64 {
	return f.Price + f.Taxes
}

// Booking represents a priced reservation. Manual bookings additionally carry
// the operator-supplied purchase (cost) price for the whole booking.
type Booking struct {
	ID            uuid.UUID `json:"id"`
	UserID        string    `json:"user_id"`
	Flight        Flight    `json:"flight"`
	Passengers    int       `json:"passengers"`
	BookingDate   time.Time `json:"booking_date"`
	Status        Status    `json:"status"`
	PurchasePrice *int64    `json:"purchase_price,omitempty"`
}

// New validates and creates a confirmed booking
func New(userID string, flight Flight, passengers int) (*Booking, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}
	if passengers <= 0 {
		return nil, ErrInvalidPassengers
	}
	if flight.Price < 0 || flight.Taxes < 0 {
		return nil, ErrNegativePrice
	}

	return &Booking{
		ID:          uuid.New(),
		UserID:      userID,
		Flight:      flight,
		Passengers:  passengers,
		BookingDate: time.Now().UTC(),
		Status:      StatusConfirmed,
	}, nil
}

// BasePriceTotal is the fare excluding taxes across all passengers.
// Commission splits are computed against this amount.
func (b *Booking) BasePriceTotal() int64 {
	return b.Flight.Price * int64(b.Passengers)
}

// TaxesTotal is the tax amount across all passengers
func (b *Booking) TaxesTotal() int64 {
	return b.Flight.Taxes * int64(b.Passengers)
}

// TotalPrice is the full amount charged for the booking
func (b *Booking) TotalPrice() int64 {
	return b.BasePriceTotal() + b.TaxesTotal()
}
