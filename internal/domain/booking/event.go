package booking

import (
	"time"

	"github.com/google/uuid"
)

// EventType defines booking lifecycle events processed by the financial engine
type EventType string

const (
	EventBookingCreated   EventType = "BOOKING_CREATED"
	EventBookingCancelled EventType = "BOOKING_CANCELLED"
	EventManualBooking    EventType = "MANUAL_BOOKING"
)

// Event is the message carrying a booking lifecycle event from the API to
// the financial processor. EventID is the idempotency key: an event posted
// to the journal once is never posted again.
type Event struct {
	EventID       uuid.UUID `json:"event_id"`
	Type          EventType `json:"type"`
	Booking       Booking   `json:"booking"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}
