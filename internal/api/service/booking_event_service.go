package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/skyfare/booking-finance/internal/domain/booking"
	"github.com/skyfare/booking-finance/internal/platform/messaging/producers"
)

// BookingEventServiceImpl implements the BookingEventService interface
type BookingEventServiceImpl struct {
	producer producers.MessagePublisher
	logger   *slog.Logger
}

// NewBookingEventService creates a new booking event service
func NewBookingEventService(logger *slog.Logger, producer producers.MessagePublisher) BookingEventService {
	return &BookingEventServiceImpl{
		producer: producer,
		logger:   logger,
	}
}

// Submit validates the event and publishes it onto the event stream, keyed by
// booking ID so events for one booking stay ordered.
func (s *BookingEventServiceImpl) Submit(ctx context.Context, eventType booking.EventType, b *booking.Booking, correlationID string) (*booking.Event, error) {
	if b.UserID == "" {
		return nil, booking.ErrEmptyUserID
	}
	if b.Passengers <= 0 {
		return nil, booking.ErrInvalidPassengers
	}
	if b.Flight.Price < 0 || b.Flight.Taxes < 0 {
		return nil, booking.ErrNegativePrice
	}
	if eventType == booking.EventManualBooking && b.PurchasePrice == nil {
		return nil, booking.ErrMissingPurchasePrice
	}

	event := &booking.Event{
		EventID:       uuid.New(),
		Type:          eventType,
		Booking:       *b,
		CorrelationID: correlationID,
		Timestamp:     time.Now().UTC(),
	}

	if err := s.producer.Publish(ctx, b.ID.String(), event); err != nil {
		s.logger.Error("Failed to publish booking event",
			"event_id", event.EventID,
			"booking_id", b.ID,
			"type", string(eventType),
			"error", err,
		)
		return nil, err
	}

	s.logger.Info("Booking event published",
		"event_id", event.EventID,
		"booking_id", b.ID,
		"type", string(eventType),
	)

	return event, nil
}
