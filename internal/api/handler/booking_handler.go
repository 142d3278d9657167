package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/skyfare/booking-finance/internal/api/middleware"
	"github.com/skyfare/booking-finance/internal/api/service"
	"github.com/skyfare/booking-finance/internal/domain/booking"
)

// BookingHandler accepts booking lifecycle events for financial processing
type BookingHandler struct {
	events service.BookingEventService
	logger *slog.Logger
}

// NewBookingHandler creates a new booking event handler
func NewBookingHandler(logger *slog.Logger, events service.BookingEventService) *BookingHandler {
	return &BookingHandler{
		events: events,
		logger: logger,
	}
}

// SubmitEvent accepts a booking lifecycle event. The event is published for
// asynchronous processing and acknowledged with 202; the journal entry and
// wallet effects appear once the processor has handled it.
func (h *BookingHandler) SubmitEvent(c *gin.Context) {
	var req BookingEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid booking event body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	b, err := req.Booking.toDomain()
	if err != nil {
		h.logger.Error("Invalid booking payload", "error", err)
		RespondBadRequest(c, "Invalid booking payload: "+err.Error())
		return
	}

	eventType := booking.EventType(req.Type)
	if eventType == booking.EventManualBooking && b.PurchasePrice == nil {
		RespondBadRequest(c, "Manual booking requires a purchase price")
		return
	}

	event, err := h.events.Submit(c.Request.Context(), eventType, b, middleware.GetCorrelationID(c))
	if err != nil {
		switch err {
		case booking.ErrEmptyUserID, booking.ErrInvalidPassengers, booking.ErrNegativePrice, booking.ErrMissingPurchasePrice:
			RespondBadRequest(c, err.Error())
		default:
			h.logger.Error("Failed to submit booking event", "booking_id", b.ID, "error", err)
			RespondInternalError(c)
		}
		return
	}

	RespondAccepted(c, gin.H{
		"event_id":   event.EventID.String(),
		"booking_id": b.ID.String(),
		"type":       string(event.Type),
		"status":     "PENDING",
	})
}
