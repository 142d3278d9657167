package consumer

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/skyfare/booking-finance/internal/domain/booking"
	"github.com/skyfare/booking-finance/internal/platform/messaging/producers"
	"github.com/skyfare/booking-finance/internal/processor/service"
)

// BookingEventHandler decodes booking events off the wire and hands them to
// the posting service. Malformed messages go to the dead letter queue and are
// acknowledged; processing failures are redelivered.
type BookingEventHandler struct {
	logger  *slog.Logger
	posting service.PostingService
	dlq     producers.DeadLetterPublisher // nil when no DLQ topic is configured
}

// NewBookingEventHandler creates a new handler for booking event messages.
// A disabled DLQ arrives as a nil *DLQProducer; it must not be stored in the
// interface field or the nil check in sendToDLQ would see a non-nil interface
// wrapping a nil pointer.
func NewBookingEventHandler(logger *slog.Logger, posting service.PostingService, dlq *producers.DLQProducer) *BookingEventHandler {
	h := &BookingEventHandler{
		logger:  logger,
		posting: posting,
	}
	if dlq != nil {
		h.dlq = dlq
	}
	return h
}

// HandleMessage processes one raw Kafka message. A nil return commits the
// offset.
func (h *BookingEventHandler) HandleMessage(ctx context.Context, key, value []byte) error {
	var evt booking.Event
	if err := json.Unmarshal(value, &evt); err != nil {
		h.logger.Error("Failed to unmarshal booking event, sending to DLQ",
			"key", string(key),
			"error", err,
		)
		return h.sendToDLQ(ctx, key, value, "unmarshal failure: "+err.Error())
	}

	if err := h.posting.ProcessEvent(ctx, &evt); err != nil {
		h.logger.Error("Failed to process booking event",
			"event_id", evt.EventID,
			"booking_id", evt.Booking.ID,
			"error", err,
		)
		return err
	}

	return nil
}

// sendToDLQ parks an unprocessable message. Only a DLQ publish failure keeps
// the message on the topic.
func (h *BookingEventHandler) sendToDLQ(ctx context.Context, key, value []byte, reason string) error {
	if h.dlq == nil {
		h.logger.Warn("No DLQ configured, dropping unprocessable message", "key", string(key))
		return nil
	}

	if err := h.dlq.PublishToDLQ(ctx, string(key), value, reason); err != nil {
		h.logger.Error("Failed to publish message to DLQ", "key", string(key), "error", err)
		return err
	}

	return nil
}
