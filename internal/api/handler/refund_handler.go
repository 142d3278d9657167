package handler

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/skyfare/booking-finance/internal/api/middleware"
	"github.com/skyfare/booking-finance/internal/api/service"
	"github.com/skyfare/booking-finance/internal/domain/booking"
	"github.com/skyfare/booking-finance/internal/domain/refund"
	"github.com/skyfare/booking-finance/internal/refundflow"
)

// RefundHandler handles HTTP requests for the refund workflow
type RefundHandler struct {
	refunds service.RefundService
	logger  *slog.Logger
}

// NewRefundHandler creates a new refund handler
func NewRefundHandler(logger *slog.Logger, refunds service.RefundService) *RefundHandler {
	return &RefundHandler{
		refunds: refunds,
		logger:  logger,
	}
}

// Create opens a refund request for a booking
func (h *RefundHandler) Create(c *gin.Context) {
	var req CreateRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	bookingID, err := uuid.Parse(req.BookingID)
	if err != nil {
		RespondBadRequest(c, "Invalid booking ID")
		return
	}

	r, err := h.refunds.Request(c.Request.Context(), bookingID, req.OriginalAmount, req.PenaltyAmount)
	if err != nil {
		switch {
		case errors.Is(err, booking.ErrBookingNotFound{}):
			RespondNotFound(c, "Booking not found")
		case errors.Is(err, refund.ErrAlreadyRequested):
			RespondConflict(c, "Booking already has an open refund request")
		case errors.Is(err, refund.ErrNegativeAmount), errors.Is(err, refund.ErrPenaltyExceeds):
			RespondBadRequest(c, err.Error())
		default:
			h.logger.Error("Failed to create refund", "booking_id", req.BookingID, "error", err)
			RespondInternalError(c)
		}
		return
	}

	RespondCreated(c, mapRefundToResponse(r))
}

// GetByID retrieves a refund by its ID, returns 404 if not found
func (h *RefundHandler) GetByID(c *gin.Context) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		RespondBadRequest(c, "Invalid refund ID")
		return
	}

	r, err := h.refunds.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, refund.ErrRefundNotFound{}) {
			RespondNotFound(c, "Refund not found")
			return
		}
		h.logger.Error("Failed to get refund", "id", idParam, "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapRefundToResponse(r))
}

// List retrieves paginated refunds, newest first
func (h *RefundHandler) List(c *gin.Context) {
	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters: "+err.Error())
		return
	}

	refunds, total, err := h.refunds.List(c.Request.Context(), pagination.Page, pagination.PerPage)
	if err != nil {
		h.logger.Error("Failed to list refunds", "error", err)
		RespondInternalError(c)
		return
	}

	responses := make([]RefundResponse, len(refunds))
	for i, r := range refunds {
		responses[i] = mapRefundToResponse(r)
	}

	RespondWithPaginatedData(c, 200, gin.H{"refunds": responses}, pagination.Page, pagination.PerPage, int(total))
}

// ApplyAction runs a workflow action against a refund. Duplicate actions are
// reported as no-ops rather than errors.
func (h *RefundHandler) ApplyAction(c *gin.Context) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		RespondBadRequest(c, "Invalid refund ID")
		return
	}

	var req RefundActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.refunds.Apply(c.Request.Context(), id, refundflow.Command{
		Action:        refund.Action(req.Action),
		Actor:         req.Actor,
		Reason:        req.Reason,
		CorrelationID: middleware.GetCorrelationID(c),
	})
	if err != nil {
		switch {
		case errors.Is(err, refund.ErrRefundNotFound{}):
			RespondNotFound(c, "Refund not found")
		case errors.Is(err, booking.ErrBookingNotFound{}):
			RespondNotFound(c, "Booking for refund not found")
		case errors.Is(err, refund.ErrMissingActor), errors.Is(err, refund.ErrUnknownAction):
			RespondBadRequest(c, err.Error())
		default:
			h.logger.Error("Failed to apply refund action", "id", idParam, "action", req.Action, "error", err)
			RespondInternalError(c)
		}
		return
	}

	RespondOK(c, result)
}
