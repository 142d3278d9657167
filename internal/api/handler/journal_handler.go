package handler

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/skyfare/booking-finance/internal/api/service"
)

// JournalHandler serves read access to the posted journal and the chart of
// accounts
type JournalHandler struct {
	journal service.JournalService
	logger  *slog.Logger
}

// NewJournalHandler creates a new journal handler
func NewJournalHandler(logger *slog.Logger, journal service.JournalService) *JournalHandler {
	return &JournalHandler{
		journal: journal,
		logger:  logger,
	}
}

// GetByID retrieves a journal entry by its ID, returns 404 if not found
func (h *JournalHandler) GetByID(c *gin.Context) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		RespondBadRequest(c, "Invalid journal entry ID")
		return
	}

	entry, err := h.journal.GetEntryByID(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Failed to get journal entry", "id", idParam, "error", err)
		RespondInternalError(c)
		return
	}
	if entry == nil {
		RespondNotFound(c, "Journal entry not found")
		return
	}

	RespondOK(c, mapJournalEntryToResponse(entry))
}

// GetByBookingID retrieves all journal entries for a booking in posting order
func (h *JournalHandler) GetByBookingID(c *gin.Context) {
	idParam := c.Param("id")
	bookingID, err := uuid.Parse(idParam)
	if err != nil {
		RespondBadRequest(c, "Invalid booking ID")
		return
	}

	entries, err := h.journal.GetEntriesByBookingID(c.Request.Context(), bookingID)
	if err != nil {
		h.logger.Error("Failed to get journal entries for booking", "booking_id", idParam, "error", err)
		RespondInternalError(c)
		return
	}

	responses := make([]JournalEntryResponse, len(entries))
	for i, e := range entries {
		responses[i] = mapJournalEntryToResponse(e)
	}

	RespondOK(c, gin.H{"entries": responses})
}

// List retrieves paginated journal entries within a time window. The window
// defaults to the last 24 hours.
func (h *JournalHandler) List(c *gin.Context) {
	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters: "+err.Error())
		return
	}

	endTime := time.Now().UTC()
	startTime := endTime.Add(-24 * time.Hour)

	if fromParam := c.Query("from"); fromParam != "" {
		t, err := time.Parse(time.RFC3339, fromParam)
		if err != nil {
			RespondBadRequest(c, "Invalid 'from' timestamp, expected RFC3339")
			return
		}
		startTime = t
	}
	if toParam := c.Query("to"); toParam != "" {
		t, err := time.Parse(time.RFC3339, toParam)
		if err != nil {
			RespondBadRequest(c, "Invalid 'to' timestamp, expected RFC3339")
			return
		}
		endTime = t
	}
	if endTime.Before(startTime) {
		RespondBadRequest(c, "'to' must not be before 'from'")
		return
	}

	entries, total, err := h.journal.GetEntriesByTimeRange(c.Request.Context(), startTime, endTime, pagination.Page, pagination.PerPage)
	if err != nil {
		h.logger.Error("Failed to list journal entries", "error", err)
		RespondInternalError(c)
		return
	}

	responses := make([]JournalEntryResponse, len(entries))
	for i, e := range entries {
		responses[i] = mapJournalEntryToResponse(e)
	}

	RespondWithPaginatedData(c, 200, gin.H{"entries": responses}, pagination.Page, pagination.PerPage, int(total))
}

// Accounts returns the chart of accounts
func (h *JournalHandler) Accounts(c *gin.Context) {
	RespondOK(c, gin.H{"accounts": h.journal.Accounts()})
}
