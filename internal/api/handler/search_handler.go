package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/skyfare/booking-finance/internal/api/service"
	"github.com/skyfare/booking-finance/internal/domain/booking"
)

// SearchHandler applies rate limit admission control to flight search results
type SearchHandler struct {
	search service.SearchService
	logger *slog.Logger
}

// NewSearchHandler creates a new search admission handler
func NewSearchHandler(logger *slog.Logger, search service.SearchService) *SearchHandler {
	return &SearchHandler{
		search: search,
		logger: logger,
	}
}

// Admit filters a batch of priced flights against per-route price ceilings
// and returns the subset the user may see.
func (h *SearchHandler) Admit(c *gin.Context) {
	var req AdmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	flights := make([]booking.Flight, 0, len(req.Flights))
	for _, p := range req.Flights {
		f, err := p.toDomain()
		if err != nil {
			RespondBadRequest(c, "Invalid flight payload: "+err.Error())
			return
		}
		flights = append(flights, f)
	}

	admitted, err := h.search.FilterFlights(c.Request.Context(), flights, req.CanBypassRateLimit)
	if err != nil {
		h.logger.Error("Failed to filter flights", "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, gin.H{
		"flights":  admitted,
		"admitted": len(admitted),
		"filtered": len(flights) - len(admitted),
	})
}
