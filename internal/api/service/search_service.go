package service

import (
	"context"
	"log/slog"

	"github.com/skyfare/booking-finance/internal/domain/booking"
	"github.com/skyfare/booking-finance/internal/domain/ratelimit"
)

// SearchServiceImpl implements the SearchService interface
type SearchServiceImpl struct {
	limits ratelimit.Repository
	logger *slog.Logger
}

// NewSearchService creates a new search admission service
func NewSearchService(logger *slog.Logger, limits ratelimit.Repository) SearchService {
	return &SearchServiceImpl{
		limits: limits,
		logger: logger,
	}
}

// FilterFlights drops flights whose route has a price ceiling the fare
// exceeds, unless the user may bypass rate limits. Order is preserved.
func (s *SearchServiceImpl) FilterFlights(ctx context.Context, flights []booking.Flight, canBypass bool) ([]booking.Flight, error) {
	limits, err := s.limits.List(ctx)
	if err != nil {
		s.logger.Error("Failed to load rate limits", "error", err)
		return nil, err
	}

	idx := ratelimit.BuildIndex(limits)

	admitted := make([]booking.Flight, 0, len(flights))
	for _, f := range flights {
		if ratelimit.Admissible(f, idx, canBypass) {
			admitted = append(admitted, f)
		}
	}

	if dropped := len(flights) - len(admitted); dropped > 0 {
		s.logger.Debug("Filtered flights over route price ceilings", "dropped", dropped, "admitted", len(admitted))
	}

	return admitted, nil
}
