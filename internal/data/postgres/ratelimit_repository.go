package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/skyfare/booking-finance/internal/domain/ratelimit"
	"github.com/skyfare/booking-finance/internal/platform/persistence"
)

// RateLimitRepository implements the ratelimit.Repository interface for
// PostgreSQL. Rate limits are admin-managed reference data; this side only
// reads them.
type RateLimitRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewRateLimitRepository creates a new PostgreSQL rate limit repository
func NewRateLimitRepository(logger *slog.Logger, db *persistence.PostgresDB) ratelimit.Repository {
	return &RateLimitRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// List retrieves all configured route price ceilings
func (r *RateLimitRepository) List(ctx context.Context) ([]*ratelimit.RateLimit, error) {
	query := `
		SELECT id, from_city, to_city, max_price
		FROM rate_limits
	`

	rows, err := r.querier.Query(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list rate limits", "error", err)
		return nil, fmt.Errorf("failed to list rate limits: %w", err)
	}
	defer rows.Close()

	var limits []*ratelimit.RateLimit
	for rows.Next() {
		var l ratelimit.RateLimit
		if err := rows.Scan(&l.ID, &l.FromCity, &l.ToCity, &l.MaxPrice); err != nil {
			r.logger.Error("Failed to scan rate limit", "error", err)
			return nil, fmt.Errorf("failed to scan rate limit: %w", err)
		}
		limits = append(limits, &l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over rate limits: %w", err)
	}

	return limits, nil
}
