package ratelimit

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/skyfare/booking-finance/internal/domain/booking"
)

// RateLimit is a per-route price ceiling applied to search results.
// MaxPrice is in minor currency units and compared against the full fare
// including taxes.
type RateLimit struct {
	ID       uuid.UUID `json:"id"`
	FromCity string    `json:"from_city"`
	ToCity   string    `json:"to_city"`
	MaxPrice int64     `json:"max_price"`
}

// Repository reads admission-control data; rate limit lifecycle is an
// external admin concern.
type Repository interface {
	List(ctx context.Context) ([]*RateLimit, error)
}

// RouteKey normalizes a city pair for case-insensitive lookup
func RouteKey(fromCity, toCity string) string {
	from := strings.ToLower(strings.TrimSpace(fromCity))
	to := strings.ToLower(strings.TrimSpace(toCity))
	return from + "|" + to
}

// Index is a route-keyed lookup over rate limits
type Index map[string]*RateLimit

// BuildIndex indexes rate limits by normalized route. Later duplicates for
// the same route win, matching last-write admin semantics.
func BuildIndex(limits []*RateLimit) Index {
	idx := make(Index, len(limits))
	for _, l := range limits {
		idx[RouteKey(l.FromCity, l.ToCity)] = l
	}
	return idx
}

// Lookup returns the limit for a route, or nil if the route is unlimited
func (idx Index) Lookup(fromCity, toCity string) *RateLimit {
	return idx[RouteKey(fromCity, toCity)]
}

// Admissible reports whether a flight may be shown to the user. A flight is
// filtered only when its route has a limit, the user has no bypass
// privilege, and the full fare exceeds the ceiling. Pure and side-effect
// free; applied per search result after fetch.
func Admissible(f booking.Flight, idx Index, canBypass bool) bool {
	if canBypass {
		return true
	}
	limit := idx.Lookup(f.FromCity, f.ToCity)
	if limit == nil {
		return true
	}
	return f.TotalFare() <= limit.MaxPrice
}
