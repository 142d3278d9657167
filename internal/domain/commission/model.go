package commission

import (
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
)

// ErrInvalidCommissionInput indicates commission model data that cannot be
// applied: negative base fares or rates that produce a negative split. Bad
// input is rejected outright, never clamped.
var ErrInvalidCommissionInput = errors.New("invalid commission input")

// CalculationType determines how commission rates are applied
type CalculationType string

const (
	// CalculationTypePercentage applies each rate as a percentage of the
	// per-passenger base fare total (taxes excluded).
	CalculationTypePercentage CalculationType = "PERCENTAGE"

	// CalculationTypeFixedAmount applies each rate as a fixed amount per passenger.
	CalculationTypeFixedAmount CalculationType = "FIXED_AMOUNT"
)

// Model is the rule set splitting a booking's base fare among the charter
// supplier, the flight creator and the web-service channel.
type Model struct {
	ID                   uuid.UUID       `json:"id"`
	CalculationType      CalculationType `json:"calculation_type"`
	CharterCommission    float64         `json:"charter_commission"`
	CreatorCommission    float64         `json:"creator_commission"`
	WebServiceCommission float64         `json:"web_service_commission"`
}

// Split is the outcome of applying a commission model to a booking.
// Amounts are in minor currency units and always satisfy
// Charter + Creator + WebService + NetRevenue == basePriceTotal.
type Split struct {
	Charter    int64 `json:"charter"`
	Creator    int64 `json:"creator"`
	WebService int64 `json:"web_service"`
	NetRevenue int64 `json:"net_revenue"`
}

// ComputeSplit splits basePriceTotal among the three commission parties per
// the model. A nil model yields zero splits with the full base as net
// revenue. Percentage amounts are rounded half-to-even at minor-unit
// granularity.
func ComputeSplit(basePriceTotal int64, passengerCount int, model *Model) (Split, error) {
	if basePriceTotal < 0 {
		return Split{}, fmt.Errorf("%w: negative base price %d", ErrInvalidCommissionInput, basePriceTotal)
	}
	if passengerCount <= 0 {
		return Split{}, fmt.Errorf("%w: passenger count %d", ErrInvalidCommissionInput, passengerCount)
	}

	if model == nil {
		return Split{NetRevenue: basePriceTotal}, nil
	}

	var split Split
	switch model.CalculationType {
	case CalculationTypePercentage:
		split.Charter = percentageOf(basePriceTotal, model.CharterCommission)
		split.Creator = percentageOf(basePriceTotal, model.CreatorCommission)
		split.WebService = percentageOf(basePriceTotal, model.WebServiceCommission)
	case CalculationTypeFixedAmount:
		split.Charter = perPassenger(model.CharterCommission, passengerCount)
		split.Creator = perPassenger(model.CreatorCommission, passengerCount)
		split.WebService = perPassenger(model.WebServiceCommission, passengerCount)
	default:
		return Split{}, fmt.Errorf("%w: unknown calculation type %q", ErrInvalidCommissionInput, model.CalculationType)
	}

	if split.Charter < 0 || split.Creator < 0 || split.WebService < 0 {
		return Split{}, fmt.Errorf("%w: negative split from model %s", ErrInvalidCommissionInput, model.ID)
	}

	split.NetRevenue = basePriceTotal - split.Charter - split.Creator - split.WebService
	if split.NetRevenue < 0 {
		return Split{}, fmt.Errorf("%w: splits exceed base price from model %s", ErrInvalidCommissionInput, model.ID)
	}

	return split, nil
}

func percentageOf(amount int64, rate float64) int64 {
	return int64(math.RoundToEven(float64(amount) * rate / 100))
}

func perPassenger(rate float64, passengers int) int64 {
	return int64(math.RoundToEven(rate * float64(passengers)))
}
