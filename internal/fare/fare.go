// Package fare computes the payable amount of an itinerary for a passenger mix.
package fare

import (
	"math"

	"github.com/smarttransit/interline-booking-backend/internal/models"
)

// InfantFareRatio is the share of the adult fare charged per infant.
// Fixed policy, not configurable per itinerary.
const InfantFareRatio = 0.1

// Breakdown is the fare decomposed per passenger type
type Breakdown struct {
	BasePrice   float64 `json:"base_price"`
	AdultTotal  float64 `json:"adult_total"`
	ChildTotal  float64 `json:"child_total"`
	InfantTotal float64 `json:"infant_total"`
	GrandTotal  float64 `json:"grand_total"`
}

// ComputeTotal returns basePrice×adults + basePrice×children + basePrice×infants×0.1
func ComputeTotal(basePrice float64, counts models.PassengerCounts) float64 {
	seats := float64(counts.Adults+counts.Children) + float64(counts.Infants)*InfantFareRatio
	return basePrice * seats
}

// ComputeBreakdown splits the ComputeTotal amount per passenger type
func ComputeBreakdown(basePrice float64, counts models.PassengerCounts) Breakdown {
	adult := basePrice * float64(counts.Adults)
	child := basePrice * float64(counts.Children)
	infant := basePrice * float64(counts.Infants) * InfantFareRatio
	return Breakdown{
		BasePrice:   basePrice,
		AdultTotal:  adult,
		ChildTotal:  child,
		InfantTotal: infant,
		GrandTotal:  adult + child + infant,
	}
}

// Rounded returns the breakdown rounded to cents for display and payloads
func (b Breakdown) Rounded() Breakdown {
	return Breakdown{
		BasePrice:   Round(b.BasePrice),
		AdultTotal:  Round(b.AdultTotal),
		ChildTotal:  Round(b.ChildTotal),
		InfantTotal: Round(b.InfantTotal),
		GrandTotal:  Round(b.GrandTotal),
	}
}

const halfCent = 0.005

// LinesTotal is the sum of the per-type totals as shown to the agent, each
// rounded to cents
func (b Breakdown) LinesTotal() float64 {
	return Round(Round(b.AdultTotal) + Round(b.ChildTotal) + Round(b.InfantTotal))
}

// Consistent reports whether amount matches LinesTotal. Each priced line may
// drift by half a cent from rounding, so may the amount itself.
func (b Breakdown) Consistent(amount float64) bool {
	tolerance := halfCent
	for _, line := range []float64{b.AdultTotal, b.ChildTotal, b.InfantTotal} {
		if line != 0 {
			tolerance += halfCent
		}
	}
	return math.Abs(b.LinesTotal()-Round(amount)) <= tolerance+1e-9
}

// Round rounds to two decimal places
func Round(v float64) float64 {
	return math.Round(v*100) / 100
}
