// Package itinerary filters, sorts and pages itinerary result sets.
package itinerary

import (
	"strings"

	"github.com/smarttransit/interline-booking-backend/internal/models"
)

// PriceRange is an inclusive bound on the per-adult base price.
// A nil bound is open.
type PriceRange struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// Filters is the free-text and price filter applied to a result set
type Filters struct {
	SearchTerm string     `json:"search_term"`
	PriceRange PriceRange `json:"price_range"`
}

// IsZero reports whether no filter is set
func (f Filters) IsZero() bool {
	return strings.TrimSpace(f.SearchTerm) == "" && f.PriceRange.Min == nil && f.PriceRange.Max == nil
}

// ApplyFilters returns the itineraries matching both the search term and the
// price range. The input is not modified and relative order is preserved.
func ApplyFilters(items []models.Itinerary, f Filters) []models.Itinerary {
	term := strings.ToLower(strings.TrimSpace(f.SearchTerm))
	filtered := make([]models.Itinerary, 0, len(items))
	for _, it := range items {
		if !matchPriceRange(it, f.PriceRange) {
			continue
		}
		if term != "" && !matchSearchTerm(it, term) {
			continue
		}
		filtered = append(filtered, it)
	}
	return filtered
}

func matchPriceRange(it models.Itinerary, r PriceRange) bool {
	if r.Min != nil && it.BasePrice < *r.Min {
		return false
	}
	if r.Max != nil && it.BasePrice > *r.Max {
		return false
	}
	return true
}

// matchSearchTerm matches term against any segment's airline name, airport
// names and codes, and flight number. term must already be lower-cased.
func matchSearchTerm(it models.Itinerary, term string) bool {
	for _, seg := range it.Segments {
		fields := [...]string{
			seg.AirlineName,
			seg.OriginName,
			seg.OriginCode,
			seg.DestinationName,
			seg.DestinationCode,
			seg.FlightNumber,
		}
		for _, v := range fields {
			if strings.Contains(strings.ToLower(v), term) {
				return true
			}
		}
	}
	return false
}
