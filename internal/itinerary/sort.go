package itinerary

import (
	"fmt"
	"sort"

	"github.com/smarttransit/interline-booking-backend/internal/models"
)

// SortCriterion selects the ordering of a result set
type SortCriterion string

const (
	SortByPrice     SortCriterion = "price"
	SortByDeparture SortCriterion = "departure"
	SortByArrival   SortCriterion = "arrival"
)

// ParseSortCriterion validates a criterion received from a caller
func ParseSortCriterion(s string) (SortCriterion, error) {
	switch c := SortCriterion(s); c {
	case SortByPrice, SortByDeparture, SortByArrival:
		return c, nil
	}
	return "", models.ErrInvalidInput(fmt.Sprintf("invalid sort criterion: %s (must be price, departure or arrival)", s))
}

// Sort orders items in place, ascending. Ties keep their prior relative order.
func Sort(items []models.Itinerary, by SortCriterion) {
	switch by {
	case SortByPrice:
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].BasePrice < items[j].BasePrice
		})
	case SortByDeparture:
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].FirstDeparture().Before(items[j].FirstDeparture())
		})
	case SortByArrival:
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].LastArrival().Before(items[j].LastArrival())
		})
	}
}
