package itinerary

import (
	"fmt"

	"github.com/smarttransit/interline-booking-backend/internal/models"
)

// PageSize is the number of itineraries shown per page
const PageSize = 5

// Page is one page of a result set
type Page struct {
	Number     int                `json:"page"`
	TotalPages int                `json:"total_pages"`
	TotalItems int                `json:"total_items"`
	Items      []models.Itinerary `json:"items"`
}

// TotalPages returns ceil(count / PageSize)
func TotalPages(count int) int {
	if count <= 0 {
		return 0
	}
	return (count + PageSize - 1) / PageSize
}

// ValidatePage checks page against [1, TotalPages(count)]. Page 1 of an empty
// set is allowed so callers always have a landing page.
func ValidatePage(page, count int) error {
	total := TotalPages(count)
	if page == 1 && total == 0 {
		return nil
	}
	if page < 1 || page > total {
		return fmt.Errorf("%w: page %d of %d", models.ErrPageOutOfRange, page, total)
	}
	return nil
}

// Paginate returns items[(page-1)*PageSize : page*PageSize]
func Paginate(items []models.Itinerary, page int) (Page, error) {
	if err := ValidatePage(page, len(items)); err != nil {
		return Page{}, err
	}
	start := (page - 1) * PageSize
	end := start + PageSize
	if start > len(items) {
		start = len(items)
	}
	if end > len(items) {
		end = len(items)
	}
	return Page{
		Number:     page,
		TotalPages: TotalPages(len(items)),
		TotalItems: len(items),
		Items:      items[start:end],
	}, nil
}
