package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TripType is the journey shape requested by the agent
type TripType string

const (
	TripTypeOneWay    TripType = "one-way"
	TripTypeRoundTrip TripType = "round-trip"
)

// CabinClass is the requested cabin
type CabinClass string

const (
	CabinEconomy  CabinClass = "economy"
	CabinBusiness CabinClass = "business"
)

// Passenger count limits
const (
	MaxPassengers        = 9
	MaxPassengersPerType = 9
	MinAdults            = 1
)

// SearchCriteria represents an agent's itinerary search query
type SearchCriteria struct {
	TripType      TripType   `json:"trip_type" binding:"required"`
	FromCity      string     `json:"from_city" binding:"required"` // IATA city or airport code
	ToCity        string     `json:"to_city" binding:"required"`
	DepartureDate Date       `json:"departure_date"`
	ReturnDate    *Date      `json:"return_date,omitempty"`
	CabinClass    CabinClass `json:"cabin_class"`
	Adults        int        `json:"adults"`
	Children      int        `json:"children"`
	Infants       int        `json:"infants"`
}

// Validate validates the search criteria.
// Infants may not exceed adults; this is the only place the ratio is enforced.
func (c *SearchCriteria) Validate() error {
	from := strings.TrimSpace(c.FromCity)
	to := strings.TrimSpace(c.ToCity)
	if from == "" {
		return ErrInvalidInput("from city is required")
	}
	if to == "" {
		return ErrInvalidInput("to city is required")
	}
	if strings.EqualFold(from, to) {
		return ErrInvalidInput("origin and destination cannot be the same")
	}

	switch c.TripType {
	case TripTypeOneWay, TripTypeRoundTrip:
	default:
		return ErrInvalidInput(fmt.Sprintf("invalid trip type: %s (must be 'one-way' or 'round-trip')", c.TripType))
	}

	if c.DepartureDate.IsZero() {
		return ErrInvalidInput("departure date is required")
	}

	if c.TripType == TripTypeRoundTrip {
		if c.ReturnDate == nil || c.ReturnDate.IsZero() {
			return ErrInvalidInput("return date is required for round trips")
		}
		if c.ReturnDate.Time.Before(c.DepartureDate.Time) {
			return ErrInvalidInput("return date must be after departure date")
		}
	}

	if c.CabinClass == "" {
		c.CabinClass = CabinEconomy
	}
	if c.CabinClass != CabinEconomy && c.CabinClass != CabinBusiness {
		return ErrInvalidInput(fmt.Sprintf("invalid cabin class: %s", c.CabinClass))
	}

	if c.Adults < MinAdults || c.Adults > MaxPassengersPerType {
		return ErrInvalidInput("adults must be between 1 and 9")
	}
	if c.Children < 0 || c.Children > MaxPassengersPerType {
		return ErrInvalidInput("children must be between 0 and 9")
	}
	if c.Infants < 0 || c.Infants > MaxPassengersPerType {
		return ErrInvalidInput("infants must be between 0 and 9")
	}
	if c.Adults+c.Children+c.Infants > MaxPassengers {
		return ErrInvalidInput("total passengers cannot exceed 9")
	}
	if c.Infants > c.Adults {
		return ErrInvalidInput("infants cannot exceed adults")
	}

	c.FromCity = strings.ToUpper(from)
	c.ToCity = strings.ToUpper(to)
	return nil
}

// Counts returns the passenger mix of the criteria
func (c SearchCriteria) Counts() PassengerCounts {
	return NewPassengerCounts(c.Adults, c.Children, c.Infants)
}

// IsRoundTrip reports whether a return leg was requested
func (c SearchCriteria) IsRoundTrip() bool {
	return c.TripType == TripTypeRoundTrip
}

// PopularRoute represents a frequently searched city pair for quick selection
type PopularRoute struct {
	FromCity    string `json:"from_city" db:"from_city"`
	ToCity      string `json:"to_city" db:"to_city"`
	SearchCount int    `json:"search_count" db:"search_count"`
}

// SearchLog represents a search analytics record
type SearchLog struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	AgentID        uuid.UUID  `json:"agent_id" db:"agent_id"`
	FromCity       string     `json:"from_city" db:"from_city"`
	ToCity         string     `json:"to_city" db:"to_city"`
	DepartureDate  time.Time  `json:"departure_date" db:"departure_date"`
	ReturnDate     *time.Time `json:"return_date,omitempty" db:"return_date"`
	CabinClass     string     `json:"cabin_class" db:"cabin_class"`
	Adults         int        `json:"adults" db:"adults"`
	Children       int        `json:"children" db:"children"`
	Infants        int        `json:"infants" db:"infants"`
	ResultsCount   int        `json:"results_count" db:"results_count"`
	ResponseTimeMs int64      `json:"response_time_ms" db:"response_time_ms"`
	Succeeded      bool       `json:"succeeded" db:"succeeded"`
	IPAddress      *string    `json:"ip_address,omitempty" db:"ip_address"`
	DeviceType     *string    `json:"device_type,omitempty" db:"device_type"`
	Browser        *string    `json:"browser,omitempty" db:"browser"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
}
