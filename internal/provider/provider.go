// Package provider is the boundary to the interline fare provider: itinerary
// search and booking submission.
package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/smarttransit/interline-booking-backend/internal/models"
)

// ErrTemporary marks failures worth retrying (timeouts, 5xx, throttling)
var ErrTemporary = errors.New("temporary provider error")

const wireDateLayout = "2006-01-02T00:00:00"

// Provider flight class codes
const (
	FlightClassEconomy  = "Y"
	FlightClassBusiness = "C"
)

// SearchRequest is the provider search body
type SearchRequest struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	Date        string `json:"date"`
	DateReturn  string `json:"date_return"`
	Adults      int    `json:"adults"`
	Children    int    `json:"children"`
	Infants     int    `json:"infants"`
	FlightClass string `json:"flightclass"`
	FlightType  string `json:"flighttype"`
	POS         string `json:"pos"`
}

// Provider searches and books interline itineraries
type Provider interface {
	Name() string
	Search(ctx context.Context, req SearchRequest) ([]models.Itinerary, error)
	Book(ctx context.Context, req *models.BookingRequest) (*models.BookingResponse, error)
}

// NewSearchRequest builds the wire request for validated criteria
func NewSearchRequest(c models.SearchCriteria, pos string) SearchRequest {
	req := SearchRequest{
		Origin:      c.FromCity,
		Destination: c.ToCity,
		Date:        c.DepartureDate.Format(wireDateLayout),
		Adults:      c.Adults,
		Children:    c.Children,
		Infants:     c.Infants,
		FlightClass: FlightClassFor(c.CabinClass),
		FlightType:  models.FlightTypeFor(c.TripType),
		POS:         pos,
	}
	if c.IsRoundTrip() && c.ReturnDate != nil {
		req.DateReturn = c.ReturnDate.Format(wireDateLayout)
	}
	return req
}

// FlightClassFor maps a cabin class to the provider code
func FlightClassFor(c models.CabinClass) string {
	if c == models.CabinBusiness {
		return FlightClassBusiness
	}
	return FlightClassEconomy
}

// CacheKey identifies equivalent searches for the same point of sale
func (r SearchRequest) CacheKey() string {
	return fmt.Sprintf("itineraries:%s:%s:%s:%s:%s:%s:%d:%d:%d:%s",
		strings.ToUpper(r.Origin), strings.ToUpper(r.Destination), r.Date, r.DateReturn,
		r.FlightClass, r.FlightType, r.Adults, r.Children, r.Infants, r.POS)
}
