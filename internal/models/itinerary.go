package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Segment is one operated flight leg within an itinerary
type Segment struct {
	AirlineCode     string    `json:"airline_code"`
	AirlineName     string    `json:"airline_name"`
	FlightNumber    string    `json:"flight_number"`
	OriginCode      string    `json:"origin_code"`
	OriginName      string    `json:"origin_name"`
	DestinationCode string    `json:"destination_code"`
	DestinationName string    `json:"destination_name"`
	DepartureTime   time.Time `json:"departure_time"`
	ArrivalTime     time.Time `json:"arrival_time"`
	DurationMinutes int       `json:"duration_minutes"`
	BookingClass    string    `json:"booking_class,omitempty"`
}

// Itinerary is a priced multi-segment travel offer returned by search
type Itinerary struct {
	ID                string            `json:"id"`
	TransactionID     string            `json:"transaction_id"`
	Segments          []Segment         `json:"segments"`
	BasePrice         float64           `json:"base_price"` // per adult
	Currency          string            `json:"currency"`
	SeatsAvailable    int               `json:"seats_available"`
	CabinClass        CabinClass        `json:"cabin_class"`
	Stops             int               `json:"stops"`
	ConnectionMinutes int               `json:"connection_minutes"`
	PricingInfo       []json.RawMessage `json:"pricing_info,omitempty"`
}

// FirstDeparture returns the departure time of the first segment
func (it Itinerary) FirstDeparture() time.Time {
	if len(it.Segments) == 0 {
		return time.Time{}
	}
	return it.Segments[0].DepartureTime
}

// LastArrival returns the arrival time of the last segment
func (it Itinerary) LastArrival() time.Time {
	if len(it.Segments) == 0 {
		return time.Time{}
	}
	return it.Segments[len(it.Segments)-1].ArrivalTime
}

// IsInterline reports whether more than one carrier operates the itinerary
func (it Itinerary) IsInterline() bool {
	for i := 1; i < len(it.Segments); i++ {
		if !strings.EqualFold(it.Segments[i].AirlineCode, it.Segments[0].AirlineCode) {
			return true
		}
	}
	return false
}

// Normalize fills the derived fields: stop count, connection time and
// missing segment durations.
func (it *Itinerary) Normalize() {
	for i := range it.Segments {
		seg := &it.Segments[i]
		if seg.DurationMinutes <= 0 && seg.ArrivalTime.After(seg.DepartureTime) {
			seg.DurationMinutes = int(seg.ArrivalTime.Sub(seg.DepartureTime).Minutes())
		}
	}
	if len(it.Segments) > 0 {
		it.Stops = len(it.Segments) - 1
	}
	it.ConnectionMinutes = 0
	for i := 1; i < len(it.Segments); i++ {
		gap := it.Segments[i].DepartureTime.Sub(it.Segments[i-1].ArrivalTime)
		if gap > 0 {
			it.ConnectionMinutes += int(gap.Minutes())
		}
	}
}

// Validate checks segment chronology and connectivity
func (it Itinerary) Validate() error {
	if it.ID == "" {
		return fmt.Errorf("itinerary id is required")
	}
	if len(it.Segments) == 0 {
		return fmt.Errorf("itinerary %s has no segments", it.ID)
	}
	for i, seg := range it.Segments {
		if !seg.ArrivalTime.After(seg.DepartureTime) {
			return fmt.Errorf("itinerary %s segment %d arrives before it departs", it.ID, i+1)
		}
		if i == 0 {
			continue
		}
		prev := it.Segments[i-1]
		if !strings.EqualFold(prev.DestinationCode, seg.OriginCode) {
			return fmt.Errorf("itinerary %s segment %d departs from %s, expected %s", it.ID, i+1, seg.OriginCode, prev.DestinationCode)
		}
		if seg.DepartureTime.Before(prev.ArrivalTime) {
			return fmt.Errorf("itinerary %s segment %d departs before segment %d arrives", it.ID, i+1, i)
		}
	}
	if it.BasePrice < 0 {
		return fmt.Errorf("itinerary %s has a negative price", it.ID)
	}
	return nil
}

// CloneItineraries copies a result set so callers cannot alias held state
func CloneItineraries(in []Itinerary) []Itinerary {
	if in == nil {
		return nil
	}
	out := make([]Itinerary, len(in))
	for i, it := range in {
		out[i] = it.Clone()
	}
	return out
}

// Clone deep-copies the itinerary
func (it Itinerary) Clone() Itinerary {
	c := it
	c.Segments = append([]Segment(nil), it.Segments...)
	if it.PricingInfo != nil {
		c.PricingInfo = make([]json.RawMessage, len(it.PricingInfo))
		for i, p := range it.PricingInfo {
			c.PricingInfo[i] = append(json.RawMessage(nil), p...)
		}
	}
	return c
}
