package provider

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smarttransit/interline-booking-backend/internal/models"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type wirePoint struct {
	Airport string `json:"airport"`
	Name    string `json:"name"`
	Time    string `json:"time"`
}

type wireSegment struct {
	Airline struct {
		Code string `json:"code"`
		Name string `json:"name"`
	} `json:"airline"`
	FlightNumber    string    `json:"flight_number"`
	Departure       wirePoint `json:"departure"`
	Arrival         wirePoint `json:"arrival"`
	DurationMinutes int       `json:"duration_minutes"`
	BookingClass    string    `json:"booking_class"`
}

type wireItinerary struct {
	ID            string `json:"id"`
	TransactionID string `json:"transaction_id"`
	Price         struct {
		Amount   float64 `json:"amount"`
		Currency string  `json:"currency"`
	} `json:"price"`
	SeatsAvailable int               `json:"seats_available"`
	CabinClass     string            `json:"cabin_class"`
	Segments       []wireSegment     `json:"segments"`
	PricingInfo    []json.RawMessage `json:"pricing_info"`
}

var timeLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04"}

func parseTime(value string) (time.Time, error) {
	var lastErr error
	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func (w wireItinerary) toModel() (models.Itinerary, error) {
	it := models.Itinerary{
		ID:             w.ID,
		TransactionID:  w.TransactionID,
		BasePrice:      w.Price.Amount,
		Currency:       strings.ToUpper(w.Price.Currency),
		SeatsAvailable: w.SeatsAvailable,
		CabinClass:     models.CabinClass(strings.ToLower(w.CabinClass)),
		PricingInfo:    w.PricingInfo,
		Segments:       make([]models.Segment, 0, len(w.Segments)),
	}
	for i, s := range w.Segments {
		departAt, err := parseTime(s.Departure.Time)
		if err != nil {
			return it, fmt.Errorf("segment %d departure time: %w", i+1, err)
		}
		arriveAt, err := parseTime(s.Arrival.Time)
		if err != nil {
			return it, fmt.Errorf("segment %d arrival time: %w", i+1, err)
		}
		it.Segments = append(it.Segments, models.Segment{
			AirlineCode:     s.Airline.Code,
			AirlineName:     s.Airline.Name,
			FlightNumber:    s.FlightNumber,
			OriginCode:      s.Departure.Airport,
			OriginName:      s.Departure.Name,
			DestinationCode: s.Arrival.Airport,
			DestinationName: s.Arrival.Name,
			DepartureTime:   departAt,
			ArrivalTime:     arriveAt,
			DurationMinutes: s.DurationMinutes,
			BookingClass:    s.BookingClass,
		})
	}
	it.Normalize()
	return it, it.Validate()
}

// decodeItineraries maps provider itineraries to the domain model. Offers
// that fail to parse or violate segment chronology are dropped.
func decodeItineraries(data []byte, logger *logrus.Logger) ([]models.Itinerary, error) {
	var raw []wireItinerary
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode itineraries: %w", err)
	}
	out := make([]models.Itinerary, 0, len(raw))
	for _, w := range raw {
		it, err := w.toModel()
		if err != nil {
			logger.WithFields(logrus.Fields{
				"itinerary_id": w.ID,
				"error":        err.Error(),
			}).Warn("Dropping malformed itinerary")
			continue
		}
		out = append(out, it)
	}
	return out, nil
}
