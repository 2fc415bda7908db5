package models

import (
	"encoding/json"
	"fmt"
)

// Provider traveler type codes
const (
	TravelerCodeAdult  = "ADT"
	TravelerCodeChild  = "CHD"
	TravelerCodeInfant = "INF"
)

// Provider flight type values
const (
	FlightTypeOneWay = "OneWay"
	FlightTypeReturn = "Return"
)

// FlightTypeFor maps a trip type to the provider's flight type
func FlightTypeFor(t TripType) string {
	if t == TripTypeRoundTrip {
		return FlightTypeReturn
	}
	return FlightTypeOneWay
}

// TravelerCodeFor maps a passenger type to the provider's traveler code
func TravelerCodeFor(t PassengerType) string {
	switch t {
	case PassengerChild:
		return TravelerCodeChild
	case PassengerInfant:
		return TravelerCodeInfant
	}
	return TravelerCodeAdult
}

// BookingRequest is the nested booking submission sent to the provider
type BookingRequest struct {
	TransactionID   string            `json:"transaction_id"`
	Segments        []Segment         `json:"segments"`
	Travelers       []TravelerCount   `json:"travelers"`
	TravelersInfo   []TravelerInfo    `json:"travelers_info"`
	ContactInfo     ContactInfo       `json:"contact_info"`
	CWPaymentAmount float64           `json:"cw_payment_amount"`
	PricingInfo     []json.RawMessage `json:"pricing_info"`
	FlightType      string            `json:"flight_type"`
	POS             string            `json:"pos"`
	OnAccount       string            `json:"on_account"`
	CompanyName     string            `json:"company_name"`
}

// TravelerCount is one passenger type and how many travel
type TravelerCount struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// TravelerInfo is one passenger record. Dates are "YYYY-MM-DD" or null.
type TravelerInfo struct {
	Type               string  `json:"type"`
	Title              string  `json:"title"`
	Gender             string  `json:"gender"`
	FirstName          string  `json:"first_name"`
	LastName           string  `json:"last_name"`
	DateOfBirth        *string `json:"date_of_birth"`
	PassportNumber     string  `json:"passport_number"`
	PassportIssueDate  *string `json:"passport_issue_date"`
	PassportExpiryDate *string `json:"passport_expiry_date"`
	Nationality        string  `json:"nationality"`
}

// ContactInfo is the booking contact in the provider's casing
type ContactInfo struct {
	Title       string `json:"Title"`
	FirstName   string `json:"FirstName"`
	LastName    string `json:"LastName"`
	PhoneNumber string `json:"PhoneNumber"`
	CountryCode string `json:"CountryCode"`
	Email       string `json:"Email"`
	CountryName string `json:"CountryName"`
	CityName    string `json:"CityName"`
}

// Validate checks the request is complete enough to send
func (r *BookingRequest) Validate() error {
	if r.TransactionID == "" {
		return ErrInvalidInput("transaction id is required")
	}
	if len(r.Segments) == 0 {
		return ErrInvalidInput("at least one segment is required")
	}
	total := 0
	for _, t := range r.Travelers {
		total += t.Count
	}
	if total != len(r.TravelersInfo) {
		return ErrInvalidInput(fmt.Sprintf("travelers count %d does not match %d traveler records", total, len(r.TravelersInfo)))
	}
	if r.CWPaymentAmount <= 0 {
		return ErrInvalidInput("payment amount must be positive")
	}
	if r.POS == "" {
		return ErrInvalidInput("pos is required")
	}
	return nil
}
