package services

import (
	"fmt"
	"strings"

	"github.com/smarttransit/interline-booking-backend/internal/fare"
	"github.com/smarttransit/interline-booking-backend/internal/models"
	"github.com/smarttransit/interline-booking-backend/internal/refdata"
	"github.com/smarttransit/interline-booking-backend/pkg/validator"
)

// Provider titles
const (
	TitleMr     = "MR"
	TitleMs     = "MS"
	TitleMaster = "MSTR"
	TitleMiss   = "MISS"
)

// BookingAssembler turns a completed booking session into the provider's
// nested booking request.
type BookingAssembler struct {
	catalog *refdata.Catalog
	phones  *validator.PhoneValidator
}

// NewBookingAssembler creates an assembler backed by the reference data
func NewBookingAssembler(catalog *refdata.Catalog) *BookingAssembler {
	return &BookingAssembler{
		catalog: catalog,
		phones:  validator.NewPhoneValidator(),
	}
}

// Assemble builds the booking request for session on behalf of agent.
// The session must already have passed the contact step.
func (a *BookingAssembler) Assemble(session models.BookingSession, agent models.Agent) (*models.BookingRequest, error) {
	it := session.Itinerary
	if it.TransactionID == "" {
		return nil, models.ErrInvalidInput("itinerary has no transaction id")
	}
	if agent.POS == "" {
		return nil, models.ErrInvalidInput("agent point of sale is missing")
	}

	contact, err := a.contactInfo(session.Contact)
	if err != nil {
		return nil, err
	}

	amount := fare.Round(fare.ComputeTotal(it.BasePrice, session.Counts))
	if err := checkPaymentAmount(fare.ComputeBreakdown(it.BasePrice, session.Counts), amount); err != nil {
		return nil, err
	}

	req := &models.BookingRequest{
		TransactionID:   it.TransactionID,
		Segments:        it.Clone().Segments,
		Travelers:       travelerCounts(session.Counts),
		TravelersInfo:   make([]models.TravelerInfo, 0, len(session.Passengers)),
		ContactInfo:     contact,
		CWPaymentAmount: amount,
		PricingInfo:     it.Clone().PricingInfo,
		FlightType:      models.FlightTypeFor(session.TripType),
		POS:             agent.POS,
		OnAccount:       agent.OnAccount,
		CompanyName:     agent.CompanyName,
	}
	for _, p := range session.Passengers {
		req.TravelersInfo = append(req.TravelersInfo, travelerInfo(p))
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}
	return req, nil
}

// checkPaymentAmount rejects an amount that disagrees with the per-type lines
// the agent was shown
func checkPaymentAmount(breakdown fare.Breakdown, amount float64) error {
	if !breakdown.Consistent(amount) {
		return fmt.Errorf("payment amount %.2f does not match fare breakdown %.2f", amount, breakdown.LinesTotal())
	}
	return nil
}

func travelerCounts(c models.PassengerCounts) []models.TravelerCount {
	counts := []models.TravelerCount{{Type: models.TravelerCodeAdult, Count: c.Adults}}
	if c.Children > 0 {
		counts = append(counts, models.TravelerCount{Type: models.TravelerCodeChild, Count: c.Children})
	}
	if c.Infants > 0 {
		counts = append(counts, models.TravelerCount{Type: models.TravelerCodeInfant, Count: c.Infants})
	}
	return counts
}

func travelerInfo(p models.Passenger) models.TravelerInfo {
	return models.TravelerInfo{
		Type:               models.TravelerCodeFor(p.Type),
		Title:              PassengerTitle(p.Type, p.Gender),
		Gender:             string(p.Gender),
		FirstName:          strings.TrimSpace(p.FirstName),
		LastName:           strings.TrimSpace(p.LastName),
		DateOfBirth:        models.DatePtr(p.DateOfBirth),
		PassportNumber:     strings.ToUpper(strings.TrimSpace(p.PassportNumber)),
		PassportIssueDate:  models.DatePtr(p.PassportIssueDate),
		PassportExpiryDate: models.DatePtr(p.PassportExpiryDate),
		Nationality:        strings.TrimSpace(p.Nationality),
	}
}

func (a *BookingAssembler) contactInfo(c models.ContactInformation) (models.ContactInfo, error) {
	country, ok := a.catalog.Country(c.PhoneCode)
	if !ok {
		return models.ContactInfo{}, &models.ValidationError{
			Message: "contact phone code is not recognised",
			Fields:  map[string]string{"phone_code": "phone code is not recognised"},
		}
	}
	number, err := a.phones.Validate(country.DialCode, c.PhoneNumber)
	if err != nil {
		return models.ContactInfo{}, &models.ValidationError{
			Message: "contact phone number is invalid",
			Fields:  map[string]string{"phone_number": err.Error()},
		}
	}

	return models.ContactInfo{
		Title:       ContactTitle(c.Gender),
		FirstName:   strings.TrimSpace(c.FirstName),
		LastName:    strings.TrimSpace(c.LastName),
		PhoneNumber: number,
		CountryCode: strings.TrimPrefix(country.DialCode, "+"),
		Email:       strings.TrimSpace(c.Email),
		CountryName: country.Name,
		CityName:    a.catalog.CanonicalCity(country.Code, c.City),
	}, nil
}

// ContactTitle maps the contact gender to MR or MS
func ContactTitle(g models.Gender) string {
	if g == models.GenderFemale {
		return TitleMs
	}
	return TitleMr
}

// PassengerTitle maps type and gender to the provider title.
// Children and infants travel as MSTR or MISS.
func PassengerTitle(t models.PassengerType, g models.Gender) string {
	if t == models.PassengerAdult {
		return ContactTitle(g)
	}
	if g == models.GenderFemale {
		return TitleMiss
	}
	return TitleMaster
}
