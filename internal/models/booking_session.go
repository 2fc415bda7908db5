package models

import (
	"time"

	"github.com/google/uuid"
)

// WizardStep is a step of the booking wizard
type WizardStep string

const (
	StepPassengerDetails   WizardStep = "passenger_details"
	StepContactInformation WizardStep = "contact_information"
	StepConfirmation       WizardStep = "confirmation"
)

// BookingSession is the aggregate root of one booking wizard run.
// It is only ever replaced by the snapshot returned from the wizard.
type BookingSession struct {
	ID               uuid.UUID          `json:"id"`
	AgentID          uuid.UUID          `json:"agent_id"`
	SearchSessionID  uuid.UUID          `json:"search_session_id"`
	Itinerary        Itinerary          `json:"itinerary"`
	TripType         TripType           `json:"trip_type"`
	Counts           PassengerCounts    `json:"counts"`
	Passengers       []Passenger        `json:"passengers"`
	Contact          ContactInformation `json:"contact"`
	Step             WizardStep         `json:"step"`
	IsSubmitting     bool               `json:"is_submitting"`
	FocusedPassenger *int               `json:"focused_passenger,omitempty"`
	ContactErrors    map[string]string  `json:"contact_errors,omitempty"`
	LastError        string             `json:"last_error,omitempty"`
	Confirmation     *BookingResponse   `json:"confirmation,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

// NewBookingSession starts a wizard in the passenger details step with one
// blank passenger per counted traveler.
func NewBookingSession(agentID, searchSessionID uuid.UUID, it Itinerary, tripType TripType, counts PassengerCounts) BookingSession {
	now := time.Now()
	return BookingSession{
		ID:              uuid.New(),
		AgentID:         agentID,
		SearchSessionID: searchSessionID,
		Itinerary:       it.Clone(),
		TripType:        tripType,
		Counts:          NewPassengerCounts(counts.Adults, counts.Children, counts.Infants),
		Passengers:      NewPassengers(counts),
		Step:            StepPassengerDetails,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// Clone returns a copy that shares no mutable state with s
func (s BookingSession) Clone() BookingSession {
	c := s
	c.Passengers = make([]Passenger, len(s.Passengers))
	for i, p := range s.Passengers {
		p.DateOfBirth = copyDate(p.DateOfBirth)
		p.PassportIssueDate = copyDate(p.PassportIssueDate)
		p.PassportExpiryDate = copyDate(p.PassportExpiryDate)
		c.Passengers[i] = p
	}
	if s.FocusedPassenger != nil {
		idx := *s.FocusedPassenger
		c.FocusedPassenger = &idx
	}
	if s.ContactErrors != nil {
		c.ContactErrors = make(map[string]string, len(s.ContactErrors))
		for k, v := range s.ContactErrors {
			c.ContactErrors[k] = v
		}
	}
	return c
}

// IsFinal reports whether the session has reached confirmation
func (s BookingSession) IsFinal() bool {
	return s.Step == StepConfirmation
}
