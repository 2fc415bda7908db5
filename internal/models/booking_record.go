package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// BookingRecord is the durable trace of a confirmed booking (booking_records table).
// The wizard session itself is never persisted.
type BookingRecord struct {
	ID              uuid.UUID    `json:"id" db:"id"`
	AgentID         uuid.UUID    `json:"agent_id" db:"agent_id"`
	PNR             string       `json:"pnr" db:"pnr"`
	ItineraryID     string       `json:"itinerary_id" db:"itinerary_id"`
	TransactionID   string       `json:"transaction_id" db:"transaction_id"`
	Route           string       `json:"route" db:"route"`
	FlightType      string       `json:"flight_type" db:"flight_type"`
	PassengerCount  int          `json:"passenger_count" db:"passenger_count"`
	TotalAmount     float64      `json:"total_amount" db:"total_amount"`
	Currency        string       `json:"currency" db:"currency"`
	ETicketNumbers  StringList   `json:"e_ticket_numbers" db:"e_ticket_numbers"`
	TicketingStatus string       `json:"ticketing_status" db:"ticketing_status"`
	ContactEmail    string       `json:"contact_email" db:"contact_email"`
	RawResponse     JSONDocument `json:"raw_response" db:"raw_response"`
	CreatedAt       time.Time    `json:"created_at" db:"created_at"`
}

// NewBookingRecord builds the record of a confirmed session
func NewBookingRecord(session BookingSession, req *BookingRequest, resp *BookingResponse) (*BookingRecord, error) {
	raw, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to encode booking response: %w", err)
	}

	codes := make([]string, 0, len(session.Itinerary.Segments)+1)
	for i, seg := range session.Itinerary.Segments {
		if i == 0 {
			codes = append(codes, seg.OriginCode)
		}
		codes = append(codes, seg.DestinationCode)
	}

	currency := resp.TotalFareSummary.Currency
	if currency == "" {
		currency = session.Itinerary.Currency
	}

	return &BookingRecord{
		ID:              uuid.New(),
		AgentID:         session.AgentID,
		PNR:             resp.PNR,
		ItineraryID:     session.Itinerary.ID,
		TransactionID:   req.TransactionID,
		Route:           strings.Join(codes, "-"),
		FlightType:      req.FlightType,
		PassengerCount:  len(req.TravelersInfo),
		TotalAmount:     req.CWPaymentAmount,
		Currency:        currency,
		ETicketNumbers:  StringList(resp.ETicketNumbers()),
		TicketingStatus: resp.TicketingStatus.StatusCode,
		ContactEmail:    req.ContactInfo.Email,
		RawResponse:     JSONDocument(raw),
		CreatedAt:       time.Now(),
	}, nil
}

// AgentAccount is the on-account balance of an agency (agent_accounts table)
type AgentAccount struct {
	AgentID     uuid.UUID `json:"agent_id" db:"agent_id"`
	CompanyName string    `json:"company_name" db:"company_name"`
	OnAccount   string    `json:"on_account" db:"on_account"`
	Balance     float64   `json:"balance" db:"balance"`
	Currency    string    `json:"currency" db:"currency"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// CanCover reports whether the balance covers amount
func (a *AgentAccount) CanCover(amount float64) bool {
	return a.Balance >= amount
}
