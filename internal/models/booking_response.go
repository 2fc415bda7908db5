package models

// BookingResponse is the provider's confirmation of a successful booking
type BookingResponse struct {
	PNR              string              `json:"pnr"`
	FlightSegments   []ConfirmedSegment  `json:"flight_segments"`
	TotalFareSummary FareSummary         `json:"total_fare_summary"`
	Passengers       []TicketedPassenger `json:"passengers"`
	Payment          PaymentConfirmation `json:"payment"`
	TicketingStatus  TicketingStatus     `json:"ticketing_status"`
	ContactInfo      ContactInfo         `json:"contact_info"`
}

// ConfirmedSegment is a booked flight leg as echoed by the provider
type ConfirmedSegment struct {
	AirlineCode   string `json:"airline_code"`
	FlightNumber  string `json:"flight_number"`
	Origin        string `json:"origin"`
	Destination   string `json:"destination"`
	DepartureTime string `json:"departure_time"`
	ArrivalTime   string `json:"arrival_time"`
	Status        string `json:"status"`
}

// FareSummary totals the fare of the whole booking
type FareSummary struct {
	BaseFare       float64  `json:"base_fare"`
	TotalFare      float64  `json:"total_fare"`
	TotalEquivFare float64  `json:"total_equiv_fare"`
	Currency       string   `json:"currency"`
	Taxes          []Charge `json:"taxes"`
	Fees           []Charge `json:"fees"`
}

// Charge is a tax or fee line
type Charge struct {
	Code   string  `json:"code"`
	Amount float64 `json:"amount"`
}

// TicketedPassenger is a passenger with the issued e-ticket
type TicketedPassenger struct {
	Type          string            `json:"type"`
	FirstName     string            `json:"first_name"`
	LastName      string            `json:"last_name"`
	ETicket       ETicket           `json:"e_ticket"`
	FareBreakdown PassengerFareLine `json:"fare_breakdown"`
}

// ETicket is an issued electronic ticket
type ETicket struct {
	Number     string `json:"number"`
	Status     string `json:"status"`
	UsedStatus string `json:"used_status"`
}

// PassengerFareLine is the per-passenger fare
type PassengerFareLine struct {
	BaseFare  float64  `json:"base_fare"`
	TotalFare float64  `json:"total_fare"`
	Currency  string   `json:"currency"`
	Taxes     []Charge `json:"taxes,omitempty"`
}

// PaymentConfirmation describes how the booking was charged
type PaymentConfirmation struct {
	AgencyCode      string  `json:"agency_code"`
	AgencyName      string  `json:"agency_name"`
	PaymentAmount   float64 `json:"payment_amount"`
	PaymentCurrency string  `json:"payment_currency"`
}

// TicketingStatus is the provider's ticketing outcome
type TicketingStatus struct {
	StatusCode string `json:"status_code"`
	Advisory   string `json:"advisory"`
}

// ETicketNumbers lists the issued ticket numbers in passenger order
func (r *BookingResponse) ETicketNumbers() []string {
	numbers := make([]string, 0, len(r.Passengers))
	for _, p := range r.Passengers {
		if p.ETicket.Number != "" {
			numbers = append(numbers, p.ETicket.Number)
		}
	}
	return numbers
}
