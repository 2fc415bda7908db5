package models

import "fmt"

// PassengerType is the fare category of a traveler
type PassengerType string

const (
	PassengerAdult  PassengerType = "adult"
	PassengerChild  PassengerType = "child"
	PassengerInfant PassengerType = "infant"
)

// Label returns the display name of the type, e.g. "Adult"
func (t PassengerType) Label() string {
	switch t {
	case PassengerAdult:
		return "Adult"
	case PassengerChild:
		return "Child"
	case PassengerInfant:
		return "Infant"
	}
	return "Passenger"
}

// Gender of a passenger or booking contact
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// Valid reports whether g is a known gender
func (g Gender) Valid() bool {
	return g == GenderMale || g == GenderFemale
}

// PassengerCounts is the passenger mix of a booking. Total is always the sum.
type PassengerCounts struct {
	Adults   int `json:"adults"`
	Children int `json:"children"`
	Infants  int `json:"infants"`
	Total    int `json:"total"`
}

// NewPassengerCounts builds counts with a consistent total
func NewPassengerCounts(adults, children, infants int) PassengerCounts {
	return PassengerCounts{
		Adults:   adults,
		Children: children,
		Infants:  infants,
		Total:    adults + children + infants,
	}
}

// Passenger is a traveler being filled in by the booking wizard
type Passenger struct {
	ID                 string        `json:"id"` // type-scoped, e.g. "adult-1"
	Type               PassengerType `json:"type"`
	Gender             Gender        `json:"gender"`
	FirstName          string        `json:"first_name"`
	LastName           string        `json:"last_name"`
	DateOfBirth        *Date         `json:"date_of_birth"`
	PassportNumber     string        `json:"passport_number"`
	PassportIssueDate  *Date         `json:"passport_issue_date"`
	PassportExpiryDate *Date         `json:"passport_expiry_date"`
	Nationality        string        `json:"nationality"`
}

// PassengerPatch is a partial update of a Passenger. Nil fields are left untouched.
type PassengerPatch struct {
	Gender             *Gender `json:"gender,omitempty"`
	FirstName          *string `json:"first_name,omitempty"`
	LastName           *string `json:"last_name,omitempty"`
	DateOfBirth        *Date   `json:"date_of_birth,omitempty"`
	PassportNumber     *string `json:"passport_number,omitempty"`
	PassportIssueDate  *Date   `json:"passport_issue_date,omitempty"`
	PassportExpiryDate *Date   `json:"passport_expiry_date,omitempty"`
	Nationality        *string `json:"nationality,omitempty"`
}

// Apply merges the patch into p and returns the result
func (patch PassengerPatch) Apply(p Passenger) Passenger {
	if patch.Gender != nil {
		p.Gender = *patch.Gender
	}
	if patch.FirstName != nil {
		p.FirstName = *patch.FirstName
	}
	if patch.LastName != nil {
		p.LastName = *patch.LastName
	}
	if patch.DateOfBirth != nil {
		p.DateOfBirth = copyDate(patch.DateOfBirth)
	}
	if patch.PassportNumber != nil {
		p.PassportNumber = *patch.PassportNumber
	}
	if patch.PassportIssueDate != nil {
		p.PassportIssueDate = copyDate(patch.PassportIssueDate)
	}
	if patch.PassportExpiryDate != nil {
		p.PassportExpiryDate = copyDate(patch.PassportExpiryDate)
	}
	if patch.Nationality != nil {
		p.Nationality = *patch.Nationality
	}
	return p
}

func copyDate(d *Date) *Date {
	if d == nil || d.IsZero() {
		return nil
	}
	c := *d
	return &c
}

// NewPassengers creates one blank passenger per counted traveler:
// adults first, then children, then infants.
func NewPassengers(counts PassengerCounts) []Passenger {
	passengers := make([]Passenger, 0, counts.Adults+counts.Children+counts.Infants)
	add := func(t PassengerType, n int) {
		for i := 1; i <= n; i++ {
			passengers = append(passengers, Passenger{
				ID:   fmt.Sprintf("%s-%d", t, i),
				Type: t,
			})
		}
	}
	add(PassengerAdult, counts.Adults)
	add(PassengerChild, counts.Children)
	add(PassengerInfant, counts.Infants)
	return passengers
}

// PassengerLabel returns the label of the passenger at index, e.g. "Infant #2",
// numbered 1-based within its type.
func PassengerLabel(passengers []Passenger, index int) string {
	if index < 0 || index >= len(passengers) {
		return fmt.Sprintf("Passenger #%d", index+1)
	}
	t := passengers[index].Type
	n := 0
	for i := 0; i <= index; i++ {
		if passengers[i].Type == t {
			n++
		}
	}
	return fmt.Sprintf("%s #%d", t.Label(), n)
}

// ContactInformation is the single booking contact of a session
type ContactInformation struct {
	Gender      Gender `json:"gender"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	PhoneCode   string `json:"phone_code"` // ISO country code chosen in the dial-code selector
	PhoneNumber string `json:"phone_number"`
	City        string `json:"city"`
}

// ContactPatch is a partial update of ContactInformation
type ContactPatch struct {
	Gender      *Gender `json:"gender,omitempty"`
	FirstName   *string `json:"first_name,omitempty"`
	LastName    *string `json:"last_name,omitempty"`
	Email       *string `json:"email,omitempty"`
	PhoneCode   *string `json:"phone_code,omitempty"`
	PhoneNumber *string `json:"phone_number,omitempty"`
	City        *string `json:"city,omitempty"`
}

// Apply merges the patch into c and returns the result
func (patch ContactPatch) Apply(c ContactInformation) ContactInformation {
	if patch.Gender != nil {
		c.Gender = *patch.Gender
	}
	if patch.FirstName != nil {
		c.FirstName = *patch.FirstName
	}
	if patch.LastName != nil {
		c.LastName = *patch.LastName
	}
	if patch.Email != nil {
		c.Email = *patch.Email
	}
	if patch.PhoneCode != nil {
		c.PhoneCode = *patch.PhoneCode
	}
	if patch.PhoneNumber != nil {
		c.PhoneNumber = *patch.PhoneNumber
	}
	if patch.City != nil {
		c.City = *patch.City
	}
	return c
}
