package wizard

import (
	"strings"

	"github.com/smarttransit/interline-booking-backend/internal/models"
)

// Contact field keys used in per-field error maps
const (
	FieldGender      = "gender"
	FieldFirstName   = "first_name"
	FieldLastName    = "last_name"
	FieldEmail       = "email"
	FieldPhoneCode   = "phone_code"
	FieldPhoneNumber = "phone_number"
	FieldCity        = "city"

	FieldDateOfBirth        = "date_of_birth"
	FieldPassportNumber     = "passport_number"
	FieldPassportIssueDate  = "passport_issue_date"
	FieldPassportExpiryDate = "passport_expiry_date"
	FieldNationality        = "nationality"
)

// validatePassenger returns the first failing field of p, in form order
func (m *Machine) validatePassenger(p models.Passenger, today models.Date) (field, message string, ok bool) {
	switch {
	case strings.TrimSpace(p.FirstName) == "":
		return FieldFirstName, "first name is required", false
	case strings.TrimSpace(p.LastName) == "":
		return FieldLastName, "last name is required", false
	case p.DateOfBirth == nil || p.DateOfBirth.IsZero():
		return FieldDateOfBirth, "date of birth is required", false
	case strings.TrimSpace(p.PassportNumber) == "":
		return FieldPassportNumber, "passport number is required", false
	case p.PassportIssueDate == nil || p.PassportIssueDate.IsZero():
		return FieldPassportIssueDate, "passport issue date is required", false
	case p.PassportExpiryDate == nil || p.PassportExpiryDate.IsZero():
		return FieldPassportExpiryDate, "passport expiry date is required", false
	case p.PassportExpiryDate.Time.Before(today.Time):
		return FieldPassportExpiryDate, "passport has expired", false
	case strings.TrimSpace(p.Nationality) == "":
		return FieldNationality, "nationality is required", false
	case !m.catalog.IsNationality(p.Nationality):
		return FieldNationality, "nationality is not recognised", false
	}
	return "", "", true
}

// ValidateAllPassengers checks every passenger in order and reports the
// lowest-indexed failure, or nil when all pass.
func (m *Machine) ValidateAllPassengers(passengers []models.Passenger) *models.PassengerValidationError {
	today := models.NewDate(m.now())
	for i, p := range passengers {
		field, message, ok := m.validatePassenger(p, today)
		if ok {
			continue
		}
		return &models.PassengerValidationError{
			Index:   i,
			Label:   models.PassengerLabel(passengers, i),
			Field:   field,
			Message: message,
		}
	}
	return nil
}

// ValidateContact returns per-field messages for an incomplete contact, or nil
func (m *Machine) ValidateContact(c models.ContactInformation) map[string]string {
	errs := make(map[string]string)

	if !c.Gender.Valid() {
		errs[FieldGender] = "gender is required"
	}
	if strings.TrimSpace(c.FirstName) == "" {
		errs[FieldFirstName] = "first name is required"
	}
	if strings.TrimSpace(c.LastName) == "" {
		errs[FieldLastName] = "last name is required"
	}
	if _, err := m.emails.Validate(c.Email); err != nil {
		errs[FieldEmail] = err.Error()
	}

	country, known := m.catalog.Country(c.PhoneCode)
	switch {
	case strings.TrimSpace(c.PhoneCode) == "":
		errs[FieldPhoneCode] = "phone code is required"
	case !known:
		errs[FieldPhoneCode] = "phone code is not recognised"
	}

	if strings.TrimSpace(c.PhoneNumber) == "" {
		errs[FieldPhoneNumber] = "phone number is required"
	} else if known {
		if _, err := m.phones.Validate(country.DialCode, c.PhoneNumber); err != nil {
			errs[FieldPhoneNumber] = err.Error()
		}
	}

	switch {
	case strings.TrimSpace(c.City) == "":
		errs[FieldCity] = "city is required"
	case known && !m.catalog.HasCity(country.Code, c.City):
		errs[FieldCity] = "city is not in the selected country"
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// contactPatchFields lists the fields a patch touches
func contactPatchFields(p models.ContactPatch) []string {
	var fields []string
	if p.Gender != nil {
		fields = append(fields, FieldGender)
	}
	if p.FirstName != nil {
		fields = append(fields, FieldFirstName)
	}
	if p.LastName != nil {
		fields = append(fields, FieldLastName)
	}
	if p.Email != nil {
		fields = append(fields, FieldEmail)
	}
	if p.PhoneCode != nil {
		// city and number are checked against the chosen country
		fields = append(fields, FieldPhoneCode, FieldPhoneNumber, FieldCity)
	}
	if p.PhoneNumber != nil {
		fields = append(fields, FieldPhoneNumber)
	}
	if p.City != nil {
		fields = append(fields, FieldCity)
	}
	return fields
}
