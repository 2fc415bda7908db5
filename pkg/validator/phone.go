package validator

import (
	"errors"
	"regexp"
	"strings"
)

var (
	// ErrInvalidLength indicates the national number is not 6 to 14 digits
	ErrInvalidLength = errors.New("phone number must have between 6 and 14 digits")

	// ErrInvalidFormat indicates phone number contains invalid characters
	ErrInvalidFormat = errors.New("phone number can only contain digits")

	// ErrEmptyPhone indicates phone number is empty
	ErrEmptyPhone = errors.New("phone number cannot be empty")

	// ErrInvalidDialCode indicates the dial code is not of the form +N
	ErrInvalidDialCode = errors.New("dial code must be '+' followed by 1 to 4 digits")
)

const (
	minNationalDigits = 6
	maxNationalDigits = 14
)

// phoneRegex matches digits only
var phoneRegex = regexp.MustCompile(`^\d+$`)

var dialCodeRegex = regexp.MustCompile(`^\+\d{1,4}$`)

// PhoneValidator validates contact phone numbers against a country dial code
type PhoneValidator struct{}

// NewPhoneValidator creates a new phone validator instance
func NewPhoneValidator() *PhoneValidator {
	return &PhoneValidator{}
}

// Validate validates a phone number dialled with dialCode (e.g. "+94").
// Accepts 0771234567, 077 123 4567, +94 77 123 4567 and similar.
// Returns the national significant number (digits only, no trunk zero).
func (v *PhoneValidator) Validate(dialCode, phone string) (string, error) {
	if strings.TrimSpace(phone) == "" {
		return "", ErrEmptyPhone
	}
	if !dialCodeRegex.MatchString(dialCode) {
		return "", ErrInvalidDialCode
	}

	sanitized := v.Sanitize(dialCode, phone)

	if !phoneRegex.MatchString(sanitized) {
		return "", ErrInvalidFormat
	}

	if len(sanitized) < minNationalDigits || len(sanitized) > maxNationalDigits {
		return "", ErrInvalidLength
	}

	return sanitized, nil
}

// Sanitize removes separators, the country code and the trunk zero
func (v *PhoneValidator) Sanitize(dialCode, phone string) string {
	phone = strings.TrimSpace(phone)
	hadPlus := strings.HasPrefix(phone, "+")

	// Remove spaces, dashes, parentheses, and other common separators
	phone = strings.ReplaceAll(phone, " ", "")
	phone = strings.ReplaceAll(phone, "-", "")
	phone = strings.ReplaceAll(phone, "(", "")
	phone = strings.ReplaceAll(phone, ")", "")
	phone = strings.ReplaceAll(phone, "+", "")
	phone = strings.ReplaceAll(phone, ".", "")

	country := strings.TrimPrefix(dialCode, "+")
	switch {
	case strings.HasPrefix(phone, "00"+country):
		phone = phone[2+len(country):]
	case hadPlus && strings.HasPrefix(phone, country):
		phone = phone[len(country):]
	}

	return strings.TrimPrefix(phone, "0")
}

// E164 returns the number in international format, e.g. +94771234567
func (v *PhoneValidator) E164(dialCode, phone string) (string, error) {
	national, err := v.Validate(dialCode, phone)
	if err != nil {
		return "", err
	}
	return dialCode + national, nil
}

// IsValid is a convenience method that returns true if phone is valid
func (v *PhoneValidator) IsValid(dialCode, phone string) bool {
	_, err := v.Validate(dialCode, phone)
	return err == nil
}
