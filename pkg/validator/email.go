package validator

import (
	"errors"
	"strings"

	playground "github.com/go-playground/validator/v10"
)

var (
	// ErrEmptyEmail indicates the email is empty
	ErrEmptyEmail = errors.New("email cannot be empty")

	// ErrInvalidEmail indicates the email is not syntactically valid
	ErrInvalidEmail = errors.New("email address is not valid")
)

// EmailValidator checks email syntax using the same rules as gin's binding tags
type EmailValidator struct {
	validate *playground.Validate
}

// NewEmailValidator creates a new email validator instance
func NewEmailValidator() *EmailValidator {
	return &EmailValidator{validate: playground.New()}
}

// Validate returns the trimmed email or an error
func (v *EmailValidator) Validate(email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", ErrEmptyEmail
	}
	if err := v.validate.Var(email, "email"); err != nil {
		return "", ErrInvalidEmail
	}
	return email, nil
}

// IsValid is a convenience method that returns true if email is valid
func (v *EmailValidator) IsValid(email string) bool {
	_, err := v.Validate(email)
	return err == nil
}
