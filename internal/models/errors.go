package models

import (
	"errors"
	"fmt"
)

// Session and workflow state errors
var (
	ErrSessionNotFound     = errors.New("session not found")
	ErrSessionForbidden    = errors.New("unauthorized: session belongs to another agent")
	ErrSearchInFlight      = errors.New("a search is already in progress for this session")
	ErrSubmissionInFlight  = errors.New("booking submission is in progress")
	ErrSessionFinalized    = errors.New("booking session is already confirmed")
	ErrInvalidTransition   = errors.New("transition not permitted from current step")
	ErrWrongStep           = errors.New("action not permitted in current step")
	ErrSubmissionRequired  = errors.New("confirmation is only reached through a successful submission")
	ErrPageOutOfRange      = errors.New("page is out of range")
	ErrItineraryNotFound   = errors.New("itinerary not found in search results")
	ErrNoSelection         = errors.New("no itinerary selected")
	ErrPassengerIndex      = errors.New("passenger index out of range")
	ErrNotSubmitting       = errors.New("no submission in progress")
	ErrBookingNotFound     = errors.New("booking not found")
	ErrAgentAccountMissing = errors.New("agent account not found")
)

// ErrInvalidInput creates a validation error
func ErrInvalidInput(message string) error {
	return &ValidationError{Message: message}
}

// ValidationError represents a validation error, optionally scoped to fields
type ValidationError struct {
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func (e *ValidationError) Error() string {
	return e.Message
}

// PassengerValidationError names the first passenger that failed the
// passenger details step and the offending field.
type PassengerValidationError struct {
	Index   int    `json:"index"`
	Label   string `json:"label"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *PassengerValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Label, e.Message)
}

// RuleInsufficientBalance is the business rule code for an uncovered booking
const RuleInsufficientBalance = "INSUFFICIENT_BALANCE"

// BusinessRuleError is raised before submission when a booking may not proceed
type BusinessRuleError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *BusinessRuleError) Error() string {
	return e.Message
}

// ProviderError wraps a transport or provider failure
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s failed: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
