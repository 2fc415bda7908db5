package wizard

import "github.com/smarttransit/interline-booking-backend/internal/models"

// Action is one event applied to a booking session by Machine.Dispatch
type Action interface {
	Name() string
}

// UpdatePassengerField merges Patch into the passenger at Index
type UpdatePassengerField struct {
	Index int
	Patch models.PassengerPatch
}

// UpdateContactField merges Patch into the booking contact
type UpdateContactField struct {
	Patch models.ContactPatch
}

// AdvanceStep moves from passenger details to contact information
type AdvanceStep struct{}

// RetreatStep moves from contact information back to passenger details
type RetreatStep struct{}

// StartSubmission validates the contact and marks the session as submitting
type StartSubmission struct{}

// SubmissionSucceeded records the provider confirmation
type SubmissionSucceeded struct {
	Response *models.BookingResponse
}

// SubmissionFailed records a failed or rejected submission
type SubmissionFailed struct {
	Err error
}

// Reset discards all entered data and restarts the wizard
type Reset struct{}

func (UpdatePassengerField) Name() string { return "update_passenger_field" }
func (UpdateContactField) Name() string   { return "update_contact_field" }
func (AdvanceStep) Name() string          { return "advance_step" }
func (RetreatStep) Name() string          { return "retreat_step" }
func (StartSubmission) Name() string      { return "start_submission" }
func (SubmissionSucceeded) Name() string  { return "submission_succeeded" }
func (SubmissionFailed) Name() string     { return "submission_failed" }
func (Reset) Name() string                { return "reset" }
