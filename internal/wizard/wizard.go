// Package wizard implements the booking wizard as a reducer: every action is
// applied to a BookingSession snapshot and yields a new snapshot.
package wizard

import (
	"errors"
	"fmt"
	"time"

	"github.com/smarttransit/interline-booking-backend/internal/models"
	"github.com/smarttransit/interline-booking-backend/internal/refdata"
	"github.com/smarttransit/interline-booking-backend/pkg/validator"
)

var transitions = map[models.WizardStep]map[models.WizardStep]struct{}{
	models.StepPassengerDetails:   {models.StepContactInformation: {}},
	models.StepContactInformation: {models.StepPassengerDetails: {}, models.StepConfirmation: {}},
	models.StepConfirmation:       {},
}

// CanTransition reports whether the step graph has an edge from -> to
func CanTransition(from, to models.WizardStep) bool {
	next, ok := transitions[from]
	if !ok {
		return false
	}
	_, ok = next[to]
	return ok
}

// Machine applies wizard actions. It holds only immutable collaborators and
// is safe for concurrent use.
type Machine struct {
	catalog *refdata.Catalog
	emails  *validator.EmailValidator
	phones  *validator.PhoneValidator
	now     func() time.Time
}

// NewMachine creates a wizard backed by the given reference data
func NewMachine(catalog *refdata.Catalog) *Machine {
	return &Machine{
		catalog: catalog,
		emails:  validator.NewEmailValidator(),
		phones:  validator.NewPhoneValidator(),
		now:     time.Now,
	}
}

// WithClock returns a copy of m that reads the current time from now
func (m *Machine) WithClock(now func() time.Time) *Machine {
	c := *m
	c.now = now
	return &c
}

// Dispatch applies a to s. The input snapshot is never modified.
//
// The returned snapshot is always the one to keep: on a rejected action it is
// either identical to s or carries the diagnostics of the rejection
// (FocusedPassenger, ContactErrors).
func (m *Machine) Dispatch(s models.BookingSession, a Action) (models.BookingSession, error) {
	if err := m.guard(s, a); err != nil {
		return s, err
	}

	next := s.Clone()
	var err error

	switch act := a.(type) {
	case UpdatePassengerField:
		err = m.updatePassenger(&next, act)
	case UpdateContactField:
		err = m.updateContact(&next, act)
	case AdvanceStep:
		err = m.advance(&next)
	case RetreatStep:
		err = m.retreat(&next)
	case StartSubmission:
		err = m.startSubmission(&next)
	case SubmissionSucceeded:
		err = m.submissionSucceeded(&next, act)
	case SubmissionFailed:
		m.submissionFailed(&next, act)
	case Reset:
		m.reset(&next)
	default:
		return s, fmt.Errorf("unknown wizard action %T", a)
	}

	if err != nil && !keepsDiagnostics(err) {
		return s, err
	}
	next.UpdatedAt = m.now()
	return next, err
}

// guard rejects actions that are never valid in the session's state
func (m *Machine) guard(s models.BookingSession, a Action) error {
	switch a.(type) {
	case Reset:
		if s.IsSubmitting {
			return models.ErrSubmissionInFlight
		}
		return nil
	case SubmissionSucceeded, SubmissionFailed:
		if s.IsFinal() {
			return models.ErrSessionFinalized
		}
		if !s.IsSubmitting {
			return models.ErrNotSubmitting
		}
		return nil
	}
	if s.IsFinal() {
		return models.ErrSessionFinalized
	}
	if s.IsSubmitting {
		return models.ErrSubmissionInFlight
	}
	return nil
}

func keepsDiagnostics(err error) bool {
	var pErr *models.PassengerValidationError
	var vErr *models.ValidationError
	return errors.As(err, &pErr) || errors.As(err, &vErr)
}

func (m *Machine) updatePassenger(s *models.BookingSession, act UpdatePassengerField) error {
	if s.Step != models.StepPassengerDetails {
		return models.ErrWrongStep
	}
	if act.Index < 0 || act.Index >= len(s.Passengers) {
		return fmt.Errorf("%w: %d", models.ErrPassengerIndex, act.Index)
	}
	s.Passengers[act.Index] = act.Patch.Apply(s.Passengers[act.Index])
	return nil
}

func (m *Machine) updateContact(s *models.BookingSession, act UpdateContactField) error {
	if s.Step != models.StepContactInformation {
		return models.ErrWrongStep
	}
	s.Contact = act.Patch.Apply(s.Contact)
	for _, f := range contactPatchFields(act.Patch) {
		delete(s.ContactErrors, f)
	}
	if len(s.ContactErrors) == 0 {
		s.ContactErrors = nil
	}
	return nil
}

func (m *Machine) advance(s *models.BookingSession) error {
	switch s.Step {
	case models.StepPassengerDetails:
		if failed := m.ValidateAllPassengers(s.Passengers); failed != nil {
			idx := failed.Index
			s.FocusedPassenger = &idx
			return failed
		}
		s.Step = models.StepContactInformation
		s.FocusedPassenger = nil
		return nil
	case models.StepContactInformation:
		return models.ErrSubmissionRequired
	}
	return models.ErrInvalidTransition
}

func (m *Machine) retreat(s *models.BookingSession) error {
	if !CanTransition(s.Step, models.StepPassengerDetails) {
		return models.ErrInvalidTransition
	}
	s.Step = models.StepPassengerDetails
	s.LastError = ""
	return nil
}

func (m *Machine) startSubmission(s *models.BookingSession) error {
	if !CanTransition(s.Step, models.StepConfirmation) {
		return models.ErrInvalidTransition
	}
	if errs := m.ValidateContact(s.Contact); errs != nil {
		s.ContactErrors = errs
		return &models.ValidationError{
			Message: "contact information is incomplete",
			Fields:  errs,
		}
	}
	s.ContactErrors = nil
	s.LastError = ""
	s.IsSubmitting = true
	return nil
}

func (m *Machine) submissionSucceeded(s *models.BookingSession, act SubmissionSucceeded) error {
	if act.Response == nil {
		return fmt.Errorf("submission succeeded without a response")
	}
	s.IsSubmitting = false
	s.Step = models.StepConfirmation
	s.Confirmation = act.Response
	s.LastError = ""
	return nil
}

func (m *Machine) submissionFailed(s *models.BookingSession, act SubmissionFailed) {
	s.IsSubmitting = false
	s.Step = models.StepContactInformation
	if act.Err != nil {
		s.LastError = act.Err.Error()
	} else {
		s.LastError = "booking submission failed"
	}
}

func (m *Machine) reset(s *models.BookingSession) {
	s.Passengers = models.NewPassengers(s.Counts)
	s.Contact = models.ContactInformation{}
	s.Step = models.StepPassengerDetails
	s.IsSubmitting = false
	s.FocusedPassenger = nil
	s.ContactErrors = nil
	s.LastError = ""
	s.Confirmation = nil
}
