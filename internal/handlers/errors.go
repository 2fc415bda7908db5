package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/interline-booking-backend/internal/models"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Message string                 `json:"message"`
	Code    string                 `json:"code,omitempty"`
	Details interface{}            `json:"details,omitempty"`
	Session *models.BookingSession `json:"session,omitempty"`
}

type sentinelMapping struct {
	err    error
	status int
	code   string
}

var sentinelErrors = []sentinelMapping{
	{models.ErrSessionNotFound, http.StatusNotFound, "SESSION_NOT_FOUND"},
	{models.ErrBookingNotFound, http.StatusNotFound, "BOOKING_NOT_FOUND"},
	{models.ErrItineraryNotFound, http.StatusNotFound, "ITINERARY_NOT_FOUND"},
	{models.ErrSessionForbidden, http.StatusForbidden, "SESSION_FORBIDDEN"},
	{models.ErrSearchInFlight, http.StatusConflict, "SEARCH_IN_PROGRESS"},
	{models.ErrSubmissionInFlight, http.StatusConflict, "SUBMISSION_IN_PROGRESS"},
	{models.ErrSessionFinalized, http.StatusConflict, "SESSION_FINALIZED"},
	{models.ErrInvalidTransition, http.StatusConflict, "INVALID_TRANSITION"},
	{models.ErrWrongStep, http.StatusConflict, "WRONG_STEP"},
	{models.ErrSubmissionRequired, http.StatusConflict, "SUBMISSION_REQUIRED"},
	{models.ErrNoSelection, http.StatusConflict, "NO_SELECTION"},
	{models.ErrNotSubmitting, http.StatusConflict, "NOT_SUBMITTING"},
	{models.ErrPageOutOfRange, http.StatusBadRequest, "PAGE_OUT_OF_RANGE"},
	{models.ErrPassengerIndex, http.StatusBadRequest, "PASSENGER_INDEX_OUT_OF_RANGE"},
}

// errorResponseFor maps a service error to its HTTP status and body
func errorResponseFor(err error) (int, ErrorResponse) {
	var (
		vErr *models.ValidationError
		pErr *models.PassengerValidationError
		bErr *models.BusinessRuleError
		prov *models.ProviderError
	)

	switch {
	case errors.As(err, &pErr):
		return http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "passenger_invalid",
			Message: pErr.Error(),
			Code:    "PASSENGER_INVALID",
			Details: pErr,
		}
	case errors.As(err, &vErr):
		resp := ErrorResponse{
			Error:   "validation_error",
			Message: vErr.Message,
			Code:    "VALIDATION_FAILED",
		}
		if len(vErr.Fields) > 0 {
			resp.Details = vErr.Fields
		}
		return http.StatusBadRequest, resp
	case errors.As(err, &bErr):
		return http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "business_rule",
			Message: bErr.Message,
			Code:    bErr.Code,
		}
	case errors.As(err, &prov):
		return http.StatusBadGateway, ErrorResponse{
			Error:   "provider_error",
			Message: "The airline provider could not complete the request. Please try again.",
			Code:    "PROVIDER_" + strings.ToUpper(prov.Op) + "_FAILED",
		}
	}

	for _, m := range sentinelErrors {
		if errors.Is(err, m.err) {
			return m.status, ErrorResponse{
				Error:   "request_failed",
				Message: err.Error(),
				Code:    m.code,
			}
		}
	}

	return http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An unexpected error occurred",
		Code:    "INTERNAL_ERROR",
	}
}

// respondError writes err as JSON. session, when given, carries the wizard
// diagnostics of a rejected action.
func respondError(c *gin.Context, logger *logrus.Logger, err error, session *models.BookingSession) {
	status, resp := errorResponseFor(err)
	if session != nil && session.ID != uuid.Nil {
		resp.Session = session
	}

	entry := logger.WithFields(logrus.Fields{
		"path":   c.FullPath(),
		"status": status,
		"code":   resp.Code,
	}).WithError(err)
	switch {
	case status == http.StatusBadGateway:
		entry.Error("Provider request failed")
	case status >= http.StatusInternalServerError:
		entry.Error("Request failed")
	default:
		entry.Info("Request rejected")
	}

	c.JSON(status, resp)
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   "validation_error",
		Message: message,
		Code:    "INVALID_REQUEST",
	})
}
