package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/interline-booking-backend/internal/middleware"
	"github.com/smarttransit/interline-booking-backend/internal/models"
	"github.com/smarttransit/interline-booking-backend/internal/services"
)

// BookingSessionHandler handles the booking wizard endpoints
type BookingSessionHandler struct {
	service *services.BookingOrchestratorService
	logger  *logrus.Logger
}

// NewBookingSessionHandler creates a new BookingSessionHandler
func NewBookingSessionHandler(service *services.BookingOrchestratorService, logger *logrus.Logger) *BookingSessionHandler {
	return &BookingSessionHandler{
		service: service,
		logger:  logger,
	}
}

// ============================================================================
// WIZARD STATE
// ============================================================================

// Get handles GET /api/v1/booking-sessions/:id
func (h *BookingSessionHandler) Get(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	session, err := h.service.GetBookingSession(middleware.MustGetAgentContext(c).Agent(), id)
	if err != nil {
		respondError(c, h.logger, err, nil)
		return
	}
	c.JSON(http.StatusOK, session)
}

// UpdatePassenger handles PATCH /api/v1/booking-sessions/:id/passengers/:index
// Only the fields present in the body are changed.
func (h *BookingSessionHandler) UpdatePassenger(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		badRequest(c, "Invalid passenger index")
		return
	}

	var patch models.PassengerPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, "Invalid request format: "+err.Error())
		return
	}

	session, err := h.service.UpdatePassenger(middleware.MustGetAgentContext(c).Agent(), id, index, patch)
	h.respondSession(c, session, err)
}

// UpdateContact handles PATCH /api/v1/booking-sessions/:id/contact
func (h *BookingSessionHandler) UpdateContact(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	var patch models.ContactPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, "Invalid request format: "+err.Error())
		return
	}

	session, err := h.service.UpdateContact(middleware.MustGetAgentContext(c).Agent(), id, patch)
	h.respondSession(c, session, err)
}

// Advance handles POST /api/v1/booking-sessions/:id/advance
func (h *BookingSessionHandler) Advance(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	session, err := h.service.Advance(middleware.MustGetAgentContext(c).Agent(), id)
	h.respondSession(c, session, err)
}

// Retreat handles POST /api/v1/booking-sessions/:id/retreat
func (h *BookingSessionHandler) Retreat(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	session, err := h.service.Retreat(middleware.MustGetAgentContext(c).Agent(), id)
	h.respondSession(c, session, err)
}

// Reset handles POST /api/v1/booking-sessions/:id/reset
func (h *BookingSessionHandler) Reset(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	session, err := h.service.Reset(middleware.MustGetAgentContext(c).Agent(), id)
	h.respondSession(c, session, err)
}

// ============================================================================
// SUBMISSION
// ============================================================================

// Submit handles POST /api/v1/booking-sessions/:id/submit
func (h *BookingSessionHandler) Submit(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	agent := middleware.MustGetAgentContext(c).Agent()
	h.logger.WithFields(logrus.Fields{
		"agent_id":   agent.ID,
		"booking_id": id,
	}).Info("Submitting booking")

	session, err := h.service.Submit(c.Request.Context(), agent, id)
	h.respondSession(c, session, err)
}

// Fare handles GET /api/v1/booking-sessions/:id/fare
func (h *BookingSessionHandler) Fare(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	breakdown, err := h.service.FareBreakdown(middleware.MustGetAgentContext(c).Agent(), id)
	if err != nil {
		respondError(c, h.logger, err, nil)
		return
	}
	c.JSON(http.StatusOK, breakdown)
}

// Abandon handles DELETE /api/v1/booking-sessions/:id
func (h *BookingSessionHandler) Abandon(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	if err := h.service.Abandon(middleware.MustGetAgentContext(c).Agent(), id); err != nil {
		respondError(c, h.logger, err, nil)
		return
	}
	c.Status(http.StatusNoContent)
}

// respondSession writes the session snapshot. Rejected wizard actions still
// carry the snapshot so the client can render per-field errors.
func (h *BookingSessionHandler) respondSession(c *gin.Context, session models.BookingSession, err error) {
	if err != nil {
		respondError(c, h.logger, err, &session)
		return
	}
	c.JSON(http.StatusOK, session)
}
