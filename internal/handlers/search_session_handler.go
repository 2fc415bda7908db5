package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/interline-booking-backend/internal/itinerary"
	"github.com/smarttransit/interline-booking-backend/internal/middleware"
	"github.com/smarttransit/interline-booking-backend/internal/models"
	"github.com/smarttransit/interline-booking-backend/internal/services"
	"github.com/smarttransit/interline-booking-backend/internal/utils"
)

// SearchSessionHandler handles itinerary search sessions
type SearchSessionHandler struct {
	service *services.BookingOrchestratorService
	logger  *logrus.Logger
}

// NewSearchSessionHandler creates a new search session handler
func NewSearchSessionHandler(service *services.BookingOrchestratorService, logger *logrus.Logger) *SearchSessionHandler {
	return &SearchSessionHandler{
		service: service,
		logger:  logger,
	}
}

// SortRequest selects the result ordering
type SortRequest struct {
	SortBy string `json:"sort_by" binding:"required"`
}

// PageRequest selects the visible results page
type PageRequest struct {
	Page int `json:"page" binding:"required"`
}

// SelectRequest selects the itinerary to book
type SelectRequest struct {
	ItineraryID string `json:"itinerary_id" binding:"required"`
}

// sessionID parses the :id path parameter, writing a 400 on failure
func sessionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "Invalid session ID")
		return uuid.Nil, false
	}
	return id, true
}

// Create handles POST /api/v1/search-sessions
func (h *SearchSessionHandler) Create(c *gin.Context) {
	agent := middleware.MustGetAgentContext(c).Agent()
	c.JSON(http.StatusCreated, h.service.CreateSearchSession(agent))
}

// Get handles GET /api/v1/search-sessions/:id
func (h *SearchSessionHandler) Get(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	view, err := h.service.ViewSearch(middleware.MustGetAgentContext(c).Agent(), id)
	if err != nil {
		respondError(c, h.logger, err, nil)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Search handles POST /api/v1/search-sessions/:id/search
func (h *SearchSessionHandler) Search(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	var criteria models.SearchCriteria
	if err := c.ShouldBindJSON(&criteria); err != nil {
		h.logger.WithError(err).Warn("Invalid search request - JSON parsing failed")
		badRequest(c, "Invalid request format: "+err.Error())
		return
	}

	agent := middleware.MustGetAgentContext(c).Agent()
	h.logger.WithFields(logrus.Fields{
		"agent_id":  agent.ID,
		"from":      criteria.FromCity,
		"to":        criteria.ToCity,
		"trip_type": criteria.TripType,
	}).Info("Processing search request")

	view, err := h.service.Search(c.Request.Context(), agent, id, criteria, utils.ClientFromRequest(c))
	if err != nil {
		respondError(c, h.logger, err, nil)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Sort handles POST /api/v1/search-sessions/:id/sort
func (h *SearchSessionHandler) Sort(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	var req SortRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "sort_by is required")
		return
	}
	view, err := h.service.SortResults(middleware.MustGetAgentContext(c).Agent(), id, req.SortBy)
	if err != nil {
		respondError(c, h.logger, err, nil)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Filter handles POST /api/v1/search-sessions/:id/filters
func (h *SearchSessionHandler) Filter(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	var filters itinerary.Filters
	if err := c.ShouldBindJSON(&filters); err != nil {
		badRequest(c, "Invalid filter format: "+err.Error())
		return
	}
	view, err := h.service.FilterResults(middleware.MustGetAgentContext(c).Agent(), id, filters)
	if err != nil {
		respondError(c, h.logger, err, nil)
		return
	}
	c.JSON(http.StatusOK, view)
}

// SetPage handles POST /api/v1/search-sessions/:id/page
func (h *SearchSessionHandler) SetPage(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	var req PageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "page is required")
		return
	}
	view, err := h.service.SetPage(middleware.MustGetAgentContext(c).Agent(), id, req.Page)
	if err != nil {
		respondError(c, h.logger, err, nil)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Select handles POST /api/v1/search-sessions/:id/select
func (h *SearchSessionHandler) Select(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	var req SelectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "itinerary_id is required")
		return
	}
	view, err := h.service.SelectItinerary(middleware.MustGetAgentContext(c).Agent(), id, req.ItineraryID)
	if err != nil {
		respondError(c, h.logger, err, nil)
		return
	}
	c.JSON(http.StatusOK, view)
}

// StartBooking handles POST /api/v1/search-sessions/:id/booking
func (h *SearchSessionHandler) StartBooking(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	session, err := h.service.StartBooking(middleware.MustGetAgentContext(c).Agent(), id)
	if err != nil {
		respondError(c, h.logger, err, nil)
		return
	}
	c.JSON(http.StatusCreated, session)
}

// Delete handles DELETE /api/v1/search-sessions/:id
func (h *SearchSessionHandler) Delete(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	if err := h.service.DeleteSearchSession(middleware.MustGetAgentContext(c).Agent(), id); err != nil {
		respondError(c, h.logger, err, nil)
		return
	}
	c.Status(http.StatusNoContent)
}
