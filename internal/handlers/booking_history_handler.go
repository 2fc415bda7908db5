package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/interline-booking-backend/internal/middleware"
	"github.com/smarttransit/interline-booking-backend/internal/services"
)

// BookingHistoryHandler serves the agent's confirmed bookings
type BookingHistoryHandler struct {
	service *services.BookingOrchestratorService
	logger  *logrus.Logger
}

// NewBookingHistoryHandler creates a new BookingHistoryHandler
func NewBookingHistoryHandler(service *services.BookingOrchestratorService, logger *logrus.Logger) *BookingHistoryHandler {
	return &BookingHistoryHandler{
		service: service,
		logger:  logger,
	}
}

// List handles GET /api/v1/bookings?limit=20&offset=0
func (h *BookingHistoryHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	records, total, err := h.service.ListBookings(middleware.MustGetAgentContext(c).Agent(), limit, offset)
	if err != nil {
		respondError(c, h.logger, err, nil)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"bookings": records,
		"total":    total,
		"limit":    limit,
		"offset":   offset,
	})
}

// GetByPNR handles GET /api/v1/bookings/:pnr
func (h *BookingHistoryHandler) GetByPNR(c *gin.Context) {
	pnr := strings.ToUpper(strings.TrimSpace(c.Param("pnr")))
	if pnr == "" {
		badRequest(c, "PNR is required")
		return
	}

	record, err := h.service.GetBooking(middleware.MustGetAgentContext(c).Agent(), pnr)
	if err != nil {
		respondError(c, h.logger, err, nil)
		return
	}
	c.JSON(http.StatusOK, record)
}
