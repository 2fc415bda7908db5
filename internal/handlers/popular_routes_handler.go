package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/interline-booking-backend/internal/models"
)

// PopularRouteSource reports the most searched city pairs
type PopularRouteSource interface {
	GetPopularRoutes(limit int) ([]models.PopularRoute, error)
}

// PopularRoutesHandler serves quick-pick routes for the search form
type PopularRoutesHandler struct {
	source PopularRouteSource
	logger *logrus.Logger
}

func NewPopularRoutesHandler(source PopularRouteSource, logger *logrus.Logger) *PopularRoutesHandler {
	return &PopularRoutesHandler{source: source, logger: logger}
}

// List handles GET /api/v1/searches/popular?limit=10
func (h *PopularRoutesHandler) List(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit <= 0 || limit > 50 {
		limit = 10
	}

	routes, err := h.source.GetPopularRoutes(limit)
	if err != nil {
		// search logs are best effort; an empty list keeps the form usable
		h.logger.WithError(err).Warn("Failed to load popular routes")
		routes = []models.PopularRoute{}
	}

	c.JSON(http.StatusOK, gin.H{"routes": routes})
}
