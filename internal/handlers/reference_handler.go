package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smarttransit/interline-booking-backend/internal/refdata"
)

// ReferenceHandler exposes the country reference table used by the wizard forms
type ReferenceHandler struct {
	catalog *refdata.Catalog
}

func NewReferenceHandler(catalog *refdata.Catalog) *ReferenceHandler {
	return &ReferenceHandler{catalog: catalog}
}

// Countries handles GET /api/v1/reference/countries
func (h *ReferenceHandler) Countries(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"countries": h.catalog.Countries()})
}

// Cities handles GET /api/v1/reference/countries/:code/cities
func (h *ReferenceHandler) Cities(c *gin.Context) {
	cities, ok := h.catalog.Cities(c.Param("code"))
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "Unknown country code",
			Code:    "COUNTRY_NOT_FOUND",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cities": cities})
}

// Nationalities handles GET /api/v1/reference/nationalities
func (h *ReferenceHandler) Nationalities(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"nationalities": h.catalog.Nationalities()})
}
