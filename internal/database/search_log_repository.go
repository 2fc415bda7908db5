package database

import (
	"fmt"

	"github.com/smarttransit/interline-booking-backend/internal/models"
)

// SearchLogRepository handles search analytics
type SearchLogRepository struct {
	db DB
}

// NewSearchLogRepository creates a new search log repository
func NewSearchLogRepository(db DB) *SearchLogRepository {
	return &SearchLogRepository{
		db: db,
	}
}

// LogSearch logs a search request for analytics
func (r *SearchLogRepository) LogSearch(log *models.SearchLog) error {
	query := `
		INSERT INTO search_logs (
			id, agent_id, from_city, to_city, departure_date, return_date,
			cabin_class, adults, children, infants, results_count,
			response_time_ms, succeeded, ip_address, device_type, browser, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	_, err := r.db.Exec(
		query,
		log.ID,
		log.AgentID,
		log.FromCity,
		log.ToCity,
		log.DepartureDate,
		log.ReturnDate,
		log.CabinClass,
		log.Adults,
		log.Children,
		log.Infants,
		log.ResultsCount,
		log.ResponseTimeMs,
		log.Succeeded,
		log.IPAddress,
		log.DeviceType,
		log.Browser,
		log.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to log search: %w", err)
	}

	return nil
}

// GetPopularRoutes returns the most searched city pairs of the last 30 days
func (r *SearchLogRepository) GetPopularRoutes(limit int) ([]models.PopularRoute, error) {
	query := `
		SELECT from_city, to_city, COUNT(*) AS search_count
		FROM search_logs
		WHERE succeeded = true
		  AND created_at > NOW() - INTERVAL '30 days'
		GROUP BY from_city, to_city
		ORDER BY search_count DESC
		LIMIT $1
	`

	routes := []models.PopularRoute{}
	if err := r.db.Select(&routes, query, limit); err != nil {
		return nil, fmt.Errorf("failed to get popular routes: %w", err)
	}

	return routes, nil
}
