package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/smarttransit/interline-booking-backend/internal/models"
)

// BookingRecordRepository handles booking_records database operations
type BookingRecordRepository struct {
	db DB
}

// NewBookingRecordRepository creates a new booking record repository
func NewBookingRecordRepository(db DB) *BookingRecordRepository {
	return &BookingRecordRepository{
		db: db,
	}
}

const bookingRecordColumns = `
	id, agent_id, pnr, itinerary_id, transaction_id, route, flight_type,
	passenger_count, total_amount, currency, e_ticket_numbers,
	ticketing_status, contact_email, raw_response, created_at`

// Create stores a confirmed booking
func (r *BookingRecordRepository) Create(record *models.BookingRecord) error {
	query := `
		INSERT INTO booking_records (` + bookingRecordColumns + `
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := r.db.Exec(
		query,
		record.ID,
		record.AgentID,
		record.PNR,
		record.ItineraryID,
		record.TransactionID,
		record.Route,
		record.FlightType,
		record.PassengerCount,
		record.TotalAmount,
		record.Currency,
		record.ETicketNumbers,
		record.TicketingStatus,
		record.ContactEmail,
		record.RawResponse,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create booking record: %w", err)
	}

	return nil
}

// GetByPNR retrieves an agent's booking by PNR
func (r *BookingRecordRepository) GetByPNR(agentID uuid.UUID, pnr string) (*models.BookingRecord, error) {
	query := `SELECT ` + bookingRecordColumns + `
		FROM booking_records
		WHERE agent_id = $1 AND pnr = $2
	`

	var record models.BookingRecord
	if err := r.db.Get(&record, query, agentID, pnr); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to get booking record: %w", err)
	}

	return &record, nil
}

// ListByAgent returns an agent's bookings, newest first, with the total count
func (r *BookingRecordRepository) ListByAgent(agentID uuid.UUID, limit, offset int) ([]models.BookingRecord, int, error) {
	var total int
	if err := r.db.Get(&total, `SELECT COUNT(*) FROM booking_records WHERE agent_id = $1`, agentID); err != nil {
		return nil, 0, fmt.Errorf("failed to count booking records: %w", err)
	}

	query := `SELECT ` + bookingRecordColumns + `
		FROM booking_records
		WHERE agent_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	records := []models.BookingRecord{}
	if err := r.db.Select(&records, query, agentID, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("failed to list booking records: %w", err)
	}

	return records, total, nil
}
