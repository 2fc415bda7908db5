package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/smarttransit/interline-booking-backend/internal/models"
)

// AgentAccountRepository handles agent_accounts database operations
type AgentAccountRepository struct {
	db DB
}

// NewAgentAccountRepository creates a new agent account repository
func NewAgentAccountRepository(db DB) *AgentAccountRepository {
	return &AgentAccountRepository{
		db: db,
	}
}

// GetByAgentID retrieves the account of an agent
func (r *AgentAccountRepository) GetByAgentID(agentID uuid.UUID) (*models.AgentAccount, error) {
	query := `
		SELECT agent_id, company_name, on_account, balance, currency, updated_at
		FROM agent_accounts
		WHERE agent_id = $1
	`

	var account models.AgentAccount
	if err := r.db.Get(&account, query, agentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrAgentAccountMissing
		}
		return nil, fmt.Errorf("failed to get agent account: %w", err)
	}

	return &account, nil
}

// Debit subtracts a confirmed booking amount from the agent's balance
func (r *AgentAccountRepository) Debit(agentID uuid.UUID, amount float64) error {
	query := `
		UPDATE agent_accounts
		SET balance = balance - $2, updated_at = NOW()
		WHERE agent_id = $1
	`

	result, err := r.db.Exec(query, agentID, amount)
	if err != nil {
		return fmt.Errorf("failed to debit agent account: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return models.ErrAgentAccountMissing
	}

	return nil
}
