package models

import "github.com/google/uuid"

// Agent is the authenticated agency account a request acts for
type Agent struct {
	ID          uuid.UUID `json:"agent_id"`
	POS         string    `json:"pos"`
	OnAccount   string    `json:"on_account"`
	CompanyName string    `json:"company_name"`
}
