package entity

import (
	"time"

	"github.com/google/uuid"
)

// Card is a saved business-card contact record.
type Card struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	JobTitle  string    `json:"job_title"`
	Company   string    `json:"company"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
	Website   string    `json:"website"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
