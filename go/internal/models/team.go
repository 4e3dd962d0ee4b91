package models

import (
	"github.com/google/uuid"
)

// DefaultBudget is the purse every team starts with, in lakhs.
const DefaultBudget int64 = 8000

// Team is a bidding participant inside a room.
type Team struct {
	ID      uuid.UUID   `json:"id"`
	Name    string      `json:"name"`
	OwnerID string      `json:"owner_id"` // connection that created the team
	Budget  int64       `json:"budget"`
	Players []uuid.UUID `json:"players"`
}
