package aggregate

import (
	"time"

	"github.com/google/uuid"
)

// Bot is a chatbot definition owned by one dashboard account. The
// dashboard only stores and lists these; conversation handling happens
// elsewhere.
type Bot struct {
	ID          string
	OwnerID     string
	Name        string
	Description string
	Status      string
	Config      map[string]any
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// NewBot creates a bot with a fresh id for the given owner.
func NewBot(ownerID, name, description string, config map[string]any) *Bot {
	now := time.Now()
	return &Bot{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Name:        name,
		Description: description,
		Status:      StatusActive,
		Config:      config,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
