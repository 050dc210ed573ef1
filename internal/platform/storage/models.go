package storage

import (
	"time"

	"gorm.io/datatypes"
)

// IdentityRecord is the stored shape of a dashboard account.
type IdentityRecord struct {
	ID           string         `gorm:"primaryKey" json:"id"`
	Name         string         `json:"name"`
	Email        string         `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string         `json:"-"`
	Settings     datatypes.JSON `json:"settings"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

func (IdentityRecord) TableName() string {
	return "identities"
}

// BotRecord is the stored shape of a chatbot definition.
type BotRecord struct {
	ID          string         `gorm:"primaryKey" json:"id"`
	OwnerID     string         `gorm:"index;not null" json:"owner_id"`
	Name        string         `gorm:"not null" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
	Status      string         `gorm:"default:active" json:"status"`
	Config      datatypes.JSON `json:"config"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

func (BotRecord) TableName() string {
	return "bots"
}
