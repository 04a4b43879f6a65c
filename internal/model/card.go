package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CardStatus represents the lifecycle state of a card. Only active cards
// pass authorization; every other status declines with its own reason.
type CardStatus string

const (
	CardStatusActive   CardStatus = "active"
	CardStatusInactive CardStatus = "inactive"
	CardStatusBlocked  CardStatus = "blocked"
	CardStatusExpired  CardStatus = "expired"
	CardStatusLost     CardStatus = "lost"
	CardStatusStolen   CardStatus = "stolen"
)

// Card represents a payment card linked to an account. CardNumber is stored
// normalized (digits only) and is unique across the system.
type Card struct {
	ID             uuid.UUID      `json:"id" gorm:"type:char(36);primaryKey"`
	AccountID      uuid.UUID      `json:"account_id" gorm:"type:char(36);not null;index"`
	CardNumber     string         `json:"card_number" gorm:"size:19;not null;uniqueIndex"`
	CardholderName string         `json:"cardholder_name" gorm:"size:255;not null"`
	CVC2           string         `json:"-" gorm:"size:4;not null"` // Never expose in JSON
	Status         CardStatus     `json:"status" gorm:"type:varchar(20);not null;default:'active';index"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Account Account `json:"-" gorm:"foreignKey:AccountID"`
}

// BeforeCreate sets UUID before creating the record.
func (c *Card) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
