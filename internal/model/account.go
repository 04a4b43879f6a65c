package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AccountStatus represents the lifecycle state of an account. Only active
// accounts pass authorization.
type AccountStatus string

const (
	AccountStatusActive            AccountStatus = "active"
	AccountStatusSuspended         AccountStatus = "suspended"
	AccountStatusClosed            AccountStatus = "closed"
	AccountStatusPendingActivation AccountStatus = "pending_activation"
)

// Account represents a cardholder account. Balance is the available balance
// in fixed-point decimal; it is only ever debited through the ledger.
type Account struct {
	ID             uuid.UUID       `json:"id" gorm:"type:char(36);primaryKey"`
	Status         AccountStatus   `json:"status" gorm:"type:varchar(20);not null;default:'active';index"`
	Balance        decimal.Decimal `json:"balance" gorm:"type:decimal(20,2);not null;default:0"`
	BillingAddress Address         `json:"billing_address" gorm:"embedded;embeddedPrefix:billing_"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	DeletedAt      gorm.DeletedAt  `json:"-" gorm:"index"`

	// Relations
	Cards []Card `json:"cards,omitempty" gorm:"foreignKey:AccountID"`
}

// BeforeCreate sets UUID before creating the record.
func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
