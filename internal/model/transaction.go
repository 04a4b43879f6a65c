package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Transaction is the durable record of one authorization decision, approved
// or declined. Exactly one row is written per request; idempotent replays do
// not write a second row.
type Transaction struct {
	ID                   uuid.UUID       `json:"id" gorm:"type:char(36);primaryKey"`
	RequestID            string          `json:"request_id" gorm:"size:64;not null;uniqueIndex"`
	CardID               uuid.UUID       `json:"card_id" gorm:"type:char(36);index"`
	AccountID            uuid.UUID       `json:"account_id" gorm:"type:char(36);index"`
	CardNumber           string          `json:"card_number" gorm:"size:19;not null"` // Masked card number
	Amount               decimal.Decimal `json:"amount" gorm:"type:decimal(20,2);not null"`
	MerchantCategoryCode string          `json:"merchant_category_code" gorm:"size:4;not null"`
	Type                 TransactionType `json:"type" gorm:"type:varchar(20);not null"`
	Approved             bool            `json:"approved" gorm:"not null;index"`
	AuthorizationCode    string          `json:"authorization_code,omitempty" gorm:"size:36"`
	DeclineCode          string          `json:"decline_code,omitempty" gorm:"size:40"`
	DeclineReason        string          `json:"decline_reason,omitempty" gorm:"size:255"`
	CreatedAt            time.Time       `json:"created_at"`
	DeletedAt            gorm.DeletedAt  `json:"-" gorm:"index"`
}

// BeforeCreate sets UUID before creating the record.
func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// AuthorizationLog is an audit entry for an authorization attempt. Entries are
// written asynchronously in batches; the Transaction row is the authority.
type AuthorizationLog struct {
	ID            uuid.UUID      `json:"id" gorm:"type:char(36);primaryKey"`
	TransactionID uuid.UUID      `json:"transaction_id" gorm:"type:char(36);not null;index"`
	Approved      bool           `json:"approved" gorm:"not null;index"`
	Message       string         `json:"message,omitempty" gorm:"type:text"`
	CreatedAt     time.Time      `json:"created_at"`
	DeletedAt     gorm.DeletedAt `json:"-" gorm:"index"`
}

// BeforeCreate sets UUID before creating the record.
func (l *AuthorizationLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
