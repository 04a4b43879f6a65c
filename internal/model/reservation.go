package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ReservationStatus is the outcome of a ledger reservation attempt. Both
// outcomes are recorded under the idempotency key so retries replay the
// original decision.
type ReservationStatus string

const (
	ReservationStatusReserved          ReservationStatus = "reserved"
	ReservationStatusInsufficientFunds ReservationStatus = "insufficient_funds"
)

// Reservation is a monotonically applied debit of available balance, keyed by
// the request's idempotency key. The unique index on IdempotencyKey is what
// makes Reserve at-most-once under concurrent retries.
type Reservation struct {
	ID                uuid.UUID         `json:"id" gorm:"type:char(36);primaryKey"`
	IdempotencyKey    string            `json:"idempotency_key" gorm:"size:64;not null;uniqueIndex"`
	AccountID         uuid.UUID         `json:"account_id" gorm:"type:char(36);not null;index"`
	Amount            decimal.Decimal   `json:"amount" gorm:"type:decimal(20,2);not null"`
	Status            ReservationStatus `json:"status" gorm:"type:varchar(20);not null"`
	AuthorizationCode string            `json:"authorization_code,omitempty" gorm:"size:36"`
	CreatedAt         time.Time         `json:"created_at"`
}

// BeforeCreate sets UUID before creating the record.
func (r *Reservation) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
