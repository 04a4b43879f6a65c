package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/oliveira-flavio-br/authorizer-agentic-build/internal/model"
)

// GormLedger backs reservations with MySQL. Per-account serialization comes
// from the FOR UPDATE row lock on the account; idempotency from the unique
// index on reservations.idempotency_key.
type GormLedger struct {
	db *gorm.DB
}

// NewGormLedger creates a MySQL-backed ledger.
func NewGormLedger(db *gorm.DB) *GormLedger {
	return &GormLedger{db: db}
}

// Reserve runs the reserve-if-sufficient debit in a single database
// transaction. Whichever concurrent call takes the row lock first decides;
// the loser observes the updated balance.
func (l *GormLedger) Reserve(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, idempotencyKey, authorizationCode string) (Outcome, error) {
	var out Outcome
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var prev model.Reservation
		err := tx.Where("idempotency_key = ?", idempotencyKey).First(&prev).Error
		if err == nil {
			if !prev.Amount.Equal(amount) {
				return ErrKeyConflict
			}
			out = Outcome{Status: prev.Status, AuthorizationCode: prev.AuthorizationCode, Replayed: true}
			return nil
		}
		if err != gorm.ErrRecordNotFound {
			return fmt.Errorf("find reservation: %w", err)
		}

		var account model.Account
		if err := tx.Set("gorm:query_option", "FOR UPDATE").
			Where("id = ?", accountID).First(&account).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return ErrUnknownAccount
			}
			return fmt.Errorf("lock account: %w", err)
		}
		if account.Balance.IsNegative() {
			return ErrInvariantViolation
		}

		res := model.Reservation{
			IdempotencyKey: idempotencyKey,
			AccountID:      accountID,
			Amount:         amount,
		}

		if account.Balance.LessThan(amount) {
			res.Status = model.ReservationStatusInsufficientFunds
			if err := tx.Create(&res).Error; err != nil {
				return err
			}
			out = Outcome{Status: res.Status}
			return nil
		}

		newBalance := account.Balance.Sub(amount)
		if err := tx.Model(&model.Account{}).
			Where("id = ?", accountID).
			Update("balance", newBalance).Error; err != nil {
			return fmt.Errorf("update balance: %w", err)
		}

		res.Status = model.ReservationStatusReserved
		res.AuthorizationCode = authorizationCode
		if err := tx.Create(&res).Error; err != nil {
			return err
		}
		out = Outcome{Status: res.Status, AuthorizationCode: authorizationCode}
		return nil
	})
	if err != nil {
		// Lost an insert race on the idempotency key: the winner's outcome is
		// the authoritative one, replay it.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return l.replay(ctx, amount, idempotencyKey)
		}
		return Outcome{}, err
	}
	return out, nil
}

func (l *GormLedger) replay(ctx context.Context, amount decimal.Decimal, idempotencyKey string) (Outcome, error) {
	var prev model.Reservation
	if err := l.db.WithContext(ctx).
		Where("idempotency_key = ?", idempotencyKey).First(&prev).Error; err != nil {
		return Outcome{}, fmt.Errorf("replay reservation: %w", err)
	}
	if !prev.Amount.Equal(amount) {
		return Outcome{}, ErrKeyConflict
	}
	return Outcome{Status: prev.Status, AuthorizationCode: prev.AuthorizationCode, Replayed: true}, nil
}
