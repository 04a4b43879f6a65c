package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/oliveira-flavio-br/authorizer-agentic-build/internal/model"
)

// MemoryLedger keeps balances and reservations in process memory. Each
// account gets its own mutex, so reservations on different accounts never
// contend.
type MemoryLedger struct {
	accounts sync.Map // uuid.UUID -> *accountState
}

type accountState struct {
	mu           sync.Mutex
	balance      decimal.Decimal
	reservations map[string]model.Reservation
}

// NewMemoryLedger creates an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{}
}

// Open registers an account with its starting balance. Opening an already
// known account resets it; balances must be non-negative.
func (l *MemoryLedger) Open(accountID uuid.UUID, balance decimal.Decimal) error {
	if balance.IsNegative() {
		return fmt.Errorf("open account %s: %w", accountID, ErrInvariantViolation)
	}
	l.accounts.Store(accountID, &accountState{
		balance:      balance,
		reservations: make(map[string]model.Reservation),
	})
	return nil
}

// Balance returns the current available balance of an account.
func (l *MemoryLedger) Balance(accountID uuid.UUID) (decimal.Decimal, error) {
	v, ok := l.accounts.Load(accountID)
	if !ok {
		return decimal.Zero, ErrUnknownAccount
	}
	st := v.(*accountState)
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.balance, nil
}

// Reserve atomically debits the balance if sufficient, recording the outcome
// under the idempotency key. A repeated key replays the stored outcome
// without touching the balance.
func (l *MemoryLedger) Reserve(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, idempotencyKey, authorizationCode string) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}

	v, ok := l.accounts.Load(accountID)
	if !ok {
		return Outcome{}, ErrUnknownAccount
	}
	st := v.(*accountState)

	st.mu.Lock()
	defer st.mu.Unlock()

	if prev, ok := st.reservations[idempotencyKey]; ok {
		if !prev.Amount.Equal(amount) {
			return Outcome{}, ErrKeyConflict
		}
		return Outcome{
			Status:            prev.Status,
			AuthorizationCode: prev.AuthorizationCode,
			Replayed:          true,
		}, nil
	}

	res := model.Reservation{
		IdempotencyKey: idempotencyKey,
		AccountID:      accountID,
		Amount:         amount,
	}

	if st.balance.LessThan(amount) {
		res.Status = model.ReservationStatusInsufficientFunds
		st.reservations[idempotencyKey] = res
		return Outcome{Status: res.Status}, nil
	}

	next := st.balance.Sub(amount)
	if next.IsNegative() {
		return Outcome{}, ErrInvariantViolation
	}
	st.balance = next

	res.Status = model.ReservationStatusReserved
	res.AuthorizationCode = authorizationCode
	st.reservations[idempotencyKey] = res

	return Outcome{Status: res.Status, AuthorizationCode: authorizationCode}, nil
}
