// Package ledger holds the authoritative available balance per account and
// performs the atomic reserve-if-sufficient debit that every approval depends
// on. Reservation attempts are serialized per account, never globally;
// operations on different accounts proceed without contention.
package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/oliveira-flavio-br/authorizer-agentic-build/internal/model"
)

// Sentinel errors shared across all backend implementations.
var (
	// ErrUnknownAccount is returned when the account does not exist in the ledger.
	ErrUnknownAccount = errors.New("ledger: unknown account")
	// ErrKeyConflict is returned when an idempotency key is reused with a
	// different amount.
	ErrKeyConflict = errors.New("ledger: idempotency key reused with different amount")
	// ErrInvariantViolation is returned when a negative balance is observed.
	// It means per-account serialization was broken and must never be swallowed.
	ErrInvariantViolation = errors.New("ledger: negative balance")
)

// Outcome is the result of a Reserve call. Replayed is true when a prior
// reservation with the same idempotency key was found, in which case the
// stored status and authorization code are returned and no balance changes.
type Outcome struct {
	Status            model.ReservationStatus
	AuthorizationCode string
	Replayed          bool
}

// Ledger reserves funds against account balances. Reserve must be
// linearizable per account: two concurrent calls on the same account are
// strictly ordered, and at most one reservation per idempotency key ever
// succeeds. The caller passes the authorization code up front so that a
// successful reservation and its code commit atomically.
type Ledger interface {
	Reserve(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, idempotencyKey, authorizationCode string) (Outcome, error)
}
