package ledger

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oliveira-flavio-br/authorizer-agentic-build/internal/model"
)

func newTestLedger(t *testing.T, balance string) (*MemoryLedger, uuid.UUID) {
	t.Helper()
	l := NewMemoryLedger()
	accountID := uuid.New()
	require.NoError(t, l.Open(accountID, decimal.RequireFromString(balance)))
	return l, accountID
}

func TestMemoryLedger_Reserve(t *testing.T) {
	tests := []struct {
		name           string
		balance        string
		amount         string
		expectedStatus model.ReservationStatus
		expectedAfter  string
	}{
		{
			name:           "sufficient funds",
			balance:        "1000.00",
			amount:         "250.00",
			expectedStatus: model.ReservationStatusReserved,
			expectedAfter:  "750.00",
		},
		{
			name:           "amount equal to balance approves",
			balance:        "1000.00",
			amount:         "1000.00",
			expectedStatus: model.ReservationStatusReserved,
			expectedAfter:  "0.00",
		},
		{
			name:           "one cent over balance declines",
			balance:        "1000.00",
			amount:         "1000.01",
			expectedStatus: model.ReservationStatusInsufficientFunds,
			expectedAfter:  "1000.00",
		},
		{
			name:           "zero balance declines any amount",
			balance:        "0.00",
			amount:         "0.01",
			expectedStatus: model.ReservationStatusInsufficientFunds,
			expectedAfter:  "0.00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, accountID := newTestLedger(t, tt.balance)

			outcome, err := l.Reserve(context.Background(), accountID, decimal.RequireFromString(tt.amount), uuid.NewString(), "auth-1")
			require.NoError(t, err)
			assert.Equal(t, tt.expectedStatus, outcome.Status)
			assert.False(t, outcome.Replayed)

			if tt.expectedStatus == model.ReservationStatusReserved {
				assert.Equal(t, "auth-1", outcome.AuthorizationCode)
			} else {
				assert.Empty(t, outcome.AuthorizationCode)
			}

			balance, err := l.Balance(accountID)
			require.NoError(t, err)
			assert.True(t, balance.Equal(decimal.RequireFromString(tt.expectedAfter)),
				"balance = %s, want %s", balance, tt.expectedAfter)
		})
	}
}

func TestMemoryLedger_Reserve_UnknownAccount(t *testing.T) {
	l := NewMemoryLedger()

	_, err := l.Reserve(context.Background(), uuid.New(), decimal.NewFromInt(10), uuid.NewString(), "auth-1")
	assert.ErrorIs(t, err, ErrUnknownAccount)

	_, err = l.Balance(uuid.New())
	assert.ErrorIs(t, err, ErrUnknownAccount)
}

func TestMemoryLedger_Reserve_Replay(t *testing.T) {
	l, accountID := newTestLedger(t, "100.00")
	key := uuid.NewString()
	amount := decimal.RequireFromString("60.00")

	first, err := l.Reserve(context.Background(), accountID, amount, key, "auth-1")
	require.NoError(t, err)
	require.Equal(t, model.ReservationStatusReserved, first.Status)

	// Retry with the same key must not debit again and must return the
	// original authorization code.
	second, err := l.Reserve(context.Background(), accountID, amount, key, "auth-2")
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, model.ReservationStatusReserved, second.Status)
	assert.Equal(t, "auth-1", second.AuthorizationCode)

	balance, err := l.Balance(accountID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("40.00")), "balance = %s", balance)
}

func TestMemoryLedger_Reserve_ReplayOfDecline(t *testing.T) {
	l, accountID := newTestLedger(t, "10.00")
	key := uuid.NewString()
	amount := decimal.RequireFromString("50.00")

	first, err := l.Reserve(context.Background(), accountID, amount, key, "auth-1")
	require.NoError(t, err)
	require.Equal(t, model.ReservationStatusInsufficientFunds, first.Status)

	// The declined outcome is stored too, so a retry replays the decline even
	// if funds have since arrived.
	second, err := l.Reserve(context.Background(), accountID, amount, key, "auth-2")
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, model.ReservationStatusInsufficientFunds, second.Status)
}

func TestMemoryLedger_Reserve_KeyConflict(t *testing.T) {
	l, accountID := newTestLedger(t, "100.00")
	key := uuid.NewString()

	_, err := l.Reserve(context.Background(), accountID, decimal.NewFromInt(10), key, "auth-1")
	require.NoError(t, err)

	_, err = l.Reserve(context.Background(), accountID, decimal.NewFromInt(20), key, "auth-2")
	assert.ErrorIs(t, err, ErrKeyConflict)
}

func TestMemoryLedger_Reserve_CancelledContext(t *testing.T) {
	l, accountID := newTestLedger(t, "100.00")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := l.Reserve(ctx, accountID, decimal.NewFromInt(10), uuid.NewString(), "auth-1")
	assert.ErrorIs(t, err, context.Canceled)

	balance, err := l.Balance(accountID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(100)))
}

func TestMemoryLedger_Open_NegativeBalance(t *testing.T) {
	l := NewMemoryLedger()
	err := l.Open(uuid.New(), decimal.RequireFromString("-1.00"))
	assert.ErrorIs(t, err, ErrInvariantViolation)
}

// Two concurrent reservations that each fit the balance individually, but not
// together, must resolve to exactly one approval.
func TestMemoryLedger_Reserve_ConcurrentDoubleSpend(t *testing.T) {
	l, accountID := newTestLedger(t, "100.00")
	amount := decimal.RequireFromString("60.00")

	outcomes := make([]Outcome, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcome, err := l.Reserve(context.Background(), accountID, amount, uuid.NewString(), fmt.Sprintf("auth-%d", i))
			assert.NoError(t, err)
			outcomes[i] = outcome
		}(i)
	}
	wg.Wait()

	reserved := 0
	for _, outcome := range outcomes {
		if outcome.Status == model.ReservationStatusReserved {
			reserved++
		}
	}
	assert.Equal(t, 1, reserved, "exactly one of two competing reservations must win")

	balance, err := l.Balance(accountID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("40.00")), "balance = %s", balance)
}

// Many concurrent reservations must never push the balance negative, and the
// final balance must equal the opening balance minus the approved total.
func TestMemoryLedger_Reserve_ConcurrentConservation(t *testing.T) {
	l, accountID := newTestLedger(t, "50.00")
	amount := decimal.RequireFromString("7.00")

	const workers = 20
	var approved int64
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcome, err := l.Reserve(context.Background(), accountID, amount, uuid.NewString(), fmt.Sprintf("auth-%d", i))
			assert.NoError(t, err)
			if outcome.Status == model.ReservationStatusReserved {
				mu.Lock()
				approved++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	// 50 / 7 = 7 full reservations at most.
	assert.EqualValues(t, 7, approved)

	balance, err := l.Balance(accountID)
	require.NoError(t, err)
	expected := decimal.RequireFromString("50.00").Sub(amount.Mul(decimal.NewFromInt(approved)))
	assert.True(t, balance.Equal(expected), "balance = %s, want %s", balance, expected)
	assert.False(t, balance.IsNegative())
}
