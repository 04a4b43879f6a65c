package service

import (
	"context"
	"fmt"
	"time"

	"github.com/oliveira-flavio-br/authorizer-agentic-build/internal/errors"
	"github.com/oliveira-flavio-br/authorizer-agentic-build/internal/model"
	"github.com/oliveira-flavio-br/authorizer-agentic-build/internal/ratelimit"
)

// TransactionValidator runs the transaction-level checks: rate limit,
// merchant-category allow-list, and the advisory balance read. The balance
// check here is a fast path only; the ledger's Reserve is the authority.
type TransactionValidator struct {
	limiter         ratelimit.Counter
	maxTransactions int
	window          time.Duration
	allowedMCCs     map[string]struct{}
}

// NewTransactionValidator creates a new transaction validator with the
// supplied controls.
func NewTransactionValidator(limiter ratelimit.Counter, maxTransactions int, window time.Duration, allowedMCCs []string) *TransactionValidator {
	set := make(map[string]struct{}, len(allowedMCCs))
	for _, mcc := range allowedMCCs {
		set[mcc] = struct{}{}
	}
	return &TransactionValidator{
		limiter:         limiter,
		maxTransactions: maxTransactions,
		window:          window,
		allowedMCCs:     set,
	}
}

// Validate applies the transaction checks in order. A counter failure is an
// environment failure: the limit cannot be verified, so the engine fails closed.
func (v *TransactionValidator) Validate(ctx context.Context, card *model.Card, account *model.Account, req *model.AuthorizationRequest) (*errors.Decline, error) {
	count, err := v.limiter.RecentAttemptCount(ctx, card.CardNumber, req.Timestamp, v.window)
	if err != nil {
		return nil, fmt.Errorf("rate limit check: %w", err)
	}
	// Strictly less-than: the attempt that would reach the cap is declined.
	if count >= v.maxTransactions {
		return errors.DeclineRateLimitExceeded, nil
	}

	if _, ok := v.allowedMCCs[req.MerchantCategoryCode]; !ok {
		return errors.DeclineMerchantCategoryNotAllowed, nil
	}

	if account.Balance.LessThan(req.Amount) {
		return errors.DeclineInsufficientFunds, nil
	}

	return nil, nil
}
