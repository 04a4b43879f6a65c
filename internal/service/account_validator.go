package service

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/oliveira-flavio-br/authorizer-agentic-build/internal/errors"
	"github.com/oliveira-flavio-br/authorizer-agentic-build/internal/model"
	"github.com/oliveira-flavio-br/authorizer-agentic-build/internal/repository"
)

// AccountValidator runs the account-level checks: billing-address match for
// card-not-present requests, then account status.
type AccountValidator struct {
	accounts             repository.AccountRepository
	addressCaseSensitive bool
}

// NewAccountValidator creates a new account validator.
func NewAccountValidator(accounts repository.AccountRepository, addressCaseSensitive bool) *AccountValidator {
	return &AccountValidator{
		accounts:             accounts,
		addressCaseSensitive: addressCaseSensitive,
	}
}

// Validate loads the card's owning account and applies its checks in order.
// A card pointing at a missing account is an integrity breach, surfaced as an
// environment failure rather than a decline.
func (v *AccountValidator) Validate(ctx context.Context, card *model.Card, req *model.AuthorizationRequest) (*model.Account, *errors.Decline, error) {
	account, err := v.accounts.FindByID(ctx, card.AccountID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil, fmt.Errorf("card %s: %w", card.ID, errors.ErrAccountNotFound)
		}
		return nil, nil, fmt.Errorf("find account: %w", err)
	}

	if req.Type == model.TransactionTypeCardNotPresent {
		if req.BillingAddress == nil ||
			!req.BillingAddress.Equal(account.BillingAddress, v.addressCaseSensitive) {
			return nil, errors.DeclineAddressMismatch, nil
		}
	}

	if account.Status != model.AccountStatusActive {
		return nil, errors.DeclineAccountNotActive, nil
	}

	return account, nil, nil
}
