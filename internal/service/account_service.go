package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/oliveira-flavio-br/authorizer-agentic-build/internal/cache"
	"github.com/oliveira-flavio-br/authorizer-agentic-build/internal/errors"
	"github.com/oliveira-flavio-br/authorizer-agentic-build/internal/model"
	"github.com/oliveira-flavio-br/authorizer-agentic-build/internal/repository"
)

const accountCacheTTL = 5 * time.Minute

// AccountService exposes read operations over accounts and their decisions.
type AccountService interface {
	GetAccount(ctx context.Context, id uuid.UUID) (*model.Account, error)
	GetBalance(ctx context.Context, id uuid.UUID) (decimal.Decimal, error)
	ListTransactions(ctx context.Context, id uuid.UUID) ([]model.Transaction, error)
}

type accountService struct {
	repo    repository.AccountRepository
	txnRepo repository.TransactionRepository
	cache   *cache.Client
}

// NewAccountService creates a new account service.
func NewAccountService(repo repository.AccountRepository, txnRepo repository.TransactionRepository, cache *cache.Client) AccountService {
	return &accountService{
		repo:    repo,
		txnRepo: txnRepo,
		cache:   cache,
	}
}

func (s *accountService) cacheKey(id uuid.UUID) string {
	return fmt.Sprintf("account:%s", id.String())
}

// GetAccount retrieves an account by ID with caching. The cached balance may
// lag the ledger slightly; authorization never reads through this path.
func (s *accountService) GetAccount(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	var cached model.Account
	if s.cache.GetJSON(ctx, s.cacheKey(id), &cached) {
		return &cached, nil
	}

	account, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrAccountNotFound
		}
		return nil, err
	}

	s.cache.SetJSON(ctx, s.cacheKey(id), account, accountCacheTTL)

	return account, nil
}

// GetBalance retrieves the current balance of an account.
func (s *accountService) GetBalance(ctx context.Context, id uuid.UUID) (decimal.Decimal, error) {
	account, err := s.GetAccount(ctx, id)
	if err != nil {
		if err == errors.ErrAccountNotFound {
			return decimal.Zero, err
		}
		return decimal.Zero, fmt.Errorf("get account: %w", err)
	}
	return account.Balance, nil
}

// ListTransactions returns the account's authorization decisions, newest first.
func (s *accountService) ListTransactions(ctx context.Context, id uuid.UUID) ([]model.Transaction, error) {
	if _, err := s.GetAccount(ctx, id); err != nil {
		return nil, err
	}
	txns, err := s.txnRepo.ListByAccountID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txns, nil
}
