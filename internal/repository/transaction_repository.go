package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oliveira-flavio-br/authorizer-agentic-build/internal/model"
)

// TransactionRepository is the durable sink for authorization decisions.
// Every decision, approved or declined, is recorded exactly once.
type TransactionRepository interface {
	Create(ctx context.Context, txn *model.Transaction) error
	FindByRequestID(ctx context.Context, requestID string) (*model.Transaction, error)
	ListByAccountID(ctx context.Context, accountID uuid.UUID) ([]model.Transaction, error)
}

type transactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository creates a new transaction repository.
func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

// Create creates a new transaction record.
func (r *transactionRepository) Create(ctx context.Context, txn *model.Transaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

// FindByRequestID finds the decision recorded for an idempotency key.
func (r *transactionRepository) FindByRequestID(ctx context.Context, requestID string) (*model.Transaction, error) {
	var txn model.Transaction
	if err := r.db.WithContext(ctx).Where("request_id = ?", requestID).First(&txn).Error; err != nil {
		return nil, err
	}
	return &txn, nil
}

// ListByAccountID returns all decisions for an account, newest first.
func (r *transactionRepository) ListByAccountID(ctx context.Context, accountID uuid.UUID) ([]model.Transaction, error) {
	var txns []model.Transaction
	if err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC").
		Find(&txns).Error; err != nil {
		return nil, err
	}
	return txns, nil
}

// AuthorizationLogRepository defines audit log persistence operations.
type AuthorizationLogRepository interface {
	Create(ctx context.Context, log *model.AuthorizationLog) error
	CreateBatch(ctx context.Context, logs []model.AuthorizationLog) error
}

type authorizationLogRepository struct {
	db *gorm.DB
}

// NewAuthorizationLogRepository creates a new authorization log repository.
func NewAuthorizationLogRepository(db *gorm.DB) AuthorizationLogRepository {
	return &authorizationLogRepository{db: db}
}

// Create creates a new log entry.
func (r *authorizationLogRepository) Create(ctx context.Context, log *model.AuthorizationLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

// CreateBatch creates multiple log entries in a single round trip.
func (r *authorizationLogRepository) CreateBatch(ctx context.Context, logs []model.AuthorizationLog) error {
	if len(logs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(logs, 100).Error
}
