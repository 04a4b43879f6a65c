package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oliveira-flavio-br/authorizer-agentic-build/internal/model"
)

// CardRepository defines card persistence operations.
type CardRepository interface {
	Create(ctx context.Context, card *model.Card) error
	FindByCardNumber(ctx context.Context, cardNumber string) (*model.Card, error)
	FindByAccountID(ctx context.Context, accountID uuid.UUID) ([]model.Card, error)
}

type cardRepository struct {
	db *gorm.DB
}

// NewCardRepository creates a new card repository.
func NewCardRepository(db *gorm.DB) CardRepository {
	return &cardRepository{db: db}
}

// Create creates a new card.
func (r *cardRepository) Create(ctx context.Context, card *model.Card) error {
	return r.db.WithContext(ctx).Create(card).Error
}

// FindByCardNumber finds a card by its normalized card number.
func (r *cardRepository) FindByCardNumber(ctx context.Context, cardNumber string) (*model.Card, error) {
	var card model.Card
	if err := r.db.WithContext(ctx).Where("card_number = ?", cardNumber).First(&card).Error; err != nil {
		return nil, err
	}
	return &card, nil
}

// FindByAccountID finds all cards for an account.
func (r *cardRepository) FindByAccountID(ctx context.Context, accountID uuid.UUID) ([]model.Card, error) {
	var cards []model.Card
	if err := r.db.WithContext(ctx).Where("account_id = ?", accountID).Find(&cards).Error; err != nil {
		return nil, err
	}
	return cards, nil
}
