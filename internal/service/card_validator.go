package service

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/oliveira-flavio-br/authorizer-agentic-build/internal/errors"
	"github.com/oliveira-flavio-br/authorizer-agentic-build/internal/model"
	"github.com/oliveira-flavio-br/authorizer-agentic-build/internal/repository"
)

var nonDigits = regexp.MustCompile(`\D`)

// CardValidator runs the card-level checks of the authorization chain:
// existence, status, and (for card-not-present) CVC2 and cardholder name.
// It reads, never mutates.
type CardValidator struct {
	cards repository.CardRepository
}

// NewCardValidator creates a new card validator.
func NewCardValidator(cards repository.CardRepository) *CardValidator {
	return &CardValidator{cards: cards}
}

// Validate looks up the card and applies its checks in order, returning the
// card on success, a decline on business failure, or an error on environment
// failure. First failure wins.
func (v *CardValidator) Validate(ctx context.Context, req *model.AuthorizationRequest) (*model.Card, *errors.Decline, error) {
	number := NormalizeCardNumber(req.CardNumber)
	if !validLuhn(number) {
		// A number that fails the check digit cannot belong to any issued card.
		return nil, errors.DeclineCardNotFound, nil
	}

	card, err := v.cards.FindByCardNumber(ctx, number)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.DeclineCardNotFound, nil
		}
		return nil, nil, fmt.Errorf("find card: %w", err)
	}

	if card.Status != model.CardStatusActive {
		return nil, errors.DeclineCardNotActive, nil
	}

	if req.Type == model.TransactionTypeCardNotPresent {
		// Absent required fields are a validation failure, not an error.
		if req.CVC2 == "" || req.CVC2 != card.CVC2 {
			return nil, errors.DeclineCVC2Mismatch, nil
		}
		if req.CardholderName == "" ||
			!strings.EqualFold(strings.TrimSpace(req.CardholderName), strings.TrimSpace(card.CardholderName)) {
			return nil, errors.DeclineNameMismatch, nil
		}
	}

	return card, nil, nil
}

// NormalizeCardNumber strips spaces and dashes from a card number.
func NormalizeCardNumber(cardNumber string) string {
	return strings.ReplaceAll(strings.ReplaceAll(cardNumber, " ", ""), "-", "")
}

// validLuhn validates a card number using the Luhn algorithm.
func validLuhn(cardNumber string) bool {
	cardNumber = nonDigits.ReplaceAllString(cardNumber, "")

	if len(cardNumber) < 13 || len(cardNumber) > 19 {
		return false
	}

	sum := 0
	isEven := false

	// Process from right to left
	for i := len(cardNumber) - 1; i >= 0; i-- {
		digit, err := strconv.Atoi(string(cardNumber[i]))
		if err != nil {
			return false
		}

		if isEven {
			digit *= 2
			if digit > 9 {
				digit -= 9
			}
		}

		sum += digit
		isEven = !isEven
	}

	return sum%10 == 0
}

// MaskCardNumber masks a card number, showing only last 4 digits.
func MaskCardNumber(cardNumber string) string {
	cardNumber = NormalizeCardNumber(cardNumber)
	if len(cardNumber) < 4 {
		return "****"
	}
	return "****" + cardNumber[len(cardNumber)-4:]
}
